package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"knowledgescout/internal/config"
)

func TestMain(m *testing.M) {
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	os.Exit(m.Run())
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
	}
	for in, want := range tests {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLoadConfigOrDefaults_Missing(t *testing.T) {
	cfg, err := loadConfigOrDefaults(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("missing file should fall back to defaults: %v", err)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("expected default port, got %d", cfg.Server.Port)
	}
}

func TestLoadConfigOrDefaults_InvalidIsError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"store":{"backend":"nope"}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := loadConfigOrDefaults(path); err == nil {
		t.Fatal("invalid config should not silently fall back")
	}
}

func TestCheckStore(t *testing.T) {
	for _, backend := range []string{"memory", "sqlite"} {
		if err := checkStore(backend); err != nil {
			t.Errorf("%s: %v", backend, err)
		}
	}
	if err := checkStore("bogus"); err == nil {
		t.Error("unknown backend should fail")
	}
}

func TestBuildServer_Backends(t *testing.T) {
	for _, backend := range []string{"memory", "sqlite"} {
		cfg := config.Defaults()
		cfg.Store.Backend = backend
		srv, closeStore, err := buildServer(cfg)
		if err != nil {
			t.Fatalf("%s: %v", backend, err)
		}
		if srv.Addr() != "0.0.0.0:8000" {
			t.Errorf("unexpected addr %q", srv.Addr())
		}
		if err := closeStore(); err != nil {
			t.Errorf("%s close: %v", backend, err)
		}
	}
}

func TestRunServe_StopsOnCancel(t *testing.T) {
	cfg := config.Defaults()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 0

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runServe(ctx, cfg) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("runServe: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("runServe did not stop after cancel")
	}
}

func TestWatchSignals(t *testing.T) {
	t.Run("signal cancels", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		sigCh := make(chan os.Signal, 1)
		sigCh <- syscall.SIGTERM

		if err := watchSignals(ctx, sigCh, cancel); err != nil {
			t.Fatal(err)
		}
		if ctx.Err() == nil {
			t.Error("expected context to be cancelled by the signal")
		}
	})

	t.Run("context done", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		called := false
		err := watchSignals(ctx, make(chan os.Signal), func() { called = true })
		if err != nil {
			t.Fatal(err)
		}
		if called {
			t.Error("cancel should not run without a signal")
		}
	})
}

func TestConfigCommands(t *testing.T) {
	dir := t.TempDir()
	configPath = filepath.Join(dir, "config.yaml")
	t.Cleanup(func() { configPath = "" })

	run := func(args ...string) (string, error) {
		root := configCmd()
		var out bytes.Buffer
		root.SetOut(&out)
		root.SetErr(&out)
		root.SetArgs(args)
		err := root.Execute()
		return out.String(), err
	}

	if _, err := run("set", "server.port", "9100"); err != nil {
		t.Fatalf("set: %v", err)
	}
	out, err := run("get", "server.port")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if strings.TrimSpace(out) != "9100" {
		t.Errorf("expected 9100, got %q", out)
	}

	if _, err := run("set", "no.such.key", "1"); err == nil {
		t.Error("unknown key should be rejected")
	}
	if _, err := run("set", "store.backend", "mongo"); err == nil {
		t.Error("invalid value should be rejected")
	}

	out, err = run("list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "server.port = 9100") {
		t.Errorf("list output missing port:\n%s", out)
	}
}
