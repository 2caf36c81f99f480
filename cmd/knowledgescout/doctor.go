package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/spf13/cobra"

	"knowledgescout/internal/config"
	"knowledgescout/internal/domain"
	"knowledgescout/internal/store"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Run diagnostic checks on your KnowledgeScout setup",
		Long: `Verifies that the configuration loads, the listen port is free, and the
configured store backend opens. Reports pass/fail for each check.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			cfgPath := resolveConfigPath()
			fmt.Fprintf(out, "KnowledgeScout Doctor v%s\n\n", version)

			var r doctorReport

			var cfg *config.Config
			if _, err := os.Stat(cfgPath); err != nil {
				r.warn(out, "Config file", fmt.Sprintf("not found at %s, defaults apply", cfgPath))
				cfg = config.Defaults()
			} else {
				r.pass(out, "Config file", cfgPath)
				loaded, err := config.Load(cfgPath)
				if err != nil {
					r.fail(out, "Config validation", err.Error())
					fmt.Fprintf(out, "\n%d passed, %d failed\n", r.passed, r.failed)
					return fmt.Errorf("%d check(s) failed", r.failed)
				}
				r.pass(out, "Config validation", "valid")
				cfg = loaded
			}

			if err := checkPort(cfg.Server.Addr()); err != nil {
				r.warn(out, "Listen address", fmt.Sprintf("%s may be in use: %v", cfg.Server.Addr(), err))
			} else {
				r.pass(out, "Listen address", cfg.Server.Addr()+" available")
			}

			if err := checkStore(cfg.Store.Backend); err != nil {
				r.fail(out, "Store backend", err.Error())
			} else {
				r.pass(out, "Store backend", cfg.Store.Backend)
			}

			if cfg.RateLimit.CooldownMillis == 0 {
				r.warn(out, "Rate limit", "disabled (rateLimit.cooldownMillis = 0)")
			} else {
				r.pass(out, "Rate limit", fmt.Sprintf("%dms cooldown", cfg.RateLimit.CooldownMillis))
			}
			if cfg.Cache.TTLSeconds == 0 {
				r.warn(out, "Response cache", "disabled (cache.ttlSeconds = 0)")
			} else {
				r.pass(out, "Response cache", fmt.Sprintf("%ds TTL, %d entries max", cfg.Cache.TTLSeconds, cfg.Cache.MaxEntries))
			}

			fmt.Fprintf(out, "\nResults: %d passed, %d warnings, %d failed\n", r.passed, r.warned, r.failed)
			if r.failed > 0 {
				return fmt.Errorf("%d check(s) failed", r.failed)
			}
			return nil
		},
	}
}

type doctorReport struct {
	passed, warned, failed int
}

func (r *doctorReport) pass(w io.Writer, check, detail string) {
	r.passed++
	fmt.Fprintf(w, "  [PASS] %-20s %s\n", check, detail)
}

func (r *doctorReport) warn(w io.Writer, check, detail string) {
	r.warned++
	fmt.Fprintf(w, "  [WARN] %-20s %s\n", check, detail)
}

func (r *doctorReport) fail(w io.Writer, check, detail string) {
	r.failed++
	fmt.Fprintf(w, "  [FAIL] %-20s %s\n", check, detail)
}

func checkPort(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return ln.Close()
}

// checkStore opens the backend and round-trips a document through it.
func checkStore(backend string) error {
	s, err := store.New(store.Config{Backend: backend, Logger: logger})
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sample := domain.Document{
		ID:         "doctor-check",
		Filename:   "check.txt",
		Content:    "check",
		Pages:      []string{"check"},
		UploadedAt: time.Now(),
	}
	if err := s.Add(ctx, sample); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if _, err := s.Get(ctx, sample.ID); err != nil {
		return fmt.Errorf("read: %w", err)
	}
	return nil
}
