package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"knowledgescout/internal/api"
	"knowledgescout/internal/cache"
	"knowledgescout/internal/config"
	"knowledgescout/internal/extract"
	"knowledgescout/internal/knowledge"
	"knowledgescout/internal/ratelimit"
	"knowledgescout/internal/store"
)

func serveCmd() *cobra.Command {
	var (
		host string
		port int
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long:  "Starts the KnowledgeScout API server. Press Ctrl+C to stop.",
		RunE: func(cmd *cobra.Command, args []string) error {
			// A missing .env is normal; anything it sets is visible to ${VAR} expansion.
			_ = godotenv.Load()

			cfg, err := loadConfigOrDefaults(resolveConfigPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cmd.Flags().Changed("host") {
				cfg.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if err := config.Validate(cfg); err != nil {
				return err
			}
			logger = newLogger(cfg.General.LogLevel)
			return runServe(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "listen host (overrides server.host)")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (overrides server.port)")
	return cmd
}

// buildServer wires the store, engine, limiter, and cache described by cfg.
func buildServer(cfg *config.Config) (*api.Server, func() error, error) {
	docStore, err := store.New(store.Config{
		Backend:      cfg.Store.Backend,
		MaxDocuments: cfg.Store.MaxDocuments,
		Logger:       logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}

	respCache := cache.New(cache.Config{
		TTL:        time.Duration(cfg.Cache.TTLSeconds) * time.Second,
		MaxEntries: cfg.Cache.MaxEntries,
	})

	engine := knowledge.NewEngine(knowledge.EngineConfig{
		Store: docStore,
		Extractor: extract.New(extract.Config{
			MaxSizeBytes: cfg.Server.MaxUploadBytes,
			Logger:       logger,
		}),
		Cache:    respCache,
		DefaultK: cfg.Ask.DefaultK,
		MaxK:     cfg.Ask.MaxK,
		Logger:   logger,
	})

	srv := api.NewServer(api.ServerConfig{
		Host:   cfg.Server.Host,
		Port:   cfg.Server.Port,
		Engine: engine,
		Cache:  respCache,
		Limiter: ratelimit.New(ratelimit.Config{
			Cooldown: time.Duration(cfg.RateLimit.CooldownMillis) * time.Millisecond,
			MaxKeys:  cfg.RateLimit.MaxKeys,
		}),
		PerClient:        cfg.RateLimit.PerClient,
		Version:          version,
		Team:             cfg.Hackathon.Team,
		ProblemStatement: cfg.Hackathon.ProblemStatement,
		ShutdownTimeout:  time.Duration(cfg.Server.ShutdownTimeoutSeconds) * time.Second,
		Logger:           logger,
	})
	return srv, docStore.Close, nil
}

// runServe runs the API until ctx is cancelled, SIGINT or SIGTERM arrives, or
// the server fails.
func runServe(ctx context.Context, cfg *config.Config) error {
	srv, closeStore, err := buildServer(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Start(gctx)
	})
	g.Go(func() error {
		return watchSignals(gctx, sigCh, cancel)
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	logger.Info("shutdown complete")
	return nil
}

// watchSignals calls cancel on the first signal from sigCh, or returns
// without cancelling once ctx is done.
func watchSignals(ctx context.Context, sigCh <-chan os.Signal, cancel context.CancelFunc) error {
	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
		cancel()
	case <-ctx.Done():
	}
	return nil
}
