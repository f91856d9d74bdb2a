package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"

	"github.com/micro-ha/q5-assistants/internal/config"
	"github.com/micro-ha/q5-assistants/internal/console"
	domain "github.com/micro-ha/q5-assistants/internal/domain/signal"
	"github.com/micro-ha/q5-assistants/internal/engine"
	"github.com/micro-ha/q5-assistants/internal/gateway/daskeyboard"
	httpapi "github.com/micro-ha/q5-assistants/internal/http"
	"github.com/micro-ha/q5-assistants/internal/http/handlers"
	"github.com/micro-ha/q5-assistants/internal/logging"
	"github.com/micro-ha/q5-assistants/internal/resolvers"
	"github.com/micro-ha/q5-assistants/internal/resolvers/registry"
	"github.com/micro-ha/q5-assistants/internal/storage"
)

const pruneInterval = time.Hour

func main() {
	envFile := flag.String("env", ".env", "path to .env file")
	flag.Parse()

	if err := loadDotEnv(*envFile); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)
	if err := run(cfg, logger); err != nil {
		logger.Error("driver terminated with error", "err", err)
		os.Exit(1)
	}
	logger.Info("driver stopped")
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	file, err := config.LoadAssistants(cfg.AssistantsFile)
	if err != nil {
		return err
	}
	assistants, err := buildAssistants(resolvers.Default(), file, logger)
	if err != nil {
		return err
	}

	gateway := daskeyboard.NewClient(cfg.BaseURL, cfg.PID, cfg.RequestTimeout).WithLogger(logger)
	hub := handlers.NewHub(logger)
	defer hub.Close()
	observers := []engine.Observer{hub}

	var journal handlers.Journal
	if cfg.JournalEnabled() {
		repo, err := openJournal(ctx, cfg.JournalPath, logger)
		if err != nil {
			return err
		}
		defer repo.Close()
		journal = repo
		observers = append(observers, repo)
		if cfg.JournalKeep > 0 {
			go runJournalPrune(ctx, repo, cfg.JournalKeep, logger)
		}
	}

	orch := engine.New(gateway, assistants, engine.Options{
		Debug:           cfg.Debug,
		CycleTimeout:    cfg.CycleTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
		CleanupScope:    engine.ParseCleanupScope(cfg.CleanupScope),
		Observers:       observers,
	}, logger)
	if err := orch.StartAll(ctx); err != nil {
		return err
	}

	serverErr := make(chan error, 1)
	if cfg.StatusAddr != "" {
		server := &http.Server{
			Addr:              cfg.StatusAddr,
			Handler:           httpapi.NewRouter(handlers.New(orch, journal, hub, logger)),
			ReadHeaderTimeout: 5 * time.Second,
			IdleTimeout:       60 * time.Second,
		}
		logger.Info("status server starting", "addr", server.Addr)
		go func() { serverErr <- httpapi.RunServer(ctx, server, logger) }()
	}

	consoleDone := make(chan error, 1)
	go func() { consoleDone <- console.Run(ctx, os.Stdin, os.Stdout) }()
	fmt.Fprintf(os.Stdout, "Enter %q to stop the assistants\n", console.ShutdownToken)

	var runErr error
	for waiting := true; waiting; {
		select {
		case <-ctx.Done():
			logger.Info("shutdown signal received")
			waiting = false
		case err := <-consoleDone:
			if errors.Is(err, console.ErrInputClosed) {
				logger.Info("console input closed; waiting for a signal")
				consoleDone = nil
				continue
			}
			waiting = false
		case err := <-orch.Fatal():
			runErr = err
			waiting = false
		case err := <-serverErr:
			if err != nil {
				runErr = fmt.Errorf("status server: %w", err)
				waiting = false
			}
		}
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout+cfg.RequestTimeout)
	defer cancel()
	if err := orch.ShutdownAll(shutdownCtx); err != nil {
		if runErr == nil && domain.IsFatal(err) {
			runErr = err
		} else {
			logger.Warn("zone cleanup incomplete", "err", err)
		}
	}
	return runErr
}

func buildAssistants(reg *registry.Registry, file config.AssistantsFile, logger *slog.Logger) ([]engine.Assistant, error) {
	out := make([]engine.Assistant, 0, len(file.Assistants))
	for _, spec := range file.Assistants {
		resolver, err := reg.Build(spec.Kind, registry.Spec{
			Name:   spec.Name,
			Params: spec.Params,
			Logger: logger.With("assistant", spec.Name),
		})
		if err != nil {
			return nil, err
		}
		out = append(out, engine.Assistant{Config: spec.Config(), Resolver: resolver})
	}
	return out, nil
}

func openJournal(ctx context.Context, path string, logger *slog.Logger) (*storage.Repository, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}
	return storage.New(ctx, path, logger)
}

func runJournalPrune(ctx context.Context, repo *storage.Repository, keep time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pruneCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			removed, err := repo.Prune(pruneCtx, time.Now().Add(-keep))
			cancel()
			if err != nil {
				logger.Warn("journal prune failed", "err", err)
				continue
			}
			if removed > 0 {
				logger.Debug("journal pruned", "removed", removed)
			}
		}
	}
}

// loadDotEnv loads environment variables from path. A missing file is ignored.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
