package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/tinoosan/teller/internal/config"
	"github.com/tinoosan/teller/internal/httpapi"
	"github.com/tinoosan/teller/internal/metrics"
	"github.com/tinoosan/teller/internal/service/account"
	"github.com/tinoosan/teller/internal/service/journal"
	"github.com/tinoosan/teller/internal/shell"
	"github.com/tinoosan/teller/internal/storage"
	"github.com/tinoosan/teller/internal/storage/file"
	"github.com/tinoosan/teller/internal/storage/memory"
	pgstore "github.com/tinoosan/teller/internal/storage/postgres"
	sqlitestore "github.com/tinoosan/teller/internal/storage/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		slog.Error("invalid arguments", "err", err)
		os.Exit(2)
	}

	// Logs go to stderr; stdout belongs to the menu.
	logger := cfg.Logger(os.Stderr).With("session_id", uuid.NewString())
	slog.SetDefault(logger)

	backend, closeFn, err := openBackend(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open storage", "backend", string(cfg.Backend()), "err", err)
		os.Exit(1)
	}
	defer closeFn()
	logger.Info("storage backend", "backend", string(cfg.Backend()))

	m := metrics.New()
	accs, loadErr := backend.Load(ctx)
	if loadErr != nil {
		logger.Warn("load accounts", "err", loadErr)
	}
	store := memory.New(accs)

	accountSvc := account.New(store, backend, logger, m)
	journalSvc := journal.New(store, backend, logger, m)

	var srv *http.Server
	if cfg.MetricsAddr != "" {
		srv = &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           httpapi.New(accountSvc, backend, m, logger).Handler(),
			ReadTimeout:       5 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       60 * time.Second,
		}
		go func() {
			logger.Info("ops listener started", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("ops listener error", "err", err)
			}
		}()
	}

	sh := shell.New(os.Stdin, os.Stdout, accountSvc, journalSvc, shell.Options{
		Currency: cfg.Currency,
		Logger:   logger,
	})
	sh.Banner()
	sh.ReportLoad(loadErr)
	runErr := sh.Run(ctx)

	if srv != nil {
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := srv.Shutdown(ctxShutdown); err != nil {
			logger.Error("ops listener shutdown error", "err", err)
		}
		cancel()
	}
	if cfg.MetricsTextfile != "" {
		if err := m.WriteTextfile(cfg.MetricsTextfile); err != nil {
			logger.Error("write metrics textfile", "path", cfg.MetricsTextfile, "err", err)
		}
	}
	if runErr != nil {
		logger.Error("session aborted", "err", runErr)
		closeFn()
		os.Exit(1)
	}
}

// openBackend returns the configured storage adapter and its release func.
func openBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Adapter, func(), error) {
	switch cfg.Backend() {
	case config.BackendPostgres:
		pg, err := pgstore.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return pg, pg.Close, nil
	case config.BackendSQLite:
		db, err := sqlitestore.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return db, func() {
			if err := db.Close(); err != nil {
				logger.Warn("close sqlite", "err", err)
			}
		}, nil
	default:
		return file.New(cfg.AccountsFile, cfg.LogFile, logger), func() {}, nil
	}
}
