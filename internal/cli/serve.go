package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmehra2102/prod-golang-projects/apptsched/internal/config"
	"github.com/dmehra2102/prod-golang-projects/apptsched/internal/handler"
	"github.com/dmehra2102/prod-golang-projects/apptsched/pkg/database"
	"github.com/dmehra2102/prod-golang-projects/apptsched/pkg/logger"
	"github.com/dmehra2102/prod-golang-projects/apptsched/pkg/metrics"
	"github.com/dmehra2102/prod-golang-projects/apptsched/pkg/tracer"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const eventShutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	var migrateUp bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduling HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			log, err := logger.New(cfg.Log, cfg.App)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			return serve(ctx, cfg, migrateUp, log)
		},
	}

	cmd.Flags().BoolVar(&migrateUp, "migrate", false, "run database migrations on startup (postgres only)")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, migrateUp bool, log *zap.Logger) error {
	tp, err := tracer.Init(cfg.Tracing, cfg.App.Version)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Warn("tracer shutdown failed", zap.Error(err))
		}
	}()

	if migrateUp && cfg.Storage.Driver == config.StoragePostgres {
		if err := runMigrations(cfg, log); err != nil {
			return err
		}
	}

	m := metrics.NewCollector(metricsNamespace(cfg.App.Name), prometheus.DefaultRegisterer)

	a, err := buildApp(cfg, m, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Error("closing application", zap.Error(err))
		}
	}()

	router := handler.NewRouter(handler.RouterDeps{
		Config:       cfg,
		Appointments: a.Appointments,
		Metrics:      m,
		Health:       a.Health,
		Log:          log,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening",
			zap.String("addr", srv.Addr),
			zap.String("storage", cfg.Storage.Driver),
			zap.String("timezone", cfg.Scheduling.Timezone),
			zap.String("version", cfg.App.Version),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	return nil
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the postgres schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.Storage.Driver != config.StoragePostgres {
				return fmt.Errorf("migrate requires STORAGE_DRIVER=postgres (got %q)", cfg.Storage.Driver)
			}

			log, err := logger.New(cfg.Log, cfg.App)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			return runMigrations(cfg, log)
		},
	}
}

func runMigrations(cfg *config.Config, log *zap.Logger) error {
	db, err := database.Connect(cfg.Database)
	if err != nil {
		return err
	}
	defer func() { _ = database.Close(db) }()

	return database.Migrate(db, log)
}

// metricsNamespace turns an app name such as "apptsched-api" into a valid
// prometheus namespace.
func metricsNamespace(name string) string {
	out := make([]rune, 0, len(name)+1)
	for i, r := range name {
		switch {
		case r >= '0' && r <= '9':
			if i == 0 {
				out = append(out, '_')
			}
			out = append(out, r)
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}
