package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmehra2102/prod-golang-projects/apptsched/internal/config"
	"github.com/dmehra2102/prod-golang-projects/apptsched/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/apptsched/internal/events"
	"github.com/dmehra2102/prod-golang-projects/apptsched/internal/repository/boltstore"
	"github.com/dmehra2102/prod-golang-projects/apptsched/internal/repository/memory"
	"github.com/dmehra2102/prod-golang-projects/apptsched/internal/repository/postgres"
	"github.com/dmehra2102/prod-golang-projects/apptsched/internal/service"
	"github.com/dmehra2102/prod-golang-projects/apptsched/pkg/database"
	"github.com/dmehra2102/prod-golang-projects/apptsched/pkg/metrics"
	"go.uber.org/zap"
)

// app is the wired scheduling core shared by serve and seed.
type app struct {
	Appointments *service.AppointmentService
	Events       *service.EventService
	Health       func(ctx context.Context) error

	closers []func() error
	log     *zap.Logger
}

func buildApp(cfg *config.Config, m *metrics.Collector, log *zap.Logger) (*app, error) {
	a := &app{log: log}

	repo, err := a.openStore(cfg, log)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	var pub events.Publisher = events.NopPublisher{}
	if cfg.Events.Enabled {
		kp, err := events.NewKafkaPublisher(events.KafkaConfig{
			Brokers:         cfg.Events.Brokers,
			Topic:           cfg.Events.Topic,
			WriteTimeout:    cfg.Events.WriteTimeout,
			BreakerFailures: uint32(cfg.Events.BreakerFailures),
			BreakerTimeout:  cfg.Events.BreakerTimeout,
		}, log)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		pub = kp
		log.Info("lifecycle events enabled",
			zap.Strings("brokers", cfg.Events.Brokers),
			zap.String("topic", cfg.Events.Topic),
		)
	}

	a.Events = service.NewEventService(pub, cfg.Events.BufferSize, m, log)
	clock := appointment.SystemClock{Location: cfg.Scheduling.Location()}
	a.Appointments = service.NewAppointmentService(repo, clock, a.Events, m, log)
	return a, nil
}

func (a *app) openStore(cfg *config.Config, log *zap.Logger) (appointment.Repository, error) {
	switch cfg.Storage.Driver {
	case config.StoragePostgres:
		db, err := database.Connect(cfg.Database)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() error { return database.Close(db) })
		a.Health = func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}
		return postgres.NewAppointmentRepository(db, log), nil

	case config.StorageBolt:
		repo, err := boltstore.Open(cfg.Storage.BoltPath, log)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, repo.Close)
		return repo, nil

	case config.StorageMemory:
		return memory.NewAppointmentRepository(log), nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
}

// Close drains pending events and releases the store.
func (a *app) Close() error {
	if a.Events != nil {
		a.Events.Shutdown(eventShutdownTimeout)
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
