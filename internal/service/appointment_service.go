package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmehra2102/prod-golang-projects/apptsched/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/apptsched/internal/events"
	"github.com/dmehra2102/prod-golang-projects/apptsched/pkg/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "github.com/dmehra2102/prod-golang-projects/apptsched/internal/service"

type AppointmentService struct {
	repo     appointment.Repository
	clock    appointment.Clock
	locks    *doctorLocks
	eventSvc *EventService
	metrics  *metrics.Collector
	tracer   trace.Tracer
	log      *zap.Logger
}

// NewAppointmentService wires the scheduling service. eventSvc and m may be
// nil; a nil clock reads the system clock in UTC.
func NewAppointmentService(
	repo appointment.Repository,
	clock appointment.Clock,
	eventSvc *EventService,
	m *metrics.Collector,
	log *zap.Logger,
) *AppointmentService {
	if clock == nil {
		clock = appointment.SystemClock{}
	}
	return &AppointmentService{
		repo:     repo,
		clock:    clock,
		locks:    newDoctorLocks(),
		eventSvc: eventSvc,
		metrics:  m,
		tracer:   otel.Tracer(tracerName),
		log:      log,
	}
}

func (s *AppointmentService) Create(ctx context.Context, cmd *appointment.CreateAppointmentCommand) (*appointment.Appointment, error) {
	ctx, span := s.tracer.Start(ctx, "AppointmentService.Create",
		trace.WithAttributes(attribute.String("doctor", cmd.DoctorName)))
	defer span.End()

	a := cmd.Appointment()
	if err := appointment.Validate(a, s.clock.Now()); err != nil {
		return nil, s.fail(span, "create", err)
	}

	err := s.withDoctorLock(ctx, a.DoctorName, func(ctx context.Context, repo appointment.Repository) error {
		if err := s.checkConflict(ctx, repo, a, nil); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		defer s.metrics.ObserveStoreOp("create", time.Now())
		return appointment.WrapStoreError("create", repo.Create(ctx, a))
	})
	if err != nil {
		return nil, s.fail(span, "create", err)
	}

	span.SetAttributes(attribute.Int64("appointment.id", a.ID))
	s.metrics.ObserveAppointment("create", metrics.OutcomeSuccess)
	s.eventSvc.Emit(events.New(events.TypeCreated, a.ID, a, s.clock.Now()))
	s.log.Info("appointment created",
		zap.Int64("appointment_id", a.ID),
		zap.String("doctor", a.DoctorName),
		zap.Time("start_time", a.StartTime),
		zap.Time("end_time", a.EndTime),
	)
	return a, nil
}

func (s *AppointmentService) Update(ctx context.Context, id int64, cmd *appointment.UpdateAppointmentCommand) (*appointment.Appointment, error) {
	ctx, span := s.tracer.Start(ctx, "AppointmentService.Update",
		trace.WithAttributes(
			attribute.Int64("appointment.id", id),
			attribute.String("doctor", cmd.DoctorName),
		))
	defer span.End()

	a := cmd.Appointment(id)
	if err := appointment.Validate(a, s.clock.Now()); err != nil {
		return nil, s.fail(span, "update", err)
	}

	// Only the target doctor is locked: moving an interval away from its
	// previous doctor can never introduce an overlap there.
	var updated *appointment.Appointment
	err := s.withDoctorLock(ctx, a.DoctorName, func(ctx context.Context, repo appointment.Repository) error {
		if err := s.checkConflict(ctx, repo, a, &id); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		defer s.metrics.ObserveStoreOp("replace", time.Now())
		var err error
		updated, err = repo.Replace(ctx, id, a)
		return appointment.WrapStoreError("replace", err)
	})
	if err != nil {
		return nil, s.fail(span, "update", err)
	}

	s.metrics.ObserveAppointment("update", metrics.OutcomeSuccess)
	s.eventSvc.Emit(events.New(events.TypeUpdated, updated.ID, updated, s.clock.Now()))
	s.log.Info("appointment updated",
		zap.Int64("appointment_id", updated.ID),
		zap.String("doctor", updated.DoctorName),
		zap.Time("start_time", updated.StartTime),
		zap.Time("end_time", updated.EndTime),
	)
	return updated, nil
}

func (s *AppointmentService) Delete(ctx context.Context, id int64) error {
	ctx, span := s.tracer.Start(ctx, "AppointmentService.Delete",
		trace.WithAttributes(attribute.Int64("appointment.id", id)))
	defer span.End()

	start := time.Now()
	deleted, err := s.repo.Delete(ctx, id)
	s.metrics.ObserveStoreOp("delete", start)
	if err != nil {
		return s.fail(span, "delete", appointment.WrapStoreError("delete", err))
	}
	if !deleted {
		return s.fail(span, "delete", appointment.ErrAppointmentNotFound)
	}

	s.metrics.ObserveAppointment("delete", metrics.OutcomeSuccess)
	s.eventSvc.Emit(events.New(events.TypeDeleted, id, nil, s.clock.Now()))
	s.log.Info("appointment deleted", zap.Int64("appointment_id", id))
	return nil
}

func (s *AppointmentService) Get(ctx context.Context, id int64) (*appointment.AppointmentView, error) {
	ctx, span := s.tracer.Start(ctx, "AppointmentService.Get",
		trace.WithAttributes(attribute.Int64("appointment.id", id)))
	defer span.End()

	start := time.Now()
	a, err := s.repo.GetByID(ctx, id)
	s.metrics.ObserveStoreOp("get", start)
	if err != nil {
		return nil, s.fail(span, "get", appointment.WrapStoreError("get", err))
	}

	s.metrics.ObserveAppointment("get", metrics.OutcomeSuccess)
	return appointment.View(a, s.clock.Now()), nil
}

// List returns every appointment ordered by start time, each classified
// against a single clock reading.
func (s *AppointmentService) List(ctx context.Context) ([]*appointment.AppointmentView, error) {
	ctx, span := s.tracer.Start(ctx, "AppointmentService.List")
	defer span.End()

	start := time.Now()
	items, err := s.repo.List(ctx)
	s.metrics.ObserveStoreOp("list", start)
	if err != nil {
		return nil, s.fail(span, "list", appointment.WrapStoreError("list", err))
	}

	now := s.clock.Now()
	views := make([]*appointment.AppointmentView, 0, len(items))
	for _, a := range items {
		views = append(views, appointment.View(a, now))
	}

	span.SetAttributes(attribute.Int("appointments.count", len(views)))
	s.metrics.ObserveAppointment("list", metrics.OutcomeSuccess)
	return views, nil
}

func (s *AppointmentService) Summary(ctx context.Context) (*appointment.Summary, error) {
	views, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return appointment.Summarize(views), nil
}

// withDoctorLock runs fn while holding the in-process lock for doctorName
// and, when the store supports it, inside a backend transaction holding
// the same doctor's lock.
func (s *AppointmentService) withDoctorLock(
	ctx context.Context,
	doctorName string,
	fn func(ctx context.Context, repo appointment.Repository) error,
) error {
	waitStart := time.Now()
	release, err := s.locks.acquire(ctx, doctorName)
	if err != nil {
		return err
	}
	defer release()
	s.metrics.ObserveLockWait(time.Since(waitStart))

	if tx, ok := s.repo.(appointment.Transactor); ok {
		return tx.WithinDoctorLock(ctx, doctorName, fn)
	}
	return fn(ctx, s.repo)
}

func (s *AppointmentService) checkConflict(ctx context.Context, repo appointment.Repository, a *appointment.Appointment, excludeID *int64) error {
	defer s.metrics.ObserveStoreOp("find_overlap", time.Now())

	c, err := appointment.LookupConflict(ctx, repo, a.DoctorName, a.StartTime, a.EndTime, excludeID)
	if err != nil {
		return appointment.WrapStoreError("find overlap", err)
	}
	if c == nil {
		return nil
	}

	s.log.Info("appointment conflict detected",
		zap.String("doctor", a.DoctorName),
		zap.Int64("conflicting_id", c.ID),
		zap.Time("start_time", a.StartTime),
		zap.Time("end_time", a.EndTime),
	)
	return &appointment.ConflictError{DoctorName: a.DoctorName, ConflictingID: c.ID}
}

// fail records the outcome of a failed operation and returns err unchanged.
func (s *AppointmentService) fail(span trace.Span, operation string, err error) error {
	outcome := outcomeOf(err)
	s.metrics.ObserveAppointment(operation, outcome)

	switch outcome {
	case metrics.OutcomeError:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.log.Error(fmt.Sprintf("%s appointment failed", operation), zap.Error(err))
	case metrics.OutcomeCancelled:
		s.log.Warn(fmt.Sprintf("%s appointment cancelled", operation), zap.Error(err))
	default:
		span.SetAttributes(attribute.String("outcome", outcome))
		s.log.Debug(fmt.Sprintf("%s appointment rejected", operation),
			zap.String("outcome", outcome),
			zap.Error(err),
		)
	}
	return err
}

func outcomeOf(err error) string {
	var ve *appointment.ValidationError
	switch {
	case errors.As(err, &ve):
		return metrics.OutcomeInvalid
	case errors.Is(err, appointment.ErrAppointmentConflict):
		return metrics.OutcomeConflict
	case errors.Is(err, appointment.ErrAppointmentNotFound):
		return metrics.OutcomeNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return metrics.OutcomeCancelled
	default:
		return metrics.OutcomeError
	}
}
