// Package postgres stores appointments in PostgreSQL through gorm.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/dmehra2102/prod-golang-projects/apptsched/internal/domain/appointment"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const exclusionViolation = "23P01"

type AppointmentRepository struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewAppointmentRepository(db *gorm.DB, log *zap.Logger) *AppointmentRepository {
	return &AppointmentRepository{db: db, log: log}
}

func (r *AppointmentRepository) List(ctx context.Context) ([]*appointment.Appointment, error) {
	var items []*appointment.Appointment
	if err := r.db.WithContext(ctx).
		Order("start_time ASC, id ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return normalizeAll(items), nil
}

func (r *AppointmentRepository) ListByDoctor(ctx context.Context, doctorName string) ([]*appointment.Appointment, error) {
	var items []*appointment.Appointment
	if err := r.db.WithContext(ctx).
		Where("doctor_name = ?", doctorName).
		Order("start_time ASC, id ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return normalizeAll(items), nil
}

func (r *AppointmentRepository) GetByID(ctx context.Context, id int64) (*appointment.Appointment, error) {
	var a appointment.Appointment
	err := r.db.WithContext(ctx).First(&a, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, appointment.ErrAppointmentNotFound
	}
	if err != nil {
		return nil, err
	}
	return normalize(&a), nil
}

func (r *AppointmentRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var n int64
	if err := r.db.WithContext(ctx).
		Model(&appointment.Appointment{}).
		Where("id = ?", id).
		Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *AppointmentRepository) Create(ctx context.Context, a *appointment.Appointment) error {
	a.ID = 0
	if err := r.db.WithContext(ctx).Create(a).Error; err != nil {
		return translateError(err, a.DoctorName)
	}
	normalize(a)

	r.log.Debug("appointment stored",
		zap.Int64("appointment_id", a.ID),
		zap.String("doctor", a.DoctorName),
	)
	return nil
}

func (r *AppointmentRepository) Replace(ctx context.Context, id int64, a *appointment.Appointment) (*appointment.Appointment, error) {
	var updated appointment.Appointment
	res := r.db.WithContext(ctx).
		Model(&updated).
		Clauses(clause.Returning{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"patient_name": a.PatientName,
			"doctor_name":  a.DoctorName,
			"start_time":   a.StartTime,
			"end_time":     a.EndTime,
			"updated_at":   time.Now().UTC(),
		})
	if res.Error != nil {
		return nil, translateError(res.Error, a.DoctorName)
	}
	if res.RowsAffected == 0 {
		r.log.Warn("appointment not found for replace", zap.Int64("appointment_id", id))
		return nil, appointment.ErrAppointmentNotFound
	}
	return normalize(&updated), nil
}

func (r *AppointmentRepository) Delete(ctx context.Context, id int64) (bool, error) {
	res := r.db.WithContext(ctx).Delete(&appointment.Appointment{}, id)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		r.log.Warn("appointment not found for deletion", zap.Int64("appointment_id", id))
		return false, nil
	}
	return true, nil
}

func (r *AppointmentRepository) FindOverlap(ctx context.Context, doctorName string, start, end time.Time, excludeID *int64) (*appointment.Appointment, error) {
	q := r.db.WithContext(ctx).
		Where("doctor_name = ? AND start_time < ? AND ? < end_time", doctorName, end, start)
	if excludeID != nil {
		q = q.Where("id <> ?", *excludeID)
	}

	var items []*appointment.Appointment
	if err := q.Order("start_time ASC, id ASC").Limit(1).Find(&items).Error; err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return normalize(items[0]), nil
}

// WithinDoctorLock runs fn in one transaction holding a transaction-scoped
// advisory lock keyed by the doctor's name, so check and commit are atomic
// across every process sharing the database.
func (r *AppointmentRepository) WithinDoctorLock(
	ctx context.Context,
	doctorName string,
	fn func(ctx context.Context, repo appointment.Repository) error,
) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", doctorName).Error; err != nil {
			return err
		}
		return fn(ctx, &AppointmentRepository{db: tx, log: r.log})
	})
}

func translateError(err error, doctorName string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == exclusionViolation {
		return &appointment.ConflictError{DoctorName: doctorName}
	}
	return err
}

// normalize reports timestamps in UTC regardless of the session time zone.
func normalize(a *appointment.Appointment) *appointment.Appointment {
	a.StartTime = a.StartTime.UTC()
	a.EndTime = a.EndTime.UTC()
	a.CreatedAt = a.CreatedAt.UTC()
	a.UpdatedAt = a.UpdatedAt.UTC()
	return a
}

func normalizeAll(items []*appointment.Appointment) []*appointment.Appointment {
	for _, a := range items {
		normalize(a)
	}
	if items == nil {
		items = []*appointment.Appointment{}
	}
	return items
}

var (
	_ appointment.Repository    = (*AppointmentRepository)(nil)
	_ appointment.OverlapFinder = (*AppointmentRepository)(nil)
	_ appointment.Transactor    = (*AppointmentRepository)(nil)
)
