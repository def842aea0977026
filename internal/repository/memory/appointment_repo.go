// Package memory keeps appointments in process memory. It is the default
// store for development and the reference store for tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dmehra2102/prod-golang-projects/apptsched/internal/domain/appointment"
	"go.uber.org/zap"
)

type AppointmentRepository struct {
	mu       sync.RWMutex
	byID     map[int64]*appointment.Appointment
	byDoctor map[string][]*appointment.Appointment // sorted by StartTime, then ID
	nextID   int64
	now      func() time.Time
	log      *zap.Logger
}

func NewAppointmentRepository(log *zap.Logger) *AppointmentRepository {
	return &AppointmentRepository{
		byID:     make(map[int64]*appointment.Appointment),
		byDoctor: make(map[string][]*appointment.Appointment),
		now:      func() time.Time { return time.Now().UTC() },
		log:      log,
	}
}

func less(a, b *appointment.Appointment) bool {
	if !a.StartTime.Equal(b.StartTime) {
		return a.StartTime.Before(b.StartTime)
	}
	return a.ID < b.ID
}

func cloneAll(items []*appointment.Appointment) []*appointment.Appointment {
	out := make([]*appointment.Appointment, 0, len(items))
	for _, a := range items {
		out = append(out, a.Clone())
	}
	return out
}

func (r *AppointmentRepository) List(ctx context.Context) ([]*appointment.Appointment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*appointment.Appointment, 0, len(r.byID))
	for _, a := range r.byID {
		out = append(out, a.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })

	r.log.Debug("listed appointments", zap.Int("count", len(out)))
	return out, nil
}

func (r *AppointmentRepository) ListByDoctor(ctx context.Context, doctorName string) ([]*appointment.Appointment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	return cloneAll(r.byDoctor[doctorName]), nil
}

func (r *AppointmentRepository) GetByID(ctx context.Context, id int64) (*appointment.Appointment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	a, ok := r.byID[id]
	r.mu.RUnlock()

	if !ok {
		return nil, appointment.ErrAppointmentNotFound
	}
	return a.Clone(), nil
}

func (r *AppointmentRepository) Exists(ctx context.Context, id int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	r.mu.RLock()
	_, ok := r.byID[id]
	r.mu.RUnlock()
	return ok, nil
}

func (r *AppointmentRepository) Create(ctx context.Context, a *appointment.Appointment) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	now := r.now()
	a.ID = r.nextID
	a.CreatedAt = now
	a.UpdatedAt = now

	stored := a.Clone()
	r.byID[stored.ID] = stored
	r.insertLocked(stored)

	r.log.Debug("appointment stored",
		zap.Int64("appointment_id", stored.ID),
		zap.String("doctor", stored.DoctorName),
	)
	return nil
}

func (r *AppointmentRepository) Replace(ctx context.Context, id int64, a *appointment.Appointment) (*appointment.Appointment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.byID[id]
	if !ok {
		r.log.Warn("appointment not found for replace", zap.Int64("appointment_id", id))
		return nil, appointment.ErrAppointmentNotFound
	}

	r.removeLocked(existing)

	// A fresh value keeps previously handed-out copies and readers of the old
	// record untouched.
	updated := &appointment.Appointment{
		ID:          id,
		PatientName: a.PatientName,
		DoctorName:  a.DoctorName,
		StartTime:   a.StartTime,
		EndTime:     a.EndTime,
		CreatedAt:   existing.CreatedAt,
		UpdatedAt:   r.now(),
	}
	r.byID[id] = updated
	r.insertLocked(updated)

	return updated.Clone(), nil
}

func (r *AppointmentRepository) Delete(ctx context.Context, id int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.byID[id]
	if !ok {
		r.log.Warn("appointment not found for deletion", zap.Int64("appointment_id", id))
		return false, nil
	}

	delete(r.byID, id)
	r.removeLocked(existing)
	return true, nil
}

// FindOverlap binary-searches the doctor's schedule for the first entry
// starting at or after end; only entries before it can overlap.
func (r *AppointmentRepository) FindOverlap(ctx context.Context, doctorName string, start, end time.Time, excludeID *int64) (*appointment.Appointment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	sched := r.byDoctor[doctorName]
	limit := sort.Search(len(sched), func(i int) bool {
		return !sched[i].StartTime.Before(end)
	})

	c := appointment.FindConflict(sched[:limit], doctorName, start, end, excludeID)
	return c.Clone(), nil
}

func (r *AppointmentRepository) insertLocked(a *appointment.Appointment) {
	sched := r.byDoctor[a.DoctorName]
	i := sort.Search(len(sched), func(i int) bool { return less(a, sched[i]) })
	sched = append(sched, nil)
	copy(sched[i+1:], sched[i:])
	sched[i] = a
	r.byDoctor[a.DoctorName] = sched
}

func (r *AppointmentRepository) removeLocked(a *appointment.Appointment) {
	sched := r.byDoctor[a.DoctorName]
	for i, s := range sched {
		if s.ID == a.ID {
			sched = append(sched[:i], sched[i+1:]...)
			break
		}
	}
	if len(sched) == 0 {
		delete(r.byDoctor, a.DoctorName)
		return
	}
	r.byDoctor[a.DoctorName] = sched
}

var (
	_ appointment.Repository    = (*AppointmentRepository)(nil)
	_ appointment.OverlapFinder = (*AppointmentRepository)(nil)
)
