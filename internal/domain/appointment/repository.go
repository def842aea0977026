package appointment

import (
	"context"
	"time"
)

// Repository owns appointment records. It does not enforce the no-overlap
// invariant; callers serialize check-and-commit per doctor.
type Repository interface {
	// List returns every appointment ordered by StartTime, ties by ID.
	List(ctx context.Context) ([]*Appointment, error)

	// ListByDoctor returns one doctor's appointments in List order.
	ListByDoctor(ctx context.Context, doctorName string) ([]*Appointment, error)

	// GetByID returns ErrAppointmentNotFound if no appointment has id.
	GetByID(ctx context.Context, id int64) (*Appointment, error)

	// Create assigns a.ID, a.CreatedAt and a.UpdatedAt and persists a.
	Create(ctx context.Context, a *Appointment) error

	// Replace overwrites the mutable fields of appointment id.
	// Returns ErrAppointmentNotFound if no appointment has id.
	Replace(ctx context.Context, id int64, a *Appointment) (*Appointment, error)

	// Delete reports false if no appointment had id.
	Delete(ctx context.Context, id int64) (bool, error)

	Exists(ctx context.Context, id int64) (bool, error)
}

// OverlapFinder is implemented by stores that can answer a conflict query
// without listing the doctor's whole schedule.
type OverlapFinder interface {
	// FindOverlap returns the first appointment of doctorName overlapping
	// [start, end), ignoring excludeID when non-nil, or nil if there is none.
	FindOverlap(ctx context.Context, doctorName string, start, end time.Time, excludeID *int64) (*Appointment, error)
}

// Transactor is implemented by stores shared between processes. fn runs
// inside one backend transaction that holds a lock scoped to doctorName;
// the repository handed to fn is bound to that transaction.
type Transactor interface {
	WithinDoctorLock(ctx context.Context, doctorName string, fn func(ctx context.Context, repo Repository) error) error
}
