package appointment

import (
	"context"
	"time"
)

// Overlaps reports whether [s1, e1) and [s2, e2) share an instant.
// Intervals that only touch (e1 == s2) do not overlap.
func Overlaps(s1, e1, s2, e2 time.Time) bool {
	return s1.Before(e2) && s2.Before(e1)
}

// FindConflict scans existing for an appointment of doctorName overlapping
// [start, end), skipping excludeID when non-nil.
func FindConflict(existing []*Appointment, doctorName string, start, end time.Time, excludeID *int64) *Appointment {
	for _, a := range existing {
		if a.DoctorName != doctorName {
			continue
		}
		if excludeID != nil && a.ID == *excludeID {
			continue
		}
		if Overlaps(start, end, a.StartTime, a.EndTime) {
			return a
		}
	}
	return nil
}

// HasConflict reports whether repo holds an appointment of doctorName that
// overlaps [start, end), other than excludeID.
func HasConflict(ctx context.Context, repo Repository, doctorName string, start, end time.Time, excludeID *int64) (bool, error) {
	c, err := LookupConflict(ctx, repo, doctorName, start, end, excludeID)
	return c != nil, err
}

// LookupConflict is HasConflict returning the conflicting appointment.
func LookupConflict(ctx context.Context, repo Repository, doctorName string, start, end time.Time, excludeID *int64) (*Appointment, error) {
	if f, ok := repo.(OverlapFinder); ok {
		return f.FindOverlap(ctx, doctorName, start, end, excludeID)
	}

	existing, err := repo.ListByDoctor(ctx, doctorName)
	if err != nil {
		return nil, err
	}
	return FindConflict(existing, doctorName, start, end, excludeID), nil
}
