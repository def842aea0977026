package appointment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(h, m int) time.Time {
	return time.Date(2030, time.March, 15, h, m, 0, 0, time.UTC)
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name           string
		s1, e1, s2, e2 time.Time
		want           bool
	}{
		{"touching after", at(10, 0), at(11, 0), at(11, 0), at(12, 0), false},
		{"touching before", at(11, 0), at(12, 0), at(10, 0), at(11, 0), false},
		{"disjoint", at(8, 0), at(9, 0), at(10, 0), at(11, 0), false},
		{"partial tail", at(10, 0), at(11, 0), at(10, 30), at(11, 30), true},
		{"partial head", at(10, 30), at(11, 30), at(10, 0), at(11, 0), true},
		{"identical", at(10, 0), at(11, 0), at(10, 0), at(11, 0), true},
		{"nested inside", at(10, 15), at(10, 45), at(10, 0), at(11, 0), true},
		{"containing", at(9, 0), at(12, 0), at(10, 0), at(11, 0), true},
		{"same start", at(10, 0), at(10, 30), at(10, 0), at(11, 0), true},
		{"same end", at(10, 30), at(11, 0), at(10, 0), at(11, 0), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Overlaps(tt.s1, tt.e1, tt.s2, tt.e2))
			assert.Equal(t, tt.want, Overlaps(tt.s2, tt.e2, tt.s1, tt.e1), "overlap must be symmetric")
		})
	}
}

// threeClauseOverlap is the boundary predicate historically used by the
// booking API: candidate start inside existing, candidate end inside
// existing, or candidate containing existing.
func threeClauseOverlap(start, end, exStart, exEnd time.Time) bool {
	startInside := !start.Before(exStart) && start.Before(exEnd)
	endInside := end.After(exStart) && !end.After(exEnd)
	contains := !start.After(exStart) && !end.Before(exEnd)
	return startInside || endInside || contains
}

func TestOverlaps_MatchesThreeClausePredicate(t *testing.T) {
	// Every pair of well-formed intervals on a small grid, covering touching,
	// nested and identical boundaries.
	const points = 7
	for s1 := 0; s1 < points; s1++ {
		for e1 := s1 + 1; e1 <= points; e1++ {
			for s2 := 0; s2 < points; s2++ {
				for e2 := s2 + 1; e2 <= points; e2++ {
					a1, b1 := at(10, s1*10), at(10, 0).Add(time.Duration(e1*10)*time.Minute)
					a2, b2 := at(10, s2*10), at(10, 0).Add(time.Duration(e2*10)*time.Minute)
					require.Equal(t,
						threeClauseOverlap(a1, b1, a2, b2),
						Overlaps(a1, b1, a2, b2),
						"[%d,%d) vs [%d,%d)", s1, e1, s2, e2)
				}
			}
		}
	}
}

func TestFindConflict(t *testing.T) {
	existing := []*Appointment{
		{ID: 1, DoctorName: "Dr. Smith", StartTime: at(10, 0), EndTime: at(11, 0)},
		{ID: 2, DoctorName: "Dr. Jones", StartTime: at(10, 0), EndTime: at(11, 0)},
		{ID: 3, DoctorName: "Dr. Smith", StartTime: at(13, 0), EndTime: at(14, 0)},
	}

	t.Run("overlap found", func(t *testing.T) {
		c := FindConflict(existing, "Dr. Smith", at(10, 30), at(11, 30), nil)
		require.NotNil(t, c)
		assert.Equal(t, int64(1), c.ID)
	})

	t.Run("back to back allowed", func(t *testing.T) {
		assert.Nil(t, FindConflict(existing, "Dr. Smith", at(11, 0), at(12, 0), nil))
	})

	t.Run("other doctors ignored", func(t *testing.T) {
		assert.Nil(t, FindConflict(existing, "Dr. Who", at(10, 0), at(11, 0), nil))
	})

	t.Run("doctor comparison is case sensitive", func(t *testing.T) {
		assert.Nil(t, FindConflict(existing, "dr. smith", at(10, 0), at(11, 0), nil))
	})

	t.Run("excluded id skipped", func(t *testing.T) {
		id := int64(1)
		assert.Nil(t, FindConflict(existing, "Dr. Smith", at(10, 15), at(10, 45), &id))
	})

	t.Run("exclusion does not hide others", func(t *testing.T) {
		id := int64(1)
		c := FindConflict(existing, "Dr. Smith", at(10, 0), at(13, 30), &id)
		require.NotNil(t, c)
		assert.Equal(t, int64(3), c.ID)
	})
}

type listOnlyRepo struct {
	Repository
	items []*Appointment
	err   error
}

func (r *listOnlyRepo) ListByDoctor(_ context.Context, doctor string) ([]*Appointment, error) {
	if r.err != nil {
		return nil, r.err
	}
	var out []*Appointment
	for _, a := range r.items {
		if a.DoctorName == doctor {
			out = append(out, a)
		}
	}
	return out, nil
}

type finderRepo struct {
	listOnlyRepo
	called bool
}

func (r *finderRepo) FindOverlap(_ context.Context, doctor string, start, end time.Time, excludeID *int64) (*Appointment, error) {
	r.called = true
	return FindConflict(r.items, doctor, start, end, excludeID), nil
}

func TestHasConflict_FallsBackToListing(t *testing.T) {
	repo := &listOnlyRepo{items: []*Appointment{
		{ID: 7, DoctorName: "Dr. Smith", StartTime: at(10, 0), EndTime: at(11, 0)},
	}}

	ok, err := HasConflict(context.Background(), repo, "Dr. Smith", at(10, 59), at(11, 30), nil)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = HasConflict(context.Background(), repo, "Dr. Smith", at(11, 0), at(11, 30), nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHasConflict_PrefersOverlapFinder(t *testing.T) {
	repo := &finderRepo{listOnlyRepo: listOnlyRepo{items: []*Appointment{
		{ID: 7, DoctorName: "Dr. Smith", StartTime: at(10, 0), EndTime: at(11, 0)},
	}}}

	ok, err := HasConflict(context.Background(), repo, "Dr. Smith", at(9, 0), at(12, 0), nil)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, repo.called)
}

func TestHasConflict_PropagatesStoreFailure(t *testing.T) {
	boom := errors.New("disk on fire")
	_, err := HasConflict(context.Background(), &listOnlyRepo{err: boom}, "Dr. Smith", at(9, 0), at(10, 0), nil)
	assert.ErrorIs(t, err, boom)
}

func TestConflictError(t *testing.T) {
	err := error(&ConflictError{DoctorName: "Dr. Smith"})
	assert.ErrorIs(t, err, ErrAppointmentConflict)
	assert.Equal(t, "doctor Dr. Smith already has an overlapping appointment during this time", err.Error())
}

func TestWrapStoreError(t *testing.T) {
	boom := errors.New("connection reset")

	wrapped := WrapStoreError("create", boom)
	var se *StoreError
	require.ErrorAs(t, wrapped, &se)
	assert.Equal(t, "create", se.Op)
	assert.Same(t, boom, errors.Unwrap(wrapped))

	assert.Same(t, ErrAppointmentNotFound, WrapStoreError("get", ErrAppointmentNotFound))
	assert.Nil(t, WrapStoreError("get", nil))

	ce := &ConflictError{DoctorName: "Dr. Smith"}
	assert.Same(t, ce, WrapStoreError("create", ce))

	assert.ErrorIs(t, WrapStoreError("list", context.Canceled), context.Canceled)
	assert.NotErrorAs(t, WrapStoreError("list", context.DeadlineExceeded), &se)
}
