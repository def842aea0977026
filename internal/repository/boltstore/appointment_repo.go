// Package boltstore keeps appointments in a single embedded BoltDB file.
//
// Records live in the "appointments" bucket as JSON keyed by the big-endian
// id. Each doctor also gets a nested index bucket under "doctors" whose keys
// sort by start time, then id.
package boltstore

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	bolt "github.com/boltdb/bolt"

	"github.com/dmehra2102/prod-golang-projects/apptsched/internal/domain/appointment"
	"go.uber.org/zap"
)

var (
	appointmentsBucket = []byte("appointments")
	doctorsBucket      = []byte("doctors")
)

type AppointmentRepository struct {
	db  *bolt.DB
	now func() time.Time
	log *zap.Logger
}

// Open opens (or creates) the database file at path and ensures the buckets exist.
func Open(path string, log *zap.Logger) (*AppointmentRepository, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening bolt database %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{appointmentsBucket, doctorsBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &AppointmentRepository{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
		log: log,
	}, nil
}

// Close releases the database file lock.
func (r *AppointmentRepository) Close() error {
	return r.db.Close()
}

func idKey(id int64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, uint64(id))
	return k
}

// indexKey orders by start time, then id. Seconds come first with the sign
// bit flipped so instants before 1970 still sort first; UnixNano is not used
// because it overflows past 2262.
func indexKey(start time.Time, id int64) []byte {
	k := make([]byte, 20)
	binary.BigEndian.PutUint64(k[:8], uint64(start.Unix())^(1<<63))
	binary.BigEndian.PutUint32(k[8:12], uint32(start.Nanosecond()))
	binary.BigEndian.PutUint64(k[12:], uint64(id))
	return k
}

func decode(v []byte) (*appointment.Appointment, error) {
	var a appointment.Appointment
	if err := json.Unmarshal(v, &a); err != nil {
		return nil, fmt.Errorf("decoding appointment: %w", err)
	}
	return &a, nil
}

func (r *AppointmentRepository) List(ctx context.Context) ([]*appointment.Appointment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	items := []*appointment.Appointment{}
	err := r.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(appointmentsBucket).ForEach(func(_, v []byte) error {
			a, err := decode(v)
			if err != nil {
				return err
			}
			items = append(items, a)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(items, func(i, j int) bool {
		if !items[i].StartTime.Equal(items[j].StartTime) {
			return items[i].StartTime.Before(items[j].StartTime)
		}
		return items[i].ID < items[j].ID
	})
	return items, nil
}

func (r *AppointmentRepository) ListByDoctor(ctx context.Context, doctorName string) ([]*appointment.Appointment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	items := []*appointment.Appointment{}
	err := r.db.View(func(tx *bolt.Tx) error {
		idx := tx.Bucket(doctorsBucket).Bucket([]byte(doctorName))
		if idx == nil {
			return nil
		}
		records := tx.Bucket(appointmentsBucket)
		return idx.ForEach(func(_, id []byte) error {
			v := records.Get(id)
			if v == nil {
				return fmt.Errorf("index of %q references missing appointment %d", doctorName, binary.BigEndian.Uint64(id))
			}
			a, err := decode(v)
			if err != nil {
				return err
			}
			items = append(items, a)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *AppointmentRepository) GetByID(ctx context.Context, id int64) (*appointment.Appointment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var a *appointment.Appointment
	err := r.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(appointmentsBucket).Get(idKey(id))
		if v == nil {
			return appointment.ErrAppointmentNotFound
		}
		var err error
		a, err = decode(v)
		return err
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *AppointmentRepository) Exists(ctx context.Context, id int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	var ok bool
	err := r.db.View(func(tx *bolt.Tx) error {
		ok = tx.Bucket(appointmentsBucket).Get(idKey(id)) != nil
		return nil
	})
	return ok, err
}

func (r *AppointmentRepository) Create(ctx context.Context, a *appointment.Appointment) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	stored := a.Clone()
	err := r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(appointmentsBucket)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}

		now := r.now()
		stored.ID = int64(seq)
		stored.CreatedAt = now
		stored.UpdatedAt = now
		return put(tx, stored)
	})
	if err != nil {
		return err
	}

	a.ID = stored.ID
	a.CreatedAt = stored.CreatedAt
	a.UpdatedAt = stored.UpdatedAt

	r.log.Debug("appointment stored",
		zap.Int64("appointment_id", a.ID),
		zap.String("doctor", a.DoctorName),
	)
	return nil
}

func (r *AppointmentRepository) Replace(ctx context.Context, id int64, a *appointment.Appointment) (*appointment.Appointment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var updated *appointment.Appointment
	err := r.db.Update(func(tx *bolt.Tx) error {
		v := tx.Bucket(appointmentsBucket).Get(idKey(id))
		if v == nil {
			return appointment.ErrAppointmentNotFound
		}
		existing, err := decode(v)
		if err != nil {
			return err
		}
		if err := unindex(tx, existing); err != nil {
			return err
		}

		updated = &appointment.Appointment{
			ID:          id,
			PatientName: a.PatientName,
			DoctorName:  a.DoctorName,
			StartTime:   a.StartTime,
			EndTime:     a.EndTime,
			CreatedAt:   existing.CreatedAt,
			UpdatedAt:   r.now(),
		}
		return put(tx, updated)
	})
	if errors.Is(err, appointment.ErrAppointmentNotFound) {
		r.log.Warn("appointment not found for replace", zap.Int64("appointment_id", id))
	}
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *AppointmentRepository) Delete(ctx context.Context, id int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	deleted := false
	err := r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(appointmentsBucket)
		v := b.Get(idKey(id))
		if v == nil {
			return nil
		}
		existing, err := decode(v)
		if err != nil {
			return err
		}
		if err := unindex(tx, existing); err != nil {
			return err
		}
		deleted = true
		return b.Delete(idKey(id))
	})
	if err != nil {
		return false, err
	}
	if !deleted {
		r.log.Warn("appointment not found for deletion", zap.Int64("appointment_id", id))
	}
	return deleted, nil
}

// FindOverlap walks the doctor's index in start order and stops at the
// first entry starting at or after end.
func (r *AppointmentRepository) FindOverlap(ctx context.Context, doctorName string, start, end time.Time, excludeID *int64) (*appointment.Appointment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var found *appointment.Appointment
	err := r.db.View(func(tx *bolt.Tx) error {
		idx := tx.Bucket(doctorsBucket).Bucket([]byte(doctorName))
		if idx == nil {
			return nil
		}
		records := tx.Bucket(appointmentsBucket)
		limit := indexKey(end, 0)

		c := idx.Cursor()
		for k, id := c.First(); k != nil && bytes.Compare(k, limit) < 0; k, id = c.Next() {
			v := records.Get(id)
			if v == nil {
				continue
			}
			a, err := decode(v)
			if err != nil {
				return err
			}
			if excludeID != nil && a.ID == *excludeID {
				continue
			}
			if appointment.Overlaps(start, end, a.StartTime, a.EndTime) {
				found = a
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

func put(tx *bolt.Tx, a *appointment.Appointment) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encoding appointment: %w", err)
	}
	if err := tx.Bucket(appointmentsBucket).Put(idKey(a.ID), data); err != nil {
		return err
	}

	idx, err := tx.Bucket(doctorsBucket).CreateBucketIfNotExists([]byte(a.DoctorName))
	if err != nil {
		return err
	}
	return idx.Put(indexKey(a.StartTime, a.ID), idKey(a.ID))
}

func unindex(tx *bolt.Tx, a *appointment.Appointment) error {
	doctors := tx.Bucket(doctorsBucket)
	idx := doctors.Bucket([]byte(a.DoctorName))
	if idx == nil {
		return nil
	}
	if err := idx.Delete(indexKey(a.StartTime, a.ID)); err != nil {
		return err
	}
	if k, _ := idx.Cursor().First(); k == nil {
		return doctors.DeleteBucket([]byte(a.DoctorName))
	}
	return nil
}

var (
	_ appointment.Repository    = (*AppointmentRepository)(nil)
	_ appointment.OverlapFinder = (*AppointmentRepository)(nil)
)
