// Package events describes appointment lifecycle events and the publishers
// that deliver them to downstream consumers such as reminder jobs.
package events

import (
	"context"
	"time"

	"github.com/dmehra2102/prod-golang-projects/apptsched/internal/domain/appointment"
	"github.com/google/uuid"
)

type Type string

const (
	TypeCreated Type = "appointment.created"
	TypeUpdated Type = "appointment.updated"
	TypeDeleted Type = "appointment.deleted"
)

type Event struct {
	ID            uuid.UUID                `json:"id"`
	Type          Type                     `json:"type"`
	AppointmentID int64                    `json:"appointmentId"`
	DoctorName    string                   `json:"doctorName,omitempty"`
	Appointment   *appointment.Appointment `json:"appointment,omitempty"`
	OccurredAt    time.Time                `json:"occurredAt"`
}

// New stamps a lifecycle event for a. a may be nil for deletions.
func New(t Type, id int64, a *appointment.Appointment, at time.Time) Event {
	ev := Event{
		ID:            uuid.New(),
		Type:          t,
		AppointmentID: id,
		Appointment:   a.Clone(),
		OccurredAt:    at,
	}
	if a != nil {
		ev.DoctorName = a.DoctorName
	}
	return ev
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// NopPublisher discards every event. Used when event delivery is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error                         { return nil }
