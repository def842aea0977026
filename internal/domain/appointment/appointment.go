package appointment

import (
	"time"
)

const (
	MaxPatientNameLength = 100
	MaxDoctorNameLength  = 100
)

// Appointment is a booking of a doctor over the half-open interval [StartTime, EndTime).
type Appointment struct {
	ID          int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	PatientName string    `json:"patientName" gorm:"column:patient_name;type:varchar(100);not null"`
	DoctorName  string    `json:"doctorName" gorm:"column:doctor_name;type:varchar(100);not null;index:idx_appointments_doctor_start,priority:1"`
	StartTime   time.Time `json:"startTime" gorm:"column:start_time;type:timestamptz;not null;index:idx_appointments_doctor_start,priority:2"`
	EndTime     time.Time `json:"endTime" gorm:"column:end_time;type:timestamptz;not null"`
	CreatedAt   time.Time `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt   time.Time `json:"updatedAt" gorm:"autoUpdateTime"`
}

func (Appointment) TableName() string {
	return "scheduling.appointments"
}

func (a *Appointment) Duration() time.Duration {
	return a.EndTime.Sub(a.StartTime)
}

// Clone returns a copy that shares no state with a.
func (a *Appointment) Clone() *Appointment {
	if a == nil {
		return nil
	}
	c := *a
	return &c
}

// OverlapsWith reports whether a and other book the same doctor over overlapping windows.
func (a *Appointment) OverlapsWith(other *Appointment) bool {
	return a.DoctorName == other.DoctorName &&
		Overlaps(a.StartTime, a.EndTime, other.StartTime, other.EndTime)
}

// AppointmentView is the read-side projection: the stored appointment plus
// its status relative to the instant of the read.
type AppointmentView struct {
	*Appointment
	Status Status `json:"status"`
}

type CreateAppointmentCommand struct {
	PatientName string
	DoctorName  string
	StartTime   time.Time
	EndTime     time.Time
}

// UpdateAppointmentCommand replaces every mutable field of an appointment.
type UpdateAppointmentCommand struct {
	PatientName string
	DoctorName  string
	StartTime   time.Time
	EndTime     time.Time
}

func (c *CreateAppointmentCommand) Appointment() *Appointment {
	return &Appointment{
		PatientName: c.PatientName,
		DoctorName:  c.DoctorName,
		StartTime:   c.StartTime,
		EndTime:     c.EndTime,
	}
}

// Appointment builds the replacement for appointment id.
func (c *UpdateAppointmentCommand) Appointment(id int64) *Appointment {
	return &Appointment{
		ID:          id,
		PatientName: c.PatientName,
		DoctorName:  c.DoctorName,
		StartTime:   c.StartTime,
		EndTime:     c.EndTime,
	}
}

// Clock supplies the current instant. Its location is the reference
// timezone used for calendar-date comparisons.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in Location (UTC when nil).
type SystemClock struct {
	Location *time.Location
}

func (c SystemClock) Now() time.Time {
	if c.Location == nil {
		return time.Now().UTC()
	}
	return time.Now().In(c.Location)
}

// ClockFunc adapts a plain function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }
