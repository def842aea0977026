package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrAppointmentConflict = errors.New("appointment time slot is already booked")
)

type Rule string

const (
	RulePatientNameRequired Rule = "patient_name_required"
	RulePatientNameTooLong  Rule = "patient_name_too_long"
	RuleDoctorNameRequired  Rule = "doctor_name_required"
	RuleDoctorNameTooLong   Rule = "doctor_name_too_long"
	RuleStartBeforeEnd      Rule = "start_before_end"
	RuleStartInPast         Rule = "start_in_past"
)

type Violation struct {
	Rule    Rule   `json:"rule"`
	Message string `json:"message"`
}

// ValidationError lists every rule an appointment failed, in evaluation order.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		msgs = append(msgs, v.Message)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func (e *ValidationError) Rules() []Rule {
	rules := make([]Rule, 0, len(e.Violations))
	for _, v := range e.Violations {
		rules = append(rules, v.Rule)
	}
	return rules
}

func (e *ValidationError) Has(rule Rule) bool {
	for _, v := range e.Violations {
		if v.Rule == rule {
			return true
		}
	}
	return false
}

// ConflictError reports that the doctor already holds an overlapping appointment.
// ConflictingID is zero when the backend could not tell which one.
type ConflictError struct {
	DoctorName    string
	ConflictingID int64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("doctor %s already has an overlapping appointment during this time", e.DoctorName)
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrAppointmentConflict
}

// StoreError wraps a failure of the backing store. The cause is kept intact.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// WrapStoreError tags err as a store failure unless it already carries a
// domain meaning.
func WrapStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	var (
		se *StoreError
		ce *ConflictError
		ve *ValidationError
	)
	switch {
	case errors.As(err, &se), errors.As(err, &ce), errors.As(err, &ve),
		errors.Is(err, ErrAppointmentNotFound),
		errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	}
	return &StoreError{Op: op, Err: err}
}
