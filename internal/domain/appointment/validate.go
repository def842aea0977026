package appointment

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Validate checks a against the field rules and against now. It returns
// nil or a *ValidationError carrying every violated rule.
func Validate(a *Appointment, now time.Time) error {
	var vs []Violation

	vs = appendNameViolations(vs, a.PatientName, "patient name", MaxPatientNameLength,
		RulePatientNameRequired, RulePatientNameTooLong)
	vs = appendNameViolations(vs, a.DoctorName, "doctor name", MaxDoctorNameLength,
		RuleDoctorNameRequired, RuleDoctorNameTooLong)

	if !a.StartTime.Before(a.EndTime) {
		vs = append(vs, Violation{Rule: RuleStartBeforeEnd, Message: "start time must be before end time"})
	}
	if a.StartTime.Before(now) {
		vs = append(vs, Violation{Rule: RuleStartInPast, Message: "cannot book appointments in the past"})
	}

	if len(vs) > 0 {
		return &ValidationError{Violations: vs}
	}
	return nil
}

func appendNameViolations(vs []Violation, value, label string, max int, required, tooLong Rule) []Violation {
	if strings.TrimSpace(value) == "" {
		return append(vs, Violation{Rule: required, Message: label + " is required"})
	}
	if utf8.RuneCountInString(value) > max {
		return append(vs, Violation{Rule: tooLong, Message: fmt.Sprintf("%s cannot exceed %d characters", label, max)})
	}
	return vs
}
