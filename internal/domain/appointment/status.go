package appointment

import "time"

// Status is derived on every read and never persisted.
type Status string

const (
	StatusToday    Status = "today"
	StatusUpcoming Status = "upcoming"
	StatusPast     Status = "past"
)

// Classify derives the status of an appointment starting at start.
// Calendar dates are compared in now's location, so an appointment that
// started earlier today is still StatusToday.
func Classify(start, now time.Time) Status {
	if sameDate(start.In(now.Location()), now) {
		return StatusToday
	}
	if start.Before(now) {
		return StatusPast
	}
	return StatusUpcoming
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// View pairs a with its status at now.
func View(a *Appointment, now time.Time) *AppointmentView {
	return &AppointmentView{Appointment: a, Status: Classify(a.StartTime, now)}
}

// Summary holds the dashboard counters of a schedule.
type Summary struct {
	Total    int `json:"total"`
	Today    int `json:"today"`
	Upcoming int `json:"upcoming"`
	Past     int `json:"past"`
}

func Summarize(views []*AppointmentView) *Summary {
	s := &Summary{Total: len(views)}
	for _, v := range views {
		switch v.Status {
		case StatusToday:
			s.Today++
		case StatusUpcoming:
			s.Upcoming++
		case StatusPast:
			s.Past++
		}
	}
	return s
}
