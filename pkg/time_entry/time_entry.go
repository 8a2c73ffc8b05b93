package time_entry

import (
	"time"

	"github.com/tallyhq/tally/internal/apperr"
)

const DefaultDescription = "No description"

const millisPerHour = 3_600_000

// TimeEntry is one tracked work session. A nil EndTime marks the user's active timer.
type TimeEntry struct {
	Id          int
	ProjectId   int
	StartTime   time.Time
	EndTime     *time.Time
	Description string
	Billable    bool
}

func (e TimeEntry) IsRunning() bool {
	return e.EndTime == nil
}

// Hours returns the wall-clock length of a completed entry. ok is false for running entries and
// for inverted ranges, which never count towards any total.
func (e TimeEntry) Hours() (hours float64, ok bool) {
	if e.EndTime == nil || e.EndTime.Before(e.StartTime) {
		return 0, false
	}
	return HoursBetween(e.StartTime, *e.EndTime), true
}

// HoursBetween converts the millisecond difference of two instants into fractional hours.
func HoursBetween(start, end time.Time) float64 {
	return float64(end.UnixMilli()-start.UnixMilli()) / millisPerHour
}

func (e TimeEntry) Validate() error {
	if e.ProjectId <= 0 {
		return apperr.Validation("projectId", "is required")
	}
	if e.StartTime.IsZero() {
		return apperr.Validation("startTime", "is required")
	}
	if e.EndTime != nil && e.EndTime.Before(e.StartTime) {
		return apperr.Validation("", "end time is before start time")
	}
	return nil
}
