package event_bus

import "time"

const (
	TimerStarted EventType = "time_entry.timer.started"
	TimerStopped EventType = "time_entry.timer.stopped"
	EntryLogged  EventType = "time_entry.logged"
	EntryDeleted EventType = "time_entry.deleted"
)

type TimerStartedPayload struct {
	EntryId   int
	UserId    int
	ProjectId int
	StartTime time.Time
}

// TimeEntryCompleted is published for stopped timers and manually logged entries.
type TimeEntryCompleted struct {
	EntryId   int
	UserId    int
	ProjectId int
	StartTime time.Time
	EndTime   time.Time
	Billable  bool
}

type TimeEntryDeleted struct {
	EntryId int
	UserId  int
	Running bool
}
