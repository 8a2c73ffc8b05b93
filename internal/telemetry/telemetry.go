package telemetry

import (
	"context"

	log "github.com/sirupsen/logrus"
	"github.com/tallyhq/tally/internal/config"
	"github.com/tallyhq/tally/internal/event_bus"
)

// Recorder receives time tracking activity.
type Recorder interface {
	TimerStarted(ctx context.Context)
	EntryCompleted(ctx context.Context, source string, hours float64, billable bool)
	EntryDeleted(ctx context.Context, running bool)
	Close(ctx context.Context) error
}

const (
	SourceTimer  = "timer"
	SourceManual = "manual"
)

// Subscribe feeds timer lifecycle events from the bus into the recorder.
func Subscribe(bus *event_bus.EventBus, recorder Recorder) (unsubscribe func()) {
	unsubscribers := []func(){
		event_bus.SubscribeTyped(bus, event_bus.TimerStarted, func(e event_bus.EventT[event_bus.TimerStartedPayload]) error {
			recorder.TimerStarted(e.Context())
			return nil
		}),
		event_bus.SubscribeTyped(bus, event_bus.TimerStopped, func(e event_bus.EventT[event_bus.TimeEntryCompleted]) error {
			recordCompleted(e.Context(), recorder, SourceTimer, e.Data)
			return nil
		}),
		event_bus.SubscribeTyped(bus, event_bus.EntryLogged, func(e event_bus.EventT[event_bus.TimeEntryCompleted]) error {
			recordCompleted(e.Context(), recorder, SourceManual, e.Data)
			return nil
		}),
		event_bus.SubscribeTyped(bus, event_bus.EntryDeleted, func(e event_bus.EventT[event_bus.TimeEntryDeleted]) error {
			recorder.EntryDeleted(e.Context(), e.Data.Running)
			return nil
		}),
	}
	log.Debug("Telemetry subscribed to time entry events")
	return func() {
		for _, u := range unsubscribers {
			u()
		}
	}
}

func recordCompleted(ctx context.Context, recorder Recorder, source string, entry event_bus.TimeEntryCompleted) {
	hours := float64(entry.EndTime.UnixMilli()-entry.StartTime.UnixMilli()) / 3_600_000
	if hours < 0 {
		return
	}
	recorder.EntryCompleted(ctx, source, hours, entry.Billable)
}

// NewRecorder returns an OTLP exporter when telemetry is enabled, falling back to a no-op
// recorder when it is disabled or cannot be set up.
func NewRecorder(ctx context.Context, cfg config.Telemetry) Recorder {
	if !cfg.Enabled {
		return NewNoOpRecorder()
	}
	exporter, err := NewExporter(ctx, cfg)
	if err != nil {
		log.Warnf("Metrics export disabled: %v", err)
		return NewNoOpRecorder()
	}
	log.Infof("Exporting metrics to %s", cfg.Endpoint)
	return exporter
}
