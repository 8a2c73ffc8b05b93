package telemetry

import "context"

// NoOpRecorder is used when metrics export is disabled.
type NoOpRecorder struct{}

func NewNoOpRecorder() *NoOpRecorder {
	return &NoOpRecorder{}
}

func (r *NoOpRecorder) TimerStarted(ctx context.Context) {}

func (r *NoOpRecorder) EntryCompleted(ctx context.Context, source string, hours float64, billable bool) {
}

func (r *NoOpRecorder) EntryDeleted(ctx context.Context, running bool) {}

func (r *NoOpRecorder) Close(ctx context.Context) error {
	return nil
}
