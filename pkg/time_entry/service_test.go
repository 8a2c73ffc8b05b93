package time_entry

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tallyhq/tally/internal/apperr"
	"github.com/tallyhq/tally/internal/config"
	"github.com/tallyhq/tally/internal/event_bus"
	"github.com/tallyhq/tally/internal/utils"
	"github.com/tallyhq/tally/pkg/client"
	"github.com/tallyhq/tally/pkg/project"
	"github.com/tallyhq/tally/pkg/user"
)

var location, _ = time.LoadLocation("Europe/Warsaw")

type eventRecorder struct {
	mu     sync.Mutex
	events []event_bus.EventType
}

func (r *eventRecorder) record(e event_bus.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e.Type)
	return nil
}

func (r *eventRecorder) recorded() []event_bus.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]event_bus.EventType(nil), r.events...)
}

type serviceTest struct {
	service  *ServiceImpl
	clock    *utils.MockClock
	events   *eventRecorder
	project  project.Project
	projects *project.ServiceImpl
}

func setupServiceTest(t *testing.T, policy config.OnActivePolicy) (serviceTest, context.Context) {
	ctx := user.WithUser(context.Background(), user.User{Id: 1, Username: "test-user-1"})

	clientService := client.NewService(client.NewStubRepository())
	acme, err := clientService.CreateClient(ctx, client.Client{Name: "Acme"})
	require.NoError(t, err)
	projectService := project.NewService(project.NewStubRepository(), clientService)
	website, err := projectService.CreateProject(ctx, project.Project{ClientId: acme.Id, Name: "Website", HourlyRate: 50})
	require.NoError(t, err)

	bus := event_bus.NewEventBus()
	recorder := &eventRecorder{}
	for _, eventType := range []event_bus.EventType{event_bus.TimerStarted, event_bus.TimerStopped, event_bus.EntryLogged, event_bus.EntryDeleted} {
		bus.Subscribe(eventType, recorder.record)
	}

	clock := utils.NewMockClock(time.Date(2025, time.March, 10, 14, 0, 0, 0, location))
	service := NewService(NewStubRepository(), projectService, bus, policy)
	service.clock = clock

	return serviceTest{
		service:  service,
		clock:    clock,
		events:   recorder,
		project:  website,
		projects: projectService,
	}, ctx
}

// stopOnReadRepository completes the running timer right after handing it out,
// like a stop request landing between the read and the write of an edit.
type stopOnReadRepository struct {
	Repository
	clock *utils.MockClock
	armed bool
}

func (r *stopOnReadRepository) StartTimer(ctx context.Context, userId int, entry TimeEntry, stopAt *time.Time) (TimeEntry, TimeEntry, error) {
	r.armed = true
	return r.Repository.StartTimer(ctx, userId, entry, stopAt)
}

func (r *stopOnReadRepository) GetEntry(ctx context.Context, userId int, id int) (TimeEntry, error) {
	e, err := r.Repository.GetEntry(ctx, userId, id)
	if err == nil && r.armed && e.IsRunning() {
		r.armed = false
		_, err = r.Repository.StopActiveEntry(ctx, userId, r.clock.Now())
	}
	return e, err
}

func TestStartTimer(t *testing.T) {
	t.Run("No active timer, starts a running entry", func(t *testing.T) {
		st, ctx := setupServiceTest(t, config.StopPrevious)

		started, err := st.service.StartTimer(ctx, st.project.Id, "")
		require.NoError(t, err)

		assert.NotZero(t, started.Id)
		assert.True(t, started.IsRunning())
		assert.True(t, started.Billable)
		assert.Equal(t, DefaultDescription, started.Description)
		assert.Equal(t, st.clock.Now(), started.StartTime)

		active, err := st.service.FindActiveTimer(ctx)
		require.NoError(t, err)
		assert.Equal(t, started, active)
		assert.Equal(t, []event_bus.EventType{event_bus.TimerStarted}, st.events.recorded())
	})

	t.Run("Empty project id is a validation error", func(t *testing.T) {
		st, ctx := setupServiceTest(t, config.StopPrevious)

		_, err := st.service.StartTimer(ctx, 0, "Work")
		assert.True(t, apperr.IsValidation(err), "expected validation error, got %v", err)
		assert.Empty(t, st.events.recorded())
	})

	t.Run("Unknown project is not found", func(t *testing.T) {
		st, ctx := setupServiceTest(t, config.StopPrevious)

		_, err := st.service.StartTimer(ctx, 999, "Work")
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("Project of another user is not found", func(t *testing.T) {
		st, _ := setupServiceTest(t, config.StopPrevious)
		otherCtx := user.WithUser(context.Background(), user.User{Id: 2, Username: "test-user-2"})

		_, err := st.service.StartTimer(otherCtx, st.project.Id, "Work")
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("Stop policy completes the previous timer", func(t *testing.T) {
		st, ctx := setupServiceTest(t, config.StopPrevious)

		first, err := st.service.StartTimer(ctx, st.project.Id, "First")
		require.NoError(t, err)
		st.clock.Advance(30 * time.Minute)
		second, err := st.service.StartTimer(ctx, st.project.Id, "Second")
		require.NoError(t, err)

		stopped, err := st.service.GetEntry(ctx, first.Id)
		require.NoError(t, err)
		require.False(t, stopped.IsRunning())
		assert.Equal(t, st.clock.Now(), *stopped.EndTime)
		hours, _ := stopped.Hours()
		assert.Equal(t, 0.5, hours)

		active, err := st.service.FindActiveTimer(ctx)
		require.NoError(t, err)
		assert.Equal(t, second.Id, active.Id)
		assert.Equal(t, []event_bus.EventType{
			event_bus.TimerStarted,
			event_bus.TimerStopped,
			event_bus.TimerStarted,
		}, st.events.recorded())
	})

	t.Run("Reject policy refuses a second timer", func(t *testing.T) {
		st, ctx := setupServiceTest(t, config.RejectStart)

		first, err := st.service.StartTimer(ctx, st.project.Id, "First")
		require.NoError(t, err)
		_, err = st.service.StartTimer(ctx, st.project.Id, "Second")
		assert.ErrorIs(t, err, apperr.ErrConflict)

		active, err := st.service.FindActiveTimer(ctx)
		require.NoError(t, err)
		assert.Equal(t, first.Id, active.Id)
	})
}

func TestStartTimer_Concurrent(t *testing.T) {
	const starts = 20

	t.Run("Stop policy leaves exactly one active timer", func(t *testing.T) {
		st, ctx := setupServiceTest(t, config.StopPrevious)

		var wg sync.WaitGroup
		for i := 0; i < starts; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := st.service.StartTimer(ctx, st.project.Id, "Race")
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		entries, err := st.service.ListEntries(ctx)
		require.NoError(t, err)
		assert.Len(t, entries, starts)
		running := 0
		for _, e := range entries {
			if e.IsRunning() {
				running++
			}
		}
		assert.Equal(t, 1, running)
	})

	t.Run("Reject policy lets exactly one start succeed", func(t *testing.T) {
		st, ctx := setupServiceTest(t, config.RejectStart)

		var wg sync.WaitGroup
		var mu sync.Mutex
		succeeded, conflicts := 0, 0
		for i := 0; i < starts; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := st.service.StartTimer(ctx, st.project.Id, "Race")
				mu.Lock()
				defer mu.Unlock()
				if err == nil {
					succeeded++
				} else if assert.ErrorIs(t, err, apperr.ErrConflict) {
					conflicts++
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, succeeded)
		assert.Equal(t, starts-1, conflicts)
	})
}

func TestStopActiveTimer(t *testing.T) {
	t.Run("Start then immediate stop yields zero duration", func(t *testing.T) {
		st, ctx := setupServiceTest(t, config.StopPrevious)

		_, err := st.service.StartTimer(ctx, st.project.Id, "Quick")
		require.NoError(t, err)
		stopped, err := st.service.StopActiveTimer(ctx)
		require.NoError(t, err)

		hours, ok := stopped.Hours()
		assert.True(t, ok)
		assert.Zero(t, hours)
		assert.Equal(t, []event_bus.EventType{event_bus.TimerStarted, event_bus.TimerStopped}, st.events.recorded())
	})

	t.Run("Start then immediate stop on the system clock is approximately zero", func(t *testing.T) {
		st, ctx := setupServiceTest(t, config.StopPrevious)
		st.service.clock = utils.SystemClock{}

		_, err := st.service.StartTimer(ctx, st.project.Id, "Quick")
		require.NoError(t, err)
		stopped, err := st.service.StopActiveTimer(ctx)
		require.NoError(t, err)

		hours, ok := stopped.Hours()
		assert.True(t, ok)
		assert.InDelta(t, 0, hours, 1.0/3600)
	})

	t.Run("No active timer is a no-op", func(t *testing.T) {
		st, ctx := setupServiceTest(t, config.StopPrevious)

		stopped, err := st.service.StopActiveTimer(ctx)
		require.NoError(t, err)
		assert.Zero(t, stopped.Id)
		assert.Empty(t, st.events.recorded())
	})

	t.Run("Stopping twice leaves the first stop in place", func(t *testing.T) {
		st, ctx := setupServiceTest(t, config.StopPrevious)

		_, err := st.service.StartTimer(ctx, st.project.Id, "Work")
		require.NoError(t, err)
		st.clock.Advance(2 * time.Hour)
		first, err := st.service.StopActiveTimer(ctx)
		require.NoError(t, err)
		st.clock.Advance(time.Hour)
		second, err := st.service.StopActiveTimer(ctx)
		require.NoError(t, err)

		assert.Zero(t, second.Id)
		stored, err := st.service.GetEntry(ctx, first.Id)
		require.NoError(t, err)
		hours, _ := stored.Hours()
		assert.Equal(t, 2.0, hours)
	})
}

func TestLogManualEntry(t *testing.T) {
	t.Run("Creates a completed entry ending now", func(t *testing.T) {
		st, ctx := setupServiceTest(t, config.StopPrevious)

		logged, err := st.service.LogManualEntry(ctx, st.project.Id, "Design review", 1.5)
		require.NoError(t, err)

		require.NotNil(t, logged.EndTime)
		assert.Equal(t, st.clock.Now(), *logged.EndTime)
		assert.Equal(t, st.clock.Now().Add(-90*time.Minute), logged.StartTime)
		assert.True(t, logged.Billable)
		hours, _ := logged.Hours()
		assert.Equal(t, 1.5, hours)
		assert.Equal(t, []event_bus.EventType{event_bus.EntryLogged}, st.events.recorded())
	})

	t.Run("Does not touch the active timer", func(t *testing.T) {
		st, ctx := setupServiceTest(t, config.StopPrevious)

		running, err := st.service.StartTimer(ctx, st.project.Id, "Running")
		require.NoError(t, err)
		_, err = st.service.LogManualEntry(ctx, st.project.Id, "Manual", 2)
		require.NoError(t, err)

		active, err := st.service.FindActiveTimer(ctx)
		require.NoError(t, err)
		assert.Equal(t, running, active)
	})

	invalid := map[string]float64{
		"zero":              0,
		"negative":          -1,
		"nan":               math.NaN(),
		"positive infinity": math.Inf(1),
		"negative infinity": math.Inf(-1),
		"overflowing":       math.MaxFloat64,
	}
	for name, hours := range invalid {
		t.Run("Rejects "+name+" duration", func(t *testing.T) {
			st, ctx := setupServiceTest(t, config.StopPrevious)

			_, err := st.service.LogManualEntry(ctx, st.project.Id, "Manual", hours)
			assert.True(t, apperr.IsValidation(err), "expected validation error, got %v", err)
		})
	}

	t.Run("Rejects empty project", func(t *testing.T) {
		st, ctx := setupServiceTest(t, config.StopPrevious)

		_, err := st.service.LogManualEntry(ctx, 0, "Manual", 1)
		assert.True(t, apperr.IsValidation(err), "expected validation error, got %v", err)
	})
}

func TestCreateEntry(t *testing.T) {
	t.Run("Stores a completed entry with defaults", func(t *testing.T) {
		st, ctx := setupServiceTest(t, config.StopPrevious)
		end := st.clock.Now().Add(-time.Hour)

		created, err := st.service.CreateEntry(ctx, TimeEntry{
			ProjectId: st.project.Id,
			StartTime: end.Add(-3 * time.Hour),
			EndTime:   &end,
			Billable:  false,
		})
		require.NoError(t, err)
		assert.Equal(t, DefaultDescription, created.Description)
		assert.False(t, created.Billable)
		assert.Equal(t, []event_bus.EventType{event_bus.EntryLogged}, st.events.recorded())
	})

	t.Run("Without end time follows the timer policy", func(t *testing.T) {
		st, ctx := setupServiceTest(t, config.RejectStart)

		_, err := st.service.CreateEntry(ctx, TimeEntry{ProjectId: st.project.Id, StartTime: st.clock.Now().Add(-time.Minute)})
		require.NoError(t, err)
		_, err = st.service.CreateEntry(ctx, TimeEntry{ProjectId: st.project.Id, StartTime: st.clock.Now()})
		assert.ErrorIs(t, err, apperr.ErrConflict)
	})

	t.Run("Running entry cannot start in the future", func(t *testing.T) {
		st, ctx := setupServiceTest(t, config.StopPrevious)

		_, err := st.service.CreateEntry(ctx, TimeEntry{ProjectId: st.project.Id, StartTime: st.clock.Now().Add(time.Hour)})
		assert.True(t, apperr.IsValidation(err), "expected validation error, got %v", err)
	})

	t.Run("Inverted range is rejected", func(t *testing.T) {
		st, ctx := setupServiceTest(t, config.StopPrevious)
		end := st.clock.Now().Add(-2 * time.Hour)

		_, err := st.service.CreateEntry(ctx, TimeEntry{ProjectId: st.project.Id, StartTime: st.clock.Now(), EndTime: &end})
		assert.True(t, apperr.IsValidation(err), "expected validation error, got %v", err)
	})
}

func TestUpdateEntry(t *testing.T) {
	t.Run("Completed entry cannot be reopened", func(t *testing.T) {
		st, ctx := setupServiceTest(t, config.StopPrevious)
		logged, err := st.service.LogManualEntry(ctx, st.project.Id, "Manual", 1)
		require.NoError(t, err)

		logged.EndTime = nil
		_, err = st.service.UpdateEntry(ctx, logged)
		assert.True(t, apperr.IsValidation(err), "expected validation error, got %v", err)
	})

	t.Run("End before start is rejected", func(t *testing.T) {
		st, ctx := setupServiceTest(t, config.StopPrevious)
		logged, err := st.service.LogManualEntry(ctx, st.project.Id, "Manual", 1)
		require.NoError(t, err)

		end := logged.StartTime.Add(-time.Minute)
		logged.EndTime = &end
		_, err = st.service.UpdateEntry(ctx, logged)
		assert.True(t, apperr.IsValidation(err), "expected validation error, got %v", err)
	})

	t.Run("Setting the end time of the running entry stops it", func(t *testing.T) {
		st, ctx := setupServiceTest(t, config.StopPrevious)
		running, err := st.service.StartTimer(ctx, st.project.Id, "Work")
		require.NoError(t, err)

		end := running.StartTime.Add(45 * time.Minute)
		running.EndTime = &end
		running.Description = "Deep work"
		updated, err := st.service.UpdateEntry(ctx, running)
		require.NoError(t, err)

		assert.Equal(t, "Deep work", updated.Description)
		active, err := st.service.FindActiveTimer(ctx)
		require.NoError(t, err)
		assert.Zero(t, active.Id)
		assert.Equal(t, []event_bus.EventType{event_bus.TimerStarted, event_bus.TimerStopped}, st.events.recorded())
	})

	t.Run("Running entry cannot be moved into the future", func(t *testing.T) {
		st, ctx := setupServiceTest(t, config.StopPrevious)
		running, err := st.service.StartTimer(ctx, st.project.Id, "Work")
		require.NoError(t, err)

		running.StartTime = st.clock.Now().Add(time.Hour)
		_, err = st.service.UpdateEntry(ctx, running)
		assert.True(t, apperr.IsValidation(err), "expected validation error, got %v", err)

		active, err := st.service.FindActiveTimer(ctx)
		require.NoError(t, err)
		assert.Equal(t, st.clock.Now(), active.StartTime)
	})

	t.Run("Timer stopped while being edited stays completed", func(t *testing.T) {
		st, ctx := setupServiceTest(t, config.StopPrevious)
		repo := &stopOnReadRepository{Repository: NewStubRepository(), clock: st.clock}
		service := NewService(repo, st.projects, event_bus.NewEventBus(), config.StopPrevious)
		service.clock = st.clock

		running, err := service.StartTimer(ctx, st.project.Id, "Work")
		require.NoError(t, err)
		st.clock.Advance(time.Hour)

		running.Description = "Renamed"
		_, err = service.UpdateEntry(ctx, running)
		assert.True(t, apperr.IsValidation(err), "expected validation error, got %v", err)

		stored, err := service.GetEntry(ctx, running.Id)
		require.NoError(t, err)
		assert.False(t, stored.IsRunning())
	})

	t.Run("Unknown entry is not found", func(t *testing.T) {
		st, ctx := setupServiceTest(t, config.StopPrevious)
		end := st.clock.Now()

		_, err := st.service.UpdateEntry(ctx, TimeEntry{Id: 42, ProjectId: st.project.Id, StartTime: end.Add(-time.Hour), EndTime: &end})
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})
}

func TestDeleteEntry(t *testing.T) {
	st, ctx := setupServiceTest(t, config.StopPrevious)
	running, err := st.service.StartTimer(ctx, st.project.Id, "Work")
	require.NoError(t, err)

	require.NoError(t, st.service.DeleteEntry(ctx, running.Id))

	_, err = st.service.GetEntry(ctx, running.Id)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.ErrorIs(t, st.service.DeleteEntry(ctx, running.Id), apperr.ErrNotFound)
	assert.Equal(t, []event_bus.EventType{event_bus.TimerStarted, event_bus.EntryDeleted}, st.events.recorded())
}
