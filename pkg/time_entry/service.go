package time_entry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/tallyhq/tally/internal/apperr"
	"github.com/tallyhq/tally/internal/config"
	"github.com/tallyhq/tally/internal/event_bus"
	"github.com/tallyhq/tally/internal/utils"
	"github.com/tallyhq/tally/pkg/project"
	"github.com/tallyhq/tally/pkg/user"
)

// maxManualHours keeps the converted duration inside time.Duration.
const maxManualHours = float64(math.MaxInt64 / int64(time.Hour))

type Service interface {
	StartTimer(ctx context.Context, projectId int, description string) (TimeEntry, error)
	// StopActiveTimer returns a zero TimeEntry when no timer is running.
	StopActiveTimer(ctx context.Context) (TimeEntry, error)
	LogManualEntry(ctx context.Context, projectId int, description string, durationHours float64) (TimeEntry, error)
	// FindActiveTimer returns a zero TimeEntry when no timer is running.
	FindActiveTimer(ctx context.Context) (TimeEntry, error)
	ListEntries(ctx context.Context) ([]TimeEntry, error)
	GetEntry(ctx context.Context, id int) (TimeEntry, error)
	CreateEntry(ctx context.Context, entry TimeEntry) (TimeEntry, error)
	UpdateEntry(ctx context.Context, entry TimeEntry) (TimeEntry, error)
	DeleteEntry(ctx context.Context, id int) error
}

// ProjectProvider resolves projects of the current user.
type ProjectProvider interface {
	GetProject(ctx context.Context, id int) (project.Project, error)
}

type ServiceImpl struct {
	repo     Repository
	projects ProjectProvider
	eventBus *event_bus.EventBus
	policy   config.OnActivePolicy
	clock    utils.Clock
}

func NewService(repo Repository, projects ProjectProvider, eventBus *event_bus.EventBus, policy config.OnActivePolicy) *ServiceImpl {
	return &ServiceImpl{
		repo:     repo,
		projects: projects,
		eventBus: eventBus,
		policy:   policy,
		clock:    &utils.SystemClock{},
	}
}

func (s *ServiceImpl) StartTimer(ctx context.Context, projectId int, description string) (TimeEntry, error) {
	return s.startTimer(ctx, TimeEntry{
		ProjectId:   projectId,
		StartTime:   s.clock.Now(),
		Description: description,
		Billable:    true,
	})
}

func (s *ServiceImpl) startTimer(ctx context.Context, entry TimeEntry) (TimeEntry, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return TimeEntry{}, fmt.Errorf("failed to get current user: %w", err)
	}
	entry, err = s.prepare(ctx, entry)
	if err != nil {
		return TimeEntry{}, err
	}
	now := s.clock.Now()
	if entry.StartTime.After(now) {
		return TimeEntry{}, apperr.Validation("startTime", "cannot be in the future")
	}

	var stopAt *time.Time
	if s.policy != config.RejectStart {
		stopAt = &now
	}
	started, stopped, err := s.repo.StartTimer(ctx, userId, entry, stopAt)
	if errors.Is(err, ErrActiveTimerExists) {
		return TimeEntry{}, apperr.Conflict("another timer is already running")
	}
	if err != nil {
		return TimeEntry{}, err
	}

	if stopped.Id != 0 {
		log.Debugf("Stopped timer %d of user %d before starting a new one", stopped.Id, userId)
		s.publishCompleted(ctx, event_bus.TimerStopped, userId, stopped)
	}
	s.publish(ctx, event_bus.TimerStarted, event_bus.TimerStartedPayload{
		EntryId:   started.Id,
		UserId:    userId,
		ProjectId: started.ProjectId,
		StartTime: started.StartTime,
	})
	return started, nil
}

func (s *ServiceImpl) StopActiveTimer(ctx context.Context) (TimeEntry, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return TimeEntry{}, fmt.Errorf("failed to get current user: %w", err)
	}
	stopped, err := s.repo.StopActiveEntry(ctx, userId, s.clock.Now())
	if err != nil {
		return TimeEntry{}, err
	}
	if stopped.Id == 0 {
		log.Debugf("No active timer to stop for user %d", userId)
		return TimeEntry{}, nil
	}
	s.publishCompleted(ctx, event_bus.TimerStopped, userId, stopped)
	return stopped, nil
}

func (s *ServiceImpl) LogManualEntry(ctx context.Context, projectId int, description string, durationHours float64) (TimeEntry, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return TimeEntry{}, fmt.Errorf("failed to get current user: %w", err)
	}
	if math.IsNaN(durationHours) || math.IsInf(durationHours, 0) || durationHours <= 0 {
		return TimeEntry{}, apperr.Validation("durationHours", "must be a positive number")
	}
	if durationHours > maxManualHours {
		return TimeEntry{}, apperr.Validation("durationHours", "is too large")
	}

	end := s.clock.Now()
	entry, err := s.prepare(ctx, TimeEntry{
		ProjectId:   projectId,
		StartTime:   end.Add(-time.Duration(durationHours * float64(time.Hour))),
		EndTime:     &end,
		Description: description,
		Billable:    true,
	})
	if err != nil {
		return TimeEntry{}, err
	}
	created, err := s.repo.CreateEntry(ctx, userId, entry)
	if err != nil {
		return TimeEntry{}, err
	}
	s.publishCompleted(ctx, event_bus.EntryLogged, userId, created)
	return created, nil
}

func (s *ServiceImpl) FindActiveTimer(ctx context.Context) (TimeEntry, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return TimeEntry{}, fmt.Errorf("failed to get current user: %w", err)
	}
	return s.repo.FindActiveEntry(ctx, userId)
}

func (s *ServiceImpl) ListEntries(ctx context.Context) ([]TimeEntry, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}
	return s.repo.ListEntries(ctx, userId)
}

func (s *ServiceImpl) GetEntry(ctx context.Context, id int) (TimeEntry, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return TimeEntry{}, fmt.Errorf("failed to get current user: %w", err)
	}
	e, err := s.repo.GetEntry(ctx, userId, id)
	if errors.Is(err, ErrEntryNotFound) {
		return TimeEntry{}, apperr.NotFound("time entry", id)
	}
	return e, err
}

// CreateEntry stores a completed entry, or starts a timer when no end time is given.
func (s *ServiceImpl) CreateEntry(ctx context.Context, entry TimeEntry) (TimeEntry, error) {
	if entry.IsRunning() {
		return s.startTimer(ctx, entry)
	}
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return TimeEntry{}, fmt.Errorf("failed to get current user: %w", err)
	}
	entry, err = s.prepare(ctx, entry)
	if err != nil {
		return TimeEntry{}, err
	}
	created, err := s.repo.CreateEntry(ctx, userId, entry)
	if err != nil {
		return TimeEntry{}, err
	}
	s.publishCompleted(ctx, event_bus.EntryLogged, userId, created)
	return created, nil
}

func (s *ServiceImpl) UpdateEntry(ctx context.Context, entry TimeEntry) (TimeEntry, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return TimeEntry{}, fmt.Errorf("failed to get current user: %w", err)
	}
	existing, err := s.GetEntry(ctx, entry.Id)
	if err != nil {
		return TimeEntry{}, err
	}
	if !existing.IsRunning() && entry.IsRunning() {
		return TimeEntry{}, apperr.Validation("endTime", "cannot reopen a completed entry")
	}
	if entry.IsRunning() && entry.StartTime.After(s.clock.Now()) {
		return TimeEntry{}, apperr.Validation("startTime", "cannot be in the future")
	}
	entry, err = s.prepare(ctx, entry)
	if err != nil {
		return TimeEntry{}, err
	}

	updated, err := s.repo.UpdateEntry(ctx, userId, entry)
	if errors.Is(err, ErrEntryNotFound) {
		return TimeEntry{}, apperr.NotFound("time entry", entry.Id)
	}
	if errors.Is(err, ErrActiveTimerExists) {
		return TimeEntry{}, apperr.Conflict("another timer is already running")
	}
	if errors.Is(err, ErrEntryCompleted) {
		return TimeEntry{}, apperr.Validation("endTime", "cannot reopen a completed entry")
	}
	if err != nil {
		return TimeEntry{}, err
	}
	if existing.IsRunning() && !updated.IsRunning() {
		s.publishCompleted(ctx, event_bus.TimerStopped, userId, updated)
	}
	return updated, nil
}

func (s *ServiceImpl) DeleteEntry(ctx context.Context, id int) error {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current user: %w", err)
	}
	existing, err := s.GetEntry(ctx, id)
	if err != nil {
		return err
	}
	deleted, err := s.repo.DeleteEntry(ctx, userId, id)
	if err != nil {
		return err
	}
	if !deleted {
		log.Warnf("time entry not deleted, probably because it does not exist (%d) or the user (%d) is not the owner", id, userId)
		return apperr.NotFound("time entry", id)
	}
	s.publish(ctx, event_bus.EntryDeleted, event_bus.TimeEntryDeleted{
		EntryId: id,
		UserId:  userId,
		Running: existing.IsRunning(),
	})
	return nil
}

// prepare applies defaults, validates the entry and checks that its project belongs to the user.
func (s *ServiceImpl) prepare(ctx context.Context, entry TimeEntry) (TimeEntry, error) {
	entry.Description = strings.TrimSpace(entry.Description)
	if entry.Description == "" {
		entry.Description = DefaultDescription
	}
	if err := entry.Validate(); err != nil {
		return TimeEntry{}, err
	}
	if _, err := s.projects.GetProject(ctx, entry.ProjectId); err != nil {
		return TimeEntry{}, err
	}
	return entry, nil
}

func (s *ServiceImpl) publishCompleted(ctx context.Context, eventType event_bus.EventType, userId int, e TimeEntry) {
	s.publish(ctx, eventType, event_bus.TimeEntryCompleted{
		EntryId:   e.Id,
		UserId:    userId,
		ProjectId: e.ProjectId,
		StartTime: e.StartTime,
		EndTime:   *e.EndTime,
		Billable:  e.Billable,
	})
}

// publish never fails the operation; the entry is already stored.
func (s *ServiceImpl) publish(ctx context.Context, eventType event_bus.EventType, data any) {
	if s.eventBus == nil {
		return
	}
	if err := s.eventBus.Publish(event_bus.NewEvent(ctx, eventType, data)); err != nil {
		log.Errorf("failed to publish %s: %v", eventType, err)
	}
}
