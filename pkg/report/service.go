package report

import (
	"context"
	"fmt"
	"sort"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/tallyhq/tally/internal/utils"
	"github.com/tallyhq/tally/pkg/project"
	"github.com/tallyhq/tally/pkg/time_entry"
	"github.com/tallyhq/tally/pkg/user"
)

// Dashboard is a Summary together with the projects it refers to.
type Dashboard struct {
	Summary
	Projects []project.Project
}

type Service interface {
	// GetDashboard summarizes the current user's entries. A zero date means now; the histogram
	// covers the days ending on date in the user's timezone.
	GetDashboard(ctx context.Context, date time.Time, days int) (Dashboard, error)
}

type EntryProvider interface {
	ListEntries(ctx context.Context) ([]time_entry.TimeEntry, error)
}

type ProjectProvider interface {
	ListProjects(ctx context.Context) ([]project.Project, error)
}

type ServiceImpl struct {
	entries  EntryProvider
	projects ProjectProvider
	clock    utils.Clock
}

func NewService(entries EntryProvider, projects ProjectProvider) *ServiceImpl {
	return &ServiceImpl{
		entries:  entries,
		projects: projects,
		clock:    &utils.SystemClock{},
	}
}

func (s *ServiceImpl) GetDashboard(ctx context.Context, date time.Time, days int) (Dashboard, error) {
	currentUser, err := user.CurrentUser(ctx)
	if err != nil {
		return Dashboard{}, fmt.Errorf("failed to get current user: %w", err)
	}
	if date.IsZero() {
		date = s.clock.Now()
	}
	reference := date.In(currentUser.Settings.Location())

	entries, err := s.entries.ListEntries(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	projects, err := s.projects.ListProjects(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	log.Debugf("Summarizing %d entries of %d projects for user %d", len(entries), len(projects), currentUser.Id)

	sort.Slice(projects, func(i, j int) bool { return projects[i].Id < projects[j].Id })
	return Dashboard{
		Summary:  Summarize(entries, project.NewLookup(projects), reference, days),
		Projects: projects,
	}, nil
}
