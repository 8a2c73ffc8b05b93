package project

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/tallyhq/tally/internal/apperr"
	"github.com/tallyhq/tally/pkg/client"
	"github.com/tallyhq/tally/pkg/user"
)

var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

type Service interface {
	ListProjects(ctx context.Context) ([]Project, error)
	GetProject(ctx context.Context, id int) (Project, error)
	CreateProject(ctx context.Context, project Project) (Project, error)
	UpdateProject(ctx context.Context, project Project) (Project, error)
	DeleteProject(ctx context.Context, id int) error
}

// ClientProvider resolves clients of the current user.
type ClientProvider interface {
	GetClient(ctx context.Context, id int) (client.Client, error)
}

type ServiceImpl struct {
	repo    Repository
	clients ClientProvider
}

func NewService(repo Repository, clients ClientProvider) *ServiceImpl {
	return &ServiceImpl{repo: repo, clients: clients}
}

func (s *ServiceImpl) ListProjects(ctx context.Context) ([]Project, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}
	return s.repo.ListProjects(ctx, userId)
}

func (s *ServiceImpl) GetProject(ctx context.Context, id int) (Project, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return Project{}, fmt.Errorf("failed to get current user: %w", err)
	}
	p, err := s.repo.GetProject(ctx, userId, id)
	if errors.Is(err, ErrProjectNotFound) {
		return Project{}, apperr.NotFound("project", id)
	}
	return p, err
}

func (s *ServiceImpl) CreateProject(ctx context.Context, project Project) (Project, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return Project{}, fmt.Errorf("failed to get current user: %w", err)
	}
	project, err = s.validate(ctx, project)
	if err != nil {
		return Project{}, err
	}
	return s.repo.CreateProject(ctx, userId, project)
}

func (s *ServiceImpl) UpdateProject(ctx context.Context, project Project) (Project, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return Project{}, fmt.Errorf("failed to get current user: %w", err)
	}
	project, err = s.validate(ctx, project)
	if err != nil {
		return Project{}, err
	}
	updated, err := s.repo.UpdateProject(ctx, userId, project)
	if errors.Is(err, ErrProjectNotFound) {
		return Project{}, apperr.NotFound("project", project.Id)
	}
	return updated, err
}

// DeleteProject refuses to delete a project that still has time entries.
func (s *ServiceImpl) DeleteProject(ctx context.Context, id int) error {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current user: %w", err)
	}
	entries, err := s.repo.CountTimeEntries(ctx, userId, id)
	if err != nil {
		return err
	}
	if entries > 0 {
		return apperr.Conflict("project %d has %d time entries", id, entries)
	}
	deleted, err := s.repo.DeleteProject(ctx, userId, id)
	if errors.Is(err, ErrProjectInUse) {
		return apperr.Conflict("project %d has time entries", id)
	}
	if err != nil {
		return err
	}
	if !deleted {
		log.Warnf("project not deleted, probably because it does not exist (%d) or the user (%d) is not the owner", id, userId)
		return apperr.NotFound("project", id)
	}
	return nil
}

func (s *ServiceImpl) validate(ctx context.Context, project Project) (Project, error) {
	project.Name = strings.TrimSpace(project.Name)
	project.Currency = strings.ToUpper(strings.TrimSpace(project.Currency))
	if project.Name == "" {
		return Project{}, apperr.Validation("name", "is required")
	}
	if project.ClientId == 0 {
		return Project{}, apperr.Validation("clientId", "is required")
	}
	if project.HourlyRate < 0 || math.IsNaN(project.HourlyRate) || math.IsInf(project.HourlyRate, 0) {
		return Project{}, apperr.Validation("hourlyRate", "must be a non-negative number")
	}
	if project.Color == "" {
		project.Color = DefaultColor
	}
	if project.Currency == "" {
		project.Currency = DefaultCurrency
	}
	if !currencyPattern.MatchString(project.Currency) {
		return Project{}, apperr.Validation("currency", "must be a three letter ISO code")
	}
	if _, err := s.clients.GetClient(ctx, project.ClientId); err != nil {
		return Project{}, err
	}
	return project, nil
}
