package client

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/tallyhq/tally/internal/apperr"
	"github.com/tallyhq/tally/pkg/user"
)

type Service interface {
	ListClients(ctx context.Context) ([]Client, error)
	GetClient(ctx context.Context, id int) (Client, error)
	CreateClient(ctx context.Context, client Client) (Client, error)
	UpdateClient(ctx context.Context, client Client) (Client, error)
	DeleteClient(ctx context.Context, id int) error
}

type ServiceImpl struct {
	repo Repository
}

func NewService(repo Repository) *ServiceImpl {
	return &ServiceImpl{repo: repo}
}

func (s *ServiceImpl) ListClients(ctx context.Context) ([]Client, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}
	return s.repo.ListClients(ctx, userId)
}

func (s *ServiceImpl) GetClient(ctx context.Context, id int) (Client, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return Client{}, fmt.Errorf("failed to get current user: %w", err)
	}
	c, err := s.repo.GetClient(ctx, userId, id)
	if errors.Is(err, ErrClientNotFound) {
		return Client{}, apperr.NotFound("client", id)
	}
	return c, err
}

func (s *ServiceImpl) CreateClient(ctx context.Context, client Client) (Client, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return Client{}, fmt.Errorf("failed to get current user: %w", err)
	}
	client, err = normalize(client)
	if err != nil {
		return Client{}, err
	}
	return s.repo.CreateClient(ctx, userId, client)
}

func (s *ServiceImpl) UpdateClient(ctx context.Context, client Client) (Client, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return Client{}, fmt.Errorf("failed to get current user: %w", err)
	}
	client, err = normalize(client)
	if err != nil {
		return Client{}, err
	}
	updated, err := s.repo.UpdateClient(ctx, userId, client)
	if errors.Is(err, ErrClientNotFound) {
		return Client{}, apperr.NotFound("client", client.Id)
	}
	return updated, err
}

// DeleteClient removes the client and its projects. It refuses while any of those projects still
// has time entries, so entries are never left pointing at a deleted project.
func (s *ServiceImpl) DeleteClient(ctx context.Context, id int) error {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current user: %w", err)
	}
	entries, err := s.repo.CountTimeEntries(ctx, userId, id)
	if err != nil {
		return err
	}
	if entries > 0 {
		return apperr.Conflict("client %d has %d time entries on its projects", id, entries)
	}
	deleted, err := s.repo.DeleteClient(ctx, userId, id)
	if errors.Is(err, ErrClientInUse) {
		return apperr.Conflict("client %d has time entries on its projects", id)
	}
	if err != nil {
		return err
	}
	if !deleted {
		log.Warnf("client not deleted, probably because it does not exist (%d) or the user (%d) is not the owner", id, userId)
		return apperr.NotFound("client", id)
	}
	return nil
}

func normalize(client Client) (Client, error) {
	client.Name = strings.TrimSpace(client.Name)
	client.Email = strings.ToLower(strings.TrimSpace(client.Email))
	client.Company = strings.TrimSpace(client.Company)
	if client.Name == "" {
		return Client{}, apperr.Validation("name", "is required")
	}
	if client.Email != "" {
		if _, err := mail.ParseAddress(client.Email); err != nil {
			return Client{}, apperr.Validation("email", "is not a valid address")
		}
	}
	return client, nil
}
