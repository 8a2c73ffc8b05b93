package invoice

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/tallyhq/tally/internal/apperr"
	"github.com/tallyhq/tally/internal/utils"
	"github.com/tallyhq/tally/pkg/client"
	"github.com/tallyhq/tally/pkg/project"
	"github.com/tallyhq/tally/pkg/time_entry"
	"github.com/tallyhq/tally/pkg/user"
)

type Service interface {
	Generate(ctx context.Context, filter Filter, strict bool) (Invoice, error)
}

type EntryProvider interface {
	ListEntries(ctx context.Context) ([]time_entry.TimeEntry, error)
}

type ProjectProvider interface {
	GetProject(ctx context.Context, id int) (project.Project, error)
	ListProjects(ctx context.Context) ([]project.Project, error)
}

type ClientProvider interface {
	GetClient(ctx context.Context, id int) (client.Client, error)
}

type ServiceImpl struct {
	entries  EntryProvider
	projects ProjectProvider
	clients  ClientProvider
	clock    utils.Clock
}

func NewService(entries EntryProvider, projects ProjectProvider, clients ClientProvider) *ServiceImpl {
	return &ServiceImpl{
		entries:  entries,
		projects: projects,
		clients:  clients,
		clock:    &utils.SystemClock{},
	}
}

func (s *ServiceImpl) Generate(ctx context.Context, filter Filter, strict bool) (Invoice, error) {
	currentUser, err := user.CurrentUser(ctx)
	if err != nil {
		return Invoice{}, fmt.Errorf("failed to get current user: %w", err)
	}
	if !filter.From.IsZero() && !filter.To.IsZero() && filter.To.Before(filter.From) {
		return Invoice{}, apperr.Validation("", "to is before from")
	}

	var billedProject *project.Project
	clientId := filter.ClientId
	if filter.ProjectId != 0 {
		p, err := s.projects.GetProject(ctx, filter.ProjectId)
		if err != nil {
			return Invoice{}, err
		}
		if clientId != 0 && p.ClientId != clientId {
			return Invoice{}, apperr.Validation("projectId", fmt.Sprintf("does not belong to client %d", clientId))
		}
		clientId = p.ClientId
		billedProject = &p
	}

	var billTo *client.Client
	if clientId != 0 {
		c, err := s.clients.GetClient(ctx, clientId)
		if err != nil {
			return Invoice{}, err
		}
		billTo = &c
	}

	entries, err := s.entries.ListEntries(ctx)
	if err != nil {
		return Invoice{}, err
	}
	projects, err := s.projects.ListProjects(ctx)
	if err != nil {
		return Invoice{}, err
	}

	invoice, err := BuildInvoice(filter, entries, project.NewLookup(projects), strict)
	if err != nil {
		return Invoice{}, err
	}
	// line items are dated by the user's calendar, not the server's
	location := currentUser.Settings.Location()
	for i := range invoice.LineItems {
		invoice.LineItems[i].Date = invoice.LineItems[i].Date.In(location)
	}
	invoice.Number = newNumber()
	invoice.IssuedAt = s.clock.Now()
	invoice.BillTo = billTo
	invoice.Project = billedProject
	log.Debugf("Invoice %s for user %d has %d line items", invoice.Number, currentUser.Id, len(invoice.LineItems))
	return invoice, nil
}

// newNumber returns a display id such as INV-1F3A9C2E.
func newNumber() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "INV-" + strings.ToUpper(id[:8])
}
