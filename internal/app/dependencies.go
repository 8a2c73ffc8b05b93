package app

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tallyhq/tally/internal/config"
	"github.com/tallyhq/tally/internal/event_bus"
	"github.com/tallyhq/tally/internal/telemetry"
	"github.com/tallyhq/tally/pkg/client"
	"github.com/tallyhq/tally/pkg/insights"
	"github.com/tallyhq/tally/pkg/invoice"
	"github.com/tallyhq/tally/pkg/project"
	"github.com/tallyhq/tally/pkg/report"
	"github.com/tallyhq/tally/pkg/time_entry"
	"github.com/tallyhq/tally/pkg/user"
)

// Repositories groups the storage layer so the services can run against Postgres or stubs.
type Repositories struct {
	Users       user.Repository
	Clients     client.Repository
	Projects    project.Repository
	TimeEntries time_entry.Repository
}

func NewRepositories(db *pgxpool.Pool) Repositories {
	return Repositories{
		Users:       user.NewRepository(db),
		Clients:     client.NewRepository(db),
		Projects:    project.NewRepository(db),
		TimeEntries: time_entry.NewRepository(db),
	}
}

// Dependencies holds all services and handlers for the application.
type Dependencies struct {
	EventBus *event_bus.EventBus
	Recorder telemetry.Recorder

	UserService user.Service
	UserHandler *user.Handler

	ClientService client.Service
	ClientHandler *client.Handler

	ProjectService project.Service
	ProjectHandler *project.Handler

	TimeEntryService time_entry.Service
	TimeEntryHandler *time_entry.Handler

	ReportService  report.Service
	ReportRenderer report.Renderer
	ReportHandler  *report.Handler

	InvoiceService  invoice.Service
	InvoiceRenderer invoice.Renderer
	InvoiceHandler  *invoice.Handler

	InsightsService insights.Service
	InsightsHandler *insights.Handler

	unsubscribeTelemetry func()
}

// BuildDependencies initializes and wires all application services and handlers.
func BuildDependencies(repos Repositories, cfg config.Application, generator insights.Generator, recorder telemetry.Recorder) *Dependencies {
	deps := &Dependencies{}

	deps.EventBus = event_bus.NewEventBus()
	deps.Recorder = recorder
	deps.unsubscribeTelemetry = telemetry.Subscribe(deps.EventBus, recorder)

	deps.UserService = user.NewService(repos.Users)
	deps.UserHandler = user.NewHandler(deps.UserService)

	deps.ClientService = client.NewService(repos.Clients)
	deps.ClientHandler = client.NewHandler(deps.ClientService)

	deps.ProjectService = project.NewService(repos.Projects, deps.ClientService)
	deps.ProjectHandler = project.NewHandler(deps.ProjectService)

	deps.TimeEntryService = time_entry.NewService(repos.TimeEntries, deps.ProjectService, deps.EventBus, cfg.Timer.OnActive)
	deps.TimeEntryHandler = time_entry.NewHandler(deps.TimeEntryService)

	deps.ReportService = report.NewService(deps.TimeEntryService, deps.ProjectService)
	deps.ReportRenderer = report.NewCsvRenderer()
	deps.ReportHandler = report.NewHandler(deps.ReportService, deps.ReportRenderer)

	deps.InvoiceService = invoice.NewService(deps.TimeEntryService, deps.ProjectService, deps.ClientService)
	deps.InvoiceRenderer = invoice.NewCsvRenderer()
	deps.InvoiceHandler = invoice.NewHandler(deps.InvoiceService, deps.InvoiceRenderer)

	deps.InsightsService = insights.NewService(generator, deps.InvoiceService, deps.TimeEntryService)
	deps.InsightsHandler = insights.NewHandler(deps.InsightsService)

	return deps
}
