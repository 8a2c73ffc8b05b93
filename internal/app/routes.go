package app

import (
	"github.com/gorilla/mux"
)

// RegisterRoutes registers all API endpoints.
func RegisterRoutes(r *mux.Router, deps *Dependencies) {

	// User management
	r.HandleFunc("/api/user", deps.UserHandler.CreateUser).Methods("POST")
	r.HandleFunc("/api/user/current", deps.UserHandler.CurrentUser).Methods("GET")
	r.HandleFunc("/api/user/current", deps.UserHandler.UpdateUser).Methods("PUT")

	// Clients
	r.HandleFunc("/api/client", deps.ClientHandler.ListClients).Methods("GET")
	r.HandleFunc("/api/client", deps.ClientHandler.CreateClient).Methods("POST")
	r.HandleFunc("/api/client/{clientId}", deps.ClientHandler.GetClient).Methods("GET")
	r.HandleFunc("/api/client/{clientId}", deps.ClientHandler.UpdateClient).Methods("PUT")
	r.HandleFunc("/api/client/{clientId}", deps.ClientHandler.DeleteClient).Methods("DELETE")

	// Projects
	r.HandleFunc("/api/project", deps.ProjectHandler.ListProjects).Methods("GET")
	r.HandleFunc("/api/project", deps.ProjectHandler.CreateProject).Methods("POST")
	r.HandleFunc("/api/project/{projectId}", deps.ProjectHandler.GetProject).Methods("GET")
	r.HandleFunc("/api/project/{projectId}", deps.ProjectHandler.UpdateProject).Methods("PUT")
	r.HandleFunc("/api/project/{projectId}", deps.ProjectHandler.DeleteProject).Methods("DELETE")

	// Timer
	r.HandleFunc("/api/timer", deps.TimeEntryHandler.GetActiveTimer).Methods("GET")
	r.HandleFunc("/api/timer/start", deps.TimeEntryHandler.StartTimer).Methods("POST")
	r.HandleFunc("/api/timer/stop", deps.TimeEntryHandler.StopTimer).Methods("POST")

	// Time entries
	r.HandleFunc("/api/time-entry", deps.TimeEntryHandler.ListEntries).Methods("GET")
	r.HandleFunc("/api/time-entry", deps.TimeEntryHandler.CreateEntry).Methods("POST")
	r.HandleFunc("/api/time-entry/manual", deps.TimeEntryHandler.LogManualEntry).Methods("POST")
	r.HandleFunc("/api/time-entry/{entryId}", deps.TimeEntryHandler.GetEntry).Methods("GET")
	r.HandleFunc("/api/time-entry/{entryId}", deps.TimeEntryHandler.UpdateEntry).Methods("PUT")
	r.HandleFunc("/api/time-entry/{entryId}", deps.TimeEntryHandler.DeleteEntry).Methods("DELETE")

	// Reports
	r.HandleFunc("/api/report/dashboard", deps.ReportHandler.GetDashboard).Methods("GET")

	// Invoices
	r.HandleFunc("/api/invoice", deps.InvoiceHandler.GetInvoice).Methods("GET")

	// Insights
	r.HandleFunc("/api/insights/productivity", deps.InsightsHandler.AnalyzeProductivity).Methods("POST")
	r.HandleFunc("/api/insights/invoice-summary", deps.InsightsHandler.InvoiceSummary).Methods("POST")
}
