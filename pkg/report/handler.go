package report

import (
	"net/http"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/tallyhq/tally/internal/rest"
	"github.com/tallyhq/tally/pkg/project"
	"github.com/tallyhq/tally/pkg/time_entry"
)

type ProjectHoursDTO struct {
	ProjectId int     `json:"projectId"`
	Hours     float64 `json:"hours"`
}

type DayBucketDTO struct {
	Date     string            `json:"date"`
	Label    string            `json:"label"`
	Hours    float64           `json:"hours"`
	Projects []ProjectHoursDTO `json:"projects"`
}

type DashboardDTO struct {
	TotalHours     float64                  `json:"totalHours"`
	BillableHours  float64                  `json:"billableHours"`
	TotalEarnings  float64                  `json:"totalEarnings"`
	ActiveProjects int                      `json:"activeProjects"`
	ActiveTimer    *time_entry.TimeEntryDTO `json:"activeTimer"`
	Week           []DayBucketDTO           `json:"week"`
	Projects       []project.ProjectDTO     `json:"projects"`
}

type Handler struct {
	service  Service
	renderer Renderer
}

func NewHandler(service Service, renderer Renderer) *Handler {
	return &Handler{service, renderer}
}

func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	var date time.Time
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			rest.BadRequest(w, "Invalid date format", "date must be in RFC3339 format")
			return
		}
		date = parsed
	}
	days := DefaultDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 366 {
			rest.BadRequest(w, "Invalid days", "days must be a number between 1 and 366")
			return
		}
		days = parsed
	}
	log.Debugf("Dashboard requested for %v over %d days", date, days)

	dashboard, err := h.service.GetDashboard(r.Context(), date, days)
	if err != nil {
		rest.WriteError(w, err)
		return
	}

	if r.Header.Get("Accept") == "text/csv" {
		csv, err := h.renderer.RenderDashboard(dashboard)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(csv)); err != nil {
			log.Errorf("failed to write csv response: %v", err)
		}
		return
	}
	rest.WriteJSON(w, http.StatusOK, toDTO(dashboard))
}

func toDTO(dashboard Dashboard) DashboardDTO {
	week := make([]DayBucketDTO, 0, len(dashboard.Week))
	for _, day := range dashboard.Week {
		projects := make([]ProjectHoursDTO, 0, len(day.Projects))
		for _, ph := range day.Projects {
			projects = append(projects, ProjectHoursDTO{ProjectId: ph.ProjectId, Hours: ph.Hours})
		}
		week = append(week, DayBucketDTO{
			Date:     day.Date.Format("2006-01-02"),
			Label:    day.Label,
			Hours:    day.Hours,
			Projects: projects,
		})
	}
	projects := make([]project.ProjectDTO, 0, len(dashboard.Projects))
	for _, p := range dashboard.Projects {
		projects = append(projects, project.ToDTO(p))
	}
	dto := DashboardDTO{
		TotalHours:     dashboard.TotalHours,
		BillableHours:  dashboard.BillableHours,
		TotalEarnings:  dashboard.TotalEarnings,
		ActiveProjects: dashboard.ActiveProjects,
		Week:           week,
		Projects:       projects,
	}
	if dashboard.ActiveTimer != nil {
		active := time_entry.ToDTO(*dashboard.ActiveTimer)
		dto.ActiveTimer = &active
	}
	return dto
}
