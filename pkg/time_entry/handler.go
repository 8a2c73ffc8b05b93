package time_entry

import (
	"encoding/json"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/tallyhq/tally/internal/rest"
)

type TimeEntryDTO struct {
	Id            int      `json:"id"`
	ProjectId     int      `json:"projectId"`
	StartTime     string   `json:"startTime"`
	EndTime       *string  `json:"endTime"`
	Description   string   `json:"description"`
	Billable      *bool    `json:"billable,omitempty"`
	DurationHours *float64 `json:"durationHours,omitempty"`
}

type StartTimerRequest struct {
	ProjectId   int    `json:"projectId"`
	Description string `json:"description"`
}

type ManualEntryRequest struct {
	ProjectId     int     `json:"projectId"`
	Description   string  `json:"description"`
	DurationHours float64 `json:"durationHours"`
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service}
}

func (h *Handler) StartTimer(w http.ResponseWriter, r *http.Request) {
	log.Trace("Starting new timer")
	var req StartTimerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rest.BadRequest(w, "Invalid request body format", err.Error())
		return
	}
	log.Debug("New timer request: ", req)

	started, err := h.service.StartTimer(r.Context(), req.ProjectId, req.Description)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusCreated, ToDTO(started))
}

func (h *Handler) StopTimer(w http.ResponseWriter, r *http.Request) {
	log.Trace("Stopping active timer")
	stopped, err := h.service.StopActiveTimer(r.Context())
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	if stopped.Id == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	rest.WriteJSON(w, http.StatusOK, ToDTO(stopped))
}

func (h *Handler) GetActiveTimer(w http.ResponseWriter, r *http.Request) {
	active, err := h.service.FindActiveTimer(r.Context())
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	if active.Id == 0 {
		rest.WriteJSON(w, http.StatusNotFound, rest.ErrorResponse{Error: "No active timer"})
		return
	}
	rest.WriteJSON(w, http.StatusOK, ToDTO(active))
}

func (h *Handler) LogManualEntry(w http.ResponseWriter, r *http.Request) {
	log.Trace("Logging manual time entry")
	var req ManualEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rest.BadRequest(w, "Invalid request body format", err.Error())
		return
	}
	created, err := h.service.LogManualEntry(r.Context(), req.ProjectId, req.Description, req.DurationHours)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusCreated, ToDTO(created))
}

func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.ListEntries(r.Context())
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	dtos := make([]TimeEntryDTO, 0, len(entries))
	for _, e := range entries {
		dtos = append(dtos, ToDTO(e))
	}
	rest.WriteJSON(w, http.StatusOK, dtos)
}

func (h *Handler) GetEntry(w http.ResponseWriter, r *http.Request) {
	id, err := rest.PathInt(r, "entryId")
	if err != nil {
		rest.BadRequest(w, "Invalid time entry id", err.Error())
		return
	}
	e, err := h.service.GetEntry(r.Context(), id)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, ToDTO(e))
}

func (h *Handler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	log.Debug("Creating new time entry")
	entry, ok := decodeEntry(w, r)
	if !ok {
		return
	}
	created, err := h.service.CreateEntry(r.Context(), entry)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusCreated, ToDTO(created))
}

func (h *Handler) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	log.Debug("Updating time entry")
	id, err := rest.PathInt(r, "entryId")
	if err != nil {
		rest.BadRequest(w, "Invalid time entry id", err.Error())
		return
	}
	entry, ok := decodeEntry(w, r)
	if !ok {
		return
	}
	entry.Id = id
	updated, err := h.service.UpdateEntry(r.Context(), entry)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, ToDTO(updated))
}

func (h *Handler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	log.Debug("Deleting time entry")
	id, err := rest.PathInt(r, "entryId")
	if err != nil {
		rest.BadRequest(w, "Invalid time entry id", err.Error())
		return
	}
	if err := h.service.DeleteEntry(r.Context(), id); err != nil {
		rest.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeEntry(w http.ResponseWriter, r *http.Request) (TimeEntry, bool) {
	var dto TimeEntryDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		rest.BadRequest(w, "Invalid request body format", err.Error())
		return TimeEntry{}, false
	}
	entry, err := fromDTO(dto)
	if err != nil {
		rest.BadRequest(w, "Invalid time format", "Times must be in RFC3339 format")
		return TimeEntry{}, false
	}
	return entry, true
}

func ToDTO(e TimeEntry) TimeEntryDTO {
	billable := e.Billable
	dto := TimeEntryDTO{
		Id:          e.Id,
		ProjectId:   e.ProjectId,
		StartTime:   e.StartTime.Format(time.RFC3339Nano),
		Description: e.Description,
		Billable:    &billable,
	}
	if e.EndTime != nil {
		end := e.EndTime.Format(time.RFC3339Nano)
		dto.EndTime = &end
	}
	if hours, ok := e.Hours(); ok {
		dto.DurationHours = &hours
	}
	return dto
}

func fromDTO(dto TimeEntryDTO) (TimeEntry, error) {
	entry := TimeEntry{
		Id:          dto.Id,
		ProjectId:   dto.ProjectId,
		Description: dto.Description,
		Billable:    true,
	}
	if dto.Billable != nil {
		entry.Billable = *dto.Billable
	}
	if dto.StartTime != "" {
		start, err := time.Parse(time.RFC3339Nano, dto.StartTime)
		if err != nil {
			return TimeEntry{}, err
		}
		entry.StartTime = start
	}
	if dto.EndTime != nil && *dto.EndTime != "" {
		end, err := time.Parse(time.RFC3339Nano, *dto.EndTime)
		if err != nil {
			return TimeEntry{}, err
		}
		entry.EndTime = &end
	}
	return entry, nil
}
