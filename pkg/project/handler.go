package project

import (
	"encoding/json"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/tallyhq/tally/internal/rest"
)

type ProjectDTO struct {
	Id         int       `json:"id"`
	ClientId   int       `json:"clientId"`
	Name       string    `json:"name"`
	HourlyRate float64   `json:"hourlyRate"`
	Color      string    `json:"color"`
	Currency   string    `json:"currency"`
	CreatedAt  time.Time `json:"createdAt"`
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service}
}

func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	log.Debug("Listing projects")
	projects, err := h.service.ListProjects(r.Context())
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	dtos := make([]ProjectDTO, 0, len(projects))
	for _, p := range projects {
		dtos = append(dtos, ToDTO(p))
	}
	rest.WriteJSON(w, http.StatusOK, dtos)
}

func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	id, err := rest.PathInt(r, "projectId")
	if err != nil {
		rest.BadRequest(w, "Invalid project id", err.Error())
		return
	}
	p, err := h.service.GetProject(r.Context(), id)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, ToDTO(p))
}

func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	log.Debug("Creating new project")
	var dto ProjectDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		rest.BadRequest(w, "Invalid request body format", err.Error())
		return
	}
	created, err := h.service.CreateProject(r.Context(), fromDTO(dto))
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusCreated, ToDTO(created))
}

func (h *Handler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	log.Debug("Updating project")
	id, err := rest.PathInt(r, "projectId")
	if err != nil {
		rest.BadRequest(w, "Invalid project id", err.Error())
		return
	}
	var dto ProjectDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		rest.BadRequest(w, "Invalid request body format", err.Error())
		return
	}
	p := fromDTO(dto)
	p.Id = id
	updated, err := h.service.UpdateProject(r.Context(), p)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, ToDTO(updated))
}

func (h *Handler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	log.Debug("Deleting project")
	id, err := rest.PathInt(r, "projectId")
	if err != nil {
		rest.BadRequest(w, "Invalid project id", err.Error())
		return
	}
	if err := h.service.DeleteProject(r.Context(), id); err != nil {
		rest.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func ToDTO(p Project) ProjectDTO {
	return ProjectDTO{
		Id:         p.Id,
		ClientId:   p.ClientId,
		Name:       p.Name,
		HourlyRate: p.HourlyRate,
		Color:      p.Color,
		Currency:   p.Currency,
		CreatedAt:  p.CreatedAt,
	}
}

func fromDTO(dto ProjectDTO) Project {
	return Project{
		Id:         dto.Id,
		ClientId:   dto.ClientId,
		Name:       dto.Name,
		HourlyRate: dto.HourlyRate,
		Color:      dto.Color,
		Currency:   dto.Currency,
	}
}
