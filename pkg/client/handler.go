package client

import (
	"encoding/json"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/tallyhq/tally/internal/rest"
)

type ClientDTO struct {
	Id        int       `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Company   string    `json:"company,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service}
}

func (h *Handler) ListClients(w http.ResponseWriter, r *http.Request) {
	log.Debug("Listing clients")
	clients, err := h.service.ListClients(r.Context())
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	dtos := make([]ClientDTO, 0, len(clients))
	for _, c := range clients {
		dtos = append(dtos, ToDTO(c))
	}
	rest.WriteJSON(w, http.StatusOK, dtos)
}

func (h *Handler) GetClient(w http.ResponseWriter, r *http.Request) {
	id, err := rest.PathInt(r, "clientId")
	if err != nil {
		rest.BadRequest(w, "Invalid client id", err.Error())
		return
	}
	c, err := h.service.GetClient(r.Context(), id)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, ToDTO(c))
}

func (h *Handler) CreateClient(w http.ResponseWriter, r *http.Request) {
	log.Debug("Creating new client")
	var dto ClientDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		rest.BadRequest(w, "Invalid request body format", err.Error())
		return
	}
	created, err := h.service.CreateClient(r.Context(), fromDTO(dto))
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusCreated, ToDTO(created))
}

func (h *Handler) UpdateClient(w http.ResponseWriter, r *http.Request) {
	log.Debug("Updating client")
	id, err := rest.PathInt(r, "clientId")
	if err != nil {
		rest.BadRequest(w, "Invalid client id", err.Error())
		return
	}
	var dto ClientDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		rest.BadRequest(w, "Invalid request body format", err.Error())
		return
	}
	c := fromDTO(dto)
	c.Id = id
	updated, err := h.service.UpdateClient(r.Context(), c)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, ToDTO(updated))
}

func (h *Handler) DeleteClient(w http.ResponseWriter, r *http.Request) {
	log.Debug("Deleting client")
	id, err := rest.PathInt(r, "clientId")
	if err != nil {
		rest.BadRequest(w, "Invalid client id", err.Error())
		return
	}
	if err := h.service.DeleteClient(r.Context(), id); err != nil {
		rest.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func ToDTO(c Client) ClientDTO {
	return ClientDTO{
		Id:        c.Id,
		Name:      c.Name,
		Email:     c.Email,
		Company:   c.Company,
		CreatedAt: c.CreatedAt,
	}
}

func fromDTO(dto ClientDTO) Client {
	return Client{
		Id:      dto.Id,
		Name:    dto.Name,
		Email:   dto.Email,
		Company: dto.Company,
	}
}
