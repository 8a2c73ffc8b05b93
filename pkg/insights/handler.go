package insights

import (
	"net/http"

	log "github.com/sirupsen/logrus"
	"github.com/tallyhq/tally/internal/rest"
	"github.com/tallyhq/tally/pkg/invoice"
)

type InsightDTO struct {
	Text string `json:"text"`
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service}
}

func (h *Handler) AnalyzeProductivity(w http.ResponseWriter, r *http.Request) {
	log.Trace("Analyzing productivity")
	text, err := h.service.AnalyzeProductivity(r.Context())
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, InsightDTO{Text: text})
}

func (h *Handler) InvoiceSummary(w http.ResponseWriter, r *http.Request) {
	log.Trace("Generating invoice summary")
	filter, err := invoice.ParseFilter(r)
	if err != nil {
		rest.BadRequest(w, "Invalid invoice query", err.Error())
		return
	}
	text, err := h.service.InvoiceSummary(r.Context(), filter)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, InsightDTO{Text: text})
}
