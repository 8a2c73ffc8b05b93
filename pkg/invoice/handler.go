package invoice

import (
	"net/http"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/tallyhq/tally/internal/rest"
	"github.com/tallyhq/tally/pkg/client"
	"github.com/tallyhq/tally/pkg/project"
)

type LineItemDTO struct {
	EntryId     int     `json:"entryId"`
	Description string  `json:"description"`
	Date        string  `json:"date"`
	Hours       float64 `json:"hours"`
	Rate        float64 `json:"rate"`
	Amount      float64 `json:"amount"`
}

type InvoiceDTO struct {
	Number      string              `json:"number"`
	IssuedAt    string              `json:"issuedAt"`
	BillTo      *client.ClientDTO   `json:"billTo,omitempty"`
	Project     *project.ProjectDTO `json:"project,omitempty"`
	Currency    string              `json:"currency"`
	LineItems   []LineItemDTO       `json:"lineItems"`
	TotalHours  float64             `json:"totalHours"`
	TotalAmount float64             `json:"totalAmount"`
}

type Handler struct {
	service  Service
	renderer Renderer
}

func NewHandler(service Service, renderer Renderer) *Handler {
	return &Handler{service, renderer}
}

func (h *Handler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	filter, strict, err := parseQuery(r)
	if err != nil {
		rest.BadRequest(w, "Invalid invoice query", err.Error())
		return
	}
	log.Debugf("Generating invoice for %+v (strict: %t)", filter, strict)

	invoice, err := h.service.Generate(r.Context(), filter, strict)
	if err != nil {
		rest.WriteError(w, err)
		return
	}

	if r.Header.Get("Accept") == "text/csv" {
		csv, err := h.renderer.RenderInvoice(invoice)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", "attachment; filename=\""+invoice.Number+".csv\"")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(csv)); err != nil {
			log.Errorf("failed to write csv response: %v", err)
		}
		return
	}
	rest.WriteJSON(w, http.StatusOK, ToDTO(invoice))
}

// ParseFilter reads clientId, projectId, from and to query parameters.
func ParseFilter(r *http.Request) (Filter, error) {
	var filter Filter
	var err error
	if filter.ClientId, err = rest.QueryInt(r, "clientId"); err != nil {
		return Filter{}, err
	}
	if filter.ProjectId, err = rest.QueryInt(r, "projectId"); err != nil {
		return Filter{}, err
	}
	if filter.From, err = queryTime(r, "from"); err != nil {
		return Filter{}, err
	}
	if filter.To, err = queryTime(r, "to"); err != nil {
		return Filter{}, err
	}
	return filter, nil
}

func parseQuery(r *http.Request) (Filter, bool, error) {
	filter, err := ParseFilter(r)
	if err != nil {
		return Filter{}, false, err
	}
	strict := false
	if raw := r.URL.Query().Get("strict"); raw != "" {
		strict, err = strconv.ParseBool(raw)
		if err != nil {
			return Filter{}, false, err
		}
	}
	return filter, strict, nil
}

func queryTime(r *http.Request, name string) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, raw)
}

func ToDTO(invoice Invoice) InvoiceDTO {
	items := make([]LineItemDTO, 0, len(invoice.LineItems))
	for _, item := range invoice.LineItems {
		items = append(items, LineItemDTO{
			EntryId:     item.EntryId,
			Description: item.Description,
			Date:        item.Date.Format(time.RFC3339Nano),
			Hours:       item.Hours,
			Rate:        item.Rate,
			Amount:      item.Amount,
		})
	}
	dto := InvoiceDTO{
		Number:      invoice.Number,
		IssuedAt:    invoice.IssuedAt.Format(time.RFC3339Nano),
		Currency:    invoice.Currency,
		LineItems:   items,
		TotalHours:  invoice.TotalHours,
		TotalAmount: invoice.TotalAmount,
	}
	if invoice.BillTo != nil {
		billTo := client.ToDTO(*invoice.BillTo)
		dto.BillTo = &billTo
	}
	if invoice.Project != nil {
		p := project.ToDTO(*invoice.Project)
		dto.Project = &p
	}
	return dto
}
