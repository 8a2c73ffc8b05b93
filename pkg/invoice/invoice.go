package invoice

import (
	"slices"
	"time"

	"github.com/tallyhq/tally/internal/apperr"
	"github.com/tallyhq/tally/pkg/client"
	"github.com/tallyhq/tally/pkg/project"
	"github.com/tallyhq/tally/pkg/time_entry"
)

// Filter narrows the billed entries. ProjectId takes precedence over ClientId; with neither set
// every completed billable entry is billed. From is inclusive and To exclusive; zero means unbounded.
type Filter struct {
	ClientId  int
	ProjectId int
	From      time.Time
	To        time.Time
}

type LineItem struct {
	EntryId     int
	Description string
	Date        time.Time
	Hours       float64
	Rate        float64
	Amount      float64
}

type Invoice struct {
	Number   string
	IssuedAt time.Time
	BillTo   *client.Client
	Project  *project.Project
	Filter   Filter
	// Currency is shared by every billed project; empty when they differ.
	Currency    string
	LineItems   []LineItem
	TotalHours  float64
	TotalAmount float64
}

// SelectEntries returns the completed billable entries matching filter, oldest first.
func SelectEntries(entries []time_entry.TimeEntry, projects project.Lookup, filter Filter) []time_entry.TimeEntry {
	selected := make([]time_entry.TimeEntry, 0)
	for _, e := range entries {
		if !e.Billable {
			continue
		}
		if _, ok := e.Hours(); !ok {
			continue
		}
		if !filter.From.IsZero() && e.StartTime.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && !e.StartTime.Before(filter.To) {
			continue
		}
		switch {
		case filter.ProjectId != 0:
			if e.ProjectId != filter.ProjectId {
				continue
			}
		case filter.ClientId != 0:
			p, found := projects[e.ProjectId]
			if !found || p.ClientId != filter.ClientId {
				continue
			}
		}
		selected = append(selected, e)
	}
	slices.SortStableFunc(selected, func(a, b time_entry.TimeEntry) int {
		if c := a.StartTime.Compare(b.StartTime); c != 0 {
			return c
		}
		return a.Id - b.Id
	})
	return selected
}

// BuildInvoice prices the entries selected by filter. An entry whose project is missing is billed
// at rate 0, or fails the whole invoice with a not found error when strict is set.
func BuildInvoice(filter Filter, entries []time_entry.TimeEntry, projects project.Lookup, strict bool) (Invoice, error) {
	invoice := Invoice{Filter: filter, LineItems: []LineItem{}}
	currencies := map[string]bool{}

	for _, e := range SelectEntries(entries, projects, filter) {
		hours, _ := e.Hours()
		rate := 0.0
		p, found := projects[e.ProjectId]
		if found {
			rate = p.HourlyRate
			currencies[p.Currency] = true
		} else if strict {
			return Invoice{}, apperr.NotFound("project", e.ProjectId)
		}

		item := LineItem{
			EntryId:     e.Id,
			Description: e.Description,
			Date:        e.StartTime,
			Hours:       hours,
			Rate:        rate,
			Amount:      hours * rate,
		}
		invoice.LineItems = append(invoice.LineItems, item)
		invoice.TotalHours += item.Hours
		invoice.TotalAmount += item.Amount
	}

	if len(currencies) == 1 {
		for c := range currencies {
			invoice.Currency = c
		}
	}
	return invoice, nil
}
