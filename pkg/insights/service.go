package insights

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/tallyhq/tally/internal/apperr"
	"github.com/tallyhq/tally/pkg/invoice"
	"github.com/tallyhq/tally/pkg/time_entry"
)

const (
	SummaryUnavailable      = "AI Service Unavailable: Please check API Key."
	SummaryFailed           = "Could not generate summary due to an error."
	SummaryEmpty            = "Summary generation failed."
	ProductivityUnavailable = "AI Service Unavailable."
	ProductivityFailed      = "Could not analyze data."
	ProductivityEmpty       = "Analysis failed."
)

// productivityWindow is the number of most recent entries analyzed.
const productivityWindow = 20

// Service never fails because of text generation; it answers with one of the messages above
// instead. Errors come only from loading the user's data.
type Service interface {
	InvoiceSummary(ctx context.Context, filter invoice.Filter) (string, error)
	AnalyzeProductivity(ctx context.Context) (string, error)
}

type InvoiceProvider interface {
	Generate(ctx context.Context, filter invoice.Filter, strict bool) (invoice.Invoice, error)
}

type EntryProvider interface {
	ListEntries(ctx context.Context) ([]time_entry.TimeEntry, error)
}

type ServiceImpl struct {
	generator Generator
	invoices  InvoiceProvider
	entries   EntryProvider
}

func NewService(generator Generator, invoices InvoiceProvider, entries EntryProvider) *ServiceImpl {
	return &ServiceImpl{generator: generator, invoices: invoices, entries: entries}
}

func (s *ServiceImpl) InvoiceSummary(ctx context.Context, filter invoice.Filter) (string, error) {
	if filter.ProjectId == 0 {
		return "", apperr.Validation("projectId", "is required")
	}
	inv, err := s.invoices.Generate(ctx, filter, false)
	if err != nil {
		return "", err
	}
	if inv.BillTo == nil || inv.Project == nil {
		return "", apperr.Validation("projectId", "must reference a client project")
	}
	if len(inv.LineItems) == 0 {
		return "", apperr.Validation("", "no billable entries to summarize")
	}

	var tasks strings.Builder
	for _, item := range inv.LineItems {
		fmt.Fprintf(&tasks, "- %s (%s)\n", item.Description, item.Date.Format("2006-01-02"))
	}
	prompt := fmt.Sprintf(`You are a professional invoicing assistant.
I need a polite and professional invoice summary paragraph for my client %q regarding the project %q.

Here is the list of tasks completed:
%s
Please write a cohesive summary paragraph (max 3 sentences) describing the work done to be included on the invoice.
Do not include markdown formatting. Keep it formal yet warm.`, inv.BillTo.Name, inv.Project.Name, tasks.String())

	return s.generate(ctx, prompt, SummaryUnavailable, SummaryFailed, SummaryEmpty), nil
}

func (s *ServiceImpl) AnalyzeProductivity(ctx context.Context) (string, error) {
	entries, err := s.entries.ListEntries(ctx)
	if err != nil {
		return "", err
	}
	recent := RecentEntries(entries, productivityWindow)

	var logs strings.Builder
	for _, e := range recent {
		hours, _ := e.Hours()
		fmt.Fprintf(&logs, "Task: %s, Duration: %.2f hours, Date: %s\n", e.Description, hours, e.StartTime.Format("2006-01-02"))
	}
	prompt := fmt.Sprintf(`Analyze the following freelance work logs:
%s
Provide a brief, encouraging insight about the user's productivity patterns or main focus areas.
Keep it under 50 words.`, logs.String())

	return s.generate(ctx, prompt, ProductivityUnavailable, ProductivityFailed, ProductivityEmpty), nil
}

// RecentEntries returns up to n entries with the latest start times, newest first.
func RecentEntries(entries []time_entry.TimeEntry, n int) []time_entry.TimeEntry {
	sorted := slices.Clone(entries)
	slices.SortStableFunc(sorted, func(a, b time_entry.TimeEntry) int {
		return b.StartTime.Compare(a.StartTime)
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

func (s *ServiceImpl) generate(ctx context.Context, prompt, unavailable, failed, empty string) string {
	text, err := s.generator.Generate(ctx, prompt)
	if errors.Is(err, ErrUnavailable) {
		return unavailable
	}
	if err != nil {
		log.Errorf("text generation failed: %v", err)
		return failed
	}
	if strings.TrimSpace(text) == "" {
		return empty
	}
	return text
}
