package report

import (
	"bytes"
	"encoding/csv"
	"slices"
	"strconv"

	log "github.com/sirupsen/logrus"
)

type Renderer interface {
	RenderDashboard(dashboard Dashboard) (string, error)
}

type CsvRendererImpl struct {
}

func NewCsvRenderer() *CsvRendererImpl {
	return &CsvRendererImpl{}
}

// RenderDashboard writes one row per histogram day with a column for every project booked that
// week, followed by the totals.
func (t *CsvRendererImpl) RenderDashboard(dashboard Dashboard) (string, error) {
	projectIds := weekProjects(dashboard.Week)
	names := make(map[int]string, len(dashboard.Projects))
	for _, p := range dashboard.Projects {
		names[p.Id] = p.Name
	}

	header := make([]string, 0, len(projectIds)+3)
	header = append(header, "Date", "Day")
	for _, id := range projectIds {
		header = append(header, names[id])
	}
	header = append(header, "Total")

	data := make([][]string, 0, len(dashboard.Week)+4)
	data = append(data, header)
	for _, day := range dashboard.Week {
		row := make([]string, 0, len(header))
		row = append(row, day.Date.Format("2006-01-02"), day.Label)
		byProject := make(map[int]float64, len(day.Projects))
		for _, ph := range day.Projects {
			byProject[ph.ProjectId] = ph.Hours
		}
		for _, id := range projectIds {
			row = append(row, formatNumber(byProject[id]))
		}
		row = append(row, formatNumber(day.Hours))
		data = append(data, row)
	}
	data = append(data,
		[]string{"Total hours", formatNumber(dashboard.TotalHours)},
		[]string{"Billable hours", formatNumber(dashboard.BillableHours)},
		[]string{"Earnings", formatNumber(dashboard.TotalEarnings)},
	)

	var b bytes.Buffer
	writer := csv.NewWriter(&b)
	for _, row := range data {
		err := writer.Write(row)
		if err != nil {
			log.Errorf("Error writing to csv: %v", err)
			return "", err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		log.Errorf("Error writing to csv: %v", err)
		return "", err
	}

	return b.String(), nil
}

// weekProjects lists the ids of projects with hours in any bucket, ascending.
func weekProjects(week []DayBucket) []int {
	seen := map[int]bool{}
	ids := make([]int, 0)
	for _, day := range week {
		for _, ph := range day.Projects {
			if !seen[ph.ProjectId] {
				seen[ph.ProjectId] = true
				ids = append(ids, ph.ProjectId)
			}
		}
	}
	slices.Sort(ids)
	return ids
}

func formatNumber(value float64) string {
	return strconv.FormatFloat(value, 'f', 2, 64)
}
