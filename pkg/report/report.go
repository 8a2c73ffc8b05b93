package report

import (
	"sort"
	"time"

	"github.com/tallyhq/tally/pkg/project"
	"github.com/tallyhq/tally/pkg/time_entry"
)

const DefaultDays = 7

type ProjectHours struct {
	ProjectId int
	Hours     float64
}

// DayBucket holds the completed hours whose entries started on Date, a local midnight.
type DayBucket struct {
	Date     time.Time
	Label    string
	Hours    float64
	Projects []ProjectHours
}

type Summary struct {
	TotalHours     float64
	BillableHours  float64
	TotalEarnings  float64
	ActiveProjects int
	ActiveTimer    *time_entry.TimeEntry
	Week           []DayBucket
}

// TotalHours sums completed entries. Running entries and entries with an inverted range add nothing.
// Entries whose project is gone still count.
func TotalHours(entries []time_entry.TimeEntry) float64 {
	total := 0.0
	for _, e := range entries {
		if hours, ok := e.Hours(); ok {
			total += hours
		}
	}
	return total
}

func BillableHours(entries []time_entry.TimeEntry) float64 {
	total := 0.0
	for _, e := range entries {
		if !e.Billable {
			continue
		}
		if hours, ok := e.Hours(); ok {
			total += hours
		}
	}
	return total
}

// TotalEarnings sums hours x hourly rate over completed billable entries. Entries of unknown
// projects earn nothing.
func TotalEarnings(entries []time_entry.TimeEntry, projects project.Lookup) float64 {
	total := 0.0
	for _, e := range entries {
		if !e.Billable {
			continue
		}
		p, found := projects[e.ProjectId]
		if !found {
			continue
		}
		if hours, ok := e.Hours(); ok {
			total += hours * p.HourlyRate
		}
	}
	return total
}

type calendarDay struct {
	year  int
	month time.Month
	day   int
}

func dayOf(t time.Time) calendarDay {
	y, m, d := t.Date()
	return calendarDay{y, m, d}
}

// WeeklyHistogram returns one bucket per calendar day for the last days days, oldest first, the
// last one being the day of reference. Days are taken in reference's location. Entries of unknown
// projects count towards Hours but are left out of the per-project breakdown.
func WeeklyHistogram(entries []time_entry.TimeEntry, projects project.Lookup, reference time.Time, days int) []DayBucket {
	if days <= 0 {
		days = DefaultDays
	}
	loc := reference.Location()
	y, m, d := reference.Date()

	buckets := make([]DayBucket, days)
	index := make(map[calendarDay]int, days)
	for i := range buckets {
		date := time.Date(y, m, d-(days-1-i), 0, 0, 0, 0, loc)
		buckets[i] = DayBucket{Date: date, Label: date.Format("Mon"), Projects: []ProjectHours{}}
		index[dayOf(date)] = i
	}

	perProject := make([]map[int]float64, days)
	for _, e := range entries {
		hours, ok := e.Hours()
		if !ok {
			continue
		}
		i, found := index[dayOf(e.StartTime.In(loc))]
		if !found {
			continue
		}
		buckets[i].Hours += hours
		if _, known := projects[e.ProjectId]; !known {
			continue
		}
		if perProject[i] == nil {
			perProject[i] = map[int]float64{}
		}
		perProject[i][e.ProjectId] += hours
	}

	for i, byProject := range perProject {
		for projectId, hours := range byProject {
			buckets[i].Projects = append(buckets[i].Projects, ProjectHours{ProjectId: projectId, Hours: hours})
		}
		sort.Slice(buckets[i].Projects, func(a, b int) bool {
			return buckets[i].Projects[a].ProjectId < buckets[i].Projects[b].ProjectId
		})
	}
	return buckets
}

func Summarize(entries []time_entry.TimeEntry, projects project.Lookup, reference time.Time, days int) Summary {
	summary := Summary{
		TotalHours:     TotalHours(entries),
		BillableHours:  BillableHours(entries),
		TotalEarnings:  TotalEarnings(entries, projects),
		ActiveProjects: len(projects),
		Week:           WeeklyHistogram(entries, projects, reference, days),
	}
	for _, e := range entries {
		if e.IsRunning() {
			active := e
			summary.ActiveTimer = &active
			break
		}
	}
	return summary
}
