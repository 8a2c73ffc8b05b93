package project

import "time"

const (
	DefaultColor    = "#3b82f6"
	DefaultCurrency = "USD"
)

type Project struct {
	Id       int
	ClientId int
	Name     string
	// HourlyRate is expressed in Currency per hour; never negative.
	HourlyRate float64
	Color      string
	Currency   string
	CreatedAt  time.Time
}

// Lookup indexes projects by id.
type Lookup map[int]Project

func NewLookup(projects []Project) Lookup {
	lookup := make(Lookup, len(projects))
	for _, p := range projects {
		lookup[p.Id] = p
	}
	return lookup
}
