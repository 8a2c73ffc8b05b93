package user

import (
	"time"

	log "github.com/sirupsen/logrus"
)

type User struct {
	Id          int
	Uid         string
	Username    string
	DisplayName string
	Settings    Settings
}

type Settings struct {
	// Timezone is an IANA zone name; calendar-day grouping in reports happens in this zone.
	Timezone string
}

// Location resolves the user's timezone, falling back to UTC for empty or unknown names.
func (s Settings) Location() *time.Location {
	if s.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		log.Warnf("unknown timezone %q, using UTC: %v", s.Timezone, err)
		return time.UTC
	}
	return loc
}
