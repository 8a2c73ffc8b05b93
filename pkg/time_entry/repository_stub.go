package time_entry

import (
	"context"
	"sort"
	"sync"
	"time"
)

// StubRepository keeps entries in memory. The mutex plays the role of the user row lock.
type StubRepository struct {
	mu      sync.Mutex
	nextId  int
	entries map[int]map[int]TimeEntry // userId -> entryId -> entry
}

func NewStubRepository() *StubRepository {
	return &StubRepository{entries: map[int]map[int]TimeEntry{}}
}

func (s *StubRepository) ListEntries(ctx context.Context, userId int) ([]TimeEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := make([]TimeEntry, 0, len(s.entries[userId]))
	for _, e := range s.entries[userId] {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].StartTime.Equal(entries[j].StartTime) {
			return entries[i].Id > entries[j].Id
		}
		return entries[i].StartTime.After(entries[j].StartTime)
	})
	return entries, nil
}

func (s *StubRepository) GetEntry(ctx context.Context, userId int, id int) (TimeEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[userId][id]
	if !ok {
		return TimeEntry{}, ErrEntryNotFound
	}
	return e, nil
}

func (s *StubRepository) FindActiveEntry(ctx context.Context, userId int) (TimeEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active(userId), nil
}

func (s *StubRepository) StartTimer(ctx context.Context, userId int, entry TimeEntry, stopAt *time.Time) (TimeEntry, TimeEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var stopped TimeEntry
	if active := s.active(userId); active.Id != 0 {
		if stopAt == nil {
			return TimeEntry{}, TimeEntry{}, ErrActiveTimerExists
		}
		stopped = s.stop(userId, active, *stopAt)
	}
	return s.insert(userId, entry), stopped, nil
}

func (s *StubRepository) StopActiveEntry(ctx context.Context, userId int, endTime time.Time) (TimeEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	active := s.active(userId)
	if active.Id == 0 {
		return TimeEntry{}, nil
	}
	return s.stop(userId, active, endTime), nil
}

func (s *StubRepository) CreateEntry(ctx context.Context, userId int, entry TimeEntry) (TimeEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry.IsRunning() && s.active(userId).Id != 0 {
		return TimeEntry{}, ErrActiveTimerExists
	}
	return s.insert(userId, entry), nil
}

func (s *StubRepository) UpdateEntry(ctx context.Context, userId int, entry TimeEntry) (TimeEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.entries[userId][entry.Id]
	if !ok {
		return TimeEntry{}, ErrEntryNotFound
	}
	if !existing.IsRunning() && entry.IsRunning() {
		return TimeEntry{}, ErrEntryCompleted
	}
	if active := s.active(userId); entry.IsRunning() && active.Id != 0 && active.Id != entry.Id {
		return TimeEntry{}, ErrActiveTimerExists
	}
	s.entries[userId][entry.Id] = entry
	return entry, nil
}

func (s *StubRepository) DeleteEntry(ctx context.Context, userId int, id int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[userId][id]; !ok {
		return false, nil
	}
	delete(s.entries[userId], id)
	return true, nil
}

func (s *StubRepository) active(userId int) TimeEntry {
	for _, e := range s.entries[userId] {
		if e.IsRunning() {
			return e
		}
	}
	return TimeEntry{}
}

func (s *StubRepository) stop(userId int, entry TimeEntry, endTime time.Time) TimeEntry {
	if endTime.Before(entry.StartTime) {
		endTime = entry.StartTime
	}
	entry.EndTime = &endTime
	s.entries[userId][entry.Id] = entry
	return entry
}

func (s *StubRepository) insert(userId int, entry TimeEntry) TimeEntry {
	s.nextId++
	entry.Id = s.nextId
	if s.entries[userId] == nil {
		s.entries[userId] = map[int]TimeEntry{}
	}
	s.entries[userId][entry.Id] = entry
	return entry
}
