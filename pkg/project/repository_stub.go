package project

import (
	"context"
	"sort"
	"time"
)

type StubRepository struct {
	nextId   int
	projects map[int]map[int]Project // userId -> projectId -> project
	// Entries simulates time entries booked per project.
	Entries map[int]int
}

func NewStubRepository() *StubRepository {
	return &StubRepository{
		projects: map[int]map[int]Project{},
		Entries:  map[int]int{},
	}
}

func (s *StubRepository) ListProjects(ctx context.Context, userId int) ([]Project, error) {
	projects := make([]Project, 0, len(s.projects[userId]))
	for _, p := range s.projects[userId] {
		projects = append(projects, p)
	}
	sort.Slice(projects, func(i, j int) bool { return projects[i].Id > projects[j].Id })
	return projects, nil
}

func (s *StubRepository) GetProject(ctx context.Context, userId int, id int) (Project, error) {
	p, ok := s.projects[userId][id]
	if !ok {
		return Project{}, ErrProjectNotFound
	}
	return p, nil
}

func (s *StubRepository) CreateProject(ctx context.Context, userId int, project Project) (Project, error) {
	s.nextId++
	project.Id = s.nextId
	project.CreatedAt = time.Now()
	if s.projects[userId] == nil {
		s.projects[userId] = map[int]Project{}
	}
	s.projects[userId][project.Id] = project
	return project, nil
}

func (s *StubRepository) UpdateProject(ctx context.Context, userId int, project Project) (Project, error) {
	existing, ok := s.projects[userId][project.Id]
	if !ok {
		return Project{}, ErrProjectNotFound
	}
	project.CreatedAt = existing.CreatedAt
	s.projects[userId][project.Id] = project
	return project, nil
}

func (s *StubRepository) DeleteProject(ctx context.Context, userId int, id int) (bool, error) {
	if _, ok := s.projects[userId][id]; !ok {
		return false, nil
	}
	if s.Entries[id] > 0 {
		return false, ErrProjectInUse
	}
	delete(s.projects[userId], id)
	return true, nil
}

func (s *StubRepository) CountTimeEntries(ctx context.Context, userId int, id int) (int, error) {
	return s.Entries[id], nil
}
