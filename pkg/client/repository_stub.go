package client

import (
	"context"
	"sort"
	"time"
)

type StubRepository struct {
	nextId  int
	clients map[int]map[int]Client // userId -> clientId -> client
	// Entries simulates time entries booked per client.
	Entries map[int]int
	// DeletedClients records every successful delete, for cascade assertions.
	DeletedClients []int
}

func NewStubRepository() *StubRepository {
	return &StubRepository{
		clients: map[int]map[int]Client{},
		Entries: map[int]int{},
	}
}

func (s *StubRepository) ListClients(ctx context.Context, userId int) ([]Client, error) {
	clients := make([]Client, 0, len(s.clients[userId]))
	for _, c := range s.clients[userId] {
		clients = append(clients, c)
	}
	sort.Slice(clients, func(i, j int) bool { return clients[i].Id > clients[j].Id })
	return clients, nil
}

func (s *StubRepository) GetClient(ctx context.Context, userId int, id int) (Client, error) {
	c, ok := s.clients[userId][id]
	if !ok {
		return Client{}, ErrClientNotFound
	}
	return c, nil
}

func (s *StubRepository) CreateClient(ctx context.Context, userId int, client Client) (Client, error) {
	s.nextId++
	client.Id = s.nextId
	client.CreatedAt = time.Now()
	if s.clients[userId] == nil {
		s.clients[userId] = map[int]Client{}
	}
	s.clients[userId][client.Id] = client
	return client, nil
}

func (s *StubRepository) UpdateClient(ctx context.Context, userId int, client Client) (Client, error) {
	existing, ok := s.clients[userId][client.Id]
	if !ok {
		return Client{}, ErrClientNotFound
	}
	client.CreatedAt = existing.CreatedAt
	s.clients[userId][client.Id] = client
	return client, nil
}

func (s *StubRepository) DeleteClient(ctx context.Context, userId int, id int) (bool, error) {
	if _, ok := s.clients[userId][id]; !ok {
		return false, nil
	}
	if s.Entries[id] > 0 {
		return false, ErrClientInUse
	}
	delete(s.clients[userId], id)
	s.DeletedClients = append(s.DeletedClients, id)
	return true, nil
}

func (s *StubRepository) CountTimeEntries(ctx context.Context, userId int, id int) (int, error) {
	return s.Entries[id], nil
}
