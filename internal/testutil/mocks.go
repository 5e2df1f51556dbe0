// Package testutil provides thread-safe in-memory fakes shared by tests.
package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/aakarsh-hub/pmcopilot/internal/gemini"
	"github.com/aakarsh-hub/pmcopilot/internal/meeting"
	"github.com/aakarsh-hub/pmcopilot/internal/store"
)

// MockGateway is an in-memory implementation of copilot.Gateway. Responses
// are returned in order; when exhausted, the last one repeats.
type MockGateway struct {
	mu sync.Mutex

	Responses []string
	Err       error

	Requests []gemini.Request
	Calls    int
}

func (g *MockGateway) Complete(_ context.Context, req gemini.Request) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Requests = append(g.Requests, req)
	g.Calls++
	if g.Err != nil {
		return "", g.Err
	}
	if len(g.Responses) == 0 {
		return "", fmt.Errorf("mock gateway: no response configured")
	}
	i := g.Calls - 1
	if i >= len(g.Responses) {
		i = len(g.Responses) - 1
	}
	return g.Responses[i], nil
}

// LastRequest returns the most recent request seen by the gateway.
func (g *MockGateway) LastRequest() gemini.Request {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.Requests) == 0 {
		return gemini.Request{}
	}
	return g.Requests[len(g.Requests)-1]
}

// MockStore is a thread-safe in-memory implementation of store.MeetingStore.
type MockStore struct {
	mu sync.Mutex

	Meetings map[string]*meeting.Meeting
	Order    []string // creation order, oldest first

	CreateErr error
	UpdateErr error

	CreateCalls int
	UpdateCalls int
}

func NewMockStore() *MockStore {
	return &MockStore{Meetings: make(map[string]*meeting.Meeting)}
}

func (s *MockStore) Create(_ context.Context, m *meeting.Meeting) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CreateCalls++
	if s.CreateErr != nil {
		return s.CreateErr
	}
	if _, ok := s.Meetings[m.ID]; ok {
		return fmt.Errorf("meeting %s already exists", m.ID)
	}
	cp := *m
	s.Meetings[m.ID] = &cp
	s.Order = append(s.Order, m.ID)
	return nil
}

func (s *MockStore) Update(_ context.Context, m *meeting.Meeting) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.UpdateCalls++
	if s.UpdateErr != nil {
		return s.UpdateErr
	}
	if _, ok := s.Meetings[m.ID]; !ok {
		return fmt.Errorf("meeting %s: %w", m.ID, store.ErrNotFound)
	}
	cp := *m
	s.Meetings[m.ID] = &cp
	return nil
}

func (s *MockStore) Get(_ context.Context, id string) (*meeting.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.Meetings[id]
	if !ok {
		return nil, fmt.Errorf("meeting %s: %w", id, store.ErrNotFound)
	}
	cp := *m
	return &cp, nil
}

func (s *MockStore) List(_ context.Context) ([]*meeting.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*meeting.Meeting, 0, len(s.Order))
	for i := len(s.Order) - 1; i >= 0; i-- {
		cp := *s.Meetings[s.Order[i]]
		out = append(out, &cp)
	}
	return out, nil
}

func (s *MockStore) Close() {}

// Seed inserts or replaces a meeting directly, bypassing call counters.
func (s *MockStore) Seed(m *meeting.Meeting) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.Meetings[m.ID]; !ok {
		s.Order = append(s.Order, m.ID)
	}
	cp := *m
	s.Meetings[m.ID] = &cp
}
