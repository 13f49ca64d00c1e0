package session

import (
	"context"
	"sync"
)

// MemoryStore keeps sessions in process memory. Suitable for single
// instance deployments and tests.
type MemoryStore struct {
	mu         sync.RWMutex
	sessions   map[string][]Exchange
	maxHistory int
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a store capped at maxHistory exchanges per
// session. Non-positive caps fall back to 10.
func NewMemoryStore(maxHistory int) *MemoryStore {
	if maxHistory <= 0 {
		maxHistory = 10
	}
	return &MemoryStore{
		sessions:   make(map[string][]Exchange),
		maxHistory: maxHistory,
	}
}

func (s *MemoryStore) Create(_ context.Context) (string, error) {
	sessionID := NewSessionID()

	s.mu.Lock()
	s.sessions[sessionID] = nil
	s.mu.Unlock()

	return sessionID, nil
}

func (s *MemoryStore) History(_ context.Context, sessionID string) ([]Exchange, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.sessions[sessionID]
	out := make([]Exchange, len(stored))
	copy(out, stored)
	return out, nil
}

func (s *MemoryStore) AddExchange(_ context.Context, sessionID, userMsg, assistantMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := append(s.sessions[sessionID], Exchange{
		UserMessage:      userMsg,
		AssistantMessage: assistantMsg,
	})
	if len(history) > s.maxHistory {
		history = history[len(history)-s.maxHistory:]
	}
	s.sessions[sessionID] = history
	return nil
}

func (s *MemoryStore) Reset(_ context.Context, sessionID string) error {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	return nil
}
