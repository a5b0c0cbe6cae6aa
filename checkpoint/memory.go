package checkpoint

import (
	"context"
	"sync"

	"github.com/tbxark/fieldagent/state"
)

// MemoryStore keeps encoded payloads in process memory. Storing the bytes
// rather than the struct keeps its round-trip behavior identical to a real
// backend, which also makes it the reference store for tests.
type MemoryStore struct {
	mu       sync.RWMutex
	payloads map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{payloads: make(map[string][]byte)}
}

func (s *MemoryStore) Load(_ context.Context, sessionID string) (*state.Conversation, error) {
	s.mu.RLock()
	payload, ok := s.payloads[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, notFound(sessionID)
	}
	return Decode(payload)
}

func (s *MemoryStore) Save(_ context.Context, conv *state.Conversation) error {
	payload, err := Encode(conv)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.payloads[conv.SessionID] = payload
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	delete(s.payloads, sessionID)
	s.mu.Unlock()
	return nil
}

// Raw returns the stored payload bytes, for round-trip assertions.
func (s *MemoryStore) Raw(sessionID string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	payload, ok := s.payloads[sessionID]
	return payload, ok
}
