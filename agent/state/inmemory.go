package state

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

// InMemoryStore keeps sessions in a process-local map. Useful for tests and
// single-instance deployments; values are deep-copied on both sides so
// callers never share mutable state with the store.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[string]*Session)}
}

func (s *InMemoryStore) Load(_ context.Context, sessionID string) (*Session, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, ErrInvalidSessionID
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrStateNotFound
	}
	return cloneSession(sess)
}

func (s *InMemoryStore) Save(_ context.Context, sess *Session) error {
	if sess == nil {
		return ErrNilSession
	}
	if err := sess.Validate(); err != nil {
		return err
	}
	copied, err := cloneSession(sess)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.SessionID] = copied
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return ErrInvalidSessionID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

func cloneSession(sess *Session) (*Session, error) {
	payload, err := json.Marshal(sess)
	if err != nil {
		return nil, fmt.Errorf("clone session: %w", err)
	}
	var copied Session
	if err := json.Unmarshal(payload, &copied); err != nil {
		return nil, fmt.Errorf("clone session: %w", err)
	}
	return &copied, nil
}
