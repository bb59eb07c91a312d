package state

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	contractx "github.com/napat-k/Aftersale-Support-Agent/agent/contract"
)

// Manager owns session access. It is the only path to the session store and
// serializes turns per session: Lock must be held for the duration of turn
// processing, so a session's state is exclusively owned by the turn handling
// it. Turns for different sessions proceed concurrently.
type Manager struct {
	store Store
	locks sync.Map // session id -> *sync.Mutex
}

func NewManager(store Store) (*Manager, error) {
	if store == nil {
		return nil, errors.New("session store is required")
	}
	return &Manager{store: store}, nil
}

// Lock acquires the per-session mutex and returns its release func. The
// caller must release on all exit paths.
func (m *Manager) Lock(sessionID string) func() {
	v, _ := m.locks.LoadOrStore(sessionID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// GetOrCreate loads the session or creates a fresh one on first contact.
// If the stored session carries a different claimed identity than userID,
// the user is claiming a different customer: verification is reset before
// the new identity is adopted.
func (m *Manager) GetOrCreate(ctx context.Context, sessionID, userID string, now time.Time) (*Session, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, ErrInvalidSessionID
	}

	sess, err := m.store.Load(ctx, sessionID)
	if errors.Is(err, ErrStateNotFound) {
		return NewSession(sessionID, userID, now), nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load session %s: %v", contractx.ErrSessionUnavailable, sessionID, err)
	}

	if userID != "" && sess.UserID != userID {
		if err := sess.AdvanceVerification(EventReset, now); err != nil {
			return nil, err
		}
		sess.UserID = userID
	}
	return sess, nil
}

// Save validates and persists the session.
func (m *Manager) Save(ctx context.Context, sess *Session) error {
	if sess == nil {
		return ErrNilSession
	}
	if err := sess.Validate(); err != nil {
		return err
	}
	if err := m.store.Save(ctx, sess); err != nil {
		return fmt.Errorf("%w: save session %s: %v", contractx.ErrSessionUnavailable, sess.SessionID, err)
	}
	return nil
}
