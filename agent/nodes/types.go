// Package turnnode holds the per-stage functions of the turn-processing
// graph. Each node is a thin wrapper over a pure core so the stages stay
// individually testable.
package turnnode

import (
	"errors"
	"strings"
	"time"

	contractx "github.com/napat-k/Aftersale-Support-Agent/agent/contract"
	statex "github.com/napat-k/Aftersale-Support-Agent/agent/state"
)

var (
	ErrInvalidMessage = errors.New("message is empty")
	ErrInvalidSession = errors.New("session id is empty")
	ErrInvalidUser    = errors.New("user id is empty")
)

type GraphInput struct {
	SessionID string
	UserID    string
	Text      string
}

type GraphOutput struct {
	Reply contractx.Reply
}

// GraphState is threaded through the pipeline; each node fills in its slice.
type GraphState struct {
	SessionID string
	UserID    string
	Text      string
	Now       time.Time

	Session *statex.Session
	Facts   []contractx.MemoryFact

	Intent       contractx.Intent
	Decision     contractx.Decision
	Verification *contractx.VerificationResult

	Calls []contractx.ToolCall
	Reply contractx.Reply

	// NewFacts are durable statements learned this turn, written out after
	// the session is saved.
	NewFacts []contractx.MemoryFact
	// Escalated is set when this turn tipped the session into ESCALATED.
	Escalated bool
}

func ValidateRequest(in GraphInput, nowFn func() time.Time) (*GraphState, error) {
	sessionID := strings.TrimSpace(in.SessionID)
	if sessionID == "" {
		return nil, ErrInvalidSession
	}
	userID := strings.TrimSpace(in.UserID)
	if userID == "" {
		return nil, ErrInvalidUser
	}
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, ErrInvalidMessage
	}

	return &GraphState{
		SessionID: sessionID,
		UserID:    userID,
		Text:      text,
		Now:       nowFn().UTC(),
	}, nil
}
