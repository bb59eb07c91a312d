package state

import (
	"errors"
	"fmt"
	"time"

	contractx "github.com/napat-k/Aftersale-Support-Agent/agent/contract"
)

// VerificationState tracks how far a session has come in proving the
// claimed customer identity. Transitions are monotonic within a session:
// UNVERIFIED -> PENDING_EMAIL -> VERIFIED, with PENDING_EMAIL looping on
// mismatches until the attempt cap tips it into ESCALATED. Only an
// explicit reset (the user claims a different customer id) goes backward.
type VerificationState string

const (
	StateUnverified   VerificationState = "UNVERIFIED"
	StatePendingEmail VerificationState = "PENDING_EMAIL"
	StateVerified     VerificationState = "VERIFIED"
	StateEscalated    VerificationState = "ESCALATED"
)

// MaxVerificationAttempts is the escalation threshold: the mismatch that
// brings the counter to this value hands the session to a human.
const MaxVerificationAttempts = 3

// VerificationEvent drives the state machine.
type VerificationEvent string

const (
	EventRequireVerification VerificationEvent = "require_verification"
	EventEmailMatched        VerificationEvent = "email_matched"
	EventEmailMismatched     VerificationEvent = "email_mismatched"
	EventReset               VerificationEvent = "reset"
)

var (
	ErrStateNotFound     = errors.New("session not found")
	ErrNilSession        = errors.New("session is nil")
	ErrInvalidSessionID  = errors.New("session id is empty")
	ErrInvalidTransition = errors.New("invalid verification transition")
)

// Session is the per-conversation state, owned by the session store and
// serialized by the Manager. Turn history is append-only.
type Session struct {
	SessionID string `json:"session_id"`
	// UserID is the claimed customer identity from the hosting layer.
	UserID string `json:"user_id"`

	Turns []contractx.Turn `json:"turns,omitempty"`

	VerificationState    VerificationState `json:"verification_state"`
	VerificationAttempts int               `json:"verification_attempts"`
	// VerifiedCustomerID is set only after a successful email check and
	// names the customer whose CRM-bound data may be disclosed.
	VerifiedCustomerID string `json:"verified_customer_id,omitempty"`
	// PendingIntent is the account-bound intent parked while verification
	// is in flight; it is resumed on success.
	PendingIntent contractx.Intent `json:"pending_intent,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

func NewSession(sessionID, userID string, now time.Time) *Session {
	return &Session{
		SessionID:         sessionID,
		UserID:            userID,
		VerificationState: StateUnverified,
		UpdatedAt:         now.UTC(),
	}
}

func (s *Session) Touch(now time.Time) {
	s.UpdatedAt = now.UTC()
}

// Verified reports whether account-bound data may be released.
func (s *Session) Verified() bool {
	return s != nil && s.VerificationState == StateVerified && s.VerifiedCustomerID != ""
}

// Escalated reports whether the session has been handed to human support.
func (s *Session) Escalated() bool {
	return s != nil && s.VerificationState == StateEscalated
}

// AppendTurn adds a turn to the history. Past turns are never edited.
func (s *Session) AppendTurn(t contractx.Turn) {
	s.Turns = append(s.Turns, t)
}

// LastUserTurn returns the most recent user turn, if any.
func (s *Session) LastUserTurn() (contractx.Turn, bool) {
	for i := len(s.Turns) - 1; i >= 0; i-- {
		if s.Turns[i].Role == contractx.RoleUser {
			return s.Turns[i], true
		}
	}
	return contractx.Turn{}, false
}

// AdvanceVerification applies one event to the verification state machine.
//
//	UNVERIFIED    --require--> PENDING_EMAIL
//	PENDING_EMAIL --matched--> VERIFIED        (attempts reset)
//	PENDING_EMAIL --mismatch-> PENDING_EMAIL   (attempts+1, while < cap)
//	PENDING_EMAIL --mismatch-> ESCALATED       (attempts reaches cap)
//	any           --reset----> UNVERIFIED      (attempts reset, identity cleared)
func (s *Session) AdvanceVerification(ev VerificationEvent, now time.Time) error {
	if s == nil {
		return ErrNilSession
	}

	switch ev {
	case EventReset:
		s.VerificationState = StateUnverified
		s.VerificationAttempts = 0
		s.VerifiedCustomerID = ""
		s.PendingIntent = ""

	case EventRequireVerification:
		switch s.VerificationState {
		case StateUnverified:
			s.VerificationState = StatePendingEmail
		case StatePendingEmail:
			// already waiting for an email
		default:
			return fmt.Errorf("%w: %s on %s", ErrInvalidTransition, ev, s.VerificationState)
		}

	case EventEmailMatched:
		if s.VerificationState != StatePendingEmail {
			return fmt.Errorf("%w: %s on %s", ErrInvalidTransition, ev, s.VerificationState)
		}
		s.VerificationState = StateVerified
		s.VerificationAttempts = 0
		s.VerifiedCustomerID = s.UserID

	case EventEmailMismatched:
		if s.VerificationState != StatePendingEmail {
			return fmt.Errorf("%w: %s on %s", ErrInvalidTransition, ev, s.VerificationState)
		}
		s.VerificationAttempts++
		if s.VerificationAttempts >= MaxVerificationAttempts {
			s.VerificationState = StateEscalated
		}

	default:
		return fmt.Errorf("%w: unknown event %q", ErrInvalidTransition, ev)
	}

	s.Touch(now)
	return nil
}

// Validate checks structural invariants before persisting.
func (s *Session) Validate() error {
	if s == nil {
		return ErrNilSession
	}
	if s.SessionID == "" {
		return ErrInvalidSessionID
	}
	switch s.VerificationState {
	case StateUnverified, StatePendingEmail, StateVerified, StateEscalated:
	default:
		return fmt.Errorf("unknown verification state %q", s.VerificationState)
	}
	if s.VerificationAttempts < 0 || s.VerificationAttempts > MaxVerificationAttempts {
		return fmt.Errorf("verification attempts out of range: %d", s.VerificationAttempts)
	}
	if s.VerificationAttempts == MaxVerificationAttempts && s.VerificationState != StateEscalated {
		return fmt.Errorf("attempt cap reached without escalation")
	}
	if s.VerificationState == StateVerified && s.VerifiedCustomerID == "" {
		return fmt.Errorf("verified session missing verified customer id")
	}
	for _, t := range s.Turns {
		if t.Role != contractx.RoleUser && t.Role != contractx.RoleAgent {
			return fmt.Errorf("turn %s has unknown role %q", t.ID, t.Role)
		}
	}
	return nil
}
