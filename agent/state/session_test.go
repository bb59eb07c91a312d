package state

import (
	"errors"
	"testing"
	"time"

	contractx "github.com/napat-k/Aftersale-Support-Agent/agent/contract"
)

func TestNewSessionStartsUnverified(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	sess := NewSession("s1", "CUST001", now)

	if sess.VerificationState != StateUnverified {
		t.Fatalf("VerificationState = %q, want %q", sess.VerificationState, StateUnverified)
	}
	if sess.VerificationAttempts != 0 {
		t.Fatalf("VerificationAttempts = %d, want 0", sess.VerificationAttempts)
	}
	if sess.Verified() {
		t.Fatal("Verified() = true for a fresh session")
	}
}

func TestAdvanceVerificationHappyPath(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	sess := NewSession("s1", "CUST001", now)

	if err := sess.AdvanceVerification(EventRequireVerification, now); err != nil {
		t.Fatalf("AdvanceVerification(require) error = %v", err)
	}
	if sess.VerificationState != StatePendingEmail {
		t.Fatalf("state = %q, want %q", sess.VerificationState, StatePendingEmail)
	}

	if err := sess.AdvanceVerification(EventEmailMatched, now); err != nil {
		t.Fatalf("AdvanceVerification(matched) error = %v", err)
	}
	if !sess.Verified() {
		t.Fatal("Verified() = false after a matched email")
	}
	if sess.VerifiedCustomerID != "CUST001" {
		t.Fatalf("VerifiedCustomerID = %q, want CUST001", sess.VerifiedCustomerID)
	}
	if sess.VerificationAttempts != 0 {
		t.Fatalf("VerificationAttempts = %d, want 0 after match", sess.VerificationAttempts)
	}
}

func TestAdvanceVerificationMismatchEscalatesAtCap(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	sess := NewSession("s1", "CUST001", now)
	if err := sess.AdvanceVerification(EventRequireVerification, now); err != nil {
		t.Fatalf("AdvanceVerification(require) error = %v", err)
	}

	for i := 1; i < MaxVerificationAttempts; i++ {
		if err := sess.AdvanceVerification(EventEmailMismatched, now); err != nil {
			t.Fatalf("mismatch %d error = %v", i, err)
		}
		if sess.VerificationState != StatePendingEmail {
			t.Fatalf("state after mismatch %d = %q, want %q", i, sess.VerificationState, StatePendingEmail)
		}
	}

	if err := sess.AdvanceVerification(EventEmailMismatched, now); err != nil {
		t.Fatalf("final mismatch error = %v", err)
	}
	if !sess.Escalated() {
		t.Fatalf("state = %q, want %q after %d mismatches", sess.VerificationState, StateEscalated, MaxVerificationAttempts)
	}
}

func TestAdvanceVerificationRejectsInvalidTransitions(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	sess := NewSession("s1", "CUST001", now)

	if err := sess.AdvanceVerification(EventEmailMatched, now); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("matched on UNVERIFIED error = %v, want ErrInvalidTransition", err)
	}
	if err := sess.AdvanceVerification(EventEmailMismatched, now); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("mismatch on UNVERIFIED error = %v, want ErrInvalidTransition", err)
	}

	sess.VerificationState = StateEscalated
	if err := sess.AdvanceVerification(EventRequireVerification, now); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("require on ESCALATED error = %v, want ErrInvalidTransition", err)
	}
}

func TestAdvanceVerificationResetClearsIdentity(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	sess := NewSession("s1", "CUST001", now)
	sess.VerificationState = StateVerified
	sess.VerifiedCustomerID = "CUST001"
	sess.PendingIntent = contractx.IntentWarrantyInquiry

	if err := sess.AdvanceVerification(EventReset, now); err != nil {
		t.Fatalf("AdvanceVerification(reset) error = %v", err)
	}
	if sess.VerificationState != StateUnverified {
		t.Fatalf("state = %q, want %q", sess.VerificationState, StateUnverified)
	}
	if sess.VerifiedCustomerID != "" {
		t.Fatalf("VerifiedCustomerID = %q, want empty", sess.VerifiedCustomerID)
	}
	if sess.PendingIntent != "" {
		t.Fatalf("PendingIntent = %q, want empty", sess.PendingIntent)
	}
}

func TestAppendTurnIsAppendOnly(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	sess := NewSession("s1", "CUST001", now)

	sess.AppendTurn(contractx.Turn{ID: "t1", Role: contractx.RoleUser, Text: "hello", Timestamp: now})
	sess.AppendTurn(contractx.Turn{ID: "t2", Role: contractx.RoleAgent, Text: "hi", Timestamp: now})
	sess.AppendTurn(contractx.Turn{ID: "t3", Role: contractx.RoleUser, Text: "warranty?", Timestamp: now})

	if len(sess.Turns) != 3 {
		t.Fatalf("len(Turns) = %d, want 3", len(sess.Turns))
	}
	if sess.Turns[0].ID != "t1" || sess.Turns[2].ID != "t3" {
		t.Fatalf("turn order disturbed: %v", sess.Turns)
	}

	last, ok := sess.LastUserTurn()
	if !ok || last.ID != "t3" {
		t.Fatalf("LastUserTurn() = %v, %v, want t3", last, ok)
	}
}

func TestValidateRejectsBrokenInvariants(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()

	tests := []struct {
		name  string
		make  func() *Session
	}{
		{
			name: "missing session id",
			make: func() *Session { return NewSession("", "CUST001", now) },
		},
		{
			name: "unknown verification state",
			make: func() *Session {
				s := NewSession("s1", "CUST001", now)
				s.VerificationState = "BOGUS"
				return s
			},
		},
		{
			name: "attempts at cap without escalation",
			make: func() *Session {
				s := NewSession("s1", "CUST001", now)
				s.VerificationState = StatePendingEmail
				s.VerificationAttempts = MaxVerificationAttempts
				return s
			},
		},
		{
			name: "verified without customer id",
			make: func() *Session {
				s := NewSession("s1", "CUST001", now)
				s.VerificationState = StateVerified
				return s
			},
		},
		{
			name: "unknown turn role",
			make: func() *Session {
				s := NewSession("s1", "CUST001", now)
				s.AppendTurn(contractx.Turn{ID: "t1", Role: "robot"})
				return s
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if err := tc.make().Validate(); err == nil {
				t.Fatal("Validate() = nil, want error")
			}
		})
	}
}
