package turnnode

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	contractx "github.com/napat-k/Aftersale-Support-Agent/agent/contract"
	routerx "github.com/napat-k/Aftersale-Support-Agent/agent/router"
	statex "github.com/napat-k/Aftersale-Support-Agent/agent/state"
	verifyx "github.com/napat-k/Aftersale-Support-Agent/agent/verify"
)

// VerifyIdentity resolves an identity claim. On a match the parked intent is
// re-routed so the original question is answered in this turn; on a mismatch
// the session either re-asks or, at the attempt cap, escalates.
func VerifyIdentity(ctx context.Context, in *GraphState, verifier *verifyx.Verifier, checkTimeout time.Duration) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}
	if in.Decision.Action != contractx.ActionVerifyIdentity {
		return in, nil
	}
	sess := in.Session
	wasVerified := sess.VerificationState == statex.StateVerified

	// An email volunteered before any verification was requested opens one.
	if sess.VerificationState == statex.StateUnverified {
		if err := sess.AdvanceVerification(statex.EventRequireVerification, in.Now); err != nil {
			return nil, err
		}
	}

	checkCtx := ctx
	if checkTimeout > 0 {
		var cancel context.CancelFunc
		checkCtx, cancel = context.WithTimeout(ctx, checkTimeout)
		defer cancel()
	}

	result, err := verifier.Check(checkCtx, sess, in.Decision.SubmittedEmail)
	if err != nil {
		// Verification cannot proceed; state stays untouched and the
		// composer degrades on the recorded failure.
		log.Warn().Str("session_id", in.SessionID).Err(err).Msg("identity check unavailable")
		in.Calls = append(in.Calls, contractx.ToolCall{
			ID:     uuid.NewString(),
			Name:   contractx.ToolCRMQueryCustomer,
			Err:    err.Error(),
			Status: contractx.ToolStatusFailed,
		})
		in.Decision = contractx.Decision{Action: contractx.ActionAnswer, Intent: in.Decision.Intent}
		return in, nil
	}

	in.Verification = &result

	// A claim on an already-verified session is either a re-confirmation of
	// the same identity (no state change) or an attempt to switch, which
	// restarts verification from scratch.
	if wasVerified {
		if result.Matched {
			in.Decision = routerx.RouteVerified(sess)
			return in, nil
		}
		for _, ev := range []statex.VerificationEvent{
			statex.EventReset,
			statex.EventRequireVerification,
			statex.EventEmailMismatched,
		} {
			if err := sess.AdvanceVerification(ev, in.Now); err != nil {
				return nil, err
			}
		}
		in.Decision = contractx.Decision{Action: contractx.ActionRequestVerification, Intent: in.Decision.Intent}
		return in, nil
	}

	if result.Matched {
		if err := sess.AdvanceVerification(statex.EventEmailMatched, in.Now); err != nil {
			return nil, err
		}
		in.NewFacts = append(in.NewFacts, contractx.MemoryFact{
			Scope:     contractx.UserScope(sess.UserID),
			Key:       "confirmed_email",
			Value:     in.Decision.SubmittedEmail,
			LearnedAt: in.Now,
		})
		in.Decision = routerx.RouteVerified(sess)
		sess.PendingIntent = ""
		return in, nil
	}

	if err := sess.AdvanceVerification(statex.EventEmailMismatched, in.Now); err != nil {
		return nil, err
	}
	if sess.Escalated() {
		in.Escalated = true
		in.Decision = contractx.Decision{Action: contractx.ActionEscalate, Intent: in.Decision.Intent}
		return in, nil
	}
	in.Decision = contractx.Decision{Action: contractx.ActionRequestVerification, Intent: sess.PendingIntent}
	return in, nil
}
