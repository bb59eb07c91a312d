package turnnode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/napat-k/Aftersale-Support-Agent/agent/contract"
)

// NotifyEscalation reports a session that escalated this turn to human
// support. Delivery failures are logged, not fatal: the session is already
// in ESCALATED state and the user already holds the escalation reply.
func NotifyEscalation(ctx context.Context, in *GraphState, notifier contractx.HandoffNotifier) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}
	if !in.Escalated || notifier == nil {
		return in, nil
	}

	e := contractx.Escalation{
		SessionID:  in.SessionID,
		CustomerID: in.UserID,
		Reason:     "identity verification attempts exhausted",
		Attempts:   in.Session.VerificationAttempts,
		At:         in.Now,
	}
	if err := notifier.Notify(ctx, e); err != nil {
		log.Error().Err(err).
			Str("session_id", in.SessionID).
			Msg("escalation hand-off delivery failed")
	}
	return in, nil
}
