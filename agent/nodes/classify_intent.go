package turnnode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/napat-k/Aftersale-Support-Agent/agent/contract"
	statex "github.com/napat-k/Aftersale-Support-Agent/agent/state"
)

// ClassifyIntent consults the language-understanding capability. Escalated
// sessions and pending verifications skip classification: the router handles
// those turns structurally. A classifier outage degrades to IntentUnknown
// (clarify branch) instead of failing the turn.
func ClassifyIntent(ctx context.Context, in *GraphState, classifier contractx.Classifier) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}

	if in.Session.Escalated() || in.Session.VerificationState == statex.StatePendingEmail {
		in.Intent = contractx.IntentUnknown
		return in, nil
	}

	recognized, err := classifier.Classify(ctx, in.Text)
	if err != nil {
		log.Warn().Str("session_id", in.SessionID).Err(err).Msg("intent classification failed, falling back to clarify")
		in.Intent = contractx.IntentUnknown
		return in, nil
	}
	in.Intent = recognized
	return in, nil
}
