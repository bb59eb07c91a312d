package turnnode

import (
	"fmt"

	contractx "github.com/napat-k/Aftersale-Support-Agent/agent/contract"
	routerx "github.com/napat-k/Aftersale-Support-Agent/agent/router"
	statex "github.com/napat-k/Aftersale-Support-Agent/agent/state"
)

// RouteTurn builds the action plan and parks account-bound intents behind
// verification when needed.
func RouteTurn(in *GraphState) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}

	decision := routerx.Route(in.Text, in.Intent, in.Session)

	if decision.Action == contractx.ActionRequestVerification {
		if err := in.Session.AdvanceVerification(statex.EventRequireVerification, in.Now); err != nil {
			return nil, err
		}
		if routerx.AccountBound(decision.Intent) {
			in.Session.PendingIntent = decision.Intent
		}
	}

	in.Decision = decision
	return in, nil
}
