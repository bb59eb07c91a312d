// Package router maps a recognized intent plus the session's verification
// state to a deterministic action plan. The tool set is closed: intents
// route through a fixed registry and anything unrecognized is rejected into
// a clarifying branch instead of failing silently.
package router

import (
	"regexp"
	"strings"

	contractx "github.com/napat-k/Aftersale-Support-Agent/agent/contract"
	statex "github.com/napat-k/Aftersale-Support-Agent/agent/state"
)

var emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)

// ExtractEmail returns the first email address in text, or "".
func ExtractEmail(text string) string {
	return emailPattern.FindString(text)
}

// accountBoundCalls is the fixed registry from account-bound intents to the
// CRM read that answers them. Intents absent here either need no tool or are
// handled structurally (identity_claim, unknown).
var accountBoundCalls = map[contractx.Intent]contractx.ToolName{
	contractx.IntentWarrantyInquiry: contractx.ToolCRMQueryWarranty,
	contractx.IntentRepairRequest:   contractx.ToolCRMQueryWarranty,
	contractx.IntentPurchaseHistory: contractx.ToolCRMQueryPurchases,
	contractx.IntentServiceRecords:  contractx.ToolCRMQueryServiceRecords,
}

// AccountBound reports whether an intent needs a verified identity.
func AccountBound(intent contractx.Intent) bool {
	_, ok := accountBoundCalls[intent]
	return ok
}

// Route builds the action plan for one turn. Precedence: an escalated
// session always escalates; a pending verification consumes the turn as an
// identity claim (or re-asks); otherwise the intent decides.
func Route(text string, intent contractx.Intent, sess *statex.Session) contractx.Decision {
	if sess.Escalated() {
		return contractx.Decision{Action: contractx.ActionEscalate, Intent: intent}
	}

	if sess.VerificationState == statex.StatePendingEmail {
		if email := ExtractEmail(text); email != "" {
			return contractx.Decision{
				Action:         contractx.ActionVerifyIdentity,
				Intent:         contractx.IntentIdentityClaim,
				SubmittedEmail: email,
			}
		}
		return contractx.Decision{
			Action: contractx.ActionRequestVerification,
			Intent: sess.PendingIntent,
		}
	}

	switch {
	case AccountBound(intent):
		if !sess.Verified() {
			return contractx.Decision{Action: contractx.ActionRequestVerification, Intent: intent}
		}
		return contractx.Decision{
			Action: contractx.ActionAnswer,
			Intent: intent,
			Calls:  []contractx.ToolRequest{accountBoundCall(intent, sess)},
		}

	case intent == contractx.IntentGeneralQuestion:
		return contractx.Decision{
			Action: contractx.ActionAnswer,
			Intent: intent,
			Calls: []contractx.ToolRequest{{
				Name: contractx.ToolKnowledgeSearch,
				Args: map[string]any{"query": strings.TrimSpace(text)},
			}},
		}

	case intent == contractx.IntentIdentityClaim:
		// An email volunteered outside a pending verification starts one.
		if email := ExtractEmail(text); email != "" {
			return contractx.Decision{
				Action:         contractx.ActionVerifyIdentity,
				Intent:         intent,
				SubmittedEmail: email,
			}
		}
		return contractx.Decision{Action: contractx.ActionClarify, Intent: intent}

	default:
		return contractx.Decision{Action: contractx.ActionClarify, Intent: contractx.IntentUnknown}
	}
}

// RouteVerified builds the plan for the session's pending intent right after
// a successful verification, so the original question is answered in the
// same turn the email arrived in.
func RouteVerified(sess *statex.Session) contractx.Decision {
	intent := sess.PendingIntent
	if !AccountBound(intent) {
		return contractx.Decision{Action: contractx.ActionAnswer, Intent: intent}
	}
	return contractx.Decision{
		Action: contractx.ActionAnswer,
		Intent: intent,
		Calls:  []contractx.ToolRequest{accountBoundCall(intent, sess)},
	}
}

func accountBoundCall(intent contractx.Intent, sess *statex.Session) contractx.ToolRequest {
	return contractx.ToolRequest{
		Name: accountBoundCalls[intent],
		Args: map[string]any{"customer_id": sess.UserID},
	}
}
