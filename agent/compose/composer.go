// Package compose turns the routing decision, verification outcome, and
// tool results into the outgoing reply. Precedence, highest first: pending
// verification, degraded tool failure, synthesized answer. As defense in
// depth it drops any CRM-bound payload whose owning customer does not match
// the session's verified identity, even if a collaborator erroneously
// returned it.
package compose

import (
	"fmt"
	"strings"

	contractx "github.com/napat-k/Aftersale-Support-Agent/agent/contract"
	statex "github.com/napat-k/Aftersale-Support-Agent/agent/state"
)

const (
	askEmailText       = "To look into your account I first need to confirm your identity. Could you share the email address registered with us?"
	askEmailAgainText  = "That email doesn't match what we have on file. Could you double-check and send it again?"
	askEmailNoAccount  = "I couldn't find an account under your customer id. Could you confirm the email address you registered with?"
	escalationText     = "I wasn't able to confirm your identity, so I'm handing this conversation to a human support agent who will follow up with you shortly."
	clarifyText        = "I'm not sure I understood that. Could you tell me a bit more about what you need help with?"
	degradedText       = "I'm sorry, our live systems are temporarily unavailable, so I can't access account-specific data right now."
	tryAgainText       = "I'm sorry, something took too long on our side. Please try again in a moment."
	statelessText      = "I'm sorry, I can't access your conversation right now. Please try again in a moment."
	verifiedPrefixText = "Thanks, your identity is confirmed."
)

// FallbackReply is returned when the turn deadline expires before a reply
// could be composed.
func FallbackReply() contractx.Reply {
	return contractx.Reply{Text: tryAgainText, RequiresFollowup: false}
}

// StatelessReply is the unverified, no-state answer used when the session
// store is unreachable.
func StatelessReply() contractx.Reply {
	return contractx.Reply{Text: statelessText, RequiresFollowup: false}
}

// Compose builds the reply for one turn.
func Compose(
	sess *statex.Session,
	decision contractx.Decision,
	calls []contractx.ToolCall,
	verification *contractx.VerificationResult,
) contractx.Reply {
	calls = redact(sess, calls)

	switch decision.Action {
	case contractx.ActionEscalate:
		return contractx.Reply{Text: escalationText, RequiresFollowup: false}

	case contractx.ActionRequestVerification:
		return contractx.Reply{Text: askForEmail(sess, verification), RequiresFollowup: true}

	case contractx.ActionClarify:
		return contractx.Reply{Text: clarifyText, RequiresFollowup: true}
	}

	if anyFailed(calls) {
		return degradedReply(calls)
	}

	var b strings.Builder
	if verification != nil && verification.Matched {
		b.WriteString(verifiedPrefixText)
	}
	answered := false
	for _, call := range calls {
		if text := renderCall(call); text != "" {
			if b.Len() > 0 {
				b.WriteString(" ")
			}
			b.WriteString(text)
			answered = true
		}
	}

	if !answered {
		if b.Len() > 0 {
			// Verification succeeded but there was nothing pending to answer.
			b.WriteString(" How can I help you with your account?")
			return contractx.Reply{Text: b.String(), RequiresFollowup: true}
		}
		return contractx.Reply{Text: clarifyText, RequiresFollowup: true}
	}
	return contractx.Reply{Text: b.String(), RequiresFollowup: false}
}

func askForEmail(sess *statex.Session, verification *contractx.VerificationResult) string {
	if verification != nil && !verification.Matched {
		if verification.Reason == contractx.ReasonCustomerNotFound {
			return askEmailNoAccount
		}
		return askEmailAgainText
	}
	if sess.VerificationAttempts > 0 {
		return askEmailAgainText
	}
	return askEmailText
}

func anyFailed(calls []contractx.ToolCall) bool {
	for _, call := range calls {
		if call.Status == contractx.ToolStatusFailed || call.Status == contractx.ToolStatusTimedOut {
			return true
		}
	}
	return false
}

// degradedReply apologizes and falls back to whatever generic knowledge
// passages survived, never account-specific data.
func degradedReply(calls []contractx.ToolCall) contractx.Reply {
	var b strings.Builder
	b.WriteString(degradedText)
	for _, call := range calls {
		if call.Name != contractx.ToolKnowledgeSearch || call.Status != contractx.ToolStatusOK {
			continue
		}
		if passages, ok := call.Result.([]contractx.Passage); ok && len(passages) > 0 {
			b.WriteString(" In the meantime, this may help: ")
			b.WriteString(strings.TrimSpace(passages[0].Content))
		}
	}
	return contractx.Reply{Text: b.String(), RequiresFollowup: false}
}

// redact drops CRM-bound payloads owned by anyone other than the session's
// verified customer. Knowledge passages and memory facts pass through.
func redact(sess *statex.Session, calls []contractx.ToolCall) []contractx.ToolCall {
	out := make([]contractx.ToolCall, 0, len(calls))
	for _, call := range calls {
		if call.Status == contractx.ToolStatusOK && !ownedBySession(sess, call) {
			call.Result = nil
			call.Status = contractx.ToolStatusFailed
			call.Err = "crm payload owner mismatch, redacted"
		}
		out = append(out, call)
	}
	return out
}

func ownedBySession(sess *statex.Session, call contractx.ToolCall) bool {
	verified := ""
	if sess != nil {
		verified = sess.VerifiedCustomerID
	}

	switch result := call.Result.(type) {
	case contractx.WarrantyStatus:
		return result.CustomerID == verified
	case contractx.CustomerRecord:
		return result.CustomerID == verified
	case []contractx.Purchase:
		for _, p := range result {
			if p.CustomerID != verified {
				return false
			}
		}
		return true
	case []contractx.ServiceRecord:
		for _, r := range result {
			if r.CustomerID != verified {
				return false
			}
		}
		return true
	default:
		// Not a CRM-bound payload.
		return true
	}
}

func renderCall(call contractx.ToolCall) string {
	if call.Status != contractx.ToolStatusOK {
		return ""
	}
	if call.NotFound {
		return renderNotFound(call.Name)
	}

	switch result := call.Result.(type) {
	case contractx.WarrantyStatus:
		return fmt.Sprintf(
			"Your %s (serial %s) is on the %s warranty plan: %s (coverage until %s).",
			result.ProductName, result.SerialNumber, result.WarrantyType,
			result.StatusText, result.WarrantyEndDate.Format("2006-01-02"),
		)
	case []contractx.Purchase:
		if len(result) == 0 {
			return renderNotFound(call.Name)
		}
		names := make([]string, 0, len(result))
		for _, p := range result {
			names = append(names, fmt.Sprintf("%s (purchased %s)", p.ProductName, p.PurchaseDate.Format("2006-01-02")))
		}
		return "Here are your purchases: " + strings.Join(names, ", ") + "."
	case []contractx.ServiceRecord:
		if len(result) == 0 {
			return renderNotFound(call.Name)
		}
		items := make([]string, 0, len(result))
		for _, r := range result {
			items = append(items, fmt.Sprintf("%s on %s (%s)", r.ServiceType, r.ServiceDate.Format("2006-01-02"), r.Status))
		}
		return "Your service history: " + strings.Join(items, "; ") + "."
	case []contractx.Passage:
		if len(result) == 0 {
			return "I couldn't find anything relevant in our help articles for that."
		}
		return strings.TrimSpace(result[0].Content)
	default:
		// Memory reads and other internal payloads inform the turn but are
		// never echoed verbatim.
		return ""
	}
}

func renderNotFound(name contractx.ToolName) string {
	switch name {
	case contractx.ToolCRMQueryWarranty:
		return "I couldn't find a warranty record for that product."
	case contractx.ToolCRMQueryPurchases:
		return "I couldn't find any purchases on your account."
	case contractx.ToolCRMQueryServiceRecords:
		return "I couldn't find any service records on your account."
	default:
		return "I couldn't find a matching record."
	}
}
