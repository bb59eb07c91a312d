// Package verify confirms a claimed customer identity against CRM data
// before any account-bound field is released.
package verify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	contractx "github.com/napat-k/Aftersale-Support-Agent/agent/contract"
	statex "github.com/napat-k/Aftersale-Support-Agent/agent/state"
)

type Verifier struct {
	crm contractx.CRM
}

func New(crm contractx.CRM) (*Verifier, error) {
	if crm == nil {
		return nil, errors.New("crm collaborator is required")
	}
	return &Verifier{crm: crm}, nil
}

// Check compares the submitted email case-insensitively against the CRM
// record for the session's claimed customer id. A missing CRM record denies
// with ReasonCustomerNotFound, distinct from a wrong email
// (ReasonEmailMismatch); the composer phrases the two differently. A CRM
// infrastructure failure surfaces as ErrToolUnavailable and leaves the
// verification state untouched.
func (v *Verifier) Check(ctx context.Context, sess *statex.Session, submittedEmail string) (contractx.VerificationResult, error) {
	if sess == nil {
		return contractx.VerificationResult{}, statex.ErrNilSession
	}

	rec, err := v.crm.QueryCustomer(ctx, sess.UserID)
	if errors.Is(err, contractx.ErrCustomerNotFound) {
		return contractx.VerificationResult{Matched: false, Reason: contractx.ReasonCustomerNotFound}, nil
	}
	if err != nil {
		return contractx.VerificationResult{}, fmt.Errorf("%w: crm lookup for %s: %v", contractx.ErrToolUnavailable, sess.UserID, err)
	}

	if strings.EqualFold(strings.TrimSpace(submittedEmail), strings.TrimSpace(rec.Email)) {
		return contractx.VerificationResult{Matched: true}, nil
	}
	return contractx.VerificationResult{Matched: false, Reason: contractx.ReasonEmailMismatch}, nil
}
