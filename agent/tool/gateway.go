// Package tool executes the router's planned collaborator calls. Every call
// runs under a bounded timeout and gets at most one retry when the failure
// classifies as transient; a second failure is recorded as unavailable
// rather than retried indefinitely.
package tool

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	contractx "github.com/napat-k/Aftersale-Support-Agent/agent/contract"
)

const defaultCallTimeout = 10 * time.Second

// Collaborators bundles the external services the gateway can reach.
type Collaborators struct {
	CRM       contractx.CRM
	Knowledge contractx.KnowledgeSearcher
	Memory    contractx.MemoryStore
}

type Gateway struct {
	collab  Collaborators
	timeout time.Duration
}

type Option func(*Gateway)

func WithCallTimeout(d time.Duration) Option {
	return func(g *Gateway) {
		if d > 0 {
			g.timeout = d
		}
	}
}

func NewGateway(collab Collaborators, opts ...Option) (*Gateway, error) {
	if collab.CRM == nil {
		return nil, errors.New("crm collaborator is required")
	}
	if collab.Knowledge == nil {
		return nil, errors.New("knowledge collaborator is required")
	}
	if collab.Memory == nil {
		return nil, errors.New("memory collaborator is required")
	}
	g := &Gateway{collab: collab, timeout: defaultCallTimeout}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g, nil
}

// Execute runs the planned calls serially and records one ToolCall per
// request. Collaborator failures never abort the turn; they are surfaced to
// the composer through the call status.
func (g *Gateway) Execute(ctx context.Context, reqs []contractx.ToolRequest) []contractx.ToolCall {
	calls := make([]contractx.ToolCall, 0, len(reqs))
	for _, req := range reqs {
		calls = append(calls, g.executeOne(ctx, req))
	}
	return calls
}

func (g *Gateway) executeOne(ctx context.Context, req contractx.ToolRequest) contractx.ToolCall {
	call := contractx.ToolCall{
		ID:   uuid.NewString(),
		Name: req.Name,
		Args: req.Args,
	}

	result, err := g.invoke(ctx, req)
	// Retry only while the turn itself is still live: a dead parent context
	// means the per-call timeout was not the problem.
	if err != nil && transient(err) && ctx.Err() == nil {
		log.Warn().Str("tool", string(req.Name)).Err(err).Msg("transient tool failure, retrying once")
		result, err = g.invoke(ctx, req)
	}

	if errors.Is(err, contractx.ErrCustomerNotFound) || errors.Is(err, contractx.ErrProductNotFound) {
		call.Status = contractx.ToolStatusOK
		call.NotFound = true
		return call
	}
	if err != nil {
		call.Err = fmt.Errorf("%w: %s: %v", contractx.ErrToolUnavailable, req.Name, err).Error()
		call.Status = contractx.ToolStatusFailed
		if errors.Is(err, context.DeadlineExceeded) {
			call.Status = contractx.ToolStatusTimedOut
		}
		return call
	}

	call.Result = result
	call.Status = contractx.ToolStatusOK
	return call
}

func (g *Gateway) invoke(ctx context.Context, req contractx.ToolRequest) (any, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	switch req.Name {
	case contractx.ToolCRMQueryCustomer:
		return g.collab.CRM.QueryCustomer(ctx, stringArg(req.Args, "customer_id"))
	case contractx.ToolCRMQueryPurchases:
		return g.collab.CRM.QueryPurchases(ctx, stringArg(req.Args, "customer_id"))
	case contractx.ToolCRMQueryWarranty:
		ref := stringArg(req.Args, "serial_number")
		if ref == "" {
			ref = stringArg(req.Args, "customer_id")
		}
		return g.collab.CRM.QueryWarranty(ctx, ref)
	case contractx.ToolCRMQueryServiceRecords:
		return g.collab.CRM.QueryServiceRecords(ctx, stringArg(req.Args, "customer_id"))
	case contractx.ToolKnowledgeSearch:
		return g.collab.Knowledge.Search(ctx, stringArg(req.Args, "query"))
	case contractx.ToolMemoryRead:
		return g.collab.Memory.Read(ctx, stringArg(req.Args, "scope"))
	case contractx.ToolMemoryWrite:
		fact := contractx.MemoryFact{
			Scope: stringArg(req.Args, "scope"),
			Key:   stringArg(req.Args, "key"),
			Value: stringArg(req.Args, "value"),
		}
		return nil, g.collab.Memory.Write(ctx, fact.Scope, fact)
	default:
		// Closed registry: an unknown tool is a programming error, not a
		// collaborator outage. No retry.
		return nil, fmt.Errorf("%w: unknown tool %q", contractx.ErrValidation, req.Name)
	}
}

// transient decides retry eligibility. Not-found results and validation
// failures are deterministic and never retried.
func transient(err error) bool {
	if errors.Is(err, contractx.ErrValidation) ||
		errors.Is(err, contractx.ErrCustomerNotFound) ||
		errors.Is(err, contractx.ErrProductNotFound) {
		return false
	}
	if errors.Is(err, contractx.ErrTransient) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func stringArg(args map[string]any, key string) string {
	if args == nil {
		return ""
	}
	v, _ := args[key].(string)
	return v
}
