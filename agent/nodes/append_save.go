package turnnode

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	contractx "github.com/napat-k/Aftersale-Support-Agent/agent/contract"
	statex "github.com/napat-k/Aftersale-Support-Agent/agent/state"
)

// AppendAndSave records the user turn and the agent turn (with its tool
// calls) in the append-only history and persists the session.
func AppendAndSave(ctx context.Context, in *GraphState, mgr *statex.Manager) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}

	in.Session.AppendTurn(contractx.Turn{
		ID:        uuid.NewString(),
		Role:      contractx.RoleUser,
		Text:      in.Text,
		Timestamp: in.Now,
	})
	in.Session.AppendTurn(contractx.Turn{
		ID:        uuid.NewString(),
		Role:      contractx.RoleAgent,
		Text:      in.Reply.Text,
		Timestamp: in.Now,
		ToolCalls: in.Calls,
	})
	in.Session.Touch(in.Now)

	if err := mgr.Save(ctx, in.Session); err != nil {
		return nil, err
	}
	return in, nil
}
