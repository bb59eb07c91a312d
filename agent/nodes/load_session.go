package turnnode

import (
	"context"
	"fmt"

	contractx "github.com/napat-k/Aftersale-Support-Agent/agent/contract"
	statex "github.com/napat-k/Aftersale-Support-Agent/agent/state"
)

func LoadSession(ctx context.Context, in *GraphState, mgr *statex.Manager) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	sess, err := mgr.GetOrCreate(ctx, in.SessionID, in.UserID, in.Now)
	if err != nil {
		return nil, err
	}
	in.Session = sess
	return in, nil
}
