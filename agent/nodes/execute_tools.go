package turnnode

import (
	"context"
	"fmt"

	contractx "github.com/napat-k/Aftersale-Support-Agent/agent/contract"
	toolx "github.com/napat-k/Aftersale-Support-Agent/agent/tool"
)

func ExecuteTools(ctx context.Context, in *GraphState, gateway *toolx.Gateway) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}
	if len(in.Decision.Calls) == 0 {
		return in, nil
	}
	in.Calls = append(in.Calls, gateway.Execute(ctx, in.Decision.Calls)...)
	return in, nil
}
