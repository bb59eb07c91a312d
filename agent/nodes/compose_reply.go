package turnnode

import (
	"fmt"

	composex "github.com/napat-k/Aftersale-Support-Agent/agent/compose"
	contractx "github.com/napat-k/Aftersale-Support-Agent/agent/contract"
)

func ComposeReply(in *GraphState) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}
	in.Reply = composex.Compose(in.Session, in.Decision, in.Calls, in.Verification)
	return in, nil
}
