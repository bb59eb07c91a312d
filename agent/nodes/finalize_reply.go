package turnnode

import (
	"fmt"

	contractx "github.com/napat-k/Aftersale-Support-Agent/agent/contract"
)

// FinalizeReply converts the finished state into the graph output. An empty
// reply at this point means a composer bug, not a user-facing condition.
func FinalizeReply(in *GraphState) (GraphOutput, error) {
	if in == nil {
		return GraphOutput{}, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if in.Reply.Text == "" {
		return GraphOutput{}, fmt.Errorf("%w: composed reply is empty", contractx.ErrSchemaViolation)
	}
	return GraphOutput{Reply: in.Reply}, nil
}
