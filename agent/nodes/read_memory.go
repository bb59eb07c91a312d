package turnnode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/napat-k/Aftersale-Support-Agent/agent/contract"
)

// ReadMemory loads durable facts for the claimed user. Memory is advisory:
// a read failure is logged and the turn continues without personalization.
func ReadMemory(ctx context.Context, in *GraphState, store contractx.MemoryStore) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}

	facts, err := store.Read(ctx, contractx.UserScope(in.Session.UserID))
	if err != nil {
		log.Warn().Str("session_id", in.SessionID).Err(err).Msg("memory read failed, continuing without facts")
		return in, nil
	}
	in.Facts = facts
	return in, nil
}
