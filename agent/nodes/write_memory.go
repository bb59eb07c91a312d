package turnnode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/napat-k/Aftersale-Support-Agent/agent/contract"
)

// WriteMemory persists the facts learned this turn. Memory writes never fail
// the turn: a broken memory backend costs recall, not correctness.
func WriteMemory(ctx context.Context, in *GraphState, store contractx.MemoryStore) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if store == nil || len(in.NewFacts) == 0 {
		return in, nil
	}

	scope := contractx.UserScope(in.UserID)
	for _, fact := range in.NewFacts {
		if err := store.Write(ctx, scope, fact); err != nil {
			log.Warn().Err(err).
				Str("session_id", in.SessionID).
				Str("fact_key", fact.Key).
				Msg("memory write failed, continuing turn")
		}
	}
	return in, nil
}
