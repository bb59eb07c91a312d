// Package orchestrator wires the per-turn pipeline together and owns the
// turn lifecycle: one lock per session, one deadline per turn, and a safe
// fallback reply when either infrastructure or the deadline gives out.
package orchestrator

import (
	"context"
	"errors"
	"time"

	einocompose "github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog/log"

	composex "github.com/napat-k/Aftersale-Support-Agent/agent/compose"
	contractx "github.com/napat-k/Aftersale-Support-Agent/agent/contract"
	nodex "github.com/napat-k/Aftersale-Support-Agent/agent/nodes"
	statex "github.com/napat-k/Aftersale-Support-Agent/agent/state"
	toolx "github.com/napat-k/Aftersale-Support-Agent/agent/tool"
	verifyx "github.com/napat-k/Aftersale-Support-Agent/agent/verify"
)

var (
	ErrInvalidMessage = nodex.ErrInvalidMessage
	ErrInvalidSession = nodex.ErrInvalidSession
	ErrInvalidUser    = nodex.ErrInvalidUser
)

const (
	defaultTurnDeadline = 60 * time.Second
	defaultCheckTimeout = 10 * time.Second
)

type Config struct {
	// TurnDeadline bounds one full HandleTurn invocation. Zero means the
	// default of one minute.
	TurnDeadline time.Duration
	// CheckTimeout bounds the CRM lookup inside identity verification.
	CheckTimeout time.Duration
}

type Orchestrator struct {
	sessions   *statex.Manager
	classifier contractx.Classifier
	tools      *toolx.Gateway
	verifier   *verifyx.Verifier
	memory     contractx.MemoryStore
	notifier   contractx.HandoffNotifier

	graphRunner einocompose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	turnDeadline time.Duration
	checkTimeout time.Duration

	now func() time.Time
}

func New(
	sessions *statex.Manager,
	classifier contractx.Classifier,
	tools *toolx.Gateway,
	verifier *verifyx.Verifier,
	memory contractx.MemoryStore,
	notifier contractx.HandoffNotifier,
	cfg Config,
) (*Orchestrator, error) {
	if sessions == nil {
		return nil, errors.New("session manager is required")
	}
	if classifier == nil {
		return nil, errors.New("intent classifier is required")
	}
	if tools == nil {
		return nil, errors.New("tool gateway is required")
	}
	if verifier == nil {
		return nil, errors.New("identity verifier is required")
	}
	if memory == nil {
		memory = noopMemoryStore{}
	}
	if notifier == nil {
		notifier = noopNotifier{}
	}

	turnDeadline := cfg.TurnDeadline
	if turnDeadline <= 0 {
		turnDeadline = defaultTurnDeadline
	}
	checkTimeout := cfg.CheckTimeout
	if checkTimeout <= 0 {
		checkTimeout = defaultCheckTimeout
	}

	o := &Orchestrator{
		sessions:     sessions,
		classifier:   classifier,
		tools:        tools,
		verifier:     verifier,
		memory:       memory,
		notifier:     notifier,
		turnDeadline: turnDeadline,
		checkTimeout: checkTimeout,
		now:          time.Now,
	}

	graphRunner, err := o.compileHandleTurnGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	return o, nil
}

// HandleTurn processes one user message for a session. Turns of the same
// session are serialized; a turn that outlives its deadline or loses the
// session store still returns a coherent reply instead of an error.
func (o *Orchestrator) HandleTurn(ctx context.Context, sessionID, userID, text string) (contractx.Reply, error) {
	unlock := o.sessions.Lock(sessionID)
	defer unlock()

	ctx, cancel := context.WithTimeout(ctx, o.turnDeadline)
	defer cancel()

	out, err := o.graphRunner.Invoke(ctx, nodex.GraphInput{
		SessionID: sessionID,
		UserID:    userID,
		Text:      text,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidMessage),
			errors.Is(err, ErrInvalidSession),
			errors.Is(err, ErrInvalidUser):
			return contractx.Reply{}, err
		case errors.Is(err, context.DeadlineExceeded):
			log.Warn().Str("session_id", sessionID).Msg("turn deadline exceeded, replying with fallback")
			return composex.FallbackReply(), nil
		case errors.Is(err, contractx.ErrSessionUnavailable):
			log.Error().Err(err).Str("session_id", sessionID).Msg("session store unavailable, replying statelessly")
			return composex.StatelessReply(), nil
		default:
			return contractx.Reply{}, err
		}
	}
	return out.Reply, nil
}

type noopMemoryStore struct{}

func (noopMemoryStore) Read(context.Context, string) ([]contractx.MemoryFact, error) {
	return nil, nil
}

func (noopMemoryStore) Write(context.Context, string, contractx.MemoryFact) error {
	return nil
}

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, contractx.Escalation) error { return nil }
