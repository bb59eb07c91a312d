// Package intent wraps the external language-understanding capability. The
// production classifier is a structured-output LLM graph; the rest of the
// system only sees the contract.Classifier interface and a closed intent set.
package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"

	contractx "github.com/napat-k/Aftersale-Support-Agent/agent/contract"
)

// DefaultConfidenceThreshold is the floor below which a classification is
// demoted to IntentUnknown rather than acted on.
const DefaultConfidenceThreshold = 0.6

type classifierLLMOutput struct {
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
}

// LLMClassifier classifies turns with a chat model emitting strict JSON.
type LLMClassifier struct {
	runner    compose.Runnable[map[string]any, classifierLLMOutput]
	threshold float64
}

func NewLLMClassifier(
	ctx context.Context,
	chatModel einomodel.BaseChatModel,
	systemPrompt string,
	threshold float64,
) (*LLMClassifier, error) {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultConfidenceThreshold
	}
	runner, err := compileClassifierGraph(ctx, chatModel, systemPrompt)
	if err != nil {
		return nil, fmt.Errorf("%w: compile classifier graph: %v", contractx.ErrModelInvoke, err)
	}
	return &LLMClassifier{runner: runner, threshold: threshold}, nil
}

func (c *LLMClassifier) Classify(ctx context.Context, text string) (contractx.Intent, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return contractx.IntentUnknown, fmt.Errorf("%w: turn text is empty", contractx.ErrValidation)
	}

	payload, err := json.Marshal(map[string]any{"user_message": text})
	if err != nil {
		return contractx.IntentUnknown, fmt.Errorf("%w: marshal classifier payload: %v", contractx.ErrValidation, err)
	}

	out, err := c.runner.Invoke(ctx, map[string]any{"input": string(payload)})
	if err != nil {
		return contractx.IntentUnknown, fmt.Errorf("%w: classifier invoke: %v", contractx.ErrModelInvoke, err)
	}

	recognized, ok := ParseIntent(out.Intent)
	if !ok || out.Confidence < c.threshold {
		return contractx.IntentUnknown, nil
	}
	return recognized, nil
}

// ParseIntent maps a raw intent label onto the closed set.
func ParseIntent(raw string) (contractx.Intent, bool) {
	switch contractx.Intent(strings.TrimSpace(strings.ToLower(raw))) {
	case contractx.IntentWarrantyInquiry:
		return contractx.IntentWarrantyInquiry, true
	case contractx.IntentRepairRequest:
		return contractx.IntentRepairRequest, true
	case contractx.IntentGeneralQuestion:
		return contractx.IntentGeneralQuestion, true
	case contractx.IntentPurchaseHistory:
		return contractx.IntentPurchaseHistory, true
	case contractx.IntentServiceRecords:
		return contractx.IntentServiceRecords, true
	case contractx.IntentIdentityClaim:
		return contractx.IntentIdentityClaim, true
	default:
		return contractx.IntentUnknown, false
	}
}
