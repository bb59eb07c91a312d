// Package handoff delivers escalated sessions to the human support queue
// over a webhook.
package handoff

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	contractx "github.com/napat-k/Aftersale-Support-Agent/agent/contract"
)

type Config struct {
	URL     string        `split_words:"true" required:"true"`
	Token   string        `split_words:"true" required:"true"`
	Timeout time.Duration `split_words:"true" default:"10s"`
}

type Notifier struct {
	webhookURL string
	token      string
	httpClient *http.Client
}

var _ contractx.HandoffNotifier = (*Notifier)(nil)

func NewNotifier(cfg Config) (*Notifier, error) {
	webhookURL := strings.TrimSpace(cfg.URL)
	if webhookURL == "" {
		return nil, errors.New("handoff webhook url is required")
	}

	if _, err := url.ParseRequestURI(webhookURL); err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Notifier{
		webhookURL: strings.TrimRight(webhookURL, "/"),
		token:      strings.TrimSpace(cfg.Token),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

func MustNew(cfg Config) *Notifier {
	notifier, err := NewNotifier(cfg)
	if err != nil {
		panic(err)
	}
	return notifier
}

func (n *Notifier) Notify(ctx context.Context, e contractx.Escalation) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("handoff: marshal escalation: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("handoff: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if n.token != "" {
		req.Header.Set("Authorization", "Bearer "+n.token)
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: handoff delivery: %v", contractx.ErrTransient, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("handoff: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
