package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	contractx "github.com/napat-k/Aftersale-Support-Agent/agent/contract"
	upstashx "github.com/napat-k/Aftersale-Support-Agent/pkg/upstash"
)

const defaultFactKeyPrefix = "support:memory:"

// RedisStore persists facts per scope as a JSON array in Upstash Redis.
// Writes are read-modify-write under the assumption that a scope is only
// written from the session currently holding that user's turn.
type RedisStore struct {
	client    *upstashx.Client
	keyPrefix string
}

func NewRedisStore(client *upstashx.Client) (*RedisStore, error) {
	if client == nil {
		return nil, errors.New("upstash client is required")
	}
	return &RedisStore{client: client, keyPrefix: defaultFactKeyPrefix}, nil
}

func (s *RedisStore) Read(ctx context.Context, scope string) ([]contractx.MemoryFact, error) {
	key, err := s.redisKey(scope)
	if err != nil {
		return nil, err
	}

	result, err := s.client.Do(ctx, []any{"GET", key})
	if err != nil {
		return nil, fmt.Errorf("%w: read memory scope %s: %v", contractx.ErrTransient, scope, err)
	}

	trimmed := bytes.TrimSpace(result)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	var encoded string
	if err := json.Unmarshal(trimmed, &encoded); err != nil {
		return nil, fmt.Errorf("decode memory payload: %w", err)
	}
	var facts []contractx.MemoryFact
	if err := json.Unmarshal([]byte(encoded), &facts); err != nil {
		return nil, fmt.Errorf("unmarshal memory facts: %w", err)
	}
	return facts, nil
}

func (s *RedisStore) Write(ctx context.Context, scope string, fact contractx.MemoryFact) error {
	fact.Scope = scope

	facts, err := s.Read(ctx, scope)
	if err != nil {
		return err
	}
	if containsFact(facts, fact) {
		return nil
	}
	facts = append(facts, fact)

	key, err := s.redisKey(scope)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(facts)
	if err != nil {
		return fmt.Errorf("marshal memory facts: %w", err)
	}
	if _, err := s.client.Do(ctx, []any{"SET", key, string(payload)}); err != nil {
		return fmt.Errorf("%w: write memory scope %s: %v", contractx.ErrTransient, scope, err)
	}
	return nil
}

func (s *RedisStore) redisKey(scope string) (string, error) {
	if strings.TrimSpace(scope) == "" {
		return "", errors.New("memory scope is empty")
	}
	return s.keyPrefix + scope, nil
}
