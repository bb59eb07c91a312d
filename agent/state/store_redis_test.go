package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	upstashx "github.com/napat-k/Aftersale-Support-Agent/pkg/upstash"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *upstashx.Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := upstashx.New(
		upstashx.Config{URL: server.URL, Token: "token"},
		upstashx.WithHTTPClient(server.Client()),
	)
	if err != nil {
		t.Fatalf("upstash.New() error = %v", err)
	}
	return client
}

func TestRedisStoreRedisKey(t *testing.T) {
	t.Parallel()

	store := &RedisStore{keyPrefix: defaultStoreKeyPrefix}
	got, err := store.redisKey("abc")
	if err != nil {
		t.Fatalf("redisKey() error = %v", err)
	}
	if got != "support:session:abc" {
		t.Fatalf("redisKey() = %q, want %q", got, "support:session:abc")
	}
}

func TestRedisStoreRedisKeyEmptySession(t *testing.T) {
	t.Parallel()

	store := &RedisStore{keyPrefix: defaultStoreKeyPrefix}
	if _, err := store.redisKey("   "); !errors.Is(err, ErrInvalidSessionID) {
		t.Fatalf("redisKey() error = %v, want ErrInvalidSessionID", err)
	}
}

func TestRedisStoreSaveSetsKeyAndTTL(t *testing.T) {
	t.Parallel()

	var gotCommand []any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		if err := json.NewDecoder(r.Body).Decode(&gotCommand); err != nil {
			t.Errorf("decode command: %v", err)
		}
		fmt.Fprint(w, `{"result":"OK"}`)
	})

	store, err := NewRedisStore(client, WithTTL(time.Hour))
	if err != nil {
		t.Fatalf("NewRedisStore() error = %v", err)
	}

	sess := NewSession("session-1", "CUST001", time.Now().UTC())
	if err := store.Save(context.Background(), sess); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if len(gotCommand) != 5 {
		t.Fatalf("unexpected command: %#v", gotCommand)
	}
	if gotCommand[0] != "SET" {
		t.Fatalf("command[0] = %v, want SET", gotCommand[0])
	}
	if gotCommand[1] != "support:session:session-1" {
		t.Fatalf("command[1] = %v, want support:session:session-1", gotCommand[1])
	}
	if gotCommand[3] != "EX" {
		t.Fatalf("command[3] = %v, want EX", gotCommand[3])
	}
}

func TestRedisStoreSaveRejectsInvalidSession(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("store must not be reached for an invalid session")
	})

	store, err := NewRedisStore(client)
	if err != nil {
		t.Fatalf("NewRedisStore() error = %v", err)
	}

	sess := NewSession("session-1", "CUST001", time.Now().UTC())
	sess.VerificationState = "BOGUS"
	if err := store.Save(context.Background(), sess); err == nil {
		t.Fatal("Save() = nil, want validation error")
	}
}

func TestRedisStoreLoadRoundTrip(t *testing.T) {
	t.Parallel()

	seed := NewSession("session-2", "CUST001", time.Now().UTC())
	seed.VerificationState = StatePendingEmail
	seed.VerificationAttempts = 1

	payload, err := json.Marshal(seed)
	if err != nil {
		t.Fatalf("marshal seed: %v", err)
	}
	encoded, err := json.Marshal(string(payload))
	if err != nil {
		t.Fatalf("marshal encoded seed: %v", err)
	}

	var gotCommand []any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		if err := json.NewDecoder(r.Body).Decode(&gotCommand); err != nil {
			t.Errorf("decode command: %v", err)
		}
		fmt.Fprintf(w, `{"result":%s}`, encoded)
	})

	store, err := NewRedisStore(client)
	if err != nil {
		t.Fatalf("NewRedisStore() error = %v", err)
	}

	sess, err := store.Load(context.Background(), "session-2")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if sess.SessionID != "session-2" {
		t.Fatalf("Load().SessionID = %q, want session-2", sess.SessionID)
	}
	if sess.VerificationState != StatePendingEmail {
		t.Fatalf("Load().VerificationState = %q, want %q", sess.VerificationState, StatePendingEmail)
	}
	if gotCommand[0] != "GET" || gotCommand[1] != "support:session:session-2" {
		t.Fatalf("unexpected command: %#v", gotCommand)
	}
}

func TestRedisStoreLoadMissingSession(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"result":null}`)
	})

	store, err := NewRedisStore(client)
	if err != nil {
		t.Fatalf("NewRedisStore() error = %v", err)
	}

	if _, err := store.Load(context.Background(), "nope"); !errors.Is(err, ErrStateNotFound) {
		t.Fatalf("Load() error = %v, want ErrStateNotFound", err)
	}
}

func TestRedisStoreCustomKeyPrefix(t *testing.T) {
	t.Parallel()

	var gotCommand []any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		if err := json.NewDecoder(r.Body).Decode(&gotCommand); err != nil {
			t.Errorf("decode command: %v", err)
		}
		fmt.Fprint(w, `{"result":1}`)
	})

	store, err := NewRedisStore(client, WithKeyPrefix("custom:"))
	if err != nil {
		t.Fatalf("NewRedisStore() error = %v", err)
	}

	if err := store.Delete(context.Background(), "session-3"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if gotCommand[0] != "DEL" || gotCommand[1] != "custom:session-3" {
		t.Fatalf("unexpected command: %#v", gotCommand)
	}
}
