package memory

import (
	"context"
	"testing"
	"time"

	contractx "github.com/napat-k/Aftersale-Support-Agent/agent/contract"
)

func TestInMemoryStoreWriteAndRead(t *testing.T) {
	t.Parallel()

	store := NewInMemoryStore()
	scope := contractx.UserScope("CUST001")
	fact := contractx.MemoryFact{
		Key:       "confirmed_email",
		Value:     "zhang.ming@example.com",
		LearnedAt: time.Now().UTC(),
	}

	if err := store.Write(context.Background(), scope, fact); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := store.Read(context.Background(), scope)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len(facts) = %d, want 1", len(got))
	}
	if got[0].Key != "confirmed_email" || got[0].Value != "zhang.ming@example.com" {
		t.Fatalf("fact = %+v", got[0])
	}
}

func TestInMemoryStoreDuplicateWriteIsNoop(t *testing.T) {
	t.Parallel()

	store := NewInMemoryStore()
	scope := contractx.UserScope("CUST001")
	fact := contractx.MemoryFact{Key: "confirmed_email", Value: "zhang.ming@example.com"}

	for i := 0; i < 3; i++ {
		if err := store.Write(context.Background(), scope, fact); err != nil {
			t.Fatalf("Write() %d error = %v", i, err)
		}
	}

	got, err := store.Read(context.Background(), scope)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len(facts) = %d, want 1 after duplicate writes", len(got))
	}
}

func TestInMemoryStoreScopesAreIsolated(t *testing.T) {
	t.Parallel()

	store := NewInMemoryStore()
	a := contractx.UserScope("CUST001")
	b := contractx.UserScope("CUST002")

	if err := store.Write(context.Background(), a, contractx.MemoryFact{Key: "k", Value: "v"}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := store.Read(context.Background(), b)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("scope %s sees %d foreign facts", b, len(got))
	}
}
