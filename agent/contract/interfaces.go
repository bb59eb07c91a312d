package contract

import "context"

// CRM is the customer-relationship collaborator. All operations are reads;
// the agent never mutates CRM records. Lookups that find nothing return
// ErrCustomerNotFound / ErrProductNotFound; infrastructure failures are
// wrapped with ErrTransient when a retry may help.
type CRM interface {
	QueryCustomer(ctx context.Context, customerID string) (CustomerRecord, error)
	QueryPurchases(ctx context.Context, customerID string) ([]Purchase, error)
	// QueryWarranty accepts a product serial number or a customer id; with a
	// customer id it reports the customer's most recent purchase.
	QueryWarranty(ctx context.Context, ref string) (WarrantyStatus, error)
	QueryServiceRecords(ctx context.Context, customerID string) ([]ServiceRecord, error)
}

// KnowledgeSearcher queries the troubleshooting/policy corpus. Results are
// ordered by relevance, finite, and non-restartable per call.
type KnowledgeSearcher interface {
	Search(ctx context.Context, query string) ([]Passage, error)
}

// MemoryStore holds durable cross-session facts. Write is append-only and
// idempotent on duplicate facts.
type MemoryStore interface {
	Read(ctx context.Context, scope string) ([]MemoryFact, error)
	Write(ctx context.Context, scope string, fact MemoryFact) error
}

// Classifier maps a user turn to an Intent. The mechanism is an opaque
// external capability; implementations must return IntentUnknown rather
// than guessing when confidence is low.
type Classifier interface {
	Classify(ctx context.Context, text string) (Intent, error)
}

// HandoffNotifier reports an escalated session to human support.
type HandoffNotifier interface {
	Notify(ctx context.Context, e Escalation) error
}
