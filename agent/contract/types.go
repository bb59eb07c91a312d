package contract

import "time"

// Role identifies who produced a conversation turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// Intent is the recognized meaning of a user turn. The set is closed:
// anything the classifier cannot map here becomes IntentUnknown.
type Intent string

const (
	IntentWarrantyInquiry Intent = "warranty_inquiry"
	IntentRepairRequest   Intent = "repair_request"
	IntentGeneralQuestion Intent = "general_question"
	IntentPurchaseHistory Intent = "purchase_history"
	IntentServiceRecords  Intent = "service_record_inquiry"
	IntentIdentityClaim   Intent = "identity_claim"
	IntentUnknown         Intent = "unknown"
)

// Action is the router's verdict for a turn.
type Action string

const (
	ActionAnswer              Action = "answer"
	ActionRequestVerification Action = "request_verification"
	ActionVerifyIdentity      Action = "verify_identity"
	ActionClarify             Action = "clarify"
	ActionEscalate            Action = "escalate"
)

// ToolName enumerates the collaborator operations the router may plan.
type ToolName string

const (
	ToolCRMQueryCustomer       ToolName = "crm_query_customer"
	ToolCRMQueryPurchases      ToolName = "crm_query_purchases"
	ToolCRMQueryWarranty       ToolName = "crm_query_warranty"
	ToolCRMQueryServiceRecords ToolName = "crm_query_service_records"
	ToolKnowledgeSearch        ToolName = "knowledge_search"
	ToolMemoryRead             ToolName = "memory_read"
	ToolMemoryWrite            ToolName = "memory_write"
)

// ToolStatus records how a tool call ended.
type ToolStatus string

const (
	ToolStatusOK       ToolStatus = "ok"
	ToolStatusFailed   ToolStatus = "failed"
	ToolStatusTimedOut ToolStatus = "timed_out"
)

// ToolRequest is a planned collaborator call, not yet executed.
type ToolRequest struct {
	Name ToolName       `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

// ToolCall is the executed record of a ToolRequest. Result holds the
// collaborator payload on success; Err holds an internal failure note that
// is never surfaced to the end user.
type ToolCall struct {
	ID     string         `json:"id"`
	Name   ToolName       `json:"name"`
	Args   map[string]any `json:"args,omitempty"`
	Result any            `json:"result,omitempty"`
	Err    string         `json:"err,omitempty"`
	Status ToolStatus     `json:"status"`
	// NotFound marks a successful lookup that matched nothing. It is a
	// domain outcome, not a failure: the composer answers "no record found"
	// instead of degrading.
	NotFound bool `json:"not_found,omitempty"`
}

// Turn is one conversation message. Immutable once appended to a session.
type Turn struct {
	ID        string     `json:"id"`
	Role      Role       `json:"role"`
	Text      string     `json:"text"`
	Timestamp time.Time  `json:"timestamp"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// Decision is the router's deterministic action plan for one turn.
type Decision struct {
	Action         Action        `json:"action"`
	Intent         Intent        `json:"intent"`
	SubmittedEmail string        `json:"submitted_email,omitempty"`
	Calls          []ToolRequest `json:"calls,omitempty"`
}

// Reply is the composed outgoing message.
type Reply struct {
	Text             string `json:"text"`
	RequiresFollowup bool   `json:"requires_followup"`
}

// VerificationReason distinguishes why a verification check denied.
type VerificationReason string

const (
	ReasonCustomerNotFound VerificationReason = "customer_not_found"
	ReasonEmailMismatch    VerificationReason = "email_mismatch"
)

// VerificationResult is the identity verifier's verdict.
type VerificationResult struct {
	Matched bool               `json:"matched"`
	Reason  VerificationReason `json:"reason,omitempty"`
}

// WarrantyType mirrors the CRM's warranty plan taxonomy.
type WarrantyType string

const (
	WarrantyStandard WarrantyType = "standard"
	WarrantyExtended WarrantyType = "extended"
	WarrantyPremium  WarrantyType = "premium"
)

// Purchase is one product a customer bought, with its warranty window.
type Purchase struct {
	ProductID       string       `json:"product_id"`
	SerialNumber    string       `json:"serial_number"`
	ProductName     string       `json:"product_name"`
	CustomerID      string       `json:"customer_id"`
	PurchaseDate    time.Time    `json:"purchase_date"`
	WarrantyEndDate time.Time    `json:"warranty_end_date"`
	WarrantyType    WarrantyType `json:"warranty_type"`
	Status          string       `json:"status"`
}

// CustomerRecord is the CRM's view of a customer. The agent only reads it.
type CustomerRecord struct {
	CustomerID string     `json:"customer_id"`
	Name       string     `json:"name"`
	Email      string     `json:"email"`
	Phone      string     `json:"phone"`
	Address    string     `json:"address"`
	Purchases  []Purchase `json:"purchases,omitempty"`
}

// WarrantyStatus is the CRM's answer to a warranty query.
type WarrantyStatus struct {
	ProductName     string       `json:"product_name"`
	SerialNumber    string       `json:"serial_number"`
	CustomerID      string       `json:"customer_id"`
	PurchaseDate    time.Time    `json:"purchase_date"`
	WarrantyEndDate time.Time    `json:"warranty_end_date"`
	WarrantyType    WarrantyType `json:"warranty_type"`
	StatusText      string       `json:"status_text"`
}

// ServiceRecord is a repair/service history entry. Read-only for the agent.
type ServiceRecord struct {
	RecordID     string    `json:"record_id"`
	SerialNumber string    `json:"serial_number"`
	CustomerID   string    `json:"customer_id"`
	ServiceDate  time.Time `json:"service_date"`
	ServiceType  string    `json:"service_type"`
	Description  string    `json:"description"`
	Technician   string    `json:"technician"`
	Status       string    `json:"status"`
}

// Passage is one ranked knowledge-corpus snippet.
type Passage struct {
	ID      string  `json:"id"`
	Content string  `json:"content"`
	Score   float32 `json:"score"`
}

// MemoryFact is a durable cross-session statement about a user.
// Facts are append-only; writing the same (Scope, Key, Value) twice is a no-op.
type MemoryFact struct {
	Scope     string    `json:"scope"`
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	LearnedAt time.Time `json:"learned_at"`
}

// UserScope and SessionScope build memory fact scopes.
func UserScope(userID string) string       { return "user:" + userID }
func SessionScope(sessionID string) string { return "session:" + sessionID }

// Escalation describes a hand-off to human support.
type Escalation struct {
	SessionID  string    `json:"session_id"`
	CustomerID string    `json:"customer_id"`
	Reason     string    `json:"reason"`
	Attempts   int       `json:"attempts"`
	At         time.Time `json:"at"`
}
