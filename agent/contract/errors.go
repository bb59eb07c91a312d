package contract

import "errors"

var (
	// ErrSessionUnavailable means the session store is unreachable. Fatal for
	// the turn: the caller answers with a stateless reply and mutates nothing.
	ErrSessionUnavailable = errors.New("session store unavailable")

	// ErrToolUnavailable is a collaborator failure that survived its one retry.
	ErrToolUnavailable = errors.New("tool unavailable")

	// ErrTransient classifies a collaborator failure as retry-eligible.
	ErrTransient = errors.New("transient failure")

	ErrCustomerNotFound = errors.New("customer not found")
	ErrProductNotFound  = errors.New("product not found")

	ErrValidation      = errors.New("validation failed")
	ErrModelInvoke     = errors.New("model invoke failed")
	ErrSchemaViolation = errors.New("model response violates schema")
)
