package followup

import "errors"

// Sentinel errors for the follow-up service layer. Validation errors are
// raised before any mutation; a failed call attempt never partially updates
// a record.
var (
	ErrNotFound                 = errors.New("churn record not found")
	ErrMissingChurnReason       = errors.New("churn reason is required for a connected call")
	ErrMailConfirmationRequired = errors.New("mail-sent confirmation is required")
	ErrInvalidCallResponse      = errors.New("invalid call response")
	ErrConflict                 = errors.New("concurrent write detected")
)
