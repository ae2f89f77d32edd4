package reservation

import "fmt"

// Conflict reason codes surfaced to the dialog layer. Conflicts are normal
// responses carrying alternatives, never hard failures.
const (
	ReasonTimeOutOfRange    = "time_out_of_range"
	ReasonNoTableAvailable  = "no_table_available"
	ReasonTableTooSmall     = "table_too_small"
	ReasonTableTaken        = "table_taken"
	ReasonProductNotFound   = "not_found"
	ReasonProductOff        = "unavailable"
	ReasonInsufficientStock = "insufficient_stock"
)

// CommitError marks a persistence failure during commit; the conversation
// stays in collecting so the user can retry without losing data.
type CommitError struct {
	Op      string
	Message string
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func NewCommitError(op, msg string) error {
	return &CommitError{Op: op, Message: msg}
}
