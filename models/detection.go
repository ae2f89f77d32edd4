package models

// Built-in intention labels. Businesses may configure additional ones; the
// cascade treats the label as an open string enum.
const (
	IntentionReserve      = "reserve"
	IntentionCancel       = "cancel"
	IntentionQuery        = "query"
	IntentionAvailability = "availability"
	IntentionGreeting     = "greeting"
	IntentionFarewell     = "farewell"
	IntentionOther        = "other"
)

// DetectionResult is the transient outcome of classifying one message.
type DetectionResult struct {
	Intention      string     `json:"intention"`
	Confidence     float64    `json:"confidence"`
	Extracted      SlotValues `json:"extractedData"`
	MissingFields  []string   `json:"missingFields"`
	SuggestedReply string     `json:"suggestedReply,omitempty"`
	Strategy       string     `json:"strategy,omitempty"`
}

// Actionable reports whether the intention drives the slot-filling flow
// rather than resetting it.
func (d *DetectionResult) Actionable() bool {
	switch d.Intention {
	case IntentionReserve, IntentionCancel, IntentionQuery, IntentionAvailability:
		return true
	}
	return false
}
