package dialog

import "context"

// ChatRequest is one inbound user message addressed to a business.
type ChatRequest struct {
	UserID     string `json:"userId" binding:"required"`
	BusinessID string `json:"businessId" binding:"required"`
	Message    string `json:"message" binding:"required"`
}

// ChatReply is the structured outcome of processing one message.
type ChatReply struct {
	ConversationID string   `json:"conversationId"`
	Reply          string   `json:"reply"`
	Intention      string   `json:"intention"`
	Confidence     float64  `json:"confidence"`
	MissingFields  []string `json:"missingFields,omitempty"`
	Stage          string   `json:"conversationStage"`
	PaymentURL     string   `json:"paymentUrl,omitempty"`
	ReservationID  string   `json:"reservationId,omitempty"`
}

// Service is the conversation engine. ProcessMessage never fails on user
// input: malformed or out-of-scope messages produce a polite reply with the
// "other" intention, and internal faults degrade to an apology.
type Service interface {
	ProcessMessage(ctx context.Context, req ChatRequest) (*ChatReply, error)
	ConfirmPayment(ctx context.Context, conversationID string, success bool) (*ChatReply, error)
}
