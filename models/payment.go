package models

import "time"

// PaymentRequest asks the payment collaborator for a hosted payment link.
type PaymentRequest struct {
	ConversationID string  `json:"conversationId"`
	ReservationID  string  `json:"reservationId"`
	Amount         float64 `json:"amount"`
	Currency       string  `json:"currency"`
	Description    string  `json:"description"`
	CustomerPhone  string  `json:"customerPhone,omitempty"`
}

// PendingPayment tracks a payment link awaiting external verification.
type PendingPayment struct {
	ConversationID string    `json:"conversationId" bson:"conversationId"`
	ReservationID  string    `json:"reservationId" bson:"reservationId"`
	PaymentURL     string    `json:"paymentUrl" bson:"paymentUrl"`
	Amount         float64   `json:"amount" bson:"amount"`
	Currency       string    `json:"currency" bson:"currency"`
	Status         string    `json:"status" bson:"status"` // "pending", "paid", "failed"
	CreatedAt      time.Time `json:"createdAt" bson:"createdAt"`
}
