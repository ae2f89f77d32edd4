package models

import "time"

// ReservationStatus is the lifecycle state of a reservation record.
type ReservationStatus string

const (
	// ReservationProvisional is a pending record awaiting payment.
	ReservationProvisional ReservationStatus = "provisional"
	ReservationConfirmed   ReservationStatus = "confirmed"
	ReservationCancelled   ReservationStatus = "cancelled"
)

// Reservation is the committed business action for a completed conversation.
type Reservation struct {
	ID           string             `json:"id" bson:"_id"`
	BusinessID   string             `json:"businessId" bson:"businessId"`
	UserID       string             `json:"userId" bson:"userId"`
	ServiceKey   string             `json:"serviceKey" bson:"serviceKey"`
	Date         string             `json:"date" bson:"date"` // YYYY-MM-DD
	Time         string             `json:"time" bson:"time"` // HH:MM
	Guests       int                `json:"guests,omitempty" bson:"guests,omitempty"`
	Phone        string             `json:"phone,omitempty" bson:"phone,omitempty"`
	CustomerName string             `json:"customerName,omitempty" bson:"customerName,omitempty"`
	Products     []ProductSelection `json:"products,omitempty" bson:"products,omitempty"`
	Address      string             `json:"address,omitempty" bson:"address,omitempty"`
	TableID      string             `json:"tableId,omitempty" bson:"tableId,omitempty"`
	Amount       float64            `json:"amount,omitempty" bson:"amount,omitempty"`
	Status       ReservationStatus  `json:"status" bson:"status"`
	CreatedAt    time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time          `json:"updatedAt" bson:"updatedAt"`
}
