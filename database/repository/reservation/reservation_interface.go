package reservationRepo

import "reservo/models"

// ReservationRepository persists reservations, pending payments and stock
// movements.
type ReservationRepository interface {
	// Create inserts a new reservation record.
	Create(res *models.Reservation) error
	// GetByID retrieves a reservation by its unique ID.
	GetByID(id string) (*models.Reservation, error)
	// UpdateStatus transitions a reservation's lifecycle status.
	UpdateStatus(id string, status models.ReservationStatus) error
	// ActiveForUser returns the user's non-cancelled reservations at a business.
	ActiveForUser(businessID, userID string) ([]models.Reservation, error)
	// ActiveAt returns non-cancelled reservations for a business at a given
	// date and time, used for table conflict checks.
	ActiveAt(businessID, date, timeOfDay string) ([]models.Reservation, error)

	// DecrementStock atomically subtracts qty from a stock-tracked product,
	// failing when the remaining stock is insufficient.
	DecrementStock(businessID, productID string, qty int) error
	// IncrementStock adds qty back, compensating a failed or cancelled commit.
	IncrementStock(businessID, productID string, qty int) error

	// SavePendingPayment records a payment link awaiting verification.
	SavePendingPayment(p *models.PendingPayment) error
	// GetPendingPayment returns the pending payment for a conversation, if any.
	GetPendingPayment(conversationID string) (*models.PendingPayment, error)
}
