package conversationRepo

import "reservo/models"

// ConversationRepository is the durable store for per (user, business)
// dialogue state.
type ConversationRepository interface {
	// GetContext loads the state for a (user, business) pair, returning a
	// fresh idle state if none exists yet.
	GetContext(userID, businessID string) (*models.ConversationState, error)
	// SaveContext upserts the full state document.
	SaveContext(state *models.ConversationState) error
	// AppendTurn appends one turn to the bounded history without rewriting
	// the rest of the document.
	AppendTurn(userID, businessID string, turn models.Turn, max int) error
}
