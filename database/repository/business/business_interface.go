package businessRepo

import "reservo/models"

// BusinessRepository is the business directory used by the conversation core.
type BusinessRepository interface {
	// GetByID retrieves a business with its full configuration.
	GetByID(id string) (*models.Business, error)
}
