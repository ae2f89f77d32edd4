package nlu

import (
	"context"

	"reservo/models"
)

// Strategy is one classification layer of the cascade. Strategies are tried
// in increasing cost order and are independently callable.
type Strategy interface {
	// Detect classifies message for the given business. A strategy never
	// returns a nil result on a nil error.
	Detect(ctx context.Context, message string, biz *models.Business, state *models.ConversationState) (*models.DetectionResult, error)
	// Name identifies the strategy in logs and DetectionResult.Strategy.
	Name() string
}

// Classifier is the external semantic model: it takes a prompt and returns
// raw text that must parse as the detection schema. Anything else is a hard
// failure.
type Classifier interface {
	Classify(ctx context.Context, prompt string) (string, error)
}
