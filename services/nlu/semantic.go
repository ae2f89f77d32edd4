package nlu

import (
	"context"
	"errors"
	"fmt"
	"time"

	"reservo/models"

	"go.uber.org/zap"
)

// ErrSemanticTimeout marks a semantic call that exceeded its deadline; it is
// treated identically to any other provider error and feeds the breaker.
var ErrSemanticTimeout = errors.New("semantic classifier timeout")

// SemanticStrategy sends a structured prompt to the external classifier and
// validates its response against the detection schema.
type SemanticStrategy struct {
	client         Classifier
	timeout        time.Duration
	logger         *zap.Logger
	requiredFields func(biz *models.Business, state *models.ConversationState) []string
}

// NewSemanticStrategy builds the semantic layer. requiredFields supplies the
// currently-required field names for the prompt and may be nil.
func NewSemanticStrategy(client Classifier, timeout time.Duration, logger *zap.Logger,
	requiredFields func(biz *models.Business, state *models.ConversationState) []string) *SemanticStrategy {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &SemanticStrategy{
		client:         client,
		timeout:        timeout,
		logger:         logger,
		requiredFields: requiredFields,
	}
}

func (s *SemanticStrategy) Name() string { return "semantic" }

func (s *SemanticStrategy) Detect(ctx context.Context, message string, biz *models.Business, state *models.ConversationState) (*models.DetectionResult, error) {
	var required []string
	if s.requiredFields != nil {
		required = s.requiredFields(biz, state)
	}
	prompt := BuildPrompt(message, biz, state, required, time.Now())

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	raw, err := s.client.Classify(callCtx, prompt)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || callCtx.Err() != nil {
			return nil, ErrSemanticTimeout
		}
		return nil, fmt.Errorf("semantic classify failed: %w", err)
	}

	result, err := parseSemanticResponse(raw, biz)
	if err != nil {
		s.logger.Warn("semantic response rejected", zap.Error(err))
		return nil, err
	}
	return result, nil
}
