package nlu

import (
	"context"

	"reservo/models"

	"go.uber.org/zap"
)

// Confidence thresholds of the escalation policy.
const (
	// ConfidenceHigh accepts a keyword hit outright.
	ConfidenceHigh = 0.85
	// ConfidenceMedium is the floor below which the semantic layer runs.
	ConfidenceMedium = 0.6
)

// Cascade tries the ranked strategies in increasing cost order and applies
// the escalation policy between them.
type Cascade struct {
	Keyword  Strategy
	Fuzzy    Strategy
	Semantic Strategy
	Breaker  *Breaker
	Logger   *zap.Logger
}

// Detect runs the cascade for one message.
//
// Policy: keyword hits at or above ConfidenceHigh are accepted; otherwise the
// fuzzy result is kept if it scores higher. A "reserve" intention always
// invokes the semantic layer afterward to extract slots, since the cheap
// strategies never produce any. Otherwise the semantic layer runs, and may
// override, when confidence is still below ConfidenceMedium, the intention is
// query/other, or the dialogue has meaningful history. Semantic failures fall
// back to the fuzzy result and feed the breaker.
func (c *Cascade) Detect(ctx context.Context, message string, biz *models.Business, state *models.ConversationState) *models.DetectionResult {
	result, err := c.Keyword.Detect(ctx, message, biz, state)
	if err != nil || result == nil {
		result = &models.DetectionResult{Intention: models.IntentionOther, Strategy: "keyword"}
	}

	if result.Confidence < ConfidenceHigh {
		if fuzzy, err := c.Fuzzy.Detect(ctx, message, biz, state); err == nil && fuzzy.Confidence > result.Confidence {
			result = fuzzy
		}
	}

	if result.Intention == models.IntentionReserve {
		// The cheap strategies classify but never extract; the semantic pass
		// supplies the structured slots.
		if semantic, ok := c.trySemantic(ctx, message, biz, state); ok {
			result.Extracted = semantic.Extracted
			result.MissingFields = semantic.MissingFields
			result.SuggestedReply = semantic.SuggestedReply
			if semantic.Confidence > result.Confidence {
				result.Confidence = semantic.Confidence
			}
		}
		return result
	}

	needsSemantic := result.Confidence < ConfidenceMedium ||
		result.Intention == models.IntentionQuery ||
		result.Intention == models.IntentionOther ||
		meaningfulHistory(state)
	if needsSemantic {
		if semantic, ok := c.trySemantic(ctx, message, biz, state); ok && semantic.Confidence >= result.Confidence {
			result = semantic
		}
	}

	return result
}

// trySemantic runs the semantic strategy behind the circuit breaker. On any
// failure it reports false and the caller keeps the cheap-strategy result.
func (c *Cascade) trySemantic(ctx context.Context, message string, biz *models.Business, state *models.ConversationState) (*models.DetectionResult, bool) {
	if c.Semantic == nil {
		return nil, false
	}
	if !c.Breaker.Allow() {
		c.Logger.Debug("semantic breaker open, using fuzzy fallback")
		return nil, false
	}

	result, err := c.Semantic.Detect(ctx, message, biz, state)
	if err != nil {
		c.Breaker.Failure()
		c.Logger.Warn("semantic strategy failed", zap.Error(err))
		return nil, false
	}
	c.Breaker.Success()
	return result, true
}

// meaningfulHistory reports whether enough dialogue exists that the cheap
// strategies are likely missing context.
func meaningfulHistory(state *models.ConversationState) bool {
	return state != nil && len(state.History) >= 2
}
