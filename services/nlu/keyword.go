package nlu

import (
	"context"
	"strings"

	"reservo/models"
)

// KeywordStrategy scores each configured intention by the weights of its
// keyword patterns found in the message. Cheap enough to run on every turn.
type KeywordStrategy struct{}

func NewKeywordStrategy() *KeywordStrategy {
	return &KeywordStrategy{}
}

func (s *KeywordStrategy) Name() string { return "keyword" }

func (s *KeywordStrategy) Detect(ctx context.Context, message string, biz *models.Business, state *models.ConversationState) (*models.DetectionResult, error) {
	lower := strings.ToLower(message)

	best := &models.DetectionResult{
		Intention:  models.IntentionOther,
		Confidence: 0,
		Strategy:   s.Name(),
	}

	for _, intention := range biz.Config.Intentions {
		var matched int
		var weightSum float64
		for _, kw := range intention.Keywords {
			if kw.Pattern == "" {
				continue
			}
			if strings.Contains(lower, strings.ToLower(kw.Pattern)) {
				matched++
				weightSum += kw.Weight
			}
		}
		if matched == 0 {
			continue
		}

		// Average matched weight plus a small bonus per extra match,
		// capped so keyword spam cannot fake certainty.
		bonus := 0.1 * float64(matched)
		if bonus > 0.2 {
			bonus = 0.2
		}
		confidence := weightSum/float64(matched) + bonus
		if confidence > 1.0 {
			confidence = 1.0
		}

		if confidence > best.Confidence {
			best.Intention = intention.Name
			best.Confidence = confidence
		}
	}

	return best, nil
}
