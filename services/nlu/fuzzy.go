package nlu

import (
	"context"
	"strings"

	"reservo/models"
)

// fuzzyThreshold is the minimum normalized similarity for an example match
// to be trusted.
const fuzzyThreshold = 0.6

// FuzzyStrategy compares the message against each intention's example
// utterances using normalized edit-distance similarity.
type FuzzyStrategy struct{}

func NewFuzzyStrategy() *FuzzyStrategy {
	return &FuzzyStrategy{}
}

func (s *FuzzyStrategy) Name() string { return "fuzzy" }

func (s *FuzzyStrategy) Detect(ctx context.Context, message string, biz *models.Business, state *models.ConversationState) (*models.DetectionResult, error) {
	normalized := strings.ToLower(strings.TrimSpace(message))

	best := &models.DetectionResult{
		Intention:  models.IntentionOther,
		Confidence: 0,
		Strategy:   s.Name(),
	}

	for _, intention := range biz.Config.Intentions {
		for _, example := range intention.Examples {
			sim := similarity(normalized, strings.ToLower(strings.TrimSpace(example)))
			if sim > best.Confidence {
				best.Intention = intention.Name
				best.Confidence = sim
			}
		}
	}

	if best.Confidence < fuzzyThreshold {
		return &models.DetectionResult{
			Intention:  models.IntentionOther,
			Confidence: 0,
			Strategy:   s.Name(),
		}, nil
	}
	return best, nil
}

// similarity is 1 - levenshtein(a,b)/max(len(a),len(b)), over runes.
func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	ra, rb := []rune(a), []rune(b)
	longest := len(ra)
	if len(rb) > longest {
		longest = len(rb)
	}
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein(ra, rb))/float64(longest)
}

// levenshtein computes edit distance with a two-row rolling table.
func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
