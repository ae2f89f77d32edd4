package extractor

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"reservo/models"
)

// RuleContext carries what a rule may need beyond the text itself.
type RuleContext struct {
	Now      time.Time
	Business *models.Business
}

// Rule extracts one field from text. Patterns are tried in order; the first
// match whose Resolve succeeds wins. Resolve returns the canonical value
// ("YYYY-MM-DD", "HH:MM", digit string, "id:qty;id:qty" for products).
type Rule struct {
	Field    string
	Priority int
	Patterns []*regexp.Regexp
	Resolve  func(match []string, rc RuleContext) (string, bool)
}

// Registry is an open, runtime-extensible set of extraction rules. New slot
// types register here without touching the cascade.
type Registry struct {
	rules map[string][]Rule
}

func NewRegistry() *Registry {
	return &Registry{rules: make(map[string][]Rule)}
}

// Register adds a rule, keeping the field's rules ordered by priority
// (lower value first).
func (r *Registry) Register(rule Rule) {
	r.rules[rule.Field] = append(r.rules[rule.Field], rule)
	sort.SliceStable(r.rules[rule.Field], func(i, j int) bool {
		return r.rules[rule.Field][i].Priority < r.rules[rule.Field][j].Priority
	})
}

// ExtractField runs the field's rules against text and returns the first
// canonical value that resolves.
func (r *Registry) ExtractField(field, text string, rc RuleContext) (string, bool) {
	for _, rule := range r.rules[field] {
		for _, pattern := range rule.Patterns {
			match := pattern.FindStringSubmatch(text)
			if match == nil {
				continue
			}
			if value, ok := rule.Resolve(match, rc); ok {
				return value, true
			}
		}
	}
	return "", false
}

// ExtractFromMessage fills the requested fields from a single message.
func (r *Registry) ExtractFromMessage(message string, fields []string, rc RuleContext) models.SlotValues {
	var out models.SlotValues
	lower := strings.ToLower(message)
	for _, field := range fields {
		if value, ok := r.ExtractField(field, lower, rc); ok {
			assign(&out, field, value)
		}
	}
	return out
}

// ExtractFromHistory backfills still-missing fields from user turns, most
// recent first.
func (r *Registry) ExtractFromHistory(history []models.Turn, missing []string, rc RuleContext) models.SlotValues {
	var out models.SlotValues
	remaining := append([]string(nil), missing...)

	for i := len(history) - 1; i >= 0 && len(remaining) > 0; i-- {
		if history[i].Role != "user" {
			continue
		}
		lower := strings.ToLower(history[i].Text)
		var still []string
		for _, field := range remaining {
			if value, ok := r.ExtractField(field, lower, rc); ok {
				assign(&out, field, value)
			} else {
				still = append(still, field)
			}
		}
		remaining = still
	}
	return out
}

// assign writes a canonical string value into the typed slot map.
func assign(s *models.SlotValues, field, value string) {
	s.SetCanonical(field, value)
}
