package extractor

import (
	"regexp"
	"strconv"
	"strings"

	"reservo/models"
)

// ReferenceType classifies an anaphoric or elliptical user reply.
type ReferenceType string

const (
	RefNone         ReferenceType = ""
	RefConfirmation ReferenceType = "confirmation"
	RefNegation     ReferenceType = "negation"
	RefRepetition   ReferenceType = "repetition"
	RefOrdinal      ReferenceType = "ordinal"
	RefPronoun      ReferenceType = "pronoun"
	RefCorrection   ReferenceType = "correction"
	RefContinuation ReferenceType = "continuation"
)

// Resolution is the outcome of reference resolution. When Rewritten differs
// from the original message, the cascade and extractor see the explicit form.
type Resolution struct {
	Type      ReferenceType
	Rewritten string
}

type refPattern struct {
	kind     ReferenceType
	patterns []*regexp.Regexp
}

// Ranked: bare negations are whole-message matches and go first, so "mejor
// no" is a refusal while "no, mejor a las 8" falls through to correction.
var refPatterns = []refPattern{
	{RefNegation, []*regexp.Regexp{
		regexp.MustCompile(`^(?:no|nada|ninguno|olv[ií]dalo|cancela(?:r)?(?:lo)?|d[eé]jalo|no gracias|mejor no)[.!]?$`),
	}},
	{RefCorrection, []*regexp.Regexp{
		regexp.MustCompile(`^no,?\s*(?:mejor|cambi[ae]lo a|que sea|make it|actually)\s+(.+)$`),
		regexp.MustCompile(`^(?:mejor|cambi[ae]lo a|que sea)\s+(.+)$`),
	}},
	{RefConfirmation, []*regexp.Regexp{
		regexp.MustCompile(`^(?:s[ií]|sí claro|claro|ok|okay|dale|listo|perfecto|de acuerdo|correcto|exacto|yes|yep|sure)[.!]?$`),
	}},
	{RefRepetition, []*regexp.Regexp{
		regexp.MustCompile(`(?:lo mismo|igual que antes|como siempre|lo de siempre|same as (?:before|last time))`),
	}},
	{RefOrdinal, []*regexp.Regexp{
		regexp.MustCompile(`^(?:el|la|the)?\s*(primer[ao]?|segund[ao]|tercer[ao]?|cuart[ao]|first|second|third|fourth)(?:\s+(?:opci[oó]n|one))?$`),
		regexp.MustCompile(`^(?:la\s+|el\s+|opci[oó]n\s+|option\s+)?([1-9])$`),
	}},
	{RefPronoun, []*regexp.Regexp{
		regexp.MustCompile(`^(?:ese|esa|eso|esto|este|esta|that one|that|this one)[.!]?$`),
	}},
	{RefContinuation, []*regexp.Regexp{
		regexp.MustCompile(`^(?:y\s+)?(?:tambi[eé]n|adem[aá]s|and also|also)\s+(.+)$`),
	}},
}

var ordinalIndex = map[string]int{
	"primer": 0, "primera": 0, "primero": 0, "first": 0,
	"segunda": 1, "segundo": 1, "second": 1,
	"tercer": 2, "tercera": 2, "tercero": 2, "third": 2,
	"cuarta": 3, "cuarto": 3, "fourth": 3,
}

// ResolveReferences classifies message against the reference types and, when
// a resolvable antecedent exists in the conversation state, rewrites it into
// an explicit value. It runs before the cascade so "sí" or "the second one"
// is never misread as out-of-scope chatter.
func ResolveReferences(message string, state *models.ConversationState) Resolution {
	trimmed := strings.TrimSpace(strings.ToLower(message))

	for _, rp := range refPatterns {
		for _, p := range rp.patterns {
			m := p.FindStringSubmatch(trimmed)
			if m == nil {
				continue
			}
			return resolve(rp.kind, m, message, state)
		}
	}
	return Resolution{Type: RefNone, Rewritten: message}
}

func resolve(kind ReferenceType, m []string, original string, state *models.ConversationState) Resolution {
	switch kind {
	case RefConfirmation:
		// The antecedent is the bot's last question: surface its concrete
		// values ("¿vienes el viernes a las 6?" → "el viernes a las 6").
		if state != nil {
			if last := state.LastAssistantText(); last != "" {
				return Resolution{Type: RefConfirmation, Rewritten: stripQuestion(last)}
			}
		}
		return Resolution{Type: RefConfirmation, Rewritten: original}

	case RefOrdinal:
		if state != nil {
			options := offeredOptions(state)
			idx := -1
			if n, err := strconv.Atoi(m[1]); err == nil {
				idx = n - 1
			} else if i, ok := ordinalIndex[m[1]]; ok {
				idx = i
			}
			if idx >= 0 && idx < len(options) {
				return Resolution{Type: RefOrdinal, Rewritten: options[idx]}
			}
		}
		return Resolution{Type: RefOrdinal, Rewritten: original}

	case RefPronoun:
		if state != nil {
			options := offeredOptions(state)
			if len(options) == 1 {
				return Resolution{Type: RefPronoun, Rewritten: options[0]}
			}
			if last := state.LastAssistantText(); last != "" {
				return Resolution{Type: RefPronoun, Rewritten: stripQuestion(last)}
			}
		}
		return Resolution{Type: RefPronoun, Rewritten: original}

	case RefRepetition:
		// Point the extractor at what was already collected; the historical
		// backfill pass recovers the rest.
		if state != nil {
			if prev := state.Collected.StringValue(models.FieldService); prev != "" {
				return Resolution{Type: RefRepetition, Rewritten: prev}
			}
		}
		return Resolution{Type: RefRepetition, Rewritten: original}

	case RefCorrection:
		return Resolution{Type: RefCorrection, Rewritten: m[1]}

	case RefContinuation:
		return Resolution{Type: RefContinuation, Rewritten: m[1]}

	case RefNegation:
		return Resolution{Type: RefNegation, Rewritten: original}
	}
	return Resolution{Type: RefNone, Rewritten: original}
}

// offeredOptions reads the options the bot last presented, stored by the
// dialog engine as a pipe-separated metadata value.
func offeredOptions(state *models.ConversationState) []string {
	raw := state.Metadata[models.MetaOfferedOptions]
	if raw == "" {
		return nil
	}
	return strings.Split(raw, "|")
}

// stripQuestion removes interrogative dressing from a bot question, leaving
// the concrete values for re-extraction.
func stripQuestion(text string) string {
	s := strings.TrimSpace(text)
	s = strings.Trim(s, "¿?¡!")
	lower := strings.ToLower(s)
	for _, prefix := range []string{"vienes ", "te esperamos ", "confirmas ", "quieres ", "te parece bien ", "would you like ", "shall i book "} {
		if strings.HasPrefix(lower, prefix) {
			return s[len(prefix):]
		}
	}
	return s
}
