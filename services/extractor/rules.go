package extractor

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"reservo/models"
)

// DefaultRegistry builds the stock rule set. All patterns assume lowercased
// input. Businesses with exotic slot types add their own rules on top.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	registerDateRules(r)
	registerTimeRules(r)
	registerPhoneRules(r)
	registerGuestRules(r)
	registerNameRules(r)
	registerAddressRules(r)
	registerServiceRule(r)
	registerProductRule(r)
	registerTableRules(r)
	return r
}

var weekdays = map[string]time.Weekday{
	"domingo": time.Sunday, "sunday": time.Sunday,
	"lunes": time.Monday, "monday": time.Monday,
	"martes": time.Tuesday, "tuesday": time.Tuesday,
	"miércoles": time.Wednesday, "miercoles": time.Wednesday, "wednesday": time.Wednesday,
	"jueves": time.Thursday, "thursday": time.Thursday,
	"viernes": time.Friday, "friday": time.Friday,
	"sábado": time.Saturday, "sabado": time.Saturday, "saturday": time.Saturday,
}

func registerDateRules(r *Registry) {
	// Explicit ISO date.
	r.Register(Rule{
		Field:    models.FieldDate,
		Priority: 1,
		Patterns: []*regexp.Regexp{regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2})\b`)},
		Resolve: func(m []string, rc RuleContext) (string, bool) {
			if _, err := time.Parse("2006-01-02", m[1]); err != nil {
				return "", false
			}
			return m[1], true
		},
	})
	// Numeric day/month with optional year.
	r.Register(Rule{
		Field:    models.FieldDate,
		Priority: 2,
		Patterns: []*regexp.Regexp{regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})(?:/(\d{2,4}))?\b`)},
		Resolve: func(m []string, rc RuleContext) (string, bool) {
			day, _ := strconv.Atoi(m[1])
			month, _ := strconv.Atoi(m[2])
			if day < 1 || day > 31 || month < 1 || month > 12 {
				return "", false
			}
			year := rc.Now.Year()
			if m[3] != "" {
				year, _ = strconv.Atoi(m[3])
				if year < 100 {
					year += 2000
				}
			}
			d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, rc.Now.Location())
			if d.Day() != day {
				return "", false
			}
			return d.Format("2006-01-02"), true
		},
	})
	// Relative day words.
	r.Register(Rule{
		Field:    models.FieldDate,
		Priority: 3,
		Patterns: []*regexp.Regexp{regexp.MustCompile(`\b(pasado mañana|pasado manana|mañana|manana|hoy|today|tomorrow)\b`)},
		Resolve: func(m []string, rc RuleContext) (string, bool) {
			switch m[1] {
			case "hoy", "today":
				return rc.Now.Format("2006-01-02"), true
			case "mañana", "manana", "tomorrow":
				return rc.Now.AddDate(0, 0, 1).Format("2006-01-02"), true
			case "pasado mañana", "pasado manana":
				return rc.Now.AddDate(0, 0, 2).Format("2006-01-02"), true
			}
			return "", false
		},
	})
	// Weekday names resolve to the next occurrence (today included).
	r.Register(Rule{
		Field:    models.FieldDate,
		Priority: 4,
		Patterns: []*regexp.Regexp{regexp.MustCompile(
			`\b(domingo|lunes|martes|mi[eé]rcoles|jueves|viernes|s[aá]bado|sunday|monday|tuesday|wednesday|thursday|friday|saturday)\b`)},
		Resolve: func(m []string, rc RuleContext) (string, bool) {
			target, ok := weekdays[m[1]]
			if !ok {
				return "", false
			}
			delta := (int(target) - int(rc.Now.Weekday()) + 7) % 7
			return rc.Now.AddDate(0, 0, delta).Format("2006-01-02"), true
		},
	})
}

func registerTimeRules(r *Registry) {
	// HH:MM, possibly with a meridiem tail.
	r.Register(Rule{
		Field:    models.FieldTime,
		Priority: 1,
		Patterns: []*regexp.Regexp{regexp.MustCompile(
			`\b(\d{1,2}):(\d{2})\s*(am|pm|de la tarde|de la noche|de la mañana|de la manana)?\b`)},
		Resolve: func(m []string, rc RuleContext) (string, bool) {
			return canonicalTime(m[1], m[2], m[3])
		},
	})
	// Colloquial bare hour with meridiem: "8 pm", "7 de la tarde".
	r.Register(Rule{
		Field:    models.FieldTime,
		Priority: 2,
		Patterns: []*regexp.Regexp{regexp.MustCompile(
			`\b(\d{1,2})\s*(am|pm|de la tarde|de la noche|de la mañana|de la manana)\b`)},
		Resolve: func(m []string, rc RuleContext) (string, bool) {
			return canonicalTime(m[1], "00", m[2])
		},
	})
	// Bare "a las 19".
	r.Register(Rule{
		Field:    models.FieldTime,
		Priority: 3,
		Patterns: []*regexp.Regexp{regexp.MustCompile(`\ba las?\s+(\d{1,2})\b`)},
		Resolve: func(m []string, rc RuleContext) (string, bool) {
			return canonicalTime(m[1], "00", "")
		},
	})
}

// canonicalTime normalizes to 24h "HH:MM".
func canonicalTime(hourStr, minStr, meridiem string) (string, bool) {
	hour, err := strconv.Atoi(hourStr)
	if err != nil {
		return "", false
	}
	minute, err := strconv.Atoi(minStr)
	if err != nil || minute > 59 {
		return "", false
	}
	switch meridiem {
	case "pm", "de la tarde", "de la noche":
		if hour < 12 {
			hour += 12
		}
	case "am", "de la mañana", "de la manana":
		if hour == 12 {
			hour = 0
		}
	}
	if hour > 23 {
		return "", false
	}
	return fmt.Sprintf("%02d:%02d", hour, minute), true
}

func registerPhoneRules(r *Registry) {
	digitsOf := func(s string) string {
		return strings.Map(func(c rune) rune {
			if c >= '0' && c <= '9' {
				return c
			}
			return -1
		}, s)
	}
	resolveLen := func(min, max int) func([]string, RuleContext) (string, bool) {
		return func(m []string, rc RuleContext) (string, bool) {
			d := digitsOf(m[1])
			if len(d) < min || len(d) > max {
				return "", false
			}
			return d, true
		}
	}
	// Labelled number wins over bare digit runs.
	r.Register(Rule{
		Field:    models.FieldPhone,
		Priority: 1,
		Patterns: []*regexp.Regexp{regexp.MustCompile(
			`(?:tel[eé]fono|tel|phone|celular|cel|m[oó]vil|n[uú]mero)\D{0,5}(\d[\d\s.\-]{5,13}\d)`)},
		Resolve: resolveLen(7, 10),
	})
	r.Register(Rule{
		Field:    models.FieldPhone,
		Priority: 2,
		Patterns: []*regexp.Regexp{regexp.MustCompile(`\b(\d{9,10})\b`)},
		Resolve:  resolveLen(9, 10),
	})
	r.Register(Rule{
		Field:    models.FieldPhone,
		Priority: 3,
		Patterns: []*regexp.Regexp{regexp.MustCompile(`\b(\d{7,8})\b`)},
		Resolve:  resolveLen(7, 8),
	})
}

func registerGuestRules(r *Registry) {
	resolveCount := func(m []string, rc RuleContext) (string, bool) {
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 || n > 100 {
			return "", false
		}
		return m[1], true
	}
	r.Register(Rule{
		Field:    models.FieldGuests,
		Priority: 1,
		Patterns: []*regexp.Regexp{regexp.MustCompile(
			`\b(\d{1,3})\s*(?:personas?|people|pax|invitados|comensales)\b`)},
		Resolve: resolveCount,
	})
	r.Register(Rule{
		Field:    models.FieldGuests,
		Priority: 2,
		Patterns: []*regexp.Regexp{regexp.MustCompile(`\b(?:para|somos|for)\s+(\d{1,3})\b`)},
		Resolve:  resolveCount,
	})
}

func registerNameRules(r *Registry) {
	r.Register(Rule{
		Field:    models.FieldName,
		Priority: 1,
		Patterns: []*regexp.Regexp{regexp.MustCompile(
			`(?:me llamo|mi nombre es|my name is|a nombre de|soy)\s+([a-záéíóúñü]+(?:\s+[a-záéíóúñü]+)?)`)},
		Resolve: func(m []string, rc RuleContext) (string, bool) {
			return titleCase(m[1]), true
		},
	})
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		runes := []rune(w)
		words[i] = strings.ToUpper(string(runes[0])) + string(runes[1:])
	}
	return strings.Join(words, " ")
}

func registerAddressRules(r *Registry) {
	r.Register(Rule{
		Field:    models.FieldAddress,
		Priority: 1,
		Patterns: []*regexp.Regexp{regexp.MustCompile(
			`(?:direcci[oó]n|address|entregar en|enviar a|llevar a|env[ií]alo a)\s*:?\s*([^.;!?]{5,80})`)},
		Resolve: func(m []string, rc RuleContext) (string, bool) {
			return strings.TrimSpace(m[1]), true
		},
	})
	// Street-style addresses without a label.
	r.Register(Rule{
		Field:    models.FieldAddress,
		Priority: 2,
		Patterns: []*regexp.Regexp{regexp.MustCompile(
			`\b((?:calle|carrera|avenida|av|cra|cll|kr)\.?\s*#?\s*\d+[^.,;!?]{0,40})`)},
		Resolve: func(m []string, rc RuleContext) (string, bool) {
			return strings.TrimSpace(m[1]), true
		},
	})
}

func registerServiceRule(r *Registry) {
	// Catalog-aware: matches service keys, display names or synonyms.
	r.Register(Rule{
		Field:    models.FieldService,
		Priority: 1,
		Patterns: []*regexp.Regexp{regexp.MustCompile(`(.+)`)},
		Resolve: func(m []string, rc RuleContext) (string, bool) {
			if rc.Business == nil {
				return "", false
			}
			text := m[1]
			for _, svc := range rc.Business.Config.Services {
				candidates := append([]string{svc.Key, svc.DisplayName}, svc.Synonyms...)
				for _, cand := range candidates {
					if cand != "" && containsWord(text, strings.ToLower(cand)) {
						return svc.Key, true
					}
				}
			}
			return "", false
		},
	})
}

func registerProductRule(r *Registry) {
	// Catalog-aware: "2 pizza margarita" or a bare product name (quantity 1).
	r.Register(Rule{
		Field:    models.FieldProducts,
		Priority: 1,
		Patterns: []*regexp.Regexp{regexp.MustCompile(`(.+)`)},
		Resolve: func(m []string, rc RuleContext) (string, bool) {
			if rc.Business == nil {
				return "", false
			}
			text := m[1]
			var parts []string
			for _, p := range rc.Business.Config.Products {
				name := strings.ToLower(p.Name)
				if name == "" || !strings.Contains(text, name) {
					continue
				}
				qty := 1
				qtyPattern := regexp.MustCompile(`(\d{1,2})\s*(?:x\s*)?` + regexp.QuoteMeta(name))
				if qm := qtyPattern.FindStringSubmatch(text); qm != nil {
					if n, err := strconv.Atoi(qm[1]); err == nil && n > 0 {
						qty = n
					}
				}
				parts = append(parts, fmt.Sprintf("%s:%d", p.ID, qty))
			}
			if len(parts) == 0 {
				return "", false
			}
			return strings.Join(parts, ";"), true
		},
	})
}

func registerTableRules(r *Registry) {
	// Explicitly numbered table. Plain "mesa" stays a service synonym.
	r.Register(Rule{
		Field:    models.FieldTable,
		Priority: 1,
		Patterns: []*regexp.Regexp{regexp.MustCompile(
			`(?:mesa|table)\s*(?:n[uú]mero|num|no\.?|#)\s*(\w+)`)},
		Resolve: func(m []string, rc RuleContext) (string, bool) {
			return m[1], true
		},
	})
}

// containsWord reports whether needle occurs in text on word boundaries.
func containsWord(text, needle string) bool {
	idx := strings.Index(text, needle)
	for idx >= 0 {
		before := idx == 0 || !isWordChar(rune(text[idx-1]))
		afterIdx := idx + len(needle)
		after := afterIdx >= len(text) || !isWordChar(rune(text[afterIdx]))
		if before && after {
			return true
		}
		next := strings.Index(text[idx+1:], needle)
		if next < 0 {
			return false
		}
		idx = idx + 1 + next
	}
	return false
}

func isWordChar(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}
