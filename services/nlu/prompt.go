package nlu

import (
	"fmt"
	"strings"
	"time"

	"reservo/models"
)

// promptHistoryWindow caps how many turns of dialogue context go into the
// prompt; older turns add tokens without adding signal.
const promptHistoryWindow = 8

// BuildPrompt assembles the structured prompt for the semantic classifier:
// business identity, catalogs, resolved date references, compressed dialogue
// context and the fields still required from the user.
func BuildPrompt(message string, biz *models.Business, state *models.ConversationState, requiredFields []string, now time.Time) string {
	var sb strings.Builder

	sb.WriteString("You are an intent classifier and slot extractor for the business below.\n")
	fmt.Fprintf(&sb, "Business: %s (type: %s)\n", biz.Name, biz.Type)

	sb.WriteString("Services:\n")
	for _, svc := range biz.Config.Services {
		fmt.Fprintf(&sb, "- key=%s name=%q", svc.Key, svc.DisplayName)
		if len(svc.Synonyms) > 0 {
			fmt.Fprintf(&sb, " synonyms=%s", strings.Join(svc.Synonyms, ","))
		}
		sb.WriteString("\n")
	}

	if len(biz.Config.Products) > 0 {
		sb.WriteString("Products:\n")
		for _, p := range biz.Config.Products {
			fmt.Fprintf(&sb, "- id=%s name=%q price=%.2f\n", p.ID, p.Name, p.Price)
		}
	}

	fmt.Fprintf(&sb, "Today is %s. Tomorrow is %s.\n",
		now.Format("2006-01-02"), now.AddDate(0, 0, 1).Format("2006-01-02"))

	if state != nil && len(state.History) > 0 {
		sb.WriteString("Recent conversation:\n")
		start := len(state.History) - promptHistoryWindow
		if start < 0 {
			start = 0
		}
		for _, turn := range state.History[start:] {
			fmt.Fprintf(&sb, "%s: %s\n", turn.Role, turn.Text)
		}
	}

	if len(requiredFields) > 0 {
		fmt.Fprintf(&sb, "Fields still required: %s\n", strings.Join(requiredFields, ", "))
	}

	sb.WriteString("\nRespond with JSON only, no prose, in this shape:\n")
	sb.WriteString(`{"intention":"reserve|cancel|query|availability|greeting|farewell|other",` +
		`"confidence":0.0,"data":{"date":"YYYY-MM-DD","time":"HH:MM","guests":0,` +
		`"phone":"","name":"","service":"","products":[{"id":"","quantity":0}],` +
		`"address":"","table":""},"missing_fields":[],"suggested_reply":""}`)
	sb.WriteString("\nOmit data keys you did not find. ")
	fmt.Fprintf(&sb, "User message: %q\n", message)

	return sb.String()
}
