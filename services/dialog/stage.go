package dialog

import (
	"strconv"
	"strings"

	"reservo/models"
	"reservo/services/reservation"
)

// NextStage is the slot-filling transition function. An open payment gate
// holds until the provider reports back, and only a cancel breaks through.
// Cancellation and farewell return to idle; a greeting outside an active
// collection resets; otherwise the stage follows the required-field gap,
// gating completion on payment when the resolved service demands it.
func NextStage(current models.Stage, intention string, collected *models.SlotValues, required []string, requiresPayment bool) models.Stage {
	if current == models.StageAwaitingPayment && intention != models.IntentionCancel {
		return current
	}
	switch intention {
	case models.IntentionCancel, models.IntentionFarewell:
		return models.StageIdle
	case models.IntentionGreeting:
		if current != models.StageCollecting {
			return models.StageIdle
		}
		return current
	}
	if len(reservation.MissingFields(required, collected)) > 0 {
		return models.StageCollecting
	}
	if requiresPayment {
		return models.StageAwaitingPayment
	}
	return models.StageCompleted
}

// conversationID is the stable identity of a (user, business) dialogue. It
// doubles as the cache key and the pending-payment correlation id.
func conversationID(userID, businessID string) string {
	return userID + ":" + businessID
}

func splitConversationID(id string) (userID, businessID string, ok bool) {
	return strings.Cut(id, ":")
}

// encodeConflict packs a detected field change into the metadata side
// channel until the user confirms or rejects it. The value is stored in the
// canonical form SetCanonical can parse back.
func encodeConflict(field string, extracted models.SlotValues) string {
	return field + "|" + canonicalValue(field, extracted)
}

func canonicalValue(field string, sv models.SlotValues) string {
	if field == models.FieldProducts {
		var parts []string
		for _, p := range sv.Products {
			parts = append(parts, p.ProductID+":"+strconv.Itoa(p.Quantity))
		}
		return strings.Join(parts, ";")
	}
	return sv.StringValue(field)
}

func decodeConflict(s string) (field, value string, ok bool) {
	return strings.Cut(s, "|")
}

// offeredOptionsValue joins the option list the assistant just presented, so
// "la segunda" on the next turn resolves to a concrete value.
func offeredOptionsValue(options []string) string {
	return strings.Join(options, "|")
}
