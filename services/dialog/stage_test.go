package dialog

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"reservo/models"
)

func TestNextStageTransitions(t *testing.T) {
	full := models.SlotValues{
		Date:   "2026-09-02",
		Time:   "19:00",
		Phone:  "3001234567",
		Guests: 4,
	}
	partial := models.SlotValues{Date: "2026-09-02"}
	required := []string{models.FieldDate, models.FieldTime, models.FieldPhone, models.FieldGuests}

	cases := []struct {
		name            string
		current         models.Stage
		intention       string
		collected       models.SlotValues
		requiresPayment bool
		want            models.Stage
	}{
		{"idle reserve with gaps collects", models.StageIdle, models.IntentionReserve, partial, false, models.StageCollecting},
		{"collecting stays while gaps remain", models.StageCollecting, models.IntentionReserve, partial, false, models.StageCollecting},
		{"all fields complete", models.StageCollecting, models.IntentionReserve, full, false, models.StageCompleted},
		{"payment gates completion", models.StageCollecting, models.IntentionReserve, full, true, models.StageAwaitingPayment},
		{"cancel always returns to idle", models.StageCollecting, models.IntentionCancel, full, false, models.StageIdle},
		{"farewell always returns to idle", models.StageCollecting, models.IntentionFarewell, partial, false, models.StageIdle},
		{"greeting outside collection resets", models.StageCompleted, models.IntentionGreeting, full, false, models.StageIdle},
		{"greeting mid-collection keeps collecting", models.StageCollecting, models.IntentionGreeting, partial, false, models.StageCollecting},
		{"payment gate holds until verified", models.StageAwaitingPayment, models.IntentionReserve, full, true, models.StageAwaitingPayment},
		{"payment gate holds through farewell", models.StageAwaitingPayment, models.IntentionFarewell, full, true, models.StageAwaitingPayment},
		{"cancel breaks the payment gate", models.StageAwaitingPayment, models.IntentionCancel, full, true, models.StageIdle},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			collected := tc.collected
			got := NextStage(tc.current, tc.intention, &collected, required, tc.requiresPayment)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestConversationIDRoundTrip(t *testing.T) {
	id := conversationID("u1", "biz1")
	assert.Equal(t, "u1:biz1", id)

	userID, businessID, ok := splitConversationID(id)
	assert.True(t, ok)
	assert.Equal(t, "u1", userID)
	assert.Equal(t, "biz1", businessID)
}

func TestConflictEncodingRoundTrip(t *testing.T) {
	sv := models.SlotValues{
		Products: []models.ProductSelection{{ProductID: "p1", Quantity: 2}, {ProductID: "p2", Quantity: 1}},
	}
	encoded := encodeConflict(models.FieldProducts, sv)
	field, value, ok := decodeConflict(encoded)
	assert.True(t, ok)
	assert.Equal(t, models.FieldProducts, field)

	var parsed models.SlotValues
	parsed.SetCanonical(field, value)
	assert.Equal(t, sv.Products, parsed.Products)
}
