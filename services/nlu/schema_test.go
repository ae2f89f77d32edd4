package nlu

import (
	"testing"

	"reservo/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSemanticResponseHappyPath(t *testing.T) {
	raw := `{"intention":"reserve","confidence":0.92,"data":{"date":"2026-09-02",` +
		`"time":"19:00","guests":4,"phone":"300-123-4567","service":"dine_in"},` +
		`"missing_fields":[],"suggested_reply":"¡Perfecto!"}`

	result, err := parseSemanticResponse(raw, testBusiness())
	require.NoError(t, err)

	assert.Equal(t, models.IntentionReserve, result.Intention)
	assert.Equal(t, 0.92, result.Confidence)
	assert.Equal(t, "2026-09-02", result.Extracted.Date)
	assert.Equal(t, "19:00", result.Extracted.Time)
	assert.Equal(t, 4, result.Extracted.Guests)
	assert.Equal(t, "3001234567", result.Extracted.Phone, "phone normalized to digits")
	assert.Equal(t, "dine_in", result.Extracted.Service)
	assert.Empty(t, result.MissingFields)
}

func TestParseSemanticResponseStripsMarkdownFence(t *testing.T) {
	raw := "```json\n{\"intention\":\"greeting\",\"confidence\":0.8}\n```"
	result, err := parseSemanticResponse(raw, testBusiness())
	require.NoError(t, err)
	assert.Equal(t, models.IntentionGreeting, result.Intention)
}

func TestParseSemanticResponseDropsInvalidFields(t *testing.T) {
	raw := `{"intention":"reserve","confidence":0.9,"data":{` +
		`"date":"mañana","time":"7 de la tarde","phone":"12345",` +
		`"service":"massage","guests":-2}}`

	result, err := parseSemanticResponse(raw, testBusiness())
	require.NoError(t, err)

	// Every malformed value is dropped, never trusted verbatim.
	assert.Empty(t, result.Extracted.Date)
	assert.Empty(t, result.Extracted.Time)
	assert.Empty(t, result.Extracted.Phone)
	assert.Empty(t, result.Extracted.Service)
	assert.Zero(t, result.Extracted.Guests)
	assert.ElementsMatch(t,
		[]string{models.FieldDate, models.FieldTime, models.FieldPhone, models.FieldService, models.FieldGuests},
		result.MissingFields)
}

func TestParseSemanticResponseUnknownProductDropped(t *testing.T) {
	raw := `{"intention":"reserve","confidence":0.9,"data":{"products":[` +
		`{"id":"p1","quantity":2},{"id":"ghost","quantity":1}]}}`

	result, err := parseSemanticResponse(raw, testBusiness())
	require.NoError(t, err)

	require.Len(t, result.Extracted.Products, 1)
	assert.Equal(t, "p1", result.Extracted.Products[0].ProductID)
	// A valid subset survived, so products is not reported missing.
	assert.NotContains(t, result.MissingFields, models.FieldProducts)
}

func TestParseSemanticResponseServiceSynonym(t *testing.T) {
	raw := `{"intention":"reserve","confidence":0.9,"data":{"service":"Mesa"}}`
	result, err := parseSemanticResponse(raw, testBusiness())
	require.NoError(t, err)
	assert.Equal(t, "dine_in", result.Extracted.Service)
}

func TestParseSemanticResponseMalformedIsHardFailure(t *testing.T) {
	_, err := parseSemanticResponse("I think the user wants a table", testBusiness())
	assert.Error(t, err)

	_, err = parseSemanticResponse(`{"confidence":0.5}`, testBusiness())
	assert.Error(t, err, "missing intention is out of schema")
}

func TestParseSemanticResponseClampsConfidence(t *testing.T) {
	result, err := parseSemanticResponse(`{"intention":"query","confidence":3.5}`, testBusiness())
	require.NoError(t, err)
	assert.Equal(t, 1.0, result.Confidence)
}
