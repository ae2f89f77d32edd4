package nlu

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"reservo/models"
)

// semanticPayload is the wire shape the semantic classifier must return.
type semanticPayload struct {
	Intention  string  `json:"intention"`
	Confidence float64 `json:"confidence"`
	Data       struct {
		Date     string `json:"date"`
		Time     string `json:"time"`
		Guests   int    `json:"guests"`
		Phone    string `json:"phone"`
		Name     string `json:"name"`
		Service  string `json:"service"`
		Products []struct {
			ID       string `json:"id"`
			Quantity int    `json:"quantity"`
		} `json:"products"`
		Address string `json:"address"`
		Table   string `json:"table"`
	} `json:"data"`
	MissingFields  []string `json:"missing_fields"`
	SuggestedReply string   `json:"suggested_reply"`
}

var (
	phonePattern = regexp.MustCompile(`^\d{7,10}$`)
	timePattern  = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)
	fencePattern = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")
)

// parseSemanticResponse decodes the model's raw text into a DetectionResult.
// A response that is not parseable JSON is a hard provider failure. Parsed
// but out-of-schema field values are dropped from the extracted slots and
// appended to missingFields; the model is never trusted for validity.
func parseSemanticResponse(raw string, biz *models.Business) (*models.DetectionResult, error) {
	text := strings.TrimSpace(raw)
	if m := fencePattern.FindStringSubmatch(text); m != nil {
		text = strings.TrimSpace(m[1])
	}

	var payload semanticPayload
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return nil, fmt.Errorf("semantic response is not valid JSON: %w", err)
	}
	if payload.Intention == "" {
		return nil, fmt.Errorf("semantic response carries no intention")
	}

	result := &models.DetectionResult{
		Intention:      payload.Intention,
		Confidence:     clamp01(payload.Confidence),
		MissingFields:  payload.MissingFields,
		SuggestedReply: payload.SuggestedReply,
		Strategy:       "semantic",
	}

	dropped := func(field string) {
		for _, f := range result.MissingFields {
			if f == field {
				return
			}
		}
		result.MissingFields = append(result.MissingFields, field)
	}

	d := payload.Data
	if d.Date != "" {
		if _, err := time.Parse("2006-01-02", d.Date); err == nil {
			result.Extracted.Date = d.Date
		} else {
			dropped(models.FieldDate)
		}
	}
	if d.Time != "" {
		if timePattern.MatchString(d.Time) {
			result.Extracted.Time = d.Time
		} else {
			dropped(models.FieldTime)
		}
	}
	if d.Guests != 0 {
		if d.Guests > 0 && d.Guests <= 100 {
			result.Extracted.Guests = d.Guests
		} else {
			dropped(models.FieldGuests)
		}
	}
	if d.Phone != "" {
		digits := strings.Map(keepDigits, d.Phone)
		if phonePattern.MatchString(digits) {
			result.Extracted.Phone = digits
		} else {
			dropped(models.FieldPhone)
		}
	}
	if d.Name != "" {
		result.Extracted.Name = strings.TrimSpace(d.Name)
	}
	if d.Service != "" {
		if key, ok := matchServiceKey(biz, d.Service); ok {
			result.Extracted.Service = key
		} else {
			dropped(models.FieldService)
		}
	}
	if len(d.Products) > 0 {
		var valid []models.ProductSelection
		anyBad := false
		for _, p := range d.Products {
			if _, ok := biz.ProductByID(p.ID); ok && p.Quantity > 0 {
				valid = append(valid, models.ProductSelection{ProductID: p.ID, Quantity: p.Quantity})
			} else {
				anyBad = true
			}
		}
		result.Extracted.Products = valid
		if anyBad && len(valid) == 0 {
			dropped(models.FieldProducts)
		}
	}
	if d.Address != "" {
		result.Extracted.Address = strings.TrimSpace(d.Address)
	}
	if d.Table != "" {
		result.Extracted.TableID = strings.TrimSpace(d.Table)
	}

	return result, nil
}

// matchServiceKey resolves a model-suggested service value against the
// catalog by key, display name or synonym.
func matchServiceKey(biz *models.Business, value string) (string, bool) {
	needle := strings.ToLower(strings.TrimSpace(value))
	for _, svc := range biz.Config.Services {
		if strings.ToLower(svc.Key) == needle || strings.ToLower(svc.DisplayName) == needle {
			return svc.Key, true
		}
		for _, syn := range svc.Synonyms {
			if strings.ToLower(syn) == needle {
				return svc.Key, true
			}
		}
	}
	return "", false
}

func keepDigits(r rune) rune {
	if r >= '0' && r <= '9' {
		return r
	}
	return -1
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
