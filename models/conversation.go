package models

import (
	"strconv"
	"strings"
	"time"
)

// Stage is the coarse phase of a conversation's progress toward a committed
// action.
type Stage string

const (
	StageIdle            Stage = "idle"
	StageCollecting      Stage = "collecting"
	StageAwaitingPayment Stage = "awaiting_payment"
	StageCompleted       Stage = "completed"
)

// Slot field names. Every missing-field computation and extraction rule is
// keyed by these.
const (
	FieldDate     = "date"
	FieldTime     = "time"
	FieldGuests   = "guests"
	FieldPhone    = "phone"
	FieldName     = "name"
	FieldService  = "service"
	FieldProducts = "products"
	FieldAddress  = "address"
	FieldTable    = "table"
)

// Turn is one entry of the bounded conversation history.
type Turn struct {
	Role      string    `json:"role" bson:"role"` // "user" or "assistant"
	Text      string    `json:"text" bson:"text"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}

// ProductSelection references a catalog product with a quantity.
type ProductSelection struct {
	ProductID string `json:"productId" bson:"productId"`
	Quantity  int    `json:"quantity" bson:"quantity"`
}

// SlotValues is the typed slot map. Date is "YYYY-MM-DD", Time is 24h "HH:MM".
// The zero value of each field means "missing"; Present is the single
// authority on that question.
type SlotValues struct {
	Date     string             `json:"date,omitempty" bson:"date,omitempty"`
	Time     string             `json:"time,omitempty" bson:"time,omitempty"`
	Guests   int                `json:"guests,omitempty" bson:"guests,omitempty"`
	Phone    string             `json:"phone,omitempty" bson:"phone,omitempty"`
	Name     string             `json:"name,omitempty" bson:"name,omitempty"`
	Service  string             `json:"service,omitempty" bson:"service,omitempty"`
	Products []ProductSelection `json:"products,omitempty" bson:"products,omitempty"`
	Address  string             `json:"address,omitempty" bson:"address,omitempty"`
	TableID  string             `json:"table,omitempty" bson:"table,omitempty"`
}

// Present reports whether field carries a usable value: non-empty string,
// positive count, non-empty list. Zero guests and an empty product list are
// missing, never "present but empty".
func (s *SlotValues) Present(field string) bool {
	switch field {
	case FieldDate:
		return s.Date != ""
	case FieldTime:
		return s.Time != ""
	case FieldGuests:
		return s.Guests > 0
	case FieldPhone:
		return s.Phone != ""
	case FieldName:
		return s.Name != ""
	case FieldService:
		return s.Service != ""
	case FieldProducts:
		return len(s.Products) > 0
	case FieldAddress:
		return s.Address != ""
	case FieldTable:
		return s.TableID != ""
	}
	return false
}

// StringValue returns the display form of a field, for prompts and replies.
func (s *SlotValues) StringValue(field string) string {
	switch field {
	case FieldDate:
		return s.Date
	case FieldTime:
		return s.Time
	case FieldGuests:
		if s.Guests > 0 {
			return strconv.Itoa(s.Guests)
		}
		return ""
	case FieldPhone:
		return s.Phone
	case FieldName:
		return s.Name
	case FieldService:
		return s.Service
	case FieldProducts:
		var parts []string
		for _, p := range s.Products {
			parts = append(parts, strconv.Itoa(p.Quantity)+"x "+p.ProductID)
		}
		return strings.Join(parts, ", ")
	case FieldAddress:
		return s.Address
	case FieldTable:
		return s.TableID
	}
	return ""
}

// SetCanonical assigns a field from its canonical string form, parsing the
// typed fields: guests as an integer, products as "id:qty;id:qty".
func (s *SlotValues) SetCanonical(field, value string) {
	switch field {
	case FieldGuests:
		if n, err := strconv.Atoi(value); err == nil {
			s.Guests = n
		}
	case FieldProducts:
		for _, part := range strings.Split(value, ";") {
			id, qty, ok := strings.Cut(part, ":")
			if !ok {
				continue
			}
			n, err := strconv.Atoi(qty)
			if err != nil || n <= 0 {
				continue
			}
			s.Products = append(s.Products, ProductSelection{ProductID: id, Quantity: n})
		}
	default:
		s.SetString(field, value)
	}
}

// SetString assigns a canonical string value to a string-typed field.
// Guests and products have dedicated setters on account of their types.
func (s *SlotValues) SetString(field, value string) {
	switch field {
	case FieldDate:
		s.Date = value
	case FieldTime:
		s.Time = value
	case FieldPhone:
		s.Phone = value
	case FieldName:
		s.Name = value
	case FieldService:
		s.Service = value
	case FieldAddress:
		s.Address = value
	case FieldTable:
		s.TableID = value
	}
}

// FieldChange records a real difference between a locked value and a newly
// extracted one.
type FieldChange struct {
	Field string `json:"field"`
	Old   string `json:"old"`
	New   string `json:"new"`
}

// MergeNew folds newly extracted values into s. Locked fields (already
// present) are never silently overwritten: a differing new value is reported
// as a FieldChange instead, a repeated identical value is a no-op.
func (s *SlotValues) MergeNew(extracted SlotValues) []FieldChange {
	var conflicts []FieldChange
	for _, field := range AllFields() {
		if !extracted.Present(field) {
			continue
		}
		if !s.Present(field) {
			s.copyField(field, extracted)
			continue
		}
		if s.StringValue(field) != extracted.StringValue(field) {
			conflicts = append(conflicts, FieldChange{
				Field: field,
				Old:   s.StringValue(field),
				New:   extracted.StringValue(field),
			})
		}
	}
	return conflicts
}

// ForceSet overwrites a field with a new value, used once a change has been
// explicitly confirmed by the user.
func (s *SlotValues) ForceSet(field string, extracted SlotValues) {
	s.copyField(field, extracted)
}

func (s *SlotValues) copyField(field string, from SlotValues) {
	switch field {
	case FieldGuests:
		s.Guests = from.Guests
	case FieldProducts:
		s.Products = append([]ProductSelection(nil), from.Products...)
	default:
		s.SetString(field, from.StringValue(field))
	}
}

// AllFields returns every known slot field name in canonical order.
func AllFields() []string {
	return []string{
		FieldService, FieldProducts, FieldDate, FieldTime,
		FieldAddress, FieldPhone, FieldGuests, FieldTable, FieldName,
	}
}

// Metadata keys used by the dialog engine as its side channel.
const (
	MetaAskedAllFields  = "asked_all_fields"
	MetaPendingConflict = "pending_conflict"
	MetaOfferedOptions  = "offered_options"
	MetaLastQuestion    = "last_question"
	MetaInvalidProducts = "invalid_products"
)

// ConversationState is the per (user, business) dialogue state.
type ConversationState struct {
	UserID               string            `json:"userId" bson:"userId"`
	BusinessID           string            `json:"businessId" bson:"businessId"`
	Stage                Stage             `json:"stage" bson:"stage"`
	Collected            SlotValues        `json:"collectedData" bson:"collectedData"`
	History              []Turn            `json:"history" bson:"history"`
	LastIntention        string            `json:"lastIntention" bson:"lastIntention"`
	Metadata             map[string]string `json:"metadata" bson:"metadata"`
	PendingReservationID string            `json:"pendingReservationId,omitempty" bson:"pendingReservationId,omitempty"`
	UpdatedAt            time.Time         `json:"updatedAt" bson:"updatedAt"`
}

// NewConversationState returns a fresh idle state for a (user, business) pair.
func NewConversationState(userID, businessID string) *ConversationState {
	return &ConversationState{
		UserID:     userID,
		BusinessID: businessID,
		Stage:      StageIdle,
		Metadata:   map[string]string{},
	}
}

// AppendTurn adds a turn to the history, keeping at most max entries.
func (c *ConversationState) AppendTurn(role, text string, max int) {
	c.History = append(c.History, Turn{Role: role, Text: text, Timestamp: time.Now()})
	if max > 0 && len(c.History) > max {
		c.History = c.History[len(c.History)-max:]
	}
}

// Reset clears collected data, metadata and stage. History is preserved.
func (c *ConversationState) Reset() {
	c.Stage = StageIdle
	c.Collected = SlotValues{}
	c.Metadata = map[string]string{}
	c.PendingReservationID = ""
}

// LastAssistantText returns the most recent assistant turn, or "".
func (c *ConversationState) LastAssistantText() string {
	for i := len(c.History) - 1; i >= 0; i-- {
		if c.History[i].Role == "assistant" {
			return c.History[i].Text
		}
	}
	return ""
}
