package reservation

import (
	"strings"

	"reservo/models"
)

// Resolution is the per-service field contract computed from the business
// configuration.
type Resolution struct {
	Service        models.ServiceDefinition
	RequiredFields []string
	// Ambiguous is set when the business offers several services and none
	// has been chosen yet; "service" itself is then the required field.
	Ambiguous bool
	// ReservationNoun is the word replies use for the action ("reserva",
	// "cita").
	ReservationNoun string
}

// Resolve determines the required-field set for the chosen (or implied)
// service. With exactly one configured service it is auto-assigned; with
// several and no choice, "service" becomes the only required field until
// disambiguated.
func Resolve(biz *models.Business, serviceKey string) Resolution {
	noun := reservationNoun(biz.Type)

	if serviceKey == "" {
		if len(biz.Config.Services) == 1 {
			svc := biz.Config.Services[0]
			return Resolution{
				Service:         svc,
				RequiredFields:  requiredFields(svc),
				ReservationNoun: noun,
			}
		}
		return Resolution{
			RequiredFields:  []string{models.FieldService},
			Ambiguous:       true,
			ReservationNoun: noun,
		}
	}

	svc, ok := biz.ServiceByKey(serviceKey)
	if !ok {
		// Unknown key: treat as undisambiguated rather than failing the turn.
		return Resolution{
			RequiredFields:  []string{models.FieldService},
			Ambiguous:       true,
			ReservationNoun: noun,
		}
	}
	return Resolution{
		Service:         svc,
		RequiredFields:  requiredFields(svc),
		ReservationNoun: noun,
	}
}

// requiredFields honors an explicit ordered list when present, otherwise
// derives the set from the flags in fixed precedence: products, date/time,
// address, phone, guests. RequiresTable never asks the user for anything:
// tables are auto-assigned at validation, preferences are honored if stated.
func requiredFields(svc models.ServiceDefinition) []string {
	if len(svc.RequiredFields) > 0 {
		return append([]string(nil), svc.RequiredFields...)
	}

	var fields []string
	if svc.RequiresProduct {
		fields = append(fields, models.FieldProducts)
	}
	fields = append(fields, models.FieldDate, models.FieldTime)
	if svc.RequiresAddress {
		fields = append(fields, models.FieldAddress)
	}
	fields = append(fields, models.FieldPhone)
	if svc.RequiresGuests {
		fields = append(fields, models.FieldGuests)
	}
	return fields
}

// MissingFields returns required fields not yet present, in required order.
func MissingFields(required []string, collected *models.SlotValues) []string {
	var missing []string
	for _, field := range required {
		if !collected.Present(field) {
			missing = append(missing, field)
		}
	}
	return missing
}

// CorrectSlots fixes likely classifier slot-naming mistakes against the
// catalog. An extracted "service" that is really a product name is rerouted
// to the product list; a product-only extraction may imply the
// product-centric service. An explicit service value always wins over
// inference: heuristics only ever fill an empty slot.
func CorrectSlots(biz *models.Business, slots *models.SlotValues) {
	if slots.Service != "" {
		if _, ok := biz.ServiceByKey(slots.Service); !ok {
			if p, ok := productByName(biz, slots.Service); ok {
				slots.Products = append(slots.Products, models.ProductSelection{ProductID: p.ID, Quantity: 1})
				slots.Service = ""
			} else {
				slots.Service = ""
			}
		}
	}

	if slots.Service == "" && len(slots.Products) > 0 {
		if key, ok := productCentricService(biz); ok {
			slots.Service = key
		}
	}
}

// productCentricService returns the single service that requires products,
// if exactly one exists.
func productCentricService(biz *models.Business) (string, bool) {
	var key string
	for _, svc := range biz.Config.Services {
		if svc.RequiresProduct {
			if key != "" {
				return "", false
			}
			key = svc.Key
		}
	}
	return key, key != ""
}

func productByName(biz *models.Business, name string) (models.ProductDefinition, bool) {
	needle := strings.ToLower(strings.TrimSpace(name))
	for _, p := range biz.Config.Products {
		if strings.ToLower(p.Name) == needle || strings.ToLower(p.ID) == needle {
			return p, true
		}
	}
	return models.ProductDefinition{}, false
}

func reservationNoun(t models.BusinessType) string {
	switch t {
	case models.BusinessTypeClinic, models.BusinessTypeSpa:
		return "cita"
	default:
		return "reserva"
	}
}
