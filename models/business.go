package models

// BusinessType tags the vertical a business belongs to. It selects reply
// wording and default service heuristics, never behavior branches on raw
// config maps.
type BusinessType string

const (
	BusinessTypeRestaurant BusinessType = "restaurant"
	BusinessTypeClinic     BusinessType = "clinic"
	BusinessTypeSpa        BusinessType = "spa"
	BusinessTypeGeneric    BusinessType = "generic"
)

// WeightedKeyword is a single keyword pattern contributing to an intention score.
type WeightedKeyword struct {
	Pattern string  `json:"pattern" bson:"pattern"`
	Weight  float64 `json:"weight" bson:"weight"`
}

// IntentionDefinition is a business-configured intention with its detection
// material: weighted keyword patterns for the cheap strategy and example
// utterances for the fuzzy strategy.
type IntentionDefinition struct {
	Name     string            `json:"name" bson:"name"`
	Keywords []WeightedKeyword `json:"keywords" bson:"keywords"`
	Examples []string          `json:"examples" bson:"examples"`
}

// ServiceDefinition describes one bookable offering of a business.
// RequiredFields, when non-empty, overrides the boolean flags as the ordered
// list of slots the service needs.
type ServiceDefinition struct {
	Key             string   `json:"key" bson:"key"`
	DisplayName     string   `json:"displayName" bson:"displayName"`
	Synonyms        []string `json:"synonyms,omitempty" bson:"synonyms,omitempty"`
	RequiresProduct bool     `json:"requiresProducts" bson:"requiresProducts"`
	RequiresGuests  bool     `json:"requiresGuests" bson:"requiresGuests"`
	RequiresTable   bool     `json:"requiresTable" bson:"requiresTable"`
	RequiresPayment bool     `json:"requiresPayment" bson:"requiresPayment"`
	RequiresAddress bool     `json:"requiresAddress" bson:"requiresAddress"`
	RequiredFields  []string `json:"requiredFields,omitempty" bson:"requiredFields,omitempty"`
}

// ProductDefinition is a catalog item (dish, treatment, retail product).
type ProductDefinition struct {
	ID         string  `json:"id" bson:"id"`
	Name       string  `json:"name" bson:"name"`
	Price      float64 `json:"price" bson:"price"`
	Available  bool    `json:"available" bson:"available"`
	TrackStock bool    `json:"trackStock" bson:"trackStock"`
	Stock      int     `json:"stock" bson:"stock"`
}

// TableDefinition is a physical resource with a seating capacity.
type TableDefinition struct {
	ID       string `json:"id" bson:"id"`
	Name     string `json:"name" bson:"name"`
	Capacity int    `json:"capacity" bson:"capacity"`
}

// OperatingWindow is a single open interval in 24h "HH:MM" form.
type OperatingWindow struct {
	Open  string `json:"open" bson:"open"`
	Close string `json:"close" bson:"close"`
}

// BusinessConfig is the normalized, validated shape of a business's dynamic
// configuration.
type BusinessConfig struct {
	Hours      []OperatingWindow     `json:"hours" bson:"hours"`
	Services   []ServiceDefinition   `json:"services" bson:"services"`
	Products   []ProductDefinition   `json:"products" bson:"products"`
	Tables     []TableDefinition     `json:"tables" bson:"tables"`
	Intentions []IntentionDefinition `json:"intentions" bson:"intentions"`
}

// Business is a tenant of the platform.
type Business struct {
	ID                string         `json:"id" bson:"_id"`
	Name              string         `json:"name" bson:"name"`
	Type              BusinessType   `json:"type" bson:"type"`
	Config            BusinessConfig `json:"config" bson:"config"`
	PaymentPercentage float64        `json:"paymentPercentage" bson:"paymentPercentage"`
	Currency          string         `json:"currency" bson:"currency"`
}

// ServiceByKey returns the service definition for key, if configured.
func (b *Business) ServiceByKey(key string) (ServiceDefinition, bool) {
	for _, svc := range b.Config.Services {
		if svc.Key == key {
			return svc, true
		}
	}
	return ServiceDefinition{}, false
}

// ProductByID returns the catalog product for id, if configured.
func (b *Business) ProductByID(id string) (ProductDefinition, bool) {
	for _, p := range b.Config.Products {
		if p.ID == id {
			return p, true
		}
	}
	return ProductDefinition{}, false
}
