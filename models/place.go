package models

import "time"

// Source identifies where a suggestion came from.
type Source string

const (
	SourceManual     Source = "manual"
	SourceGoogle     Source = "google"
	SourceOSM        Source = "osm"
	SourceFoursquare Source = "foursquare"
)

// Suggestion is a normalized candidate place returned by a provider.
// It is not persisted until it survives deduplication.
type Suggestion struct {
	Title            string   `json:"title" csv:"title"`
	Description      string   `json:"description" csv:"description"`
	FormattedAddress string   `json:"formattedAddress" csv:"formatted_address"`
	MapsLink         string   `json:"googleMapsLink" csv:"maps_link"`
	Latitude         float64  `json:"latitude" csv:"latitude"`
	Longitude        float64  `json:"longitude" csv:"longitude"`
	Phone            string   `json:"phone,omitempty" csv:"phone,omitempty"`
	Website          string   `json:"website,omitempty" csv:"website,omitempty"`
	PriceRange       int      `json:"priceRange,omitempty" csv:"price_range,omitempty"`
	Rating           *float64 `json:"rating,omitempty" csv:"rating,omitempty"`
	UserRatingsTotal int      `json:"userRatingsTotal,omitempty" csv:"user_ratings_total,omitempty"`
	CategoryType     string   `json:"categoryType" csv:"category_type"`
	ExternalSource   Source   `json:"externalSource" csv:"external_source"`
	ExternalID       string   `json:"externalId,omitempty" csv:"external_id,omitempty"`
}

// Recommendation is a Suggestion stored against a property.
type Recommendation struct {
	ID              int64     `json:"id"`
	PropertyID      int64     `json:"propertyId"`
	CategoryID      *int64    `json:"categoryId,omitempty"`
	IsAutoSuggested bool      `json:"isAutoSuggested"`
	CreatedAt       time.Time `json:"createdAt"`
	Suggestion
}

// Property is the subset of a property record the engine reads.
type Property struct {
	ID        int64
	Name      string
	Address   string
	City      string
	Country   string
	Latitude  float64
	Longitude float64
}

// Category is a per-property recommendation bucket.
type Category struct {
	ID             int64
	PropertyID     int64
	Name           string
	Type           string
	Icon           string
	DisplayOrder   int
	SearchKeywords string
}

// LocationOverride carries caller-supplied location data that wins over
// the stored property values.
type LocationOverride struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	City      string  `json:"city"`
	Address   string  `json:"address"`
	Country   string  `json:"country"`
}
