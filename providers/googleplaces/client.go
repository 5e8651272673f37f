package googleplaces

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"place-discovery/models"
	"place-discovery/providers"
	"place-discovery/utils"
)

const (
	name           = "google"
	defaultBaseURL = "https://places.googleapis.com/v1"

	fieldMask = "places.id,places.displayName,places.formattedAddress,places.location," +
		"places.priceLevel,places.nationalPhoneNumber,places.websiteUri,places.rating,places.userRatingCount"
)

// placeTypes are hints sent as includedTypes instead of free text.
var placeTypes = map[string]bool{
	"restaurant": true, "bar": true, "cafe": true, "bakery": true, "pharmacy": true,
	"grocery_store": true, "supermarket": true, "park": true, "bank": true, "museum": true,
	"tourist_attraction": true, "shopping_mall": true, "clothing_store": true, "shoe_store": true,
	"playground": true, "amusement_park": true, "ice_cream_shop": true, "hiking_area": true,
}

var priceLevels = map[string]int{
	"PRICE_LEVEL_FREE":           1,
	"PRICE_LEVEL_INEXPENSIVE":    1,
	"PRICE_LEVEL_MODERATE":       2,
	"PRICE_LEVEL_EXPENSIVE":      3,
	"PRICE_LEVEL_VERY_EXPENSIVE": 4,
}

// Options configures a Client.
type Options struct {
	APIKey       string
	BaseURL      string
	HTTPClient   *http.Client
	Retry        *utils.RetryConfig
	MaxResults   int
	RadiusMeters float64
}

// Client talks to the Places API (New).
type Client struct {
	apiKey     string
	baseURL    string
	http       *http.Client
	retry      *utils.RetryConfig
	maxResults int
	radius     float64
}

var (
	_ providers.NearbySearcher = (*Client)(nil)
	_ providers.TextSearcher   = (*Client)(nil)
)

// New validates options and returns a Client.
func New(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, fmt.Errorf("google places: %w", providers.ErrMissingKey)
	}
	c := &Client{
		apiKey:     opts.APIKey,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		http:       opts.HTTPClient,
		retry:      opts.Retry,
		maxResults: opts.MaxResults,
		radius:     opts.RadiusMeters,
	}
	if c.baseURL == "" {
		c.baseURL = defaultBaseURL
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: 15 * time.Second}
	}
	if c.maxResults <= 0 {
		c.maxResults = 2
	}
	if c.radius <= 0 {
		c.radius = 2000
	}
	return c, nil
}

func (c *Client) Name() string { return name }

type latLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type circle struct {
	Center latLng  `json:"center"`
	Radius float64 `json:"radius"`
}

type area struct {
	Circle circle `json:"circle"`
}

type nearbyRequest struct {
	IncludedTypes       []string `json:"includedTypes"`
	MaxResultCount      int      `json:"maxResultCount"`
	LocationRestriction area     `json:"locationRestriction"`
}

type textRequest struct {
	TextQuery      string `json:"textQuery"`
	MaxResultCount int    `json:"maxResultCount"`
	LocationBias   *area  `json:"locationBias,omitempty"`
}

type searchResponse struct {
	Places []place `json:"places"`
}

type place struct {
	ID          string `json:"id"`
	DisplayName struct {
		Text string `json:"text"`
	} `json:"displayName"`
	FormattedAddress    string   `json:"formattedAddress"`
	Location            *latLng  `json:"location"`
	PriceLevel          string   `json:"priceLevel"`
	NationalPhoneNumber string   `json:"nationalPhoneNumber"`
	WebsiteURI          string   `json:"websiteUri"`
	Rating              *float64 `json:"rating"`
	UserRatingCount     int      `json:"userRatingCount"`
}

// SearchNearby uses includedTypes when hint is a known place type and a
// location-biased text search otherwise.
func (c *Client) SearchNearby(ctx context.Context, lat, lng float64, hint string) ([]models.Suggestion, error) {
	hint = strings.TrimSpace(hint)
	region := area{Circle: circle{Center: latLng{Latitude: lat, Longitude: lng}, Radius: c.radius}}

	if placeTypes[hint] {
		return c.search(ctx, "places:searchNearby", nearbyRequest{
			IncludedTypes:       []string{hint},
			MaxResultCount:      c.maxResults,
			LocationRestriction: region,
		})
	}
	return c.search(ctx, "places:searchText", textRequest{
		TextQuery:      hint,
		MaxResultCount: c.maxResults,
		LocationBias:   &region,
	})
}

// SearchText looks for hint within a free-text location.
func (c *Client) SearchText(ctx context.Context, query, hint string) ([]models.Suggestion, error) {
	return c.search(ctx, "places:searchText", textRequest{
		TextQuery:      fmt.Sprintf("%s in %s", strings.TrimSpace(hint), strings.TrimSpace(query)),
		MaxResultCount: c.maxResults,
	})
}

func (c *Client) search(ctx context.Context, method string, body any) ([]models.Suggestion, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("google places: encode request: %w", err)
	}

	var resp searchResponse
	err = providers.DoJSON(ctx, c.http, c.retry, name, func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodPost, c.baseURL+"/"+method, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Goog-Api-Key", c.apiKey)
		req.Header.Set("X-Goog-FieldMask", fieldMask)
		return req, nil
	}, &resp)
	if err != nil {
		return nil, err
	}

	out := make([]models.Suggestion, 0, len(resp.Places))
	for _, p := range resp.Places {
		if s, ok := toSuggestion(p); ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func toSuggestion(p place) (models.Suggestion, bool) {
	if p.Location == nil {
		return models.Suggestion{}, false
	}

	title := strings.TrimSpace(p.DisplayName.Text)
	if title == "" {
		title = "Unknown Place"
	}

	s := models.Suggestion{
		Title:            title,
		Description:      describe(p),
		FormattedAddress: p.FormattedAddress,
		MapsLink:         providers.MapsPointLink(p.Location.Latitude, p.Location.Longitude),
		Latitude:         p.Location.Latitude,
		Longitude:        p.Location.Longitude,
		Phone:            p.NationalPhoneNumber,
		Website:          p.WebsiteURI,
		PriceRange:       priceRange(p.PriceLevel),
		UserRatingsTotal: p.UserRatingCount,
		ExternalSource:   models.SourceGoogle,
		ExternalID:       p.ID,
	}
	if p.Rating != nil {
		r := clampRating(*p.Rating)
		s.Rating = &r
	}
	return s, true
}

func describe(p place) string {
	if p.Rating == nil {
		return "Rating: N/A"
	}
	return fmt.Sprintf("Rated %.1f (%d reviews)", *p.Rating, p.UserRatingCount)
}

// priceRange maps PRICE_LEVEL_* to 1-4, defaulting to 2.
func priceRange(level string) int {
	if n, ok := priceLevels[level]; ok {
		return n
	}
	return 2
}

func clampRating(r float64) float64 {
	switch {
	case r < 0:
		return 0
	case r > 5:
		return 5
	}
	return r
}
