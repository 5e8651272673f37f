package directions

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"place-discovery/models"
	"place-discovery/providers"
	"place-discovery/utils"
)

const (
	name           = "directions"
	defaultBaseURL = "https://maps.googleapis.com/maps/api/directions/json"
)

// Options configures a Client.
type Options struct {
	APIKey     string
	BaseURL    string
	Language   string
	HTTPClient *http.Client
	Retry      *utils.RetryConfig
}

// Client resolves public-transport routes with the Directions API.
type Client struct {
	apiKey   string
	baseURL  string
	language string
	http     *http.Client
	retry    *utils.RetryConfig
}

// New validates options and returns a Client.
func New(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, fmt.Errorf("directions: %w", providers.ErrMissingKey)
	}
	c := &Client{
		apiKey:   opts.APIKey,
		baseURL:  opts.BaseURL,
		language: opts.Language,
		http:     opts.HTTPClient,
		retry:    opts.Retry,
	}
	if c.baseURL == "" {
		c.baseURL = defaultBaseURL
	}
	if c.language == "" {
		c.language = "es"
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: 15 * time.Second}
	}
	return c, nil
}

type response struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Routes       []struct {
		Legs []struct {
			Duration struct {
				Text string `json:"text"`
			} `json:"duration"`
			Steps []step `json:"steps"`
		} `json:"legs"`
	} `json:"routes"`
}

type step struct {
	TravelMode     string `json:"travel_mode"`
	TransitDetails *struct {
		Headsign    string `json:"headsign"`
		ArrivalStop struct {
			Name string `json:"name"`
		} `json:"arrival_stop"`
		Line struct {
			Name      string `json:"name"`
			ShortName string `json:"short_name"`
			Vehicle   struct {
				Type string `json:"type"`
				Name string `json:"name"`
			} `json:"vehicle"`
		} `json:"line"`
	} `json:"transit_details"`
}

// Resolve returns the first transit line towards destination, or nil when
// no public-transport route exists.
func (c *Client) Resolve(ctx context.Context, originLat, originLng float64, destination string) (*models.Route, error) {
	params := url.Values{}
	params.Set("origin", strconv.FormatFloat(originLat, 'f', -1, 64)+","+strconv.FormatFloat(originLng, 'f', -1, 64))
	params.Set("destination", destination)
	params.Set("mode", "transit")
	params.Set("language", c.language)
	params.Set("key", c.apiKey)
	endpoint := c.baseURL + "?" + params.Encode()

	var resp response
	err := providers.DoJSON(ctx, c.http, c.retry, name, func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, endpoint, nil)
	}, &resp)
	if err != nil {
		return nil, err
	}

	switch resp.Status {
	case "OK":
	case "ZERO_RESULTS", "NOT_FOUND":
		return nil, nil
	default:
		return nil, fmt.Errorf("directions: status %s: %s", resp.Status, resp.ErrorMessage)
	}

	for _, r := range resp.Routes {
		for _, leg := range r.Legs {
			for _, s := range leg.Steps {
				if s.TravelMode != "TRANSIT" || s.TransitDetails == nil {
					continue
				}
				td := s.TransitDetails
				line := td.Line.ShortName
				if line == "" {
					line = td.Line.Name
				}
				if line == "" {
					continue
				}
				dest := td.Headsign
				if dest == "" {
					dest = td.ArrivalStop.Name
				}
				vehicle := td.Line.Vehicle.Name
				if vehicle == "" {
					vehicle = td.Line.Vehicle.Type
				}
				return &models.Route{
					LineName:    line,
					VehicleType: vehicle,
					Destination: dest,
					Duration:    leg.Duration.Text,
				}, nil
			}
		}
	}
	return nil, nil
}
