package foursquare

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
	name           = "foursquare"
	defaultBaseURL = "https://api.foursquare.com/v3"
	searchFields   = "fsq_id,name,location,rating,stats,link,categories,geocodes"
)

// Options configures a Client.
type Options struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
	Retry      *utils.RetryConfig
	Limit      int
}

// Client queries the Foursquare Places search, ranked by popularity.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
	retry   *utils.RetryConfig
	limit   int
}

var (
	_ providers.NearbySearcher = (*Client)(nil)
	_ providers.TextSearcher   = (*Client)(nil)
)

// New validates options and returns a Client.
func New(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, fmt.Errorf("foursquare: %w", providers.ErrMissingKey)
	}
	c := &Client{
		apiKey:  opts.APIKey,
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		http:    opts.HTTPClient,
		retry:   opts.Retry,
		limit:   opts.Limit,
	}
	if c.baseURL == "" {
		c.baseURL = defaultBaseURL
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: 15 * time.Second}
	}
	if c.limit <= 0 {
		c.limit = 8
	}
	return c, nil
}

func (c *Client) Name() string { return name }

type searchResponse struct {
	Results []venue `json:"results"`
}

type venue struct {
	FsqID    string `json:"fsq_id"`
	Name     string `json:"name"`
	Location struct {
		FormattedAddress string `json:"formatted_address"`
		Address          string `json:"address"`
		Locality         string `json:"locality"`
	} `json:"location"`
	Rating *float64 `json:"rating"`
	Stats  *struct {
		TotalRatings int `json:"total_ratings"`
	} `json:"stats"`
	Categories []struct {
		Name string `json:"name"`
	} `json:"categories"`
	Geocodes *struct {
		Main *struct {
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
		} `json:"main"`
	} `json:"geocodes"`
}

// SearchNearby ranks venues around a coordinate.
func (c *Client) SearchNearby(ctx context.Context, lat, lng float64, hint string) ([]models.Suggestion, error) {
	params := c.baseParams(hint)
	params.Set("ll", strconv.FormatFloat(lat, 'f', -1, 64)+","+strconv.FormatFloat(lng, 'f', -1, 64))
	return c.search(ctx, params)
}

// SearchText ranks venues near a named place.
func (c *Client) SearchText(ctx context.Context, query, hint string) ([]models.Suggestion, error) {
	params := c.baseParams(hint)
	params.Set("near", query)
	return c.search(ctx, params)
}

func (c *Client) baseParams(hint string) url.Values {
	params := url.Values{}
	params.Set("query", hint)
	params.Set("sort", "POPULARITY")
	params.Set("limit", strconv.Itoa(c.limit))
	params.Set("fields", searchFields)
	params.Set("open_now", "false")
	return params
}

func (c *Client) search(ctx context.Context, params url.Values) ([]models.Suggestion, error) {
	endpoint := c.baseURL + "/places/search?" + params.Encode()

	var resp searchResponse
	err := providers.DoJSON(ctx, c.http, c.retry, name, func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", c.apiKey)
		req.Header.Set("Accept", "application/json")
		return req, nil
	}, &resp)
	if err != nil {
		return nil, err
	}

	out := make([]models.Suggestion, 0, len(resp.Results))
	for _, v := range resp.Results {
		if strings.TrimSpace(v.Name) == "" {
			continue
		}
		out = append(out, toSuggestion(v))
	}
	return out, nil
}

func toSuggestion(v venue) models.Suggestion {
	s := models.Suggestion{
		Title:            v.Name,
		Description:      "Lugar popular",
		FormattedAddress: v.Location.FormattedAddress,
		MapsLink:         providers.MapsQueryLink(strings.TrimSpace(v.Name + " " + v.Location.Locality)),
		ExternalSource:   models.SourceFoursquare,
		ExternalID:       v.FsqID,
	}
	if s.FormattedAddress == "" {
		s.FormattedAddress = v.Location.Address
	}
	if len(v.Categories) > 0 && v.Categories[0].Name != "" {
		s.Description = v.Categories[0].Name
	}
	if v.Rating != nil {
		r := *v.Rating / 2
		if r > 5 {
			r = 5
		}
		s.Rating = &r
	}
	if v.Stats != nil {
		s.UserRatingsTotal = v.Stats.TotalRatings
	}
	if v.Geocodes != nil && v.Geocodes.Main != nil {
		s.Latitude = v.Geocodes.Main.Latitude
		s.Longitude = v.Geocodes.Main.Longitude
	}
	return s
}
