package overpass

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
	name            = "osm"
	defaultEndpoint = "https://overpass-api.de/api/interpreter"
	defaultRadius   = 1000
	outdoorsRadius  = 5000
	resultCap       = 10
)

// tagFilters maps category types to Overpass tag selectors.
var tagFilters = map[string]string{
	"gastronomy":  `["amenity"="restaurant"]`,
	"restaurants": `["amenity"="restaurant"]`,
	"sights":      `["tourism"~"museum|attraction|viewpoint|artwork"]`,
	"tourism":     `["tourism"~"museum|attraction|viewpoint|artwork"]`,
	"shops":       `["shop"]`,
	"shopping":    `["shop"]`,
	"kids":        `["leisure"~"playground|water_park|park"]["name"]`,
	"bars":        `["amenity"~"bar|pub|biergarten|nightclub"]`,
	"nightlife":   `["amenity"~"bar|pub|biergarten|nightclub"]`,
	"breakfast":   `["amenity"~"cafe|ice_cream"]`,
	"essentials":  `["shop"~"supermarket|convenience"]`,
}

// Options configures a Client.
type Options struct {
	Endpoint   string
	HTTPClient *http.Client
	Retry      *utils.RetryConfig
}

// Client runs Overpass QL queries against OpenStreetMap data. It needs no key.
type Client struct {
	endpoint string
	http     *http.Client
	retry    *utils.RetryConfig
}

var _ providers.CategorySearcher = (*Client)(nil)

// New returns a Client with defaults filled in.
func New(opts Options) *Client {
	c := &Client{endpoint: opts.Endpoint, http: opts.HTTPClient, retry: opts.Retry}
	if c.endpoint == "" {
		c.endpoint = defaultEndpoint
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: 90 * time.Second}
	}
	return c
}

func (c *Client) Name() string { return name }

type response struct {
	Elements []element `json:"elements"`
}

type element struct {
	Type   string            `json:"type"`
	ID     int64             `json:"id"`
	Lat    float64           `json:"lat"`
	Lon    float64           `json:"lon"`
	Center *struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"center"`
	Tags map[string]string `json:"tags"`
}

// SearchCategory returns named OSM features matching the category's tags.
func (c *Client) SearchCategory(ctx context.Context, lat, lng float64, categoryType string) ([]models.Suggestion, error) {
	query := BuildQuery(lat, lng, categoryType)
	form := url.Values{}
	form.Set("data", query)
	body := form.Encode()

	var resp response
	err := providers.DoJSON(ctx, c.http, c.retry, name, func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodPost, c.endpoint, strings.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return req, nil
	}, &resp)
	if err != nil {
		return nil, err
	}

	out := make([]models.Suggestion, 0, len(resp.Elements))
	for _, el := range resp.Elements {
		if s, ok := toSuggestion(el, categoryType); ok {
			out = append(out, s)
		}
	}
	return out, nil
}

// BuildQuery renders the Overpass QL for a category around a point.
func BuildQuery(lat, lng float64, categoryType string) string {
	category := strings.ToLower(strings.TrimSpace(categoryType))
	around := func(radius int) string {
		return fmt.Sprintf("(around:%d,%s,%s)", radius,
			strconv.FormatFloat(lat, 'f', -1, 64), strconv.FormatFloat(lng, 'f', -1, 64))
	}

	var b strings.Builder
	b.WriteString("[out:json][timeout:90];\n(\n")
	if category == "outdoors" || category == "trails" {
		a := around(outdoorsRadius)
		fmt.Fprintf(&b, "  node[\"highway\"~\"path|footway|track\"][\"name\"]%s;\n", a)
		fmt.Fprintf(&b, "  way[\"highway\"~\"path|footway|track\"][\"name\"]%s;\n", a)
		fmt.Fprintf(&b, "  relation[\"route\"=\"hiking\"][\"name\"]%s;\n", a)
		fmt.Fprintf(&b, "  node[\"tourism\"~\"alpine_hut|wilderness_hut\"]%s;\n", a)
		fmt.Fprintf(&b, "  node[\"natural\"=\"peak\"][\"name\"]%s;\n", a)
		fmt.Fprintf(&b, "  node[\"tourism\"=\"attraction\"]%s;\n", a)
	} else {
		tag, ok := tagFilters[category]
		if !ok {
			tag = `["tourism"]`
		}
		a := around(defaultRadius)
		fmt.Fprintf(&b, "  node%s%s;\n", tag, a)
		fmt.Fprintf(&b, "  way%s%s;\n", tag, a)
	}
	fmt.Fprintf(&b, ");\nout center %d;\n", resultCap)
	return b.String()
}

func toSuggestion(el element, categoryType string) (models.Suggestion, bool) {
	title := strings.TrimSpace(el.Tags["name"])
	if title == "" {
		return models.Suggestion{}, false
	}

	lat, lng := el.Lat, el.Lon
	if el.Center != nil && lat == 0 && lng == 0 {
		lat, lng = el.Center.Lat, el.Center.Lon
	}

	address := "Address not available"
	if street := el.Tags["addr:street"]; street != "" {
		address = strings.TrimSpace(street + " " + el.Tags["addr:housenumber"])
	}

	description := "Found via OpenStreetMap"
	switch {
	case el.Tags["tourism"] != "":
		description = "Tourism: " + el.Tags["tourism"]
	case el.Tags["natural"] != "":
		description = "Nature: " + el.Tags["natural"]
	}

	return models.Suggestion{
		Title:            title,
		Description:      description,
		FormattedAddress: address,
		MapsLink:         providers.MapsPointLink(lat, lng),
		Latitude:         lat,
		Longitude:        lng,
		Phone:            el.Tags["phone"],
		Website:          el.Tags["website"],
		CategoryType:     categoryType,
		ExternalSource:   models.SourceOSM,
		ExternalID:       fmt.Sprintf("%s/%d", el.Type, el.ID),
	}, true
}
