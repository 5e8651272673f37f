package overpass

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"place-discovery/models"
)

const sampleElements = `{
  "elements": [
    {"type": "node", "id": 101, "lat": -41.10, "lon": -71.40,
     "tags": {"name": "Cerro Otto", "natural": "peak"}},
    {"type": "way", "id": 202, "center": {"lat": -41.12, "lon": -71.35},
     "tags": {"name": "Sendero Arroyo", "highway": "path", "addr:street": "Ruta 40", "addr:housenumber": "12"}},
    {"type": "node", "id": 303, "lat": -41.11, "lon": -71.41, "tags": {"highway": "path"}},
    {"type": "node", "id": 404, "lat": -41.13, "lon": -71.30,
     "tags": {"name": "Museo de la Patagonia", "tourism": "museum", "website": "https://museo.example"}}
  ]
}`

func TestSearchCategoryOutdoors(t *testing.T) {
	t.Parallel()

	var gotData, gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		gotData = r.PostForm.Get("data")
		_, _ = w.Write([]byte(sampleElements))
	}))
	defer srv.Close()

	c := New(Options{Endpoint: srv.URL})
	got, err := c.SearchCategory(context.Background(), -41.1335, -71.3103, "outdoors")
	if err != nil {
		t.Fatalf("SearchCategory: %v", err)
	}

	if gotContentType != "application/x-www-form-urlencoded" {
		t.Errorf("content type: %q", gotContentType)
	}
	if !strings.Contains(gotData, `relation["route"="hiking"]["name"](around:5000,-41.1335,-71.3103)`) {
		t.Errorf("outdoors query should use the 5km trail union, got:\n%s", gotData)
	}

	if len(got) != 3 {
		t.Fatalf("suggestions: got %d, want 3 (unnamed element dropped)", len(got))
	}

	peak := got[0]
	if peak.Description != "Nature: peak" || peak.FormattedAddress != "Address not available" {
		t.Errorf("peak: %+v", peak)
	}
	if peak.ExternalSource != models.SourceOSM || peak.ExternalID != "node/101" || peak.CategoryType != "outdoors" {
		t.Errorf("peak identity: %+v", peak)
	}

	trail := got[1]
	if trail.Latitude != -41.12 || trail.Longitude != -71.35 {
		t.Errorf("way should use its center, got %v,%v", trail.Latitude, trail.Longitude)
	}
	if trail.FormattedAddress != "Ruta 40 12" || trail.Description != "Found via OpenStreetMap" {
		t.Errorf("trail: %+v", trail)
	}

	if got[2].Description != "Tourism: museum" || got[2].Website != "https://museo.example" {
		t.Errorf("museum: %+v", got[2])
	}
}

func TestBuildQuery(t *testing.T) {
	t.Parallel()

	tests := []struct {
		category string
		want     string
	}{
		{"bars", `node["amenity"~"bar|pub|biergarten|nightclub"](around:1000,-41.1,-71.3);`},
		{"kids", `way["leisure"~"playground|water_park|park"]["name"](around:1000,-41.1,-71.3);`},
		{"gastronomy", `node["amenity"="restaurant"](around:1000,-41.1,-71.3);`},
		{"something-new", `node["tourism"](around:1000,-41.1,-71.3);`},
		{"trails", `node["natural"="peak"]["name"](around:5000,-41.1,-71.3);`},
	}
	for _, tt := range tests {
		q := BuildQuery(-41.1, -71.3, tt.category)
		if !strings.Contains(q, tt.want) {
			t.Errorf("BuildQuery(%q) missing %s\n%s", tt.category, tt.want, q)
		}
		if !strings.HasPrefix(q, "[out:json][timeout:90];") || !strings.Contains(q, "out center 10;") {
			t.Errorf("BuildQuery(%q) header/footer wrong:\n%s", tt.category, q)
		}
	}
}

func TestSearchCategoryUpstreamError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := New(Options{Endpoint: srv.URL})
	if _, err := c.SearchCategory(context.Background(), -41.1, -71.3, "bars"); err == nil {
		t.Fatal("expected error on 429")
	}
}
