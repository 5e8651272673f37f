package mapsweb

import (
	"context"
	"errors"
	"strings"
	"testing"
)

const feedFixture = `
<div role="feed">
  <div role="article" aria-label="La Parrilla de Julián">
    <a href="https://www.google.com/maps/place/La+Parrilla/data=!4m7!3m6!1s0x0:0x1!8m2!3d-41.1336!4d-71.3011!16s%2Fg%2F11!19sChIJparrilla?authuser=0"></a>
    <span role="img" aria-label="4,6 estrellas 1.234 reseñas">4,6(1.234)</span>
    <div class="W4Efsd">4,6 · $$</div>
    <div class="W4Efsd">Restaurante · Mitre 123</div>
    <a data-value="Sitio web" href="https://parrilla.example"></a>
  </div>
  <div role="article" aria-label="La Parrilla de Julián">
    <a href="https://www.google.com/maps/place/La+Parrilla/data=!4m7!3m6!1s0x0:0x1!8m2!3d-41.1336!4d-71.3011!16s%2Fg%2F11!19sChIJparrilla?authuser=0"></a>
  </div>
  <div role="article" aria-label="Café sin datos">
    <a href="https://www.google.com/maps/place/Cafe/data=!4m2!3m1!1s0x0"></a>
  </div>
  <div role="article" aria-label="">
    <a href="https://www.google.com/maps/place/Nameless"></a>
  </div>
  <div role="article" aria-label="Sin enlace"></div>
</div>`

type stubFetcher struct {
	html    string
	err     error
	gotURLs []string
}

func (s *stubFetcher) FetchFeed(_ context.Context, pageURL string) (string, error) {
	s.gotURLs = append(s.gotURLs, pageURL)
	return s.html, s.err
}

func TestParseFeed(t *testing.T) {
	got, err := ParseFeed(feedFixture)
	if err != nil {
		t.Fatalf("ParseFeed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("results: got %d, want 2", len(got))
	}

	p := got[0]
	if p.Title != "La Parrilla de Julián" || p.ExternalID != "ChIJparrilla" {
		t.Errorf("identity: %+v", p)
	}
	if p.Latitude != -41.1336 || p.Longitude != -71.3011 {
		t.Errorf("coordinates: %v,%v", p.Latitude, p.Longitude)
	}
	if p.Rating == nil || *p.Rating != 4.6 {
		t.Errorf("rating: %v", p.Rating)
	}
	if p.UserRatingsTotal != 1234 {
		t.Errorf("reviews: got %d, want 1234", p.UserRatingsTotal)
	}
	if p.Description != "Restaurante" || p.FormattedAddress != "Mitre 123" {
		t.Errorf("info line: desc=%q addr=%q", p.Description, p.FormattedAddress)
	}
	if p.Website != "https://parrilla.example" {
		t.Errorf("website: %q", p.Website)
	}

	cafe := got[1]
	if cafe.Rating != nil || cafe.ExternalID != "" || cafe.FormattedAddress != "Address not available" {
		t.Errorf("cafe defaults: %+v", cafe)
	}
}

func TestSearchNearbyBuildsURLAndLimits(t *testing.T) {
	f := &stubFetcher{html: feedFixture}
	c := New(f, 1)

	got, err := c.SearchNearby(context.Background(), -41.1335, -71.3103, "parrilla argentina")
	if err != nil {
		t.Fatalf("SearchNearby: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("limit: got %d results, want 1", len(got))
	}
	want := "https://www.google.com/maps/search/parrilla%20argentina/@-41.1335,-71.3103,15z?hl=es"
	if len(f.gotURLs) != 1 || f.gotURLs[0] != want {
		t.Errorf("url: got %v, want %s", f.gotURLs, want)
	}
}

func TestSearchTextPropagatesFetchError(t *testing.T) {
	f := &stubFetcher{err: errors.New("chrome not found")}
	c := New(f, 0)

	if _, err := c.SearchText(context.Background(), "Bariloche", "brunch"); err == nil {
		t.Fatal("expected fetch error")
	}
	if !strings.Contains(f.gotURLs[0], "brunch%20en%20Bariloche") {
		t.Errorf("url: %s", f.gotURLs[0])
	}
}

func TestSplitInfoLine(t *testing.T) {
	tests := []struct {
		line, kind, address string
	}{
		{"Restaurante · $$ · Mitre 123", "Restaurante", "Mitre 123"},
		{"Bar", "Bar", ""},
		{" · ", "", ""},
	}
	for _, tt := range tests {
		kind, address := splitInfoLine(tt.line)
		if kind != tt.kind || address != tt.address {
			t.Errorf("splitInfoLine(%q) = %q, %q; want %q, %q", tt.line, kind, address, tt.kind, tt.address)
		}
	}
}
