package services

import (
	"testing"

	"place-discovery/models"
	"place-discovery/providers"
	"place-discovery/utils"
)

func ptr(f float64) *float64 { return &f }

func TestNormalizerCleansFields(t *testing.T) {
	n := NewNormalizer(newTestLogger())
	raw := []models.Suggestion{{
		Title:            "  La   Parrilla\tde Julián ",
		FormattedAddress: " Mitre  400 ",
		Latitude:         baseLat,
		Longitude:        baseLng,
		Rating:           ptr(7.2),
		PriceRange:       9,
	}}

	got := n.Clean(raw, "gastronomy", utils.NewKeySet())
	if len(got) != 1 {
		t.Fatalf("expected 1 suggestion, got %d", len(got))
	}
	s := got[0]
	if s.Title != "La Parrilla de Julián" {
		t.Errorf("Title = %q", s.Title)
	}
	if s.FormattedAddress != "Mitre 400" {
		t.Errorf("FormattedAddress = %q", s.FormattedAddress)
	}
	if s.CategoryType != "gastronomy" {
		t.Errorf("CategoryType = %q", s.CategoryType)
	}
	if s.ExternalSource != models.SourceManual {
		t.Errorf("ExternalSource = %q; want manual", s.ExternalSource)
	}
	if s.Rating == nil || *s.Rating != 5 {
		t.Errorf("Rating should clamp to 5, got %v", s.Rating)
	}
	if s.PriceRange != 4 {
		t.Errorf("PriceRange = %d; want 4", s.PriceRange)
	}
	if want := providers.MapsPointLink(baseLat, baseLng); s.MapsLink != want {
		t.Errorf("MapsLink = %q; want %q", s.MapsLink, want)
	}
	if raw[0].Title != "  La   Parrilla\tde Julián " {
		t.Error("input slice must not be modified")
	}
}

func TestNormalizerDropsEmptyTitles(t *testing.T) {
	n := NewNormalizer(newTestLogger())
	got := n.Clean([]models.Suggestion{{Title: "   "}, {Title: "Cerro Otto"}}, "sights", utils.NewKeySet())
	if len(got) != 1 || got[0].Title != "Cerro Otto" {
		t.Errorf("got %+v", got)
	}
	if got[0].MapsLink != providers.MapsQueryLink("Cerro Otto") {
		t.Errorf("MapsLink = %q", got[0].MapsLink)
	}
}

func TestNormalizerDedupAcrossCategories(t *testing.T) {
	n := NewNormalizer(newTestLogger())
	seen := utils.NewKeySet()

	first := n.Clean([]models.Suggestion{
		{Title: "Cerveceria Manush", ExternalSource: models.SourceGoogle, ExternalID: "g1"},
	}, "bars", seen)
	second := n.Clean([]models.Suggestion{
		{Title: "Cerveceria  Manush", ExternalSource: models.SourceFoursquare},
		{Title: "Manush Centro", ExternalSource: models.SourceGoogle, ExternalID: "g1"},
		{Title: "Heladería Rapanui", ExternalSource: models.SourceGoogle, ExternalID: "g2"},
	}, "kids", seen)

	if len(first) != 1 {
		t.Fatalf("first category kept %d", len(first))
	}
	if len(second) != 1 || second[0].Title != "Heladería Rapanui" {
		t.Errorf("second category = %+v; want only Heladería Rapanui", second)
	}
}
