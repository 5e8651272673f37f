package services

import (
	"context"
	"io"
	"sync"

	"place-discovery/config"
	"place-discovery/models"
	"place-discovery/storage"
	"place-discovery/utils"
)

const (
	baseLat = -41.1335
	baseLng = -71.3103
)

func newTestLogger() *utils.Logger { return utils.NewLoggerTo(io.Discard, "debug") }

func newTestStore() *storage.Memory {
	store := storage.NewMemory()
	store.PutProperty(models.Property{
		ID: 1, Name: "Cabaña del Lago", City: "Bariloche", Country: "Argentina",
		Latitude: baseLat, Longitude: baseLng,
	})
	store.PutProperty(models.Property{
		ID: 2, Name: "Depto Centro", Address: "Mitre 400", City: "Bariloche", Country: "Argentina",
	})
	return store
}

// keywordProvider answers nearby and text searches from canned titles.
type keywordProvider struct {
	name   string
	source models.Source
	titles []string
	byTerm map[string][]string
	err    error
	failOn string

	mu    sync.Mutex
	terms []string
}

func (p *keywordProvider) Name() string { return p.name }

func (p *keywordProvider) SearchNearby(_ context.Context, _, _ float64, hint string) ([]models.Suggestion, error) {
	return p.answer(hint)
}

func (p *keywordProvider) SearchText(_ context.Context, _, hint string) ([]models.Suggestion, error) {
	return p.answer(hint)
}

func (p *keywordProvider) answer(term string) ([]models.Suggestion, error) {
	p.mu.Lock()
	p.terms = append(p.terms, term)
	p.mu.Unlock()

	if p.err != nil && (p.failOn == "" || p.failOn == term) {
		return nil, p.err
	}
	titles := p.titles
	if t, ok := p.byTerm[term]; ok {
		titles = t
	}
	out := make([]models.Suggestion, 0, len(titles))
	for _, title := range titles {
		out = append(out, models.Suggestion{
			Title:          title,
			ExternalSource: p.source,
			ExternalID:     p.name + ":" + title,
		})
	}
	return out, nil
}

func (p *keywordProvider) calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.terms...)
}

// tagProvider only answers open-data category searches.
type tagProvider struct {
	titles     []string
	byCategory map[string][]string
	err        error

	mu         sync.Mutex
	categories []string
}

func (p *tagProvider) Name() string { return "osm" }

func (p *tagProvider) SearchCategory(_ context.Context, _, _ float64, categoryType string) ([]models.Suggestion, error) {
	p.mu.Lock()
	p.categories = append(p.categories, categoryType)
	p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	titles := p.titles
	if t, ok := p.byCategory[categoryType]; ok {
		titles = t
	}
	out := make([]models.Suggestion, 0, len(titles))
	for _, title := range titles {
		out = append(out, models.Suggestion{Title: title, ExternalSource: models.SourceOSM, ExternalID: "node/" + title})
	}
	return out, nil
}

func (p *tagProvider) calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.categories...)
}

func gastronomyCatalog(terms ...string) config.Catalog {
	return config.Catalog{Categories: []config.CategorySpec{
		{Type: "gastronomy", Name: "Restaurantes", Search: config.SearchKeywords, Terms: terms},
	}}
}
