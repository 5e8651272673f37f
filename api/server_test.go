package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"place-discovery/config"
	"place-discovery/models"
	"place-discovery/providers"
	"place-discovery/services"
	"place-discovery/storage"
	"place-discovery/utils"
)

type stubProvider struct{ titles []string }

func (stubProvider) Name() string { return "stub" }

func (p stubProvider) SearchNearby(context.Context, float64, float64, string) ([]models.Suggestion, error) {
	var out []models.Suggestion
	for _, t := range p.titles {
		out = append(out, models.Suggestion{Title: t, ExternalSource: models.SourceGoogle})
	}
	return out, nil
}

func newTestServer(t *testing.T) (*storage.Memory, http.Handler) {
	t.Helper()
	logger := utils.NewLoggerTo(io.Discard, "info")

	store := storage.NewMemory()
	store.PutProperty(models.Property{ID: 1, City: "Bariloche", Latitude: -41.1335, Longitude: -71.3103})
	store.PutProperty(models.Property{ID: 2, Name: "No location"})

	reg := providers.NewRegistry()
	reg.Register(stubProvider{titles: []string{"Cerveceria Berlina"}})

	cat := config.Catalog{Categories: []config.CategorySpec{
		{Type: "bars", Search: config.SearchKeywords, Terms: []string{"cerveza"}},
		{Type: "transit", Search: config.SearchTransit},
	}}
	engine := services.NewEngine(services.EngineDeps{
		Discovery: services.NewDiscoveryService(services.DiscoveryDeps{
			Store:    store,
			Registry: reg,
			Catalog:  cat,
			Limiter:  services.NewRateLimiter(store, 24*time.Hour),
			Logger:   logger,
		}),
		Transit: services.NewTransitService(store, 600, 3, logger),
		Catalog: cat,
		Logger:  logger,
	})
	return store, NewServer(engine, logger)
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, models.Result) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var res models.Result
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
			t.Fatalf("decode %s: %v", rec.Body.String(), err)
		}
	}
	return rec, res
}

func TestHealth(t *testing.T) {
	_, h := newTestServer(t)
	rec, _ := do(t, h, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestDiscoverThenRateLimited(t *testing.T) {
	_, h := newTestServer(t)

	rec, res := do(t, h, http.MethodPost, "/properties/1/discover", "")
	if rec.Code != http.StatusOK || !res.Success || res.Message != "Added 1 new places." {
		t.Fatalf("first run: %d %+v", rec.Code, res)
	}

	rec, res = do(t, h, http.MethodPost, "/properties/1/discover", `{"categoryType":"bars"}`)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second run status = %d; want 429", rec.Code)
	}
	if res.Success || !strings.HasPrefix(res.Error, "Rate limit active. Please wait 24.0 hours") {
		t.Errorf("second run result = %+v", res)
	}
}

func TestDiscoverStatusMapping(t *testing.T) {
	_, h := newTestServer(t)

	tests := []struct {
		path string
		body string
		want int
	}{
		{"/properties/abc/discover", "", http.StatusBadRequest},
		{"/properties/99/discover", "", http.StatusNotFound},
		{"/properties/2/discover", "", http.StatusBadRequest},
		{"/properties/2/transit", "", http.StatusBadRequest},
		{"/properties/1/routes", `{"city":"Bariloche"}`, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		rec, res := do(t, h, http.MethodPost, tt.path, tt.body)
		if rec.Code != tt.want {
			t.Errorf("%s: status = %d; want %d (%+v)", tt.path, rec.Code, tt.want, res)
		}
	}
}

func TestDiscoverOverrideAndTransit(t *testing.T) {
	store, h := newTestServer(t)
	if err := store.ImportTransit(context.Background(), &models.TransitDataset{
		Stops: []models.TransitStop{{ID: 1, Name: "Centro Cívico", Latitude: utils.OffsetNorth(-34.6, 80), Longitude: -58.4}},
	}); err != nil {
		t.Fatalf("import: %v", err)
	}

	rec, res := do(t, h, http.MethodPost, "/properties/2/discover",
		`{"override":{"latitude":-34.6,"longitude":-58.4}}`)
	if rec.Code != http.StatusOK || res.Count != 1 {
		t.Errorf("override run: %d %+v", rec.Code, res)
	}

	rec, res = do(t, h, http.MethodPost, "/properties/1/discover", `{"categoryType":"transit"}`)
	if rec.Code != http.StatusOK || res.Message != "No registered stops found within 600m." {
		t.Errorf("transit run: %d %+v", rec.Code, res)
	}
}

type mapArchive map[string]*models.RunReport

func (a mapArchive) Store(_ context.Context, r *models.RunReport) (string, error) {
	key := storage.ReportKey(r)
	a[key] = r
	return key, nil
}

func (a mapArchive) Load(_ context.Context, key string) (*models.RunReport, error) {
	if r, ok := a[key]; ok {
		return r, nil
	}
	return nil, storage.ErrNotFound
}

func TestArchivedRun(t *testing.T) {
	logger := utils.NewLoggerTo(io.Discard, "info")
	store := storage.NewMemory()
	store.PutProperty(models.Property{ID: 1, City: "Bariloche", Latitude: -41.1335, Longitude: -71.3103})
	reg := providers.NewRegistry()
	reg.Register(stubProvider{titles: []string{"Cerveceria Berlina"}})
	cat := config.Catalog{Categories: []config.CategorySpec{
		{Type: "bars", Search: config.SearchKeywords, Terms: []string{"cerveza"}},
	}}
	archive := mapArchive{}
	h := NewServer(services.NewEngine(services.EngineDeps{
		Discovery: services.NewDiscoveryService(services.DiscoveryDeps{Store: store, Registry: reg, Catalog: cat, Logger: logger}),
		Catalog:   cat,
		Archive:   archive,
		Logger:    logger,
	}), logger)

	rec, _ := do(t, h, http.MethodPost, "/properties/1/discover", "")
	if rec.Code != http.StatusOK || len(archive) != 1 {
		t.Fatalf("discover: %d, %d archived", rec.Code, len(archive))
	}
	var key string
	for k := range archive {
		key = k
	}

	rec, res := do(t, h, http.MethodGet, "/"+key, "")
	if rec.Code != http.StatusOK || !res.Success || res.Count != 1 {
		t.Errorf("archived run: %d %+v", rec.Code, res)
	}

	rec, _ = do(t, h, http.MethodGet, "/runs/property-1/missing.json", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing run status = %d; want 404", rec.Code)
	}

	_, plain := newTestServer(t)
	rec, _ = do(t, plain, http.MethodGet, "/"+key, "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("no archive status = %d; want 503", rec.Code)
	}
}
