package storage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"place-discovery/models"
)

func rec(propertyID int64, title string, source models.Source, externalID string) models.Recommendation {
	return models.Recommendation{
		PropertyID:      propertyID,
		IsAutoSuggested: true,
		Suggestion: models.Suggestion{
			Title:          title,
			ExternalSource: source,
			ExternalID:     externalID,
		},
	}
}

func TestMemorySaveRecommendationsUniqueness(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	inserted, err := m.SaveRecommendations(ctx, []models.Recommendation{
		rec(1, "La Parrilla", models.SourceGoogle, "g1"),
		rec(1, "La Parrilla", models.SourceFoursquare, "f1"),
		rec(1, "Café Tronador", models.SourceGoogle, "g1"),
		rec(1, "Café Tronador", models.SourceOSM, ""),
		rec(2, "La Parrilla", models.SourceGoogle, "g1"),
	})
	if err != nil {
		t.Fatalf("SaveRecommendations: %v", err)
	}
	if len(inserted) != 3 {
		t.Errorf("inserted: got %d, want 3", len(inserted))
	}

	again, err := m.SaveRecommendations(ctx, []models.Recommendation{rec(1, "La Parrilla", models.SourceOSM, "")})
	if err != nil {
		t.Fatal(err)
	}
	if len(again) != 0 {
		t.Errorf("second save of same title inserted %d rows", len(again))
	}

	rows, _ := m.ListRecommendations(ctx, 1)
	if len(rows) != 2 {
		t.Fatalf("property 1 rows: got %d, want 2", len(rows))
	}
	if rows[1].Title != "Café Tronador" || rows[1].ExternalSource != models.SourceOSM {
		t.Errorf("unexpected second row: %+v", rows[1])
	}
}

func TestMemoryConcurrentSavesInsertOnce(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		total int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			saved, _ := m.SaveRecommendations(ctx, []models.Recommendation{rec(7, "Cerro Otto", models.SourceGoogle, "x")})
			mu.Lock()
			total += len(saved)
			mu.Unlock()
		}()
	}
	wg.Wait()

	if total != 1 {
		t.Errorf("concurrent saves inserted %d rows, want 1", total)
	}
}

func TestMemoryLastAutoSuggestedAt(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if _, ok, _ := m.LastAutoSuggestedAt(ctx, 1); ok {
		t.Fatal("empty store should report no prior run")
	}

	older := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	newer := older.Add(3 * time.Hour)
	manual := rec(1, "Manual", models.SourceManual, "")
	manual.IsAutoSuggested = false
	manual.CreatedAt = newer.Add(time.Hour)

	a := rec(1, "A", models.SourceGoogle, "")
	a.CreatedAt = older
	b := rec(1, "B", models.SourceGoogle, "")
	b.CreatedAt = newer

	if _, err := m.SaveRecommendations(ctx, []models.Recommendation{a, manual, b}); err != nil {
		t.Fatal(err)
	}

	got, ok, err := m.LastAutoSuggestedAt(ctx, 1)
	if err != nil || !ok {
		t.Fatalf("LastAutoSuggestedAt: ok=%v err=%v", ok, err)
	}
	if !got.Equal(newer) {
		t.Errorf("got %v, want %v (manual rows must be ignored)", got, newer)
	}
}

func TestMemoryInsertTransportByName(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	r1 := &models.TransportRecord{PropertyID: 1, Type: "bus", Name: "Bus Stop: Centro Cívico"}
	ok, err := m.InsertTransport(ctx, r1)
	if err != nil || !ok {
		t.Fatalf("first insert: ok=%v err=%v", ok, err)
	}
	if r1.ID == 0 {
		t.Error("inserted record should get an id")
	}

	ok, _ = m.InsertTransport(ctx, &models.TransportRecord{PropertyID: 1, Type: "bus", Name: "Bus Stop: Centro Cívico"})
	if ok {
		t.Error("duplicate name for the same property must be skipped")
	}
	ok, _ = m.InsertTransport(ctx, &models.TransportRecord{PropertyID: 2, Type: "bus", Name: "Bus Stop: Centro Cívico"})
	if !ok {
		t.Error("same name for another property should insert")
	}
}

func TestMemoryEnsureCategories(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	wanted := []models.Category{
		{Type: "gastronomy", Name: "Gastronomía", DisplayOrder: 0},
		{Type: "bars", Name: "Bares", DisplayOrder: 5},
	}
	first, _ := m.EnsureCategories(ctx, 3, wanted)
	second, _ := m.EnsureCategories(ctx, 3, wanted)
	if len(first) != 2 || len(second) != 2 {
		t.Fatalf("categories: first=%d second=%d, want 2 each", len(first), len(second))
	}
	if first[0].ID != second[0].ID || first[0].PropertyID != 3 {
		t.Errorf("EnsureCategories should not recreate rows: %+v vs %+v", first[0], second[0])
	}
}

func TestMemoryGetPropertyNotFound(t *testing.T) {
	m := NewMemory()
	if _, err := m.GetProperty(context.Background(), 99); !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestMemoryLinesForStops(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	err := m.ImportTransit(ctx, &models.TransitDataset{
		Stops: []models.TransitStop{{ID: 1, Name: "A"}, {ID: 2, Name: "B"}},
		Lines: []models.TransitLine{{ID: 10, LineNumber: "72"}, {ID: 11, LineNumber: "20"}},
		RouteStops: []models.RouteStop{
			{LineID: 10, StopID: 1, Order: 1, Direction: "outbound"},
			{LineID: 10, StopID: 1, Order: 9, Direction: "inbound"},
			{LineID: 11, StopID: 1, Order: 2, Direction: "outbound"},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	got, _ := m.LinesForStops(ctx, []int64{1, 2})
	if len(got[1]) != 2 || got[1][0].LineNumber != "20" || got[1][1].LineNumber != "72" {
		t.Errorf("stop 1 lines: %+v", got[1])
	}
	if len(got[2]) != 0 {
		t.Errorf("stop 2 should have no lines, got %+v", got[2])
	}
}
