package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"place-discovery/models"
)

// Memory is an in-process Store. It applies the same uniqueness rules as
// the Postgres schema and is used for dry runs and tests.
type Memory struct {
	mu sync.Mutex

	now func() time.Time

	properties map[int64]models.Property
	categories []models.Category
	recs       []models.Recommendation
	transport  []models.TransportRecord

	stops      []models.TransitStop
	lines      map[int64]models.TransitLine
	routeStops []models.RouteStop

	nextID int64
}

var _ Store = (*Memory)(nil)

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{
		now:        time.Now,
		properties: make(map[int64]models.Property),
		lines:      make(map[int64]models.TransitLine),
	}
}

// SetClock overrides the time stamped on rows saved without CreatedAt.
func (m *Memory) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

func (m *Memory) id() int64 {
	m.nextID++
	return m.nextID
}

// PutProperty adds or replaces a property.
func (m *Memory) PutProperty(p models.Property) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.properties[p.ID] = p
}

// PutTransport seeds a transport row without the uniqueness check.
func (m *Memory) PutTransport(rec models.TransportRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.ID == 0 {
		rec.ID = m.id()
	}
	m.transport = append(m.transport, rec)
}

func (m *Memory) GetProperty(_ context.Context, id int64) (*models.Property, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.properties[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (m *Memory) ListCategories(_ context.Context, propertyID int64) ([]models.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.categoriesOf(propertyID), nil
}

func (m *Memory) categoriesOf(propertyID int64) []models.Category {
	var out []models.Category
	for _, c := range m.categories {
		if c.PropertyID == propertyID {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DisplayOrder != out[j].DisplayOrder {
			return out[i].DisplayOrder < out[j].DisplayOrder
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (m *Memory) EnsureCategories(_ context.Context, propertyID int64, wanted []models.Category) ([]models.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing := make(map[string]struct{})
	for _, c := range m.categoriesOf(propertyID) {
		existing[c.Type] = struct{}{}
	}
	for _, c := range wanted {
		if _, ok := existing[c.Type]; ok {
			continue
		}
		c.ID = m.id()
		c.PropertyID = propertyID
		m.categories = append(m.categories, c)
		existing[c.Type] = struct{}{}
	}
	return m.categoriesOf(propertyID), nil
}

func (m *Memory) LastAutoSuggestedAt(_ context.Context, propertyID int64) (time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var (
		last  time.Time
		found bool
	)
	for _, r := range m.recs {
		if r.PropertyID != propertyID || !r.IsAutoSuggested {
			continue
		}
		if !found || r.CreatedAt.After(last) {
			last, found = r.CreatedAt, true
		}
	}
	return last, found, nil
}

// SaveRecommendations inserts the rows that collide with neither
// (property, title) nor (property, source, external id). The check and the
// write happen under one lock.
func (m *Memory) SaveRecommendations(_ context.Context, recs []models.Recommendation) ([]models.Recommendation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var inserted []models.Recommendation
	for _, r := range recs {
		if m.conflicts(r) {
			continue
		}
		r.ID = m.id()
		if r.CreatedAt.IsZero() {
			r.CreatedAt = m.now()
		}
		if r.ExternalSource == "" {
			r.ExternalSource = models.SourceManual
		}
		m.recs = append(m.recs, r)
		inserted = append(inserted, r)
	}
	return inserted, nil
}

func (m *Memory) conflicts(r models.Recommendation) bool {
	for _, e := range m.recs {
		if e.PropertyID != r.PropertyID {
			continue
		}
		if e.Title == r.Title {
			return true
		}
		if r.ExternalID != "" && e.ExternalSource == r.ExternalSource && e.ExternalID == r.ExternalID {
			return true
		}
	}
	return false
}

func (m *Memory) ListRecommendations(_ context.Context, propertyID int64) ([]models.Recommendation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Recommendation
	for _, r := range m.recs {
		if r.PropertyID == propertyID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *Memory) ListTransport(_ context.Context, propertyID int64) ([]models.TransportRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.TransportRecord
	for _, t := range m.transport {
		if t.PropertyID == propertyID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *Memory) InsertTransport(_ context.Context, rec *models.TransportRecord) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.transport {
		if t.PropertyID == rec.PropertyID && t.Name == rec.Name {
			return false, nil
		}
	}
	rec.ID = m.id()
	m.transport = append(m.transport, *rec)
	return true, nil
}

func (m *Memory) ListStops(_ context.Context) ([]models.TransitStop, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.TransitStop, len(m.stops))
	copy(out, m.stops)
	return out, nil
}

func (m *Memory) LinesForStops(_ context.Context, stopIDs []int64) (map[int64][]models.TransitLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	wanted := make(map[int64]struct{}, len(stopIDs))
	for _, id := range stopIDs {
		wanted[id] = struct{}{}
	}

	out := make(map[int64][]models.TransitLine, len(stopIDs))
	seen := make(map[[2]int64]struct{})
	for _, rs := range m.routeStops {
		if _, ok := wanted[rs.StopID]; !ok {
			continue
		}
		key := [2]int64{rs.StopID, rs.LineID}
		if _, dup := seen[key]; dup {
			continue
		}
		line, ok := m.lines[rs.LineID]
		if !ok {
			continue
		}
		seen[key] = struct{}{}
		out[rs.StopID] = append(out[rs.StopID], line)
	}
	for id := range out {
		lines := out[id]
		sort.Slice(lines, func(i, j int) bool { return lines[i].LineNumber < lines[j].LineNumber })
	}
	return out, nil
}

// ImportTransit replaces rows by id, matching the Postgres upsert.
func (m *Memory) ImportTransit(_ context.Context, ds *models.TransitDataset) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	byID := make(map[int64]int, len(m.stops))
	for i, s := range m.stops {
		byID[s.ID] = i
	}
	for _, s := range ds.Stops {
		if i, ok := byID[s.ID]; ok {
			m.stops[i] = s
			continue
		}
		byID[s.ID] = len(m.stops)
		m.stops = append(m.stops, s)
	}

	for _, l := range ds.Lines {
		m.lines[l.ID] = l
	}

	type routeKey struct {
		line, stop int64
		direction  string
	}
	routes := make(map[routeKey]int, len(m.routeStops))
	for i, rs := range m.routeStops {
		routes[routeKey{rs.LineID, rs.StopID, rs.Direction}] = i
	}
	for _, rs := range ds.RouteStops {
		k := routeKey{rs.LineID, rs.StopID, rs.Direction}
		if i, ok := routes[k]; ok {
			m.routeStops[i] = rs
			continue
		}
		routes[k] = len(m.routeStops)
		m.routeStops = append(m.routeStops, rs)
	}
	return nil
}

func (m *Memory) Close() error { return nil }
