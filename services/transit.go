package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"place-discovery/models"
	"place-discovery/providers"
	"place-discovery/storage"
	"place-discovery/utils"
)

// TransitMatcher finds stored stops around a point.
type TransitMatcher struct {
	store storage.TransitStore
}

// NewTransitMatcher returns a matcher over store.
func NewTransitMatcher(store storage.TransitStore) *TransitMatcher {
	return &TransitMatcher{store: store}
}

// FindNearby returns every stop whose haversine distance to (lat, lng) is at
// most radius, nearest first, each with the lines that serve it. No stop in
// range is an empty result, not an error.
func (m *TransitMatcher) FindNearby(ctx context.Context, lat, lng, radius float64) ([]models.TransitMatch, error) {
	if !utils.ValidCoordinates(lat, lng) {
		return nil, ErrInvalidCoordinates
	}

	stops, err := m.store.ListStops(ctx)
	if err != nil {
		return nil, fmt.Errorf("transit: list stops: %w", err)
	}

	var matches []models.TransitMatch
	for _, s := range stops {
		d := utils.HaversineMeters(lat, lng, s.Latitude, s.Longitude)
		if d <= radius {
			matches = append(matches, models.TransitMatch{Stop: s, DistanceMeters: d})
		}
	}
	if len(matches) == 0 {
		return []models.TransitMatch{}, nil
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].DistanceMeters != matches[j].DistanceMeters {
			return matches[i].DistanceMeters < matches[j].DistanceMeters
		}
		return matches[i].Stop.ID < matches[j].Stop.ID
	})

	ids := make([]int64, len(matches))
	for i, mt := range matches {
		ids[i] = mt.Stop.ID
	}
	lines, err := m.store.LinesForStops(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("transit: lines for stops: %w", err)
	}

	for i := range matches {
		matches[i].Lines = lines[matches[i].Stop.ID]
		matches[i].ScheduleInfo = StopLabel(matches[i])
		matches[i].Description = StopDescription(matches[i])
	}
	return matches, nil
}

// StopLabel is the short label of a match, e.g. "📍 Stop at 120m (Mitre 400)".
func StopLabel(m models.TransitMatch) string {
	return fmt.Sprintf("📍 Stop at %dm (%s)", roundMeters(m.DistanceMeters), m.Stop.Name)
}

// StopDescription lists the distance and each serving line with its
// attractions, or its name when it has none.
func StopDescription(m models.TransitMatch) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Distancia: %dm", roundMeters(m.DistanceMeters))
	if len(m.Lines) == 0 {
		return b.String()
	}

	b.WriteString("\n\nLíneas que pasan:")
	for _, l := range m.Lines {
		b.WriteString("\n• ")
		b.WriteString(l.LineNumber)
		switch {
		case l.MainAttractions != "":
			fmt.Fprintf(&b, " (Va a: %s)", l.MainAttractions)
		case l.Name != "":
			fmt.Fprintf(&b, " (%s)", l.Name)
		}
	}
	return b.String()
}

func roundMeters(d float64) int {
	return int(math.Round(d))
}

// TransitResult is the outcome of populating transport info from stops.
type TransitResult struct {
	Matches  []models.TransitMatch
	Records  []models.TransportRecord
	Inserted int
}

// TransitService writes the nearest stops of a property as transport info.
type TransitService struct {
	store    TransitStore
	matcher  *TransitMatcher
	radius   float64
	maxStops int
	logger   *utils.Logger
}

// TransitStore is what TransitService needs from persistence.
type TransitStore interface {
	storage.PropertyReader
	storage.TransportStore
	storage.TransitStore
}

// NewTransitService builds a service that keeps at most maxStops stops
// within radius meters.
func NewTransitService(store TransitStore, radius float64, maxStops int, logger *utils.Logger) *TransitService {
	if maxStops <= 0 {
		maxStops = 3
	}
	return &TransitService{
		store:    store,
		matcher:  NewTransitMatcher(store),
		radius:   radius,
		maxStops: maxStops,
		logger:   logger,
	}
}

// Radius is the search radius in meters.
func (s *TransitService) Radius() float64 { return s.radius }

// Populate matches the property against the stop dataset and inserts one
// "Bus Stop: <name>" row per retained stop. Rows already present by name
// are left untouched.
func (s *TransitService) Populate(ctx context.Context, propertyID int64) (*TransitResult, error) {
	prop, err := s.store.GetProperty(ctx, propertyID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrPropertyNotFound
	}
	if err != nil {
		return nil, err
	}
	if !utils.ValidCoordinates(prop.Latitude, prop.Longitude) {
		return nil, ErrInvalidCoordinates
	}

	matches, err := s.matcher.FindNearby(ctx, prop.Latitude, prop.Longitude, s.radius)
	if err != nil {
		return nil, err
	}
	s.logger.Info("[transit] Property %d: %d stops within %.0fm", propertyID, len(matches), s.radius)

	result := &TransitResult{Matches: matches}
	best := matches
	if len(best) > s.maxStops {
		best = best[:s.maxStops]
	}

	for _, m := range best {
		rec := models.TransportRecord{
			PropertyID:   propertyID,
			Type:         "bus",
			Name:         "Bus Stop: " + m.Stop.Name,
			Description:  m.Description,
			Website:      providers.DirectionsLink(m.Stop.Latitude, m.Stop.Longitude),
			ScheduleInfo: m.ScheduleInfo,
		}
		inserted, err := s.store.InsertTransport(ctx, &rec)
		if err != nil {
			return result, fmt.Errorf("transit: save %s: %w", rec.Name, err)
		}
		if inserted {
			result.Inserted++
		} else {
			s.logger.Debug("[transit] %s already stored for property %d", rec.Name, propertyID)
		}
		result.Records = append(result.Records, rec)
	}
	return result, nil
}
