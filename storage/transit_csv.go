package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/jszwec/csvutil"

	"place-discovery/models"
)

// Dataset file names inside a transit data directory.
const (
	StopsFile      = "stops.csv"
	LinesFile      = "lines.csv"
	RouteStopsFile = "route_stops.csv"
)

// LoadTransitDataset reads stops, lines and route stops from dir.
func LoadTransitDataset(dir string) (*models.TransitDataset, error) {
	ds := &models.TransitDataset{}

	if err := decodeFile(filepath.Join(dir, StopsFile), &ds.Stops); err != nil {
		return nil, err
	}
	if err := decodeFile(filepath.Join(dir, LinesFile), &ds.Lines); err != nil {
		return nil, err
	}
	if err := decodeFile(filepath.Join(dir, RouteStopsFile), &ds.RouteStops); err != nil {
		return nil, err
	}

	if err := ValidateTransitDataset(ds); err != nil {
		return nil, err
	}
	return ds, nil
}

func decodeFile(path string, out any) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("transit: open %s: %w", path, err)
	}
	defer f.Close()

	if err := DecodeCSV(f, out); err != nil {
		return fmt.Errorf("transit: %s: %w", filepath.Base(path), err)
	}
	return nil
}

// DecodeCSV decodes header-tagged CSV rows into out, a pointer to a slice.
func DecodeCSV(r io.Reader, out any) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read csv: %w", err)
	}
	if err := csvutil.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode csv: %w", err)
	}
	return nil
}

// ValidateTransitDataset checks that every route stop references a known
// line and stop and that stop coordinates are in range.
func ValidateTransitDataset(ds *models.TransitDataset) error {
	stops := make(map[int64]struct{}, len(ds.Stops))
	for _, s := range ds.Stops {
		if s.Latitude < -90 || s.Latitude > 90 || s.Longitude < -180 || s.Longitude > 180 {
			return fmt.Errorf("transit: stop %d (%s) has invalid coordinates", s.ID, s.Name)
		}
		stops[s.ID] = struct{}{}
	}
	lines := make(map[int64]struct{}, len(ds.Lines))
	for _, l := range ds.Lines {
		lines[l.ID] = struct{}{}
	}
	for i, rs := range ds.RouteStops {
		if _, ok := lines[rs.LineID]; !ok {
			return fmt.Errorf("transit: route stop row %d references unknown line %d", i+1, rs.LineID)
		}
		if _, ok := stops[rs.StopID]; !ok {
			return fmt.Errorf("transit: route stop row %d references unknown stop %d", i+1, rs.StopID)
		}
	}
	return nil
}
