package services

import (
	"fmt"
	"strings"

	"place-discovery/models"
	"place-discovery/utils"
)

// StrategyKind selects how providers are queried for a run.
type StrategyKind int

const (
	StrategyNearby StrategyKind = iota + 1
	StrategyText
)

func (k StrategyKind) String() string {
	switch k {
	case StrategyNearby:
		return "nearby"
	case StrategyText:
		return "text"
	}
	return "unknown"
}

// Strategy is the location input shared by every provider call of a run.
type Strategy struct {
	Kind  StrategyKind
	Lat   float64
	Lng   float64
	Query string
}

func (s Strategy) String() string {
	if s.Kind == StrategyNearby {
		return fmt.Sprintf("nearby(%.5f,%.5f)", s.Lat, s.Lng)
	}
	return fmt.Sprintf("text(%q)", s.Query)
}

// Planner picks a search strategy for a property.
type Planner struct{}

// Plan prefers valid coordinates (override first, then stored), then a text
// query built from city, address and country. (0,0) counts as unset.
func (Planner) Plan(p *models.Property, override *models.LocationOverride) (Strategy, error) {
	if override != nil && utils.ValidCoordinates(override.Latitude, override.Longitude) {
		return Strategy{Kind: StrategyNearby, Lat: override.Latitude, Lng: override.Longitude}, nil
	}
	if p != nil && utils.ValidCoordinates(p.Latitude, p.Longitude) {
		return Strategy{Kind: StrategyNearby, Lat: p.Latitude, Lng: p.Longitude}, nil
	}

	var city, address, country string
	if p != nil {
		city, address, country = p.City, p.Address, p.Country
	}
	if override != nil {
		city = firstNonBlank(override.City, city)
		address = firstNonBlank(override.Address, address)
		country = firstNonBlank(override.Country, country)
	}

	var parts []string
	for _, part := range []string{city, address, country} {
		if part = normaliseText(part); part != "" {
			parts = append(parts, part)
		}
	}
	if len(parts) == 0 {
		return Strategy{}, ErrNoLocation
	}
	return Strategy{Kind: StrategyText, Query: strings.Join(parts, ", ")}, nil
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
