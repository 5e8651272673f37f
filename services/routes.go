package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"place-discovery/models"
	"place-discovery/storage"
	"place-discovery/utils"
)

// RouteResolver finds a transit route from a point to a destination query.
// A nil route with a nil error means no route was found.
type RouteResolver interface {
	Resolve(ctx context.Context, lat, lng float64, destination string) (*models.Route, error)
}

// RouteStore is what RouteDiscovery needs from persistence.
type RouteStore interface {
	storage.PropertyReader
	storage.TransportStore
}

// RouteResult is the outcome of a route discovery run.
type RouteResult struct {
	Added   int
	Records []models.TransportRecord
}

// RouteDiscovery asks a resolver for routes to a fixed list of landmarks
// and records each line not yet known for the property.
type RouteDiscovery struct {
	store        RouteStore
	resolver     RouteResolver
	destinations []string
	delay        time.Duration
	logger       *utils.Logger
}

// NewRouteDiscovery builds a RouteDiscovery. Destinations are queried in
// order with delay between consecutive queries.
func NewRouteDiscovery(store RouteStore, resolver RouteResolver, destinations []string, delay time.Duration, logger *utils.Logger) *RouteDiscovery {
	return &RouteDiscovery{
		store:        store,
		resolver:     resolver,
		destinations: destinations,
		delay:        delay,
		logger:       logger,
	}
}

// Discover runs every destination query for the property. cityContext, when
// set, replaces the property's city in the queries. The first resolver
// error stops the run; rows inserted before it stay and are reported in the
// returned result alongside the error.
func (d *RouteDiscovery) Discover(ctx context.Context, propertyID int64, cityContext string) (*RouteResult, error) {
	prop, err := d.store.GetProperty(ctx, propertyID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrPropertyNotFound
	}
	if err != nil {
		return nil, err
	}
	if !utils.ValidCoordinates(prop.Latitude, prop.Longitude) {
		return nil, ErrInvalidCoordinates
	}
	if d.resolver == nil {
		return nil, fmt.Errorf("%w: no route resolver configured", ErrProviderConfig)
	}

	existing, err := d.store.ListTransport(ctx, propertyID)
	if err != nil {
		return nil, fmt.Errorf("routes: list transport: %w", err)
	}

	city := firstNonBlank(cityContext, prop.City)
	result := &RouteResult{}

	for i, landmark := range d.destinations {
		if i > 0 {
			if err := utils.Sleep(ctx, d.delay); err != nil {
				return result, err
			}
		}

		query := landmark
		if c := normaliseText(city); c != "" {
			query = landmark + ", " + c
		}

		route, err := d.resolver.Resolve(ctx, prop.Latitude, prop.Longitude, query)
		if err != nil {
			d.logger.Error("[routes] Property %d: %q failed, aborting: %v", propertyID, query, err)
			return result, fmt.Errorf("%w: %s: %w", ErrRouteDiscovery, query, err)
		}
		if route == nil || strings.TrimSpace(route.LineName) == "" {
			d.logger.Debug("[routes] No transit route to %q", query)
			continue
		}

		line := strings.TrimSpace(route.LineName)
		if mentionsLine(existing, line) {
			d.logger.Debug("[routes] Line %s already recorded for property %d", line, propertyID)
			continue
		}

		rec := routeRecord(propertyID, landmark, route)
		inserted, err := d.store.InsertTransport(ctx, &rec)
		if err != nil {
			return result, fmt.Errorf("routes: save line %s: %w", line, err)
		}
		if !inserted {
			continue
		}

		d.logger.Info("[routes] Property %d: line %s to %s", propertyID, line, landmark)
		existing = append(existing, rec)
		result.Records = append(result.Records, rec)
		result.Added++
	}
	return result, nil
}

// mentionsLine reports whether any record names line in its name or
// description.
func mentionsLine(records []models.TransportRecord, line string) bool {
	for _, r := range records {
		if strings.Contains(r.Name, line) || strings.Contains(r.Description, line) {
			return true
		}
	}
	return false
}

func routeRecord(propertyID int64, landmark string, route *models.Route) models.TransportRecord {
	line := strings.TrimSpace(route.LineName)
	vehicle := firstNonBlank(route.VehicleType, "Bus")

	desc := fmt.Sprintf("%s línea %s", vehicle, line)
	if route.Destination != "" {
		desc += " hacia " + route.Destination
	}
	desc += "."
	if route.Duration != "" {
		desc += " Duración aprox: " + route.Duration + "."
	}
	desc += " Conecta con " + landmark + "."

	return models.TransportRecord{
		PropertyID:   propertyID,
		Type:         vehicleType(route.VehicleType),
		Name:         fmt.Sprintf("Línea %s → %s", line, landmark),
		Description:  desc,
		ScheduleInfo: route.Duration,
	}
}

func vehicleType(v string) string {
	switch strings.ToUpper(strings.TrimSpace(v)) {
	case "", "BUS", "INTERCITY_BUS", "TROLLEYBUS", "SHARE_TAXI", "COLECTIVO", "AUTOBÚS", "ÓMNIBUS", "MICRO":
		return "bus"
	case "RAIL", "HEAVY_RAIL", "COMMUTER_TRAIN", "HIGH_SPEED_TRAIN", "LONG_DISTANCE_TRAIN", "TRAM", "SUBWAY", "METRO_RAIL", "TREN":
		return "train"
	case "FERRY":
		return "ferry"
	}
	return strings.ToLower(strings.TrimSpace(v))
}
