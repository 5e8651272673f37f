package services

import (
	"context"
	"fmt"
	"strings"

	"place-discovery/config"
	"place-discovery/models"
	"place-discovery/storage"
	"place-discovery/utils"
)

// RunArchiver keeps a copy of finished run reports.
type RunArchiver interface {
	Store(ctx context.Context, report *models.RunReport) (string, error)
	Load(ctx context.Context, key string) (*models.RunReport, error)
}

// EngineDeps groups the pipelines and optional sinks of an Engine.
type EngineDeps struct {
	Discovery *DiscoveryService
	Transit   *TransitService
	Routes    *RouteDiscovery
	Catalog   config.Catalog
	// Archive and Export are optional.
	Archive RunArchiver
	Export  storage.SuggestionWriter
	Logger  *utils.Logger
}

// Engine is the entry point shared by the CLI, the HTTP API and the queue
// worker. Every operation returns a Result; the error is returned as well so
// callers can tell denials, bad input and failures apart.
type Engine struct {
	discovery *DiscoveryService
	transit   *TransitService
	routes    *RouteDiscovery
	catalog   config.Catalog
	archive   RunArchiver
	export    storage.SuggestionWriter
	logger    *utils.Logger
}

// NewEngine builds an Engine.
func NewEngine(deps EngineDeps) *Engine {
	return &Engine{
		discovery: deps.Discovery,
		transit:   deps.Transit,
		routes:    deps.Routes,
		catalog:   deps.Catalog,
		archive:   deps.Archive,
		export:    deps.Export,
		logger:    deps.Logger,
	}
}

// Discover runs suggestion discovery. A transit category is handed to the
// stop matcher instead of the providers.
func (e *Engine) Discover(ctx context.Context, req DiscoverRequest) (models.Result, error) {
	if spec, ok := e.catalog.Lookup(req.CategoryType); ok && spec.Search == config.SearchTransit {
		return e.PopulateTransit(ctx, req.PropertyID)
	}
	if e.discovery == nil {
		err := fmt.Errorf("%w: suggestion discovery is not configured", ErrProviderConfig)
		return models.Failure(err), err
	}

	report, err := e.discovery.Run(ctx, req)
	if err != nil {
		e.logger.Warn("[engine] Discover property %d: %v", req.PropertyID, err)
		return models.Failure(err), err
	}

	if e.export != nil && len(report.Suggestions) > 0 {
		if err := e.export.WriteSuggestions(report.Suggestions); err != nil {
			e.logger.Error("[engine] CSV export failed: %v", err)
		}
	}
	if e.archive != nil {
		if key, err := e.archive.Store(ctx, report); err != nil {
			e.logger.Error("[engine] Archiving run %s failed: %v", report.RunID, err)
		} else {
			report.ArchiveKey = key
			e.logger.Debug("[engine] Run %s archived as %s", report.RunID, key)
		}
	}

	return models.Result{
		Success: true,
		Count:   report.Inserted,
		Message: SuggestionMessage(report.Inserted, report.ProviderErrors),
		Data:    report,
	}, nil
}

// ArchivedRun reads back a report stored by an earlier Discover.
func (e *Engine) ArchivedRun(ctx context.Context, key string) (models.Result, error) {
	if e.archive == nil {
		return models.Failure(ErrArchiveDisabled), ErrArchiveDisabled
	}
	if !strings.HasPrefix(key, "runs/") {
		err := fmt.Errorf("archive key %q: %w", key, storage.ErrNotFound)
		return models.Failure(err), err
	}

	report, err := e.archive.Load(ctx, key)
	if err != nil {
		e.logger.Warn("[engine] Loading run %s: %v", key, err)
		return models.Failure(err), err
	}
	return models.Result{
		Success: true,
		Count:   report.Inserted,
		Message: SuggestionMessage(report.Inserted, report.ProviderErrors),
		Data:    report,
	}, nil
}

// SuggestionMessage summarises a discovery run for the caller.
func SuggestionMessage(inserted, providerErrors int) string {
	switch {
	case inserted > 0 && providerErrors > 0:
		return fmt.Sprintf("Added %d new places (%d provider errors).", inserted, providerErrors)
	case inserted > 0:
		return fmt.Sprintf("Added %d new places.", inserted)
	case providerErrors > 0:
		return fmt.Sprintf("No places found. %d provider call(s) failed.", providerErrors)
	}
	return "No relevant nearby places found."
}

// PopulateTransit records the nearest registered stops of a property.
func (e *Engine) PopulateTransit(ctx context.Context, propertyID int64) (models.Result, error) {
	if e.transit == nil {
		err := fmt.Errorf("%w: transit dataset is not configured", ErrProviderConfig)
		return models.Failure(err), err
	}

	res, err := e.transit.Populate(ctx, propertyID)
	if err != nil {
		e.logger.Warn("[engine] Transit for property %d: %v", propertyID, err)
		return models.Failure(err), err
	}

	if len(res.Matches) == 0 {
		return models.Result{
			Success: true,
			Message: fmt.Sprintf("No registered stops found within %.0fm.", e.transit.Radius()),
			Data:    res.Matches,
		}, nil
	}
	return models.Result{
		Success: true,
		Count:   len(res.Records),
		Message: fmt.Sprintf("Detected %d nearby stops.", len(res.Records)),
		Data:    res.Matches,
	}, nil
}

// DiscoverRoutes asks the route resolver about the landmark list.
func (e *Engine) DiscoverRoutes(ctx context.Context, propertyID int64, cityContext string) (models.Result, error) {
	if e.routes == nil {
		err := fmt.Errorf("%w: route resolver is not configured", ErrProviderConfig)
		return models.Failure(err), err
	}

	res, err := e.routes.Discover(ctx, propertyID, cityContext)
	if err != nil {
		e.logger.Warn("[engine] Routes for property %d: %v", propertyID, err)
		fail := models.Failure(err)
		if res != nil {
			fail.Count = res.Added
			fail.Data = res.Records
		}
		return fail, err
	}

	return models.Result{
		Success: true,
		Count:   res.Added,
		Message: fmt.Sprintf("Discovered %d new routes.", res.Added),
		Data:    res.Records,
	}, nil
}
