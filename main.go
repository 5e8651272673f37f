package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"place-discovery/api"
	"place-discovery/config"
	"place-discovery/models"
	"place-discovery/providers"
	"place-discovery/providers/directions"
	"place-discovery/providers/foursquare"
	"place-discovery/providers/googleplaces"
	"place-discovery/providers/mapsweb"
	"place-discovery/providers/overpass"
	"place-discovery/queue"
	"place-discovery/services"
	"place-discovery/storage"
	"place-discovery/utils"
)

func main() {
	mode := flag.String("mode", "run", "run | serve | worker | seed")
	propertyID := flag.Int64("property", 0, "property id (run mode)")
	category := flag.String("category", "", "single category type; \"transit\" matches stops, \"routes\" discovers lines")
	city := flag.String("city", "", "city context for route discovery")
	dir := flag.String("dir", "", "transit dataset directory (seed mode)")
	dryRun := flag.Bool("dry-run", false, "use an in-memory store seeded from -lat/-lng/-city instead of PostgreSQL")
	lat := flag.Float64("lat", 0, "property latitude (dry run)")
	lng := flag.Float64("lng", 0, "property longitude (dry run)")
	flag.Parse()

	cfg := config.Load()
	logger := utils.NewLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("=== Place discovery starting (mode: %s) ===", *mode)
	logger.Info("Config: providers: %s | per provider: %d | per category: %d | concurrency: %d | rate: %dms",
		strings.Join(cfg.Providers, ","), cfg.ResultsPerCall, cfg.ResultsPerCat, cfg.MaxConcurrency, cfg.RateLimitMs)

	var store storage.Store
	if *dryRun {
		mem := storage.NewMemory()
		mem.PutProperty(models.Property{ID: *propertyID, Name: "dry-run", City: *city, Latitude: *lat, Longitude: *lng})
		if ds, err := storage.LoadTransitDataset(cfg.TransitDataDir); err != nil {
			logger.Warn("Transit dataset not loaded: %v", err)
		} else if err := mem.ImportTransit(ctx, ds); err != nil {
			logger.Warn("Transit dataset import failed: %v", err)
		}
		store = mem
	} else {
		pg, err := storage.NewPostgres(cfg.DSN(), cfg.Migrate)
		if err != nil {
			logger.Error("Failed to connect to PostgreSQL: %v", err)
			logger.Error("Check POSTGRES_* settings or pass -dry-run")
			os.Exit(1)
		}
		store = pg
	}
	defer store.Close()

	if *mode == "seed" {
		if err := seed(ctx, store, firstNonEmpty(*dir, cfg.TransitDataDir), logger); err != nil {
			logger.Error("Seed failed: %v", err)
			os.Exit(1)
		}
		return
	}

	engine, closeAll, err := buildEngine(ctx, cfg, store, logger)
	if err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}
	defer closeAll()

	switch *mode {
	case "run":
		if *propertyID <= 0 {
			logger.Error("-property is required in run mode")
			os.Exit(2)
		}
		if !runOnce(ctx, engine, *propertyID, *category, *city, logger) {
			os.Exit(1)
		}
	case "serve":
		if err := serve(ctx, engine, cfg.HTTPAddr, logger); err != nil {
			logger.Error("HTTP server failed: %v", err)
			os.Exit(1)
		}
	case "worker":
		reader := queue.NewReader(cfg.KafkaBroker, cfg.KafkaTopic, cfg.KafkaGroupID)
		defer reader.Close()
		logger.Info("Consuming %s from %s as %s", cfg.KafkaTopic, cfg.KafkaBroker, cfg.KafkaGroupID)
		if err := queue.NewConsumer(reader, engine, logger).Run(ctx); err != nil {
			logger.Error("Worker failed: %v", err)
			os.Exit(1)
		}
	default:
		logger.Error("Unknown mode %q", *mode)
		os.Exit(2)
	}
}

func runOnce(ctx context.Context, engine *services.Engine, propertyID int64, category, city string, logger *utils.Logger) bool {
	var (
		res models.Result
		err error
	)
	if category == "routes" {
		res, err = engine.DiscoverRoutes(ctx, propertyID, city)
	} else {
		res, err = engine.Discover(ctx, services.DiscoverRequest{PropertyID: propertyID, CategoryType: category})
	}
	if err != nil {
		logger.Error("%s", res.Error)
		return false
	}

	logger.Info("%s", res.Message)
	if report, ok := res.Data.(*models.RunReport); ok {
		services.PrintReport(os.Stdout, report)
	}
	return true
}

func serve(ctx context.Context, engine *services.Engine, addr string, logger *utils.Logger) error {
	e := api.NewServer(engine, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP API listening on %s", addr)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Info("Shutting down HTTP API")
	return e.Shutdown(shutdownCtx)
}

func seed(ctx context.Context, store storage.Store, dir string, logger *utils.Logger) error {
	ds, err := storage.LoadTransitDataset(dir)
	if err != nil {
		return err
	}
	if err := store.ImportTransit(ctx, ds); err != nil {
		return err
	}
	logger.Info("Imported %d stops, %d lines, %d route stops from %s",
		len(ds.Stops), len(ds.Lines), len(ds.RouteStops), dir)
	return nil
}

// buildEngine wires every pipeline from cfg. The returned func releases the
// browser, the cache and the export file.
func buildEngine(ctx context.Context, cfg *config.Config, store storage.Store, logger *utils.Logger) (*services.Engine, func(), error) {
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	catalog, err := config.LoadCatalog(cfg.CatalogPath)
	if err != nil {
		return nil, closeAll, err
	}

	var cache providers.Cache
	if cfg.RedisAddr != "" {
		rc, err := storage.NewRedisCache(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			logger.Warn("Redis cache disabled: %v", err)
		} else {
			cache = rc
			closers = append(closers, func() { rc.Close() })
		}
	}

	// Transit and route pipelines do not depend on the suggestion providers,
	// so a provider error only disables Discover.
	registry, closeBrowser, err := buildRegistry(cfg, cache, logger)
	closers = append(closers, closeBrowser)
	if err != nil {
		logger.Warn("Suggestion discovery disabled: %v", err)
	}

	retry := &utils.RetryConfig{MaxAttempts: cfg.MaxRetries, BaseDelay: 500 * time.Millisecond, Logger: logger}
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	var resolver services.RouteResolver
	if dc, err := directions.New(directions.Options{APIKey: cfg.GoogleMapsKey, Language: "es", HTTPClient: httpClient, Retry: retry}); err != nil {
		logger.Warn("Route discovery disabled: %v", err)
	} else {
		resolver = dc
	}

	interval := time.Duration(cfg.RateLimitMs) * time.Millisecond
	deps := services.EngineDeps{
		Transit: services.NewTransitService(store, cfg.TransitRadiusM, cfg.TransitMaxStops, logger),
		Routes:  services.NewRouteDiscovery(store, resolver, catalog.Destinations, cfg.RouteDelay, logger),
		Catalog: catalog,
		Logger:  logger,
	}
	if registry != nil {
		deps.Discovery = services.NewDiscoveryService(services.DiscoveryDeps{
			Store:    store,
			Registry: registry,
			Catalog:  catalog,
			Limiter:  services.NewRateLimiter(store, cfg.RateLimitWindow),
			Logger:   logger,
			Options: services.DiscoveryOptions{
				MaxConcurrency:     cfg.MaxConcurrency,
				MinInterval:        interval,
				ProviderInterval:   interval,
				ResultsPerProvider: cfg.ResultsPerCall,
				ResultsPerCategory: cfg.ResultsPerCat,
			},
		})
	}

	if cfg.MinioEndpoint != "" {
		archive, err := storage.NewRunArchive(ctx, storage.ArchiveOptions{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
		if err != nil {
			logger.Warn("Run archive disabled: %v", err)
		} else {
			deps.Archive = archive
		}
	}

	if cfg.ExportCSVPath != "" {
		w, err := storage.NewSuggestionCSVWriter(cfg.ExportCSVPath)
		if err != nil {
			return nil, closeAll, fmt.Errorf("csv export: %w", err)
		}
		deps.Export = w
		closers = append(closers, func() { w.Close() })
	}

	return services.NewEngine(deps), closeAll, nil
}

// buildRegistry registers the configured providers in fallback order. An
// enabled provider without credentials is a configuration error.
func buildRegistry(cfg *config.Config, cache providers.Cache, logger *utils.Logger) (*providers.Registry, func(), error) {
	retry := &utils.RetryConfig{MaxAttempts: cfg.MaxRetries, BaseDelay: 500 * time.Millisecond, Logger: logger}
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	registry := providers.NewRegistry()
	closeFn := func() {}

	for _, name := range cfg.Providers {
		var (
			p   providers.Provider
			err error
		)
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "google":
			p, err = googleplaces.New(googleplaces.Options{
				APIKey:       cfg.GooglePlacesKey,
				HTTPClient:   httpClient,
				Retry:        retry,
				RadiusMeters: cfg.SearchRadiusM,
			})
		case "foursquare":
			p, err = foursquare.New(foursquare.Options{APIKey: cfg.FoursquareKey, HTTPClient: httpClient, Retry: retry})
		case "osm":
			p = overpass.New(overpass.Options{Endpoint: cfg.OverpassURL, HTTPClient: httpClient, Retry: retry})
		case "maps_web":
			browser := mapsweb.NewBrowser(cfg.ChromeBin, logger, retry)
			closeFn = browser.Close
			p = mapsweb.New(browser, cfg.ResultsPerCall)
		case "":
			continue
		default:
			return nil, closeFn, fmt.Errorf("%w: unknown provider %q", services.ErrProviderConfig, name)
		}
		if err != nil {
			return nil, closeFn, fmt.Errorf("%w: %w", services.ErrProviderConfig, err)
		}

		registry.Register(providers.WithCache(p, cache, cfg.CacheTTL))
		logger.Info("Provider enabled: %s", p.Name())
	}

	if registry.Len() == 0 {
		return nil, closeFn, fmt.Errorf("%w: PROVIDERS is empty", services.ErrProviderConfig)
	}
	return registry, closeFn, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
