package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"place-discovery/config"
	"place-discovery/models"
	"place-discovery/providers"
	"place-discovery/storage"
	"place-discovery/utils"
)

// DiscoveryStore is what DiscoveryService needs from persistence.
type DiscoveryStore interface {
	storage.PropertyReader
	storage.CategoryStore
	storage.RecommendationStore
}

// DiscoveryOptions tunes the fan-out of a run.
type DiscoveryOptions struct {
	// MaxConcurrency bounds how many categories are searched at once.
	MaxConcurrency int
	// MinInterval spaces category starts across the pool.
	MinInterval time.Duration
	// ProviderInterval spaces consecutive calls to the same provider.
	ProviderInterval time.Duration
	// ResultsPerProvider caps what one provider contributes to a category.
	ResultsPerProvider int
	// ResultsPerCategory is the target number of suggestions per category.
	ResultsPerCategory int
}

// DiscoveryDeps groups the collaborators of a DiscoveryService.
type DiscoveryDeps struct {
	Store    DiscoveryStore
	Registry *providers.Registry
	Catalog  config.Catalog
	Limiter  *RateLimiter
	Logger   *utils.Logger
	Options  DiscoveryOptions
}

// DiscoverRequest selects the property, an optional single category and an
// optional location override for a run.
type DiscoverRequest struct {
	PropertyID   int64                    `json:"propertyId"`
	CategoryType string                   `json:"categoryType,omitempty"`
	Override     *models.LocationOverride `json:"override,omitempty"`
}

// DiscoveryService searches every category of a property through the
// provider chain and stores what it finds as auto-suggested rows.
type DiscoveryService struct {
	store      DiscoveryStore
	registry   *providers.Registry
	catalog    config.Catalog
	limiter    *RateLimiter
	planner    Planner
	normalizer *Normalizer
	throttles  map[string]*utils.Throttle
	opts       DiscoveryOptions
	logger     *utils.Logger
}

// NewDiscoveryService wires a DiscoveryService. Zero options fall back to
// three results per provider and per category and one worker.
func NewDiscoveryService(deps DiscoveryDeps) *DiscoveryService {
	opts := deps.Options
	if opts.MaxConcurrency < 1 {
		opts.MaxConcurrency = 1
	}
	if opts.ResultsPerProvider < 1 {
		opts.ResultsPerProvider = 3
	}
	if opts.ResultsPerCategory < 1 {
		opts.ResultsPerCategory = 3
	}

	throttles := make(map[string]*utils.Throttle)
	if deps.Registry != nil {
		for _, p := range deps.Registry.Chain() {
			throttles[p.Name()] = utils.NewThrottle(opts.ProviderInterval)
		}
	}

	return &DiscoveryService{
		store:      deps.Store,
		registry:   deps.Registry,
		catalog:    deps.Catalog,
		limiter:    deps.Limiter,
		normalizer: NewNormalizer(deps.Logger),
		throttles:  throttles,
		opts:       opts,
		logger:     deps.Logger,
	}
}

// categoryOutcome is what the provider chain produced for one category.
type categoryOutcome struct {
	suggestions []models.Suggestion
	errors      int
}

// Run performs one discovery run. It fails before any provider call when no
// provider is enabled, the property is unknown, the rate limit is active or
// no location can be derived. Provider failures only count against the
// report.
func (s *DiscoveryService) Run(ctx context.Context, req DiscoverRequest) (*models.RunReport, error) {
	if s.registry == nil || s.registry.Len() == 0 {
		return nil, fmt.Errorf("%w: no suggestion provider enabled", ErrProviderConfig)
	}

	prop, err := s.store.GetProperty(ctx, req.PropertyID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrPropertyNotFound
	}
	if err != nil {
		return nil, err
	}

	if s.limiter != nil {
		if err := s.limiter.Gate(ctx, req.PropertyID); err != nil {
			return nil, err
		}
	}

	strategy, err := s.planner.Plan(prop, req.Override)
	if err != nil {
		return nil, err
	}

	only := strings.TrimSpace(req.CategoryType)
	categories, err := s.store.EnsureCategories(ctx, req.PropertyID, s.wantedCategories(only))
	if err != nil {
		return nil, fmt.Errorf("discovery: ensure categories: %w", err)
	}

	var jobs []categoryJob
	for _, job := range planJobs(s.catalog, categories, only) {
		if _, transit := job.Plan.(TransitSearch); transit {
			continue
		}
		jobs = append(jobs, job)
	}

	report := &models.RunReport{
		RunID:      uuid.NewString(),
		PropertyID: req.PropertyID,
		Strategy:   strategy.String(),
		StartedAt:  time.Now(),
		ByCategory: make(map[string]int),
		BySource:   make(map[string]int),
	}
	runTag := report.RunID[:8]
	s.logger.Info("[discovery] Run %s: property %d, %d categories, %s", runTag, req.PropertyID, len(jobs), strategy)

	slots := make([]categoryOutcome, len(jobs))
	pool := utils.NewWorkerPool(s.opts.MaxConcurrency, s.opts.MinInterval)
	for i, job := range jobs {
		if err := pool.Submit(ctx, func() {
			slots[i] = s.searchCategory(ctx, runTag, strategy, job)
		}); err != nil {
			break
		}
	}
	pool.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("discovery: run %s: %w", runTag, err)
	}

	seen := utils.NewKeySet()
	for i, job := range jobs {
		out := slots[i]
		report.ProviderErrors += out.errors
		report.Fetched += len(out.suggestions)
		if len(out.suggestions) == 0 {
			continue
		}

		clean := s.normalizer.Clean(out.suggestions, job.Category.Type, seen)
		saved, err := s.store.SaveRecommendations(ctx, toRecommendations(req.PropertyID, job.Category, clean))
		if err != nil {
			return nil, fmt.Errorf("discovery: save %s: %w", job.Category.Type, err)
		}
		report.Duplicates += len(out.suggestions) - len(saved)

		for _, rec := range saved {
			report.ByCategory[job.Category.Type]++
			report.BySource[string(rec.ExternalSource)]++
			report.Suggestions = append(report.Suggestions, rec.Suggestion)
		}
		s.logger.Info("[discovery] Run %s: %s stored %d of %d", runTag, job.Category.Type, len(saved), len(out.suggestions))
	}

	report.Inserted = len(report.Suggestions)
	report.Elapsed = time.Since(report.StartedAt)
	s.logger.Info("[discovery] Run %s done: %d inserted, %d duplicates, %d provider errors in %s",
		runTag, report.Inserted, report.Duplicates, report.ProviderErrors, report.Elapsed.Round(time.Millisecond))
	return report, nil
}

// wantedCategories is the catalog plus the requested category when the
// catalog does not declare it.
func (s *DiscoveryService) wantedCategories(only string) []models.Category {
	wanted := catalogCategories(s.catalog)
	if only == "" {
		return wanted
	}
	if _, known := s.catalog.Lookup(only); known {
		return wanted
	}
	return append(wanted, models.Category{
		Name:         typeName(only),
		Type:         only,
		Icon:         "map-pin",
		DisplayOrder: len(wanted),
	})
}

func (s *DiscoveryService) searchCategory(ctx context.Context, runTag string, strategy Strategy, job categoryJob) categoryOutcome {
	g := newGatherer(s.opts.ResultsPerCategory)
	var out categoryOutcome

	switch plan := job.Plan.(type) {
	case KeywordSearch:
		for _, p := range s.registry.Chain() {
			if g.full() || ctx.Err() != nil {
				break
			}
			if err := s.searchWith(ctx, p, strategy, job.Category.Type, plan.Terms, g); err != nil {
				out.errors++
				s.logger.Warn("[discovery] Run %s: %s failed for %s: %v", runTag, p.Name(), job.Category.Type, err)
			}
		}
	case OpenDataSearch:
		if strategy.Kind != StrategyNearby {
			s.logger.Warn("[discovery] Run %s: %s needs coordinates, skipped", runTag, job.Category.Type)
			break
		}
		for _, p := range s.registry.Chain() {
			if g.full() || ctx.Err() != nil {
				break
			}
			if _, ok := p.(providers.CategorySearcher); !ok {
				continue
			}
			if err := s.searchWith(ctx, p, strategy, job.Category.Type, nil, g); err != nil {
				out.errors++
				s.logger.Warn("[discovery] Run %s: %s failed for %s: %v", runTag, p.Name(), job.Category.Type, err)
			}
		}
	}

	out.suggestions = g.out
	if len(out.suggestions) == 0 {
		s.logger.Debug("[discovery] Run %s: nothing found for %s", runTag, job.Category.Type)
	}
	return out
}

// searchWith asks one provider for a category. Keyword providers go through
// the terms in order until the category is full or the provider has given
// its share; open-data providers are asked once by category type. The first
// error ends this provider's turn.
func (s *DiscoveryService) searchWith(ctx context.Context, p providers.Provider, strategy Strategy, categoryType string, terms []string, g *gatherer) error {
	limit := s.opts.ResultsPerProvider

	if len(terms) > 0 {
		var search func(ctx context.Context, term string) ([]models.Suggestion, error)
		switch {
		case strategy.Kind == StrategyNearby:
			if ns, ok := p.(providers.NearbySearcher); ok {
				search = func(ctx context.Context, term string) ([]models.Suggestion, error) {
					return ns.SearchNearby(ctx, strategy.Lat, strategy.Lng, term)
				}
			}
		case strategy.Kind == StrategyText:
			if ts, ok := p.(providers.TextSearcher); ok {
				search = func(ctx context.Context, term string) ([]models.Suggestion, error) {
					return ts.SearchText(ctx, strategy.Query, term)
				}
			}
		}

		if search != nil {
			added := 0
			for _, term := range terms {
				if g.full() || added >= limit {
					break
				}
				found, err := s.call(ctx, p, func(ctx context.Context) ([]models.Suggestion, error) {
					return search(ctx, term)
				})
				if err != nil {
					return err
				}
				added += g.take(found, limit-added)
			}
			return nil
		}
	}

	cs, ok := p.(providers.CategorySearcher)
	if !ok || strategy.Kind != StrategyNearby {
		return nil
	}
	found, err := s.call(ctx, p, func(ctx context.Context) ([]models.Suggestion, error) {
		return cs.SearchCategory(ctx, strategy.Lat, strategy.Lng, categoryType)
	})
	if err != nil {
		return err
	}
	g.take(found, limit)
	return nil
}

// call runs fn behind the provider's throttle.
func (s *DiscoveryService) call(ctx context.Context, p providers.Provider, fn func(context.Context) ([]models.Suggestion, error)) ([]models.Suggestion, error) {
	var found []models.Suggestion
	do := func() error {
		var err error
		found, err = fn(ctx)
		return err
	}

	t, ok := s.throttles[p.Name()]
	if !ok {
		return found, do()
	}
	err := t.Do(ctx, do)
	return found, err
}

// gatherer collects distinct suggestions for one category.
type gatherer struct {
	want int
	seen map[string]struct{}
	out  []models.Suggestion
}

func newGatherer(want int) *gatherer {
	return &gatherer{want: want, seen: make(map[string]struct{})}
}

func (g *gatherer) full() bool { return len(g.out) >= g.want }

// take adds up to limit suggestions not seen yet and returns how many it added.
func (g *gatherer) take(found []models.Suggestion, limit int) int {
	added := 0
	for _, f := range found {
		if added >= limit || g.full() {
			break
		}
		key := TitleKey(f.Title)
		if key == TitleKey("") {
			continue
		}
		if _, dup := g.seen[key]; dup {
			continue
		}
		g.seen[key] = struct{}{}
		g.out = append(g.out, f)
		added++
	}
	return added
}

func toRecommendations(propertyID int64, cat models.Category, suggestions []models.Suggestion) []models.Recommendation {
	recs := make([]models.Recommendation, 0, len(suggestions))
	var categoryID *int64
	if cat.ID != 0 {
		id := cat.ID
		categoryID = &id
	}
	for _, sg := range suggestions {
		recs = append(recs, models.Recommendation{
			PropertyID:      propertyID,
			CategoryID:      categoryID,
			IsAutoSuggested: true,
			Suggestion:      sg,
		})
	}
	return recs
}
