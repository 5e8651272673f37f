package storage

import (
	"context"
	"errors"
	"time"

	"place-discovery/models"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("storage: not found")

// PropertyReader loads property location data.
type PropertyReader interface {
	GetProperty(ctx context.Context, id int64) (*models.Property, error)
}

// CategoryStore reads and creates per-property recommendation categories.
type CategoryStore interface {
	ListCategories(ctx context.Context, propertyID int64) ([]models.Category, error)
	// EnsureCategories creates the given categories when no category of the
	// same type exists for the property, then returns the full list.
	EnsureCategories(ctx context.Context, propertyID int64, wanted []models.Category) ([]models.Category, error)
}

// RecommendationStore persists suggestions as recommendations.
type RecommendationStore interface {
	// LastAutoSuggestedAt returns the newest created_at among the property's
	// auto-suggested rows. ok is false when there are none.
	LastAutoSuggestedAt(ctx context.Context, propertyID int64) (at time.Time, ok bool, err error)
	// SaveRecommendations inserts rows that violate no uniqueness constraint
	// and returns the ones written, with ID and CreatedAt set.
	SaveRecommendations(ctx context.Context, recs []models.Recommendation) ([]models.Recommendation, error)
	ListRecommendations(ctx context.Context, propertyID int64) ([]models.Recommendation, error)
}

// TransportStore reads and writes transport_info rows.
type TransportStore interface {
	ListTransport(ctx context.Context, propertyID int64) ([]models.TransportRecord, error)
	// InsertTransport writes rec unless the property already has a row with
	// the same name. inserted reports whether a row was written.
	InsertTransport(ctx context.Context, rec *models.TransportRecord) (inserted bool, err error)
}

// TransitStore exposes the stop/line dataset.
type TransitStore interface {
	ListStops(ctx context.Context) ([]models.TransitStop, error)
	// LinesForStops maps each stop id to the distinct lines serving it.
	LinesForStops(ctx context.Context, stopIDs []int64) (map[int64][]models.TransitLine, error)
	ImportTransit(ctx context.Context, ds *models.TransitDataset) error
}

// Store is the full persistence surface used by the engine.
type Store interface {
	PropertyReader
	CategoryStore
	RecommendationStore
	TransportStore
	TransitStore
	Close() error
}

// SuggestionWriter exports run suggestions outside the database.
type SuggestionWriter interface {
	WriteSuggestions(suggestions []models.Suggestion) error
	Close() error
}
