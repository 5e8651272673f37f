package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"place-discovery/models"
	"place-discovery/utils"
)

// ErrMissingKey is returned when an enabled provider has no credentials.
var ErrMissingKey = errors.New("provider credentials missing")

// Provider is anything that can contribute suggestions. Capabilities are
// discovered through the searcher interfaces below.
type Provider interface {
	Name() string
}

// NearbySearcher searches around a coordinate for a free-text hint.
type NearbySearcher interface {
	Provider
	SearchNearby(ctx context.Context, lat, lng float64, hint string) ([]models.Suggestion, error)
}

// TextSearcher searches with a free-text location query.
type TextSearcher interface {
	Provider
	SearchText(ctx context.Context, query, hint string) ([]models.Suggestion, error)
}

// CategorySearcher searches open-data tags mapped from a category type.
type CategorySearcher interface {
	Provider
	SearchCategory(ctx context.Context, lat, lng float64, categoryType string) ([]models.Suggestion, error)
}

// StatusError is a non-2xx upstream response.
type StatusError struct {
	Provider string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Provider, e.Code, e.Body)
}

// Retryable reports whether the status is worth retrying.
func (e *StatusError) Retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// DoJSON sends req, retrying transient failures, and decodes a 2xx JSON body into out.
func DoJSON(ctx context.Context, client *http.Client, retry *utils.RetryConfig, name string, newReq func() (*http.Request, error), out any) error {
	if retry == nil {
		retry = &utils.RetryConfig{MaxAttempts: 1}
	}
	return retry.Do(ctx, name, func() error {
		req, err := newReq()
		if err != nil {
			return utils.Permanent(fmt.Errorf("%s: build request: %w", name, err))
		}

		resp, err := client.Do(req.WithContext(ctx))
		if err != nil {
			if ctx.Err() != nil {
				return utils.Permanent(err)
			}
			return fmt.Errorf("%s: request: %w", name, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			serr := &StatusError{Provider: name, Code: resp.StatusCode, Body: string(body)}
			if serr.Retryable() {
				return serr
			}
			return utils.Permanent(serr)
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return utils.Permanent(fmt.Errorf("%s: decode response: %w", name, err))
		}
		return nil
	})
}

// Registry keeps providers in their configured fallback order.
type Registry struct {
	order     []string
	providers map[string]Provider
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{providers: map[string]Provider{}}
}

// Register appends a provider to the chain, replacing any with the same name.
func (r *Registry) Register(p Provider) {
	if r.providers == nil {
		r.providers = map[string]Provider{}
	}
	if _, exists := r.providers[p.Name()]; !exists {
		r.order = append(r.order, p.Name())
	}
	r.providers[p.Name()] = p
}

// Chain returns all providers in fallback order.
func (r *Registry) Chain() []Provider {
	out := make([]Provider, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.providers[name])
	}
	return out
}

// Len returns the number of registered providers.
func (r *Registry) Len() int {
	return len(r.order)
}
