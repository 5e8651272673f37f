package providers

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
	"time"

	"place-discovery/models"
)

// Cache stores provider responses between runs.
type Cache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

// CacheKey hashes sorted params under a prefix.
func CacheKey(prefix string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var builder strings.Builder
	for i, k := range keys {
		if i > 0 {
			builder.WriteString(":")
		}
		builder.WriteString(k)
		builder.WriteString("=")
		builder.WriteString(params[k])
	}

	hash := md5.Sum([]byte(builder.String()))
	return prefix + ":" + hex.EncodeToString(hash[:])
}

// WithCache wraps p so identical searches within ttl are answered from
// cache. Providers exposing neither keyword nor category search are
// returned unchanged.
func WithCache(p Provider, cache Cache, ttl time.Duration) Provider {
	if cache == nil {
		return p
	}
	base := cached{name: p.Name(), cache: cache, ttl: ttl}

	nearby, hasNearby := p.(NearbySearcher)
	text, hasText := p.(TextSearcher)
	category, hasCategory := p.(CategorySearcher)

	switch {
	case hasNearby && hasText:
		return &cachedKeyword{cached: base, nearby: nearby, text: text}
	case hasCategory:
		return &cachedCategory{cached: base, inner: category}
	}
	return p
}

type cached struct {
	name  string
	cache Cache
	ttl   time.Duration
}

func (c cached) Name() string { return c.name }

func (c cached) through(ctx context.Context, key string, fetch func() ([]models.Suggestion, error)) ([]models.Suggestion, error) {
	var hit []models.Suggestion
	if ok, err := c.cache.Get(ctx, key, &hit); err == nil && ok {
		return hit, nil
	}

	out, err := fetch()
	if err != nil {
		return nil, err
	}
	_ = c.cache.Set(ctx, key, out, c.ttl)
	return out, nil
}

type cachedKeyword struct {
	cached
	nearby NearbySearcher
	text   TextSearcher
}

func (c *cachedKeyword) SearchNearby(ctx context.Context, lat, lng float64, hint string) ([]models.Suggestion, error) {
	key := CacheKey("places:"+c.name, map[string]string{
		"lat":  strconv.FormatFloat(lat, 'f', 5, 64),
		"lng":  strconv.FormatFloat(lng, 'f', 5, 64),
		"hint": strings.ToLower(hint),
	})
	return c.through(ctx, key, func() ([]models.Suggestion, error) {
		return c.nearby.SearchNearby(ctx, lat, lng, hint)
	})
}

func (c *cachedKeyword) SearchText(ctx context.Context, query, hint string) ([]models.Suggestion, error) {
	key := CacheKey("places:"+c.name, map[string]string{
		"query": strings.ToLower(query),
		"hint":  strings.ToLower(hint),
	})
	return c.through(ctx, key, func() ([]models.Suggestion, error) {
		return c.text.SearchText(ctx, query, hint)
	})
}

type cachedCategory struct {
	cached
	inner CategorySearcher
}

func (c *cachedCategory) SearchCategory(ctx context.Context, lat, lng float64, categoryType string) ([]models.Suggestion, error) {
	key := CacheKey("places:"+c.name, map[string]string{
		"lat":      strconv.FormatFloat(lat, 'f', 5, 64),
		"lng":      strconv.FormatFloat(lng, 'f', 5, 64),
		"category": categoryType,
	})
	return c.through(ctx, key, func() ([]models.Suggestion, error) {
		return c.inner.SearchCategory(ctx, lat, lng, categoryType)
	})
}
