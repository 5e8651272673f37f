package services

import (
	"strings"
	"unicode"

	"place-discovery/models"
	"place-discovery/providers"
	"place-discovery/utils"
)

// Normalizer cleans provider suggestions and drops in-run duplicates.
type Normalizer struct {
	logger *utils.Logger
}

// NewNormalizer creates a Normalizer with the given logger.
func NewNormalizer(logger *utils.Logger) *Normalizer {
	return &Normalizer{logger: logger}
}

// Clean normalises raw suggestions for one category. seen is shared across
// the run: a title or (source, external id) already in it is skipped, and
// every kept suggestion is added to it.
func (n *Normalizer) Clean(raw []models.Suggestion, categoryType string, seen *utils.KeySet) []models.Suggestion {
	result := make([]models.Suggestion, 0, len(raw))

	for _, r := range raw {
		s, ok := n.normalise(r, categoryType)
		if !ok {
			n.logger.Warn("[normalizer] Dropping suggestion with empty title from %s", r.ExternalSource)
			continue
		}

		titleKey := TitleKey(s.Title)
		if seen.Contains(titleKey) {
			n.logger.Debug("[normalizer] Duplicate title skipped: %s", s.Title)
			continue
		}
		if s.ExternalID != "" && seen.Contains(externalKey(s)) {
			n.logger.Debug("[normalizer] Duplicate %s id skipped: %s", s.ExternalSource, s.ExternalID)
			continue
		}

		seen.Add(titleKey)
		if s.ExternalID != "" {
			seen.Add(externalKey(s))
		}
		result = append(result, s)
	}

	if dropped := len(raw) - len(result); dropped > 0 {
		n.logger.Debug("[normalizer] %s: kept %d of %d suggestions", categoryType, len(result), len(raw))
	}
	return result
}

func (n *Normalizer) normalise(r models.Suggestion, categoryType string) (models.Suggestion, bool) {
	s := r
	s.Title = normaliseText(r.Title)
	if s.Title == "" {
		return s, false
	}
	s.Description = normaliseText(r.Description)
	s.FormattedAddress = normaliseText(r.FormattedAddress)
	s.Phone = strings.TrimSpace(r.Phone)
	s.Website = strings.TrimSpace(r.Website)
	s.ExternalID = strings.TrimSpace(r.ExternalID)
	s.CategoryType = categoryType

	if s.ExternalSource == "" {
		s.ExternalSource = models.SourceManual
	}
	if s.Rating != nil {
		v := clamp(*s.Rating, 0, 5)
		s.Rating = &v
	}
	if s.PriceRange < 0 {
		s.PriceRange = 0
	}
	if s.PriceRange > 4 {
		s.PriceRange = 4
	}
	if s.UserRatingsTotal < 0 {
		s.UserRatingsTotal = 0
	}
	if s.MapsLink == "" {
		if utils.ValidCoordinates(s.Latitude, s.Longitude) {
			s.MapsLink = providers.MapsPointLink(s.Latitude, s.Longitude)
		} else {
			s.MapsLink = providers.MapsQueryLink(strings.TrimSpace(s.Title + " " + s.FormattedAddress))
		}
	}
	return s, true
}

// TitleKey is the run-scoped dedup key of a title.
func TitleKey(title string) string {
	return "title:" + normaliseText(title)
}

func externalKey(s models.Suggestion) string {
	return "ext:" + string(s.ExternalSource) + ":" + s.ExternalID
}

// normaliseText strips leading/trailing whitespace and collapses internal whitespace.
func normaliseText(s string) string {
	s = strings.TrimSpace(s)
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r)
	})
	return strings.Join(fields, " ")
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
