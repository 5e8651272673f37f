package services

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"place-discovery/config"
	"place-discovery/models"
)

// SearchPlan says how a category is searched. It is one of KeywordSearch,
// OpenDataSearch or TransitSearch.
type SearchPlan interface {
	planKind() string
}

// KeywordSearch queries keyword-capable providers with each term in order.
type KeywordSearch struct {
	Terms []string
}

// OpenDataSearch queries open-data tag providers with the category type.
type OpenDataSearch struct{}

// TransitSearch hands the category to the transit pipeline.
type TransitSearch struct{}

func (KeywordSearch) planKind() string  { return config.SearchKeywords }
func (OpenDataSearch) planKind() string { return config.SearchOpenData }
func (TransitSearch) planKind() string  { return config.SearchTransit }

// PlanFor builds the plan of a category. Keywords stored on the category
// (comma separated) replace the catalog terms and turn an open-data
// category into a keyword one. A category unknown to the catalog searches
// for its own name.
func PlanFor(spec config.CategorySpec, known bool, stored *models.Category) SearchPlan {
	if known && spec.Search == config.SearchTransit {
		return TransitSearch{}
	}

	if stored != nil {
		if terms := splitKeywords(stored.SearchKeywords); len(terms) > 0 {
			return KeywordSearch{Terms: terms}
		}
	}

	if known {
		switch spec.Search {
		case config.SearchOpenData:
			return OpenDataSearch{}
		default:
			if len(spec.Terms) > 0 {
				return KeywordSearch{Terms: spec.Terms}
			}
		}
	}

	fallback := spec.Type
	if stored != nil {
		fallback = firstNonBlank(stored.Name, stored.Type)
	}
	return KeywordSearch{Terms: []string{fallback}}
}

func splitKeywords(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := normaliseText(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// categoryJob is one category of a discovery run.
type categoryJob struct {
	Category models.Category
	Plan     SearchPlan
}

// typeName capitalises the first letter of a category type.
func typeName(categoryType string) string {
	r, size := utf8.DecodeRuneInString(categoryType)
	if r == utf8.RuneError {
		return categoryType
	}
	return string(unicode.ToUpper(r)) + categoryType[size:]
}

// catalogCategories turns catalog entries into category rows to ensure.
func catalogCategories(cat config.Catalog) []models.Category {
	out := make([]models.Category, 0, len(cat.Categories))
	for i, spec := range cat.Categories {
		name := spec.Name
		if name == "" {
			name = typeName(spec.Type)
		}
		out = append(out, models.Category{
			Name:         name,
			Type:         spec.Type,
			Icon:         spec.Icon,
			DisplayOrder: i,
		})
	}
	return out
}

// planJobs orders the run: catalog categories first in declared order, then
// stored categories the catalog does not know, in display order. When only
// is set the run is narrowed to that category type.
func planJobs(cat config.Catalog, stored []models.Category, only string) []categoryJob {
	byType := make(map[string]models.Category, len(stored))
	for _, c := range stored {
		if c.Type != "" {
			if _, dup := byType[c.Type]; !dup {
				byType[c.Type] = c
			}
		}
	}

	var jobs []categoryJob
	seen := make(map[string]struct{})
	add := func(spec config.CategorySpec, known bool) {
		if only != "" && spec.Type != only {
			return
		}
		if _, dup := seen[spec.Type]; dup {
			return
		}
		seen[spec.Type] = struct{}{}

		c, ok := byType[spec.Type]
		var storedPtr *models.Category
		if ok {
			storedPtr = &c
		} else {
			c = models.Category{Type: spec.Type, Name: spec.Name, Icon: spec.Icon}
		}
		jobs = append(jobs, categoryJob{Category: c, Plan: PlanFor(spec, known, storedPtr)})
	}

	for _, spec := range cat.Categories {
		add(spec, true)
	}
	for _, c := range stored {
		if c.Type == "" {
			continue
		}
		if _, known := cat.Lookup(c.Type); known {
			continue
		}
		add(config.CategorySpec{Type: c.Type, Name: c.Name, Icon: c.Icon}, false)
	}
	return jobs
}
