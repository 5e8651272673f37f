package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Search kinds a catalog category can declare.
const (
	SearchKeywords = "keywords"
	SearchOpenData = "open_data"
	SearchTransit  = "transit"
)

// CategorySpec describes one discoverable category.
type CategorySpec struct {
	Type   string   `yaml:"type"`
	Name   string   `yaml:"name"`
	Icon   string   `yaml:"icon"`
	Search string   `yaml:"search"`
	Terms  []string `yaml:"terms"`
}

// Catalog is the tunable discovery vocabulary: which categories exist, in
// which order they run, and which landmarks route discovery asks about.
type Catalog struct {
	Categories   []CategorySpec `yaml:"categories"`
	Destinations []string       `yaml:"destinations"`
}

// DefaultCatalog returns the built-in category list and route destinations.
func DefaultCatalog() Catalog {
	return Catalog{
		Categories: []CategorySpec{
			{Type: "gastronomy", Name: "Restaurantes", Icon: "utensils", Search: SearchKeywords,
				Terms: []string{"restaurantes recomendados", "parrilla argentina", "comida regional"}},
			{Type: "sights", Name: "Turismo", Icon: "camera", Search: SearchKeywords,
				Terms: []string{"atracciones turísticas", "mirador panorámico", "museo", "puntos de interés"}},
			{Type: "shops", Name: "Tiendas", Icon: "shopping-bag", Search: SearchKeywords,
				Terms: []string{"ropa", "accesorios", "ropa de invierno", "calzado"}},
			{Type: "trails", Name: "Senderos", Icon: "mountain", Search: SearchOpenData},
			{Type: "kids", Name: "Kids", Icon: "baby", Search: SearchKeywords,
				Terms: []string{"actividades para niños", "parque infantil", "heladería artesanal", "juegos"}},
			{Type: "bars", Name: "Bares", Icon: "beer", Search: SearchKeywords,
				Terms: []string{"cervecería artesanal", "bar de tragos", "wine bar vinoteca", "pub"}},
			{Type: "outdoors", Name: "Outdoors", Icon: "trees", Search: SearchOpenData},
			{Type: "breakfast", Name: "Desayuno & Cafetería", Icon: "coffee", Search: SearchKeywords,
				Terms: []string{"café de especialidad", "pastelería artesanal", "brunch"}},
			{Type: "essentials", Name: "Supermercados & Farmacias", Icon: "shopping-cart", Search: SearchKeywords,
				Terms: []string{"supermercado", "farmacia 24 horas"}},
			{Type: "transit", Name: "Transporte Público", Icon: "bus", Search: SearchTransit},
			{Type: "other", Name: "Otros", Icon: "map-pin", Search: SearchKeywords,
				Terms: []string{"lugares de interés"}},
		},
		Destinations: []string{
			"Centro Cívico",
			"Aeropuerto",
			"Terminal de Ómnibus",
			"Cerro Mirador",
			"Centro Comercial",
		},
	}
}

// LoadCatalog returns the default catalog, replaced section by section by
// whatever the YAML file at path defines. An empty path yields the defaults.
func LoadCatalog(path string) (Catalog, error) {
	cat := DefaultCatalog()
	if path == "" {
		return cat, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return cat, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	return ParseCatalog(raw)
}

// ParseCatalog decodes YAML catalog bytes on top of the defaults.
func ParseCatalog(raw []byte) (Catalog, error) {
	cat := DefaultCatalog()

	var fileCat Catalog
	if err := yaml.Unmarshal(raw, &fileCat); err != nil {
		return cat, fmt.Errorf("catalog: parse: %w", err)
	}

	if len(fileCat.Categories) > 0 {
		for i, c := range fileCat.Categories {
			if c.Type == "" {
				return cat, fmt.Errorf("catalog: category #%d has no type", i+1)
			}
			switch c.Search {
			case "":
				fileCat.Categories[i].Search = SearchKeywords
			case SearchKeywords, SearchOpenData, SearchTransit:
			default:
				return cat, fmt.Errorf("catalog: category %q: unknown search kind %q", c.Type, c.Search)
			}
		}
		cat.Categories = fileCat.Categories
	}
	if len(fileCat.Destinations) > 0 {
		cat.Destinations = fileCat.Destinations
	}
	return cat, nil
}

// Lookup finds a category by type.
func (c Catalog) Lookup(categoryType string) (CategorySpec, bool) {
	for _, spec := range c.Categories {
		if spec.Type == categoryType {
			return spec, true
		}
	}
	return CategorySpec{}, false
}
