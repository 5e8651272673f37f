package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"place-discovery/models"
)

func TestLoadTransitDatasetBariloche(t *testing.T) {
	ds, err := LoadTransitDataset(filepath.Join("..", "data", "transit", "bariloche"))
	if err != nil {
		t.Fatalf("LoadTransitDataset: %v", err)
	}
	if len(ds.Stops) != 15 || len(ds.Lines) != 17 {
		t.Errorf("got %d stops / %d lines, want 15 / 17", len(ds.Stops), len(ds.Lines))
	}

	civic := ds.Stops[0]
	if civic.Name != "Centro Cívico (Independencia)" || !civic.IsHub || civic.Latitude != -41.1334 {
		t.Errorf("first stop: %+v", civic)
	}

	var llao models.TransitLine
	for _, l := range ds.Lines {
		if l.LineNumber == "20" {
			llao = l
		}
	}
	if llao.Color != "#E11D23" || llao.MainAttractions != "Llao Llao, Puerto Pañuelo, Teleférico Otto" {
		t.Errorf("line 20: %+v", llao)
	}
}

func TestValidateTransitDatasetRejectsDanglingRefs(t *testing.T) {
	tests := []struct {
		name string
		ds   models.TransitDataset
		want string
	}{
		{
			name: "unknown line",
			ds: models.TransitDataset{
				Stops:      []models.TransitStop{{ID: 1}},
				RouteStops: []models.RouteStop{{LineID: 5, StopID: 1}},
			},
			want: "unknown line 5",
		},
		{
			name: "unknown stop",
			ds: models.TransitDataset{
				Lines:      []models.TransitLine{{ID: 5}},
				RouteStops: []models.RouteStop{{LineID: 5, StopID: 9}},
			},
			want: "unknown stop 9",
		},
		{
			name: "bad latitude",
			ds:   models.TransitDataset{Stops: []models.TransitStop{{ID: 1, Name: "X", Latitude: 120}}},
			want: "invalid coordinates",
		},
	}
	for _, tt := range tests {
		err := ValidateTransitDataset(&tt.ds)
		if err == nil || !strings.Contains(err.Error(), tt.want) {
			t.Errorf("%s: got %v, want error containing %q", tt.name, err, tt.want)
		}
	}
}

func TestDecodeCSVOptionalColumns(t *testing.T) {
	raw := "id,line_number,name,color,main_attractions\n4,21,Terminal - Covisal,#000000,\n"
	var lines []models.TransitLine
	if err := DecodeCSV(strings.NewReader(raw), &lines); err != nil {
		t.Fatalf("DecodeCSV: %v", err)
	}
	if len(lines) != 1 || lines[0].MainAttractions != "" || lines[0].LineNumber != "21" {
		t.Errorf("decoded: %+v", lines)
	}
}

func TestSuggestionCSVWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "suggestions.csv")
	w, err := NewSuggestionCSVWriter(path)
	if err != nil {
		t.Fatalf("NewSuggestionCSVWriter: %v", err)
	}

	rating := 4.5
	err = w.WriteSuggestions([]models.Suggestion{
		{Title: "La Parrilla", CategoryType: "gastronomy", ExternalSource: models.SourceGoogle, Rating: &rating},
		{Title: "Cerro Otto", CategoryType: "outdoors", ExternalSource: models.SourceOSM},
	})
	if err != nil {
		t.Fatalf("WriteSuggestions: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want header + 2 rows:\n%s", len(lines), data)
	}
	if !strings.HasPrefix(lines[0], "title,description,formatted_address") {
		t.Errorf("header: %s", lines[0])
	}
	if !strings.Contains(lines[1], "La Parrilla") || !strings.Contains(lines[1], "4.5") {
		t.Errorf("first row: %s", lines[1])
	}
}
