package directions

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

const transitRoute = `{
  "status": "OK",
  "routes": [{
    "legs": [{
      "duration": {"text": "42 min"},
      "steps": [
        {"travel_mode": "WALKING"},
        {"travel_mode": "TRANSIT", "transit_details": {
          "headsign": "Llao Llao",
          "arrival_stop": {"name": "Puerto Pañuelo"},
          "line": {"name": "Terminal - Llao Llao", "short_name": "20", "vehicle": {"type": "BUS", "name": "Colectivo"}}
        }}
      ]
    }]
  }]
}`

func TestResolveTransitStep(t *testing.T) {
	t.Parallel()

	var got url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query()
		_, _ = w.Write([]byte(transitRoute))
	}))
	defer srv.Close()

	c, err := New(Options{APIKey: "k", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	route, err := c.Resolve(context.Background(), -41.1335, -71.3103, "Aeropuerto, Bariloche")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.Get("mode") != "transit" || got.Get("origin") != "-41.1335,-71.3103" || got.Get("destination") != "Aeropuerto, Bariloche" {
		t.Errorf("query: %v", got)
	}
	if route == nil {
		t.Fatal("expected a route")
	}
	if route.LineName != "20" || route.VehicleType != "Colectivo" || route.Destination != "Llao Llao" || route.Duration != "42 min" {
		t.Errorf("route: %+v", route)
	}
}

func TestResolveNoRoute(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{"zero results", `{"status": "ZERO_RESULTS", "routes": []}`},
		{"walking only", `{"status": "OK", "routes": [{"legs": [{"steps": [{"travel_mode": "WALKING"}]}]}]}`},
	}
	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(tt.body))
		}))
		c, _ := New(Options{APIKey: "k", BaseURL: srv.URL})
		route, err := c.Resolve(context.Background(), 1, 1, "x")
		srv.Close()
		if err != nil || route != nil {
			t.Errorf("%s: got route=%v err=%v, want nil/nil", tt.name, route, err)
		}
	}
}

func TestResolveDeniedIsError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status": "REQUEST_DENIED", "error_message": "key invalid"}`))
	}))
	defer srv.Close()

	c, _ := New(Options{APIKey: "k", BaseURL: srv.URL})
	if _, err := c.Resolve(context.Background(), 1, 1, "x"); err == nil {
		t.Fatal("expected error for REQUEST_DENIED")
	}
}
