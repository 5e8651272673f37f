package models

// TransitStop is a stored bus/transit stop.
type TransitStop struct {
	ID        int64   `json:"id" csv:"id"`
	Name      string  `json:"name" csv:"name"`
	Latitude  float64 `json:"latitude" csv:"latitude"`
	Longitude float64 `json:"longitude" csv:"longitude"`
	IsHub     bool    `json:"isHub" csv:"is_hub"`
}

// TransitLine is a line that serves a sequence of stops.
type TransitLine struct {
	ID              int64  `json:"id" csv:"id"`
	LineNumber      string `json:"lineNumber" csv:"line_number"`
	Name            string `json:"name,omitempty" csv:"name,omitempty"`
	Color           string `json:"color" csv:"color"`
	MainAttractions string `json:"mainAttractions,omitempty" csv:"main_attractions,omitempty"`
}

// RouteStop places a stop on a line in a given direction.
type RouteStop struct {
	LineID    int64  `csv:"line_id"`
	StopID    int64  `csv:"stop_id"`
	Order     int    `csv:"stop_order"`
	Direction string `csv:"direction"`
}

// TransitDataset is a full stop/line/route snapshot, as loaded for import.
type TransitDataset struct {
	Stops      []TransitStop
	Lines      []TransitLine
	RouteStops []RouteStop
}

// TransitMatch is a stop within range of a property, with the lines that serve it.
type TransitMatch struct {
	Stop           TransitStop   `json:"stop"`
	DistanceMeters float64       `json:"distanceMeters"`
	Lines          []TransitLine `json:"lines"`
	ScheduleInfo   string        `json:"scheduleInfo"`
	Description    string        `json:"description"`
}

// TransportRecord is a transport_info row for a property.
type TransportRecord struct {
	ID           int64  `json:"id"`
	PropertyID   int64  `json:"propertyId"`
	Type         string `json:"type"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	Phone        string `json:"phone,omitempty"`
	Website      string `json:"website,omitempty"`
	ScheduleInfo string `json:"scheduleInfo,omitempty"`
	PriceInfo    string `json:"priceInfo,omitempty"`
}

// Route is what a transit-route resolver returns for one destination.
type Route struct {
	LineName    string
	VehicleType string
	Destination string
	Duration    string
}
