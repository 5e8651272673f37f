package providers

import (
	"fmt"
	"net/url"
	"strconv"
)

// MapsPointLink links to a map search centred on a coordinate.
func MapsPointLink(lat, lng float64) string {
	return "https://www.google.com/maps/search/?api=1&query=" + formatCoord(lat) + "," + formatCoord(lng)
}

// MapsQueryLink links to a map search for free text.
func MapsQueryLink(text string) string {
	return "https://www.google.com/maps/search/?api=1&query=" + url.QueryEscape(text)
}

// DirectionsLink links to transit directions towards a coordinate.
func DirectionsLink(lat, lng float64) string {
	return fmt.Sprintf("https://www.google.com/maps/dir/?api=1&destination=%s,%s&travelmode=transit",
		formatCoord(lat), formatCoord(lng))
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
