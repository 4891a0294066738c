package evaluate

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/optiroute/optiroute/internal/geocode"
)

// mapBaseURL is the Google Maps directions deep link endpoint.
const mapBaseURL = "https://www.google.com/maps/dir/"

// MapLink builds a Google Maps directions link for a closed tour. The
// depot is both origin and destination; every other stop becomes a
// waypoint in tour order. The closing depot entry is not repeated as a
// waypoint.
func MapLink(points []geocode.Point, tour []int) string {
	if len(tour) < 2 {
		return ""
	}

	depot := points[tour[0]]

	waypoints := make([]string, 0, len(tour)-2)
	for _, idx := range tour[1 : len(tour)-1] {
		waypoints = append(waypoints, formatCoord(points[idx]))
	}

	params := url.Values{}
	params.Set("api", "1")
	params.Set("origin", formatCoord(depot))
	params.Set("destination", formatCoord(depot))
	if len(waypoints) > 0 {
		params.Set("waypoints", strings.Join(waypoints, "|"))
	}

	return mapBaseURL + "?" + params.Encode()
}

func formatCoord(p geocode.Point) string {
	return fmt.Sprintf("%.6f,%.6f", p.Lat, p.Lon)
}
