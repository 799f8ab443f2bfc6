package trajectory

import (
	"github.com/umahmood/haversine"

	"github.com/passbi/trackmap/internal/models"
)

// EarthRadiusKm is the mean Earth radius. umahmood/haversine uses the same
// value internally.
const EarthRadiusKm = 6371.0

// DistanceKm returns the haversine great-circle distance between two points
// in kilometers
func DistanceKm(from, to models.Coordinate) float64 {
	p := haversine.Coord{Lat: from.Lat, Lon: from.Lon}
	q := haversine.Coord{Lat: to.Lat, Lon: to.Lon}

	_, km := haversine.Distance(p, q)
	return km
}
