package models

import "time"

// Required raw field names
const (
	FieldTimestamp   = "timestamp"
	FieldPosition    = "position"
	FieldCountryCode = "country_code"
	FieldRouteID     = "route_id"
)

// RequiredFields lists the keys every RawRow must carry
var RequiredFields = []string{FieldTimestamp, FieldPosition, FieldCountryCode, FieldRouteID}

// RawRow is a single location-tracking record as delivered by a data source.
// Keys are column names, values are the untouched textual cell contents.
type RawRow map[string]string

// Coordinate is a WGS84 position in decimal degrees
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// ParsedPoint is a RawRow whose timestamp and position parsed successfully.
// Attributes holds every field other than timestamp and position, unmodified.
// RawTimestamp and RawPosition keep the original cell text so that full-row
// identity survives parsing.
type ParsedPoint struct {
	Timestamp    time.Time
	Lat          float64
	Lon          float64
	Attributes   map[string]string
	RawTimestamp string
	RawPosition  string
}

// Coordinate returns the point position
func (p ParsedPoint) Coordinate() Coordinate {
	return Coordinate{Lat: p.Lat, Lon: p.Lon}
}

// CountryCode returns the country_code passthrough attribute
func (p ParsedPoint) CountryCode() string {
	return p.Attributes[FieldCountryCode]
}

// RouteID returns the route_id passthrough attribute
func (p ParsedPoint) RouteID() string {
	return p.Attributes[FieldRouteID]
}

// TrajectoryPoint is a ParsedPoint placed in the time-ordered trajectory.
// AverageSpeedKmh is nil when not applicable: the first point, or a
// non-positive elapsed time since the predecessor.
type TrajectoryPoint struct {
	Sequence        int               `json:"sequence"`
	Timestamp       time.Time         `json:"timestamp"`
	Lat             float64           `json:"lat"`
	Lon             float64           `json:"lon"`
	DistanceKm      float64           `json:"distance_km"`
	AverageSpeedKmh *float64          `json:"average_speed_kmh"`
	Attributes      map[string]string `json:"attributes"`
}

// HasSpeed reports whether an average speed is defined for the point
func (p TrajectoryPoint) HasSpeed() bool {
	return p.AverageSpeedKmh != nil
}

// Coordinate returns the point position
func (p TrajectoryPoint) Coordinate() Coordinate {
	return Coordinate{Lat: p.Lat, Lon: p.Lon}
}

// Trajectory is the ordered, enriched output handed to a renderer
type Trajectory struct {
	Points []TrajectoryPoint `json:"points"`
}

// IsEmpty reports the "nothing to draw" terminal state
func (t *Trajectory) IsEmpty() bool {
	return t == nil || len(t.Points) == 0
}

// Len returns the number of points
func (t *Trajectory) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Points)
}

// Start returns the first point, or nil for an empty trajectory
func (t *Trajectory) Start() *TrajectoryPoint {
	if t.IsEmpty() {
		return nil
	}
	return &t.Points[0]
}

// End returns the last point, or nil for an empty trajectory
func (t *Trajectory) End() *TrajectoryPoint {
	if t.IsEmpty() {
		return nil
	}
	return &t.Points[len(t.Points)-1]
}

// TotalDistanceKm sums the per-segment distances
func (t *Trajectory) TotalDistanceKm() float64 {
	if t == nil {
		return 0
	}
	total := 0.0
	for _, p := range t.Points {
		total += p.DistanceKm
	}
	return total
}

// Duration is the elapsed time between the first and last point
func (t *Trajectory) Duration() time.Duration {
	if t.IsEmpty() {
		return 0
	}
	return t.End().Timestamp.Sub(t.Start().Timestamp)
}

// Center returns the arithmetic mean of all point coordinates.
// Renderers use it for initial map centering.
func (t *Trajectory) Center() (Coordinate, bool) {
	if t.IsEmpty() {
		return Coordinate{}, false
	}
	var sumLat, sumLon float64
	for _, p := range t.Points {
		sumLat += p.Lat
		sumLon += p.Lon
	}
	n := float64(len(t.Points))
	return Coordinate{Lat: sumLat / n, Lon: sumLon / n}, true
}
