// Package format renders trajectory values as the text shown to users:
// popups, CLI summaries and API text fields.
package format

import (
	"fmt"
	"time"

	"github.com/passbi/trackmap/internal/models"
)

// NotApplicable is shown where a value is undefined
const NotApplicable = "N/A"

// TimeLayout matches the popup timestamp rendering
const TimeLayout = "2006-01-02 15:04:05.000000"

// Speed formats an average speed with two decimals, or N/A when absent
func Speed(kmh *float64) string {
	if kmh == nil {
		return NotApplicable
	}
	return fmt.Sprintf("%.2f km/h", *kmh)
}

// Distance formats the distance from the previous point. The first point
// has no predecessor and renders as N/A.
func Distance(p models.TrajectoryPoint) string {
	if p.Sequence <= 1 {
		return NotApplicable
	}
	return fmt.Sprintf("%.2f km", p.DistanceKm)
}

// Kilometers formats an arbitrary distance
func Kilometers(km float64) string {
	return fmt.Sprintf("%.2f km", km)
}

// Time formats a point timestamp
func Time(t time.Time) string {
	return t.Format(TimeLayout)
}
