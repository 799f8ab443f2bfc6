package format

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/passbi/trackmap/internal/models"
)

func TestSpeed(t *testing.T) {
	ten := 10.0000000001
	slow := 3.14159
	zero := 0.0

	tests := []struct {
		name     string
		kmh      *float64
		expected string
	}{
		{name: "Not applicable", kmh: nil, expected: "N/A"},
		{name: "Ten km per hour", kmh: &ten, expected: "10.00 km/h"},
		{name: "Rounded to two decimals", kmh: &slow, expected: "3.14 km/h"},
		{name: "Stationary", kmh: &zero, expected: "0.00 km/h"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Speed(tt.kmh))
		})
	}
}

func TestDistance(t *testing.T) {
	assert.Equal(t, "N/A", Distance(models.TrajectoryPoint{Sequence: 1}))
	assert.Equal(t, "1.23 km", Distance(models.TrajectoryPoint{Sequence: 2, DistanceKm: 1.2345}))
	assert.Equal(t, "0.00 km", Distance(models.TrajectoryPoint{Sequence: 3}))
}

func TestTime(t *testing.T) {
	ts := time.Date(2024, time.June, 28, 13, 59, 38, 831_000_000, time.UTC)
	assert.Equal(t, "2024-06-28 13:59:38.831000", Time(ts))
}
