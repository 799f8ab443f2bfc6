package trajectory

import (
	"sort"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/passbi/trackmap/internal/models"
)

// Options controls trajectory construction
type Options struct {
	RemoveDuplicates bool
}

// Build turns parsed points into the ordered, enriched trajectory:
// optional deduplication, stable sort by timestamp, 1-based sequencing and
// per-point distance and speed relative to the predecessor.
// An empty input yields an empty, non-nil trajectory.
func Build(points []models.ParsedPoint, opts Options) *models.Trajectory {
	ordered := make([]models.ParsedPoint, len(points))
	copy(ordered, points)

	if opts.RemoveDuplicates {
		before := len(ordered)
		ordered = Deduplicate(ordered)
		if removed := before - len(ordered); removed > 0 {
			log.Infof("Removed %d duplicate rows (%d remaining)", removed, len(ordered))
		}
	}

	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Timestamp.Before(ordered[j].Timestamp)
	})

	trajectory := &models.Trajectory{Points: make([]models.TrajectoryPoint, 0, len(ordered))}
	for i, point := range ordered {
		tp := models.TrajectoryPoint{
			Sequence:   i + 1,
			Timestamp:  point.Timestamp,
			Lat:        point.Lat,
			Lon:        point.Lon,
			Attributes: point.Attributes,
		}

		if i > 0 {
			prev := ordered[i-1]
			tp.DistanceKm = DistanceKm(prev.Coordinate(), point.Coordinate())
			tp.AverageSpeedKmh = averageSpeed(tp.DistanceKm, point.Timestamp.Sub(prev.Timestamp).Seconds())
		}

		trajectory.Points = append(trajectory.Points, tp)
	}

	return trajectory
}

// averageSpeed returns km/h, or nil when the elapsed time is not positive
func averageSpeed(distanceKm, elapsedSeconds float64) *float64 {
	hours := elapsedSeconds / 3600
	if hours <= 0 {
		return nil
	}
	speed := distanceKm / hours
	return &speed
}

// Deduplicate keeps the first occurrence of every row that is identical across
// all fields: raw timestamp and position text plus every passthrough attribute.
// Rows agreeing only on time and place but differing in any attribute are kept.
func Deduplicate(points []models.ParsedPoint) []models.ParsedPoint {
	seen := make(map[string]bool, len(points))
	deduplicated := make([]models.ParsedPoint, 0, len(points))

	for _, point := range points {
		key := rowKey(point)
		if seen[key] {
			continue
		}
		seen[key] = true
		deduplicated = append(deduplicated, point)
	}

	return deduplicated
}

// rowKey is an injective encoding of the full row
func rowKey(point models.ParsedPoint) string {
	keys := make([]string, 0, len(point.Attributes))
	for k := range point.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	writeField(&b, point.RawTimestamp)
	writeField(&b, point.RawPosition)
	for _, k := range keys {
		writeField(&b, k)
		writeField(&b, point.Attributes[k])
	}
	return b.String()
}

func writeField(b *strings.Builder, s string) {
	b.WriteString(strconv.Itoa(len(s)))
	b.WriteByte(':')
	b.WriteString(s)
}
