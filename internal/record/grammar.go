package record

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/passbi/trackmap/internal/models"
)

// TimestampLayout is the fixed export format, e.g. "Jun 28, 2024 @ 13:59:38.831".
// Fractional seconds must have exactly three digits.
const TimestampLayout = "Jan 2, 2006 @ 15:04:05.000"

// timestampPattern pins the exact shape; time.Parse alone also takes a comma
// before the fraction
var timestampPattern = regexp.MustCompile(`^[A-Za-z]{3} \d{1,2}, \d{4} @ \d{1,2}:\d{2}:\d{2}\.\d{3}$`)

// positionPattern matches "POINT (<lon> <lat>)" with signed decimals
var positionPattern = regexp.MustCompile(
	`^POINT\s*\(\s*([+-]?(?:\d+(?:\.\d*)?|\.\d+))\s+([+-]?(?:\d+(?:\.\d*)?|\.\d+))\s*\)$`,
)

// ParseTimestamp parses a timestamp in TimestampLayout as a UTC instant
// with millisecond precision. Surrounding whitespace is rejected.
func ParseTimestamp(value string) (time.Time, error) {
	if !timestampPattern.MatchString(value) {
		return time.Time{}, fmt.Errorf("%w: %q does not match %q", ErrInvalidTimestamp, value, TimestampLayout)
	}
	ts, err := time.Parse(TimestampLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q does not match %q", ErrInvalidTimestamp, value, TimestampLayout)
	}
	return ts, nil
}

// ParsePosition parses a WKT point. The source order is longitude then
// latitude; the returned coordinate carries them as latitude, longitude.
func ParsePosition(value string) (models.Coordinate, error) {
	match := positionPattern.FindStringSubmatch(strings.TrimSpace(value))
	if match == nil {
		return models.Coordinate{}, fmt.Errorf("%w: %q does not match 'POINT (lon lat)'", ErrInvalidPosition, value)
	}

	lon, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return models.Coordinate{}, fmt.Errorf("%w: longitude %q: %v", ErrInvalidPosition, match[1], err)
	}
	lat, err := strconv.ParseFloat(match[2], 64)
	if err != nil {
		return models.Coordinate{}, fmt.Errorf("%w: latitude %q: %v", ErrInvalidPosition, match[2], err)
	}

	if lat < -90 || lat > 90 {
		return models.Coordinate{}, fmt.Errorf("%w: latitude %v must be between -90 and 90", ErrCoordinateRange, lat)
	}
	if lon < -180 || lon > 180 {
		return models.Coordinate{}, fmt.Errorf("%w: longitude %v must be between -180 and 180", ErrCoordinateRange, lon)
	}

	return models.Coordinate{Lat: lat, Lon: lon}, nil
}
