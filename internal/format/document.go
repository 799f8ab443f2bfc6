package format

import (
	"github.com/passbi/trackmap/internal/models"
	"github.com/passbi/trackmap/internal/record"
)

// NoDataMessage accompanies an empty trajectory
const NoDataMessage = "No data available to plot."

// Document is the JSON handed to renderers by the CLI, the API and the
// NATS publisher.
type Document struct {
	Empty       bool         `json:"empty"`
	Message     string       `json:"message,omitempty"`
	Points      []Point      `json:"points"`
	Summary     *Summary     `json:"summary,omitempty"`
	Diagnostics []Diagnostic `json:"diagnostics"`
}

// Point is a trajectory point with its popup text
type Point struct {
	models.TrajectoryPoint
	TimeText     string `json:"time_text"`
	DistanceText string `json:"distance_text"`
	SpeedText    string `json:"speed_text"`
}

type Summary struct {
	Center            models.Coordinate `json:"center"`
	Start             models.Coordinate `json:"start"`
	End               models.Coordinate `json:"end"`
	TotalDistanceKm   float64           `json:"total_distance_km"`
	TotalDistanceText string            `json:"total_distance_text"`
	DurationSeconds   float64           `json:"duration_seconds"`
}

// Diagnostic describes one dropped row
type Diagnostic struct {
	Row     int    `json:"row"`
	Field   string `json:"field"`
	Value   string `json:"value"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

// NewDocument renders a trajectory and the diagnostics of the run that built it
func NewDocument(t *models.Trajectory, diagnostics []*record.ParseError) *Document {
	doc := &Document{
		Empty:       t.IsEmpty(),
		Points:      make([]Point, 0, t.Len()),
		Diagnostics: make([]Diagnostic, 0, len(diagnostics)),
	}

	for _, d := range diagnostics {
		doc.Diagnostics = append(doc.Diagnostics, Diagnostic{
			Row:     d.Row,
			Field:   d.Field,
			Value:   d.Value,
			Reason:  d.Reason(),
			Message: d.Error(),
		})
	}

	if doc.Empty {
		doc.Message = NoDataMessage
		return doc
	}

	for _, p := range t.Points {
		doc.Points = append(doc.Points, Point{
			TrajectoryPoint: p,
			TimeText:        Time(p.Timestamp),
			DistanceText:    Distance(p),
			SpeedText:       Speed(p.AverageSpeedKmh),
		})
	}

	center, _ := t.Center()
	total := t.TotalDistanceKm()
	doc.Summary = &Summary{
		Center:            center,
		Start:             t.Start().Coordinate(),
		End:               t.End().Coordinate(),
		TotalDistanceKm:   total,
		TotalDistanceText: Kilometers(total),
		DurationSeconds:   t.Duration().Seconds(),
	}

	return doc
}

// RouteID returns the route shared by every point, or "" when the points
// disagree or carry none.
func (d *Document) RouteID() string {
	route := ""
	for i, p := range d.Points {
		id := p.Attributes[models.FieldRouteID]
		if i == 0 {
			route = id
			continue
		}
		if id != route {
			return ""
		}
	}
	return route
}
