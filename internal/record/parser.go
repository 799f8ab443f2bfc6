package record

import (
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/passbi/trackmap/internal/models"
)

// Result holds the rows that parsed and the diagnostics for those that did not.
// Both slices follow input order.
type Result struct {
	Points []models.ParsedPoint
	Errors []*ParseError
}

// Dropped returns how many rows were excluded
func (r *Result) Dropped() int {
	return len(r.Errors)
}

// ParseRow converts one raw row. row is the 1-based position used in diagnostics.
func ParseRow(row int, raw models.RawRow) (models.ParsedPoint, *ParseError) {
	for _, field := range models.RequiredFields {
		if _, ok := raw[field]; !ok {
			return models.ParsedPoint{}, &ParseError{
				Row:   row,
				Field: field,
				Err:   fmt.Errorf("%w: %s", ErrMissingField, field),
			}
		}
	}

	tsStr := raw[models.FieldTimestamp]
	ts, err := ParseTimestamp(tsStr)
	if err != nil {
		return models.ParsedPoint{}, &ParseError{Row: row, Field: models.FieldTimestamp, Value: tsStr, Err: err}
	}

	posStr := raw[models.FieldPosition]
	coord, err := ParsePosition(posStr)
	if err != nil {
		return models.ParsedPoint{}, &ParseError{Row: row, Field: models.FieldPosition, Value: posStr, Err: err}
	}

	attributes := make(map[string]string, len(raw)-2)
	for key, value := range raw {
		if key == models.FieldTimestamp || key == models.FieldPosition {
			continue
		}
		attributes[key] = value
	}

	return models.ParsedPoint{
		Timestamp:    ts,
		Lat:          coord.Lat,
		Lon:          coord.Lon,
		Attributes:   attributes,
		RawTimestamp: tsStr,
		RawPosition:  posStr,
	}, nil
}

// Parser converts batches of raw rows. Rows are independent, so with
// Workers > 1 the batch is split into chunks parsed concurrently.
type Parser struct {
	Workers int
}

// NewParser creates a parser with the given worker count (minimum 1)
func NewParser(workers int) *Parser {
	if workers < 1 {
		workers = 1
	}
	return &Parser{Workers: workers}
}

// Parse parses every row, logging a warning per dropped row. It never fails
// as a whole: bad rows only show up in Result.Errors.
func (p *Parser) Parse(rows []models.RawRow) *Result {
	points := make([]models.ParsedPoint, len(rows))
	failures := make([]*ParseError, len(rows))

	workers := p.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(rows) {
		workers = len(rows)
	}

	if workers <= 1 {
		for i, raw := range rows {
			points[i], failures[i] = ParseRow(i+1, raw)
		}
	} else {
		chunk := (len(rows) + workers - 1) / workers
		var wg sync.WaitGroup
		for start := 0; start < len(rows); start += chunk {
			end := start + chunk
			if end > len(rows) {
				end = len(rows)
			}
			wg.Add(1)
			go func(start, end int) {
				defer wg.Done()
				for i := start; i < end; i++ {
					points[i], failures[i] = ParseRow(i+1, rows[i])
				}
			}(start, end)
		}
		wg.Wait()
	}

	result := &Result{Points: make([]models.ParsedPoint, 0, len(rows))}
	for i := range rows {
		if failures[i] != nil {
			f := failures[i]
			log.WithFields(log.Fields{
				"row":   f.Row,
				"field": f.Field,
				"value": f.Value,
			}).Warnf("Skipping row: %v", f.Err)
			result.Errors = append(result.Errors, f)
			continue
		}
		result.Points = append(result.Points, points[i])
	}

	return result
}
