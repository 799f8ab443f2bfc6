package source

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	log "github.com/sirupsen/logrus"

	"github.com/passbi/trackmap/internal/models"
)

// Querier is the subset of pgxpool.Pool used by the PostgreSQL source
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// locationQuery reads the raw text columns of one route in insertion order.
// extra holds any additional passthrough fields as a flat JSON object.
const locationQuery = `
	SELECT timestamp, position, country_code, route_id,
	       COALESCE(extra, '{}'::jsonb)
	FROM location_record
	WHERE route_id = $1
	ORDER BY id
`

// Postgres reads raw rows of a single route from the location_record table
type Postgres struct {
	db      Querier
	routeID string
}

// NewPostgres creates a source for the given route
func NewPostgres(db Querier, routeID string) *Postgres {
	return &Postgres{db: db, routeID: routeID}
}

func (s *Postgres) Name() string {
	return "postgres:" + s.routeID
}

// ReadRows fetches every stored row for the route. Rows that fail to scan
// are skipped with a warning.
func (s *Postgres) ReadRows(ctx context.Context) ([]models.RawRow, error) {
	rows, err := s.db.Query(ctx, locationQuery, s.routeID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query location records: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	var result []models.RawRow
	for rows.Next() {
		var timestamp, position, countryCode, routeID string
		var extra map[string]string
		if err := rows.Scan(&timestamp, &position, &countryCode, &routeID, &extra); err != nil {
			log.Warnf("Skipping location record for route %s: %v", s.routeID, err)
			continue
		}

		row := make(models.RawRow, len(extra)+4)
		for key, value := range extra {
			row[key] = value
		}
		row[models.FieldTimestamp] = timestamp
		row[models.FieldPosition] = position
		row[models.FieldCountryCode] = countryCode
		row[models.FieldRouteID] = routeID

		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	log.Debugf("Read %d location records for route %s", len(result), s.routeID)
	return result, nil
}
