// Package source provides the data sources that feed raw rows into the
// pipeline. A source that cannot be read at all aborts the run before any
// row is parsed.
package source

import (
	"context"
	"errors"

	"github.com/passbi/trackmap/internal/models"
)

var (
	ErrUnavailable   = errors.New("data source unavailable")
	ErrEmptySource   = errors.New("data source has no header")
	ErrMissingColumn = errors.New("required column missing")
)

// Source yields the raw rows of one trajectory in delivery order
type Source interface {
	Name() string
	ReadRows(ctx context.Context) ([]models.RawRow, error)
}
