package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/passbi/trackmap/internal/models"
)

const utf8BOM = "\ufeff"

// CSVFile reads rows from a comma separated export file
type CSVFile struct {
	Path string
}

// NewCSVFile creates a file source
func NewCSVFile(path string) *CSVFile {
	return &CSVFile{Path: path}
}

func (s *CSVFile) Name() string {
	return "csv:" + s.Path
}

// ReadRows opens and parses the whole file
func (s *CSVFile) ReadRows(ctx context.Context) ([]models.RawRow, error) {
	file, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer file.Close()

	return ReadCSV(ctx, file)
}

// CSVStream reads rows from an already open stream, e.g. an HTTP body
type CSVStream struct {
	Label  string
	Reader io.Reader
}

func (s *CSVStream) Name() string {
	return "csv:" + s.Label
}

func (s *CSVStream) ReadRows(ctx context.Context) ([]models.RawRow, error) {
	return ReadCSV(ctx, s.Reader)
}

// ReadCSV parses a header line followed by data lines. Every required column
// must be present in the header. Lines may be shorter or longer than the
// header: absent trailing cells are left out of the row and extra cells are
// ignored. Lines that are not valid CSV are skipped with a warning; a missing
// or unreadable header is fatal.
func ReadCSV(ctx context.Context, reader io.Reader) ([]models.RawRow, error) {
	csvReader := csv.NewReader(reader)
	csvReader.LazyQuotes = true
	// short lines keep the columns they have; the row parser reports missing fields
	csvReader.FieldsPerRecord = -1

	header, err := csvReader.Read()
	if err == io.EOF {
		return nil, ErrEmptySource
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read header: %v", ErrUnavailable, err)
	}

	columns := makeColumns(header)
	if err := checkColumns(columns); err != nil {
		return nil, err
	}

	var rows []models.RawRow
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		record, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				log.Warnf("Skipping malformed CSV line %d: %v", parseErr.Line, err)
				continue
			}
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}

		row := make(models.RawRow, len(columns))
		for i, name := range columns {
			if i < len(record) {
				row[name] = record[i]
			}
		}
		rows = append(rows, row)
	}

	log.Debugf("Read %d rows from CSV", len(rows))
	return rows, nil
}

func makeColumns(header []string) []string {
	columns := make([]string, len(header))
	for i, col := range header {
		if i == 0 {
			col = strings.TrimPrefix(col, utf8BOM)
		}
		columns[i] = strings.TrimSpace(col)
	}
	return columns
}

func checkColumns(columns []string) error {
	present := make(map[string]bool, len(columns))
	for _, col := range columns {
		present[col] = true
	}

	var missing []string
	for _, field := range models.RequiredFields {
		if !present[field] {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return nil
}
