package source

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	log.SetOutput(io.Discard)
}

const sampleCSV = `timestamp,position,country_code,route_id,vehicle
"Jun 28, 2024 @ 13:59:38.831",POINT (-122.4194 37.7749),US,R1,bus-1
"Jun 28, 2024 @ 14:09:38.831","POINT (-122.4094 37.7849)",US,R1,bus-1
`

func TestReadCSV(t *testing.T) {
	rows, err := ReadCSV(context.Background(), strings.NewReader(sampleCSV))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "Jun 28, 2024 @ 13:59:38.831", rows[0]["timestamp"])
	assert.Equal(t, "POINT (-122.4194 37.7749)", rows[0]["position"])
	assert.Equal(t, "US", rows[0]["country_code"])
	assert.Equal(t, "R1", rows[0]["route_id"])
	assert.Equal(t, "bus-1", rows[0]["vehicle"])
	assert.Equal(t, "POINT (-122.4094 37.7849)", rows[1]["position"])
}

func TestReadCSVHeaderOnly(t *testing.T) {
	rows, err := ReadCSV(context.Background(), strings.NewReader("timestamp,position,country_code,route_id\n"))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestReadCSVEmpty(t *testing.T) {
	_, err := ReadCSV(context.Background(), strings.NewReader(""))
	assert.ErrorIs(t, err, ErrEmptySource)
}

func TestReadCSVMissingColumn(t *testing.T) {
	_, err := ReadCSV(context.Background(), strings.NewReader("timestamp,position,route_id\nx,y,z\n"))
	require.ErrorIs(t, err, ErrMissingColumn)
	assert.Contains(t, err.Error(), "country_code")
}

func TestReadCSVBOMAndPadding(t *testing.T) {
	input := "\ufefftimestamp, position ,country_code,route_id\na,b,c,d\n"
	rows, err := ReadCSV(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "a", rows[0]["timestamp"])
	assert.Equal(t, "b", rows[0]["position"])
}

func TestReadCSVRaggedLines(t *testing.T) {
	input := `timestamp,position,country_code,route_id,vehicle
"Jun 28, 2024 @ 13:59:38.831",POINT (1 2),US,R1,bus-1
"Jun 28, 2024 @ 14:00:38.831",POINT (1 2),US,R1
only,three,fields
"Jun 28, 2024 @ 14:01:38.831",POINT (1 2),US,R1,bus-1,surplus
`
	rows, err := ReadCSV(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 4)

	short := rows[1]
	assert.Equal(t, "R1", short["route_id"])
	_, hasVehicle := short["vehicle"]
	assert.False(t, hasVehicle)

	assert.Equal(t, "fields", rows[2]["country_code"])
	_, hasRoute := rows[2]["route_id"]
	assert.False(t, hasRoute)

	assert.Equal(t, "bus-1", rows[3]["vehicle"])
	assert.Len(t, rows[3], 5)
}

func TestCSVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "points.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o644))

	src := NewCSVFile(path)
	assert.Equal(t, "csv:"+path, src.Name())

	rows, err := src.ReadRows(context.Background())
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestCSVFileUnavailable(t *testing.T) {
	src := NewCSVFile(filepath.Join(t.TempDir(), "missing.csv"))
	_, err := src.ReadRows(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestCSVStream(t *testing.T) {
	src := &CSVStream{Label: "upload", Reader: strings.NewReader(sampleCSV)}
	assert.Equal(t, "csv:upload", src.Name())

	rows, err := src.ReadRows(context.Background())
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}
