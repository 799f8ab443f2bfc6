package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/passbi/trackmap/internal/config"
	"github.com/passbi/trackmap/internal/format"
	"github.com/passbi/trackmap/internal/source"
)

func init() {
	log.SetOutput(io.Discard)
}

const recordsCSV = `timestamp,position,country_code,route_id
"Jun 28, 2024 @ 13:59:38.831",POINT (-17.4467 14.6928),SN,R7
"Jun 28, 2024 @ 13:58:38.831",POINT (-17.4500 14.6900),SN,R7
"Jun 28, 2024 @ 13:59:38.831",POINT (-17.4467 14.6928),SN,R7
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRunWritesDocument(t *testing.T) {
	input := writeFile(t, "records.csv", recordsCSV)
	output := filepath.Join(t.TempDir(), "trajectory.json")
	cfg := config.Default()
	cfg.RemoveDuplicates = true

	var stdout bytes.Buffer
	require.NoError(t, run(context.Background(), options{input: input, output: output, cfg: cfg}, &stdout))
	assert.Contains(t, stdout.String(), "Trajectory with 2 points")

	data, err := os.ReadFile(output)
	require.NoError(t, err)

	var doc format.Document
	require.NoError(t, json.Unmarshal(data, &doc))
	require.Len(t, doc.Points, 2)
	assert.Equal(t, 1, doc.Points[0].Sequence)
	assert.InDelta(t, 14.6900, doc.Points[0].Lat, 1e-9)
	assert.Equal(t, "R7", doc.RouteID())
}

func TestRunEmptyResult(t *testing.T) {
	input := writeFile(t, "records.csv", "timestamp,position,country_code,route_id\n")
	output := filepath.Join(t.TempDir(), "trajectory.json")

	var stdout bytes.Buffer
	require.NoError(t, run(context.Background(), options{input: input, output: output, cfg: config.Default()}, &stdout))
	assert.Equal(t, "No data available to plot.\n", stdout.String())

	_, err := os.Stat(output)
	assert.True(t, os.IsNotExist(err), "no output is written for an empty result")
}

func TestRunUnreadableSource(t *testing.T) {
	opts := options{
		input:  filepath.Join(t.TempDir(), "missing.csv"),
		output: filepath.Join(t.TempDir(), "trajectory.json"),
		cfg:    config.Default(),
	}
	err := run(context.Background(), opts, io.Discard)
	assert.ErrorIs(t, err, source.ErrUnavailable)
}

func TestRunPublishRequiresURL(t *testing.T) {
	input := writeFile(t, "records.csv", recordsCSV)
	opts := options{
		input:   input,
		output:  filepath.Join(t.TempDir(), "trajectory.json"),
		publish: true,
		cfg:     config.Default(),
	}
	err := run(context.Background(), opts, io.Discard)
	assert.ErrorContains(t, err, "NATS_URL")
}
