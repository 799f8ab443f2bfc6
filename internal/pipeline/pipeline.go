// Package pipeline runs the single-pass transformation from raw rows to an
// ordered, enriched trajectory.
package pipeline

import (
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/passbi/trackmap/internal/models"
	"github.com/passbi/trackmap/internal/record"
	"github.com/passbi/trackmap/internal/trajectory"
)

// Recorder receives run statistics; metrics.Collector implements it
type Recorder interface {
	ObserveRun(rows, parsed int, dropped map[string]int, duplicates, points int, d time.Duration)
}

// Options configures a run
type Options struct {
	RemoveDuplicates bool
	Workers          int
	Metrics          Recorder
}

// Result is the outcome of one run. Diagnostics lists every dropped row.
type Result struct {
	Trajectory  *models.Trajectory
	Diagnostics []*record.ParseError
	RowsRead    int
	Duplicates  int
}

// Empty reports that no point survived; renderers draw nothing
func (r *Result) Empty() bool {
	return r.Trajectory.IsEmpty()
}

// Run parses rows and builds the trajectory. It never fails: rows that do not
// parse are dropped and reported in Result.Diagnostics.
func Run(rows []models.RawRow, opts Options) *Result {
	start := time.Now()

	parsed := record.NewParser(opts.Workers).Parse(rows)
	built := trajectory.Build(parsed.Points, trajectory.Options{RemoveDuplicates: opts.RemoveDuplicates})

	result := &Result{
		Trajectory:  built,
		Diagnostics: parsed.Errors,
		RowsRead:    len(rows),
		Duplicates:  len(parsed.Points) - built.Len(),
	}

	if opts.Metrics != nil {
		opts.Metrics.ObserveRun(len(rows), len(parsed.Points), DroppedByReason(parsed.Errors), result.Duplicates, built.Len(), time.Since(start))
	}

	if result.Empty() {
		log.Warnf("No data available to plot (%d rows read, %d dropped)", len(rows), len(parsed.Errors))
	} else {
		log.Infof("Built trajectory with %d points (%d rows read, %d dropped, %d duplicates)",
			built.Len(), len(rows), len(parsed.Errors), result.Duplicates)
	}

	return result
}

// DroppedByReason counts diagnostics per failure class
func DroppedByReason(diagnostics []*record.ParseError) map[string]int {
	counts := make(map[string]int)
	for _, d := range diagnostics {
		counts[d.Reason()]++
	}
	return counts
}
