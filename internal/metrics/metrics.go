package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

type Collector struct {
	reg *prometheus.Registry

	RowsRead          prometheus.Counter
	PointsParsed      prometheus.Counter
	RowsDropped       *prometheus.CounterVec // reason label: missing_field|invalid_timestamp|invalid_position|coordinate_range
	DuplicatesRemoved prometheus.Counter

	TrajectoriesBuilt prometheus.Counter
	EmptyResults      prometheus.Counter
	TrajectoryPoints  prometheus.Histogram
	BuildDuration     prometheus.Histogram

	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter

	Published   prometheus.Counter
	PublishErrs prometheus.Counter

	Requests *prometheus.HistogramVec // labels: method, route, status
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		RowsRead: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trackmap_rows_read_total",
			Help: "Raw rows received from data sources.",
		}),
		PointsParsed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trackmap_points_parsed_total",
			Help: "Rows whose timestamp and position parsed.",
		}),
		RowsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trackmap_rows_dropped_total",
			Help: "Rows excluded because a field failed to parse.",
		}, []string{"reason"}),
		DuplicatesRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trackmap_duplicates_removed_total",
			Help: "Identical rows collapsed by deduplication.",
		}),
		TrajectoriesBuilt: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trackmap_trajectories_built_total",
			Help: "Pipeline runs that completed.",
		}),
		EmptyResults: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trackmap_empty_results_total",
			Help: "Pipeline runs that produced no points.",
		}),
		TrajectoryPoints: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "trackmap_trajectory_points",
			Help:    "Number of points per built trajectory.",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		}),
		BuildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "trackmap_build_duration_seconds",
			Help:    "Duration of parse and build for one batch.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 15),
		}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trackmap_cache_hits_total",
			Help: "Trajectory responses served from cache.",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trackmap_cache_misses_total",
			Help: "Trajectory responses computed after a cache miss.",
		}),
		Published: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trackmap_published_total",
			Help: "Trajectories published to the renderer subject.",
		}),
		PublishErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trackmap_publish_errors_total",
			Help: "Failed trajectory publications.",
		}),
		Requests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "trackmap_http_request_duration_seconds",
			Help:    "API request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	reg.MustRegister(
		c.RowsRead, c.PointsParsed, c.RowsDropped, c.DuplicatesRemoved,
		c.TrajectoriesBuilt, c.EmptyResults, c.TrajectoryPoints, c.BuildDuration,
		c.CacheHits, c.CacheMisses,
		c.Published, c.PublishErrs,
		c.Requests,
	)

	return c
}

// ObserveRun records one completed pipeline run
func (c *Collector) ObserveRun(rows, parsed int, dropped map[string]int, duplicates, points int, d time.Duration) {
	c.RowsRead.Add(float64(rows))
	c.PointsParsed.Add(float64(parsed))
	for reason, n := range dropped {
		c.RowsDropped.WithLabelValues(reason).Add(float64(n))
	}
	c.DuplicatesRemoved.Add(float64(duplicates))
	c.TrajectoriesBuilt.Inc()
	if points == 0 {
		c.EmptyResults.Inc()
	}
	c.TrajectoryPoints.Observe(float64(points))
	c.BuildDuration.Observe(d.Seconds())
}

func (c *Collector) CacheHitInc()   { c.CacheHits.Inc() }
func (c *Collector) CacheMissInc()  { c.CacheMisses.Inc() }
func (c *Collector) PublishedInc()  { c.Published.Inc() }
func (c *Collector) PublishErrInc() { c.PublishErrs.Inc() }

// ObserveRequest records one served API request
func (c *Collector) ObserveRequest(method, route string, status int, d time.Duration) {
	c.Requests.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }

// Serve starts an HTTP server exposing /metrics on the given address.
func (c *Collector) Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("metrics server error: %v", err)
		}
	}()
	log.Infof("metrics listening on %s", addr)
	return srv
}
