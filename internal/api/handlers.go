package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	"github.com/passbi/trackmap/internal/cache"
	"github.com/passbi/trackmap/internal/format"
	"github.com/passbi/trackmap/internal/models"
	"github.com/passbi/trackmap/internal/pipeline"
	"github.com/passbi/trackmap/internal/source"
)

// Cache stores rendered documents; a nil payload from Get is a miss
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, data []byte) error
}

// Metrics is the subset of the collector the handlers report to
type Metrics interface {
	pipeline.Recorder
	CacheHitInc()
	CacheMissInc()
}

// Publisher forwards documents to renderers
type Publisher interface {
	PublishDocument(routeID string, doc *format.Document) error
}

// HealthCheck probes one dependency
type HealthCheck func(ctx context.Context) error

// Handler serves trajectory requests. Cache, Routes, Metrics and Publisher
// are optional.
type Handler struct {
	RemoveDuplicates bool
	Workers          int

	Cache     Cache
	Routes    func(routeID string) source.Source
	Metrics   Metrics
	Publisher Publisher
	Checks    map[string]HealthCheck
}

// Register mounts the trajectory routes on router
func (h *Handler) Register(router fiber.Router) {
	router.Get("/health", h.Health)

	v1 := router.Group("/v1")
	v1.Post("/trajectories", h.BuildTrajectory)
	v1.Get("/routes/:route_id/trajectory", h.RouteTrajectory)
}

// BuildTrajectory handles POST /v1/trajectories. The CSV comes either as the
// raw request body or as the multipart field "file".
func (h *Handler) BuildTrajectory(c *fiber.Ctx) error {
	removeDuplicates, err := h.removeDuplicates(c)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	body, err := readUpload(c)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	if len(body) == 0 {
		return c.Status(400).JSON(fiber.Map{
			"error": "empty request body: expected CSV data",
		})
	}

	ctx := c.UserContext()
	key := cache.TrajectoryKey(body, removeDuplicates)
	if data := h.cached(ctx, key); data != nil {
		if c.QueryBool("publish") {
			h.publishCached("", data)
		}
		return sendDocument(c, data, "HIT")
	}

	upload := &source.CSVStream{Label: "upload", Reader: bytes.NewReader(body)}
	rows, err := upload.ReadRows(ctx)
	if err != nil {
		return sourceError(c, err)
	}

	doc := h.run(rows, removeDuplicates)
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	h.store(ctx, key, data)

	if c.QueryBool("publish") {
		h.publish(doc.RouteID(), doc)
	}

	return sendDocument(c, data, "MISS")
}

// RouteTrajectory handles GET /v1/routes/:route_id/trajectory using the
// stored location records of one route.
func (h *Handler) RouteTrajectory(c *fiber.Ctx) error {
	routeID := strings.TrimSpace(c.Params("route_id"))
	if routeID == "" {
		return c.Status(400).JSON(fiber.Map{
			"error": "missing required parameter: route_id",
		})
	}

	removeDuplicates, err := h.removeDuplicates(c)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	if h.Routes == nil {
		return c.Status(503).JSON(fiber.Map{
			"error": "route records are not available: no database configured",
		})
	}

	ctx := c.UserContext()
	key := cache.RouteKey(routeID, removeDuplicates)
	if data := h.cached(ctx, key); data != nil {
		if c.QueryBool("publish") {
			h.publishCached(routeID, data)
		}
		return sendDocument(c, data, "HIT")
	}

	rows, err := h.Routes(routeID).ReadRows(ctx)
	if err != nil {
		return sourceError(c, err)
	}

	doc := h.run(rows, removeDuplicates)
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	h.store(ctx, key, data)

	if c.QueryBool("publish") {
		h.publish(routeID, doc)
	}

	return sendDocument(c, data, "MISS")
}

// Health handles the /health endpoint
func (h *Handler) Health(c *fiber.Ctx) error {
	ctx := c.UserContext()

	checks := fiber.Map{}
	healthy := true
	for name, check := range h.Checks {
		if err := check(ctx); err != nil {
			checks[name] = err.Error()
			healthy = false
			continue
		}
		checks[name] = "ok"
	}

	status := "healthy"
	httpStatus := 200
	if !healthy {
		status = "unhealthy"
		httpStatus = 503
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status": status,
		"checks": checks,
	})
}

func (h *Handler) run(rows []models.RawRow, removeDuplicates bool) *format.Document {
	result := pipeline.Run(rows, pipeline.Options{
		RemoveDuplicates: removeDuplicates,
		Workers:          h.Workers,
		Metrics:          h.Metrics,
	})
	return format.NewDocument(result.Trajectory, result.Diagnostics)
}

// removeDuplicates reads the query flag, falling back to the configured default
func (h *Handler) removeDuplicates(c *fiber.Ctx) (bool, error) {
	raw := c.Query("remove_duplicates")
	if raw == "" {
		return h.RemoveDuplicates, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid remove_duplicates: %q", raw)
	}
	return v, nil
}

// cached returns the stored document, or nil. Cache errors count as misses.
func (h *Handler) cached(ctx context.Context, key string) []byte {
	if h.Cache == nil {
		return nil
	}
	data, err := h.Cache.Get(ctx, key)
	if err != nil {
		log.WithError(err).Warn("Cache lookup failed")
	}
	if h.Metrics != nil {
		if data != nil {
			h.Metrics.CacheHitInc()
		} else {
			h.Metrics.CacheMissInc()
		}
	}
	return data
}

func (h *Handler) store(ctx context.Context, key string, data []byte) {
	if h.Cache == nil {
		return
	}
	if err := h.Cache.Set(ctx, key, data); err != nil {
		log.WithError(err).Warn("Failed to cache trajectory")
	}
}

func (h *Handler) publish(routeID string, doc *format.Document) {
	if h.Publisher == nil || doc.Empty {
		return
	}
	if err := h.Publisher.PublishDocument(routeID, doc); err != nil {
		log.WithError(err).Warn("Failed to publish trajectory")
	}
}

// publishCached publishes a document served from cache. An empty routeID is
// taken from the document itself.
func (h *Handler) publishCached(routeID string, data []byte) {
	if h.Publisher == nil {
		return
	}
	var doc format.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		log.WithError(err).Warn("Cached trajectory is not a valid document")
		return
	}
	if routeID == "" {
		routeID = doc.RouteID()
	}
	h.publish(routeID, &doc)
}

func readUpload(c *fiber.Ctx) ([]byte, error) {
	if !strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		// fasthttp reuses the body buffer after the handler returns
		return append([]byte(nil), c.Body()...), nil
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return nil, fmt.Errorf("missing multipart field \"file\"")
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	return io.ReadAll(f)
}

func sendDocument(c *fiber.Ctx, data []byte, cacheStatus string) error {
	c.Set("X-Cache", cacheStatus)
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(data)
}

// sourceError maps data source failures onto HTTP statuses
func sourceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, source.ErrEmptySource), errors.Is(err, source.ErrMissingColumn):
		return c.Status(400).JSON(fiber.Map{
			"error": err.Error(),
		})
	case errors.Is(err, source.ErrUnavailable):
		log.WithError(err).Error("Data source unavailable")
		return c.Status(503).JSON(fiber.Map{
			"error": "data source unavailable",
		})
	default:
		log.WithError(err).Error("Unexpected data source failure")
		return c.Status(500).JSON(fiber.Map{
			"error": "internal server error",
		})
	}
}
