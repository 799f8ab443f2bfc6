package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	log "github.com/sirupsen/logrus"

	"github.com/passbi/trackmap/internal/api"
	"github.com/passbi/trackmap/internal/cache"
	"github.com/passbi/trackmap/internal/config"
	"github.com/passbi/trackmap/internal/db"
	"github.com/passbi/trackmap/internal/logging"
	"github.com/passbi/trackmap/internal/metrics"
	"github.com/passbi/trackmap/internal/middleware"
	"github.com/passbi/trackmap/internal/publisher"
	"github.com/passbi/trackmap/internal/source"
)

func main() {
	configPath := flag.String("c", "", "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := logging.Init(cfg.LogLevel, cfg.LogFile, cfg.LogMaxAgeDays); err != nil {
		log.Fatalf("Failed to configure logging: %v", err)
	}

	log.Info("Starting trackmap API server...")

	collector := metrics.NewCollector()
	handler := &api.Handler{
		RemoveDuplicates: cfg.RemoveDuplicates,
		Workers:          cfg.ParseWorkers,
		Metrics:          collector,
		Checks:           map[string]api.HealthCheck{},
	}

	// Database is optional: without it only uploads are served
	if dbCfg := db.LoadConfigFromEnv(); dbCfg.Enabled() {
		pool, err := db.Connect(context.Background(), dbCfg)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer pool.Close()
		log.Info("Database connection established")

		handler.Routes = func(routeID string) source.Source {
			return source.NewPostgres(pool, routeID)
		}
		handler.Checks["database"] = func(ctx context.Context) error {
			return db.HealthCheck(ctx, pool)
		}
	}

	var counter middleware.Counter
	if cfg.CacheEnabled {
		rdb, err := cache.GetClient()
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer cache.Close()
		log.Info("Redis connection established")

		store := cache.NewStore(rdb, cfg.CacheTTL)
		handler.Cache = store
		handler.Checks["redis"] = store.HealthCheck
		counter = middleware.NewRedisCounter(rdb)
	}

	if cfg.NATSURL != "" {
		pub, err := publisher.NewNATSPublisher(cfg.NATSURL, cfg.NATSSubject, collector)
		if err != nil {
			log.Fatalf("Failed to connect to NATS: %v", err)
		}
		defer pub.Close()
		log.Infof("Publishing trajectories to %s.<route_id>", cfg.NATSSubject)
		handler.Publisher = pub
	}

	app := fiber.New(fiber.Config{
		AppName:      "trackmap API",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		BodyLimit:    64 * 1024 * 1024,
		ErrorHandler: customErrorHandler,
	})

	app.Use(recover.New())
	app.Use(middleware.RequestLogMiddleware(collector))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))

	if cfg.MetricsAddr != "" {
		srv := collector.Serve(cfg.MetricsAddr)
		defer srv.Close()
	} else {
		app.Get("/metrics", adaptor.HTTPHandler(collector.Handler()))
	}

	if counter != nil {
		app.Use("/v1", middleware.RateLimitMiddleware(counter, middleware.Limits{
			PerSecond: cfg.RateLimitPerSecond,
			PerDay:    cfg.RateLimitPerDay,
		}))
	}

	handler.Register(app)

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(404).JSON(fiber.Map{
			"error": "endpoint not found",
		})
	})

	addr := fmt.Sprintf(":%s", cfg.APIPort)

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		log.Info("Shutting down gracefully...")
		if err := app.Shutdown(); err != nil {
			log.Errorf("Error during shutdown: %v", err)
		}
	}()

	log.Infof("Server listening on http://localhost%s", addr)
	log.Infof("Upload: curl --data-binary @records.csv http://localhost%s/v1/trajectories", addr)

	if err := app.Listen(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// customErrorHandler handles errors returned from handlers
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	log.Errorf("Error: %v", err)

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}
