package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/swagger"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"lorewiki/docs"
	"lorewiki/internal/config"
	"lorewiki/internal/database"
	"lorewiki/internal/database/migration"
	handlers "lorewiki/internal/http/handler"
	"lorewiki/internal/http/middleware"
	"lorewiki/internal/logging"
	"lorewiki/internal/otel"
	"lorewiki/internal/repository"
	"lorewiki/internal/repository/jsonfile"
	"lorewiki/internal/repository/postgres"
	"lorewiki/internal/service"
	"lorewiki/internal/storage"
)

// @title Lore Wiki API
// @version 1.0
// @BasePath /
func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()
	log := logging.New(os.Stdout, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Init(ctx, logging.Component(log, "otel"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize tracing")
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(sctx)
	}()

	store, closeStore, err := openStore(ctx, cfg, logging.Component(log, "store"))
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Store.Backend).Msg("failed to open entry store")
	}
	defer closeStore()

	blobs, err := openBlobs(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Blob.Backend).Msg("failed to open blob area")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := service.NewMetrics(reg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to register service metrics")
	}
	promMiddleware, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to register http metrics")
	}

	coll := service.NewCollection(store, metrics)
	entrySvc := service.NewEntryService(coll, blobs, cfg.CascadeMediaDelete, logging.Component(log, "entries"))
	mediaSvc := service.NewMediaService(coll, blobs, service.MediaConfig{
		MaxUploadBytes: cfg.Blob.MaxUploadBytes,
		URLPrefix:      cfg.Blob.URLPrefix,
		Presign:        cfg.Blob.PresignDownloads,
		PresignExpiry:  time.Duration(cfg.Blob.PresignExpirySec) * time.Second,
	}, metrics, logging.Component(log, "media"))

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
		// Leave headroom over the upload cap so oversized files reach the
		// service and get the same error body as every other failure.
		BodyLimit:             int(cfg.Blob.MaxUploadBytes) + 1<<20,
		UnescapePath:          true,
		DisableStartupMessage: true,
	})

	app.Use(middleware.RequestID())
	app.Use(otelfiber.Middleware())
	app.Use(middleware.Logger(logging.Component(log, "http")))
	app.Use(promMiddleware.Handler())
	app.Use(cors.New())

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	handlers.RegisterRoutes(app, coll, entrySvc, mediaSvc)

	// Swagger UI with dynamic host and scheme
	app.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.Split(proto, ",")[0]
		}

		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	})

	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(sctx); err != nil {
			log.Error().Err(err).Msg("graceful shutdown failed")
		}
	}()

	addr := ":" + cfg.Port
	log.Info().
		Str("addr", addr).
		Str("store", cfg.Store.Backend).
		Str("blobs", cfg.Blob.Backend).
		Msg("server listening")
	if err := app.Listen(addr); err != nil {
		log.Fatal().Err(err).Msg("failed to start server")
	}
}

func openStore(ctx context.Context, cfg *config.AppConfig, log zerolog.Logger) (repository.EntryStore, func(), error) {
	switch cfg.Store.Backend {
	case config.StoreFile:
		s, err := jsonfile.NewEntryFile(cfg.Store.DataFile, log)
		return s, func() {}, err
	case config.StorePostgres:
		db, err := database.Open(ctx, cfg.Database, log)
		if err != nil {
			return nil, nil, err
		}
		if err := migration.EnsureMigrated(ctx, db, log, cfg.Database.Host); err != nil {
			db.Close()
			return nil, nil, err
		}
		return postgres.NewEntryPostgres(db, log), closeDB(db, log), nil
	default:
		return nil, nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.Store.Backend)
	}
}

func closeDB(db *sql.DB, log zerolog.Logger) func() {
	return func() {
		if err := db.Close(); err != nil {
			log.Warn().Err(err).Msg("closing database")
		}
	}
}

func openBlobs(cfg *config.AppConfig) (storage.Storage, error) {
	switch cfg.Blob.Backend {
	case config.BlobDisk:
		return storage.NewDisk(cfg.Blob.UploadsDir)
	case config.BlobMinIO:
		return storage.NewMinIO(cfg.MinIO)
	default:
		return nil, fmt.Errorf("unknown BLOB_BACKEND %q", cfg.Blob.Backend)
	}
}
