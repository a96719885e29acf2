package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/etag"
	fiberLogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/google/uuid"
	"github.com/nijaru/yt-enrich/config"
	"github.com/nijaru/yt-enrich/events"
	"github.com/nijaru/yt-enrich/handlers"
	"github.com/nijaru/yt-enrich/llm"
	"github.com/nijaru/yt-enrich/logger"
	"github.com/nijaru/yt-enrich/middleware"
	"github.com/nijaru/yt-enrich/repository/sqlite"
	"github.com/nijaru/yt-enrich/services/enrich"
	"github.com/nijaru/yt-enrich/services/user"
	"github.com/nijaru/yt-enrich/storage"
	"github.com/nijaru/yt-enrich/transcript"
	"github.com/nijaru/yt-enrich/webhook"
	"github.com/nijaru/yt-enrich/workflow"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logging
	if err := logger.Setup(cfg.LogDir, cfg.Debug); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	requestLogConfig, err := logger.NewRequestLogger(cfg.LogDir)
	if err != nil {
		log.Fatalf("Failed to initialize request logger: %v", err)
	}

	// Initialize database
	db, err := sqlite.InitDB(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	videoRepo := sqlite.NewVideoRepository(db)
	userRepo := sqlite.NewUserRepository(db)
	jobRepo := sqlite.NewJobRepository(db)

	// Initialize services
	fetcher := transcript.NewFetcher(transcript.Config{
		BaseURL: cfg.Transcript.BaseURL,
		Timeout: cfg.Transcript.Timeout,
	})

	generator := llm.NewClient(llm.Config{
		APIKey:            cfg.LLM.APIKey,
		BaseURL:           cfg.LLM.BaseURL,
		Model:             cfg.LLM.Model,
		Timeout:           cfg.LLM.Timeout,
		RequestsPerMinute: cfg.LLM.RequestsPerMinute,
	})

	var archive enrich.Archiver
	var transcripts handlers.TranscriptReader
	if cfg.Archive.Enabled {
		archiveClient, err := storage.NewArchiveClient(storage.ArchiveConfig{
			AccessKey: cfg.Archive.AccessKey,
			SecretKey: cfg.Archive.SecretKey,
			Region:    cfg.Archive.Region,
			Endpoint:  cfg.Archive.Endpoint,
			Bucket:    cfg.Archive.Bucket,
		})
		if err != nil {
			log.Fatalf("Failed to initialize transcript archive: %v", err)
		}
		archive = archiveClient
		transcripts = archiveClient
	}

	enrichService := enrich.NewService(videoRepo, fetcher, generator, archive)
	userService := user.NewService(userRepo)

	// Start the workflow runner
	runner := workflow.NewRunner(jobRepo, enrichService, workflow.Config{
		Workers:      cfg.Workflow.Workers,
		PollInterval: cfg.Workflow.PollInterval,
		LeaseTimeout: cfg.Workflow.LeaseTimeout,
		MaxAttempts:  cfg.Workflow.MaxAttempts,
		BackoffBase:  cfg.Workflow.BackoffBase,
		BackoffMax:   cfg.Workflow.BackoffMax,
	})
	runner.Start(context.Background())
	defer runner.Stop()

	// Start the upload-event consumer
	var consumer *events.Consumer
	if cfg.Events.Enabled {
		consumer = events.NewConsumer(events.Config{
			URL:   cfg.Events.URL,
			Queue: cfg.Events.Queue,
		}, jobRepo)
		if err := consumer.Start(context.Background()); err != nil {
			log.Fatalf("Failed to start event consumer: %v", err)
		}
		defer consumer.Close()
	}

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ReadTimeout:           cfg.ReadTimeout,
		WriteTimeout:          cfg.WriteTimeout,
		IdleTimeout:           cfg.IdleTimeout,
		ErrorHandler:          handlers.ErrorHandler,
		DisableStartupMessage: !cfg.Debug,
		StrictRouting:         true,
		CaseSensitive:         true,
		AppName:               "yt-enrich " + cfg.Version,
	})

	setupMiddleware(app, cfg, requestLogConfig)

	// Setup routes
	videoHandler := handlers.NewVideoHandler(videoRepo, jobRepo, transcripts)
	webhookHandler := handlers.NewWebhookHandler(
		webhook.NewVerifier(cfg.Webhook.SigningSecret),
		userService,
	)

	// Webhook ingest authenticates by signature, not bearer token
	app.Post("/api/users/webhook", webhookHandler.Handle)

	// Authenticated API routes
	api := app.Group("/api", middleware.Auth(cfg.Auth.JWTSecret, userService))
	if cfg.Middleware.EnableRateLimit && cfg.RateLimit.Enabled {
		api.Use(middleware.RateLimitPerUser(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.BurstSize))
	}
	api.Post("/videos/workflows/title", videoHandler.TriggerTitle)
	api.Post("/videos/workflows/description", videoHandler.TriggerDescription)
	api.Get("/videos/:id", videoHandler.GetVideo)
	api.Get("/videos/:id/transcript", videoHandler.GetTranscript)
	api.Get("/jobs/:id", videoHandler.GetJob)

	// Health check and metrics
	app.Get("/health", handlers.HealthCheck)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Graceful shutdown setup
	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-shutdownChan
		logrus.Info("Shutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if consumer != nil {
			consumer.Close()
		}
		runner.Stop()

		if err := app.ShutdownWithContext(ctx); err != nil {
			logrus.WithError(err).Error("Server shutdown error")
		}
	}()

	// Start server
	serverAddr := ":" + cfg.ServerPort
	if cfg.Debug {
		log.Printf("Server starting on http://localhost%s", serverAddr)
	}

	if err := app.Listen(serverAddr); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}

func setupMiddleware(app *fiber.App, cfg *config.Config, logConfig *fiberLogger.Config) {
	if cfg.Middleware.EnableRecover {
		app.Use(recover.New(recover.Config{
			EnableStackTrace: cfg.Debug,
		}))
	}

	if cfg.Middleware.EnableRequestID {
		app.Use(requestid.New(requestid.Config{
			Header: "X-Request-ID",
			Generator: func() string {
				return uuid.New().String()
			},
		}))
	}

	if cfg.Middleware.EnableLogger {
		app.Use(fiberLogger.New(*logConfig))
	}

	if cfg.Middleware.EnableTimeout {
		app.Use(timeout.New(func(c *fiber.Ctx) error {
			return c.Next()
		}, cfg.RequestTimeout))
	}

	if cfg.Middleware.EnableCORS && cfg.CORS.Enabled {
		app.Use(cors.New(cors.Config{
			AllowOrigins:     strings.Join(cfg.CORS.AllowedOrigins, ","),
			AllowMethods:     strings.Join(cfg.CORS.AllowedMethods, ","),
			AllowHeaders:     strings.Join(cfg.CORS.AllowedHeaders, ","),
			ExposeHeaders:    strings.Join(cfg.CORS.ExposedHeaders, ","),
			AllowCredentials: cfg.CORS.AllowCredentials,
			MaxAge:           cfg.CORS.MaxAge,
		}))
	}

	if cfg.Middleware.EnableCompress {
		app.Use(compress.New(compress.Config{
			Level: compress.LevelDefault,
		}))
	}

	if cfg.Middleware.EnableETag {
		app.Use(etag.New())
	}
}
