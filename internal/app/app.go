package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lifeguard-backend/internal/cache"
	"lifeguard-backend/internal/config"
	"lifeguard-backend/internal/db"
	"lifeguard-backend/internal/handlers"
	"lifeguard-backend/internal/models"
	"lifeguard-backend/internal/report"
	"lifeguard-backend/internal/services"
	"lifeguard-backend/internal/storage"
	"lifeguard-backend/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

// Version is stamped at build time with -ldflags "-X lifeguard-backend/internal/app.Version=..."
var Version = "dev"

const maxPhotoBytes = 10 * 1024 * 1024

// Store is the persistence surface shared by db.PostgresStore and db.SQLiteStore
type Store interface {
	services.StationStore
	services.UserStore
	services.PhotoLogStore
	services.PreventionStore
	UpsertStation(ctx context.Context, st models.Station) error
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

type Deps struct {
	Config       *config.Config
	Store        Store
	Objects      storage.ObjectStore
	StationCache services.StationCache // nil disables caching
	UploadDir    string                // served at /uploads when set
	Logger       *slog.Logger
}

// NewServer builds the services and the fiber app with every route mounted
func NewServer(d Deps) *fiber.App {
	cfg := d.Config
	logger := d.Logger

	hub := handlers.NewFeedHub(logger)
	stationService := services.NewStationService(d.Store, d.StationCache, logger)
	userService := services.NewUserService(d.Store, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, logger)
	preventionService := services.NewPreventionService(d.Store, hub, logger)
	checkInService := services.NewCheckInService(stationService, d.Store, d.Objects, hub, services.CheckInConfig{
		ThresholdMeters:    cfg.CheckIn.ThresholdMeters,
		GeolocationTimeout: cfg.CheckIn.GeolocationTimeout,
		ResetDelay:         cfg.CheckIn.ResetDelay,
	}, logger)

	app := fiber.New(fiber.Config{
		AppName:      "lifeguard-backend",
		BodyLimit:    maxPhotoBytes,
		UnescapePath: true,
		ErrorHandler: handlers.ErrorHandler,
	})

	// Middleware
	app.Use(fiberlogger.New())
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.App.FrontendURL,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Session-ID",
	}))

	if d.UploadDir != "" {
		app.Static("/uploads", d.UploadDir)
	}

	limiter := handlers.NewIPRateLimiter(rate.Limit(cfg.RateLimit.RequestsPerSecond), cfg.RateLimit.Burst)
	rateLimited := handlers.RateLimitMiddleware(limiter)
	requireAuth := handlers.AuthMiddleware(userService)

	// Routes
	api := app.Group("/api")

	api.Post("/register", rateLimited, handlers.RegisterHandler(userService, logger))
	api.Post("/login", rateLimited, handlers.LoginHandler(userService, logger))

	api.Get("/stations", handlers.ListStationsHandler(stationService, logger))
	api.Get("/postos", handlers.ListStationsHandler(stationService, logger))
	api.Get("/stations/:name/proximity", handlers.ProximityHandler(checkInService, logger))

	api.Post("/checkins", handlers.OptionalAuth(userService), handlers.CheckInHandler(checkInService, logger))
	api.Get("/checkins", handlers.RecentCheckInsHandler(checkInService, logger))

	api.Post("/prevention", handlers.SubmitPreventionHandler(preventionService, logger))

	// Staff only
	api.Get("/users", requireAuth, handlers.ListUsersHandler(userService, logger))
	api.Get("/prevention/export", requireAuth, handlers.ExportPreventionHandler(preventionService, logger))

	// Health Check
	app.Get("/health", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := d.Store.Ping(ctx); err != nil {
			logger.Error("health check failed", "error", err)
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded"})
		}
		return c.JSON(fiber.Map{"status": "ok", "feed_clients": hub.Count()})
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	app.Use("/ws", handlers.WSUpgradeMiddleware)
	app.Get("/ws/feed", handlers.FeedHandler(hub))

	return app
}

func Run() error {
	if err := utils.LoadEnv(); err != nil {
		slog.Warn(".env file not found")
	}
	cfg := config.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := report.SetupSentry(cfg.SentryDSN, cfg.App.Env); err != nil {
		logger.Warn("sentry disabled", "error", err)
	}
	report.ConfigureScope(cfg.App.Env, Version)
	defer report.FlushSentry()

	ctx := context.Background()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Migrate(ctx); err != nil {
		return err
	}
	if cfg.DB.SeedFile != "" {
		n, err := seedStations(ctx, store, cfg.DB.SeedFile)
		if err != nil {
			return err
		}
		logger.Info("stations seeded", "count", n, "file", cfg.DB.SeedFile)
	}

	objects, uploadDir, err := openObjectStore(ctx, cfg)
	if err != nil {
		return err
	}

	var stationCache services.StationCache
	if cfg.Redis.Addr != "" {
		client, err := cache.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Warn("redis unavailable, station cache disabled", "error", err)
		} else {
			defer client.Close()
			stationCache = cache.NewStationCache(cache.NewRedisRepository(client), cfg.Redis.StationTTL)
		}
	}

	app := NewServer(Deps{
		Config:       cfg,
		Store:        store,
		Objects:      objects,
		StationCache: stationCache,
		UploadDir:    uploadDir,
		Logger:       logger,
	})

	// Start Server
	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(":" + cfg.App.Port)
	}()

	// Graceful Shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server stopped: %w", err)
	case <-sig:
	}

	logger.Info("Gracefully shutting down...")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		return err
	}
	logger.Info("Server shutdown complete")
	return nil
}

func openStore(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.DB.Driver {
	case "postgres":
		pool, err := db.InitDB(ctx, cfg.DB.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		return db.NewPostgresStore(pool), nil
	case "sqlite":
		conn, err := db.OpenSQLite(cfg.DB.SQLitePath)
		if err != nil {
			return nil, err
		}
		return db.NewSQLiteStore(conn), nil
	}
	return nil, fmt.Errorf("unknown DB_DRIVER %q", cfg.DB.Driver)
}

// openObjectStore picks MinIO when an endpoint is configured and the local
// upload directory otherwise. uploadDir is empty for MinIO.
func openObjectStore(ctx context.Context, cfg *config.Config) (objects storage.ObjectStore, uploadDir string, err error) {
	if cfg.Storage.MinioEndpoint != "" {
		store, err := storage.NewMinioStore(ctx, storage.MinioConfig{
			Endpoint:      cfg.Storage.MinioEndpoint,
			AccessKey:     cfg.Storage.MinioAccessKey,
			SecretKey:     cfg.Storage.MinioSecretKey,
			UseSSL:        cfg.Storage.MinioUseSSL,
			Bucket:        cfg.Storage.Bucket,
			PublicBaseURL: cfg.Storage.PublicBaseURL,
		})
		if err != nil {
			return nil, "", err
		}
		return store, "", nil
	}

	baseURL := cfg.Storage.PublicBaseURL
	if baseURL == "" {
		baseURL = cfg.App.BaseURL
	}
	store, err := storage.NewDiskStore(cfg.Storage.UploadDir, cfg.Storage.Bucket, baseURL)
	if err != nil {
		return nil, "", err
	}
	return store, cfg.Storage.UploadDir, nil
}

// seedStations upserts the stations listed in a JSON file
func seedStations(ctx context.Context, store Store, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading station seed: %w", err)
	}
	var stations []models.Station
	if err := json.Unmarshal(data, &stations); err != nil {
		return 0, fmt.Errorf("parsing station seed: %w", err)
	}
	for _, st := range stations {
		if err := store.UpsertStation(ctx, st); err != nil {
			return 0, fmt.Errorf("seeding station %q: %w", st.Name, err)
		}
	}
	return len(stations), nil
}
