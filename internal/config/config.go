package config

import (
	"time"

	"lifeguard-backend/internal/utils"
)

type Config struct {
	App struct {
		Env         string
		Port        string
		BaseURL     string
		FrontendURL string
	}
	DB struct {
		Driver     string // "postgres" or "sqlite"
		URL        string
		SQLitePath string
		SeedFile   string // optional JSON array of stations loaded at startup
	}
	Auth struct {
		JWTSecret string
		TokenTTL  time.Duration
	}
	CheckIn struct {
		ThresholdMeters    float64
		GeolocationTimeout time.Duration
		ResetDelay         time.Duration
	}
	Storage struct {
		MinioEndpoint  string
		MinioAccessKey string
		MinioSecretKey string
		MinioUseSSL    bool
		Bucket         string
		PublicBaseURL  string
		UploadDir      string
	}
	Redis struct {
		Addr       string
		Password   string
		DB         int
		StationTTL time.Duration
	}
	RateLimit struct {
		RequestsPerSecond float64
		Burst             int
	}
	SentryDSN string
}

func Load() *Config {
	cfg := &Config{}

	cfg.App.Env = utils.GetEnv("APP_ENV", "development")
	cfg.App.Port = utils.GetEnv("PORT", "3001")
	cfg.App.BaseURL = utils.GetEnv("BASE_URL", "")
	cfg.App.FrontendURL = utils.GetEnv("FRONTEND_URL", "*")

	cfg.DB.Driver = utils.GetEnv("DB_DRIVER", "postgres")
	cfg.DB.URL = utils.GetEnv("DATABASE_URL", "")
	if cfg.DB.URL == "" {
		// Fallback to individual vars
		cfg.DB.URL = "postgres://" + utils.GetEnv("POSTGRES_USER", "postgres") + ":" +
			utils.GetEnv("POSTGRES_PASSWORD", "postgres") + "@" +
			utils.GetEnv("POSTGRES_HOST", "localhost") + ":" +
			utils.GetEnv("POSTGRES_PORT", "5432") + "/" +
			utils.GetEnv("POSTGRES_DB", "lifeguard") + "?sslmode=disable"
	}
	cfg.DB.SQLitePath = utils.GetEnv("SQLITE_PATH", "data/lifeguard.db")
	cfg.DB.SeedFile = utils.GetEnv("SEED_STATIONS_FILE", "")

	cfg.Auth.JWTSecret = utils.GetEnv("JWT_SECRET", "secret")
	cfg.Auth.TokenTTL = utils.GetEnvDuration("JWT_TTL", 72*time.Hour)

	cfg.CheckIn.ThresholdMeters = utils.GetEnvFloat("PROXIMITY_THRESHOLD_METERS", 800)
	cfg.CheckIn.GeolocationTimeout = utils.GetEnvDuration("GEOLOCATION_TIMEOUT", 10*time.Second)
	cfg.CheckIn.ResetDelay = utils.GetEnvDuration("CHECKIN_RESET_DELAY", time.Second)

	cfg.Storage.MinioEndpoint = utils.GetEnv("MINIO_ENDPOINT", "")
	cfg.Storage.MinioAccessKey = utils.GetEnv("MINIO_ACCESS_KEY", "minioadmin")
	cfg.Storage.MinioSecretKey = utils.GetEnv("MINIO_SECRET_KEY", "minioadmin")
	cfg.Storage.MinioUseSSL = utils.GetEnvBool("MINIO_USE_SSL", false)
	cfg.Storage.Bucket = utils.GetEnv("MINIO_BUCKET", "photos")
	cfg.Storage.PublicBaseURL = utils.GetEnv("PUBLIC_BASE_URL", "")
	cfg.Storage.UploadDir = utils.GetEnv("UPLOAD_DIR", "uploads")

	cfg.Redis.Addr = utils.GetEnv("REDIS_ADDR", "")
	cfg.Redis.Password = utils.GetEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = utils.GetEnvInt("REDIS_DB", 0)
	cfg.Redis.StationTTL = utils.GetEnvDuration("STATION_CACHE_TTL", 10*time.Minute)

	cfg.RateLimit.RequestsPerSecond = utils.GetEnvFloat("RATE_LIMIT_RPS", 5)
	cfg.RateLimit.Burst = utils.GetEnvInt("RATE_LIMIT_BURST", 10)

	cfg.SentryDSN = utils.GetEnv("SENTRY_DSN", "")

	return cfg
}
