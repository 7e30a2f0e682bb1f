// Package config loads runtime settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"

	StorageR2  = "r2"
	StorageGCS = "gcs"
)

type Config struct {
	Environment    string
	Port           string
	LogLevel       string
	AllowedOrigins []string

	DatabaseDriver string
	MongoURI       string
	DatabaseName   string
	PostgresDSN    string

	AccessTokenSecret  string
	RefreshTokenSecret string
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration

	CookieSecure bool
	CookieDomain string

	StorageDriver     string
	R2Bucket          string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2Endpoint        string
	R2PublicDomain    string
	GCSBucket         string
	GCSCredentials    string

	MaxUploadSizeMB       int
	AllowedFileExtensions []string
	AllowedFileMimeTypes  []string
}

// Load reads .env (when present) and the environment, applies defaults and
// validates the result.
func Load() (Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := Config{
		Environment:    getEnv("APP_ENV", "development"),
		Port:           getEnv("PORT", "8080"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		AllowedOrigins: getList("ALLOWED_ORIGINS", nil),

		DatabaseDriver: strings.ToLower(getEnv("DATABASE_DRIVER", DriverMongo)),
		MongoURI:       os.Getenv("MONGODB_URI"),
		DatabaseName:   getEnv("DATABASE_NAME", "sahoauth"),
		PostgresDSN:    os.Getenv("POSTGRES_DSN"),

		AccessTokenSecret:  os.Getenv("ACCESS_TOKEN_SECRET"),
		RefreshTokenSecret: os.Getenv("REFRESH_TOKEN_SECRET"),
		AccessTokenTTL:     getDuration("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenTTL:    getDuration("REFRESH_TOKEN_TTL", 10*24*time.Hour),

		CookieSecure: getBool("COOKIE_SECURE", true),
		CookieDomain: os.Getenv("COOKIE_DOMAIN"),

		StorageDriver:     strings.ToLower(getEnv("STORAGE_DRIVER", StorageR2)),
		R2Bucket:          os.Getenv("R2_BUCKET"),
		R2AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
		R2SecretAccessKey: os.Getenv("R2_SECRET_ACCESS_KEY"),
		R2Endpoint:        os.Getenv("R2_ENDPOINT"),
		R2PublicDomain:    os.Getenv("R2_PUBLIC_DOMAIN"),
		GCSBucket:         os.Getenv("GCS_BUCKET"),
		GCSCredentials:    os.Getenv("CREDENTIALS_FILE_LOCATION"),

		MaxUploadSizeMB:       getInt("MAX_UPLOAD_SIZE_MB", 5),
		AllowedFileExtensions: getList("ALLOWED_FILE_EXTENSIONS", []string{".jpg", ".jpeg", ".png", ".webp", ".gif"}),
		AllowedFileMimeTypes:  getList("ALLOWED_FILE_MIME_TYPES", []string{"image/jpeg", "image/png", "image/webp", "image/gif"}),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error

	if c.AccessTokenSecret == "" || c.RefreshTokenSecret == "" {
		errs = append(errs, errors.New("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET are required"))
	} else if c.AccessTokenSecret == c.RefreshTokenSecret {
		errs = append(errs, errors.New("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must differ"))
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		errs = append(errs, errors.New("token TTLs must be positive"))
	}

	switch c.DatabaseDriver {
	case DriverMongo:
		if c.MongoURI == "" {
			errs = append(errs, errors.New("MONGODB_URI is required for the mongo driver"))
		}
	case DriverPostgres:
		if c.PostgresDSN == "" {
			errs = append(errs, errors.New("POSTGRES_DSN is required for the postgres driver"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown DATABASE_DRIVER %q", c.DatabaseDriver))
	}

	switch c.StorageDriver {
	case StorageR2:
		if c.R2Bucket == "" || c.R2AccessKeyID == "" || c.R2SecretAccessKey == "" || c.R2Endpoint == "" {
			errs = append(errs, errors.New("missing R2 env vars (R2_BUCKET, R2_ACCESS_KEY_ID, R2_SECRET_ACCESS_KEY, R2_ENDPOINT)"))
		}
	case StorageGCS:
		if c.GCSBucket == "" {
			errs = append(errs, errors.New("GCS_BUCKET is required for the gcs storage driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver))
	}

	return errors.Join(errs...)
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func getBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return def
}

func getList(key string, def []string) []string {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	out := make([]string, 0)
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
