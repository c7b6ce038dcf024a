package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Log      LogConfig
	Drive    DriveConfig
	Reports  ReportsConfig
	Cleanup  CleanupConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// DriveConfig points the document-sync layer at the remote store. Everything
// is injected here so the core runs against a mock endpoint in tests.
type DriveConfig struct {
	BaseURL      string
	RootFolder   string
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scope        string

	ChunkSize       int64
	SmallFileLimit  int64
	MaxAttempts     int
	RetryBaseDelay  time.Duration
	DownloadTimeout time.Duration

	// PreserveAnswersOnRename renames question folders in place instead of
	// the legacy delete-and-recreate, keeping submitted answer files.
	PreserveAnswersOnRename bool
	TokenCacheEnabled       bool
}

// ReportsConfig configures completion report exports.
type ReportsConfig struct {
	Enabled         bool
	StorageDir      string
	SignedURLSecret string
	SignedURLTTL    time.Duration
	CleanupInterval time.Duration
}

// CleanupConfig tunes the background remote-tree cleanup queue.
type CleanupConfig struct {
	Workers    int
	MaxRetries int
	RetryDelay time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Drive = DriveConfig{
		BaseURL:                 v.GetString("DRIVE_BASE_URL"),
		RootFolder:              v.GetString("DRIVE_ROOT_FOLDER"),
		TokenURL:                v.GetString("DRIVE_TOKEN_URL"),
		ClientID:                v.GetString("DRIVE_CLIENT_ID"),
		ClientSecret:            v.GetString("DRIVE_CLIENT_SECRET"),
		Scope:                   v.GetString("DRIVE_SCOPE"),
		ChunkSize:               v.GetInt64("DRIVE_CHUNK_SIZE"),
		SmallFileLimit:          v.GetInt64("DRIVE_SMALL_FILE_LIMIT"),
		MaxAttempts:             v.GetInt("DRIVE_MAX_ATTEMPTS"),
		RetryBaseDelay:          parseDuration(v.GetString("DRIVE_RETRY_BASE_DELAY"), time.Second),
		DownloadTimeout:         parseDuration(v.GetString("DRIVE_DOWNLOAD_TIMEOUT"), 30*time.Second),
		PreserveAnswersOnRename: v.GetBool("DRIVE_PRESERVE_ANSWERS_ON_RENAME"),
		TokenCacheEnabled:       v.GetBool("DRIVE_TOKEN_CACHE"),
	}

	cfg.Reports = ReportsConfig{
		Enabled:         v.GetBool("ENABLE_REPORTS"),
		StorageDir:      v.GetString("REPORTS_STORAGE_DIR"),
		SignedURLSecret: v.GetString("REPORTS_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("REPORTS_SIGNED_URL_TTL"), 24*time.Hour),
		CleanupInterval: parseDuration(v.GetString("REPORTS_CLEANUP_INTERVAL"), time.Hour),
	}

	cfg.Cleanup = CleanupConfig{
		Workers:    v.GetInt("CLEANUP_WORKERS"),
		MaxRetries: v.GetInt("CLEANUP_MAX_RETRIES"),
		RetryDelay: parseDuration(v.GetString("CLEANUP_RETRY_DELAY"), 30*time.Second),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "onboarding")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("JWT_ISSUER", "onboarding-api")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("DRIVE_BASE_URL", "")
	v.SetDefault("DRIVE_ROOT_FOLDER", "CLIENTS")
	v.SetDefault("DRIVE_TOKEN_URL", "")
	v.SetDefault("DRIVE_CLIENT_ID", "")
	v.SetDefault("DRIVE_CLIENT_SECRET", "")
	v.SetDefault("DRIVE_SCOPE", "https://graph.microsoft.com/.default")
	v.SetDefault("DRIVE_CHUNK_SIZE", 5*1024*1024)
	v.SetDefault("DRIVE_SMALL_FILE_LIMIT", 4*1024*1024)
	v.SetDefault("DRIVE_MAX_ATTEMPTS", 3)
	v.SetDefault("DRIVE_RETRY_BASE_DELAY", "1s")
	v.SetDefault("DRIVE_DOWNLOAD_TIMEOUT", "30s")
	v.SetDefault("DRIVE_PRESERVE_ANSWERS_ON_RENAME", true)
	v.SetDefault("DRIVE_TOKEN_CACHE", true)

	v.SetDefault("ENABLE_REPORTS", true)
	v.SetDefault("REPORTS_STORAGE_DIR", "./exports")
	v.SetDefault("REPORTS_SIGNED_URL_SECRET", "dev_reports_secret")
	v.SetDefault("REPORTS_SIGNED_URL_TTL", "24h")
	v.SetDefault("REPORTS_CLEANUP_INTERVAL", "1h")

	v.SetDefault("CLEANUP_WORKERS", 1)
	v.SetDefault("CLEANUP_MAX_RETRIES", 3)
	v.SetDefault("CLEANUP_RETRY_DELAY", "30s")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
