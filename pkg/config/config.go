package config

import (
	"errors"
	"io/fs"
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
	Timezone  string

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	Cache     CacheConfig
	Finance   FinanceConfig
	Dashboard DashboardConfig
	Uploads   UploadsConfig
	Backups   BackupsConfig
	Metrics   MetricsConfig
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

// CacheConfig toggles the Redis aggregate cache.
type CacheConfig struct {
	Enabled    bool
	DefaultTTL time.Duration
}

// FinanceConfig tunes the finance overview computation.
type FinanceConfig struct {
	CacheTTL          time.Duration
	TrendMonths       int
	TopFormations     int
	InvoiceDueDays    int
	ForecastMonths    int
	UnpaidListLimit   int
	RecentPaymentsMax int
}

// DashboardConfig governs dashboard cache tuning.
type DashboardConfig struct {
	CacheTTL time.Duration
}

// UploadsConfig controls avatar and photo storage.
type UploadsConfig struct {
	Dir              string
	PublicPath       string
	MaxFileSizeBytes int64
	AvatarSize       int
}

// BackupsConfig controls scheduled backups and download links.
type BackupsConfig struct {
	Dir             string
	Schedule        string
	Retention       time.Duration
	SignedURLSecret string
	SignedURLTTL    time.Duration
	Workers         int
	MaxImportBytes  int64
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool
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
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")
	cfg.Timezone = v.GetString("TIMEZONE")

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
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 12*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Cache = CacheConfig{
		Enabled:    v.GetBool("ENABLE_CACHE"),
		DefaultTTL: parseDuration(v.GetString("CACHE_DEFAULT_TTL"), 10*time.Minute),
	}

	cfg.Finance = FinanceConfig{
		CacheTTL:          parseDuration(v.GetString("FINANCE_CACHE_TTL"), 5*time.Minute),
		TrendMonths:       positiveInt(v.GetInt("FINANCE_TREND_MONTHS"), 6),
		TopFormations:     positiveInt(v.GetInt("FINANCE_TOP_FORMATIONS"), 5),
		InvoiceDueDays:    positiveInt(v.GetInt("INVOICE_DUE_DAYS"), 30),
		ForecastMonths:    positiveInt(v.GetInt("FINANCE_FORECAST_MONTHS"), 3),
		UnpaidListLimit:   positiveInt(v.GetInt("FINANCE_UNPAID_LIMIT"), 10),
		RecentPaymentsMax: positiveInt(v.GetInt("FINANCE_RECENT_PAYMENTS"), 5),
	}

	cfg.Dashboard = DashboardConfig{
		CacheTTL: parseDuration(v.GetString("DASHBOARD_CACHE_TTL"), 2*time.Minute),
	}

	maxUpload := v.GetInt64("UPLOADS_MAX_FILE_SIZE")
	if maxUpload <= 0 {
		maxUpload = 5 * 1024 * 1024
	}
	cfg.Uploads = UploadsConfig{
		Dir:              v.GetString("UPLOADS_DIR"),
		PublicPath:       v.GetString("UPLOADS_PUBLIC_PATH"),
		MaxFileSizeBytes: maxUpload,
		AvatarSize:       positiveInt(v.GetInt("UPLOADS_AVATAR_SIZE"), 256),
	}

	maxImport := v.GetInt64("BACKUP_MAX_IMPORT_SIZE")
	if maxImport <= 0 {
		maxImport = 50 * 1024 * 1024
	}
	cfg.Backups = BackupsConfig{
		Dir:             v.GetString("BACKUP_DIR"),
		Schedule:        v.GetString("BACKUP_SCHEDULE"),
		Retention:       parseDuration(v.GetString("BACKUP_RETENTION"), 30*24*time.Hour),
		SignedURLSecret: v.GetString("BACKUP_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("BACKUP_SIGNED_URL_TTL"), 30*time.Minute),
		Workers:         positiveInt(v.GetInt("BACKUP_WORKERS"), 1),
		MaxImportBytes:  maxImport,
	}

	cfg.Metrics = MetricsConfig{Enabled: v.GetBool("ENABLE_METRICS")}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 3000)
	v.SetDefault("API_PREFIX", "/api")
	v.SetDefault("TIMEZONE", "Africa/Abidjan")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "asmil")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "12h")
	v.SetDefault("JWT_ISSUER", "asmil-api")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENABLE_CACHE", true)
	v.SetDefault("CACHE_DEFAULT_TTL", "10m")
	v.SetDefault("FINANCE_CACHE_TTL", "5m")
	v.SetDefault("FINANCE_TREND_MONTHS", 6)
	v.SetDefault("FINANCE_TOP_FORMATIONS", 5)
	v.SetDefault("FINANCE_FORECAST_MONTHS", 3)
	v.SetDefault("FINANCE_UNPAID_LIMIT", 10)
	v.SetDefault("FINANCE_RECENT_PAYMENTS", 5)
	v.SetDefault("INVOICE_DUE_DAYS", 30)
	v.SetDefault("DASHBOARD_CACHE_TTL", "2m")

	v.SetDefault("UPLOADS_DIR", "./uploads")
	v.SetDefault("UPLOADS_PUBLIC_PATH", "/uploads")
	v.SetDefault("UPLOADS_MAX_FILE_SIZE", 5*1024*1024)
	v.SetDefault("UPLOADS_AVATAR_SIZE", 256)

	v.SetDefault("BACKUP_DIR", "./backups")
	v.SetDefault("BACKUP_SCHEDULE", "0 2 * * *")
	v.SetDefault("BACKUP_RETENTION", "720h")
	v.SetDefault("BACKUP_SIGNED_URL_SECRET", "dev_backup_secret")
	v.SetDefault("BACKUP_SIGNED_URL_TTL", "30m")
	v.SetDefault("BACKUP_WORKERS", 1)
	v.SetDefault("BACKUP_MAX_IMPORT_SIZE", 50*1024*1024)

	v.SetDefault("ENABLE_METRICS", true)
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

func positiveInt(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
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
