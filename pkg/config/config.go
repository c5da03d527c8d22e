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

	Database     DatabaseConfig
	Redis        RedisConfig
	JWT          JWTConfig
	CORS         CORSConfig
	Log          LogConfig
	Schedule     ScheduleConfig
	Cache        CacheConfig
	Interactions InteractionConfig
	Export       ExportConfig
}

type DatabaseConfig struct {
	Enabled      bool
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
	Issuer     string
	Expiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// ScheduleConfig describes where the timetable CSV comes from and how it is laid out.
type ScheduleConfig struct {
	SourceName      string
	CandidateDirs   []string
	CatalogPath     string
	DefaultCapacity int
	BaseHour        int
	Slots           int
	MinFields       int
	ReloadInterval  time.Duration
	ReloadWorkers   int
	ReloadRetries   int
	ReloadDelay     time.Duration
}

// CacheConfig toggles the Redis cache for rendered room payloads.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

// InteractionConfig bounds the in-memory interaction log.
type InteractionConfig struct {
	Cooldown  time.Duration
	Retention int
	Recent    int
}

// ExportConfig controls published export snapshots and their signed download links.
type ExportConfig struct {
	Dir             string
	Secret          string
	LinkTTL         time.Duration
	CleanupInterval time.Duration
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

	cfg.Database = DatabaseConfig{
		Enabled:      v.GetBool("ENABLE_DB_SOURCE"),
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
		Issuer:     v.GetString("JWT_ISSUER"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Schedule = ScheduleConfig{
		SourceName:      v.GetString("SCHEDULE_SOURCE_NAME"),
		CandidateDirs:   splitAndTrim(v.GetString("SCHEDULE_CANDIDATE_DIRS")),
		CatalogPath:     v.GetString("SCHEDULE_CATALOG_PATH"),
		DefaultCapacity: v.GetInt("SCHEDULE_DEFAULT_CAPACITY"),
		BaseHour:        v.GetInt("SCHEDULE_BASE_HOUR"),
		Slots:           v.GetInt("SCHEDULE_SLOTS"),
		MinFields:       v.GetInt("SCHEDULE_MIN_FIELDS"),
		ReloadInterval:  parseDuration(v.GetString("SCHEDULE_RELOAD_INTERVAL"), 0),
		ReloadWorkers:   v.GetInt("SCHEDULE_RELOAD_WORKERS"),
		ReloadRetries:   v.GetInt("SCHEDULE_RELOAD_RETRIES"),
		ReloadDelay:     parseDuration(v.GetString("SCHEDULE_RELOAD_RETRY_DELAY"), 2*time.Second),
	}

	cfg.Cache = CacheConfig{
		Enabled: v.GetBool("ENABLE_CACHE"),
		TTL:     parseDuration(v.GetString("CACHE_TTL"), 10*time.Minute),
	}

	cfg.Interactions = InteractionConfig{
		Cooldown:  parseDuration(v.GetString("INTERACTION_COOLDOWN"), 500*time.Millisecond),
		Retention: v.GetInt("INTERACTION_RETENTION"),
		Recent:    v.GetInt("INTERACTION_RECENT"),
	}

	cfg.Export = ExportConfig{
		Dir:             v.GetString("EXPORT_DIR"),
		Secret:          v.GetString("EXPORT_SIGNING_SECRET"),
		LinkTTL:         parseDuration(v.GetString("EXPORT_LINK_TTL"), time.Hour),
		CleanupInterval: parseDuration(v.GetString("EXPORT_CLEANUP_INTERVAL"), 15*time.Minute),
	}
	if cfg.Export.Secret == "" {
		cfg.Export.Secret = cfg.JWT.Secret
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("ENABLE_DB_SOURCE", false)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "room_schedule")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 5)
	v.SetDefault("DB_MAX_IDLE_CONNS", 2)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "sma-room-schedule")
	v.SetDefault("JWT_EXPIRATION", "24h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SCHEDULE_SOURCE_NAME", "students.csv")
	v.SetDefault("SCHEDULE_CANDIDATE_DIRS", "./StreamingAssets/Prof,./data/Prof,./data")
	v.SetDefault("SCHEDULE_CATALOG_PATH", "")
	v.SetDefault("SCHEDULE_DEFAULT_CAPACITY", 30)
	v.SetDefault("SCHEDULE_BASE_HOUR", 13)
	v.SetDefault("SCHEDULE_SLOTS", 5)
	v.SetDefault("SCHEDULE_MIN_FIELDS", 13)
	v.SetDefault("SCHEDULE_RELOAD_INTERVAL", "")
	v.SetDefault("SCHEDULE_RELOAD_WORKERS", 1)
	v.SetDefault("SCHEDULE_RELOAD_RETRIES", 3)
	v.SetDefault("SCHEDULE_RELOAD_RETRY_DELAY", "2s")

	v.SetDefault("ENABLE_CACHE", false)
	v.SetDefault("CACHE_TTL", "10m")

	v.SetDefault("INTERACTION_COOLDOWN", "500ms")
	v.SetDefault("INTERACTION_RETENTION", 1000)
	v.SetDefault("INTERACTION_RECENT", 20)

	v.SetDefault("EXPORT_DIR", "./exports")
	v.SetDefault("EXPORT_SIGNING_SECRET", "")
	v.SetDefault("EXPORT_LINK_TTL", "1h")
	v.SetDefault("EXPORT_CLEANUP_INTERVAL", "15m")
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
