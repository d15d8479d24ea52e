package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Storage drivers.
const (
	StorageDriverLocal = "local"
	StorageDriverS3    = "s3"
)

type Config struct {
	Env       string `validate:"required,oneof=development production test"`
	Port      int    `validate:"min=1,max=65535"`
	APIPrefix string `validate:"required"`

	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Log      LogConfig
	Storage  StorageConfig
	EWC      EWCConfig
}

type DatabaseConfig struct {
	Host         string `validate:"required"`
	Port         int    `validate:"min=1,max=65535"`
	User         string `validate:"required"`
	Password     string
	Name         string `validate:"required"`
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	AutoMigrate  bool
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string `validate:"required"`
}

type LogConfig struct {
	Level  string
	Format string `validate:"omitempty,oneof=json console"`
}

// StorageConfig selects the remote file store holding EWC files.
type StorageConfig struct {
	Driver           string `validate:"oneof=local s3"`
	LocalDir         string
	S3Region         string
	S3Endpoint       string
	S3ForcePathStyle bool
}

// EWCConfig drives the EWC Wales import job.
type EWCConfig struct {
	PickupContainer  string `validate:"required"`
	PickupPrefix     string `validate:"required"`
	ArchiveContainer string `validate:"required"`
	ArchivePrefix    string `validate:"required"`
	SchedulerEnabled bool
	Schedule         string `validate:"required"`
	LockTTL          time.Duration
	QtsCutoverDate   time.Time
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
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
		AutoMigrate:  v.GetBool("DB_AUTO_MIGRATE"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{Secret: v.GetString("JWT_SECRET")}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Storage = StorageConfig{
		Driver:           strings.ToLower(v.GetString("STORAGE_DRIVER")),
		LocalDir:         v.GetString("STORAGE_LOCAL_DIR"),
		S3Region:         v.GetString("S3_REGION"),
		S3Endpoint:       v.GetString("S3_ENDPOINT"),
		S3ForcePathStyle: v.GetBool("S3_FORCE_PATH_STYLE"),
	}

	cfg.EWC = EWCConfig{
		PickupContainer:  v.GetString("EWC_PICKUP_CONTAINER"),
		PickupPrefix:     v.GetString("EWC_PICKUP_PREFIX"),
		ArchiveContainer: v.GetString("EWC_ARCHIVE_CONTAINER"),
		ArchivePrefix:    v.GetString("EWC_ARCHIVE_PREFIX"),
		SchedulerEnabled: v.GetBool("EWC_SCHEDULER_ENABLED"),
		Schedule:         v.GetString("EWC_SCHEDULE"),
		LockTTL:          parseDuration(v.GetString("EWC_LOCK_TTL"), 2*time.Hour),
		QtsCutoverDate:   parseDate(v.GetString("EWC_QTS_CUTOVER_DATE"), time.Date(2023, time.February, 1, 0, 0, 0, 0, time.UTC)),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks required settings using struct tags.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Storage.Driver == StorageDriverS3 && c.Storage.S3Region == "" {
		return fmt.Errorf("invalid configuration: S3_REGION is required for the s3 storage driver")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "trs")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_AUTO_MIGRATE", true)

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("STORAGE_DRIVER", StorageDriverLocal)
	v.SetDefault("STORAGE_LOCAL_DIR", "./storage")
	v.SetDefault("S3_REGION", "eu-west-2")
	v.SetDefault("S3_ENDPOINT", "")
	v.SetDefault("S3_FORCE_PATH_STYLE", false)

	v.SetDefault("EWC_PICKUP_CONTAINER", "ewc-wales")
	v.SetDefault("EWC_PICKUP_PREFIX", "pickup/")
	v.SetDefault("EWC_ARCHIVE_CONTAINER", "archived-integration-transactions")
	v.SetDefault("EWC_ARCHIVE_PREFIX", "ewc/processed/")
	v.SetDefault("EWC_SCHEDULER_ENABLED", true)
	v.SetDefault("EWC_SCHEDULE", "0 8 * * *")
	v.SetDefault("EWC_LOCK_TTL", "2h")
	v.SetDefault("EWC_QTS_CUTOVER_DATE", "2023-02-01")
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

func parseDate(raw string, fallback time.Time) time.Time {
	if raw == "" {
		return fallback
	}

	d, err := time.Parse("2006-01-02", strings.TrimSpace(raw))
	if err != nil {
		return fallback
	}

	return d
}
