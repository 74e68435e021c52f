package config

import (
	"fmt"
	"strings"

	"github.com/labstack/gommon/bytes"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

const (
	sslModeDisable = "disable"
	sslModeRequire = "require"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	MediaBackendLocal = "local"
	MediaBackendS3    = "s3"
)

type (
	Config struct {
		Host     string `mapstructure:"HOST"`
		Port     string `mapstructure:"PORT"`
		GRPCPort string `mapstructure:"GRPC_PORT"`

		DBDriver   string `mapstructure:"DB_DRIVER"`
		DBHost     string `mapstructure:"DB_HOST"`
		DBPort     string `mapstructure:"DB_PORT"`
		DBUser     string `mapstructure:"DB_USER"`
		DBPassword string `mapstructure:"DB_PASSWORD"`
		DBName     string `mapstructure:"DB_NAME"`
		DBSSLMode  string `mapstructure:"DB_SSL_MODE"`

		LogLevel string `mapstructure:"LOG_LEVEL"`
		PageSize int    `mapstructure:"PAGE_SIZE"`

		CORSOrigins string `mapstructure:"CORS_ORIGINS"`
		BodyLimit   string `mapstructure:"BODY_LIMIT"`

		MediaBackend      string `mapstructure:"MEDIA_BACKEND"`
		MediaRoot         string `mapstructure:"MEDIA_ROOT"`
		MediaURL          string `mapstructure:"MEDIA_URL"`
		MediaMaxWidth     uint   `mapstructure:"MEDIA_MAX_WIDTH"`
		MediaMaxDimension uint   `mapstructure:"MEDIA_MAX_DIMENSION"`

		S3Bucket    string `mapstructure:"S3_BUCKET"`
		S3Region    string `mapstructure:"S3_REGION"`
		S3Endpoint  string `mapstructure:"S3_ENDPOINT"`
		S3AccessKey string `mapstructure:"S3_ACCESS_KEY"`
		S3SecretKey string `mapstructure:"S3_SECRET_KEY"`
	}
)

var defaults = map[string]interface{}{
	"HOST":                "0.0.0.0",
	"PORT":                "1323",
	"GRPC_PORT":           "9000",
	"DB_DRIVER":           DriverPostgres,
	"DB_HOST":             "0.0.0.0",
	"DB_PORT":             "5432",
	"DB_USER":             "user",
	"DB_PASSWORD":         "password",
	"DB_NAME":             "db",
	"DB_SSL_MODE":         sslModeDisable,
	"LOG_LEVEL":           "info",
	"PAGE_SIZE":           6,
	"CORS_ORIGINS":        "*",
	"BODY_LIMIT":          "10M",
	"MEDIA_BACKEND":       MediaBackendLocal,
	"MEDIA_ROOT":          "media",
	"MEDIA_URL":           "/media/",
	"MEDIA_MAX_WIDTH":     1024,
	"MEDIA_MAX_DIMENSION": 8192,
	"S3_BUCKET":           "",
	"S3_REGION":           "",
	"S3_ENDPOINT":         "",
	"S3_ACCESS_KEY":       "",
	"S3_SECRET_KEY":       "",
}

func NewConfig() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("RECIPEBOOK")

	for key, value := range defaults {
		v.SetDefault(key, value)
		if err := v.BindEnv(key); err != nil {
			return nil, errors.Wrapf(err, "bind env %s", key)
		}
	}

	cfg := Config{}
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}

	if err := validate(&cfg); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// Origins splits CORS_ORIGINS on commas.
func (c *Config) Origins() []string {
	parts := strings.Split(c.CORSOrigins, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}

func (c *Config) ZapLevel() zapcore.Level {
	lvl, _ := zapcore.ParseLevel(c.LogLevel)
	return lvl
}

func validate(cfg *Config) error {
	if !oneOf(cfg.DBSSLMode, sslModeDisable, sslModeRequire) {
		return errors.New(fmt.Sprintf("DB SSL mode is invalid: %s", cfg.DBSSLMode))
	}
	if !oneOf(cfg.DBDriver, DriverPostgres, DriverSQLite) {
		return errors.New(fmt.Sprintf("DB driver is invalid: %s", cfg.DBDriver))
	}
	if !oneOf(cfg.MediaBackend, MediaBackendLocal, MediaBackendS3) {
		return errors.New(fmt.Sprintf("media backend is invalid: %s", cfg.MediaBackend))
	}
	if cfg.MediaBackend == MediaBackendS3 && cfg.S3Bucket == "" {
		return errors.New("S3 bucket is required for the s3 media backend")
	}
	if _, err := zapcore.ParseLevel(cfg.LogLevel); err != nil {
		return errors.Wrap(err, "log level is invalid")
	}
	if cfg.PageSize <= 0 {
		return errors.New(fmt.Sprintf("page size must be positive: %d", cfg.PageSize))
	}
	if limit, err := bytes.Parse(cfg.BodyLimit); err != nil || limit <= 0 {
		return errors.New(fmt.Sprintf("body limit is invalid: %q", cfg.BodyLimit))
	}
	return nil
}

func oneOf(value string, valid ...string) bool {
	for _, v := range valid {
		if value == v {
			return true
		}
	}
	return false
}
