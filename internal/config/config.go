package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/spf13/viper"
)

const (
	envPrefix = "LOADLAB"

	keyListenAddr      = "listen_addr"
	keyDBPath          = "db_path"
	keyLogLevel        = "log_level"
	keyClientLogFormat = "client_log_format"
	keyJobTimeout      = "job_timeout"
	keyRandomSeed      = "random_seed"

	defaultListenAddr      = ":8000"
	defaultDBPath          = "loadlab.db"
	defaultLogLevel        = "info"
	defaultClientLogFormat = "json"
	defaultJobTimeout      = "0s"
	defaultRandomSeed      = 0
)

// Config holds application configuration loaded from defaults, an optional
// config file and LOADLAB_* environment variables, in increasing precedence.
type Config struct {
	ListenAddr      string
	DBPath          string
	LogLevel        slog.Level
	ClientLogFormat string
	// JobTimeout bounds every simulated job. Zero disables the bound.
	JobTimeout time.Duration
	// RandomSeed seeds the unstable job's random source. Zero seeds from time.
	RandomSeed uint64
}

// NewViper returns a viper instance with defaults and environment binding
// configured. Callers may bind flags to it before calling FromViper.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetDefault(keyListenAddr, defaultListenAddr)
	v.SetDefault(keyDBPath, defaultDBPath)
	v.SetDefault(keyLogLevel, defaultLogLevel)
	v.SetDefault(keyClientLogFormat, defaultClientLogFormat)
	v.SetDefault(keyJobTimeout, defaultJobTimeout)
	v.SetDefault(keyRandomSeed, defaultRandomSeed)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads configuration. configFile is optional; when set it must exist.
func Load(configFile string) (Config, error) {
	v := NewViper()
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}
	return FromViper(v)
}

// FromViper builds and validates a Config from v.
func FromViper(v *viper.Viper) (Config, error) {
	timeout, err := parseDuration(v.GetString(keyJobTimeout))
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", keyJobTimeout, err)
	}

	cfg := Config{
		ListenAddr:      v.GetString(keyListenAddr),
		DBPath:          v.GetString(keyDBPath),
		LogLevel:        parseLogLevel(v.GetString(keyLogLevel)),
		ClientLogFormat: strings.ToLower(v.GetString(keyClientLogFormat)),
		JobTimeout:      timeout,
		RandomSeed:      v.GetUint64(keyRandomSeed),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.ListenAddr, validation.Required),
		validation.Field(&c.DBPath, validation.Required),
		validation.Field(&c.ClientLogFormat, validation.Required, validation.In("json", "text")),
		validation.Field(&c.JobTimeout, validation.Min(time.Duration(0))),
	)
}

func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, errors.New("must be a duration such as 30s or 1m")
	}
	return d, nil
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a structured JSON logger writing to w at the configured level.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}
