package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const EnvPrefix = "ALARMHUB"

type Config struct {
	HTTPAddr string `mapstructure:"http_addr"`

	// Reference data. CatalogDSN wins over CatalogPath; with neither the
	// built-in catalog is used.
	CatalogPath string `mapstructure:"catalog_path"`
	CatalogDSN  string `mapstructure:"catalog_dsn"`
	SeedPath    string `mapstructure:"seed_path"`

	// Authentication is on only when both are set.
	UsersPath string `mapstructure:"users_path"`
	JWTSecret string `mapstructure:"jwt_secret"`

	TelemetryInterval time.Duration `mapstructure:"telemetry_interval"`
	PeerQueueSize     int           `mapstructure:"peer_queue_size"`
	DefaultAssignee   string        `mapstructure:"default_assignee"`
	AllowedOrigins    []string      `mapstructure:"allowed_origins"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

func (c Config) AuthEnabled() bool {
	return c.UsersPath != "" && c.JWTSecret != ""
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("catalog_path", "")
	v.SetDefault("catalog_dsn", "")
	v.SetDefault("seed_path", "")
	v.SetDefault("users_path", "")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("telemetry_interval", "2s")
	v.SetDefault("peer_queue_size", 256)
	v.SetDefault("default_assignee", "user-1")
	v.SetDefault("allowed_origins", []string{})
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
}

// Load merges defaults, the optional YAML file at path and ALARMHUB_*
// environment variables, in increasing order of precedence.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.HTTPAddr == "" {
		errs = append(errs, errors.New("http_addr is required"))
	}
	if c.PeerQueueSize < 1 {
		errs = append(errs, fmt.Errorf("peer_queue_size must be positive, got %d", c.PeerQueueSize))
	}
	if c.TelemetryInterval < 0 {
		errs = append(errs, errors.New("telemetry_interval must not be negative"))
	}
	if (c.UsersPath == "") != (c.JWTSecret == "") {
		errs = append(errs, errors.New("users_path and jwt_secret must be set together"))
	}
	return errors.Join(errs...)
}
