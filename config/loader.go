package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. S3REQ_THROTTLE_RPS.
const EnvPrefix = "S3REQ"

// LoaderConfig holds optional file overrides.
type LoaderConfig struct {
	ConfigFile string // YAML config file path (optional)
	EnvFile    string // .env file path (optional)
}

// LoaderOption is a functional option for Load.
type LoaderOption func(*LoaderConfig)

// WithConfigFile sets a YAML config file.
func WithConfigFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.ConfigFile = path }
}

// WithEnvFile sets a .env file whose variables are loaded into the
// process environment. Variables already set are not overridden.
func WithEnvFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvFile = path }
}

// Load reads the config file, then the environment, applies defaults and
// validates the result. Environment variables win over the file.
func Load(opts ...LoaderOption) (*Config, error) {
	var lc LoaderConfig
	for _, opt := range opts {
		opt(&lc)
	}

	if lc.EnvFile != "" {
		if err := godotenv.Load(lc.EnvFile); err != nil {
			return nil, fmt.Errorf("loading env file %s: %w", lc.EnvFile, err)
		}
	}

	v := viper.New()
	setDefaults(v)

	if lc.ConfigFile != "" {
		v.SetConfigFile(lc.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", lc.ConfigFile, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers every key so AutomaticEnv can resolve it during
// Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("fail_on_error", false)
	v.SetDefault("timeout", "0s")
	v.SetDefault("user_agent", "")
	v.SetDefault("chunk_size", 32<<10)
	v.SetDefault("max_body_size", 0)
	v.SetDefault("no_follow_redirects", false)
	v.SetDefault("throttle.rps", 0)
	v.SetDefault("throttle.burst", 0)
	v.SetDefault("transport.max_idle_conns", 0)
	v.SetDefault("transport.max_idle_conns_per_host", 0)
	v.SetDefault("transport.idle_conn_timeout", "0s")
	v.SetDefault("transport.dial_timeout", "0s")
	v.SetDefault("transport.tls_handshake_timeout", "0s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 0)
	v.SetDefault("log.max_backups", 0)
	v.SetDefault("log.max_age_days", 0)
}
