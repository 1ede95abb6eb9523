// Package config loads client settings from an optional YAML file, an
// optional .env file and S3REQ_* environment variables, and turns them
// into client options.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/adamwoolhether/s3req/client"
)

// Config holds every setting of a [client.Client].
type Config struct {
	FailOnError       bool            `mapstructure:"fail_on_error"`
	Timeout           time.Duration   `mapstructure:"timeout" validate:"gte=0"`
	UserAgent         string          `mapstructure:"user_agent"`
	ChunkSize         int             `mapstructure:"chunk_size" validate:"gt=0"`
	MaxBodySize       int64           `mapstructure:"max_body_size" validate:"gte=0"`
	NoFollowRedirects bool            `mapstructure:"no_follow_redirects"`
	Throttle          ThrottleConfig  `mapstructure:"throttle"`
	Transport         TransportConfig `mapstructure:"transport"`
	Log               LogConfig       `mapstructure:"log"`
}

// ThrottleConfig enables per-host rate limiting when RPS is set.
type ThrottleConfig struct {
	RPS   int `mapstructure:"rps" validate:"gte=0"`
	Burst int `mapstructure:"burst" validate:"required_with=RPS,gte=0"`
}

// TransportConfig tunes the connection pool. Zero values take the
// transport defaults.
type TransportConfig struct {
	MaxIdleConns        int           `mapstructure:"max_idle_conns" validate:"gte=0"`
	MaxIdleConnsPerHost int           `mapstructure:"max_idle_conns_per_host" validate:"gte=0"`
	IdleConnTimeout     time.Duration `mapstructure:"idle_conn_timeout" validate:"gte=0"`
	DialTimeout         time.Duration `mapstructure:"dial_timeout" validate:"gte=0"`
	TLSHandshakeTimeout time.Duration `mapstructure:"tls_handshake_timeout" validate:"gte=0"`
}

// LogConfig selects the slog handler built by NewLogger. When File is set
// LogWriter rotates it by size.
type LogConfig struct {
	Level      string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format     string `mapstructure:"format" validate:"oneof=text json"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `mapstructure:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `mapstructure:"max_age_days" validate:"gte=0"`
}

// ApplyDefaults fills zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.ChunkSize == 0 {
		c.ChunkSize = 32 << 10
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	c.Log.Level = strings.ToLower(c.Log.Level)
	c.Log.Format = strings.ToLower(c.Log.Format)
}

// Validate checks c against its declared tags.
func (c *Config) Validate() error {
	return validateStruct(c)
}

// ClientOptions converts c into options for [client.Build]. logger may be
// nil, in which case the client keeps its default.
func (c *Config) ClientOptions(logger *slog.Logger) ([]client.Option, error) {
	transport, err := client.NewTransport(client.TransportConfig{
		MaxIdleConns:        c.Transport.MaxIdleConns,
		MaxIdleConnsPerHost: c.Transport.MaxIdleConnsPerHost,
		IdleConnTimeout:     c.Transport.IdleConnTimeout,
		DialTimeout:         c.Transport.DialTimeout,
		TLSHandshakeTimeout: c.Transport.TLSHandshakeTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("building transport: %w", err)
	}

	opts := []client.Option{
		client.WithTransport(transport),
		client.WithFailOnError(c.FailOnError),
		client.WithChunkSize(c.ChunkSize),
		client.WithMaxBodySize(c.MaxBodySize),
	}

	if c.Timeout > 0 {
		opts = append(opts, client.WithTimeout(c.Timeout))
	}
	if c.UserAgent != "" {
		opts = append(opts, client.WithUserAgent(c.UserAgent))
	}
	if c.NoFollowRedirects {
		opts = append(opts, client.WithNoFollowRedirects())
	}
	if c.Throttle.RPS > 0 {
		opts = append(opts, client.WithThrottle(c.Throttle.RPS, c.Throttle.Burst))
	}
	if logger != nil {
		opts = append(opts, client.WithLogger(logger))
	}

	return opts, nil
}

// NewLogger returns a text or JSON slog.Logger writing to w at the
// configured level. Unknown values fall back to info and text.
func NewLogger(cfg LogConfig, w io.Writer) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

// LogWriter returns a size-rotated file writer when cfg.File is set and
// fallback otherwise. The caller closes the returned writer when it is an
// io.Closer.
func LogWriter(cfg LogConfig, fallback io.Writer) io.Writer {
	if cfg.File == "" {
		return fallback
	}

	return &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
	}
}
