package client

import (
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/http2"
)

// TransportConfig tunes the connection pool shared by every request of a
// [Client]. Zero fields take the defaults from ApplyDefaults.
type TransportConfig struct {
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
	DialTimeout         time.Duration
	TLSHandshakeTimeout time.Duration
	// HTTP2ReadIdleTimeout sends a health-check ping on an HTTP/2
	// connection idle this long. Zero disables health checks.
	HTTP2ReadIdleTimeout time.Duration
	HTTP2PingTimeout     time.Duration
}

// ApplyDefaults fills zero-valued fields.
func (c *TransportConfig) ApplyDefaults() {
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = 100
	}
	if c.MaxIdleConnsPerHost == 0 {
		c.MaxIdleConnsPerHost = 32
	}
	if c.IdleConnTimeout == 0 {
		c.IdleConnTimeout = 90 * time.Second
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = 30 * time.Second
	}
	if c.TLSHandshakeTimeout == 0 {
		c.TLSHandshakeTimeout = 10 * time.Second
	}
	if c.HTTP2ReadIdleTimeout == 0 {
		c.HTTP2ReadIdleTimeout = 30 * time.Second
	}
	if c.HTTP2PingTimeout == 0 {
		c.HTTP2PingTimeout = 15 * time.Second
	}
}

// NewTransport returns a pooled, goroutine-safe transport that negotiates
// HTTP/2 over TLS and falls back to HTTP/1.1.
func NewTransport(cfg TransportConfig) (*http.Transport, error) {
	cfg.ApplyDefaults()

	if cfg.MaxIdleConns < 0 || cfg.MaxIdleConnsPerHost < 0 {
		return nil, fmt.Errorf("idle conns[%d] and idle conns per host[%d] must not be negative", cfg.MaxIdleConns, cfg.MaxIdleConnsPerHost)
	}

	dialer := &net.Dialer{
		Timeout:   cfg.DialTimeout,
		KeepAlive: 30 * time.Second,
	}

	t := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		MaxIdleConns:          cfg.MaxIdleConns,
		MaxIdleConnsPerHost:   cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:       cfg.IdleConnTimeout,
		TLSHandshakeTimeout:   cfg.TLSHandshakeTimeout,
		ExpectContinueTimeout: time.Second,
	}

	h2, err := http2.ConfigureTransports(t)
	if err != nil {
		return nil, fmt.Errorf("configuring http2: %w", err)
	}
	h2.ReadIdleTimeout = cfg.HTTP2ReadIdleTimeout
	h2.PingTimeout = cfg.HTTP2PingTimeout

	return t, nil
}
