package client

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/adamwoolhether/s3req/client/throttle"
	"github.com/adamwoolhether/s3req/metrics"
)

// Option is a functional option for configuring a [Client] via [Build].
type Option func(*options) error
type options struct {
	client            *http.Client
	rt                http.RoundTripper
	timeout           *time.Duration
	userAgent         string
	throttle          *throttle.Config
	noFollowRedirects bool
	logger            *slog.Logger
	tracer            trace.Tracer
	metrics           *metrics.Recorder
	failOnError       bool
	chunkSize         int
	maxBodySize       int64
}

// WithClient replaces the default [http.Client] used by the [Client].
func WithClient(hc *http.Client) Option {
	return func(c *options) error {
		if hc == nil {
			return errors.New("client must not be nil")
		}
		c.client = hc
		return nil
	}
}

// WithTransport sets a custom [http.RoundTripper] as the base transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *options) error {
		if rt == nil {
			return errors.New("transport must not be nil")
		}
		c.rt = rt
		return nil
	}
}

// WithTimeout sets the overall request timeout on the underlying [http.Client].
// The timeout includes reading the body, so streaming callers usually
// prefer a context deadline instead.
func WithTimeout(d time.Duration) Option {
	return func(c *options) error {
		if d < 0 {
			return errors.New("timeout must not be negative")
		}
		c.timeout = &d
		return nil
	}
}

// WithUserAgent adds a persistent User-Agent header to all outgoing requests.
func WithUserAgent(header string) Option {
	return func(c *options) error {
		c.userAgent = header
		return nil
	}
}

// WithThrottle enables per-host token-bucket rate limiting with the given
// requests per second and burst capacity.
func WithThrottle(rps, burst int) Option {
	return func(c *options) error {
		cfg := throttle.Config{RPS: rps, Burst: burst}
		if err := cfg.Validate(); err != nil {
			return err
		}
		c.throttle = &cfg
		return nil
	}
}

// WithNoFollowRedirects prevents the [Client] from following HTTP redirects.
func WithNoFollowRedirects() Option {
	return func(c *options) error {
		c.noFollowRedirects = true
		return nil
	}
}

// WithLogger injects a custom [slog.Logger] into the [Client].
func WithLogger(logger *slog.Logger) Option {
	return func(c *options) error {
		c.logger = logger
		return nil
	}
}

// WithTracer sets the tracer used to start one span per request.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *options) error {
		if tracer == nil {
			return errors.New("tracer must not be nil")
		}
		c.tracer = tracer
		return nil
	}
}

// WithMetrics records request and body metrics to r.
func WithMetrics(r *metrics.Recorder) Option {
	return func(c *options) error {
		if r == nil {
			return errors.New("metrics recorder must not be nil")
		}
		c.metrics = r
		return nil
	}
}

// WithFailOnError turns non-2xx responses into an [HTTPFailureError]
// returned by [Client.Send], after reading the whole failure body.
func WithFailOnError(fail bool) Option {
	return func(c *options) error {
		c.failOnError = fail
		return nil
	}
}

// WithChunkSize sets the read size of the writer and stream modes.
func WithChunkSize(n int) Option {
	return func(c *options) error {
		if n <= 0 {
			return fmt.Errorf("chunk size[%d] must be greater than zero", n)
		}
		c.chunkSize = n
		return nil
	}
}

// WithMaxBodySize caps the number of bytes buffered by [Response.Data].
// Zero means unlimited.
func WithMaxBodySize(n int64) Option {
	return func(c *options) error {
		if n < 0 {
			return errors.New("max body size must not be negative")
		}
		c.maxBodySize = n
		return nil
	}
}

// userAgent is an http.RoundTripper, enabling the persistent User-Agent header.
type userAgent struct {
	value string
	base  http.RoundTripper
}

func (ua userAgent) RoundTrip(r *http.Request) (*http.Response, error) {
	cpy := r.Clone(r.Context())
	cpy.Header.Set("User-Agent", ua.value)
	return ua.base.RoundTrip(cpy)
}
