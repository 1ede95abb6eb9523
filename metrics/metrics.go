// Package metrics defines the Prometheus collectors recorded by the
// request executor. A nil *Recorder is valid and records nothing.
package metrics

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Consumption modes used as the "mode" label of BodyBytes.
const (
	ModeBuffered = "buffered"
	ModeWriter   = "writer"
	ModeStream   = "stream"
	ModeFailure  = "failure"
)

// sizeBuckets are exponential buckets for body size histograms (bytes).
var sizeBuckets = []float64{256, 1024, 4096, 16384, 65536, 262144, 1048576, 4194304, 16777216, 67108864}

// Recorder holds the collectors for one registry.
type Recorder struct {
	requests        *prometheus.CounterVec
	duration        *prometheus.HistogramVec
	bodyBytes       *prometheus.CounterVec
	bodySize        *prometheus.HistogramVec
	transportErrors *prometheus.CounterVec
}

// New builds a Recorder and registers its collectors with reg. A nil reg
// uses prometheus.DefaultRegisterer. Collectors already registered with
// reg are reused, so New may be called more than once per registry.
func New(reg prometheus.Registerer) (*Recorder, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	r := &Recorder{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "s3req_requests_total",
				Help: "Storage requests that received a response, by command and status",
			},
			[]string{"command", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "s3req_request_duration_seconds",
				Help:    "Time from send until response headers arrived",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"command"},
		),
		bodyBytes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "s3req_body_bytes_total",
				Help: "Response body bytes consumed, by consumption mode",
			},
			[]string{"mode"},
		),
		bodySize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "s3req_body_size_bytes",
				Help:    "Size of fully consumed response bodies",
				Buckets: sizeBuckets,
			},
			[]string{"mode"},
		),
		transportErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "s3req_transport_errors_total",
				Help: "Requests that failed before a response was received",
			},
			[]string{"command"},
		),
	}

	var err error
	if r.requests, err = register(reg, r.requests); err != nil {
		return nil, err
	}
	if r.duration, err = register(reg, r.duration); err != nil {
		return nil, err
	}
	if r.bodyBytes, err = register(reg, r.bodyBytes); err != nil {
		return nil, err
	}
	if r.bodySize, err = register(reg, r.bodySize); err != nil {
		return nil, err
	}
	if r.transportErrors, err = register(reg, r.transportErrors); err != nil {
		return nil, err
	}

	return r, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}

		return c, fmt.Errorf("registering collector: %w", err)
	}

	return c, nil
}

// ObserveResponse records a response whose headers arrived after d.
func (r *Recorder) ObserveResponse(command string, status int, d time.Duration) {
	if r == nil {
		return
	}

	r.requests.WithLabelValues(command, strconv.Itoa(status)).Inc()
	r.duration.WithLabelValues(command).Observe(d.Seconds())
}

// TransportError records a request that never got a response.
func (r *Recorder) TransportError(command string) {
	if r == nil {
		return
	}

	r.transportErrors.WithLabelValues(command).Inc()
}

// AddBodyBytes records n body bytes consumed in mode.
func (r *Recorder) AddBodyBytes(mode string, n int) {
	if r == nil || n <= 0 {
		return
	}

	r.bodyBytes.WithLabelValues(mode).Add(float64(n))
}

// ObserveBodySize records the size of a body consumed to the end.
func (r *Recorder) ObserveBodySize(mode string, n int64) {
	if r == nil {
		return
	}

	r.bodySize.WithLabelValues(mode).Observe(float64(n))
}
