package throttle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

var (
	ErrMustNotBeZero = errors.New("must be greater than zero")
	ErrWaitingFailed = errors.New("limiter waiting failed")
	ErrContextEnded  = errors.New("throttle context ended")
)

// DefaultMaxHosts bounds the per-host limiter table when Config.MaxHosts
// is zero.
const DefaultMaxHosts = 1024

// Config defines the per-host Requests Per Second and Burst Rate.
// MaxHosts bounds how many host limiters are kept at once.
type Config struct {
	RPS      int
	Burst    int
	MaxHosts int
}

// Validate reports whether both limits are positive.
func (c Config) Validate() error {
	if c.RPS <= 0 || c.Burst <= 0 {
		return fmt.Errorf("rps[%d] and burst[%d] %w", c.RPS, c.Burst, ErrMustNotBeZero)
	}

	if c.MaxHosts < 0 {
		return fmt.Errorf("max hosts[%d] must not be negative", c.MaxHosts)
	}

	return nil
}

// hostLimiter is the token bucket of one host.
type hostLimiter struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// throttle is an http.RoundTripper keeping one token bucket per
// request host.
type throttle struct {
	cfg   Config
	next  http.RoundTripper
	logFn func() *slog.Logger

	mu       sync.Mutex
	limiters map[string]*hostLimiter
}

// NewRoundTripper returns an http.RoundTripper that throttles outbound
// requests per host. logFn lazily resolves the logger at request time, so
// option ordering is irrelevant. A nil-returning logFn disables the
// exhaustion log lines.
func NewRoundTripper(cfg Config, logFn func() *slog.Logger, next http.RoundTripper) (http.RoundTripper, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if next == nil {
		return nil, errors.New("next transport must not be nil")
	}

	if logFn == nil {
		logFn = func() *slog.Logger { return nil }
	}

	if cfg.MaxHosts == 0 {
		cfg.MaxHosts = DefaultMaxHosts
	}

	return &throttle{
		cfg:      cfg,
		next:     next,
		logFn:    logFn,
		limiters: make(map[string]*hostLimiter),
	}, nil
}

func (t *throttle) limiter(host string) *rate.Limiter {
	now := time.Now()

	t.mu.Lock()
	defer t.mu.Unlock()

	if hl, ok := t.limiters[host]; ok {
		hl.lastSeen = now
		return hl.lim
	}

	if len(t.limiters) >= t.cfg.MaxHosts {
		t.evict(now)
	}

	hl := &hostLimiter{
		lim:      rate.NewLimiter(rate.Limit(t.cfg.RPS), t.cfg.Burst),
		lastSeen: now,
	}
	t.limiters[host] = hl

	return hl.lim
}

// evict drops every limiter whose bucket has refilled, since a full bucket
// behaves exactly like a new one. If the table is still at capacity the
// least recently used limiter goes. t.mu must be held.
func (t *throttle) evict(now time.Time) {
	var (
		oldestHost string
		oldest     time.Time
	)

	for host, hl := range t.limiters {
		if hl.lim.TokensAt(now) >= float64(t.cfg.Burst) {
			delete(t.limiters, host)
			continue
		}

		if oldestHost == "" || hl.lastSeen.Before(oldest) {
			oldestHost, oldest = host, hl.lastSeen
		}
	}

	if len(t.limiters) >= t.cfg.MaxHosts && oldestHost != "" {
		delete(t.limiters, oldestHost)
	}
}

func (t *throttle) RoundTrip(r *http.Request) (*http.Response, error) {
	ctx := r.Context()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w early: %w", ErrContextEnded, err)
	}

	limiter := t.limiter(r.URL.Host)

	// Reserve instead of Allow+Wait so a single token is consumed.
	res := limiter.Reserve()
	if !res.OK() {
		return nil, fmt.Errorf("%w: burst %d exceeded", ErrWaitingFailed, t.cfg.Burst)
	}

	delay := res.Delay()
	if delay > 0 {
		if logger := t.logFn(); logger != nil {
			logger.Info("throttle tokens exhausted", "host", r.URL.Host, "rate", t.cfg.RPS, "burst", t.cfg.Burst, "delay", delay.String())
		}

		if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < delay {
			res.Cancel()
			return nil, fmt.Errorf("%w: delay %s: %w", ErrWaitingFailed, delay, context.DeadlineExceeded)
		}

		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-timer.C:
		case <-ctx.Done():
			res.Cancel()
			return nil, fmt.Errorf("%w post-wait: %w", ErrContextEnded, ctx.Err())
		}
	}

	return t.next.RoundTrip(r)
}
