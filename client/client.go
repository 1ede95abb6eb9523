package client

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/adamwoolhether/s3req/client/throttle"
	"github.com/adamwoolhether/s3req/metrics"
	"github.com/adamwoolhether/s3req/request"
)

const tracerName = "github.com/adamwoolhether/s3req/client"

// Client wraps the std-lib *http.Client.
// It sets a default *http.Client and pooled *http.Transport, which
// can be customized via optional funcs. A Client is safe for concurrent use.
type Client struct {
	c       *http.Client
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *metrics.Recorder

	failOnError bool
	chunkSize   int
	maxBodySize int64
}

func Build(optFns ...Option) (*Client, error) {
	client := &Client{
		c:         &http.Client{},
		logger:    slog.Default(),
		chunkSize: defaultChunkSize,
	}

	var opts options
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, fmt.Errorf("applying client option: %w", err)
		}
	}

	if opts.client != nil {
		client.c = opts.client
	}

	if opts.logger != nil {
		client.logger = opts.logger
	}

	client.tracer = opts.tracer
	if client.tracer == nil {
		client.tracer = otel.Tracer(tracerName)
	}

	client.metrics = opts.metrics
	client.failOnError = opts.failOnError
	client.maxBodySize = opts.maxBodySize
	if opts.chunkSize > 0 {
		client.chunkSize = opts.chunkSize
	}

	if opts.timeout != nil {
		client.c.Timeout = *opts.timeout
	}

	if opts.noFollowRedirects {
		client.c.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	var transport http.RoundTripper
	switch {
	case opts.rt != nil:
		transport = opts.rt
	case opts.client != nil && opts.client.Transport != nil:
		transport = opts.client.Transport
	default:
		t, err := NewTransport(TransportConfig{})
		if err != nil {
			return nil, fmt.Errorf("building transport: %w", err)
		}
		transport = t
	}
	if opts.userAgent != "" {
		transport = userAgent{value: opts.userAgent, base: transport}
	}
	if opts.throttle != nil {
		rt, err := throttle.NewRoundTripper(*opts.throttle, func() *slog.Logger { return client.logger }, transport)
		if err != nil {
			return nil, fmt.Errorf("configuring throttle: %w", err)
		}
		transport = rt
	}
	client.c.Transport = transport

	return client, nil
}

// Send dispatches d and returns the response once its headers arrive.
// The body is left unread; the caller must consume or close the returned
// [Response]. Transport failures return a [*TransportError]. With
// [WithFailOnError] a non-2xx status drains the body and returns an
// [*HTTPFailureError] instead of a Response.
func (c *Client) Send(ctx context.Context, d *request.Descriptor) (*Response, error) {
	command := d.Command().String()
	method := d.Verb().Method()
	target := d.URL()

	ctx, span := c.tracer.Start(ctx, command,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(spanAttributes(d)...),
	)

	var body io.Reader = http.NoBody
	if d.ContentLength() > 0 {
		body = d.BodyReader()
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "instantiating request")
		span.End()
		return nil, fmt.Errorf("instantiating request: %w", err)
	}
	req.ContentLength = d.ContentLength()

	for _, f := range d.Headers() {
		if strings.EqualFold(f.Name, "Host") {
			req.Host = f.Value
			continue
		}
		req.Header.Add(f.Name, f.Value)
	}

	start := time.Now()
	resp, err := c.c.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport failure")
		span.End()
		c.metrics.TransportError(command)
		c.logger.Debug("request failed", "command", command, "url", target.String(), "error", err)

		return nil, &TransportError{
			Command: command,
			URL:     target.String(),
			Err:     err,
		}
	}

	span.AddEvent("response", trace.WithAttributes(attribute.Int("status_code", resp.StatusCode)))
	if !isSuccess(resp.StatusCode) {
		span.SetStatus(codes.Error, strconv.Itoa(resp.StatusCode))
	}
	span.End()

	c.metrics.ObserveResponse(command, resp.StatusCode, time.Since(start))
	c.logger.Debug("response received", "command", command, "bucket", d.Bucket(), "path", d.Path(), "status_code", resp.StatusCode)

	r := c.newResponse(resp)
	if c.failOnError && !isSuccess(resp.StatusCode) {
		return nil, r.fail()
	}

	return r, nil
}

func spanAttributes(d *request.Descriptor) []attribute.KeyValue {
	at := d.IssuedAt()

	return []attribute.KeyValue{
		attribute.String("bucket", d.Bucket()),
		attribute.String("command", d.Command().String()),
		attribute.String("path", d.Path()),
		attribute.Int("second", at.Second()),
		attribute.Int("minute", at.Minute()),
		attribute.Int("hour", at.Hour()),
		attribute.Int("day", at.Day()),
		attribute.Int("month", int(at.Month())),
		attribute.Int("year", at.Year()),
		attribute.String("request_id", uuid.NewString()),
	}
}
