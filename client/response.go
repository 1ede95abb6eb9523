package client

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"unicode/utf8"

	"github.com/adamwoolhether/s3req/metrics"
)

// Response is the single handle to a received response. Its body can be
// consumed exactly once, through Data, Header, Drain or Stream. Calling a
// second consumption method panics.
type Response struct {
	statusCode int
	header     http.Header
	body       io.ReadCloser
	taken      atomic.Bool

	logger      *slog.Logger
	metrics     *metrics.Recorder
	chunkSize   int
	maxBodySize int64
}

func (c *Client) newResponse(resp *http.Response) *Response {
	return &Response{
		statusCode:  resp.StatusCode,
		header:      resp.Header,
		body:        resp.Body,
		logger:      c.logger,
		metrics:     c.metrics,
		chunkSize:   c.chunkSize,
		maxBodySize: c.maxBodySize,
	}
}

// StatusCode returns the HTTP status code of the response.
func (r *Response) StatusCode() int {
	return r.statusCode
}

// take transfers ownership of the body to the caller.
func (r *Response) take() io.ReadCloser {
	if !r.taken.CompareAndSwap(false, true) {
		panic("client: response body consumed twice")
	}

	return r.body
}

// Close releases the connection without reading the body. It is a no-op
// once the body has been handed to a consumption method.
func (r *Response) Close() error {
	if !r.taken.CompareAndSwap(false, true) {
		return nil
	}

	return r.body.Close()
}

// Data buffers the response. With etag set the body is never read and
// the payload is the raw ETag header value, or empty when absent.
func (r *Response) Data(etag bool) (*ResponseData, error) {
	body := r.take()

	data := ResponseData{
		StatusCode: r.statusCode,
		Headers:    flattenHeaders(r.header),
	}

	if etag {
		r.closeBody(body)

		v := r.header.Get("ETag")
		if !utf8.ValidString(v) {
			return nil, fmt.Errorf("etag: %w", ErrHeaderDecode)
		}
		data.Body = []byte(v)

		return &data, nil
	}
	defer r.closeBody(body)

	b, err := r.readAll(body)
	if err != nil {
		return nil, err
	}
	data.Body = b

	r.metrics.AddBodyBytes(metrics.ModeBuffered, len(b))
	r.metrics.ObserveBodySize(metrics.ModeBuffered, int64(len(b)))

	return &data, nil
}

// Header returns a copy of the response headers and the status code. The
// body is closed unread.
func (r *Response) Header() (http.Header, int) {
	r.closeBody(r.take())

	return r.header.Clone(), r.statusCode
}

// Drain copies the body to w one chunk at a time, writing each chunk fully
// before reading the next. Bytes already written are not rolled back on
// failure. It returns the status code once the body is exhausted.
func (r *Response) Drain(w io.Writer) (int, error) {
	body := r.take()
	defer r.closeBody(body)

	buf := make([]byte, r.chunkSize)
	var total int64
	for {
		n, rerr := body.Read(buf)
		if n > 0 {
			written, werr := w.Write(buf[:n])
			r.metrics.AddBodyBytes(metrics.ModeWriter, written)
			total += int64(written)

			if werr == nil && written != n {
				werr = io.ErrShortWrite
			}
			if werr != nil {
				return r.statusCode, fmt.Errorf("%w: %w", ErrSinkWrite, werr)
			}
		}

		if errors.Is(rerr, io.EOF) {
			break
		}
		if rerr != nil {
			return r.statusCode, fmt.Errorf("%w: %w", ErrBodyRead, rerr)
		}
	}

	r.metrics.ObserveBodySize(metrics.ModeWriter, total)

	return r.statusCode, nil
}

// Stream hands the body to a lazily pulled [ResponseDataStream]. The
// status code is available before any body byte is read.
func (r *Response) Stream() *ResponseDataStream {
	return &ResponseDataStream{
		StatusCode: r.statusCode,
		body:       r.take(),
		chunkSize:  r.chunkSize,
		logger:     r.logger,
		metrics:    r.metrics,
	}
}

// fail consumes the body of a non-2xx response into an error.
func (r *Response) fail() error {
	body := r.take()
	defer r.closeBody(body)

	b, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("reading failure body: %w: %w", ErrBodyRead, err)
	}
	r.metrics.AddBodyBytes(metrics.ModeFailure, len(b))

	if !utf8.Valid(b) {
		return fmt.Errorf("status %d: %w", r.statusCode, ErrBodyNotUTF8)
	}

	return newHTTPFailure(r.statusCode, string(b))
}

func (r *Response) readAll(body io.Reader) ([]byte, error) {
	if r.maxBodySize <= 0 {
		b, err := io.ReadAll(body)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBodyRead, err)
		}
		return b, nil
	}

	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(body, r.maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBodyRead, err)
	}
	if n > r.maxBodySize {
		return nil, fmt.Errorf("limit %d bytes: %w", r.maxBodySize, ErrBodyTooLarge)
	}

	return buf.Bytes(), nil
}

func (r *Response) closeBody(body io.Closer) {
	if err := body.Close(); err != nil {
		r.logger.Error("failed to close response body", "error", err)
	}
}

// flattenHeaders lower-cases header names and keeps the last value of
// repeated headers. Values that are not valid UTF-8 are replaced with
// [HeaderDecodePlaceholder].
func flattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, vs := range h {
		if len(vs) == 0 {
			continue
		}

		v := vs[len(vs)-1]
		if !utf8.ValidString(v) {
			v = HeaderDecodePlaceholder
		}
		out[strings.ToLower(k)] = v
	}

	return out
}
