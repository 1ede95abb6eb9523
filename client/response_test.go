package client_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/adamwoolhether/s3req/client"
	"github.com/adamwoolhether/s3req/request"
)

// countingBody records how many bytes were read and whether it was closed.
type countingBody struct {
	r      io.Reader
	read   atomic.Int64
	closed atomic.Bool
}

func (b *countingBody) Read(p []byte) (int, error) {
	n, err := b.r.Read(p)
	b.read.Add(int64(n))
	return n, err
}

func (b *countingBody) Close() error {
	b.closed.Store(true)
	return nil
}

// fixedResponse returns a transport answering every request with status,
// header and a fresh countingBody, which is also sent on bodies.
func fixedResponse(status int, header http.Header, body string, bodies chan<- *countingBody) http.RoundTripper {
	return roundTripFunc(func(r *http.Request) (*http.Response, error) {
		cb := &countingBody{r: strings.NewReader(body)}
		if bodies != nil {
			bodies <- cb
		}

		return &http.Response{
			StatusCode: status,
			Header:     header.Clone(),
			Body:       cb,
			Request:    r,
		}, nil
	})
}

// payload is deterministic, non-repeating at chunk boundaries.
func payload(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i*7 + i/251)
	}
	return b
}

// errAfter yields data then fails with err.
type errAfter struct {
	data []byte
	err  error
}

func (e *errAfter) Read(p []byte) (int, error) {
	if len(e.data) == 0 {
		return 0, e.err
	}
	n := copy(p, e.data)
	e.data = e.data[n:]
	return n, nil
}

func (e *errAfter) Close() error { return nil }

func TestResponse_BufferedMatchesStreamed(t *testing.T) {
	body := payload(100_000)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(body)
	}))
	defer ts.Close()

	c := newClient(t, client.WithChunkSize(4096))
	d := descriptor(t, ts.URL, "/blob", request.GetObject{})

	data, err := c.ResponseData(t.Context(), d, false)
	if err != nil {
		t.Fatalf("response data: %v", err)
	}

	s, err := c.ResponseDataToStream(t.Context(), d)
	if err != nil {
		t.Fatalf("response stream: %v", err)
	}
	if s.StatusCode != http.StatusOK {
		t.Errorf("exp stream status 200, got %d", s.StatusCode)
	}

	var streamed []byte
	for chunk, err := range s.Chunks() {
		if err != nil {
			t.Fatalf("stream chunk: %v", err)
		}
		if len(chunk) > 4096 {
			t.Errorf("chunk of %d bytes exceeds chunk size", len(chunk))
		}
		streamed = append(streamed, chunk...)
	}

	if diff := cmp.Diff(data.Body, streamed); diff != "" {
		t.Errorf("buffered and streamed bodies differ (-buffered +streamed):\n%s", diff)
	}
	if diff := cmp.Diff(body, data.Body); diff != "" {
		t.Errorf("buffered body mismatch (-exp +got):\n%s", diff)
	}
}

func TestResponse_Data_ETag(t *testing.T) {
	testCases := []struct {
		name    string
		header  http.Header
		expBody string
		expErr  error
	}{
		{
			name:    "present",
			header:  http.Header{"Etag": {`"9b2cf535f27731c974343645a3985328"`}},
			expBody: `"9b2cf535f27731c974343645a3985328"`,
		},
		{
			name:    "absent",
			header:  http.Header{},
			expBody: "",
		},
		{
			name:   "not utf-8",
			header: http.Header{"Etag": {"\xff\xfe"}},
			expErr: client.ErrHeaderDecode,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			bodies := make(chan *countingBody, 1)
			c := newClient(t, client.WithTransport(fixedResponse(http.StatusOK, tc.header, "object contents", bodies)))

			data, err := c.ResponseData(t.Context(), descriptor(t, "http://storage.test", "/k", request.HeadObject{}), true)

			body := <-bodies
			if n := body.read.Load(); n != 0 {
				t.Errorf("exp no body bytes read in etag mode, got %d", n)
			}
			if !body.closed.Load() {
				t.Error("exp body to be closed")
			}

			if tc.expErr != nil {
				if !errors.Is(err, tc.expErr) {
					t.Errorf("exp %v, got %v", tc.expErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("response data: %v", err)
			}

			if string(data.Body) != tc.expBody {
				t.Errorf("exp body %q, got %q", tc.expBody, data.Body)
			}
			if tc.expBody != "" && data.Headers["etag"] != tc.expBody {
				t.Errorf("exp etag to stay in headers, got %v", data.Headers)
			}
		})
	}
}

func TestResponse_Data_HeaderFlattening(t *testing.T) {
	header := http.Header{
		"Content-Type":     {"text/plain"},
		"X-Amz-Meta-Owner": {"first", "last"},
		"X-Amz-Meta-Bad":   {"\xff\xfe\xfd"},
	}
	c := newClient(t, client.WithTransport(fixedResponse(http.StatusOK, header, "", nil)))

	data, err := c.ResponseData(t.Context(), descriptor(t, "http://storage.test", "/k", request.GetObject{}), false)
	if err != nil {
		t.Fatalf("response data: %v", err)
	}

	exp := map[string]string{
		"content-type":     "text/plain",
		"x-amz-meta-owner": "last",
		"x-amz-meta-bad":   client.HeaderDecodePlaceholder,
	}
	if diff := cmp.Diff(exp, data.Headers); diff != "" {
		t.Errorf("headers mismatch (-exp +got):\n%s", diff)
	}
}

func TestResponse_HeaderMatchesData(t *testing.T) {
	header := http.Header{
		"Etag":           {`"abc"`},
		"Content-Length": {"11"},
		"Last-Modified":  {"Wed, 21 Oct 2015 07:28:00 GMT"},
	}
	bodies := make(chan *countingBody, 2)
	c := newClient(t, client.WithTransport(fixedResponse(http.StatusOK, header, "hello world", bodies)))
	d := descriptor(t, "http://storage.test", "/k", request.HeadObject{})

	h, status, err := c.ResponseHeader(t.Context(), d)
	if err != nil {
		t.Fatalf("response header: %v", err)
	}
	probe := <-bodies
	if probe.read.Load() != 0 || !probe.closed.Load() {
		t.Errorf("exp probe to close the body unread: read %d closed %v", probe.read.Load(), probe.closed.Load())
	}
	if status != http.StatusOK {
		t.Errorf("exp 200, got %d", status)
	}

	data, err := c.ResponseData(t.Context(), d, false)
	if err != nil {
		t.Fatalf("response data: %v", err)
	}
	<-bodies

	if len(h) != len(data.Headers) {
		t.Fatalf("exp %d headers, got %d", len(data.Headers), len(h))
	}
	for k, v := range data.Headers {
		if got := h.Get(k); got != v {
			t.Errorf("header %s: probe %q, data %q", k, got, v)
		}
	}
}

func TestResponse_DrainPreservesOrder(t *testing.T) {
	body := payload(70_000)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for i := 0; i < len(body); i += 10_000 {
			w.Write(body[i:min(i+10_000, len(body))])
			w.(http.Flusher).Flush()
		}
	}))
	defer ts.Close()

	c := newClient(t, client.WithChunkSize(1024))

	var buf bytes.Buffer
	status, err := c.ResponseDataToWriter(t.Context(), descriptor(t, ts.URL, "/k", request.GetObject{}), &buf)
	if err != nil {
		t.Fatalf("response to writer: %v", err)
	}
	if status != http.StatusOK {
		t.Errorf("exp 200, got %d", status)
	}
	if !bytes.Equal(buf.Bytes(), body) {
		t.Errorf("writer received %d bytes out of order or incomplete", buf.Len())
	}
}

type failingWriter struct {
	writes int
	short  bool
}

func (w *failingWriter) Write(p []byte) (int, error) {
	w.writes++
	if w.short {
		return len(p) - 1, nil
	}
	if w.writes > 1 {
		return 0, errors.New("disk full")
	}
	return len(p), nil
}

func TestResponse_DrainSinkFailure(t *testing.T) {
	testCases := []struct {
		name      string
		w         *failingWriter
		expShort  bool
		expWrites int
	}{
		{name: "write error", w: &failingWriter{}, expWrites: 2},
		{name: "short write", w: &failingWriter{short: true}, expShort: true, expWrites: 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := newClient(t,
				client.WithChunkSize(8),
				client.WithTransport(fixedResponse(http.StatusOK, http.Header{}, strings.Repeat("x", 64), nil)),
			)

			_, err := c.ResponseDataToWriter(t.Context(), descriptor(t, "http://storage.test", "/k", request.GetObject{}), tc.w)
			if !errors.Is(err, client.ErrSinkWrite) {
				t.Fatalf("exp ErrSinkWrite, got %v", err)
			}
			if errors.Is(err, io.ErrShortWrite) != tc.expShort {
				t.Errorf("short write: exp %v, got %v", tc.expShort, err)
			}
			if tc.w.writes != tc.expWrites {
				t.Errorf("exp %d writes before stopping, got %d", tc.expWrites, tc.w.writes)
			}
		})
	}
}

func TestResponse_BodyReadFailure(t *testing.T) {
	readErr := errors.New("connection reset")
	transport := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{},
			Body:       &errAfter{data: []byte("partial"), err: readErr},
			Request:    r,
		}, nil
	})
	c := newClient(t, client.WithTransport(transport))
	d := descriptor(t, "http://storage.test", "/k", request.GetObject{})

	var buf bytes.Buffer
	if _, err := c.ResponseDataToWriter(t.Context(), d, &buf); !errors.Is(err, client.ErrBodyRead) || !errors.Is(err, readErr) {
		t.Errorf("writer: exp ErrBodyRead wrapping the cause, got %v", err)
	}
	if buf.String() != "partial" {
		t.Errorf("exp bytes before the failure to stay written, got %q", buf.String())
	}

	s, err := c.ResponseDataToStream(t.Context(), d)
	if err != nil {
		t.Fatalf("stream: %v", err)
	}

	var chunks, failures int
	for _, err := range s.Chunks() {
		if err != nil {
			failures++
			if !errors.Is(err, client.ErrBodyRead) {
				t.Errorf("stream: exp ErrBodyRead, got %v", err)
			}
			continue
		}
		chunks++
	}
	if chunks != 1 || failures != 1 {
		t.Errorf("exp 1 chunk then 1 failure, got %d chunks %d failures", chunks, failures)
	}

	if _, err := c.ResponseData(t.Context(), d, false); !errors.Is(err, client.ErrBodyRead) {
		t.Errorf("buffered: exp ErrBodyRead, got %v", err)
	}
}

func TestResponse_MaxBodySize(t *testing.T) {
	testCases := []struct {
		name   string
		limit  int64
		expErr error
	}{
		{name: "unlimited", limit: 0},
		{name: "exact fit", limit: 1024},
		{name: "too large", limit: 1023, expErr: client.ErrBodyTooLarge},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := newClient(t,
				client.WithMaxBodySize(tc.limit),
				client.WithTransport(fixedResponse(http.StatusOK, http.Header{}, strings.Repeat("a", 1024), nil)),
			)

			data, err := c.ResponseData(t.Context(), descriptor(t, "http://storage.test", "/k", request.GetObject{}), false)
			if tc.expErr != nil {
				if !errors.Is(err, tc.expErr) {
					t.Errorf("exp %v, got %v", tc.expErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("response data: %v", err)
			}
			if len(data.Body) != 1024 {
				t.Errorf("exp 1024 bytes, got %d", len(data.Body))
			}
		})
	}
}

func TestResponse_ConsumeTwicePanics(t *testing.T) {
	c := newClient(t, client.WithTransport(fixedResponse(http.StatusOK, http.Header{}, "once", nil)))

	resp, err := c.Send(t.Context(), descriptor(t, "http://storage.test", "/k", request.GetObject{}))
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	if _, err := resp.Data(false); err != nil {
		t.Fatalf("data: %v", err)
	}

	if err := resp.Close(); err != nil {
		t.Errorf("close after consumption should be a no-op, got %v", err)
	}

	defer func() {
		if recover() == nil {
			t.Error("expected a panic on second consumption")
		}
	}()
	resp.Stream()
}

func TestStream_SingleUse(t *testing.T) {
	bodies := make(chan *countingBody, 1)
	c := newClient(t, client.WithTransport(fixedResponse(http.StatusOK, http.Header{}, "abc", bodies)))

	s, err := c.ResponseDataToStream(t.Context(), descriptor(t, "http://storage.test", "/k", request.GetObject{}))
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	body := <-bodies

	if body.read.Load() != 0 {
		t.Error("exp no body read before iteration")
	}

	for _, err := range s.Chunks() {
		if err != nil {
			t.Fatalf("first pass: %v", err)
		}
	}
	if !body.closed.Load() {
		t.Error("exp body closed at the end of the stream")
	}

	for _, err := range s.Chunks() {
		if !errors.Is(err, client.ErrStreamConsumed) {
			t.Errorf("second pass: exp ErrStreamConsumed, got %v", err)
		}
	}

	if err := s.Close(); err != nil {
		t.Errorf("exp idempotent close, got %v", err)
	}
}

func TestStream_DroppedEarlyReleasesConnection(t *testing.T) {
	body := payload(1 << 20)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/small") {
			io.WriteString(w, "small")
			return
		}
		for i := 0; i < len(body); i += 32 << 10 {
			if _, err := w.Write(body[i : i+32<<10]); err != nil {
				return
			}
			w.(http.Flusher).Flush()
		}
	}))
	defer ts.Close()

	tr, err := client.NewTransport(client.TransportConfig{MaxIdleConnsPerHost: 1})
	if err != nil {
		t.Fatalf("new transport: %v", err)
	}
	tr.MaxConnsPerHost = 1

	c := newClient(t, client.WithTransport(tr), client.WithChunkSize(1024))

	s, err := c.ResponseDataToStream(t.Context(), descriptor(t, ts.URL, "/large", request.GetObject{}))
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	for chunk, err := range s.Chunks() {
		if err != nil {
			t.Fatalf("first chunk: %v", err)
		}
		if len(chunk) == 0 {
			t.Fatal("exp a non-empty first chunk")
		}
		break
	}

	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()

	data, err := c.ResponseData(ctx, descriptor(t, ts.URL, "/small", request.GetObject{}), false)
	if err != nil {
		t.Fatalf("later request blocked or failed: %v", err)
	}
	if string(data.Body) != "small" {
		t.Errorf("exp small, got %q", data.Body)
	}
}
