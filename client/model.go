package client

import (
	"errors"
	"fmt"
	"net/http"
)

// HeaderDecodePlaceholder replaces header values that are not valid UTF-8.
const HeaderDecodePlaceholder = "could-not-decode-header-value"

// defaultChunkSize is the read size used by the writer and stream modes.
const defaultChunkSize = 32 << 10 // 32KB

var (
	// ErrTransport is the sentinel wrapped by [TransportError].
	ErrTransport = errors.New("transport failure")
	// ErrHTTPFailure is the sentinel wrapped by [HTTPFailureError].
	ErrHTTPFailure = errors.New("http failure")
	// ErrAuthFailure is matched, next to [ErrHTTPFailure], by an
	// [HTTPFailureError] for 401 Unauthorized or 403 Forbidden.
	ErrAuthFailure = errors.New("auth failure")
	// ErrBodyNotUTF8 is returned when a failure body is not valid UTF-8.
	ErrBodyNotUTF8 = errors.New("response body is not valid utf-8")
	// ErrHeaderDecode is returned when a header that must be extracted
	// as text is not valid UTF-8.
	ErrHeaderDecode = errors.New("header value is not valid utf-8")
	ErrBodyRead     = errors.New("reading response body")
	ErrSinkWrite    = errors.New("writing to sink")
	ErrBodyTooLarge = errors.New("response body exceeds size limit")
	// ErrStreamConsumed is yielded when a stream is iterated a second time.
	ErrStreamConsumed = errors.New("stream already consumed")
)

// TransportError is returned when a request never produced a response:
// connection, DNS, TLS or timeout failures.
type TransportError struct {
	Command string
	URL     string
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%v: %s %s: %v", ErrTransport, e.Command, e.URL, e.Err)
}

func (e *TransportError) Unwrap() []error {
	return []error{ErrTransport, e.Err}
}

// HTTPFailureError is returned by the fail-fast policy when the response
// status is outside [200,300). Body holds the full decoded response body.
// A 401 or 403 also matches [ErrAuthFailure].
type HTTPFailureError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *HTTPFailureError) Error() string {
	return fmt.Sprintf("%v: %d, body: %s", e.Err, e.StatusCode, e.Body)
}

func (e *HTTPFailureError) Unwrap() []error {
	if e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden {
		return []error{e.Err, ErrAuthFailure}
	}

	return []error{e.Err}
}

func newHTTPFailure(status int, body string) *HTTPFailureError {
	return &HTTPFailureError{
		StatusCode: status,
		Body:       body,
		Err:        ErrHTTPFailure,
	}
}

// ResponseData is a fully buffered response. Header keys are lower-case.
type ResponseData struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
}

// Success reports whether the status code is in [200,300).
func (d *ResponseData) Success() bool {
	return isSuccess(d.StatusCode)
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
