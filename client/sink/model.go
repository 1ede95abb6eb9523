package sink

import (
	"errors"
	"fmt"
)

var (
	ErrContentLengthMismatch = errors.New("content length mismatch")
	ErrChecksumMismatch      = errors.New("checksum mismatch")
	ErrETagMismatch          = errors.New("etag mismatch")
	ErrUnexpectedStatus      = errors.New("unexpected status code")
	ErrCancelled             = errors.New("write cancelled")
	ErrQueueShutdown         = errors.New("queue is shut down")
)

// Error carries the detail of a failed integrity check.
type Error struct {
	Detail string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%v: %s", e.Err, e.Detail)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ObjectError ties a queued download failure to its object and
// destination file.
type ObjectError struct {
	Bucket string
	Path   string
	Dest   string
	Err    error
}

func (e *ObjectError) Error() string {
	return fmt.Sprintf("%s%s -> %s: %v", e.Bucket, e.Path, e.Dest, e.Err)
}

func (e *ObjectError) Unwrap() error {
	return e.Err
}
