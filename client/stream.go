package client

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"sync/atomic"

	"github.com/adamwoolhether/s3req/metrics"
)

// ResponseDataStream is a response body pulled lazily in chunks.
// StatusCode is set before any body byte is read.
type ResponseDataStream struct {
	StatusCode int

	body      io.ReadCloser
	chunkSize int
	logger    *slog.Logger
	metrics   *metrics.Recorder

	started atomic.Bool
	closed  atomic.Bool
}

// Chunks returns a single-use sequence over the body in arrival order.
// Each chunk is a fresh slice the caller may keep. A read failure is
// yielded once, wrapped in [ErrBodyRead], and ends the sequence. The body
// is closed when the sequence ends or the caller stops iterating early.
// Iterating a second time yields [ErrStreamConsumed].
func (s *ResponseDataStream) Chunks() iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		if s.closed.Load() || !s.started.CompareAndSwap(false, true) {
			yield(nil, ErrStreamConsumed)
			return
		}
		defer s.Close()

		var total int64
		for {
			buf := make([]byte, s.chunkSize)
			n, err := s.body.Read(buf)
			if n > 0 {
				total += int64(n)
				s.metrics.AddBodyBytes(metrics.ModeStream, n)

				if !yield(buf[:n], nil) {
					return
				}
			}

			if errors.Is(err, io.EOF) {
				s.metrics.ObserveBodySize(metrics.ModeStream, total)
				return
			}
			if err != nil {
				yield(nil, fmt.Errorf("%w: %w", ErrBodyRead, err))
				return
			}
		}
	}
}

// Close releases the underlying connection. It is safe to call more than
// once and on a stream that was never iterated.
func (s *ResponseDataStream) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	if err := s.body.Close(); err != nil {
		s.logger.Error("failed to close response stream", "error", err)
		return err
	}

	return nil
}
