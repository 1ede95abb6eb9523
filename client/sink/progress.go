package sink

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"
)

// progressWriter is an io.Writer, logging transfer progress at
// most once per second if enabled.
type progressWriter struct {
	w           io.Writer
	logger      *slog.Logger
	path        string
	transferred int64
	total       int64
	startTime   time.Time
	lastLog     time.Time
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n, err := pw.w.Write(p)
	pw.transferred += int64(n)

	if time.Since(pw.lastLog) >= time.Second {
		pw.lastLog = time.Now()
		pw.log("writing object")
	}

	if pw.total > 0 && pw.transferred == pw.total {
		pw.log("object complete")
	}

	return n, err
}

func (pw *progressWriter) log(msg string) {
	elapsed := time.Since(pw.startTime)
	attrs := []any{
		"path", pw.path,
		"elapsed", elapsed.Round(time.Millisecond),
		"transferred", pw.transferred,
		"mbps", fmt.Sprintf("%.2f", float64(pw.transferred)/elapsed.Seconds()/(1024*1024)),
	}
	if pw.total > 0 {
		attrs = append(attrs,
			"progress", fmt.Sprintf("%.1f%%", float64(pw.transferred)/float64(pw.total)*100),
			"total", pw.total,
		)
	}
	pw.logger.Info(msg, attrs...)
}

// contextWriter stops accepting bytes once ctx is done.
type contextWriter struct {
	ctx context.Context
	w   io.Writer
}

func (cw *contextWriter) Write(p []byte) (int, error) {
	if err := cw.ctx.Err(); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrCancelled, err)
	}

	return cw.w.Write(p)
}
