package sink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/adamwoolhether/s3req/client"
	"github.com/adamwoolhether/s3req/request"
)

// FillFunc writes a response body to w and returns its status code.
// [client.Client.ResponseDataToWriter] bound to a descriptor is one.
type FillFunc func(w io.Writer) (int, error)

// File streams the body produced by fill to a temp file in the same
// directory as destPath, verifies it, and renames it to destPath. On any
// error, including a non-2xx status, the temp file is removed and destPath
// is left untouched. The status code is returned when fill ran.
func File(ctx context.Context, destPath string, fill FillFunc, logger *slog.Logger, optFns ...Option) (int, error) {
	if destPath == "" {
		return 0, errors.New("destPath must not be empty")
	}

	if logger == nil {
		logger = slog.Default()
	}

	var opts options
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return 0, fmt.Errorf("applying option: %w", err)
		}
	}

	if opts.skipExisting {
		if _, err := os.Stat(destPath); err == nil {
			logger.Info("skipping existing file", "path", destPath)
			return 0, nil
		}
	}

	file, err := os.CreateTemp(filepath.Dir(destPath), ".s3req-*")
	if err != nil {
		return 0, fmt.Errorf("creating temp file: %w", err)
	}

	var successful bool
	defer func() {
		if err := file.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			logger.Error("defer closing temp file", "error", err)
		}
		if !successful {
			if err := os.Remove(file.Name()); err != nil {
				logger.Error("failed to remove temp file", "error", err)
			}
		}
	}()

	counter := &countingWriter{w: file}
	var writer io.Writer = counter
	for _, v := range []*checksumVerifier{opts.checksum, opts.etag} {
		if v != nil {
			writer = io.MultiWriter(writer, v)
		}
	}

	if opts.progress {
		writer = &progressWriter{
			w:         writer,
			logger:    logger,
			path:      destPath,
			total:     opts.size,
			startTime: time.Now(),
		}
	}

	status, err := fill(&contextWriter{ctx: ctx, w: writer})
	if err != nil {
		return status, fmt.Errorf("writing body: %w", err)
	}

	if status < 200 || status >= 300 {
		return status, &Error{
			Err:    ErrUnexpectedStatus,
			Detail: fmt.Sprintf("status %d", status),
		}
	}

	if opts.size > 0 && counter.n != opts.size {
		return status, &Error{
			Err:    ErrContentLengthMismatch,
			Detail: fmt.Sprintf("expected %d bytes, got %d", opts.size, counter.n),
		}
	}

	if err := opts.checksum.Verify(); err != nil {
		return status, err
	}
	if err := opts.etag.Verify(); err != nil {
		return status, err
	}

	if err := file.Sync(); err != nil {
		return status, fmt.Errorf("syncing temp file: %w", err)
	}
	if err := file.Close(); err != nil {
		return status, fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(file.Name(), destPath); err != nil {
		return status, fmt.Errorf("renaming temp file: %w", err)
	}

	successful = true

	return status, nil
}

// Object fetches the object described by d into destPath through c.
func Object(ctx context.Context, c *client.Client, d *request.Descriptor, destPath string, logger *slog.Logger, optFns ...Option) error {
	if _, err := File(ctx, destPath, writerFill(ctx, c, d), logger, optFns...); err != nil {
		return fmt.Errorf("%s %s: %w", d.Command(), d.Path(), err)
	}

	return nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}
