package sink

import (
	"errors"
	"hash"
)

// Option defines optional settings for writing objects to disk.
// WithChecksum enables checksum validation of the written file.
// h is a hash.Hash instance (e.g. sha256.New()), and expected is the
// hex-encoded expected checksum string.
//
// WithETag verifies the file against the object's ETag when it is a
// plain MD5 digest. Multipart ETags are accepted without verification.
//
// WithExpectedSize fails the write when the body length differs from n,
// and gives progress logging a total.
//
// WithProgress enables periodic progress logging via the logger
// supplied to File.
//
// WithSkipExisting causes File to return immediately when the
// destination file already exists, avoiding a redundant request.
type Option func(*options) error

type options struct {
	checksum     *checksumVerifier
	etag         *checksumVerifier
	size         int64
	progress     bool
	skipExisting bool
}

func WithChecksum(h hash.Hash, expected string) Option {
	return func(opts *options) error {
		if h == nil {
			return errors.New("hash must not be nil")
		}

		if expected == "" {
			return errors.New("expected checksum must not be empty")
		}

		opts.checksum = &checksumVerifier{hash: h, expected: expected, mismatch: ErrChecksumMismatch}
		return nil
	}
}

func WithETag(etag string) Option {
	return func(opts *options) error {
		opts.etag = etagVerifier(etag)
		return nil
	}
}

func WithExpectedSize(n int64) Option {
	return func(opts *options) error {
		if n < 0 {
			return errors.New("expected size must not be negative")
		}

		opts.size = n
		return nil
	}
}

func WithProgress() Option {
	return func(opts *options) error {
		opts.progress = true
		return nil
	}
}

func WithSkipExisting() Option {
	return func(opts *options) error {
		opts.skipExisting = true
		return nil
	}
}
