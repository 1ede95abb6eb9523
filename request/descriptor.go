// Package request builds descriptors: immutable, fully specified
// representations of one storage operation, ready to be sent.
package request

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/adamwoolhether/s3req/bucket"
)

// amzDateFormat is the ISO8601 basic format used by X-Amz-Date.
const amzDateFormat = "20060102T150405Z"

// Descriptor is one storage operation addressed to a bucket. It is
// immutable once built and safe to read from several goroutines.
type Descriptor struct {
	bucket   *bucket.Bucket
	path     string
	command  Command
	headers  Headers
	body     []byte
	url      url.URL
	issuedAt time.Time
}

// New refreshes the bucket's credentials if they are stale, then builds
// the descriptor for cmd against path. A refresh failure is returned as a
// [*CredentialError] before anything else is done.
func New(ctx context.Context, b *bucket.Bucket, path string, cmd Command) (*Descriptor, error) {
	if b == nil || cmd == nil {
		return nil, fmt.Errorf("%w: bucket and command are required", ErrInvalidCommand)
	}

	if err := b.RefreshCredentials(ctx); err != nil {
		return nil, &CredentialError{Bucket: b.Name(), Err: err}
	}

	creds, err := b.Credentials(ctx)
	if err != nil {
		return nil, &CredentialError{Bucket: b.Name(), Err: err}
	}

	var p prepared
	if err := cmd.prepare(&p); err != nil {
		return nil, fmt.Errorf("preparing %s: %w", cmd, err)
	}

	now := time.Now().UTC()
	sum := sha256.Sum256(p.body)

	var h Headers
	h.Set("Host", b.Host())
	h.Set("X-Amz-Date", now.Format(amzDateFormat))
	h.Set("X-Amz-Content-Sha256", hex.EncodeToString(sum[:]))
	if creds.SessionToken != "" {
		h.Set("X-Amz-Security-Token", creds.SessionToken)
	}
	for _, f := range p.headers.fields {
		h.Set(f.Name, f.Value)
	}
	for _, kv := range b.ExtraHeaders() {
		h.Set(kv[0], kv[1])
	}

	u := b.URL(path)
	u.RawQuery = p.rawQuery

	return &Descriptor{
		bucket:   b,
		path:     path,
		command:  cmd,
		headers:  h,
		body:     p.body,
		url:      *u,
		issuedAt: now,
	}, nil
}

// Bucket returns the bucket name.
func (d *Descriptor) Bucket() string { return d.bucket.Name() }

// Path returns the object path the descriptor was built for.
func (d *Descriptor) Path() string { return d.path }

// Command returns the storage operation.
func (d *Descriptor) Command() Command { return d.command }

// Verb returns the HTTP verb of the operation.
func (d *Descriptor) Verb() Verb { return d.command.Verb() }

// URL returns a copy of the target URL.
func (d *Descriptor) URL() *url.URL {
	u := d.url
	return &u
}

// Headers returns a copy of the headers in the order they must be sent.
func (d *Descriptor) Headers() []Field { return d.headers.Fields() }

// Header returns the value of name, ignoring case.
func (d *Descriptor) Header(name string) (string, bool) { return d.headers.Get(name) }

// ContentLength returns the size of the request body.
func (d *Descriptor) ContentLength() int64 { return int64(len(d.body)) }

// BodyReader returns a fresh reader over the request body.
func (d *Descriptor) BodyReader() io.Reader { return bytes.NewReader(d.body) }

// IssuedAt returns the UTC time the descriptor was built.
func (d *Descriptor) IssuedAt() time.Time { return d.issuedAt }
