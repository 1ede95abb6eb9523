// Package bucket describes the storage target a request is addressed to:
// the bucket name, its region or endpoint, the addressing style, and the
// credentials used to reach it.
package bucket

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
)

var (
	ErrEmptyName      = errors.New("bucket name must not be empty")
	ErrNilCredentials = errors.New("credentials provider must not be nil")

	// ErrExpiryWindowOnCache is returned when WithExpiryWindow is combined
	// with a provider that is already an *aws.CredentialsCache, whose
	// window was fixed when it was built.
	ErrExpiryWindowOnCache = errors.New("expiry window cannot be applied to an existing credentials cache")
)

// Bucket is an immutable, goroutine-safe storage target.
type Bucket struct {
	name      string
	region    Region
	pathStyle bool
	headers   [][2]string
	creds     *aws.CredentialsCache
}

// New returns a Bucket addressed with virtual-host style unless
// WithPathStyle is given. Credentials are cached and refreshed by
// RefreshCredentials when they expire.
func New(name string, region Region, provider aws.CredentialsProvider, optFns ...Option) (*Bucket, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrEmptyName
	}

	if provider == nil {
		return nil, ErrNilCredentials
	}

	if region.Host() == "" {
		return nil, ErrEmptyRegion
	}

	var opts options
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, fmt.Errorf("applying bucket option: %w", err)
		}
	}

	cache, ok := provider.(*aws.CredentialsCache)
	if ok && opts.expiryWindow > 0 {
		return nil, ErrExpiryWindowOnCache
	}
	if !ok {
		cache = aws.NewCredentialsCache(provider, func(o *aws.CredentialsCacheOptions) {
			if opts.expiryWindow > 0 {
				o.ExpiryWindow = opts.expiryWindow
			}
		})
	}

	return &Bucket{
		name:      name,
		region:    region,
		pathStyle: opts.pathStyle,
		headers:   opts.headers,
		creds:     cache,
	}, nil
}

// StaticCredentials returns a provider for a fixed key pair. The session
// token may be empty.
func StaticCredentials(accessKey, secretKey, sessionToken string) aws.CredentialsProvider {
	return credentials.NewStaticCredentialsProvider(accessKey, secretKey, sessionToken)
}

// Name returns the bucket name.
func (b *Bucket) Name() string { return b.name }

// Region returns the bucket's region.
func (b *Bucket) Region() Region { return b.region }

// PathStyle reports whether the bucket name is carried in the URL path
// instead of the host.
func (b *Bucket) PathStyle() bool { return b.pathStyle }

// Scheme returns the URL scheme requests to this bucket use.
func (b *Bucket) Scheme() string { return b.region.Scheme() }

// Host returns the value of the Host header for requests to this bucket.
func (b *Bucket) Host() string {
	if b.pathStyle {
		return b.region.Host()
	}

	return b.name + "." + b.region.Host()
}

// URL returns the absolute URL of path within the bucket.
func (b *Bucket) URL(path string) *url.URL {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	if b.pathStyle {
		path = "/" + b.name + path
	}

	return &url.URL{
		Scheme: b.Scheme(),
		Host:   b.Host(),
		Path:   path,
	}
}

// ExtraHeaders returns the name/value pairs attached to every request
// for this bucket, in the order they were configured.
func (b *Bucket) ExtraHeaders() [][2]string {
	out := make([][2]string, len(b.headers))
	copy(out, b.headers)

	return out
}

// RefreshCredentials retrieves credentials, refreshing them first when
// the cached set has expired.
func (b *Bucket) RefreshCredentials(ctx context.Context) error {
	if _, err := b.creds.Retrieve(ctx); err != nil {
		return fmt.Errorf("retrieving credentials for bucket %s: %w", b.name, err)
	}

	return nil
}

// Credentials returns the current cached credentials.
func (b *Bucket) Credentials(ctx context.Context) (aws.Credentials, error) {
	return b.creds.Retrieve(ctx)
}

// Option is a functional option for New.
type Option func(*options) error

type options struct {
	pathStyle    bool
	headers      [][2]string
	expiryWindow time.Duration
}

// WithPathStyle addresses the bucket as host/bucket/key instead of
// bucket.host/key.
func WithPathStyle() Option {
	return func(o *options) error {
		o.pathStyle = true
		return nil
	}
}

// WithHeader adds a header sent with every request to the bucket.
func WithHeader(name, value string) Option {
	return func(o *options) error {
		if strings.TrimSpace(name) == "" {
			return errors.New("header name must not be empty")
		}

		for i, kv := range o.headers {
			if strings.EqualFold(kv[0], name) {
				o.headers[i][1] = value
				return nil
			}
		}

		o.headers = append(o.headers, [2]string{name, value})
		return nil
	}
}

// WithExpiryWindow refreshes credentials this long before they expire. It
// is rejected by New when the provider is already an *aws.CredentialsCache.
func WithExpiryWindow(d time.Duration) Option {
	return func(o *options) error {
		if d < 0 {
			return errors.New("expiry window must not be negative")
		}
		o.expiryWindow = d
		return nil
	}
}
