// Package s3req executes object-storage requests over HTTP.
//
// Targets are described with the bucket package, single operations with
// the request package, and the client package sends them and hands out
// the response as a buffer, a header probe, a writer drain or a lazy
// stream. The config package builds client options from files and the
// environment.
package s3req

import (
	"github.com/adamwoolhether/s3req/client"
)

// NewClient instantiates a new *Client with the provided options.
// If not specified, a fresh http.Client over a pooled HTTP/2-capable
// transport is used.
func NewClient(opts ...client.Option) (*client.Client, error) {
	return client.Build(opts...)
}
