// Package throttle provides an [http.RoundTripper] that rate-limits
// outbound storage requests using token buckets from
// [golang.org/x/time/rate].
//
// Each request host gets its own bucket, so with virtual-host addressing
// every storage bucket is limited on its own and a hot bucket cannot
// starve requests to the others.
//
// # Usage
//
//	rt, err := throttle.NewRoundTripper(
//		throttle.Config{RPS: 100, Burst: 20},
//		func() *slog.Logger { return slog.Default() },
//		http.DefaultTransport,
//	)
//	httpClient := &http.Client{Transport: rt}
//
// When a host's limit is exceeded, requests to it block until a token
// becomes available or the request context is cancelled.
package throttle
