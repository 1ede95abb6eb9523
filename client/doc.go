// Package client executes storage request descriptors over a pooled HTTP
// transport and hands out the single-use response through one of four
// consumption modes.
//
// # Building a Client
//
// Use [Build] to create a [Client] with functional options:
//
//	c, err := client.Build(
//		client.WithTimeout(10 * time.Second),
//		client.WithUserAgent("myapp/1.0"),
//		client.WithFailOnError(true),
//	)
//
// # Sending Requests
//
// Descriptors come from the request package. [Client.Send] dispatches one
// and returns a [Response] as soon as headers arrive:
//
//	b, _ := bucket.New("photos", region, bucket.StaticCredentials(ak, sk, ""))
//	d, err := request.New(ctx, b, "/2024/cat.jpg", request.GetObject{})
//	resp, err := c.Send(ctx, d)
//
// # Consuming Responses
//
// A response body can be read once, in one of four ways:
//
//	data, err := resp.Data(false)   // whole body in memory
//	h, status := resp.Header()      // headers only, body discarded
//	status, err := resp.Drain(w)    // chunk by chunk into an io.Writer
//	s := resp.Stream()              // lazily pulled chunks
//	for chunk, err := range s.Chunks() { ... }
//
// The Client methods [Client.ResponseData], [Client.ResponseHeader],
// [Client.ResponseDataToWriter] and [Client.ResponseDataToStream] combine
// both steps.
//
// For writing to files with integrity checks, see the
// [github.com/adamwoolhether/s3req/client/sink] package.
package client
