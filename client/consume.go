package client

import (
	"context"
	"io"
	"net/http"

	"github.com/adamwoolhether/s3req/request"
)

// ResponseData sends d and buffers the response. With etag set the body
// is not read and ResponseData.Body holds the ETag header value.
func (c *Client) ResponseData(ctx context.Context, d *request.Descriptor, etag bool) (*ResponseData, error) {
	resp, err := c.Send(ctx, d)
	if err != nil {
		return nil, err
	}

	return resp.Data(etag)
}

// ResponseHeader sends d and returns only the headers and status code.
func (c *Client) ResponseHeader(ctx context.Context, d *request.Descriptor) (http.Header, int, error) {
	resp, err := c.Send(ctx, d)
	if err != nil {
		return nil, 0, err
	}

	h, status := resp.Header()
	return h, status, nil
}

// ResponseDataToWriter sends d and copies the body to w in order.
func (c *Client) ResponseDataToWriter(ctx context.Context, d *request.Descriptor, w io.Writer) (int, error) {
	resp, err := c.Send(ctx, d)
	if err != nil {
		return 0, err
	}

	return resp.Drain(w)
}

// ResponseDataToStream sends d and returns the body as a lazy stream. The
// caller must iterate the stream to the end or Close it.
func (c *Client) ResponseDataToStream(ctx context.Context, d *request.Descriptor) (*ResponseDataStream, error) {
	resp, err := c.Send(ctx, d)
	if err != nil {
		return nil, err
	}

	return resp.Stream(), nil
}
