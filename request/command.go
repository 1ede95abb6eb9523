package request

import (
	"crypto/md5"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"slices"
	"strconv"
)

const defaultContentType = "application/octet-stream"

// Command is a storage operation. The set is closed: only the types in
// this package implement it.
type Command interface {
	// Verb is the HTTP method the command is sent with.
	Verb() Verb
	// String is the operation name recorded on spans and metrics.
	String() string

	prepare(p *prepared) error
}

// prepared collects what a command contributes to a descriptor.
type prepared struct {
	headers  Headers
	body     []byte
	rawQuery string
}

// GetObject fetches a whole object.
type GetObject struct{}

func (GetObject) Verb() Verb { return VerbGet }
func (GetObject) String() string { return "GetObject" }
func (GetObject) prepare(*prepared) error { return nil }

// GetObjectRange fetches bytes Start..End inclusive. A nil End reads to
// the end of the object.
type GetObjectRange struct {
	Start uint64
	End   *uint64
}

func (GetObjectRange) Verb() Verb { return VerbGet }
func (GetObjectRange) String() string { return "GetObjectRange" }

// RangeHeader returns the Range header value for the command.
func (c GetObjectRange) RangeHeader() string {
	if c.End == nil {
		return fmt.Sprintf("bytes=%d-", c.Start)
	}

	return fmt.Sprintf("bytes=%d-%d", c.Start, *c.End)
}

func (c GetObjectRange) prepare(p *prepared) error {
	if c.End != nil && *c.End < c.Start {
		return fmt.Errorf("%w: end %d before start %d", ErrInvalidRange, *c.End, c.Start)
	}

	p.headers.Set("Range", c.RangeHeader())
	return nil
}

// HeadObject fetches object metadata only.
type HeadObject struct{}

func (HeadObject) Verb() Verb { return VerbHead }
func (HeadObject) String() string { return "HeadObject" }
func (HeadObject) prepare(*prepared) error { return nil }

// DeleteObject removes an object.
type DeleteObject struct{}

func (DeleteObject) Verb() Verb { return VerbDelete }
func (DeleteObject) String() string { return "DeleteObject" }
func (DeleteObject) prepare(*prepared) error { return nil }

// PutObject uploads Content in a single request. ContentType defaults
// to application/octet-stream.
type PutObject struct {
	Content     []byte
	ContentType string
}

func (PutObject) Verb() Verb { return VerbPut }
func (PutObject) String() string { return "PutObject" }

func (c PutObject) prepare(p *prepared) error {
	contentType := c.ContentType
	if contentType == "" {
		contentType = defaultContentType
	}

	p.body = c.Content
	p.headers.Set("Content-Type", contentType)
	p.headers.Set("Content-Length", strconv.Itoa(len(c.Content)))
	return nil
}

// GetObjectTagging fetches an object's tag set.
type GetObjectTagging struct{}

func (GetObjectTagging) Verb() Verb { return VerbGet }
func (GetObjectTagging) String() string { return "GetObjectTagging" }

func (GetObjectTagging) prepare(p *prepared) error {
	p.rawQuery = "tagging"
	return nil
}

// PutObjectTagging replaces an object's tag set.
type PutObjectTagging struct {
	Tags map[string]string
}

func (PutObjectTagging) Verb() Verb { return VerbPut }
func (PutObjectTagging) String() string { return "PutObjectTagging" }

type tagging struct {
	XMLName xml.Name `xml:"Tagging"`
	Tags    []tag    `xml:"TagSet>Tag"`
}

type tag struct {
	Key   string `xml:"Key"`
	Value string `xml:"Value"`
}

func (c PutObjectTagging) prepare(p *prepared) error {
	keys := make([]string, 0, len(c.Tags))
	for k := range c.Tags {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	payload := tagging{Tags: make([]tag, 0, len(keys))}
	for _, k := range keys {
		payload.Tags = append(payload.Tags, tag{Key: k, Value: c.Tags[k]})
	}

	return setXMLBody(p, payload)
}

// DeleteObjects removes up to 1000 keys from the bucket in one request.
// It must be issued against the bucket root path.
type DeleteObjects struct {
	Keys  []string
	Quiet bool
}

func (DeleteObjects) Verb() Verb { return VerbPost }
func (DeleteObjects) String() string { return "DeleteObjects" }

type deleteRequest struct {
	XMLName xml.Name       `xml:"Delete"`
	Quiet   bool           `xml:"Quiet,omitempty"`
	Objects []deleteObject `xml:"Object"`
}

type deleteObject struct {
	Key string `xml:"Key"`
}

const maxDeleteKeys = 1000

func (c DeleteObjects) prepare(p *prepared) error {
	if len(c.Keys) == 0 || len(c.Keys) > maxDeleteKeys {
		return fmt.Errorf("%w: delete needs 1 to %d keys, got %d", ErrInvalidCommand, maxDeleteKeys, len(c.Keys))
	}

	payload := deleteRequest{Quiet: c.Quiet, Objects: make([]deleteObject, len(c.Keys))}
	for i, k := range c.Keys {
		payload.Objects[i] = deleteObject{Key: k}
	}

	p.rawQuery = "delete"
	return setXMLBody(p, payload)
}

// setXMLBody encodes v as the request body and sets the headers S3
// requires for XML payloads.
func setXMLBody(p *prepared, v any) error {
	b, err := xml.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding xml payload: %w", err)
	}

	body := append([]byte(xml.Header), b...)
	sum := md5.Sum(body)

	p.body = body
	p.headers.Set("Content-Type", "application/xml")
	p.headers.Set("Content-Length", strconv.Itoa(len(body)))
	p.headers.Set("Content-MD5", base64.StdEncoding.EncodeToString(sum[:]))

	return nil
}
