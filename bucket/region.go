package bucket

import (
	"errors"
	"fmt"
	"strings"
)

const (
	schemeHTTP  = "http"
	schemeHTTPS = "https"
)

// ErrEmptyRegion is returned when parsing an empty region string.
var ErrEmptyRegion = errors.New("region must not be empty")

// awsRegions lists the regions resolved to an amazonaws.com endpoint.
// Anything else is treated as a custom endpoint.
var awsRegions = map[string]struct{}{
	"us-east-1":      {},
	"us-east-2":      {},
	"us-west-1":      {},
	"us-west-2":      {},
	"ca-central-1":   {},
	"eu-west-1":      {},
	"eu-west-2":      {},
	"eu-west-3":      {},
	"eu-central-1":   {},
	"eu-north-1":     {},
	"eu-south-1":     {},
	"ap-south-1":     {},
	"ap-east-1":      {},
	"ap-northeast-1": {},
	"ap-northeast-2": {},
	"ap-northeast-3": {},
	"ap-southeast-1": {},
	"ap-southeast-2": {},
	"sa-east-1":      {},
	"me-south-1":     {},
	"af-south-1":     {},
}

// Region identifies where a bucket lives: a named AWS region or a
// custom S3-compatible endpoint.
type Region struct {
	name   string
	host   string
	scheme string
	custom bool
}

// ParseRegion resolves s into a Region. Known AWS region names map to
// their S3 endpoint. Any other value is a custom endpoint, whose
// http:// or https:// prefix, if present, selects the scheme.
func ParseRegion(s string) (Region, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Region{}, ErrEmptyRegion
	}

	if _, ok := awsRegions[s]; ok {
		host := "s3." + s + ".amazonaws.com"
		if s == "us-east-1" {
			host = "s3.amazonaws.com"
		}

		return Region{name: s, host: host, scheme: schemeHTTPS}, nil
	}

	return CustomRegion("", s)
}

// CustomRegion builds a Region for an S3-compatible service with the
// given signing name and endpoint. The endpoint may carry a scheme.
// An empty name defaults to the endpoint host.
func CustomRegion(name, endpoint string) (Region, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return Region{}, ErrEmptyRegion
	}

	scheme := schemeHTTPS
	switch {
	case strings.HasPrefix(endpoint, "http://"):
		scheme = schemeHTTP
		endpoint = strings.TrimPrefix(endpoint, "http://")
	case strings.HasPrefix(endpoint, "https://"):
		endpoint = strings.TrimPrefix(endpoint, "https://")
	}

	endpoint = strings.TrimRight(endpoint, "/")
	if endpoint == "" || strings.Contains(endpoint, "/") {
		return Region{}, fmt.Errorf("invalid endpoint %q", endpoint)
	}

	if name == "" {
		name = endpoint
	}

	return Region{name: name, host: endpoint, scheme: scheme, custom: true}, nil
}

// Name returns the region name used for signing.
func (r Region) Name() string { return r.name }

// Host returns the endpoint host, without scheme.
func (r Region) Host() string { return r.host }

// Scheme returns "http" or "https".
func (r Region) Scheme() string { return r.scheme }

// Custom reports whether r is a non-AWS endpoint.
func (r Region) Custom() bool { return r.custom }

func (r Region) String() string {
	if r.custom {
		return r.scheme + "://" + r.host
	}

	return r.name
}
