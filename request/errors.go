package request

import (
	"errors"
	"fmt"
)

var (
	// ErrCredentials is wrapped by [CredentialError].
	ErrCredentials = errors.New("credentials refresh failed")
	// ErrInvalidRange is returned for a byte range whose end precedes its start.
	ErrInvalidRange = errors.New("invalid byte range")
	// ErrInvalidCommand is returned for a command with missing fields.
	ErrInvalidCommand = errors.New("invalid command")
)

// CredentialError is returned by [New] when the bucket's credentials
// could not be refreshed. No network request to the bucket was made.
type CredentialError struct {
	Bucket string
	Err    error
}

func (e *CredentialError) Error() string {
	return fmt.Sprintf("%v: bucket %s: %v", ErrCredentials, e.Bucket, e.Err)
}

func (e *CredentialError) Unwrap() []error {
	return []error{ErrCredentials, e.Err}
}
