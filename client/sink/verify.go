package sink

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"hash"
	"strings"
)

// checksumVerifier hashes everything written to the sink and compares the
// hex digest once the body is complete.
type checksumVerifier struct {
	hash     hash.Hash
	expected string
	mismatch error
}

func (v *checksumVerifier) Write(p []byte) (int, error) {
	return v.hash.Write(p)
}

func (v *checksumVerifier) Verify() error {
	if v == nil {
		return nil
	}

	actual := hex.EncodeToString(v.hash.Sum(nil))
	if !strings.EqualFold(actual, v.expected) {
		return &Error{
			Err:    v.mismatch,
			Detail: fmt.Sprintf("expected %s, got %s", v.expected, actual),
		}
	}

	return nil
}

// etagVerifier returns a verifier for a single-part ETag, which is the
// quoted hex MD5 of the object. Multipart ETags ("<md5>-<parts>") are not
// a digest of the body and yield nil.
func etagVerifier(etag string) *checksumVerifier {
	etag = strings.Trim(strings.TrimSpace(etag), `"`)
	if etag == "" || strings.Contains(etag, "-") {
		return nil
	}

	return &checksumVerifier{
		hash:     md5.New(),
		expected: etag,
		mismatch: ErrETagMismatch,
	}
}
