package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

var ErrInvalidSignature = errors.New("invalid or expired signature")

// Signer mints and verifies time-limited URLs for stored media. Paths are
// bucket-relative; the signature covers bucket, path and expiry.
type Signer struct {
	Secret []byte
	Bucket string
	Now    func() time.Time
}

func (s Signer) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s Signer) sign(path string, expires int64) string {
	mac := hmac.New(sha256.New, s.Secret)
	fmt.Fprintf(mac, "%s\n%s\n%d", s.Bucket, path, expires)
	return hex.EncodeToString(mac.Sum(nil))
}

// SignedURL returns a relative URL granting access to path until the TTL
// elapses.
func (s Signer) SignedURL(path string, ttl time.Duration) string {
	expires := s.now().Add(ttl).Unix()
	v := url.Values{}
	v.Set("expires", strconv.FormatInt(expires, 10))
	v.Set("sig", s.sign(path, expires))
	return "/media/" + url.PathEscape(s.Bucket) + "/" + path + "?" + v.Encode()
}

// Verify checks the signature and expiry for a previously signed path.
func (s Signer) Verify(path, sig string, expires int64) error {
	if expires < s.now().Unix() {
		return ErrInvalidSignature
	}
	want := s.sign(path, expires)
	if !hmac.Equal([]byte(want), []byte(sig)) {
		return ErrInvalidSignature
	}
	return nil
}
