package storage

import (
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"
)

func TestSignedURLRoundTrip(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	s := Signer{Secret: []byte("test-secret"), Bucket: "rewards", Now: func() time.Time { return now }}

	raw := s.SignedURL("sub-1/receipt.png", 15*time.Minute)
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !strings.HasPrefix(u.Path, "/media/rewards/") {
		t.Fatalf("unexpected path %s", u.Path)
	}
	expires, err := strconv.ParseInt(u.Query().Get("expires"), 10, 64)
	if err != nil {
		t.Fatalf("expires: %v", err)
	}
	if err := s.Verify("sub-1/receipt.png", u.Query().Get("sig"), expires); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	s := Signer{Secret: []byte("test-secret"), Bucket: "rewards", Now: func() time.Time { return now }}
	raw := s.SignedURL("a.png", time.Minute)
	u, _ := url.Parse(raw)
	expires, _ := strconv.ParseInt(u.Query().Get("expires"), 10, 64)

	s.Now = func() time.Time { return now.Add(2 * time.Minute) }
	if err := s.Verify("a.png", u.Query().Get("sig"), expires); err == nil {
		t.Fatal("expired signature accepted")
	}
}

func TestVerifyRejectsTamperedPath(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	s := Signer{Secret: []byte("test-secret"), Bucket: "rewards", Now: func() time.Time { return now }}
	raw := s.SignedURL("a.png", time.Minute)
	u, _ := url.Parse(raw)
	expires, _ := strconv.ParseInt(u.Query().Get("expires"), 10, 64)
	if err := s.Verify("b.png", u.Query().Get("sig"), expires); err == nil {
		t.Fatal("tampered path accepted")
	}
}
