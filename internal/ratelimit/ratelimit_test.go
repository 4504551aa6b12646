package ratelimit

import (
	"testing"
	"time"
)

func TestWindowAllowsUpToLimit(t *testing.T) {
	w := NewWindow(3, time.Minute)
	for i := 0; i < 3; i++ {
		if !w.Allow("u1") {
			t.Fatalf("request %d denied", i+1)
		}
	}
	if w.Allow("u1") {
		t.Fatal("request over limit allowed")
	}
	if !w.Allow("u2") {
		t.Fatal("independent key denied")
	}
}

func TestWindowSlides(t *testing.T) {
	now := time.Unix(1000, 0)
	w := NewWindow(2, time.Minute)
	w.Now = func() time.Time { return now }
	if !w.Allow("u1") || !w.Allow("u1") {
		t.Fatal("initial requests denied")
	}
	if w.Allow("u1") {
		t.Fatal("over limit allowed")
	}
	now = now.Add(61 * time.Second)
	if !w.Allow("u1") {
		t.Fatal("request after window denied")
	}
}

func TestWindowZeroLimitDisables(t *testing.T) {
	w := NewWindow(0, time.Minute)
	for i := 0; i < 100; i++ {
		if !w.Allow("u1") {
			t.Fatal("disabled limiter denied a request")
		}
	}
}
