package ratelimit

import (
	"net/http/httptest"
	"testing"
	"time"
)

func TestLimiter_AllowsBurstThenBlocks(t *testing.T) {
	l := New(3, time.Hour)
	defer l.Close()

	for i := 0; i < 3; i++ {
		if !l.Allow("10.0.0.1") {
			t.Fatalf("attempt %d blocked, want allowed", i+1)
		}
	}
	if l.Allow("10.0.0.1") {
		t.Fatalf("attempt 4 allowed, want blocked")
	}
	if !l.Allow("10.0.0.2") {
		t.Fatalf("other key blocked, want allowed")
	}
}

func TestLimiter_PeekDoesNotConsume(t *testing.T) {
	l := New(1, time.Hour)
	defer l.Close()

	if !l.Peek("k") || !l.Peek("k") {
		t.Fatalf("Peek should not consume tokens")
	}
	if !l.Allow("k") {
		t.Fatalf("Allow after Peek blocked")
	}
	if l.Peek("k") {
		t.Fatalf("Peek after exhausting burst = true, want false")
	}
}

func TestLimiter_Reset(t *testing.T) {
	l := New(1, time.Hour)
	defer l.Close()

	l.Allow("k")
	if l.Allow("k") {
		t.Fatalf("second attempt allowed before reset")
	}
	l.Reset("k")
	if !l.Allow("k") {
		t.Fatalf("attempt after reset blocked")
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name   string
		header map[string]string
		remote string
		want   string
	}{
		{"forwarded", map[string]string{"X-Forwarded-For": "1.2.3.4, 10.0.0.1"}, "10.0.0.1:1234", "1.2.3.4"},
		{"real ip", map[string]string{"X-Real-IP": " 5.6.7.8 "}, "10.0.0.1:1234", "5.6.7.8"},
		{"remote with port", nil, "9.9.9.9:5555", "9.9.9.9"},
		{"remote without port", nil, "9.9.9.9", "9.9.9.9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.header {
				r.Header.Set(k, v)
			}
			if got := ClientIP(r); got != tt.want {
				t.Errorf("ClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
