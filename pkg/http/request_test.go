package http

import (
	"net/http/httptest"
	"testing"
)

func TestExtractClientIP_RemoteAddrOnly(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "203.0.113.7:51234"

	ip := ExtractClientIP(req, nil)
	if ip != "203.0.113.7" {
		t.Errorf("got %q, want 203.0.113.7", ip)
	}
}

func TestExtractClientIP_IgnoresForwardedForFromUntrustedPeer(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "203.0.113.7:51234"
	req.Header.Set("X-Forwarded-For", "198.51.100.1, 10.0.0.1")

	config := &IPConfig{TrustedProxies: []string{"10.0.0.0/8"}}

	// Peer is not a trusted proxy, so the header must not rotate the key.
	ip := ExtractClientIP(req, config)
	if ip != "203.0.113.7" {
		t.Errorf("got %q, want 203.0.113.7", ip)
	}
}

func TestExtractClientIP_HonorsForwardedForFromTrustedProxy(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.0.0.1:443"
	req.Header.Set("X-Forwarded-For", "198.51.100.1, 10.0.0.1")

	config := &IPConfig{TrustedProxies: []string{"10.0.0.0/8"}}

	ip := ExtractClientIP(req, config)
	if ip != "198.51.100.1" {
		t.Errorf("got %q, want first forwarded-for value 198.51.100.1", ip)
	}
}

func TestExtractClientIP_SkipsInvalidForwardedForEntries(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.0.0.1:443"
	req.Header.Set("X-Forwarded-For", "not-an-ip, 198.51.100.9")

	config := &IPConfig{TrustedProxies: []string{"10.0.0.0/8"}}

	ip := ExtractClientIP(req, config)
	if ip != "198.51.100.9" {
		t.Errorf("got %q, want 198.51.100.9", ip)
	}
}

func TestExtractClientIP_FallsBackToRealIP(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.0.0.1:443"
	req.Header.Set("X-Real-IP", "198.51.100.2")

	config := &IPConfig{TrustedProxies: []string{"10.0.0.0/8"}}

	ip := ExtractClientIP(req, config)
	if ip != "198.51.100.2" {
		t.Errorf("got %q, want 198.51.100.2", ip)
	}
}

func TestExtractClientIP_IPv6(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "[2001:db8::1]:51234"

	ip := ExtractClientIP(req, nil)
	if ip != "2001:db8::1" {
		t.Errorf("got %q, want 2001:db8::1", ip)
	}
}
