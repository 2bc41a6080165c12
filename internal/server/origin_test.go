package server

import (
	"net/http/httptest"
	"testing"
)

// TestNormalizeOrigin verifies scheme/host lowercasing and rejection of
// origins missing either part.
func TestNormalizeOrigin(t *testing.T) {
	cases := []struct {
		in    string
		want  string
		valid bool
	}{
		{"http://Example.COM", "http://example.com", true},
		{"HTTPS://chat.example.com:8443", "https://chat.example.com:8443", true},
		{"example.com", "", false},
		{"http://", "", false},
		{"", "", false},
	}

	for _, tc := range cases {
		got, ok := normalizeOrigin(tc.in)
		if ok != tc.valid {
			t.Errorf("normalizeOrigin(%q): expected valid=%v, got %v", tc.in, tc.valid, ok)
			continue
		}
		if ok && got != tc.want {
			t.Errorf("normalizeOrigin(%q): expected %q, got %q", tc.in, tc.want, got)
		}
	}
}

// TestIsOriginAllowed verifies allow-list matching, the wildcard, and the
// missing-header case.
func TestIsOriginAllowed(t *testing.T) {
	t.Cleanup(func() {
		SetConfig(nil)
	})

	SetConfig(&Config{AllowedOrigins: []string{"http://chat.example.com"}})

	allowed := httptest.NewRequest("GET", "/ws", nil)
	allowed.Header.Set("Origin", "http://Chat.Example.Com")
	if !isOriginAllowed(allowed) {
		t.Error("Expected configured origin to be allowed regardless of case")
	}

	denied := httptest.NewRequest("GET", "/ws", nil)
	denied.Header.Set("Origin", "http://evil.example.com")
	if isOriginAllowed(denied) {
		t.Error("Expected unlisted origin to be denied")
	}

	noHeader := httptest.NewRequest("GET", "/ws", nil)
	if isOriginAllowed(noHeader) {
		t.Error("Expected request without an Origin header to be denied")
	}

	SetConfig(&Config{AllowedOrigins: []string{"*"}})
	if !isOriginAllowed(denied) {
		t.Error("Expected wildcard config to allow any valid origin")
	}
}
