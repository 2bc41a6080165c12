package server

import (
	"testing"
)

// TestDefaultConfig verifies the shipped defaults.
func TestDefaultConfig(t *testing.T) {
	cfg := NewConfig()

	if cfg.ListenPort != 8765 {
		t.Errorf("Expected default port 8765, got %d", cfg.ListenPort)
	}
	if cfg.Addr() != ":8765" {
		t.Errorf("Expected default addr :8765, got %s", cfg.Addr())
	}
	if cfg.MaxMessageSize != 512 {
		t.Errorf("Expected default max message size 512, got %d", cfg.MaxMessageSize)
	}
	if cfg.RoomsFile != "" {
		t.Errorf("Expected no default rooms file, got %q", cfg.RoomsFile)
	}
}

// TestNewConfigFromEnv verifies that environment variables override defaults
// and that unparsable values fall back.
func TestNewConfigFromEnv(t *testing.T) {
	t.Setenv("CHAT_SERVER_LISTEN_PORT", "9100")
	t.Setenv("ALLOWED_ORIGINS", "http://a.example.com, http://b.example.com")
	t.Setenv("MAX_MESSAGE_SIZE", "1024")
	t.Setenv("CHAT_SERVER_ROOMS_FILE", "/etc/roomchat/rooms.yaml")

	cfg := NewConfigFromEnv()

	if cfg.ListenPort != 9100 {
		t.Errorf("Expected port 9100, got %d", cfg.ListenPort)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[0] != "http://a.example.com" {
		t.Errorf("Unexpected origins: %v", cfg.AllowedOrigins)
	}
	if cfg.MaxMessageSize != 1024 {
		t.Errorf("Expected max message size 1024, got %d", cfg.MaxMessageSize)
	}
	if cfg.RoomsFile != "/etc/roomchat/rooms.yaml" {
		t.Errorf("Unexpected rooms file: %q", cfg.RoomsFile)
	}
}

// TestNewConfigFromEnvIgnoresInvalidValues verifies fallback on bad input.
func TestNewConfigFromEnvIgnoresInvalidValues(t *testing.T) {
	t.Setenv("CHAT_SERVER_LISTEN_PORT", "not-a-port")
	t.Setenv("MAX_MESSAGE_SIZE", "-5")

	cfg := NewConfigFromEnv()

	if cfg.ListenPort != 8765 {
		t.Errorf("Expected fallback port 8765, got %d", cfg.ListenPort)
	}
	if cfg.MaxMessageSize != 512 {
		t.Errorf("Expected fallback max message size 512, got %d", cfg.MaxMessageSize)
	}
}

// TestSetConfigSanitizes verifies that out-of-range settings are repaired
// when the configuration is applied.
func TestSetConfigSanitizes(t *testing.T) {
	t.Cleanup(func() {
		SetConfig(nil)
	})

	SetConfig(&Config{ListenPort: -1, MaxMessageSize: 0})

	applied := currentConfig()
	if applied.ListenPort != 8765 {
		t.Errorf("Expected sanitized port 8765, got %d", applied.ListenPort)
	}
	if applied.MaxMessageSize != 512 {
		t.Errorf("Expected sanitized max message size 512, got %d", applied.MaxMessageSize)
	}
}
