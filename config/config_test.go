package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	// Clean up environment before tests
	cleanupEnv := func() {
		os.Unsetenv("UDOPAINTS_SERVER_PORT")
		os.Unsetenv("UDOPAINTS_SERVER_ENVIRONMENT")
		os.Unsetenv("UDOPAINTS_SERVER_ALLOWED_ORIGINS")
		os.Unsetenv("UDOPAINTS_SHOPIFY_CART_ADD_URL")
		os.Unsetenv("UDOPAINTS_EDITOR_BASE_URL")
		os.Unsetenv("UDOPAINTS_EDITOR_POLL_INTERVAL")
		os.Unsetenv("UDOPAINTS_EDITOR_POLL_ATTEMPTS")
		os.Unsetenv("UDOPAINTS_MATCHING_MIN_CONFIDENCE_THRESHOLD")
		os.Unsetenv("UDOPAINTS_MATCHING_ENABLE_DEBUG_LOGGING")
		os.Unsetenv("UDOPAINTS_SESSION_TTL")
		os.Unsetenv("UDOPAINTS_RATELIMIT_PER_IP")
		os.Unsetenv("UDOPAINTS_RATELIMIT_BURST")
	}

	t.Run("loads with defaults when no env vars set", func(t *testing.T) {
		cleanupEnv()
		// Set required cart URL
		os.Setenv("UDOPAINTS_SHOPIFY_CART_ADD_URL", "https://udo-paints.myshopify.com/cart/add.js")
		defer cleanupEnv()

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v, want nil", err)
		}

		// The required key must come through from the environment alone,
		// with no config file present.
		if cfg.Shopify.CartAddURL != "https://udo-paints.myshopify.com/cart/add.js" {
			t.Errorf("Shopify.CartAddURL = %s, want env-provided URL", cfg.Shopify.CartAddURL)
		}

		// Check defaults
		if cfg.Server.Port != "8080" {
			t.Errorf("Server.Port = %s, want 8080", cfg.Server.Port)
		}
		if cfg.Server.Environment != "development" {
			t.Errorf("Server.Environment = %s, want development", cfg.Server.Environment)
		}
		if cfg.Editor.PollInterval != 500*time.Millisecond {
			t.Errorf("Editor.PollInterval = %v, want 500ms", cfg.Editor.PollInterval)
		}
		if cfg.Editor.PollAttempts != 10 {
			t.Errorf("Editor.PollAttempts = %d, want 10", cfg.Editor.PollAttempts)
		}
		if cfg.Matching.MinConfidenceThreshold != 50.0 {
			t.Errorf("Matching.MinConfidenceThreshold = %v, want 50", cfg.Matching.MinConfidenceThreshold)
		}
		if cfg.Session.TTL != 24*time.Hour {
			t.Errorf("Session.TTL = %v, want 24h", cfg.Session.TTL)
		}
		if cfg.RateLimit.PerIP != 60 {
			t.Errorf("RateLimit.PerIP = %d, want 60", cfg.RateLimit.PerIP)
		}
		if cfg.RateLimit.Burst != 20 {
			t.Errorf("RateLimit.Burst = %d, want 20", cfg.RateLimit.Burst)
		}
		if len(cfg.Shopify.SectionIDs) != 2 {
			t.Errorf("Shopify.SectionIDs = %v, want 2 defaults", cfg.Shopify.SectionIDs)
		}
	})

	t.Run("loads custom values from environment variables", func(t *testing.T) {
		cleanupEnv()
		os.Setenv("UDOPAINTS_SERVER_PORT", "9090")
		os.Setenv("UDOPAINTS_SERVER_ENVIRONMENT", "production")
		os.Setenv("UDOPAINTS_SHOPIFY_CART_ADD_URL", "https://custom.myshopify.com/cart/add.js")
		os.Setenv("UDOPAINTS_EDITOR_BASE_URL", "https://editor.example.com")
		os.Setenv("UDOPAINTS_EDITOR_POLL_ATTEMPTS", "5")
		os.Setenv("UDOPAINTS_SESSION_TTL", "1h")
		defer cleanupEnv()

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v, want nil", err)
		}

		if cfg.Server.Port != "9090" {
			t.Errorf("Server.Port = %s, want 9090", cfg.Server.Port)
		}
		if cfg.Server.Environment != "production" {
			t.Errorf("Server.Environment = %s, want production", cfg.Server.Environment)
		}
		if cfg.Shopify.CartAddURL != "https://custom.myshopify.com/cart/add.js" {
			t.Errorf("Shopify.CartAddURL = %s, want custom URL", cfg.Shopify.CartAddURL)
		}
		if cfg.Editor.BaseURL != "https://editor.example.com" {
			t.Errorf("Editor.BaseURL = %s, want https://editor.example.com", cfg.Editor.BaseURL)
		}
		if cfg.Editor.PollAttempts != 5 {
			t.Errorf("Editor.PollAttempts = %d, want 5", cfg.Editor.PollAttempts)
		}
		if cfg.Session.TTL != time.Hour {
			t.Errorf("Session.TTL = %v, want 1h", cfg.Session.TTL)
		}
	})

	t.Run("fails without cart add URL", func(t *testing.T) {
		cleanupEnv()
		defer cleanupEnv()

		_, err := Load()
		if err == nil {
			t.Fatal("Load() error = nil, want error for missing cart add URL")
		}
	})

	t.Run("fails with non-positive session TTL", func(t *testing.T) {
		cleanupEnv()
		os.Setenv("UDOPAINTS_SHOPIFY_CART_ADD_URL", "https://udo-paints.myshopify.com/cart/add.js")
		os.Setenv("UDOPAINTS_SESSION_TTL", "0")
		defer cleanupEnv()

		_, err := Load()
		if err == nil {
			t.Fatal("Load() error = nil, want error for zero session TTL")
		}
	})

	t.Run("fails with non-positive poll attempts", func(t *testing.T) {
		cleanupEnv()
		os.Setenv("UDOPAINTS_SHOPIFY_CART_ADD_URL", "https://udo-paints.myshopify.com/cart/add.js")
		os.Setenv("UDOPAINTS_EDITOR_POLL_ATTEMPTS", "-1")
		defer cleanupEnv()

		_, err := Load()
		if err == nil {
			t.Fatal("Load() error = nil, want error for negative poll attempts")
		}
	})
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Shopify: ShopifyConfig{CartAddURL: "https://udo-paints.myshopify.com/cart/add.js"},
			Editor:  EditorConfig{PollAttempts: 10},
			Session: SessionConfig{TTL: time.Hour},
		}
	}

	t.Run("accepts a valid config", func(t *testing.T) {
		if err := validate(valid()); err != nil {
			t.Errorf("validate() error = %v, want nil", err)
		}
	})

	t.Run("rejects empty cart add URL", func(t *testing.T) {
		cfg := valid()
		cfg.Shopify.CartAddURL = ""
		if err := validate(cfg); err == nil {
			t.Error("validate() error = nil, want error")
		}
	})

	t.Run("rejects zero poll attempts", func(t *testing.T) {
		cfg := valid()
		cfg.Editor.PollAttempts = 0
		if err := validate(cfg); err == nil {
			t.Error("validate() error = nil, want error")
		}
	})

	t.Run("rejects zero session TTL", func(t *testing.T) {
		cfg := valid()
		cfg.Session.TTL = 0
		if err := validate(cfg); err == nil {
			t.Error("validate() error = nil, want error")
		}
	})
}
