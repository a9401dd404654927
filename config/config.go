package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Shopify   ShopifyConfig
	Editor    EditorConfig
	Matching  MatchingConfig
	Session   SessionConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// ShopifyConfig holds cart API configuration
type ShopifyConfig struct {
	CartAddURL string   `mapstructure:"cart_add_url"`
	SectionIDs []string `mapstructure:"section_ids"`
}

// EditorConfig holds personalization-editor bridge configuration
type EditorConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	PollAttempts int           `mapstructure:"poll_attempts"`
}

// MatchingConfig holds variant-matching configuration
type MatchingConfig struct {
	MinConfidenceThreshold float64 `mapstructure:"min_confidence_threshold"`
	EnableDebugLogging     bool    `mapstructure:"enable_debug_logging"`
}

// SessionConfig holds shopper-session configuration
type SessionConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP int `mapstructure:"per_ip"`
	Burst int `mapstructure:"burst"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/udopaints/")

	// Environment variable settings
	v.SetEnvPrefix("UDOPAINTS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set default values
	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; using environment variables and defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"https://*.myshopify.com"})

	// Shopify defaults. The empty cart_add_url default registers the key so
	// Unmarshal consults AutomaticEnv for it; without a default or config
	// file entry viper never reads UDOPAINTS_SHOPIFY_CART_ADD_URL at all.
	v.SetDefault("shopify.cart_add_url", "")
	v.SetDefault("shopify.section_ids", []string{"cart-drawer", "cart-icon-bubble"})

	// Editor defaults
	v.SetDefault("editor.base_url", "")
	v.SetDefault("editor.poll_interval", "500ms")
	v.SetDefault("editor.poll_attempts", 10)

	// Matching defaults
	v.SetDefault("matching.min_confidence_threshold", 50.0)
	v.SetDefault("matching.enable_debug_logging", false)

	// Session defaults
	v.SetDefault("session.ttl", "24h")

	// Rate limit defaults
	v.SetDefault("ratelimit.per_ip", 60)
	v.SetDefault("ratelimit.burst", 20)
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Shopify.CartAddURL == "" {
		return fmt.Errorf("cart add URL is required (set UDOPAINTS_SHOPIFY_CART_ADD_URL)")
	}

	if config.Editor.PollAttempts <= 0 {
		return fmt.Errorf("editor poll attempts must be positive, got: %d", config.Editor.PollAttempts)
	}

	if config.Session.TTL <= 0 {
		return fmt.Errorf("session TTL must be positive, got: %s", config.Session.TTL)
	}

	return nil
}
