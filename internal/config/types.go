package config

import "time"

// Config represents the complete palisade configuration.
type Config struct {
	Service  ServiceConfig  `yaml:"service"`
	Platform PlatformConfig `yaml:"platform"`
	Webhook  WebhookConfig  `yaml:"webhook"`
	API      APIConfig      `yaml:"api,omitempty"`
	Storage  StorageConfig  `yaml:"storage"`
}

// ServiceConfig defines core service settings.
type ServiceConfig struct {
	Name      string `yaml:"name"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// PlatformConfig defines how to reach the deployment platform API.
type PlatformConfig struct {
	BaseURL        string        `yaml:"base_url"`
	APIKey         string        `yaml:"api_key"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// WebhookConfig defines the inbound webhook listener settings.
type WebhookConfig struct {
	Listen      string        `yaml:"listen"`
	Path        string        `yaml:"path"`
	Secret      string        `yaml:"secret"`
	Tolerance   time.Duration `yaml:"tolerance"`
	MaxBodySize string        `yaml:"max_body_size"`
	// Dedupe drops redeliveries of a webhook-id already seen within
	// DedupeTTL. Off by default: the platform retries on non-2xx, and a
	// retried delivery is normally one we failed to handle.
	Dedupe    bool          `yaml:"dedupe"`
	DedupeTTL time.Duration `yaml:"dedupe_ttl"`
}

// APIConfig defines admin API server settings.
type APIConfig struct {
	Enabled bool          `yaml:"enabled"`
	Listen  string        `yaml:"listen"`
	Auth    APIAuthConfig `yaml:"auth"`
}

// APIAuthConfig defines API authentication settings.
type APIAuthConfig struct {
	// APIKey is the legacy single bearer token (admin/full access).
	// Prefer Tokens for scoped access.
	APIKey string     `yaml:"api_key"`
	Tokens []APIToken `yaml:"tokens,omitempty"`
}

// APIToken defines a bearer token and its scopes.
type APIToken struct {
	Token  string   `yaml:"token"`
	Scopes []string `yaml:"scopes"`
}

// StorageConfig defines delivery ledger storage settings.
type StorageConfig struct {
	Path string `yaml:"path"`
	// Retention bounds how long delivery rows and dedupe claims are kept.
	Retention time.Duration `yaml:"retention"`
}

// Defaults returns a Config with sensible defaults.
func Defaults() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:      "palisade",
			LogLevel:  "info",
			LogFormat: "json",
		},
		Platform: PlatformConfig{
			BaseURL:        "https://api.miruml.com/v1",
			RequestTimeout: 30 * time.Second,
		},
		Webhook: WebhookConfig{
			Listen:      ":8080",
			Path:        "/webhooks/miru",
			Tolerance:   5 * time.Minute,
			MaxBodySize: "1MB",
			Dedupe:      false,
			DedupeTTL:   24 * time.Hour,
		},
		API: APIConfig{
			Enabled: false,
			Listen:  "127.0.0.1:9090",
			Auth: APIAuthConfig{
				APIKey: "",
			},
		},
		Storage: StorageConfig{
			Path:      "./data/palisade.db",
			Retention: 30 * 24 * time.Hour,
		},
	}
}
