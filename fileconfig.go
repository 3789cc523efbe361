package forgehook

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors Config for YAML decoding. Durations are Go
// duration strings ("30s", "24h"). Booleans that default to true are
// pointers so an absent key keeps the default.
type fileConfig struct {
	Provider               string `yaml:"provider"`
	Secret                 string `yaml:"secret"`
	SignatureScheme        string `yaml:"signature_scheme"`
	SupportFormEncoded     *bool  `yaml:"support_form_encoded"`
	ParsePayload           *bool  `yaml:"parse_payload"`
	RejectInvalidSignature bool   `yaml:"reject_invalid_signature"`

	Dedup struct {
		Enabled bool   `yaml:"enabled"`
		Type    string `yaml:"type"`
		TTL     string `yaml:"ttl"`
		Redis   struct {
			Address  string `yaml:"address"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
		Memory struct {
			MaxSize         int    `yaml:"max_size"`
			CleanupInterval string `yaml:"cleanup_interval"`
			EnableLRU       bool   `yaml:"enable_lru"`
		} `yaml:"memory"`
	} `yaml:"dedup"`

	Manager struct {
		APIBaseURL string `yaml:"api_base_url"`
		Token      string `yaml:"token"`
		HookURL    string `yaml:"hook_url"`
	} `yaml:"manager"`

	HTTPClient struct {
		Timeout            string `yaml:"timeout"`
		MaxRequestBodySize int64  `yaml:"max_request_body_size"`
	} `yaml:"http_client"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
}

// LoadConfig reads a YAML configuration file and overlays it on the
// defaults from NewConfig
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes YAML configuration and overlays it on the
// defaults from NewConfig. Omitted keys keep their default values. The
// result is validated before being returned.
func ParseConfig(data []byte) (*Config, error) {
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg := NewConfig().config

	if fc.Provider != "" {
		cfg.Provider = Provider(fc.Provider)
	}
	cfg.Secret = fc.Secret
	if fc.SignatureScheme != "" {
		cfg.SignatureScheme = SignatureScheme(fc.SignatureScheme)
	}
	if fc.SupportFormEncoded != nil {
		cfg.SupportFormEncoded = *fc.SupportFormEncoded
	}
	if fc.ParsePayload != nil {
		cfg.ParsePayload = *fc.ParsePayload
	}
	cfg.RejectInvalidSignature = fc.RejectInvalidSignature

	cfg.Dedup.Enabled = fc.Dedup.Enabled
	if fc.Dedup.Type != "" {
		cfg.Dedup.Type = fc.Dedup.Type
	}
	if err := overlayDuration(&cfg.Dedup.TTL, fc.Dedup.TTL, "dedup.ttl"); err != nil {
		return nil, err
	}
	cfg.Dedup.Redis.Address = fc.Dedup.Redis.Address
	cfg.Dedup.Redis.Password = fc.Dedup.Redis.Password
	cfg.Dedup.Redis.DB = fc.Dedup.Redis.DB
	if fc.Dedup.Memory.MaxSize > 0 {
		cfg.Dedup.Memory.MaxSize = fc.Dedup.Memory.MaxSize
	}
	if err := overlayDuration(&cfg.Dedup.Memory.CleanupInterval, fc.Dedup.Memory.CleanupInterval, "dedup.memory.cleanup_interval"); err != nil {
		return nil, err
	}
	cfg.Dedup.Memory.EnableLRU = fc.Dedup.Memory.EnableLRU

	cfg.Manager.APIBaseURL = fc.Manager.APIBaseURL
	cfg.Manager.Token = fc.Manager.Token
	cfg.Manager.HookURL = fc.Manager.HookURL

	if err := overlayDuration(&cfg.HTTPClient.Timeout, fc.HTTPClient.Timeout, "http_client.timeout"); err != nil {
		return nil, err
	}
	if fc.HTTPClient.MaxRequestBodySize > 0 {
		cfg.HTTPClient.MaxRequestBodySize = fc.HTTPClient.MaxRequestBodySize
	}

	if fc.Logging.Level != "" {
		cfg.Logging.Level = fc.Logging.Level
	}
	if fc.Logging.Format != "" {
		cfg.Logging.Format = fc.Logging.Format
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// overlayDuration parses a duration string into dst, leaving dst
// untouched when raw is empty
func overlayDuration(dst *time.Duration, raw, key string) error {
	if raw == "" {
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration for %s: %w", key, err)
	}
	*dst = d
	return nil
}
