package forgehook

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfigFull(t *testing.T) {
	data := []byte(`
provider: github
secret: s3cr3t
signature_scheme: sha256
support_form_encoded: false
reject_invalid_signature: true

dedup:
  enabled: true
  type: redis
  ttl: 1h
  redis:
    address: localhost:6379
    password: hunter2
    db: 3

manager:
  api_base_url: https://github.example.com/api/v3
  token: ghp_token
  hook_url: https://hooks.example.com/webhook

http_client:
  timeout: 10s
  max_request_body_size: 1048576

logging:
  level: debug
  format: console
`)

	cfg, err := ParseConfig(data)
	require.NoError(t, err)

	assert.Equal(t, ProviderGitHub, cfg.Provider)
	assert.Equal(t, "s3cr3t", cfg.Secret)
	assert.Equal(t, SignatureSchemeSHA256, cfg.SignatureScheme)
	assert.False(t, cfg.SupportFormEncoded)
	assert.True(t, cfg.RejectInvalidSignature)

	assert.True(t, cfg.Dedup.Enabled)
	assert.Equal(t, "redis", cfg.Dedup.Type)
	assert.Equal(t, time.Hour, cfg.Dedup.TTL)
	assert.Equal(t, "localhost:6379", cfg.Dedup.Redis.Address)
	assert.Equal(t, "hunter2", cfg.Dedup.Redis.Password)
	assert.Equal(t, 3, cfg.Dedup.Redis.DB)

	assert.Equal(t, "https://github.example.com/api/v3", cfg.Manager.APIBaseURL)
	assert.Equal(t, "ghp_token", cfg.Manager.Token)
	assert.Equal(t, "https://hooks.example.com/webhook", cfg.Manager.HookURL)

	assert.Equal(t, 10*time.Second, cfg.HTTPClient.Timeout)
	assert.EqualValues(t, 1048576, cfg.HTTPClient.MaxRequestBodySize)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
}

func TestParseConfigKeepsDefaults(t *testing.T) {
	cfg, err := ParseConfig([]byte("provider: gitlab\n"))
	require.NoError(t, err)

	assert.Equal(t, ProviderGitLab, cfg.Provider)
	assert.Equal(t, SignatureSchemeSHA1, cfg.SignatureScheme)
	assert.True(t, cfg.SupportFormEncoded)
	assert.True(t, cfg.ParsePayload)
	assert.Equal(t, DefaultDedupTTL, cfg.Dedup.TTL)
	assert.EqualValues(t, DefaultMaxRequestBodySize, cfg.HTTPClient.MaxRequestBodySize)
	assert.Equal(t, DefaultHTTPTimeout, cfg.HTTPClient.Timeout)
}

func TestParseConfigExplicitFalse(t *testing.T) {
	data := []byte(`
support_form_encoded: false
parse_payload: false
`)

	cfg, err := ParseConfig(data)
	require.NoError(t, err)
	assert.False(t, cfg.SupportFormEncoded)
	assert.False(t, cfg.ParsePayload)
}

func TestParseConfigInvalidDuration(t *testing.T) {
	data := []byte(`
dedup:
  ttl: soon
`)

	_, err := ParseConfig(data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid duration for dedup.ttl")
}

func TestParseConfigValidationFailure(t *testing.T) {
	_, err := ParseConfig([]byte("provider: bitbucket\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid provider")
}

func TestParseConfigMalformedYAML(t *testing.T) {
	_, err := ParseConfig([]byte("provider: [broken\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config")
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "forgehook.yaml")
	require.NoError(t, os.WriteFile(path, []byte("provider: github\nsecret: s3cr3t\n"), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ProviderGitHub, cfg.Provider)
	assert.Equal(t, "s3cr3t", cfg.Secret)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}
