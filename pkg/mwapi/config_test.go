package mwapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTestConfig() *Config {
	cfg := DefaultConfig()
	cfg.Host = "https://en.wikipedia.org"
	cfg.UserAgent = "mwapi-test/1.0 (test@example.org)"
	return cfg
}

func TestConfig_Validate_OK(t *testing.T) {
	require.NoError(t, validTestConfig().Validate())
}

func TestConfig_Validate_UserAgentRequired(t *testing.T) {
	cfg := validTestConfig()
	cfg.UserAgent = ""
	assert.Error(t, cfg.Validate())
}

func TestConfig_Validate_DefaultUserAgentRejected(t *testing.T) {
	cfg := validTestConfig()
	cfg.UserAgent = DefaultUserAgent
	assert.Error(t, cfg.Validate())
}

func TestConfig_Validate_HostScheme(t *testing.T) {
	cfg := validTestConfig()
	cfg.Host = "ftp://en.wikipedia.org"
	assert.Error(t, cfg.Validate())
}

func TestConfig_Validate_HostRequired(t *testing.T) {
	cfg := validTestConfig()
	cfg.Host = ""
	assert.Error(t, cfg.Validate())
}

func TestConfig_Validate_APIPathLeadingSlash(t *testing.T) {
	cfg := validTestConfig()
	cfg.APIPath = "w/api.php"
	assert.Error(t, cfg.Validate())
}

func TestConfig_Validate_NegativeRetries(t *testing.T) {
	cfg := validTestConfig()
	cfg.MaxRetries = -1
	assert.Error(t, cfg.Validate())
}

func TestConfig_Validate_BadOrigin(t *testing.T) {
	cfg := validTestConfig()
	cfg.Origin = "not a url"
	assert.Error(t, cfg.Validate())
}

func TestDefaultRetryableCode(t *testing.T) {
	assert.True(t, defaultRetryableCode("ratelimited"))
	assert.True(t, defaultRetryableCode("maxlag"))
	assert.False(t, defaultRetryableCode("badparam"))
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(&Config{Host: "https://en.wikipedia.org"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid session config")
}
