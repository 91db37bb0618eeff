package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleXML = `<API REQUEST_DUMP="true">
  <CONTEXT>
    <PORT>9090</PORT>
    <HOST>127.0.0.1</HOST>
  </CONTEXT>
  <AUTHENTICATION>
    <ACCESS_SECRET>xml-access</ACCESS_SECRET>
  </AUTHENTICATION>
  <DB>
    <HOST>db.internal</HOST>
    <PORT>5433</PORT>
    <NAMES MINDTRACK="wellness"/>
    <USERNAME>mt</USERNAME>
    <PASSWORD TYPE="plain">from-xml</PASSWORD>
  </DB>
  <LLM PROVIDER="Ollama">
    <TIMEOUT_SECONDS>5</TIMEOUT_SECONDS>
  </LLM>
  <GOALS SEED_DEFAULTS="true">
    <PER_ASSESSMENT>2</PER_ASSESSMENT>
  </GOALS>
</API>`

func TestParseAppliesValuesAndDefaults(t *testing.T) {
	c, err := Parse(strings.NewReader(sampleXML))
	require.NoError(t, err)

	assert.True(t, c.RequestDump)
	assert.Equal(t, 9090, c.Context.Port)
	assert.Equal(t, "127.0.0.1", c.Context.Host)
	assert.Equal(t, "xml-access", c.Authentication.AccessSecret)
	assert.Equal(t, "mindtrack-dev-refresh-secret", c.Authentication.RefreshSecret)
	assert.Equal(t, 15*time.Minute, c.Authentication.AccessTTL())

	assert.Equal(t, "ollama", c.LLM.Provider)
	assert.Equal(t, "http://localhost:11434", c.LLM.URL)
	assert.Equal(t, "mistral", c.LLM.Model)
	assert.Equal(t, 5*time.Second, c.LLM.Timeout())
	assert.Equal(t, 10, c.LLM.ChatHistory)

	assert.Equal(t, 5*time.Minute, c.Cache.TTL())
	assert.Empty(t, c.Cache.Addr)
	assert.Equal(t, 1.0, c.RateLimit.RequestsPerSecond)
	assert.Equal(t, 5, c.RateLimit.Burst)

	assert.True(t, c.Goals.SeedDefaults)
	assert.Equal(t, 2, c.Goals.PerAssessment)
	assert.Equal(t, 7*24*time.Hour, c.Goals.Horizon())

	assert.Equal(t, "host=db.internal port=5433 user=mt password=from-xml dbname=wellness sslmode=disable", c.DB.DSN())
}

func TestEnvironmentOverridesXML(t *testing.T) {
	t.Setenv(EnvDBPassword, "from-env")
	t.Setenv(EnvAccessSecret, "env-access")
	t.Setenv(EnvRedisAddr, "redis:6379")

	c, err := Parse(strings.NewReader(sampleXML))
	require.NoError(t, err)

	assert.Equal(t, "from-env", c.DB.Password.Value)
	assert.Equal(t, "env-access", c.Authentication.AccessSecret)
	assert.Equal(t, "redis:6379", c.Cache.Addr)
}

func TestCheckSecrets(t *testing.T) {
	tests := []struct {
		name string
		auth AuthenticationConfig
		ok   bool
	}{
		{"missing", AuthenticationConfig{}, false},
		{"defaults", AuthenticationConfig{AccessSecret: DevAccessSecret, RefreshSecret: DevRefreshSecret}, false},
		{"one default", AuthenticationConfig{AccessSecret: "s3cret-a", RefreshSecret: DevRefreshSecret}, false},
		{"shared", AuthenticationConfig{AccessSecret: "same", RefreshSecret: "same"}, false},
		{"configured", AuthenticationConfig{AccessSecret: "s3cret-a", RefreshSecret: "s3cret-r"}, true},
		{"opt in", AuthenticationConfig{AllowDevSecrets: true, AccessSecret: DevAccessSecret, RefreshSecret: DevRefreshSecret}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.auth.CheckSecrets()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInsecureSecrets)
			}
		})
	}
}

func TestDefaultSecretsNeedOptIn(t *testing.T) {
	t.Setenv(EnvAccessSecret, "")
	t.Setenv(EnvRefreshSecret, "")
	t.Setenv(EnvAllowDevAuth, "")
	assert.ErrorIs(t, Default().Authentication.CheckSecrets(), ErrInsecureSecrets)

	t.Setenv(EnvAllowDevAuth, "true")
	assert.NoError(t, Default().Authentication.CheckSecrets())
}

func TestParseRejectsMalformedXML(t *testing.T) {
	_, err := Parse(strings.NewReader("<API><CONTEXT>"))
	assert.Error(t, err)
}

func TestLoadConfig(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.xml"))
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "config.xml")
	require.NoError(t, os.WriteFile(path, []byte(sampleXML), 0o600))

	c, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Same(t, c, GetConfig())
}

func TestDefaultHasNoProvider(t *testing.T) {
	c := Default()
	assert.Empty(t, c.LLM.Provider)
	assert.Equal(t, 8080, c.Context.Port)
	assert.Equal(t, 3, c.Goals.PerAssessment)
	assert.False(t, c.Goals.SeedDefaults)
	assert.False(t, c.Metrics.Public)
	assert.Equal(t, "127.0.0.1:9091", c.Metrics.Addr)
}
