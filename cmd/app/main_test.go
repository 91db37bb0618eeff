package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mindtrack-backend/internal/config"
)

const drainedInstagram = `{
	"current_experience": "overwhelming",
	"usage_frequency": "regularly",
	"feeling_after": "drained",
	"self_image_influence": "understand_better",
	"engagement_importance": "affected"
}`

func TestScoreCommandJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "answers.json")
	require.NoError(t, os.WriteFile(path, []byte(drainedInstagram), 0o600))

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"score", "--platform", "instagram", "--responses", path, "--json"})
	require.NoError(t, root.Execute())

	var got struct {
		Result struct {
			OverallScore float64 `json:"overall_score"`
			RiskLevel    string  `json:"risk_level"`
		} `json:"result"`
		Recommendations []json.RawMessage `json:"recommendations"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, 1.0, got.Result.OverallScore)
	assert.Equal(t, "high", got.Result.RiskLevel)
	assert.Len(t, got.Recommendations, 3)
}

func TestScoreCommandText(t *testing.T) {
	color.NoColor = true

	var out bytes.Buffer
	err := runScore(strings.NewReader(drainedInstagram), &out, scoreOptions{platform: "Instagram", responses: "-"})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Platform: Instagram")
	assert.Contains(t, out.String(), "Risk        high")
	assert.Contains(t, out.String(), "Recommendations")

	out.Reset()
	err = runScore(strings.NewReader(drainedInstagram), &out, scoreOptions{platform: "instagram", responses: "-", legacy: true})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "legacy analysis")
}

func TestScoreCommandErrors(t *testing.T) {
	var out bytes.Buffer
	err := runScore(strings.NewReader("{}"), &out, scoreOptions{platform: "myspace", responses: "-"})
	assert.ErrorContains(t, err, "unsupported platform")

	err = runScore(strings.NewReader("[1,2]"), &out, scoreOptions{platform: "twitter", responses: "-"})
	assert.ErrorContains(t, err, "JSON object")
}

func TestCorsConfig(t *testing.T) {
	all := corsConfig("*")
	assert.True(t, all.AllowAllOrigins)
	assert.False(t, all.AllowCredentials)

	listed := corsConfig("https://a.example, https://b.example")
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, listed.AllowOrigins)
	assert.True(t, listed.AllowCredentials)
}

func TestServeRefusesDevelopmentSecrets(t *testing.T) {
	cfg := &config.APIConfig{}
	cfg.Authentication.AccessSecret = config.DevAccessSecret
	cfg.Authentication.RefreshSecret = config.DevRefreshSecret

	err := serve(context.Background(), cfg)
	assert.ErrorIs(t, err, config.ErrInsecureSecrets)

	cfg.Authentication.AccessSecret = ""
	assert.ErrorIs(t, serve(context.Background(), cfg), config.ErrInsecureSecrets)
}

func TestMetricsEndpoints(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("mindtrack_up 1\n"))
	})

	public, admin := metricsEndpoints(config.MetricsConfig{Addr: "127.0.0.1:9091"}, h)
	assert.Nil(t, public)
	require.NotNil(t, admin)
	assert.Equal(t, "127.0.0.1:9091", admin.Addr)

	w := httptest.NewRecorder()
	admin.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "mindtrack_up 1\n", w.Body.String())

	w = httptest.NewRecorder()
	admin.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/dashboard", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	public, admin = metricsEndpoints(config.MetricsConfig{Public: true, Addr: "127.0.0.1:9091"}, h)
	assert.NotNil(t, public)
	assert.Nil(t, admin)

	public, admin = metricsEndpoints(config.MetricsConfig{Addr: "off"}, h)
	assert.Nil(t, public)
	assert.Nil(t, admin)
}
