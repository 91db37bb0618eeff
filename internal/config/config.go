package config

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

var (
	cfg *APIConfig
	mu  sync.RWMutex
)

// Environment variables that override values from the XML file.
const (
	EnvDBPassword    = "MINDTRACK_DB_PASSWORD"
	EnvAccessSecret  = "MINDTRACK_JWT_ACCESS_SECRET"
	EnvRefreshSecret = "MINDTRACK_JWT_REFRESH_SECRET"
	EnvAllowDevAuth  = "MINDTRACK_ALLOW_DEV_SECRETS"
	EnvOpenAIKey     = "OPENAI_API_KEY"
	EnvLLMURL        = "MINDTRACK_LLM_URL"
	EnvRedisAddr     = "MINDTRACK_REDIS_ADDR"
	EnvMetricsAddr   = "MINDTRACK_METRICS_ADDR"
)

// APIConfig represents the root element.
type APIConfig struct {
	XMLName        xml.Name             `xml:"API"`
	RequestDump    bool                 `xml:"REQUEST_DUMP,attr"`
	Context        ContextConfig        `xml:"CONTEXT"`
	Authentication AuthenticationConfig `xml:"AUTHENTICATION"`
	DB             DBConfig             `xml:"DB"`
	LLM            LLMConfig            `xml:"LLM"`
	Cache          CacheConfig          `xml:"CACHE"`
	Logging        LoggingConfig        `xml:"LOGGING"`
	RateLimit      RateLimitConfig      `xml:"RATE_LIMIT"`
	Metrics        MetricsConfig        `xml:"METRICS"`
	Goals          GoalsConfig          `xml:"GOALS"`
}

// ContextConfig holds basic server settings.
type ContextConfig struct {
	Port        int    `xml:"PORT"`
	Host        string `xml:"HOST"`
	Path        string `xml:"PATH"`
	TimeZone    string `xml:"TIME_ZONE"`
	CORSOrigins string `xml:"CORS_ORIGINS"`
}

// Secrets used when none is configured. They are public, so the server
// only accepts them when AllowDevSecrets is set.
const (
	DevAccessSecret  = "mindtrack-dev-access-secret"
	DevRefreshSecret = "mindtrack-dev-refresh-secret"
)

// ErrInsecureSecrets reports token secrets that must not sign real sessions.
var ErrInsecureSecrets = errors.New("insecure token secrets")

// AuthenticationConfig holds token settings.
type AuthenticationConfig struct {
	AllowDevSecrets    bool   `xml:"ALLOW_DEV_SECRETS,attr"`
	AccessSecret       string `xml:"ACCESS_SECRET"`
	RefreshSecret      string `xml:"REFRESH_SECRET"`
	AccessTokenMinutes int    `xml:"ACCESS_TOKEN_MINUTES"`
	RefreshTokenHours  int    `xml:"REFRESH_TOKEN_HOURS"`
}

// DBConfig holds database connection settings.
type DBConfig struct {
	Initialize bool         `xml:"INITIALIZE"`
	Host       string       `xml:"HOST"`
	Port       int          `xml:"PORT"`
	Driver     string       `xml:"DRIVER"`
	SSLMode    string       `xml:"SSL_MODE"`
	Names      DBNames      `xml:"NAMES"`
	Username   string       `xml:"USERNAME"`
	Password   DBPassword   `xml:"PASSWORD"`
	Pool       DBPoolConfig `xml:"POOL"`
}

// DBNames holds the names defined in the DB section.
type DBNames struct {
	MindTrack string `xml:"MINDTRACK,attr"`
}

// DBPassword holds password details.
type DBPassword struct {
	Type  string `xml:"TYPE,attr"`
	Value string `xml:",chardata"`
}

// DBPoolConfig holds database connection pooling settings.
type DBPoolConfig struct {
	MaxOpenConns    int `xml:"MAX_OPEN_CONNS"`
	MaxIdleConns    int `xml:"MAX_IDLE_CONNS"`
	ConnMaxLifetime int `xml:"CONN_MAX_LIFETIME"`
}

// LLMConfig selects the text generation provider. PROVIDER is "ollama" or
// "openai"; an empty provider disables enrichment and chat falls back to
// canned replies.
type LLMConfig struct {
	Provider       string `xml:"PROVIDER,attr"`
	URL            string `xml:"URL"`
	Model          string `xml:"MODEL"`
	APIKey         string `xml:"API_KEY"`
	TimeoutSeconds int    `xml:"TIMEOUT_SECONDS"`
	ChatHistory    int    `xml:"CHAT_HISTORY"`
	CacheSize      int    `xml:"CACHE_SIZE"`
}

// CacheConfig configures the Redis dashboard cache. An empty address
// disables caching.
type CacheConfig struct {
	Addr       string `xml:"ADDR"`
	Password   string `xml:"PASSWORD"`
	DB         int    `xml:"DB"`
	TTLSeconds int    `xml:"TTL_SECONDS"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Dir        string `xml:"DIR"`
	Level      string `xml:"LEVEL"`
	MaxSizeMB  int    `xml:"MAX_SIZE_MB"`
	MaxBackups int    `xml:"MAX_BACKUPS"`
	MaxAgeDays int    `xml:"MAX_AGE_DAYS"`
}

// RateLimitConfig is the per-user token bucket for chat and insight generation.
type RateLimitConfig struct {
	RequestsPerSecond float64 `xml:"REQUESTS_PER_SECOND"`
	Burst             int     `xml:"BURST"`
}

// MetricsConfig places the Prometheus endpoint. It is served on the admin
// listener at Addr unless Public mounts it on the API router instead.
type MetricsConfig struct {
	Public bool   `xml:"PUBLIC,attr"`
	Addr   string `xml:"ADDR"`
}

// GoalsConfig controls how goals are created from recommendations.
type GoalsConfig struct {
	SeedDefaults  bool `xml:"SEED_DEFAULTS,attr"`
	PerAssessment int  `xml:"PER_ASSESSMENT"`
	HorizonDays   int  `xml:"HORIZON_DAYS"`
}

// LoadConfig loads and parses the XML configuration from the given file,
// applies environment overrides and defaults, and makes it available through
// GetConfig.
func LoadConfig(xmlPath string) (*APIConfig, error) {
	f, err := os.Open(xmlPath)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	newCfg, err := Parse(f)
	if err != nil {
		return nil, err
	}

	mu.Lock()
	cfg = newCfg
	mu.Unlock()
	return newCfg, nil
}

// Parse decodes an XML document without touching the global configuration.
func Parse(r io.Reader) (*APIConfig, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var newCfg APIConfig
	if err := xml.Unmarshal(data, &newCfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// A missing .env is normal outside development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	newCfg.applyEnv()
	newCfg.applyDefaults()
	return &newCfg, nil
}

// Default returns a configuration built only from defaults and environment.
func Default() *APIConfig {
	c := &APIConfig{}
	_ = godotenv.Load()
	c.applyEnv()
	c.applyDefaults()
	return c
}

// CheckSecrets rejects missing, default or shared token secrets unless
// AllowDevSecrets opts into them.
func (a AuthenticationConfig) CheckSecrets() error {
	if a.AllowDevSecrets {
		return nil
	}
	access, refresh := strings.TrimSpace(a.AccessSecret), strings.TrimSpace(a.RefreshSecret)
	switch {
	case access == "" || refresh == "":
		return fmt.Errorf("%w: set %s and %s", ErrInsecureSecrets, EnvAccessSecret, EnvRefreshSecret)
	case access == DevAccessSecret || refresh == DevRefreshSecret:
		return fmt.Errorf("%w: built-in development secrets in use, set %s and %s or ALLOW_DEV_SECRETS=\"true\"",
			ErrInsecureSecrets, EnvAccessSecret, EnvRefreshSecret)
	case access == refresh:
		return fmt.Errorf("%w: access and refresh secrets must differ", ErrInsecureSecrets)
	}
	return nil
}

// GetConfig returns the loaded configuration.
func GetConfig() *APIConfig {
	mu.RLock()
	defer mu.RUnlock()
	return cfg
}

func (c *APIConfig) applyEnv() {
	override := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	override(&c.DB.Password.Value, EnvDBPassword)
	override(&c.Authentication.AccessSecret, EnvAccessSecret)
	override(&c.Authentication.RefreshSecret, EnvRefreshSecret)
	override(&c.LLM.APIKey, EnvOpenAIKey)
	override(&c.LLM.URL, EnvLLMURL)
	override(&c.Cache.Addr, EnvRedisAddr)
	override(&c.Metrics.Addr, EnvMetricsAddr)
	if v, ok := os.LookupEnv(EnvAllowDevAuth); ok {
		c.Authentication.AllowDevSecrets = strings.EqualFold(strings.TrimSpace(v), "true")
	}
}

func (c *APIConfig) applyDefaults() {
	setInt := func(dst *int, v int) {
		if *dst <= 0 {
			*dst = v
		}
	}
	setStr := func(dst *string, v string) {
		if strings.TrimSpace(*dst) == "" {
			*dst = v
		}
	}

	setInt(&c.Context.Port, 8080)
	setStr(&c.Context.Host, "0.0.0.0")
	setStr(&c.Context.CORSOrigins, "*")

	setStr(&c.Authentication.AccessSecret, DevAccessSecret)
	setStr(&c.Authentication.RefreshSecret, DevRefreshSecret)
	setInt(&c.Authentication.AccessTokenMinutes, 15)
	setInt(&c.Authentication.RefreshTokenHours, 24*7)

	setStr(&c.DB.Host, "localhost")
	setInt(&c.DB.Port, 5432)
	setStr(&c.DB.Driver, "postgres")
	setStr(&c.DB.SSLMode, "disable")
	setStr(&c.DB.Names.MindTrack, "mindtrack")
	setInt(&c.DB.Pool.MaxOpenConns, 10)
	setInt(&c.DB.Pool.MaxIdleConns, 5)
	setInt(&c.DB.Pool.ConnMaxLifetime, 300)

	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))
	switch c.LLM.Provider {
	case "ollama":
		setStr(&c.LLM.URL, "http://localhost:11434")
		setStr(&c.LLM.Model, "mistral")
	case "openai":
		setStr(&c.LLM.URL, "https://api.openai.com/v1")
		setStr(&c.LLM.Model, "gpt-4o")
	}
	setInt(&c.LLM.TimeoutSeconds, 20)
	setInt(&c.LLM.ChatHistory, 10)
	setInt(&c.LLM.CacheSize, 256)

	setInt(&c.Cache.TTLSeconds, 300)

	setStr(&c.Logging.Dir, "logs")
	setStr(&c.Logging.Level, "info")
	setInt(&c.Logging.MaxSizeMB, 50)
	setInt(&c.Logging.MaxBackups, 5)
	setInt(&c.Logging.MaxAgeDays, 28)

	if c.RateLimit.RequestsPerSecond <= 0 {
		c.RateLimit.RequestsPerSecond = 1
	}
	setInt(&c.RateLimit.Burst, 5)

	setStr(&c.Metrics.Addr, "127.0.0.1:9091")

	setInt(&c.Goals.PerAssessment, 3)
	setInt(&c.Goals.HorizonDays, 7)
}

// DSN builds the postgres connection string.
func (d DBConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.Username, d.Password.Value, d.Names.MindTrack, d.SSLMode)
}

func (l LLMConfig) Timeout() time.Duration {
	return time.Duration(l.TimeoutSeconds) * time.Second
}

func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

func (a AuthenticationConfig) AccessTTL() time.Duration {
	return time.Duration(a.AccessTokenMinutes) * time.Minute
}

func (a AuthenticationConfig) RefreshTTL() time.Duration {
	return time.Duration(a.RefreshTokenHours) * time.Hour
}

func (g GoalsConfig) Horizon() time.Duration {
	return time.Duration(g.HorizonDays) * 24 * time.Hour
}
