package shared

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Server      ServerConfig      `toml:"server"`
	Credentials CredentialsConfig `toml:"credentials"`
	LLM         LLMConfig         `toml:"llm"`
	Spotify     SpotifyConfig     `toml:"spotify"`
	Upstream    UpstreamConfig    `toml:"upstream"`
	Fetch       FetchConfig       `toml:"fetch"`
	Filter      FilterConfig      `toml:"filter"`
	Sessions    SessionsConfig    `toml:"sessions"`
	Log         LogConfig         `toml:"log"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host           string   `toml:"host"`
	Port           int      `toml:"port"`
	AllowedOrigins []string `toml:"allowed_origins"`
}

// Addr returns host:port for [http.Server].
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// CredentialsConfig contains service-specific credentials.
//
// Spotify has no entry: the bearer token is supplied per request by the caller.
type CredentialsConfig struct {
	OpenAI OpenAIConfig `toml:"openai"`
}

// OpenAIConfig contains chat-completions credentials.
type OpenAIConfig struct {
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
	Model   string `toml:"model"`
}

// LLMConfig tunes the curation request.
type LLMConfig struct {
	Temperature float64 `toml:"temperature"`
	Language    string  `toml:"language"`
	JSONMode    bool    `toml:"json_mode"`
}

// SpotifyConfig points the provider client at the Web API.
type SpotifyConfig struct {
	BaseURL string `toml:"base_url"`
}

// UpstreamConfig is the timeout, retry and rate policy applied to every provider call.
type UpstreamConfig struct {
	Timeout         Duration `toml:"timeout"`
	MaxAttempts     int      `toml:"max_attempts"`
	InitialInterval Duration `toml:"initial_interval"`
	MaxInterval     Duration `toml:"max_interval"`
	RatePerSecond   float64  `toml:"rate_per_second"`
	Burst           int      `toml:"burst"`
}

// FetchConfig bounds catalog retrieval.
type FetchConfig struct {
	Concurrency int `toml:"concurrency"`
	ArtistCap   int `toml:"artist_cap"`
}

// FilterConfig holds the preliminary filter fallback policy.
type FilterConfig struct {
	FallbackThreshold int `toml:"fallback_threshold"`
	FallbackSize      int `toml:"fallback_size"`
}

// SessionsConfig selects the batch session store.
type SessionsConfig struct {
	Driver     string   `toml:"driver"` // memory, sqlite, redis
	TTL        Duration `toml:"ttl"`
	SQLitePath string   `toml:"sqlite_path"`
	RedisURL   string   `toml:"redis_url"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Duration is a [time.Duration] that reads and writes TOML strings such as "30s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("%w: duration %q: %v", ErrInvalidConfig, text, err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file keep their defaults from the embedded example config.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// SaveConfig writes config to path as TOML.
func SaveConfig(path string, config *Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ApplyEnv overrides secrets and deployment knobs from the environment.
//
// lookup is usually [os.LookupEnv]; tests pass a map-backed func.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("OPENAI_API_KEY"); ok && v != "" {
		c.Credentials.OpenAI.APIKey = v
	}
	if v, ok := lookup("KURATOR_PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: KURATOR_PORT %q", ErrInvalidConfig, v)
		}
		c.Server.Port = port
	}
	if v, ok := lookup("KURATOR_REDIS_URL"); ok && v != "" {
		c.Sessions.RedisURL = v
	}
	if v, ok := lookup("KURATOR_LOG_LEVEL"); ok && v != "" {
		c.Log.Level = v
	}
	return nil
}

// Validate checks the settings the server cannot run without.
func (c *Config) Validate() error {
	if c.Credentials.OpenAI.APIKey == "" {
		return fmt.Errorf("%w: openai api_key (or OPENAI_API_KEY)", ErrMissingCredentials)
	}
	if c.Upstream.MaxAttempts < 1 {
		return fmt.Errorf("%w: upstream.max_attempts must be >= 1", ErrInvalidConfig)
	}
	switch c.Sessions.Driver {
	case "memory", "sqlite", "redis":
	default:
		return fmt.Errorf("%w: unknown sessions driver %q", ErrInvalidConfig, c.Sessions.Driver)
	}
	return nil
}
