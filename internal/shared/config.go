package shared

import (
	"bytes"
	_ "embed"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	AniList   AniListConfig   `toml:"anilist"`
	MangaDex  MangaDexConfig  `toml:"mangadex"`
	Client    ClientConfig    `toml:"client"`
	Reconcile ReconcileConfig `toml:"reconcile"`
	Log       LogConfig       `toml:"log"`
}

// AniListConfig contains settings for the progress-tracking service.
type AniListConfig struct {
	GraphQLURL        string   `toml:"graphql_url"`
	AccessToken       string   `toml:"access_token"`
	ExcludeFormats    []string `toml:"exclude_formats"`
	RequestsPerSecond float64  `toml:"requests_per_second"`
}

// MangaDexConfig contains settings for the catalog service.
type MangaDexConfig struct {
	APIURL            string  `toml:"api_url"`
	SiteURL           string  `toml:"site_url"`
	LinkKey           string  `toml:"link_key"`
	SearchLimit       int     `toml:"search_limit"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// ClientConfig contains settings shared by both HTTP clients.
type ClientConfig struct {
	UserAgent string   `toml:"user_agent"`
	Timeout   Duration `toml:"timeout"`
}

// ReconcileConfig holds defaults for the reconciliation flags.
type ReconcileConfig struct {
	Language string `toml:"language"`
	Workers  int    `toml:"workers"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// Duration wraps [time.Duration] so it reads and writes as a string ("30s") in TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("%w: duration %q", ErrInvalidConfig, string(text))
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys absent from the file keep the values from [DefaultConfig].
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
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

// Validate checks URLs and numeric bounds.
func (c *Config) Validate() error {
	for name, raw := range map[string]string{
		"anilist.graphql_url": c.AniList.GraphQLURL,
		"mangadex.api_url":    c.MangaDex.APIURL,
		"mangadex.site_url":   c.MangaDex.SiteURL,
	} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%w: %s must be an absolute URL, got %q", ErrInvalidConfig, name, raw)
		}
	}

	if strings.TrimSpace(c.MangaDex.LinkKey) == "" {
		return fmt.Errorf("%w: mangadex.link_key is empty", ErrInvalidConfig)
	}
	if c.MangaDex.SearchLimit < 1 || c.MangaDex.SearchLimit > 100 {
		return fmt.Errorf("%w: mangadex.search_limit must be within 1..100, got %d", ErrInvalidConfig, c.MangaDex.SearchLimit)
	}
	if c.AniList.RequestsPerSecond < 0 || c.MangaDex.RequestsPerSecond < 0 {
		return fmt.Errorf("%w: requests_per_second cannot be negative", ErrInvalidConfig)
	}
	if strings.TrimSpace(c.Client.UserAgent) == "" {
		return fmt.Errorf("%w: client.user_agent is empty", ErrInvalidConfig)
	}
	if c.Client.Timeout.Duration < 0 {
		return fmt.Errorf("%w: client.timeout cannot be negative", ErrInvalidConfig)
	}
	if c.Reconcile.Workers < 1 {
		return fmt.Errorf("%w: reconcile.workers must be at least 1, got %d", ErrInvalidConfig, c.Reconcile.Workers)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}

	return nil
}

// Encode renders the config as TOML.
func (c *Config) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	return buf.Bytes(), nil
}
