package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config models missionboard.yml.
type Config struct {
	Server struct {
		BasePath               string `yaml:"base_path"`
		JWTSecret              string `yaml:"jwt_secret"`
		AllowLegacyActorHeader bool   `yaml:"allow_legacy_actor_header"`
	} `yaml:"server"`
	RateLimit struct {
		Requests      int `yaml:"requests"`
		WindowSeconds int `yaml:"window_seconds"`
	} `yaml:"rate_limit"`
	Media struct {
		SigningSecret     string `yaml:"signing_secret"`
		Bucket            string `yaml:"bucket"`
		DefaultTTLSeconds int    `yaml:"default_ttl_seconds"`
	} `yaml:"media"`
	Feed struct {
		EditWindowMinutes int `yaml:"edit_window_minutes"`
	} `yaml:"feed"`
	Follows struct {
		Max int `yaml:"max"`
	} `yaml:"follows"`
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.RateLimit.Requests <= 0 {
		return fmt.Errorf("config.rate_limit.requests must be positive")
	}
	if c.RateLimit.WindowSeconds <= 0 {
		return fmt.Errorf("config.rate_limit.window_seconds must be positive")
	}
	if c.Feed.EditWindowMinutes <= 0 {
		return fmt.Errorf("config.feed.edit_window_minutes must be positive")
	}
	if c.Follows.Max <= 0 {
		return fmt.Errorf("config.follows.max must be positive")
	}
	if c.Media.DefaultTTLSeconds <= 0 {
		return fmt.Errorf("config.media.default_ttl_seconds must be positive")
	}
	return nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "missionboard.yml")
}

// Default returns the default Config struct.
func Default() *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(defaultTemplate)).Decode(&cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes. Missing sections
// fall back to defaults before validation.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `server:
  base_path: /v1
  jwt_secret: ""
  allow_legacy_actor_header: false

rate_limit:
  requests: 30
  window_seconds: 60

media:
  signing_secret: ""
  bucket: missionboard-media
  default_ttl_seconds: 900

feed:
  edit_window_minutes: 60

follows:
  max: 50
`
