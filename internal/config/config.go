package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds persistent launcher configuration loaded from
// ~/.lanterne/config.yaml.
type Config struct {
	ClientID     string   `yaml:"client_id"`
	RedirectURI  string   `yaml:"redirect_uri"`
	AccountsFile string   `yaml:"accounts_file"`
	ExpirySkew   Duration `yaml:"expiry_skew"`
	Encrypt      *bool    `yaml:"encrypt"`
}

// Duration wraps time.Duration for YAML values like "90s" or "3m".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return d.Duration.String(), nil
}

// DefaultPath returns the default config file path: ~/.lanterne/config.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".lanterne", "config.yaml")
}

// DefaultAccountsFile returns the default account store path:
// ~/.lanterne/accounts.json.
func DefaultAccountsFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".lanterne", "accounts.json")
}

// Load reads a YAML config file from path. If the file does not exist,
// it returns an empty Config and no error. An empty or all-comment file
// also returns an empty Config with no error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// EncryptEnabled reports whether at-rest encryption is wanted. Unset means
// yes: encryption is on whenever the platform supports it.
func (c *Config) EncryptEnabled() bool {
	return c.Encrypt == nil || *c.Encrypt
}
