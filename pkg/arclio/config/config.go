package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/arclio/arclio-login/pkg/arclio/credentials"
)

const (
	VersionV1 = "v1"

	OutputText = "text"
	OutputJSON = "json"
	OutputYAML = "yaml"
)

type Config struct {
	Version  string   `yaml:"version"`
	Kinde    Kinde    `yaml:"kinde,omitempty"`
	Settings Settings `yaml:"settings,omitempty"`
}

// Kinde holds the provider settings. Only one of the client secret sources is used,
// in field order.
type Kinde struct {
	Domain           string `yaml:"domain,omitempty"`
	ClientID         string `yaml:"client-id,omitempty"`
	ClientSecret     string `yaml:"client-secret,omitempty"`
	ClientSecretEnv  string `yaml:"client-secret-env,omitempty"`
	ClientSecretFile string `yaml:"client-secret-file,omitempty"`
	VerifyIDToken    bool   `yaml:"verify-id-token,omitempty"`
}

type Settings struct {
	OutputFormat    string `yaml:"output-format,omitempty"`
	TokenStorage    string `yaml:"token-storage,omitempty"`
	CallbackTimeout string `yaml:"callback-timeout,omitempty"`
}

func DefaultConfig() Config {
	return Config{
		Version: VersionV1,
		Settings: Settings{
			OutputFormat: OutputText,
			TokenStorage: credentials.StorageFile,
		},
	}
}

func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is required")
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Version == "" {
		cfg.Version = VersionV1
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

// LoadOptional is Load for a config file that may not exist; a missing file
// yields DefaultConfig.
func LoadOptional(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		def := DefaultConfig()
		return &def, nil
	}
	return cfg, err
}

func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	if cfg.Version == "" {
		cfg.Version = VersionV1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	content, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, content, 0o600)
}

func (c *Config) Validate() error {
	if c.Version != VersionV1 {
		return fmt.Errorf("unsupported config version: %s", c.Version)
	}
	switch c.Settings.OutputFormat {
	case "", OutputText, OutputJSON, OutputYAML:
	default:
		return fmt.Errorf("unknown output format: %s", c.Settings.OutputFormat)
	}
	switch c.Settings.TokenStorage {
	case "", credentials.StorageFile, credentials.StorageKeychain:
	default:
		return fmt.Errorf("unsupported token storage: %s", c.Settings.TokenStorage)
	}
	if _, err := c.CallbackTimeout(); err != nil {
		return err
	}
	return nil
}

// CallbackTimeout returns settings.callback-timeout, or zero when unset.
func (c *Config) CallbackTimeout() (time.Duration, error) {
	if c.Settings.CallbackTimeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Settings.CallbackTimeout)
	if err != nil {
		return 0, fmt.Errorf("invalid callback-timeout: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("callback-timeout must be positive, got %s", d)
	}
	return d, nil
}
