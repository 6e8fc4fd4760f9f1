package config

import (
	"os"
	"path/filepath"
)

const (
	EnvConfigPath      = "ARCLIO_CONFIG"
	EnvCredentialsPath = "ARCLIO_CREDENTIALS"

	defaultConfigDirName   = "arclio"
	defaultConfigFile      = "config.yaml"
	defaultCredentialsFile = "credentials.json"
)

func DefaultConfigPath() string {
	if env := os.Getenv(EnvConfigPath); env != "" {
		return env
	}
	return filepath.Join(configDir(), defaultConfigFile)
}

// DefaultCredentialsPath is where the file token storage keeps its record.
func DefaultCredentialsPath() string {
	if env := os.Getenv(EnvCredentialsPath); env != "" {
		return env
	}
	return filepath.Join(configDir(), defaultCredentialsFile)
}

func configDir() string {
	base, err := os.UserConfigDir()
	if err == nil {
		return filepath.Join(base, defaultConfigDirName)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, "."+defaultConfigDirName)
}
