package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

const (
	EnvKindeDomain       = "KINDE_AUTH_DOMAIN"
	EnvKindeDomainLegacy = "KINDE_DOMAIN"
	EnvKindeClientID     = "KINDE_CLIENT_ID"
	EnvKindeClientSecret = "KINDE_CLIENT_SECRET"

	EnvTokenStorage = "ARCLIO_TOKEN_STORAGE"
	EnvOutput       = "ARCLIO_OUTPUT"
	EnvVerbose      = "ARCLIO_VERBOSE"
	EnvNoBrowser    = "ARCLIO_NO_BROWSER"

	DotEnvFile = ".env"
)

// LoadDotEnv exports the variables of a dotenv file into the process environment.
// Variables that are already set win. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = DotEnvFile
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// EnvBool reports whether the variable is set to a true value.
func EnvBool(name string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(name))) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// KindeSettings are the provider settings after the environment is applied.
type KindeSettings struct {
	Domain        string
	ClientID      string
	ClientSecret  string
	VerifyIDToken bool
}

// Configured reports whether every value the provider needs is present.
func (k KindeSettings) Configured() bool {
	return k.Domain != "" && k.ClientID != "" && k.ClientSecret != ""
}

// ResolveKinde layers the environment over the config file.
func (c *Config) ResolveKinde() (KindeSettings, error) {
	settings := KindeSettings{
		Domain:        firstNonEmpty(os.Getenv(EnvKindeDomain), os.Getenv(EnvKindeDomainLegacy), c.Kinde.Domain),
		ClientID:      firstNonEmpty(os.Getenv(EnvKindeClientID), c.Kinde.ClientID),
		VerifyIDToken: c.Kinde.VerifyIDToken,
	}
	settings.Domain = NormalizeDomain(settings.Domain)

	if secret := strings.TrimSpace(os.Getenv(EnvKindeClientSecret)); secret != "" {
		settings.ClientSecret = secret
		return settings, nil
	}
	secret, err := ResolveClientSecret(c.Kinde.ClientSecret, c.Kinde.ClientSecretEnv, c.Kinde.ClientSecretFile)
	if err != nil {
		return settings, err
	}
	settings.ClientSecret = secret
	return settings, nil
}

// NormalizeDomain turns "acme.kinde.com" into "https://acme.kinde.com" and drops
// trailing slashes.
func NormalizeDomain(domain string) string {
	domain = strings.TrimSpace(domain)
	if domain == "" {
		return ""
	}
	if !strings.HasPrefix(domain, "http://") && !strings.HasPrefix(domain, "https://") {
		domain = "https://" + domain
	}
	return strings.TrimRight(domain, "/")
}

func ResolveClientSecret(secret, secretEnv, secretFile string) (string, error) {
	if secret != "" {
		return secret, nil
	}
	if secretEnv != "" {
		value := strings.TrimSpace(os.Getenv(secretEnv))
		if value == "" {
			return "", fmt.Errorf("client secret env var not set: %s", secretEnv)
		}
		return value, nil
	}
	if secretFile != "" {
		bytes, err := os.ReadFile(secretFile)
		if err != nil {
			return "", fmt.Errorf("failed to read client secret file: %w", err)
		}
		return strings.TrimSpace(string(bytes)), nil
	}
	return "", nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
