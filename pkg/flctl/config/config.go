package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v2"
)

const (
	VersionV1 = "v1"
)

// Config is the on-disk flctl configuration. It carries the default backend
// host, the default organization, and the upstream OAuth settings used by the
// login proxy.
type Config struct {
	Version  string   `yaml:"version"`
	Server   string   `yaml:"server,omitempty"`
	Org      string   `yaml:"org,omitempty"`
	Auth     Auth     `yaml:"auth,omitempty"`
	Settings Settings `yaml:"settings,omitempty"`
}

type Settings struct {
	OutputFormat string `yaml:"output-format,omitempty"`
	Timeout      string `yaml:"timeout,omitempty"`
	TokenStorage string `yaml:"token-storage,omitempty"`
}

// Auth configures the upstream OAuth provider and the local capture proxy.
// The client secret is confidential and only ever used by the proxy; it can
// be inlined, pulled from an env var, or read from a file.
type Auth struct {
	AuthorizeURL     string   `yaml:"authorize-url,omitempty"`
	TokenURL         string   `yaml:"token-url,omitempty"`
	ClientID         string   `yaml:"client-id,omitempty"`
	ClientSecret     string   `yaml:"client-secret,omitempty"`
	ClientSecretEnv  string   `yaml:"client-secret-env,omitempty"`
	ClientSecretFile string   `yaml:"client-secret-file,omitempty"`
	Scopes           []string `yaml:"scopes,omitempty"`
	ProxyPort        int      `yaml:"proxy-port,omitempty"`
}

const DefaultProxyPort = 43117

func DefaultConfig() Config {
	return Config{
		Version: VersionV1,
		Settings: Settings{
			OutputFormat: "table",
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
	var cfg Config
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Version == "" {
		cfg.Version = VersionV1
	}
	return &cfg, nil
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
	if c.Version == "" {
		return errors.New("config version missing")
	}
	if c.Server != "" {
		if _, err := url.ParseRequestURI(c.Server); err != nil {
			return fmt.Errorf("invalid server URL: %w", err)
		}
	}
	if c.Auth.AuthorizeURL != "" && strings.TrimSpace(c.Auth.ClientID) == "" {
		return errors.New("auth client-id is required when authorize-url is set")
	}
	return nil
}

// ProxyPort returns the configured local capture proxy port or the default.
func (c *Config) ProxyPort() int {
	if c.Auth.ProxyPort > 0 {
		return c.Auth.ProxyPort
	}
	return DefaultProxyPort
}

// ResolveClientSecret resolves the confidential client secret from the inline
// value, the env var, or the file, in that order.
func (a Auth) ResolveClientSecret() (string, error) {
	if a.ClientSecret != "" {
		return a.ClientSecret, nil
	}
	if a.ClientSecretEnv != "" {
		value := strings.TrimSpace(os.Getenv(a.ClientSecretEnv))
		if value == "" {
			return "", fmt.Errorf("client secret env var not set: %s", a.ClientSecretEnv)
		}
		return value, nil
	}
	if a.ClientSecretFile != "" {
		content, err := os.ReadFile(a.ClientSecretFile)
		if err != nil {
			return "", fmt.Errorf("failed to read client secret file: %w", err)
		}
		return strings.TrimSpace(string(content)), nil
	}
	return "", nil
}
