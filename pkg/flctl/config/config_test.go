package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Server = "https://faultline.example.com"
	cfg.Org = "acme"
	cfg.Auth = Auth{
		AuthorizeURL: "https://id.example.com/authorize",
		TokenURL:     "https://id.example.com/token",
		ClientID:     "cli",
		Scopes:       []string{"openid", "offline_access"},
		ProxyPort:    43200,
	}
	require.NoError(t, Save(path, &cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, VersionV1, loaded.Version)
	assert.Equal(t, "https://faultline.example.com", loaded.Server)
	assert.Equal(t, "acme", loaded.Org)
	assert.Equal(t, "cli", loaded.Auth.ClientID)
	assert.Equal(t, []string{"openid", "offline_access"}, loaded.Auth.Scopes)
	assert.Equal(t, 43200, loaded.Auth.ProxyPort)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_EmptyPath(t *testing.T) {
	_, err := Load("")
	assert.Error(t, err)
}

func TestLoad_DefaultsVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: https://x.example.com\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, VersionV1, cfg.Version)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	cfg.Server = "not a url"
	assert.Error(t, cfg.Validate())

	cfg.Server = "https://ok.example.com"
	cfg.Auth.AuthorizeURL = "https://id.example.com/authorize"
	assert.Error(t, cfg.Validate(), "authorize-url without client-id")

	cfg.Auth.ClientID = "cli"
	assert.NoError(t, cfg.Validate())
}

func TestProxyPort_Default(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, DefaultProxyPort, cfg.ProxyPort())

	cfg.Auth.ProxyPort = 50000
	assert.Equal(t, 50000, cfg.ProxyPort())
}

func TestResolveClientSecret(t *testing.T) {
	// Inline value wins
	a := Auth{ClientSecret: "inline"}
	secret, err := a.ResolveClientSecret()
	require.NoError(t, err)
	assert.Equal(t, "inline", secret)

	// Env var
	t.Setenv("FLCTL_TEST_SECRET", "  from-env\n")
	a = Auth{ClientSecretEnv: "FLCTL_TEST_SECRET"}
	secret, err = a.ResolveClientSecret()
	require.NoError(t, err)
	assert.Equal(t, "from-env", secret)

	// Unset env var is an error
	a = Auth{ClientSecretEnv: "FLCTL_TEST_SECRET_UNSET"}
	_, err = a.ResolveClientSecret()
	assert.Error(t, err)

	// File
	path := filepath.Join(t.TempDir(), "secret")
	require.NoError(t, os.WriteFile(path, []byte("from-file\n"), 0o600))
	a = Auth{ClientSecretFile: path}
	secret, err = a.ResolveClientSecret()
	require.NoError(t, err)
	assert.Equal(t, "from-file", secret)

	// No secret configured resolves to empty, not an error
	secret, err = Auth{}.ResolveClientSecret()
	require.NoError(t, err)
	assert.Empty(t, secret)
}

func TestDefaultConfigPath_EnvOverride(t *testing.T) {
	t.Setenv("FLCTL_CONFIG", "/tmp/custom/config.yaml")
	assert.Equal(t, "/tmp/custom/config.yaml", DefaultConfigPath())
}
