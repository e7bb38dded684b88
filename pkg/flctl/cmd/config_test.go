package cmd

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faultline/faultline-cli/pkg/flctl/config"
)

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	out, err := runCommand(t, path, "config", "init",
		"--server", "https://faultline.example.com",
		"--org", "acme",
		"--authorize-url", "https://id.example.com/authorize",
		"--token-url", "https://id.example.com/token",
		"--client-id", "cli")
	require.NoError(t, err)
	assert.Contains(t, out, "Initialized config at "+path)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://faultline.example.com", cfg.Server)
	assert.Equal(t, "acme", cfg.Org)
	assert.Equal(t, "cli", cfg.Auth.ClientID)
}

func TestConfigInit_RefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	_, err := runCommand(t, path, "config", "init", "--server", "https://a.example.com")
	require.NoError(t, err)

	_, err = runCommand(t, path, "config", "init", "--server", "https://b.example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, err = runCommand(t, path, "config", "init", "--server", "https://b.example.com", "--force")
	require.NoError(t, err)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://b.example.com", cfg.Server)
}

func TestConfigView_RedactsSecret(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := config.DefaultConfig()
	cfg.Server = "https://faultline.example.com"
	cfg.Auth.ClientID = "cli"
	cfg.Auth.ClientSecret = "super-secret"
	require.NoError(t, config.Save(path, &cfg))

	out, err := runCommand(t, path, "config", "view")
	require.NoError(t, err)
	assert.Contains(t, out, "https://faultline.example.com")
	assert.Contains(t, out, "REDACTED")
	assert.NotContains(t, out, "super-secret")
}

func TestConfigSet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := config.DefaultConfig()
	cfg.Server = "https://faultline.example.com"
	require.NoError(t, config.Save(path, &cfg))

	_, err := runCommand(t, path, "config", "set", "org", "globex")
	require.NoError(t, err)

	_, err = runCommand(t, path, "config", "set", "settings.output-format", "json")
	require.NoError(t, err)

	_, err = runCommand(t, path, "config", "set", "auth.proxy-port", "43200")
	require.NoError(t, err)

	loaded, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "globex", loaded.Org)
	assert.Equal(t, "json", loaded.Settings.OutputFormat)
	assert.Equal(t, 43200, loaded.Auth.ProxyPort)
}

func TestConfigSet_RejectsUnknownKeyAndBadValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := config.DefaultConfig()
	require.NoError(t, config.Save(path, &cfg))

	_, err := runCommand(t, path, "config", "set", "bogus.key", "value")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported key")

	_, err = runCommand(t, path, "config", "set", "auth.proxy-port", "not-a-number")
	require.Error(t, err)
}
