package config

import (
	"os"
	"path/filepath"
)

const (
	defaultConfigDirName = "flctl"
	defaultConfigFile    = "config.yaml"
	defaultSessionFile   = "session.json"
	defaultRegionsFile   = "regions.json"
)

func DefaultConfigPath() string {
	if env := os.Getenv("FLCTL_CONFIG"); env != "" {
		return env
	}
	base, err := os.UserConfigDir()
	if err == nil {
		return filepath.Join(base, defaultConfigDirName, defaultConfigFile)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".flctl", defaultConfigFile)
}

func DefaultSessionPath() string {
	base, err := os.UserConfigDir()
	if err == nil {
		return filepath.Join(base, defaultConfigDirName, defaultSessionFile)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".flctl", defaultSessionFile)
}

func DefaultRegionsPath() string {
	base, err := os.UserConfigDir()
	if err == nil {
		return filepath.Join(base, defaultConfigDirName, defaultRegionsFile)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".flctl", defaultRegionsFile)
}
