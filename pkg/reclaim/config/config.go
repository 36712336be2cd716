package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	if path == "~" {
		return homeDir, nil
	}
	return filepath.Join(homeDir, path[1:]), nil
}

// Dir returns the configuration directory path, honoring XDG_CONFIG_HOME.
func Dir() (string, error) {
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return filepath.Join(xdgConfigHome, "reclaim"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, ".config", "reclaim"), nil
}

// ArtifactNames merges the built-in artifact name set with user
// additions. When useDefaults is false only the additions are used.
// Duplicates are removed; order is defaults first, then additions.
func ArtifactNames(additions []string, useDefaults bool) []string {
	seen := make(map[string]struct{})
	var names []string

	add := func(name string) {
		name = strings.TrimSpace(name)
		if name == "" {
			return
		}
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}

	if useDefaults {
		for _, name := range DefaultArtifactNames {
			add(name)
		}
	}
	for _, name := range additions {
		add(name)
	}

	return names
}
