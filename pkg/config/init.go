package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// InitConfig writes a default configuration file to the default location
// (GetDefaultConfigPath), creating parent directories as needed. It fails
// if a config file already exists there unless force is true.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath writes a default configuration file to path, creating
// parent directories as needed. It fails if a file already exists at path
// unless force is true.
func InitConfigToPath(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	cfg := GetDefaultConfig()
	content, err := generateYAMLWithComments(cfg)
	if err != nil {
		return fmt.Errorf("failed to generate config: %w", err)
	}

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// generateYAMLWithComments marshals cfg to YAML and prepends a header
// comment naming each top-level section, matching the annotated style an
// operator hand-editing the file would expect.
func generateYAMLWithComments(cfg *Config) (string, error) {
	// Go through a map keyed by the mapstructure tags rather than
	// yaml.Marshal(cfg) directly, so the generated keys match what Load
	// (viper + mapstructure) expects on the way back in.
	var asMap map[string]any
	if err := mapstructure.Decode(cfg, &asMap); err != nil {
		return "", fmt.Errorf("failed to convert config to map: %w", err)
	}

	body, err := yaml.Marshal(asMap)
	if err != nil {
		return "", fmt.Errorf("failed to marshal config: %w", err)
	}

	var b strings.Builder
	b.WriteString("# DittoFS Configuration File\n")
	b.WriteString("#\n")
	b.WriteString("# logging:  log level, format and output destination\n")
	b.WriteString("# server:   shutdown timeout and metrics endpoint\n")
	b.WriteString("# content:  file-content store backing the badger metadata backend\n")
	b.WriteString("# metadata: the cache backend (memory or badger) and its capacity tuning\n")
	b.WriteString("# shares:   exported directories and their access/identity-mapping rules\n")
	b.WriteString("# adapters: protocol front ends (NFS, ...)\n")
	b.WriteString("#\n")
	b.Write(body)

	return b.String(), nil
}
