// PPDrive - Self-Hosted Object and Asset Storage Services
// Copyright 2026 dududaa
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dududaa/ppdrive

// Package config holds the manager's own configuration and the
// ServiceConfig value that crosses the control wire.
//
// Manager configuration is loaded with Koanf v2 from layered sources,
// highest priority last:
//
//  1. built-in defaults
//  2. optional YAML config file
//  3. PPDRIVE_* environment variables
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/dududaa/ppdrive/internal/logging"
)

// DefaultManagerPort is the control port the manager listens on.
const DefaultManagerPort = 5025

// DefaultConfigPaths lists where the config file is searched, in order.
var DefaultConfigPaths = []string{
	"ppdrive.yaml",
	"ppdrive.yml",
	"/etc/ppdrive/ppdrive.yaml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "PPDRIVE_CONFIG"

// Manager is the configuration of the manager daemon itself.
type Manager struct {
	// Port the control listener binds to.
	Port uint16 `koanf:"port"`

	// InstallDir overrides the plugin install directory. Empty means
	// the directory of the running executable (or the working
	// directory in dev builds).
	InstallDir string `koanf:"install_dir"`

	// SecretsPath overrides the location of the secrets file. Empty
	// means <install dir>/.ppdrive_secret.
	SecretsPath string `koanf:"secrets_path"`

	// MetricsPort, when non-zero, exposes Prometheus metrics on
	// 127.0.0.1:<port>/metrics.
	MetricsPort uint16 `koanf:"metrics_port"`

	Logging logging.Config `koanf:"logging"`
}

func defaultManager() *Manager {
	return &Manager{
		Port: DefaultManagerPort,
		Logging: logging.Config{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadManager loads the manager configuration from defaults, the
// optional config file and the environment.
func LoadManager() (*Manager, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultManager(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	envProvider := env.Provider("PPDRIVE_", ".", envTransform)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Manager{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envTransform maps PPDRIVE_* variables to config paths:
//
//	PPDRIVE_PORT         -> port
//	PPDRIVE_INSTALL_DIR  -> install_dir
//	PPDRIVE_LOG_LEVEL    -> logging.level
func envTransform(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, "PPDRIVE_"))

	mappings := map[string]string{
		"port":            "port",
		"install_dir":     "install_dir",
		"secrets_path":    "secrets_path",
		"metrics_port":    "metrics_port",
		"log_level":       "logging.level",
		"log_format":      "logging.format",
		"log_caller":      "logging.caller",
		"log_file":        "logging.file",
		"log_max_size_mb": "logging.max_size_mb",
		"log_max_backups": "logging.max_backups",
	}

	if mapped, ok := mappings[key]; ok {
		return mapped
	}

	// Unmapped keys are skipped so unrelated PPDRIVE_* variables do
	// not pollute the config.
	return ""
}
