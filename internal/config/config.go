// Verascope - Deepfake Forensics and Explainability Engine
// Copyright 2026 Verascope Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/verascope/verascope

// Package config loads layered configuration with Koanf v2: built-in
// defaults, then an optional YAML file, then VERASCOPE_ environment
// variables, in increasing precedence.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/verascope/verascope/internal/logging"
	"github.com/verascope/verascope/internal/model"
	"github.com/verascope/verascope/internal/pipeline"
)

// DefaultConfigPaths lists where config files are searched, first hit wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/verascope/config.yaml",
	"/etc/verascope/config.yml",
}

// ConfigPathEnvVar overrides the config file search path.
const ConfigPathEnvVar = "VERASCOPE_CONFIG_PATH"

// envPrefix namespaces all environment overrides. Double underscores
// separate nesting levels: VERASCOPE_SERVER__PORT -> server.port.
const envPrefix = "VERASCOPE_"

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host            string        `koanf:"host" json:"host"`
	Port            int           `koanf:"port" json:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout" json:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout" json:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" json:"shutdown_timeout"`
	// RateLimit is requests per minute per client IP; 0 disables limiting.
	RateLimit int `koanf:"rate_limit" json:"rate_limit" validate:"min=0"`
	// CORSOrigins lists allowed origins; empty allows none.
	CORSOrigins []string `koanf:"cors_origins" json:"cors_origins"`
	// MaxUploadBytes caps analysis request bodies.
	MaxUploadBytes int64 `koanf:"max_upload_bytes" json:"max_upload_bytes" validate:"min=0"`
}

// StoreConfig holds the analysis archive settings.
type StoreConfig struct {
	Dir string `koanf:"dir" json:"dir" validate:"required"`
}

// Config is the root configuration.
type Config struct {
	Server   ServerConfig       `koanf:"server" json:"server"`
	Logging  logging.Config     `koanf:"logging" json:"logging"`
	Store    StoreConfig        `koanf:"store" json:"store"`
	Model    model.RemoteConfig `koanf:"model" json:"model"`
	Pipeline pipeline.Config    `koanf:"pipeline" json:"pipeline"`
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    10 * time.Minute, // Analyses can run for minutes
			ShutdownTimeout: 15 * time.Second,
			RateLimit:       60,
			CORSOrigins:     nil,
			MaxUploadBytes:  512 << 20,
		},
		Logging:  logging.DefaultConfig(),
		Store:    StoreConfig{Dir: "/data/verascope"},
		Model:    model.DefaultRemoteConfig(),
		Pipeline: pipeline.DefaultConfig(),
	}
}

// Load builds the configuration from defaults, an optional YAML file and
// environment variables.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration against the struct constraints.
func (c *Config) Validate() error {
	return validator.New().Struct(c)
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

// envTransform maps VERASCOPE_SECTION__KEY_NAME to section.key_name.
// A single underscore stays inside a key; a double underscore descends a
// nesting level.
func envTransform(key string) string {
	key = strings.TrimPrefix(key, envPrefix)
	key = strings.ToLower(key)
	return strings.ReplaceAll(key, "__", ".")
}
