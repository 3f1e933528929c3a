/*
 * Copyright © 2025 Vivek Rajagopal, All rights reserved.
 */

// Package config loads library configuration from a YAML file with
// environment overrides. A .env file, when present, is loaded first so
// local development and CI can inject the same variables the deployed
// environment provides.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables overriding file values.
const (
	EnvProjectID      = "DATASTORE_PROJECT_ID"
	EnvNamespace      = "DATASTORE_NAMESPACE"
	EnvEmulatorHost   = "DATASTORE_EMULATOR_HOST"
	EnvSearchEndpoint = "SEARCH_SERVICE_ENDPOINT"
	EnvSearchAPIKey   = "SEARCH_SERVICE_API_KEY"
)

// Config is the top-level library configuration.
type Config struct {
	Datastore DatastoreConfig `yaml:"datastore"`
	Search    SearchConfig    `yaml:"search"`
}

// DatastoreConfig configures the Cloud Datastore driver.
type DatastoreConfig struct {
	ProjectID string `yaml:"projectId"`
	Namespace string `yaml:"namespace"`
	// EmulatorHost, when set, points the driver at a local emulator
	// instead of the live service.
	EmulatorHost string `yaml:"emulatorHost"`
}

// SearchConfig configures the search service client.
type SearchConfig struct {
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"apiKey"`
}

// Load reads the YAML file at path (optional; pass "" for env-only
// configuration), then applies .env and process environment overrides.
func Load(path string) (*Config, error) {
	// Missing .env files are fine; explicit variables still apply.
	_ = godotenv.Load()

	cfg := &Config{}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %q: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %q: %w", path, err)
		}
	}
	cfg.applyEnv()

	if cfg.Datastore.ProjectID == "" {
		return nil, fmt.Errorf("datastore project id is required (set %s or datastore.projectId)", EnvProjectID)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvProjectID); v != "" {
		c.Datastore.ProjectID = v
	}
	if v := os.Getenv(EnvNamespace); v != "" {
		c.Datastore.Namespace = v
	}
	if v := os.Getenv(EnvEmulatorHost); v != "" {
		c.Datastore.EmulatorHost = v
	}
	if v := os.Getenv(EnvSearchEndpoint); v != "" {
		c.Search.Endpoint = v
	}
	if v := os.Getenv(EnvSearchAPIKey); v != "" {
		c.Search.APIKey = v
	}
}
