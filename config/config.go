// Copyright 2025 The Libris Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads librarian configuration with multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override; DATABASE_URL wins for postgres)
//  2. Config file (~/.libris/config.yaml)
//  3. Default values
//
// Validation happens at load time: a misconfigured store or embedding
// provider fails Load, it does not surface later as a runtime surprise.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

var (
	// ErrInvalidStore indicates an unsupported store backend.
	ErrInvalidStore = errors.New("invalid store backend")

	// ErrInvalidProvider indicates an unsupported embedding provider.
	ErrInvalidProvider = errors.New("invalid embedding provider")

	// ErrMissingAPIKey indicates a required API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrMissingHost indicates a required provider host is missing.
	ErrMissingHost = errors.New("missing provider host")

	// ErrMissingPostgresSettings indicates incomplete postgres credentials.
	ErrMissingPostgresSettings = errors.New("incomplete postgres settings")

	// ErrInvalidDimensions indicates a non-positive embedding dimensionality.
	ErrInvalidDimensions = errors.New("invalid embedding dimensions")

	// ErrInvalidThreshold indicates a similarity threshold outside [0, 1].
	ErrInvalidThreshold = errors.New("invalid similarity threshold")
)

// Store backend identifiers used in Config.Store.
const (
	StorePostgres = "postgres"
	StoreBadger   = "badger"
)

// Embedding provider identifiers used in Config.Provider.
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
	ProviderNone   = "none"
)

// Config stores librarian configuration.
// SECURITY: Sensitive fields are explicitly masked in MarshalJSON().
type Config struct {
	// Store backend selection
	Store      string `mapstructure:"store" json:"store"` // "badger" (default) or "postgres"
	BadgerPath string `mapstructure:"badger_path" json:"badger_path"`

	// PostgreSQL configuration (only used when store is "postgres")
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`
	ResourcesTable   string `mapstructure:"resources_table" json:"resources_table"`

	// Embedding provider configuration
	Provider       string `mapstructure:"provider" json:"provider"` // "ollama" (default), "openai", "none"
	EmbeddingHost  string `mapstructure:"embedding_host" json:"embedding_host"`
	EmbeddingModel string `mapstructure:"embedding_model" json:"embedding_model"`
	APIKey         string `mapstructure:"api_key" json:"api_key"` // SENSITIVE: masked in MarshalJSON
	Dimensions     int    `mapstructure:"dimensions" json:"dimensions"`

	// Search configuration
	SimilarityThreshold float32 `mapstructure:"similarity_threshold" json:"similarity_threshold"`
}

// Load loads configuration.
// Priority: Environment variables > Configuration file > Default values
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}
	configDir := filepath.Join(home, ".libris")

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	setDefaults(v, configDir)
	bindEnvVariables(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file falls back to defaults.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL overrides the individual postgres_* settings.
	if err := cfg.parseDatabaseURL(os.Getenv("DATABASE_URL")); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults(v *viper.Viper, configDir string) {
	// Store defaults: local badger needs no credentials
	v.SetDefault("store", StoreBadger)
	v.SetDefault("badger_path", filepath.Join(configDir, "data"))

	// PostgreSQL defaults
	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_user", "libris")
	v.SetDefault("postgres_password", "")
	v.SetDefault("postgres_db_name", "libris")
	v.SetDefault("postgres_ssl_mode", "disable")
	v.SetDefault("resources_table", "resources")

	// Embedding defaults
	v.SetDefault("provider", ProviderOllama)
	v.SetDefault("embedding_host", "http://localhost:11434")
	v.SetDefault("embedding_model", "nomic-embed-text")
	v.SetDefault("dimensions", 768)

	// Search defaults
	v.SetDefault("similarity_threshold", 0.60)
}

// bindEnvVariables binds environment overrides explicitly.
func bindEnvVariables(v *viper.Viper) {
	// Hardcoded keys cannot fail to bind; a panic here is a bug
	mustBind := func(key, envVar string) {
		if err := v.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("store", "LIBRIS_STORE")
	mustBind("badger_path", "LIBRIS_BADGER_PATH")
	mustBind("resources_table", "LIBRIS_RESOURCES_TABLE")

	mustBind("provider", "LIBRIS_PROVIDER")
	mustBind("embedding_host", "LIBRIS_EMBEDDING_HOST")
	mustBind("embedding_model", "LIBRIS_EMBEDDING_MODEL")
	mustBind("dimensions", "LIBRIS_DIMENSIONS")
	mustBind("api_key", "OPENAI_API_KEY")

	mustBind("similarity_threshold", "LIBRIS_SIMILARITY_THRESHOLD")
}

// Validate checks the configuration for caller-visible mistakes: unknown
// backends, missing credentials, out-of-range tunables.
func (c *Config) Validate() error {
	switch c.Store {
	case StoreBadger:
	case StorePostgres:
		if c.PostgresHost == "" || c.PostgresUser == "" || c.PostgresDBName == "" {
			return fmt.Errorf("%w: host, user and db name are required", ErrMissingPostgresSettings)
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidStore, c.Store)
	}

	switch c.Provider {
	case ProviderNone:
	case ProviderOllama:
		if c.EmbeddingHost == "" {
			return fmt.Errorf("%w: ollama provider needs embedding_host", ErrMissingHost)
		}
	case ProviderOpenAI:
		if c.APIKey == "" && c.EmbeddingHost == "" {
			return fmt.Errorf("%w: openai provider needs OPENAI_API_KEY or a custom embedding_host", ErrMissingAPIKey)
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidProvider, c.Provider)
	}

	if c.Provider != ProviderNone && c.Dimensions <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidDimensions, c.Dimensions)
	}
	if c.SimilarityThreshold < 0 || c.SimilarityThreshold > 1 {
		return fmt.Errorf("%w: %g", ErrInvalidThreshold, c.SimilarityThreshold)
	}

	return nil
}

// maskedValue is the placeholder for masked sensitive data.
const maskedValue = "████████"

// maskSecret masks a secret string for safe logging. Short secrets are
// fully masked; longer ones keep two characters on each end for debug
// utility.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON implements json.Marshaler with explicit sensitive field masking.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.PostgresPassword = maskSecret(a.PostgresPassword)
	a.APIKey = maskSecret(a.APIKey)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
