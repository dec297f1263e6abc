// Package config handles loading and validation of daemon configuration.
// Supports both development (env vars) and production (Secret Manager) modes.
package config

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/joho/godotenv"
)

// Config holds all daemon configuration.
// Environment determines whether credentials load from env vars (development)
// or Secret Manager (production).
type Config struct {
	// Server settings
	Port        string
	Environment string // "development" or "production"
	LogLevel    string // "debug", "info", "warn", "error"

	// GCP settings (required in production)
	GCPProject string
	StoreID    string

	// Local persistence
	StateDBPath string // SQLite file, ":memory:" for ephemeral state

	// Reachability probe
	ProbeURL      string
	ProbeInterval time.Duration

	// Analytics (optional; events go to the log when no brokers are set)
	KafkaBrokers []string
	KafkaTopic   string

	// Store-specific configuration (loaded from secrets)
	Store StoreConfig
}

// StoreConfig contains storefront backend credentials.
// In production, this is loaded from Secret Manager as JSON.
// In development, loaded from individual env vars or CONFIG_FILE.
type StoreConfig struct {
	StoreURL string `json:"store_url"`
	Account  string `json:"account"`
	APIToken string `json:"api_token"`
}

// Load reads configuration from file, environment, or Secret Manager.
// Priority: CONFIG_FILE (if set) -> ENV vars / Secret Manager.
// In development a .env file next to the binary is loaded first when present.
// Validates all required fields and returns an error if any are missing.
func Load(ctx context.Context) (*Config, error) {
	// If CONFIG_FILE is set, load everything from the JSON file
	if configPath := os.Getenv("CONFIG_FILE"); configPath != "" {
		return loadFromFile(configPath)
	}

	if envOrDefault("ENVIRONMENT", "development") != "production" {
		// Missing .env is fine; explicit env vars still apply.
		_ = godotenv.Load()
	}

	cfg := &Config{
		Port:        envOrDefault("PORT", "8080"),
		Environment: envOrDefault("ENVIRONMENT", "development"),
		LogLevel:    envOrDefault("LOG_LEVEL", "info"),
		GCPProject:  os.Getenv("GCP_PROJECT"),
		StoreID:     os.Getenv("STORE_ID"),
		StateDBPath: envOrDefault("STATE_DB_PATH", "minicart.db"),
		ProbeURL:    os.Getenv("PROBE_URL"),
	}

	interval, err := parseInterval(os.Getenv("PROBE_INTERVAL"))
	if err != nil {
		return nil, err
	}
	cfg.ProbeInterval = interval

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = splitList(brokers)
		cfg.KafkaTopic = envOrDefault("KAFKA_TOPIC", "cart-events")
	}

	// StoreID required in all environments
	if cfg.StoreID == "" {
		return nil, fmt.Errorf("STORE_ID environment variable required")
	}

	// Load store credentials based on environment
	if cfg.Environment == "production" {
		if cfg.GCPProject == "" {
			return nil, fmt.Errorf("GCP_PROJECT required in production environment")
		}
		err = cfg.loadFromSecretManager(ctx)
	} else {
		err = cfg.loadFromEnv()
	}
	if err != nil {
		return nil, fmt.Errorf("loading store config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFromFile reads all configuration from a JSON file.
// Used for local development to avoid multiple ENV vars.
func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Use a struct that matches the JSON structure
	var fileConfig struct {
		Port          string      `json:"port"`
		Environment   string      `json:"environment"`
		LogLevel      string      `json:"log_level"`
		StoreID       string      `json:"store_id"`
		StateDBPath   string      `json:"state_db_path"`
		ProbeURL      string      `json:"probe_url"`
		ProbeInterval string      `json:"probe_interval"`
		KafkaBrokers  []string    `json:"kafka_brokers"`
		KafkaTopic    string      `json:"kafka_topic"`
		Store         StoreConfig `json:"store"`
	}

	if err := json.Unmarshal(data, &fileConfig); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg := &Config{
		Port:         withDefault(fileConfig.Port, "8080"),
		Environment:  withDefault(fileConfig.Environment, "development"),
		LogLevel:     withDefault(fileConfig.LogLevel, "info"),
		StoreID:      fileConfig.StoreID,
		StateDBPath:  withDefault(fileConfig.StateDBPath, "minicart.db"),
		ProbeURL:     fileConfig.ProbeURL,
		KafkaBrokers: fileConfig.KafkaBrokers,
		Store:        fileConfig.Store,
	}
	if len(cfg.KafkaBrokers) > 0 {
		cfg.KafkaTopic = withDefault(fileConfig.KafkaTopic, "cart-events")
	}

	interval, err := parseInterval(fileConfig.ProbeInterval)
	if err != nil {
		return nil, err
	}
	cfg.ProbeInterval = interval

	if cfg.StoreID == "" {
		return nil, fmt.Errorf("store_id is required")
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// withDefault returns val if non-empty, otherwise defaultVal.
func withDefault(val, defaultVal string) string {
	if val != "" {
		return val
	}
	return defaultVal
}

// loadFromSecretManager fetches store credentials from GCP Secret Manager.
// Secret name format: projects/{project}/secrets/{store_id}/versions/latest
func (c *Config) loadFromSecretManager(ctx context.Context) error {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("creating secret manager client: %w", err)
	}
	defer client.Close()

	secretName := fmt.Sprintf("projects/%s/secrets/%s/versions/latest",
		c.GCPProject, c.StoreID)

	result, err := client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: secretName,
	})
	if err != nil {
		return fmt.Errorf("accessing secret %s: %w", secretName, err)
	}

	if err := json.Unmarshal(result.Payload.Data, &c.Store); err != nil {
		return fmt.Errorf("parsing secret JSON: %w", err)
	}

	return nil
}

// loadFromEnv reads store credentials from individual environment variables.
// Used in development mode for local testing.
func (c *Config) loadFromEnv() error {
	c.Store = StoreConfig{
		StoreURL: os.Getenv("STORE_URL"),
		Account:  os.Getenv("STORE_ACCOUNT"),
		APIToken: os.Getenv("STORE_API_TOKEN"),
	}
	return nil
}

// validate checks that all required configuration fields are present.
func (c *Config) validate() error {
	if c.Store.StoreURL == "" {
		return fmt.Errorf("store_url is required")
	}
	if c.Store.Account == "" {
		return fmt.Errorf("account is required")
	}

	// Validate store URL is well-formed
	if _, err := url.Parse(c.Store.StoreURL); err != nil {
		return fmt.Errorf("invalid store_url: %w", err)
	}

	return nil
}

// parseInterval parses the probe interval, defaulting to 15s.
func parseInterval(raw string) (time.Duration, error) {
	if raw == "" {
		return 15 * time.Second, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid probe interval %q: %w", raw, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("probe interval must be positive, got %s", d)
	}
	return d, nil
}

// splitList splits a comma-separated env value, trimming whitespace.
func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// envOrDefault returns the environment variable value or the default if not set.
func envOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
