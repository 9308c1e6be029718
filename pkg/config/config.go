package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/Zmugha1/sandi-bot/pkg/errors"
)

// Config holds all application configuration
type Config struct {
	// App
	Port string
	Env  string

	// Data layout
	DataDir   string // root for journal, snapshot, uploads
	RulesPath string // declarative coaching rules (YAML)
	SeedPath  string // seed client population (YAML)

	// Local model (OpenAI-compatible endpoint, e.g. llama.cpp or Ollama)
	ModelURL    string
	ModelID     string
	ModelAPIKey string
	ModelSeed   int

	// Optional Neo4j mirror for graph visualization
	Neo4jURI      string
	Neo4jUser     string
	Neo4jPassword string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	dataDir := getEnv("DATA_DIR", "data")

	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		DataDir:       dataDir,
		RulesPath:     getEnv("RULES_PATH", filepath.Join(dataDir, "rules.yaml")),
		SeedPath:      getEnv("SEED_PATH", filepath.Join(dataDir, "clients_seed.yaml")),
		ModelURL:      getEnv("MODEL_URL", "http://localhost:11434"),
		ModelID:       getEnv("MODEL_ID", "qwen2.5:3b-instruct"),
		ModelAPIKey:   getEnv("MODEL_API_KEY", ""),
		ModelSeed:     getEnvInt("MODEL_SEED", 42),
		Neo4jURI:      getEnv("NEO4J_URI", ""),
		Neo4jUser:     getEnv("NEO4J_USER", "neo4j"),
		Neo4jPassword: getEnv("NEO4J_PASSWORD", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration values are set
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return errors.NewConfigMissingRequired("DATA_DIR")
	}
	if c.ModelURL == "" {
		return errors.NewConfigMissingRequired("MODEL_URL")
	}
	if c.ModelID == "" {
		return errors.NewConfigMissingRequired("MODEL_ID")
	}
	// Neo4j mirror is optional; credentials are only needed when a URI is set
	if c.Neo4jURI != "" && c.Neo4jUser == "" {
		return errors.NewConfigMissingRequired("NEO4J_USER")
	}
	return nil
}

// MirrorEnabled reports whether the optional Neo4j graph mirror is configured
func (c *Config) MirrorEnabled() bool {
	return c.Neo4jURI != ""
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}
