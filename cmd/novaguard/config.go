package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Config holds the server configuration, loaded from the environment
// with an optional .env file for development.
type Config struct {
	Addr     string
	DBPath   string
	LogLevel string

	// Provider selects the chat backend: "anthropic" or "openai".
	Provider     string
	Model        string
	AnthropicKey string
	OpenAIKey    string

	OpenFDAKey string

	// AuthToken, when set, is required as a bearer token on every
	// endpoint except the health check.
	AuthToken string
}

// LoadConfig reads the environment. A missing .env file is fine; real
// deployments set the environment directly.
func LoadConfig() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Addr:         getEnvOrDefault("NOVAGUARD_ADDR", ":8080"),
		DBPath:       getEnvOrDefault("NOVAGUARD_DB", "file:novaguard.db"),
		LogLevel:     getEnvOrDefault("NOVAGUARD_LOG_LEVEL", "info"),
		Provider:     getEnvOrDefault("NOVAGUARD_PROVIDER", "anthropic"),
		Model:        os.Getenv("NOVAGUARD_MODEL"),
		AnthropicKey: os.Getenv("ANTHROPIC_API_KEY"),
		OpenAIKey:    os.Getenv("OPENAI_API_KEY"),
		OpenFDAKey:   os.Getenv("OPENFDA_API_KEY"),
		AuthToken:    os.Getenv("NOVAGUARD_AUTH_TOKEN"),
	}
	return cfg, cfg.Validate()
}

// Validate checks that the selected provider has a key.
func (c Config) Validate() error {
	switch c.Provider {
	case "anthropic":
		if c.AnthropicKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required with provider %q", c.Provider)
		}
	case "openai":
		if c.OpenAIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required with provider %q", c.Provider)
		}
	default:
		return fmt.Errorf("unknown provider %q (want anthropic or openai)", c.Provider)
	}
	return nil
}

func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
