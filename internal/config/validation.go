package config

import (
	"fmt"
	"log/slog"
	"os"
	"slices"
)

// Validate checks every field against its allowed range. It returns the
// package's sentinel errors so callers can branch with errors.Is, and it
// never mutates the config.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	checks := []func() error{
		c.validateProvider,
		c.validateGeneration,
		c.validateRetrieval,
		c.validateChunking,
		c.validateServer,
		c.validatePostgres,
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

// validateProvider checks the provider name and whatever credentials or
// endpoint that provider needs.
func (c *Config) validateProvider() error {
	if !slices.Contains(SupportedProviders, c.Provider) {
		return fmt.Errorf("%w: %q is not valid, must be one of: %v",
			ErrInvalidProvider, c.Provider, SupportedProviders)
	}

	switch c.Provider {
	case ProviderOpenAI:
		if os.Getenv("OPENAI_API_KEY") == "" {
			return fmt.Errorf("%w: OPENAI_API_KEY environment variable is required for the openai provider",
				ErrMissingAPIKey)
		}
	case ProviderGemini:
		if os.Getenv("GEMINI_API_KEY") == "" {
			return fmt.Errorf("%w: GEMINI_API_KEY environment variable is required for the gemini provider\n"+
				"Get your API key at: https://ai.google.dev/gemini-api/docs/api-key",
				ErrMissingAPIKey)
		}
	case ProviderOllama:
		if c.OllamaHost == "" {
			return fmt.Errorf("%w: ollama_host cannot be empty", ErrInvalidOllamaHost)
		}
	}
	return nil
}

func (c *Config) validateGeneration() error {
	if c.ModelName == "" {
		return fmt.Errorf("%w: model_name cannot be empty", ErrInvalidModelName)
	}
	// 2.0 is the ceiling both OpenAI and Gemini accept.
	if c.Temperature < 0.0 || c.Temperature > 2.0 {
		return fmt.Errorf("%w: must be between 0.0 and 2.0, got %.2f", ErrInvalidTemperature, c.Temperature)
	}
	if c.MaxTokens < 1 || c.MaxTokens > 100000 {
		return fmt.Errorf("%w: must be between 1 and 100,000, got %d", ErrInvalidMaxTokens, c.MaxTokens)
	}
	return nil
}

func (c *Config) validateRetrieval() error {
	if c.TopK < 1 || c.TopK > 10 {
		return fmt.Errorf("%w: must be between 1 and 10, got %d", ErrInvalidTopK, c.TopK)
	}
	if c.EmbedderModel == "" {
		return fmt.Errorf("%w: embedder_model cannot be empty", ErrInvalidEmbedderModel)
	}
	// The dimension must match the pgvector column width created by migrations.
	if c.EmbedderDimension < 1 || c.EmbedderDimension > 16000 {
		return fmt.Errorf("%w: must be between 1 and 16,000, got %d", ErrInvalidEmbedderDimension, c.EmbedderDimension)
	}
	if c.IndexCapacity < 1 {
		return fmt.Errorf("%w: must be positive, got %d", ErrInvalidIndexCapacity, c.IndexCapacity)
	}
	return nil
}

func (c *Config) validateChunking() error {
	switch {
	case c.ChunkSize < 1:
		return fmt.Errorf("%w: chunk_size must be positive, got %d", ErrInvalidChunking, c.ChunkSize)
	case c.ChunkOverlap < 0:
		return fmt.Errorf("%w: chunk_overlap cannot be negative, got %d", ErrInvalidChunking, c.ChunkOverlap)
	case c.ChunkOverlap >= c.ChunkSize:
		return fmt.Errorf("%w: chunk_overlap (%d) must be smaller than chunk_size (%d)",
			ErrInvalidChunking, c.ChunkOverlap, c.ChunkSize)
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("%w: must be between 1 and 65535, got %d", ErrInvalidPort, c.Port)
	}
	if c.RateLimit.RPS <= 0 {
		return fmt.Errorf("%w: rps must be positive, got %g", ErrInvalidRateLimit, c.RateLimit.RPS)
	}
	if c.RateLimit.Burst < 1 {
		return fmt.Errorf("%w: burst must be at least 1, got %d", ErrInvalidRateLimit, c.RateLimit.Burst)
	}
	if c.AdminToken == "" && c.IsProduction() {
		slog.Warn("Admin endpoints are unauthenticated",
			"warning", "Set SHERPA_ADMIN_TOKEN to protect index management in production")
	}
	return nil
}

func (c *Config) validatePostgres() error {
	if c.PostgresHost == "" {
		return fmt.Errorf("%w: host cannot be empty", ErrInvalidPostgresHost)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: must be between 1 and 65535, got %d", ErrInvalidPostgresPort, c.PostgresPort)
	}
	if c.PostgresDBName == "" {
		return fmt.Errorf("%w: database name cannot be empty", ErrInvalidPostgresDBName)
	}

	switch {
	case c.PostgresPassword == "":
		return fmt.Errorf("%w: postgres_password must be set", ErrInvalidPostgresPassword)
	case len(c.PostgresPassword) < 8:
		return fmt.Errorf("%w: postgres_password must be at least 8 characters (got %d)",
			ErrInvalidPostgresPassword, len(c.PostgresPassword))
	case c.PostgresPassword == "sherpa_dev_password":
		// setDefaults ships this value, so only warn.
		slog.Warn("Using default development password for PostgreSQL",
			"warning", "Change postgres_password for production deployments")
	}

	// The deprecated allow and prefer modes are rejected because they
	// silently downgrade to plaintext.
	validSSLModes := []string{"disable", "require", "verify-ca", "verify-full"}
	if !slices.Contains(validSSLModes, c.PostgresSSLMode) {
		return fmt.Errorf("%w: %q is not valid, must be one of: %v",
			ErrInvalidPostgresSSLMode, c.PostgresSSLMode, validSSLModes)
	}
	return nil
}
