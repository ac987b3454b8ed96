package config

import "strings"

// Config.Provider selects which backend serves generation and embedding.
// ModelName and EmbedderModel must name models that backend actually
// offers; the defaults target OpenAI.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"

	// providerGoogleAI is the Genkit registry prefix for Gemini models.
	// The config value stays "gemini"; only model names use this prefix.
	providerGoogleAI = "googleai"
)

// SupportedProviders lists the accepted Config.Provider values.
var SupportedProviders = []string{ProviderOpenAI, ProviderGemini, ProviderOllama}

// FullModelName qualifies ModelName with the Genkit registry prefix of
// the active provider, as in "openai/gpt-4-turbo-preview" or
// "googleai/gemini-2.5-flash". A ModelName already containing "/" passes
// through untouched.
func (c *Config) FullModelName() string {
	if strings.Contains(c.ModelName, "/") {
		return c.ModelName
	}
	switch c.Provider {
	case ProviderOllama:
		return ProviderOllama + "/" + c.ModelName
	case ProviderGemini:
		return providerGoogleAI + "/" + c.ModelName
	default:
		return ProviderOpenAI + "/" + c.ModelName
	}
}
