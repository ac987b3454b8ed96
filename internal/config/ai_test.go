package config

import "testing"

// TestFullModelName tests provider-qualified model name resolution.
func TestFullModelName(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		model    string
		want     string
	}{
		{name: "openai", provider: ProviderOpenAI, model: "gpt-4-turbo-preview", want: "openai/gpt-4-turbo-preview"},
		{name: "gemini uses googleai prefix", provider: ProviderGemini, model: "gemini-2.5-flash", want: "googleai/gemini-2.5-flash"},
		{name: "ollama", provider: ProviderOllama, model: "llama3.3", want: "ollama/llama3.3"},
		{name: "already qualified", provider: ProviderOpenAI, model: "openai/gpt-4o", want: "openai/gpt-4o"},
		{name: "unknown provider falls back to openai", provider: "", model: "gpt-4o", want: "openai/gpt-4o"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Provider: tt.provider, ModelName: tt.model}
			if got := cfg.FullModelName(); got != tt.want {
				t.Errorf("FullModelName() = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestIsProduction tests environment detection.
func TestIsProduction(t *testing.T) {
	tests := []struct {
		env  string
		want bool
	}{
		{EnvProduction, true},
		{"Production", true},
		{EnvDevelopment, false},
		{"", false},
		{"staging", false},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			cfg := &Config{Env: tt.env}
			if got := cfg.IsProduction(); got != tt.want {
				t.Errorf("IsProduction() with env %q = %v, want %v", tt.env, got, tt.want)
			}
		})
	}
}

// TestListenAddr tests host:port formatting.
func TestListenAddr(t *testing.T) {
	cfg := &Config{Host: "0.0.0.0", Port: 8000}
	if got := cfg.ListenAddr(); got != "0.0.0.0:8000" {
		t.Errorf("ListenAddr() = %q, want %q", got, "0.0.0.0:8000")
	}
}
