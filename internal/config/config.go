// Package config loads and validates the service configuration.
//
// Values resolve in priority order: SHERPA_* environment variables (plus
// DATABASE_URL) override the YAML file in ~/.sherpa or the working
// directory, which overrides the built-in defaults. Load returns an
// already validated Config, and the sentinel Err* values support
// errors.Is checks at the call site.
//
// AdminToken and PostgresPassword never appear in logs: MarshalJSON and
// String mask them, and the config directory is created with 0750.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Sentinel errors returned by Validate. Each one names the setting that
// failed so callers can branch with errors.Is.
var (
	ErrConfigNil                = errors.New("configuration is nil")
	ErrMissingAPIKey            = errors.New("missing API key")
	ErrInvalidProvider          = errors.New("invalid provider")
	ErrInvalidModelName         = errors.New("invalid model name")
	ErrInvalidEmbedderModel     = errors.New("invalid embedder model")
	ErrInvalidEmbedderDimension = errors.New("invalid embedder dimension")
	ErrInvalidTemperature       = errors.New("invalid temperature")
	ErrInvalidMaxTokens         = errors.New("invalid max tokens")
	ErrInvalidTopK              = errors.New("invalid top_k")
	ErrInvalidChunking          = errors.New("invalid chunking parameters")
	ErrInvalidPort              = errors.New("invalid port")
	ErrInvalidOllamaHost        = errors.New("invalid Ollama host")
	ErrInvalidPostgresHost      = errors.New("invalid PostgreSQL host")
	ErrInvalidPostgresPort      = errors.New("invalid PostgreSQL port")
	ErrInvalidPostgresDBName    = errors.New("invalid PostgreSQL database name")
	ErrInvalidPostgresPassword  = errors.New("invalid PostgreSQL password")
	ErrInvalidPostgresSSLMode   = errors.New("invalid PostgreSQL SSL mode")
	ErrInvalidRateLimit         = errors.New("invalid rate limit")
	ErrInvalidIndexCapacity     = errors.New("invalid index capacity")
)

// Deployment environment identifiers used in Config.Env.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config is the resolved service configuration. The mapstructure tags
// drive viper.Unmarshal; fields tagged sensitive:"true" are masked by
// MarshalJSON, and any new secret needs the same tag.
type Config struct {
	// HTTP server
	Host        string   `mapstructure:"host" json:"host"`
	Port        int      `mapstructure:"port" json:"port"`
	Env         string   `mapstructure:"environment" json:"environment"` // "development" or "production"
	AdminToken  string   `mapstructure:"admin_token" json:"admin_token" sensitive:"true"` // empty disables admin auth
	CORSOrigins []string `mapstructure:"cors_origins" json:"cors_origins"`
	TrustProxy  bool     `mapstructure:"trust_proxy" json:"trust_proxy"` // honor X-Real-IP/X-Forwarded-For behind a reverse proxy

	// Provider and models (see ai.go)
	Provider          string  `mapstructure:"provider" json:"provider"`
	ModelName         string  `mapstructure:"model_name" json:"model_name"`
	EmbedderModel     string  `mapstructure:"embedder_model" json:"embedder_model"`
	EmbedderDimension int     `mapstructure:"embedder_dimension" json:"embedder_dimension"`
	Temperature       float32 `mapstructure:"temperature" json:"temperature"`
	MaxTokens         int     `mapstructure:"max_tokens" json:"max_tokens"`
	TopK              int     `mapstructure:"top_k" json:"top_k"` // default result count for retrieval

	// Only consulted when Provider is "ollama".
	OllamaHost string `mapstructure:"ollama_host" json:"ollama_host"`

	// Chunking
	ChunkSize    int `mapstructure:"chunk_size" json:"chunk_size"`
	ChunkOverlap int `mapstructure:"chunk_overlap" json:"chunk_overlap"`

	// PostgreSQL (see storage.go)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password" sensitive:"true"`
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// IndexCapacity is the nominal vector capacity used to report index
	// fullness as a 0..1 ratio in stats responses.
	IndexCapacity int `mapstructure:"index_capacity" json:"index_capacity"`

	// Logging
	LogLevel string `mapstructure:"log_level" json:"log_level"`
	LogJSON  bool   `mapstructure:"log_json" json:"log_json"`

	RateLimit RateLimitConfig `mapstructure:"rate_limit" json:"rate_limit"`
	Fetcher   FetcherConfig   `mapstructure:"fetcher" json:"fetcher"`
	Tracing   TracingConfig   `mapstructure:"tracing" json:"tracing"`
}

// Load resolves the configuration from defaults, an optional config.yaml
// and the environment, then validates it before returning.
func Load() (*Config, error) {
	configDir, err := ensureConfigDir()
	if err != nil {
		return nil, err
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".")

	setDefaults()
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Running on defaults and environment alone is fine.
		slog.Debug("no configuration file found",
			"search_paths", []string{configDir, "."},
			"config_name", "config.yaml")
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL wins over both the file and the SHERPA_POSTGRES_* vars.
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}
	return &cfg, nil
}

// ensureConfigDir creates ~/.sherpa if needed and returns its path. The
// 0750 mode keeps the directory closed to other users since a config.yaml
// placed there may hold credentials.
func ensureConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting user home directory: %w", err)
	}
	dir := filepath.Join(home, ".sherpa")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}
	return dir, nil
}

func setDefaults() {
	// Server
	viper.SetDefault("host", "0.0.0.0")
	viper.SetDefault("port", 8000)
	viper.SetDefault("environment", EnvDevelopment)
	viper.SetDefault("admin_token", "")
	viper.SetDefault("cors_origins", []string{"*"})
	viper.SetDefault("trust_proxy", false)

	// Generation and retrieval
	viper.SetDefault("provider", ProviderOpenAI)
	viper.SetDefault("model_name", "gpt-4-turbo-preview")
	viper.SetDefault("embedder_model", "text-embedding-3-small")
	viper.SetDefault("embedder_dimension", 1536)
	viper.SetDefault("temperature", 0.7)
	viper.SetDefault("max_tokens", 500)
	viper.SetDefault("top_k", 3)
	viper.SetDefault("ollama_host", "http://localhost:11434")

	// Chunking
	viper.SetDefault("chunk_size", 1000)
	viper.SetDefault("chunk_overlap", 200)

	// PostgreSQL
	viper.SetDefault("postgres_host", "localhost")
	viper.SetDefault("postgres_port", 5432)
	viper.SetDefault("postgres_user", "sherpa")
	viper.SetDefault("postgres_password", "sherpa_dev_password")
	viper.SetDefault("postgres_db_name", "sherpa")
	viper.SetDefault("postgres_ssl_mode", "disable")

	viper.SetDefault("index_capacity", 100000)

	// Logging
	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_json", false)

	// Rate limiting
	viper.SetDefault("rate_limit.rps", 10.0)
	viper.SetDefault("rate_limit.burst", 20)

	// Fetcher pacing
	viper.SetDefault("fetcher.parallelism", 2)
	viper.SetDefault("fetcher.delay_ms", 500)
	viper.SetDefault("fetcher.timeout_ms", 15000)

	// Tracing, disabled while the endpoint stays empty
	viper.SetDefault("tracing.endpoint", "")
	viper.SetDefault("tracing.service_name", "sherpa")
}

// bindEnvVariables wires every config key to its SHERPA_* override so a
// container deployment needs no config file.
//
// Provider API keys are deliberately absent here. The Genkit plugins read
// OPENAI_API_KEY and GEMINI_API_KEY themselves; Validate only checks that
// the selected provider's key is present.
func bindEnvVariables() {
	mustBind := func(key, envVar string) {
		// BindEnv with a fixed key and name cannot fail at runtime.
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	// Server
	mustBind("host", "SHERPA_HOST")
	mustBind("port", "SHERPA_PORT")
	mustBind("environment", "SHERPA_ENV")
	mustBind("admin_token", "SHERPA_ADMIN_TOKEN")
	mustBind("cors_origins", "SHERPA_CORS_ORIGINS")
	mustBind("trust_proxy", "SHERPA_TRUST_PROXY")

	// Provider and models
	mustBind("provider", "SHERPA_PROVIDER")
	mustBind("model_name", "SHERPA_MODEL_NAME")
	mustBind("embedder_model", "SHERPA_EMBEDDER_MODEL")
	mustBind("embedder_dimension", "SHERPA_EMBEDDER_DIMENSION")
	mustBind("temperature", "SHERPA_TEMPERATURE")
	mustBind("max_tokens", "SHERPA_MAX_TOKENS")
	mustBind("top_k", "SHERPA_TOP_K")
	mustBind("ollama_host", "SHERPA_OLLAMA_HOST")

	// Chunking
	mustBind("chunk_size", "SHERPA_CHUNK_SIZE")
	mustBind("chunk_overlap", "SHERPA_CHUNK_OVERLAP")

	// PostgreSQL, overridden again by DATABASE_URL in parseDatabaseURL
	mustBind("postgres_host", "SHERPA_POSTGRES_HOST")
	mustBind("postgres_port", "SHERPA_POSTGRES_PORT")
	mustBind("postgres_user", "SHERPA_POSTGRES_USER")
	mustBind("postgres_password", "SHERPA_POSTGRES_PASSWORD")
	mustBind("postgres_db_name", "SHERPA_POSTGRES_DB")
	mustBind("postgres_ssl_mode", "SHERPA_POSTGRES_SSL_MODE")

	mustBind("index_capacity", "SHERPA_INDEX_CAPACITY")

	// Logging
	mustBind("log_level", "SHERPA_LOG_LEVEL")
	mustBind("log_json", "SHERPA_LOG_JSON")

	// Rate limiting
	mustBind("rate_limit.rps", "SHERPA_RATE_RPS")
	mustBind("rate_limit.burst", "SHERPA_RATE_BURST")

	// Fetcher pacing
	mustBind("fetcher.parallelism", "SHERPA_FETCH_PARALLELISM")
	mustBind("fetcher.delay_ms", "SHERPA_FETCH_DELAY_MS")
	mustBind("fetcher.timeout_ms", "SHERPA_FETCH_TIMEOUT_MS")

	// Tracing
	mustBind("tracing.endpoint", "SHERPA_TRACE_ENDPOINT")
	mustBind("tracing.service_name", "SHERPA_TRACE_SERVICE")
}

// maskedValue replaces the hidden part of a secret. Block characters
// cannot collide with anything a real secret would contain.
const maskedValue = "████████"

// maskSecret hides a secret while leaving enough to recognize it in
// diagnostics. Secrets of eight bytes or fewer are masked whole; longer
// ones keep their first and last two characters, as in "my<████████>23".
// This guards against accidental logging, nothing stronger.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON renders the config with AdminToken and PostgresPassword
// masked. Every new sensitive field needs the same treatment here.
func (c Config) MarshalJSON() ([]byte, error) {
	type plain Config
	p := plain(c)
	p.AdminToken = maskSecret(p.AdminToken)
	p.PostgresPassword = maskSecret(p.PostgresPassword)
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// String returns the masked JSON form so %v and %s never leak a secret.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}

// IsProduction reports whether the deployment environment is production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, EnvProduction)
}

// ListenAddr returns the host:port pair the HTTP server binds to.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
