package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates the settings of the service, read from the environment.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Model    ModelConfig
	Sim      SimConfig
	LogLevel string
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
}

// DatabaseConfig describes the relational store.
type DatabaseConfig struct {
	URL           string
	NotifyChannel string
}

// Model providers.
const (
	ProviderHTTP   = "http"
	ProviderOpenAI = "openai"
)

// ModelConfig describes the remote language model service.
type ModelConfig struct {
	Provider    string
	BaseURL     string
	APIKey      string
	Model       string
	Timeout     time.Duration
	Temperature float64
	MaxTokens   int
}

// SimConfig holds the simulation tunables.
type SimConfig struct {
	HistoryLimit   int
	DefaultPersona string
	DataDir        string
}

// Load reads the configuration from environment variables.  Callers load
// a .env file first when one exists.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}
	model, err := loadModelConfig()
	if err != nil {
		return nil, err
	}
	sim, err := loadSimConfig()
	if err != nil {
		return nil, err
	}
	return &Config{
		Server: server,
		Database: DatabaseConfig{
			URL:           getEnvOrDefault("DATABASE_URL", "sqlite://./data/simbot.db"),
			NotifyChannel: getEnvOrDefault("POSTGRES_NOTIFY_CHANNEL", "sim_sessions"),
		},
		Model:    model,
		Sim:      sim,
		LogLevel: getEnvOrDefault("BOT_LOG_LEVEL", "info"),
	}, nil
}

func loadServerConfig() (ServerConfig, error) {
	port := getEnvOrDefault("PORT", "8080")
	if strings.Contains(port, ":") {
		// ":8080" or "127.0.0.1:8080"
		return ServerConfig{Addr: port}, nil
	}
	if _, err := strconv.Atoi(port); err != nil {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}
	return ServerConfig{Addr: ":" + port}, nil
}

func loadModelConfig() (ModelConfig, error) {
	provider := strings.ToLower(getEnvOrDefault("MODEL_PROVIDER", ProviderHTTP))
	if provider != ProviderHTTP && provider != ProviderOpenAI {
		return ModelConfig{}, fmt.Errorf("invalid MODEL_PROVIDER value %q", provider)
	}

	timeout := 60
	if v, err := parseOptionalIntEnv("MODEL_TIMEOUT_SECONDS"); err != nil {
		return ModelConfig{}, err
	} else if v != nil {
		timeout = *v
	}

	temperature := 0.6
	if v, err := parseOptionalFloatEnv("MODEL_TEMPERATURE"); err != nil {
		return ModelConfig{}, err
	} else if v != nil {
		temperature = *v
	}

	maxTokens := 512
	if v, err := parseOptionalIntEnv("MODEL_MAX_TOKENS"); err != nil {
		return ModelConfig{}, err
	} else if v != nil {
		maxTokens = *v
	}

	cfg := ModelConfig{
		Provider:    provider,
		BaseURL:     getEnvOrDefault("API_BASE_URL", "http://localhost:8000"),
		APIKey:      strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		Model:       getEnvOrDefault("OPENAI_MODEL_CHAT", "gpt-4o-mini"),
		Timeout:     time.Duration(timeout) * time.Second,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}
	if provider == ProviderOpenAI {
		// API_BASE_URL points at the /llm/chat service; the OpenAI client
		// only honours an explicit OPENAI_BASE_URL.
		cfg.BaseURL = strings.TrimSpace(os.Getenv("OPENAI_BASE_URL"))
		if cfg.APIKey == "" {
			return ModelConfig{}, fmt.Errorf("OPENAI_API_KEY must be set when MODEL_PROVIDER=openai")
		}
	}
	return cfg, nil
}

func loadSimConfig() (SimConfig, error) {
	history := 12
	if v, err := parseOptionalIntEnv("HISTORY_LIMIT"); err != nil {
		return SimConfig{}, err
	} else if v != nil {
		if *v < 1 {
			history = 1
		} else {
			history = *v
		}
	}
	return SimConfig{
		HistoryLimit:   history,
		DefaultPersona: getEnvOrDefault("DEFAULT_PATIENT_SLUG", "sofia-gastro"),
		DataDir:        getEnvOrDefault("DATA_DIR", "./data"),
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return nil, nil
	}
	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return nil, nil
	}
	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
