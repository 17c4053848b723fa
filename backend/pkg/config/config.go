package config

import (
	stderrors "errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	apperrors "cybergraph/backend/pkg/errors"
)

// Config holds all application configuration
type Config struct {
	// App
	Port     string `validate:"required,numeric"`
	Env      string `validate:"oneof=development production test"`
	LogLevel string `validate:"omitempty,oneof=debug info warn error"`

	// Neo4j
	Neo4jURI          string `validate:"required,uri"`
	Neo4jUser         string `validate:"required"`
	Neo4jPassword     string `validate:"required"`
	Neo4jDatabase     string
	Neo4jQueryTimeout time.Duration

	// LLM (OpenAI-compatible endpoint: LiteLLM or Ollama)
	LLMBaseURL     string `validate:"required,url"`
	LLMAPIKey      string
	LLMModel       string  `validate:"required"`
	LLMTemperature float32 `validate:"gte=0,lte=2"`

	// Ingestion
	AttackMatrix      string `validate:"oneof=enterprise mobile ics"`
	IncludeDeprecated bool
	MaxSourceChars    int `validate:"gt=0"`
	YtdlpPath         string
	VocabularyFile    string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	cfg := &Config{
		Port:              getEnv("PORT", "8080"),
		Env:               getEnv("ENV", "development"),
		LogLevel:          getEnv("LOG_LEVEL", ""),
		Neo4jURI:          getEnv("NEO4J_URI", "bolt://localhost:7687"),
		Neo4jUser:         getEnv("NEO4J_USER", "neo4j"),
		Neo4jPassword:     getEnv("NEO4J_PASSWORD", "password"),
		Neo4jDatabase:     getEnv("NEO4J_DATABASE", "neo4j"),
		Neo4jQueryTimeout: getEnvDuration("NEO4J_QUERY_TIMEOUT", 30*time.Second),
		LLMBaseURL:        getEnv("LLM_BASE_URL", "http://localhost:11434"),
		LLMAPIKey:         getEnv("LLM_API_KEY", ""),
		LLMModel:          getEnv("LLM_MODEL", "llama3"),
		LLMTemperature:    float32(getEnvFloat("LLM_TEMPERATURE", 0.1)),
		AttackMatrix:      getEnv("ATTACK_MATRIX", "enterprise"),
		IncludeDeprecated: getEnvBool("INCLUDE_DEPRECATED", false),
		MaxSourceChars:    getEnvInt("MAX_SOURCE_CHARS", 8000),
		YtdlpPath:         getEnv("YTDLP_PATH", ""),
		VocabularyFile:    getEnv("VOCABULARY_FILE", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks that required configuration values are set and well formed
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !stderrors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}

	fe := fieldErrs[0]
	if fe.Tag() == "required" {
		return apperrors.NewConfigMissingRequired(envName(fe.Field()))
	}
	reason := fe.Tag()
	if fe.Param() != "" {
		reason = fmt.Sprintf("%s=%s", fe.Tag(), fe.Param())
	}
	return apperrors.NewConfigValidationFailed(envName(fe.Field()), reason)
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

var envNames = map[string]string{
	"Port":              "PORT",
	"Env":               "ENV",
	"LogLevel":          "LOG_LEVEL",
	"Neo4jURI":          "NEO4J_URI",
	"Neo4jUser":         "NEO4J_USER",
	"Neo4jPassword":     "NEO4J_PASSWORD",
	"Neo4jQueryTimeout": "NEO4J_QUERY_TIMEOUT",
	"LLMBaseURL":        "LLM_BASE_URL",
	"LLMModel":          "LLM_MODEL",
	"LLMTemperature":    "LLM_TEMPERATURE",
	"AttackMatrix":      "ATTACK_MATRIX",
	"MaxSourceChars":    "MAX_SOURCE_CHARS",
}

func envName(field string) string {
	if name, ok := envNames[field]; ok {
		return name
	}
	return strings.ToUpper(field)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if result, err := strconv.ParseFloat(value, 64); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if result, err := strconv.Atoi(value); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if result, err := strconv.ParseBool(value); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if result, err := time.ParseDuration(value); err == nil {
			return result
		}
	}
	return defaultValue
}
