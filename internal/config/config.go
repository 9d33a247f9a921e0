// Package config provides configuration for the intake server.
package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the intake server configuration.
type Config struct {
	// Server settings
	HTTPPort     int
	StaticDir    string
	RateLimitRPS int

	// Database
	DatabaseDriver string // sqlite or postgres
	DatabaseURL    string

	// LLM settings
	Mode       string // MOCK selects the mock LLM client
	LLMBaseURL string
	LLMAPIKey  string
	LLMModel   string

	// Timeouts
	LLMTimeout     time.Duration
	ExtractTimeout time.Duration
	PersistTimeout time.Duration

	// Sessions
	SessionIdleTTL       time.Duration
	SessionSweepInterval time.Duration
	MaxAssistantTurns    int
	HistoryWindow        int
	MaxMessageChars      int

	// Prompts
	PromptsFile string
	Prompts     Prompts

	// Lead capture mail
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	LeadNotifyTo string

	// WebSocket settings
	PingInterval   time.Duration
	WriteTimeout   time.Duration
	ReadTimeout    time.Duration
	MaxMessageSize int64

	// Logging
	LogLevel string
}

// Load loads configuration from environment variables, reading a local .env
// file first when one exists.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("WARN: failed to read .env: %v", err)
	}

	cfg := &Config{
		HTTPPort:             getEnvInt("HTTP_PORT", 8080),
		StaticDir:            getEnv("STATIC_DIR", ""),
		RateLimitRPS:         getEnvInt("RATE_LIMIT_RPS", 5),
		DatabaseDriver:       getEnv("DATABASE_DRIVER", "sqlite"),
		DatabaseURL:          getEnv("DATABASE_URL", "file:intake.db?cache=shared&mode=rwc"),
		Mode:                 getEnv("INTAKE_MODE", ""),
		LLMBaseURL:           getEnv("LLM_BASE_URL", "https://api.openai.com/v1"),
		LLMAPIKey:            getEnv("LLM_API_KEY", ""),
		LLMModel:             getEnv("LLM_MODEL", "gpt-4o-mini"),
		LLMTimeout:           time.Duration(getEnvInt("LLM_TIMEOUT_MS", 8000)) * time.Millisecond,
		ExtractTimeout:       time.Duration(getEnvInt("EXTRACT_TIMEOUT_MS", 8000)) * time.Millisecond,
		PersistTimeout:       time.Duration(getEnvInt("PERSIST_TIMEOUT_MS", 3000)) * time.Millisecond,
		SessionIdleTTL:       time.Duration(getEnvInt("SESSION_IDLE_TTL_MS", 1800000)) * time.Millisecond,
		SessionSweepInterval: time.Duration(getEnvInt("SESSION_SWEEP_INTERVAL_MS", 60000)) * time.Millisecond,
		MaxAssistantTurns:    getEnvInt("MAX_ASSISTANT_TURNS", 10),
		HistoryWindow:        getEnvInt("HISTORY_WINDOW", 8),
		MaxMessageChars:      getEnvInt("MAX_MESSAGE_CHARS", 1000),
		PromptsFile:          getEnv("PROMPTS_FILE", ""),
		SMTPHost:             getEnv("SMTP_HOST", ""),
		SMTPPort:             getEnvInt("SMTP_PORT", 587),
		SMTPUsername:         getEnv("SMTP_USERNAME", ""),
		SMTPPassword:         getEnv("SMTP_PASSWORD", ""),
		SMTPFrom:             getEnv("SMTP_FROM", "no-reply@localhost"),
		LeadNotifyTo:         getEnv("LEAD_NOTIFY_TO", ""),
		PingInterval:         time.Duration(getEnvInt("WS_PING_INTERVAL_MS", 30000)) * time.Millisecond,
		WriteTimeout:         time.Duration(getEnvInt("WS_WRITE_TIMEOUT_MS", 10000)) * time.Millisecond,
		ReadTimeout:          time.Duration(getEnvInt("WS_READ_TIMEOUT_MS", 60000)) * time.Millisecond,
		MaxMessageSize:       int64(getEnvInt("WS_MAX_MESSAGE_SIZE", 65536)),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
	}

	cfg.Prompts = DefaultPrompts()
	if cfg.PromptsFile != "" {
		prompts, err := LoadPrompts(cfg.PromptsFile)
		if err != nil {
			log.Printf("WARN: failed to load prompts from %s, using defaults: %v", cfg.PromptsFile, err)
		} else {
			cfg.Prompts = prompts
		}
	}

	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}
