package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	AppEnv string

	APIBaseURL string
	APIToken   string
	APIEmail   string
	APIPass    string

	HTTPTimeoutSeconds int

	ConversationPollSeconds int
	RosterPollSeconds       int

	PollBackoffBaseSeconds int
	PollBackoffCapSeconds  int

	LoginMaxRetries int
}

func LoadAppConfig() *AppConfig {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, reading from system environment variables")
	}

	return &AppConfig{
		AppEnv: getEnv("APP_ENV", "development"),

		APIBaseURL: mustGetEnv("API_BASE_URL"),
		APIToken:   getEnv("API_TOKEN", ""),
		APIEmail:   getEnv("API_EMAIL", ""),
		APIPass:    getEnv("API_PASSWORD", ""),

		HTTPTimeoutSeconds: getEnvAsInt("HTTP_TIMEOUT_SECONDS", 30),

		ConversationPollSeconds: getEnvAsInt("CONVERSATION_POLL_SECONDS", 5),
		RosterPollSeconds:       getEnvAsInt("ROSTER_POLL_SECONDS", 5),

		PollBackoffBaseSeconds: getEnvAsInt("POLL_BACKOFF_BASE_SECONDS", 5),
		PollBackoffCapSeconds:  getEnvAsInt("POLL_BACKOFF_CAP_SECONDS", 60),

		LoginMaxRetries: getEnvAsInt("LOGIN_MAX_RETRIES", 2),
	}
}

func (c *AppConfig) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSeconds) * time.Second
}

func (c *AppConfig) ConversationPollInterval() time.Duration {
	return time.Duration(c.ConversationPollSeconds) * time.Second
}

func (c *AppConfig) RosterPollInterval() time.Duration {
	return time.Duration(c.RosterPollSeconds) * time.Second
}

func (c *AppConfig) PollBackoffBase() time.Duration {
	return time.Duration(c.PollBackoffBaseSeconds) * time.Second
}

func (c *AppConfig) PollBackoffCap() time.Duration {
	return time.Duration(c.PollBackoffCapSeconds) * time.Second
}

func (c *AppConfig) ConversationPollSpec() string {
	return fmt.Sprintf("@every %ds", c.ConversationPollSeconds)
}

func (c *AppConfig) RosterPollSpec() string {
	return fmt.Sprintf("@every %ds", c.RosterPollSeconds)
}

func mustGetEnv(key string) string {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		slog.Error("Environment variable is required but not set", "key", key)
		os.Exit(1)
	}
	return value
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valStr, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	val, err := strconv.Atoi(valStr)
	if err != nil {
		slog.Warn("Environment variable must be an integer, using fallback", "key", key, "value", valStr, "fallback", fallback)
		return fallback
	}
	return val
}
