// Package config provides configuration for the job search service.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config holds the service configuration.
type Config struct {
	// Server settings
	Host       string
	Port       int
	HealthPort int

	// Task execution
	TaskTimeout time.Duration

	// Session persistence. Empty keeps sessions in memory.
	DatabaseURL string

	// Agent execution engine
	EngineURL string

	// Toolset endpoints
	JobSearchToolURL string
	ProfileToolURL   string
	ResearchToolURL  string

	// Startup dependency polling
	ReadyCheckInterval time.Duration
	ReadyCheckAttempts int

	// Logging
	LogLevel string
}

// Load loads configuration from environment variables. A local .env file is
// applied first when present.
func Load() *Config {
	if err := godotenv.Load(); err == nil {
		logrus.Debug("loaded environment from .env")
	}

	return &Config{
		Host:               getEnv("HOST", "0.0.0.0"),
		Port:               getEnvInt("PORT", 8003),
		HealthPort:         getEnvInt("HEALTH_PORT", 8080),
		TaskTimeout:        time.Duration(getEnvInt("TASK_TIMEOUT_SECONDS", 60)) * time.Second,
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		EngineURL:          getEnv("ENGINE_URL", "http://localhost:8100"),
		JobSearchToolURL:   getEnv("JOBSEARCH_MCP_URL", "http://localhost:3000"),
		ProfileToolURL:     getEnv("PROFILE_MCP_URL", "http://localhost:3001"),
		ResearchToolURL:    getEnv("RESEARCH_MCP_URL", "http://localhost:3002"),
		ReadyCheckInterval: time.Duration(getEnvInt("READY_CHECK_INTERVAL_SECONDS", 2)) * time.Second,
		ReadyCheckAttempts: getEnvInt("READY_CHECK_ATTEMPTS", 30),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
	}
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
