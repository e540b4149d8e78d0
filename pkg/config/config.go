package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: every environment variable is read here only.
// Domain settings (thresholds, benchmarks, tolerances) live in the YAML
// threshold table, not here.
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Logging
	LogLevel  string
	LogFormat string

	// Analysis
	Analysis AnalysisConfig

	// API
	API APIConfig
}

// AnalysisConfig engine defaults
type AnalysisConfig struct {
	ThresholdsFile   string // "" = embedded canonical table
	ThresholdsReload string // cron schedule (with seconds) for re-reading ThresholdsFile, "" = never
	DefaultSector    string // "" = no peer comparison
	BatchWorkers     int    // scenario batch parallelism
	CasesDir         string // extra case-study YAML files, "" = embedded only
}

// APIConfig HTTP adapter settings
type APIConfig struct {
	RateLimit       float64 // requests per second
	RateBurst       int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables
// ⭐ SSOT: the only caller of os.Getenv()
func Load() (*Config, error) {
	// Try multiple paths for .env file
	loadEnvFile()

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8080"),
		Env:  getEnv("ENV", "development"),

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		// Analysis
		Analysis: AnalysisConfig{
			ThresholdsFile:   getEnv("THRESHOLDS_FILE", ""),
			ThresholdsReload: getEnv("THRESHOLDS_RELOAD", ""),
			DefaultSector:    getEnv("DEFAULT_SECTOR", ""),
			BatchWorkers:     getEnvAsInt("SCENARIO_WORKERS", 4),
			CasesDir:         getEnv("CASES_DIR", ""),
		},

		// API
		API: APIConfig{
			RateLimit:       getEnvAsFloat("API_RATE_LIMIT", 20),
			RateBurst:       getEnvAsInt("API_RATE_BURST", 40),
			ReadTimeout:     getEnvAsDuration("API_READ_TIMEOUT", "10s"),
			WriteTimeout:    getEnvAsDuration("API_WRITE_TIMEOUT", "30s"),
			ShutdownTimeout: getEnvAsDuration("API_SHUTDOWN_TIMEOUT", "10s"),
		},
	}

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if configuration values are usable
func (c *Config) validate() error {
	// Validate environment
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Analysis.BatchWorkers < 1 {
		return fmt.Errorf("SCENARIO_WORKERS must be >= 1")
	}

	if c.API.RateLimit <= 0 || c.API.RateBurst < 1 {
		return fmt.Errorf("API_RATE_LIMIT must be > 0 and API_RATE_BURST >= 1")
	}

	if c.Analysis.ThresholdsReload != "" && c.Analysis.ThresholdsFile == "" {
		return fmt.Errorf("THRESHOLDS_RELOAD requires THRESHOLDS_FILE")
	}

	if c.Analysis.ThresholdsFile != "" {
		if _, err := os.Stat(c.Analysis.ThresholdsFile); err != nil {
			return fmt.Errorf("THRESHOLDS_FILE: %w", err)
		}
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	// Try paths in order of priority
	paths := []string{
		".env", // Current directory
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		// Fallback to default
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
