// Package config provides centralized default values for the Eco engine
package config

import (
	"bufio"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

var envLoaded sync.Once

func loadEnvFile() {
	envLoaded.Do(func() {
		file, err := os.Open(".env")
		if err != nil {
			return
		}
		defer file.Close()

		log.Println("Loading configuration overrides from .env file...")
		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())

			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}

			parts := strings.SplitN(line, "=", 2)
			if len(parts) != 2 {
				continue
			}

			key := strings.TrimSpace(parts[0])
			value := strings.TrimSpace(parts[1])

			if os.Getenv(key) == "" {
				os.Setenv(key, value)
			}
		}
	})
}

func getEnvInt(key string, defaultValue int) int {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := strconv.Atoi(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%d (default: %d)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func getEnvString(key string, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		if val != defaultValue {
			log.Printf("Config override: %s=%s (default: %s)", key, val, defaultValue)
		}
		return val
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := strconv.ParseFloat(valStr, 64); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%f (default: %f)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := strconv.ParseBool(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%t (default: %t)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := time.ParseDuration(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%s (default: %s)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

var (
	// Server Configuration
	Port               string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration
	ServerIdleTimeout  time.Duration

	// Database Configuration
	DBDriver       string
	DBPath         string
	DBAuthToken    string
	DBMaxOpenConns int
	DBMaxIdleConns int

	// Observability
	SlowQueryThreshold time.Duration
	LogDirectory       string

	// Identity Configuration
	GuestKeyPrefix   string
	SessionKeyPrefix string

	// Daily Limit Configuration (per local calendar day)
	FreeMessageLimit       int
	EssentialsMessageLimit int
	FreeVoiceLimit         int
	EssentialsVoiceLimit   int
	SoftPromptRatio        float64

	// Conversion Trigger Configuration
	TriggerTimeLimit        time.Duration
	TriggerInteractionLimit int
	TriggerPromptCooldown   time.Duration
	TriggerEvalInterval     time.Duration
	HeartbeatInterval       time.Duration

	// Rollover / Cleanup Intervals
	RolloverCheckInterval time.Duration
	SessionTTL            time.Duration
	CleanupInterval       time.Duration
	VerboseCleanup        bool

	// Analytics Configuration
	AnalyticsBufferSize int

	// SSE Configuration
	MaxSessionConnections int

	// Auth Configuration
	JWTSecret     string
	AESKey        string
	TokenLifetime time.Duration

	// Email Configuration
	ResendAPIKey string
	EmailFrom    string
)

func init() {
	loadEnvFile()

	// Server Configuration
	Port = getEnvString("PORT", "8080")
	ServerReadTimeout = getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second)
	ServerWriteTimeout = getEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second)
	ServerIdleTimeout = getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second)

	// Database Configuration
	DBDriver = getEnvString("DB_DRIVER", "sqlite3")
	DBPath = getEnvString("DB_PATH", "eco-engine.db")
	DBAuthToken = getEnvString("DB_AUTH_TOKEN", "")
	DBMaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", 10)
	DBMaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", 3)

	// Observability
	SlowQueryThreshold = getEnvDuration("SLOW_QUERY_THRESHOLD", 50*time.Millisecond)
	LogDirectory = getEnvString("LOG_DIRECTORY", "logs")

	// Identity Configuration. Identity keys are scoped per identifier under
	// these prefixes; the prefixes are persisted key names and must remain
	// stable across releases.
	GuestKeyPrefix = getEnvString("GUEST_KEY_PREFIX", "eco:guest:")
	SessionKeyPrefix = getEnvString("SESSION_KEY_PREFIX", "eco:session:")

	// Daily Limit Configuration
	FreeMessageLimit = getEnvInt("FREE_MESSAGE_LIMIT", 10)
	EssentialsMessageLimit = getEnvInt("ESSENTIALS_MESSAGE_LIMIT", 50)
	FreeVoiceLimit = getEnvInt("FREE_VOICE_LIMIT", 3)
	EssentialsVoiceLimit = getEnvInt("ESSENTIALS_VOICE_LIMIT", 15)
	SoftPromptRatio = getEnvFloat("SOFT_PROMPT_RATIO", 0.8)

	// Conversion Trigger Configuration
	TriggerTimeLimit = getEnvDuration("TRIGGER_TIME_LIMIT", 10*time.Minute)
	TriggerInteractionLimit = getEnvInt("TRIGGER_INTERACTION_LIMIT", 15)
	TriggerPromptCooldown = getEnvDuration("TRIGGER_PROMPT_COOLDOWN", 24*time.Hour)
	TriggerEvalInterval = getEnvDuration("TRIGGER_EVAL_INTERVAL", 15*time.Second)
	HeartbeatInterval = getEnvDuration("HEARTBEAT_INTERVAL", 30*time.Second)

	// Rollover / Cleanup Intervals
	RolloverCheckInterval = getEnvDuration("ROLLOVER_CHECK_INTERVAL", time.Minute)
	SessionTTL = getEnvDuration("SESSION_TTL", 4*time.Hour)
	CleanupInterval = getEnvDuration("CLEANUP_INTERVAL", 30*time.Minute)
	VerboseCleanup = getEnvBool("VERBOSE_CLEANUP", false)

	// Analytics Configuration
	AnalyticsBufferSize = getEnvInt("ANALYTICS_BUFFER_SIZE", 1024)

	// SSE Configuration
	MaxSessionConnections = getEnvInt("MAX_SESSION_CONNECTIONS", 3)

	// Auth Configuration
	JWTSecret = getEnvString("JWT_SECRET", "")
	AESKey = getEnvString("AES_KEY", "")
	TokenLifetime = getEnvDuration("TOKEN_LIFETIME", 72*time.Hour)

	// Email Configuration
	ResendAPIKey = getEnvString("RESEND_API_KEY", "")
	EmailFrom = getEnvString("EMAIL_FROM", "Eco <hello@ecowell.app>")
}
