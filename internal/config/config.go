package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	DatabaseURL string
	LogLevel    string
	LogFormat   string

	RequiredParticipants int
	Roles                []string // empty means derived from RequiredParticipants

	HeartbeatInterval time.Duration
	InactivityWarning time.Duration
	RoomTimeout       time.Duration
	EndedGrace        time.Duration

	SendBuffer      int
	MaxMessageBytes int64
	AllowedOrigins  []string
}

// Load reads the configuration from the environment. A .env file in the
// working directory is applied first when present; variables already set in
// the process environment win.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		Port:        getEnv("PORT", "8000"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "text"),

		RequiredParticipants: getEnvInt("REQUIRED_PARTICIPANTS", 4),
		Roles:                getEnvList("ROLES"),

		HeartbeatInterval: getEnvDuration("HEARTBEAT_INTERVAL", 30*time.Second),
		InactivityWarning: getEnvDuration("INACTIVITY_WARNING", 60*time.Second),
		RoomTimeout:       getEnvDuration("ROOM_TIMEOUT", 30*time.Minute),
		EndedGrace:        getEnvDuration("ENDED_GRACE", 2*time.Minute),

		SendBuffer:      getEnvInt("SEND_BUFFER", 64),
		MaxMessageBytes: int64(getEnvInt("MAX_MESSAGE_BYTES", 1<<20)),
		AllowedOrigins:  getEnvList("ALLOWED_ORIGINS"),
	}
	return cfg
}

// Validate reports configuration that the coordinator cannot run with.
func (c Config) Validate() error {
	if c.RequiredParticipants < 2 || c.RequiredParticipants > 4 {
		return fmt.Errorf("REQUIRED_PARTICIPANTS must be between 2 and 4, got %d", c.RequiredParticipants)
	}
	if len(c.Roles) > 0 && len(c.Roles) != c.RequiredParticipants {
		return fmt.Errorf("ROLES lists %d roles but REQUIRED_PARTICIPANTS is %d", len(c.Roles), c.RequiredParticipants)
	}
	if c.HeartbeatInterval <= 0 {
		return fmt.Errorf("HEARTBEAT_INTERVAL must be positive")
	}
	if c.SendBuffer < 1 {
		return fmt.Errorf("SEND_BUFFER must be at least 1")
	}
	return nil
}

// NewLogger builds the process logger from LOG_LEVEL and LOG_FORMAT.
func (c Config) NewLogger() *slog.Logger {
	var level slog.Level
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}

func getEnvList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
