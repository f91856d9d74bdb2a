package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultBaseURL         = "http://localhost:27301/api/1.0/signals"
	defaultPID             = "DK5QPID"
	defaultRequestTimeout  = 10 * time.Second
	defaultAssistantsFile  = "assistants.yaml"
	defaultShutdownTimeout = 10 * time.Second
	defaultCycleTimeout    = 2 * time.Minute
	defaultCleanupScope    = "owned"
	defaultJournalKeep     = 7 * 24 * time.Hour
)

// Config stores runtime settings loaded from environment variables.
type Config struct {
	BaseURL         string
	PID             string
	RequestTimeout  time.Duration
	AssistantsFile  string
	Debug           bool
	LogLevel        slog.Level
	StatusAddr      string
	JournalPath     string
	JournalKeep     time.Duration
	ShutdownTimeout time.Duration
	CycleTimeout    time.Duration
	CleanupScope    string
}

// Load builds Config from environment variables using stable defaults.
// DEBUG=true lowers the default log level to debug.
func Load() Config {
	debug := parseBool("DEBUG", false)
	level := "info"
	if debug {
		level = "debug"
	}
	return Config{
		BaseURL:         getenv("DAS_BASE_URL", defaultBaseURL),
		PID:             getenv("DAS_PID", defaultPID),
		RequestTimeout:  parseDuration("DAS_REQUEST_TIMEOUT", defaultRequestTimeout),
		AssistantsFile:  getenv("ASSISTANTS_FILE", defaultAssistantsFile),
		Debug:           debug,
		LogLevel:        parseLogLevel(getenv("LOG_LEVEL", level)),
		StatusAddr:      getenv("STATUS_ADDR", ""),
		JournalPath:     getenv("JOURNAL_PATH", ""),
		JournalKeep:     parseDuration("JOURNAL_RETENTION", defaultJournalKeep),
		ShutdownTimeout: parseDuration("SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
		CycleTimeout:    parseDuration("CYCLE_TIMEOUT", defaultCycleTimeout),
		CleanupScope:    strings.ToLower(getenv("CLEANUP_SCOPE", defaultCleanupScope)),
	}
}

// JournalEnabled reports whether cycle results are persisted.
func (c Config) JournalEnabled() bool {
	return c.JournalPath != ""
}

func getenv(key string, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func parseDuration(key string, fallback time.Duration) time.Duration {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func parseBool(key string, fallback bool) bool {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return fallback
	}
	return value
}

func parseLogLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
