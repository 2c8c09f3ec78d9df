package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

type SessionBackend string

const (
	BackendMemory   SessionBackend = "memory"
	BackendDynamoDB SessionBackend = "dynamodb"
	BackendSQLite   SessionBackend = "sqlite"
)

// Config is everything the binaries read from the environment.
type Config struct {
	DatabricksHost string
	SpaceID        string
	// Exactly one of Token or TokenParam is needed. Token wins when both are set.
	Token      string
	TokenParam string

	SessionBackend SessionBackend
	SessionTable   string
	SessionTTL     time.Duration
	SQLitePath     string

	PollInterval      time.Duration
	HTTPTimeout       time.Duration
	MaxQuestionLength int
	MaxWaitLimit      time.Duration

	CORSAllowOrigin string
	LogLevel        slog.Level
}

// Load reads the configuration through getenv (os.Getenv in production).
// Every problem is reported, not just the first one.
func Load(getenv func(string) string) (Config, error) {
	var errs []error
	required := func(key string) string {
		v := strings.TrimSpace(getenv(key))
		if v == "" {
			errs = append(errs, fmt.Errorf("%s is required", key))
		}
		return v
	}
	optional := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}
	seconds := func(key string, def int) time.Duration {
		n, err := envInt(getenv, key, def)
		if err != nil {
			errs = append(errs, err)
			return time.Duration(def) * time.Second
		}
		if n <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %d", key, n))
		}
		return time.Duration(n) * time.Second
	}

	cfg := Config{
		DatabricksHost:  required("DATABRICKS_HOST"),
		SpaceID:         required("SPACE_ID"),
		Token:           optional("DATABRICKS_TOKEN", ""),
		TokenParam:      optional("DATABRICKS_TOKEN_PARAM", ""),
		SessionBackend:  SessionBackend(strings.ToLower(optional("SESSION_BACKEND", string(BackendMemory)))),
		SessionTable:    optional("SESSION_TABLE", ""),
		SQLitePath:      optional("SQLITE_PATH", "genie-sessions.db"),
		CORSAllowOrigin: optional("CORS_ALLOW_ORIGIN", "*"),
	}
	if cfg.Token == "" && cfg.TokenParam == "" {
		errs = append(errs, errors.New("one of DATABRICKS_TOKEN or DATABRICKS_TOKEN_PARAM is required"))
	}

	if hours, err := envInt(getenv, "SESSION_TTL_HOURS", 0); err != nil {
		errs = append(errs, err)
	} else if hours < 0 {
		errs = append(errs, fmt.Errorf("SESSION_TTL_HOURS must not be negative, got %d", hours))
	} else {
		cfg.SessionTTL = time.Duration(hours) * time.Hour
	}

	cfg.PollInterval = seconds("POLL_INTERVAL_SECONDS", 3)
	cfg.HTTPTimeout = seconds("HTTP_TIMEOUT_SECONDS", 30)
	cfg.MaxWaitLimit = seconds("MAX_WAIT_LIMIT_SECONDS", 300)

	maxLen, err := envInt(getenv, "MAX_QUESTION_LENGTH", 2000)
	switch {
	case err != nil:
		errs = append(errs, err)
	case maxLen <= 0:
		errs = append(errs, fmt.Errorf("MAX_QUESTION_LENGTH must be positive, got %d", maxLen))
	default:
		cfg.MaxQuestionLength = maxLen
	}

	switch cfg.SessionBackend {
	case BackendMemory, BackendSQLite:
	case BackendDynamoDB:
		if cfg.SessionTable == "" {
			errs = append(errs, errors.New("SESSION_TABLE is required for the dynamodb session backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown SESSION_BACKEND %q", cfg.SessionBackend))
	}

	level, err := ParseLogLevel(getenv("LOG_LEVEL"))
	if err != nil {
		errs = append(errs, err)
	}
	cfg.LogLevel = level

	if len(errs) > 0 {
		return Config{}, fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return cfg, nil
}

// ParseLogLevel accepts debug, info, warn or error. Empty means info.
func ParseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	s = strings.TrimSpace(s)
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q", s)
	}
	return level, nil
}

func envInt(getenv func(string) string, key string, def int) (int, error) {
	v := strings.TrimSpace(getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}
