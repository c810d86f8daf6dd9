package logging

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	// EnvLogLevel is the environment variable for the log level (debug, info, warn, error).
	EnvLogLevel = `LOG_LEVEL`

	// EnvLogFormat is the environment variable for the log format (json or text).
	EnvLogFormat = `LOG_FORMAT`

	// EnvLogFile is the environment variable for the path of a rotating log file.
	EnvLogFile = `LOG_FILE`

	// EnvLogFileMaxSize is the environment variable for the maximum size of the log file in megabytes.
	EnvLogFileMaxSize = `LOG_FILE_MAX_SIZE`
)

// Name is the name of the application the logger belongs to.
type Name string

// Config is the configuration for the common logger.
type Config struct {
	// Name is the application name added to every record.
	Name string

	// Level is the minimum level that is emitted.
	Level slog.Level

	// Format is either "json" or "text".
	Format string

	// File is an optional path. When set, logs are written to a rotating file instead of stdout.
	File string

	// MaxSizeMB is the size at which the log file is rotated.
	MaxSizeMB int

	// MaxBackups is the number of rotated files to keep.
	MaxBackups int

	// Writer overrides the destination. Used by tests.
	Writer io.Writer
}

// NewConfig creates a logging configuration from the environment.
func NewConfig(name Name) *Config {
	c := &Config{
		Name:       string(name),
		Level:      ParseLevel(os.Getenv(EnvLogLevel)),
		Format:     strings.ToLower(os.Getenv(EnvLogFormat)),
		File:       os.Getenv(EnvLogFile),
		MaxSizeMB:  100,
		MaxBackups: 3,
	}

	if c.Format == "" {
		c.Format = "json"
	}

	if size, err := strconv.Atoi(os.Getenv(EnvLogFileMaxSize)); err == nil && size > 0 {
		c.MaxSizeMB = size
	}

	return c
}

// CommonLogger creates the application logger and sets it as the slog default.
func CommonLogger(c *Config) (*slog.Logger, error) {
	if c == nil {
		return nil, errors.New("logging config is nil")
	}

	var w io.Writer = os.Stdout
	switch {
	case c.Writer != nil:
		w = c.Writer
	case c.File != "":
		w = &lumberjack.Logger{
			Filename:   c.File,
			MaxSize:    c.MaxSizeMB,
			MaxBackups: c.MaxBackups,
			Compress:   true,
		}
	}

	opts := &slog.HandlerOptions{
		AddSource: c.Level == slog.LevelDebug,
		Level:     c.Level,
	}

	var h slog.Handler
	switch c.Format {
	case "json":
		h = slog.NewJSONHandler(w, opts)
	case "text":
		h = slog.NewTextHandler(w, opts)
	default:
		return nil, errors.New("unknown log format " + c.Format)
	}

	l := slog.New(h).With(slog.String("app", c.Name))
	slog.SetDefault(l)
	return l, nil
}

// ParseLevel converts a level name into a slog level. Unknown values default to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
