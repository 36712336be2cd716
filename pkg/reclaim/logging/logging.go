// Package logging provides component loggers for the reclaim artifact
// cleaner, backed by charmbracelet/log with a shared file sink.
//
// Basic usage:
//
//	if err := logging.Init(logging.Config{Level: "info"}); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Close()
//
//	logger := logging.Get("walker")
//	logger.Info("scan started", "root", "/home/user/src")
package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/adrg/xdg"
	"github.com/charmbracelet/log"
)

// ErrInvalidLevel is returned when an unknown log level string is given.
var ErrInvalidLevel = errors.New("invalid log level")

// Config configures the logging system.
type Config struct {
	// Level is the log level (debug, info, warn, error).
	Level string

	// Path is the log file path. Empty uses DefaultLogPath().
	Path string

	// Console mirrors logs to stderr. Must stay off in TUI mode,
	// because the TUI owns the terminal.
	Console bool
}

type state struct {
	mu          sync.Mutex
	initialized bool
	file        io.WriteCloser
	level       log.Level
	console     bool
	loggers     map[string]*log.Logger
}

var globalState = &state{loggers: make(map[string]*log.Logger)}

// parseLevel maps a level string to a charmbracelet/log level.
func parseLevel(s string) (log.Level, error) {
	switch s {
	case "", "info":
		return log.InfoLevel, nil
	case "debug":
		return log.DebugLevel, nil
	case "warn", "warning":
		return log.WarnLevel, nil
	case "error":
		return log.ErrorLevel, nil
	default:
		return log.InfoLevel, fmt.Errorf("%w: %s", ErrInvalidLevel, s)
	}
}

// Init initializes the logging system. Before Init is called, loggers
// write to io.Discard.
func Init(cfg Config) error {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return err
	}

	path := cfg.Path
	if path == "" {
		path = DefaultLogPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating log directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}

	globalState.mu.Lock()
	defer globalState.mu.Unlock()

	if globalState.file != nil {
		_ = globalState.file.Close()
	}
	globalState.file = file
	globalState.level = level
	globalState.console = cfg.Console
	globalState.initialized = true

	// Rebind existing component loggers to the new sink.
	for component := range globalState.loggers {
		globalState.loggers[component] = newLogger(component)
	}

	return nil
}

// Get returns the logger for a component, creating it on first use.
func Get(component string) *log.Logger {
	globalState.mu.Lock()
	defer globalState.mu.Unlock()

	if logger, ok := globalState.loggers[component]; ok {
		return logger
	}
	logger := newLogger(component)
	globalState.loggers[component] = logger
	return logger
}

// newLogger builds a component logger. Must be called with the state
// lock held.
func newLogger(component string) *log.Logger {
	if !globalState.initialized {
		return log.NewWithOptions(io.Discard, log.Options{Prefix: component})
	}

	var w io.Writer = globalState.file
	if globalState.console {
		w = io.MultiWriter(globalState.file, os.Stderr)
	}

	return log.NewWithOptions(w, log.Options{
		Level:           globalState.level,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Prefix:          component,
	})
}

// Close flushes and closes the log file. Call on application exit.
func Close() error {
	globalState.mu.Lock()
	defer globalState.mu.Unlock()

	if !globalState.initialized {
		return nil
	}
	globalState.initialized = false
	globalState.loggers = make(map[string]*log.Logger)

	if globalState.file != nil {
		err := globalState.file.Close()
		globalState.file = nil
		if err != nil {
			return fmt.Errorf("closing log file: %w", err)
		}
	}
	return nil
}

// DefaultLogPath returns $XDG_STATE_HOME/reclaim/reclaim.log.
func DefaultLogPath() string {
	return filepath.Join(xdg.StateHome, "reclaim", "reclaim.log")
}
