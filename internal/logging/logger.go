// Package logging builds component loggers on top of logrus.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

// EnvLevel overrides the configured level when set.
const EnvLevel = "DAYBOOK_LOG_LEVEL"

// Options controls where logs go.
type Options struct {
	Level string
	// Dir enables a dated log file per component when non-empty.
	Dir string
	// Stderr forces the stderr sink even on an interactive terminal.
	Stderr bool
}

var (
	loggersMu sync.Mutex
	loggers   = make(map[string]*logrus.Entry)
	options   Options
	files     []*os.File
)

// Configure sets options for loggers created afterwards.
func Configure(opts Options) {
	loggersMu.Lock()
	defer loggersMu.Unlock()
	options = opts
}

// NewLogger returns the cached logger for component, creating it on first use.
func NewLogger(component string) *logrus.Entry {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	if logger, exists := loggers[component]; exists {
		return logger
	}

	logger := logrus.New()
	logger.SetLevel(resolveLevel(options.Level))
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.TimeOnly,
	})

	var writers []io.Writer
	if options.Dir != "" {
		if file, err := openLogFile(options.Dir, component); err == nil {
			files = append(files, file)
			writers = append(writers, file)
		} else {
			logger.Warnf("open log file: %v", err)
		}
	}

	interactive := isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
	if options.Stderr || !interactive || logger.GetLevel() >= logrus.DebugLevel || len(writers) == 0 {
		writers = append(writers, os.Stderr)
	}

	if len(writers) == 1 {
		logger.SetOutput(writers[0])
	} else {
		logger.SetOutput(io.MultiWriter(writers...))
	}

	entry := logger.WithField("component", component)
	loggers[component] = entry
	return entry
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}

// Close flushes and closes log files and forgets cached loggers.
func Close() {
	loggersMu.Lock()
	defer loggersMu.Unlock()
	for _, file := range files {
		_ = file.Close()
	}
	files = nil
	loggers = make(map[string]*logrus.Entry)
}

func resolveLevel(configured string) logrus.Level {
	value := strings.TrimSpace(os.Getenv(EnvLevel))
	if value == "" {
		value = strings.TrimSpace(configured)
	}
	if value == "" {
		value = "info"
	}
	level, err := logrus.ParseLevel(value)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}

func openLogFile(dir, component string) (*os.File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	name := fmt.Sprintf("%s-%s.log", component, time.Now().Format(time.DateOnly))
	file, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return file, nil
}
