package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Level represents the logging level
type Level int

const (
	// DEBUG level for detailed debugging information
	DEBUG Level = iota
	// INFO level for informational messages
	INFO
	// WARN level for warning messages
	WARN
	// ERROR level for error messages
	ERROR
)

// String returns the string representation of the level
func (l Level) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a level name ("debug", "INFO", ...) to a Level.
func ParseLevel(name string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBUG":
		return DEBUG, nil
	case "INFO", "":
		return INFO, nil
	case "WARN", "WARNING":
		return WARN, nil
	case "ERROR":
		return ERROR, nil
	default:
		return INFO, fmt.Errorf("unknown log level %q", name)
	}
}

const filePrefix = "deck8-soundboard-"

// Logger writes leveled lines to a daily log file.
// All methods are no-ops on a nil *Logger.
type Logger struct {
	mu            sync.RWMutex
	level         Level
	file          *os.File
	out           *log.Logger
	console       io.Writer
	logDir        string
	currentDay    string
	retentionDays int
}

// Config holds logger configuration
type Config struct {
	LogDir        string
	Level         Level
	RetentionDays int
	// Console, when set, receives a copy of every line.
	Console io.Writer
}

// DefaultConfig returns the default logger configuration
func DefaultConfig() Config {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}

	return Config{
		LogDir:        filepath.Join(dir, "deck8-soundboard", "logs"),
		Level:         INFO,
		RetentionDays: 7,
		Console:       os.Stderr,
	}
}

// New creates a new logger
func New(config Config) (*Logger, error) {
	l := &Logger{
		level:         config.Level,
		logDir:        config.LogDir,
		retentionDays: config.RetentionDays,
		console:       config.Console,
	}

	if err := l.rotate(time.Now()); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return l, nil
}

// FileName returns the log file name used for the given day.
func FileName(day time.Time) string {
	return filePrefix + day.Format("20060102") + ".log"
}

// rotate opens the file for the given day if it is not already open.
func (l *Logger) rotate(now time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	today := now.Format("20060102")
	if l.currentDay == today && l.file != nil {
		return nil
	}

	if err := os.MkdirAll(l.logDir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	file, err := os.OpenFile(filepath.Join(l.logDir, FileName(now)), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	if l.file != nil {
		l.file.Close()
	}
	l.file = file
	l.currentDay = today

	var w io.Writer = file
	if l.console != nil {
		w = io.MultiWriter(file, l.console)
	}
	l.out = log.New(w, "", log.LstdFlags)

	if removed, err := l.cleanOldLogs(now); err != nil {
		l.out.Printf("[WARN] failed to clean old logs: %v", err)
	} else if removed > 0 {
		l.out.Printf("[DEBUG] removed %d expired log files", removed)
	}

	return nil
}

// cleanOldLogs deletes our log files older than retentionDays.
func (l *Logger) cleanOldLogs(now time.Time) (int, error) {
	if l.retentionDays <= 0 {
		return 0, nil
	}
	cutoff := now.AddDate(0, 0, -l.retentionDays)

	entries, err := os.ReadDir(l.logDir)
	if err != nil {
		return 0, fmt.Errorf("failed to read log directory: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, filePrefix) || filepath.Ext(name) != ".log" {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(l.logDir, name)); err == nil {
			removed++
		}
	}

	return removed, nil
}

func (l *Logger) logf(level Level, format string, v ...interface{}) {
	if l == nil {
		return
	}

	l.mu.RLock()
	enabled := level >= l.level
	day := l.currentDay
	l.mu.RUnlock()
	if !enabled {
		return
	}

	now := time.Now()
	if day != now.Format("20060102") {
		if err := l.rotate(now); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to rotate log: %v\n", err)
		}
	}

	l.mu.RLock()
	out := l.out
	l.mu.RUnlock()
	if out != nil {
		out.Printf("["+level.String()+"] "+format, v...)
	}
}

// Debug logs a debug message
func (l *Logger) Debug(format string, v ...interface{}) { l.logf(DEBUG, format, v...) }

// Info logs an informational message
func (l *Logger) Info(format string, v ...interface{}) { l.logf(INFO, format, v...) }

// Warn logs a warning message
func (l *Logger) Warn(format string, v ...interface{}) { l.logf(WARN, format, v...) }

// Error logs an error message
func (l *Logger) Error(format string, v ...interface{}) { l.logf(ERROR, format, v...) }

// Close closes the log file
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	l.out = nil
	return err
}

// SetLevel sets the logging level
func (l *Logger) SetLevel(level Level) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// GetLevel returns the current logging level
func (l *Logger) GetLevel() Level {
	if l == nil {
		return ERROR
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.level
}

// Dir returns the directory log files are written to.
func (l *Logger) Dir() string {
	if l == nil {
		return ""
	}
	return l.logDir
}
