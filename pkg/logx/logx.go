// Package logx provides structured logging with domain-filtered debug output.
package logx

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"
)

// Logger writes leveled, component-tagged log lines to stderr.
type Logger struct {
	component string
	logger    *log.Logger
}

// Level is a log severity label.
type Level string

// Log levels.
const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// DebugConfig controls debug logging behavior.
type DebugConfig struct {
	Enabled bool
	Domains map[string]bool // nil = all domains
}

// Entry is a structured record of one log line, retained in memory for
// post-run diagnostics.
type Entry struct {
	Timestamp string `json:"timestamp"`
	Component string `json:"component"`
	Level     string `json:"level"`
	Message   string `json:"message"`
	Domain    string `json:"domain,omitempty"`
}

// ringBuffer stores the most recent log entries.
type ringBuffer struct {
	entries []Entry
	mutex   sync.RWMutex
	maxSize int
}

//nolint:gochecknoglobals // process-wide debug switches, set once at startup
var (
	debugConfig = &DebugConfig{}
	debugMutex  sync.RWMutex

	recent = &ringBuffer{maxSize: 1000}
)

//nolint:gochecknoinits // env var initialization must run before any logging
func init() {
	initDebugFromEnv()
}

func initDebugFromEnv() {
	debugMutex.Lock()
	defer debugMutex.Unlock()

	if debug := os.Getenv("DEBUG"); debug == "1" || strings.EqualFold(debug, "true") {
		debugConfig.Enabled = true
	}

	// DEBUG_DOMAINS=planner,executor,rules restricts debug to those domains.
	if domains := os.Getenv("DEBUG_DOMAINS"); domains != "" {
		debugConfig.Domains = make(map[string]bool)
		for _, domain := range strings.Split(domains, ",") {
			debugConfig.Domains[strings.TrimSpace(domain)] = true
		}
	}
}

// NewLogger creates a logger tagged with a component name
// (e.g. "planner", "executor", "preflight").
func NewLogger(component string) *Logger {
	return &Logger{
		component: component,
		logger:    log.New(os.Stderr, "", 0), // stderr keeps stdout clean for CLI output
	}
}

// SetDebug configures global debug logging.
func SetDebug(enabled bool, domains []string) {
	debugMutex.Lock()
	defer debugMutex.Unlock()

	debugConfig.Enabled = enabled
	if len(domains) == 0 {
		debugConfig.Domains = nil
	} else {
		debugConfig.Domains = make(map[string]bool)
		for _, d := range domains {
			debugConfig.Domains[strings.TrimSpace(d)] = true
		}
	}
}

// IsDebugEnabled returns whether debug logging is enabled.
func IsDebugEnabled() bool {
	debugMutex.RLock()
	defer debugMutex.RUnlock()
	return debugConfig.Enabled
}

// IsDebugEnabledForDomain returns whether debug logging is enabled for a
// specific domain.
func IsDebugEnabledForDomain(domain string) bool {
	debugMutex.RLock()
	defer debugMutex.RUnlock()

	if !debugConfig.Enabled {
		return false
	}
	if debugConfig.Domains == nil {
		return true
	}
	return debugConfig.Domains[domain]
}

func (b *ringBuffer) add(entry Entry) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.entries = append(b.entries, entry)
	if len(b.entries) > b.maxSize {
		b.entries = b.entries[len(b.entries)-b.maxSize:]
	}
}

// RecentEntries returns a copy of recent log entries, optionally filtered
// by domain.
func RecentEntries(domain string) []Entry {
	recent.mutex.RLock()
	defer recent.mutex.RUnlock()

	filtered := make([]Entry, 0, len(recent.entries))
	for _, e := range recent.entries {
		if domain != "" && e.Domain != "" && !strings.EqualFold(e.Domain, domain) {
			continue
		}
		filtered = append(filtered, e)
	}
	return filtered
}

func (l *Logger) log(level Level, format string, args ...any) {
	timestamp := time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
	message := fmt.Sprintf(format, args...)
	l.logger.Printf("[%s] [%s] %s: %s", timestamp, l.component, level, message)

	recent.add(Entry{
		Timestamp: timestamp,
		Component: l.component,
		Level:     string(level),
		Message:   message,
	})
}

// Debug logs a debug message if debug logging is enabled.
func (l *Logger) Debug(format string, args ...any) {
	if !IsDebugEnabled() {
		return
	}
	l.log(LevelDebug, format, args...)
}

// Info logs an informational message.
func (l *Logger) Info(format string, args ...any) {
	l.log(LevelInfo, format, args...)
}

// Warn logs a warning message.
func (l *Logger) Warn(format string, args ...any) {
	l.log(LevelWarn, format, args...)
}

// Error logs an error message.
func (l *Logger) Error(format string, args ...any) {
	l.log(LevelError, format, args...)
}

// Debugd logs a debug message under a domain, honoring DEBUG_DOMAINS
// filtering:
//
//	logx.Debugd("executor", "step %s attempt %d", stepID, attempt)
func Debugd(domain, format string, args ...any) {
	if !IsDebugEnabledForDomain(domain) {
		return
	}

	timestamp := time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
	message := fmt.Sprintf(format, args...)
	fmt.Fprintf(os.Stderr, "[%s] [%s] %s: %s\n", timestamp, domain, LevelDebug, message)

	recent.add(Entry{
		Timestamp: timestamp,
		Component: domain,
		Level:     string(LevelDebug),
		Message:   message,
		Domain:    domain,
	})
}

// WithComponent returns a logger that shares the sink but logs under a
// different component tag.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		component: component,
		logger:    l.logger,
	}
}

//nolint:gochecknoglobals // default logger for package-level helpers
var defaultLogger = NewLogger("system")

// Wrap logs msg + ": " + err.Error() and returns the wrapped error.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	wrappedErr := fmt.Errorf("%s: %w", msg, err)
	defaultLogger.Error("%s", wrappedErr.Error())
	return wrappedErr
}
