// Package persistence provides SQLite-based audit storage for executed
// plans, steps, and correction attempts. Plans themselves live only for one
// session; the store is a diagnostic log, not a resume mechanism.
package persistence

import (
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite" // sqlite driver

	"assistant/pkg/logx"
)

//nolint:gochecknoglobals // singleton database access
var (
	globalDB     *sql.DB
	globalDBOnce sync.Once
	globalDBMu   sync.RWMutex
	dbLogger     *logx.Logger
	sessionID    string
)

// Initialize opens the singleton database connection. Must be called once at
// startup before any store operations; subsequent calls are no-ops.
func Initialize(dbPath, sessID string) error {
	var initErr error

	globalDBOnce.Do(func() {
		dbLogger = logx.NewLogger("persistence")
		sessionID = sessID

		db, err := sql.Open("sqlite", fmt.Sprintf(
			"file:%s?_foreign_keys=ON&_journal_mode=WAL&_busy_timeout=5000",
			dbPath,
		))
		if err != nil {
			initErr = fmt.Errorf("failed to open database: %w", err)
			return
		}
		if err := db.Ping(); err != nil {
			_ = db.Close()
			initErr = fmt.Errorf("failed to ping database: %w", err)
			return
		}
		if err := initializeSchema(db); err != nil {
			_ = db.Close()
			initErr = fmt.Errorf("failed to initialize schema: %w", err)
			return
		}

		// SQLite supports one writer.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)

		globalDB = db
		dbLogger.Info("database initialized: %s (session %s)", dbPath, sessID)
	})

	return initErr
}

// GetDB returns the singleton connection. Panics if Initialize has not been
// called.
func GetDB() *sql.DB {
	globalDBMu.RLock()
	defer globalDBMu.RUnlock()
	if globalDB == nil {
		panic("persistence.Initialize must be called before GetDB")
	}
	return globalDB
}

// GetSessionID returns the current session ID.
func GetSessionID() string {
	globalDBMu.RLock()
	defer globalDBMu.RUnlock()
	return sessionID
}

// Close shuts down the singleton connection.
func Close() error {
	globalDBMu.Lock()
	defer globalDBMu.Unlock()
	if globalDB == nil {
		return nil
	}
	err := globalDB.Close()
	globalDB = nil
	return err
}
