// Package sqlite is a durable encounter store shared by every process that
// opens the same database file.
//
// Participants, rings and the encounter record are stored as JSON
// documents. Writes made by other processes are detected by watching the
// database directory and confirmed with PRAGMA data_version, then
// published as remote change notifications.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/Iron-Ham/initiative/internal/errors"
	"github.com/Iron-Ham/initiative/internal/event"
	"github.com/Iron-Ham/initiative/internal/logging"
	"github.com/Iron-Ham/initiative/internal/store/sqlite/migrations"
)

// DefaultWatchDebounce collects filesystem events before the database is
// checked for remote commits.
const DefaultWatchDebounce = 50 * time.Millisecond

// DB is an open encounter database.
type DB struct {
	path   string
	sqlDB  *sql.DB
	bus    *event.Bus
	logger *logging.Logger

	entities *Entities
	overlays *Overlays

	watch         bool
	watchDebounce time.Duration
	watcher       *watcher

	versionMu   sync.Mutex
	dataVersion int64

	closeOnce sync.Once
}

// Option configures a DB.
type Option func(*DB)

// WithBus publishes change notifications on bus.
func WithBus(bus *event.Bus) Option {
	return func(db *DB) {
		if bus != nil {
			db.bus = bus
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) Option {
	return func(db *DB) {
		if logger != nil {
			db.logger = logger
		}
	}
}

// WithWatch enables remote change detection.
func WithWatch(enabled bool) Option {
	return func(db *DB) {
		db.watch = enabled
	}
}

// WithWatchDebounce sets the filesystem event debounce.
func WithWatchDebounce(d time.Duration) Option {
	return func(db *DB) {
		if d > 0 {
			db.watchDebounce = d
		}
	}
}

// Open opens the database at path, creating it and applying migrations as
// needed.
func Open(ctx context.Context, path string, opts ...Option) (*DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.NewValidationError("storage path is required").WithField("store.path")
	}
	cleanPath := filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(cleanPath), 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}

	dsn := cleanPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One connection: PRAGMA data_version then changes only for commits
	// made by other processes.
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db := &DB{
		path:          cleanPath,
		sqlDB:         sqlDB,
		logger:        logging.NopLogger(),
		watchDebounce: DefaultWatchDebounce,
	}
	for _, opt := range opts {
		opt(db)
	}
	if db.bus == nil {
		db.bus = event.NewBus(event.WithLogger(db.logger))
	}
	db.logger = db.logger.WithComponent("sqlite")
	db.entities = &Entities{db: db}
	db.overlays = &Overlays{db: db}

	version, err := db.readDataVersion(ctx)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	db.dataVersion = version

	if db.watch {
		w, err := newWatcher(db)
		if err != nil {
			_ = sqlDB.Close()
			return nil, err
		}
		db.watcher = w
		w.start()
	}
	return db, nil
}

// Entities returns the participant document.
func (db *DB) Entities() *Entities { return db.entities }

// Overlays returns the ring overlay document.
func (db *DB) Overlays() *Overlays { return db.overlays }

// Path is the database file path.
func (db *DB) Path() string { return db.path }

// Close stops the watcher and closes the database.
func (db *DB) Close() error {
	var err error
	db.closeOnce.Do(func() {
		if db.watcher != nil {
			db.watcher.stop()
		}
		err = db.sqlDB.Close()
	})
	return err
}

func (db *DB) readDataVersion(ctx context.Context) (int64, error) {
	var version int64
	if err := db.sqlDB.QueryRowContext(ctx, "PRAGMA data_version").Scan(&version); err != nil {
		return 0, db.storeErr("entities", "data_version", err)
	}
	return version, nil
}

// CheckRemote compares the data version with the last one seen and, when
// another process committed, publishes remote change notifications for
// both documents. It reports whether a remote commit was found.
func (db *DB) CheckRemote(ctx context.Context) (bool, error) {
	version, err := db.readDataVersion(ctx)
	if err != nil {
		return false, err
	}

	db.versionMu.Lock()
	changed := version != db.dataVersion
	db.dataVersion = version
	db.versionMu.Unlock()

	if !changed {
		return false, nil
	}
	db.logger.Debug("remote commit detected", "data_version", version)
	db.bus.Publish(event.NewEntitiesChangedEvent(nil, true))
	db.bus.Publish(event.NewOverlaysChangedEvent(nil, true))
	return true, nil
}

func (db *DB) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := db.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// storeErr classifies a database error. Busy and locked databases are
// retryable; anything else is not.
func (db *DB) storeErr(storeName, op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return errors.NewStoreError("sqlite "+op+" failed", err).
		WithStore(storeName).
		WithOperation(op).
		WithRetryable(isBusy(err))
}

func isBusy(err error) bool {
	var sqliteErr *msqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch sqliteErr.Code() & 0xff {
	case sqlite3lib.SQLITE_BUSY, sqlite3lib.SQLITE_LOCKED:
		return true
	}
	return false
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func args(ids []string) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}
