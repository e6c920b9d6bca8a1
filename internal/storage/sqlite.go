// Package storage implements the Repository capability the core consumes:
// an embedded relational store for positions, trades, audit events,
// reconciliation reports, dYdX order metadata, and screening results.
package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

// SQLiteDB wraps the database connection and owns schema migration.
type SQLiteDB struct {
	db   *sql.DB
	path string
}

// NewSQLiteDB opens dbPath in WAL mode and runs migrations.
func NewSQLiteDB(dbPath string) (*SQLiteDB, error) {
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	sqliteDB := &SQLiteDB{db: db, path: dbPath}

	if err := sqliteDB.migrate(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("SQLite database initialized")
	return sqliteDB, nil
}

// DB returns the underlying sql.DB.
func (s *SQLiteDB) DB() *sql.DB { return s.db }

// Close closes the database connection.
func (s *SQLiteDB) Close() error { return s.db.Close() }

// migrate creates the six tables spec.md §6 names, each with its stated
// indexes. All numeric columns are REAL; timestamps are bound as
// time.Time and stored as text in the go-sqlite3 driver's timestamp
// format, in the time zone of the value passed in.
func (s *SQLiteDB) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS positions (
			id TEXT PRIMARY KEY,
			symbol TEXT NOT NULL,
			exchange TEXT NOT NULL,
			side TEXT NOT NULL CHECK (side IN ('long','short')),
			entry_price REAL NOT NULL,
			quantity REAL NOT NULL,
			current_price REAL,
			unrealized_pnl REAL,
			status TEXT NOT NULL CHECK (status IN ('open','closed')),
			opened_at DATETIME NOT NULL,
			closed_at DATETIME,
			stop_loss REAL,
			take_profit REAL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_positions_status_symbol ON positions(status, symbol)`,

		`CREATE TABLE IF NOT EXISTS trades (
			id TEXT PRIMARY KEY,
			position_id TEXT REFERENCES positions(id),
			symbol TEXT NOT NULL,
			exchange TEXT NOT NULL,
			side TEXT NOT NULL CHECK (side IN ('buy','sell')),
			price REAL NOT NULL,
			quantity REAL NOT NULL,
			fee REAL DEFAULT 0,
			exchange_order_id TEXT,
			executed_at DATETIME NOT NULL,
			strategy TEXT NOT NULL,
			signal_confidence REAL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_symbol_time ON trades(symbol, executed_at DESC)`,

		`CREATE TABLE IF NOT EXISTS audit_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			event_type TEXT NOT NULL,
			exchange TEXT NOT NULL,
			symbol TEXT,
			details TEXT NOT NULL,
			timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_log_event_time ON audit_log(event_type, timestamp DESC)`,

		`CREATE TABLE IF NOT EXISTS reconciliation_audit (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			reconciliation_id TEXT UNIQUE NOT NULL,
			exchange_id TEXT NOT NULL,
			reconciliation_timestamp DATETIME NOT NULL,
			status TEXT NOT NULL,
			discrepancy_count INTEGER NOT NULL,
			discrepancies_json TEXT NOT NULL,
			recovery_attempted BOOLEAN DEFAULT FALSE,
			recovery_status TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_reconciliation_audit_exchange ON reconciliation_audit(exchange_id, reconciliation_timestamp DESC)`,

		`CREATE TABLE IF NOT EXISTS dydx_order_metadata (
			order_id TEXT PRIMARY KEY,
			dydx_order_id TEXT NOT NULL,
			good_until_block INTEGER NOT NULL,
			client_id INTEGER NOT NULL,
			subaccount_number INTEGER NOT NULL,
			order_flags INTEGER NOT NULL,
			clob_pair_id INTEGER NOT NULL,
			symbol TEXT NOT NULL,
			side TEXT NOT NULL,
			quantity REAL NOT NULL,
			price REAL,
			order_type TEXT NOT NULL,
			status TEXT NOT NULL,
			placed_at DATETIME NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS symbol_screening_results (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			symbol TEXT NOT NULL,
			exchange TEXT NOT NULL,
			volatility_score REAL NOT NULL,
			volume_score REAL NOT NULL,
			spread_score REAL NOT NULL,
			momentum_score REAL NOT NULL,
			overall_score REAL NOT NULL,
			recommendation TEXT NOT NULL,
			screened_at DATETIME NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_screening_symbol_exchange ON symbol_screening_results(symbol, exchange)`,
		`CREATE INDEX IF NOT EXISTS idx_screening_screened_at ON symbol_screening_results(screened_at)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, migration)
		}
	}

	log.Debug().Msg("database migrations completed")
	return nil
}

// Vacuum runs VACUUM to reclaim space after bulk deletes.
func (s *SQLiteDB) Vacuum() error {
	_, err := s.db.Exec("VACUUM")
	return err
}

// Checkpoint forces a WAL checkpoint.
func (s *SQLiteDB) Checkpoint() error {
	_, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return err
}
