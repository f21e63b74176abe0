/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package carpet

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Dialect defines possible values for planned supported SQL dialects.
type Dialect string

// SQL dialects.
const (
	DialectSQLite   Dialect = "sqlite3"
	DialectMySQL    Dialect = "mysql"
	DialectPostgres Dialect = "postgres"
	DialectPgx      Dialect = "pgx"
	DialectMSSQL    Dialect = "mssql"
)

// Default values of connection parameters.
const (
	DefaultMaxIdleConns    = 2
	DefaultMaxOpenConns    = 10
	DefaultConnMaxLifetime = 10 * time.Minute
)

// Default transaction isolation levels per dialect.
const (
	MySQLDefaultTxLevel    = sql.LevelReadCommitted
	PostgresDefaultTxLevel = sql.LevelReadCommitted
	MSSQLDefaultTxLevel    = sql.LevelReadCommitted
)

// PostgresSSLMode defines possible values for Postgres sslmode connection parameter.
type PostgresSSLMode string

// Postgres SSL modes.
const (
	PostgresSSLModeDisable    PostgresSSLMode = "disable"
	PostgresSSLModeRequire    PostgresSSLMode = "require"
	PostgresSSLModeVerifyCA   PostgresSSLMode = "verify-ca"
	PostgresSSLModeVerifyFull PostgresSSLMode = "verify-full"
)

// PostgresDefaultSSLMode is the default sslmode for Postgres connections.
const PostgresDefaultSSLMode = PostgresSSLModeVerifyCA

// Parameters that are added to pgx connection strings to route writes to the primary node.
const (
	PgTargetSessionAttrs = "target_session_attrs"
	PgReadWriteParam     = "read-write"
)

// Open opens a new database connection pool according to the passed configuration.
// If ping is true, the connection is verified with PingContext.
func Open(cfg *Config, ping bool) (*sql.DB, error) {
	driverName, dsn := cfg.DriverNameAndDSN()
	if driverName == "" {
		return nil, fmt.Errorf("unsupported dialect %q", cfg.Dialect)
	}
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime))

	if ping {
		if err = db.PingContext(context.Background()); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ping database: %w", err)
		}
	}
	return db, nil
}

// DoInTx begins a new transaction, calls passed function and commits or rollbacks the transaction
// depending on whether the function returned an error or not.
// If the function panics, the transaction is rolled back and the panic is re-raised.
func DoInTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		if err = tx.Commit(); err != nil {
			err = fmt.Errorf("commit tx: %w", err)
		}
	}()

	return fn(tx)
}
