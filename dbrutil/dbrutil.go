/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

// Package dbrutil provides helpers for working with the change set database through github.com/gocraft/dbr.
package dbrutil

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/acronis/go-appkit/log"
	"github.com/gocraft/dbr/v2"
	"github.com/gocraft/dbr/v2/dialect"

	"github.com/acronis/go-carpet"
)

// Open opens a database connection pool according to the passed configuration
// and wraps it into *dbr.Connection. If eventReceiver is nil, events are discarded.
func Open(cfg *carpet.Config, ping bool, eventReceiver dbr.EventReceiver) (*dbr.Connection, error) {
	db, err := carpet.Open(cfg, ping)
	if err != nil {
		return nil, err
	}
	conn, err := Wrap(db, cfg.Dialect, eventReceiver)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return conn, nil
}

// Wrap wraps an already opened *sql.DB into *dbr.Connection.
func Wrap(db *sql.DB, d carpet.Dialect, eventReceiver dbr.EventReceiver) (*dbr.Connection, error) {
	dbrDialect, err := dbrDialect(d)
	if err != nil {
		return nil, err
	}
	if eventReceiver == nil {
		eventReceiver = &dbr.NullEventReceiver{}
	}
	return &dbr.Connection{DB: db, Dialect: dbrDialect, EventReceiver: eventReceiver}, nil
}

func dbrDialect(d carpet.Dialect) (dbr.Dialect, error) {
	switch d {
	case carpet.DialectMySQL:
		return dialect.MySQL, nil
	case carpet.DialectPostgres, carpet.DialectPgx:
		return dialect.PostgreSQL, nil
	case carpet.DialectSQLite:
		return dialect.SQLite3, nil
	case carpet.DialectMSSQL:
		return dialect.MSSQL, nil
	}
	return nil, fmt.Errorf("unsupported dialect %q", d)
}

// SlowQueryLogEventReceiver logs SQL queries that take longer than the threshold.
type SlowQueryLogEventReceiver struct {
	*dbr.NullEventReceiver
	logger    log.FieldLogger
	threshold time.Duration
}

var _ dbr.EventReceiver = (*SlowQueryLogEventReceiver)(nil)

// NewSlowQueryLogEventReceiver creates a new SlowQueryLogEventReceiver.
func NewSlowQueryLogEventReceiver(logger log.FieldLogger, threshold time.Duration) *SlowQueryLogEventReceiver {
	return &SlowQueryLogEventReceiver{&dbr.NullEventReceiver{}, logger, threshold}
}

// TimingKv is called by dbr when a query is finished.
func (er *SlowQueryLogEventReceiver) TimingKv(eventName string, nanoseconds int64, kvs map[string]string) {
	duration := time.Duration(nanoseconds)
	if duration < er.threshold {
		return
	}
	er.logger.Warn("slow SQL query",
		log.String("event", eventName),
		log.String("sql", kvs["sql"]),
		log.Int("duration_ms", int(duration.Milliseconds())))
}
