/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package main

import (
	"context"
	"fmt"
	stdlog "log"
	"os"
	"time"

	"github.com/acronis/go-appkit/log"
	_ "github.com/go-sql-driver/mysql"
	"github.com/gocraft/dbr/v2"

	"github.com/acronis/go-carpet"
	"github.com/acronis/go-carpet/dbrutil"
	"github.com/acronis/go-carpet/history"
)

func main() {
	logger, loggerClose := log.NewLogger(&log.Config{
		Output: log.OutputStderr,
		Level:  log.LevelInfo,
	})
	defer loggerClose()

	// Queries that take longer than 100ms are logged.
	conn, err := openDB(dbrutil.NewSlowQueryLogEventReceiver(logger, 100*time.Millisecond))
	if err != nil {
		stdlog.Fatal(err)
	}
	defer func() { _ = conn.Close() }()

	records, err := history.NewReader(conn).Records(context.Background())
	if err != nil {
		stdlog.Fatal(err)
	}
	for _, rec := range records {
		fmt.Printf("%s %s hash=%s\n", rec.Version, rec.Task, rec.Hash.String)
	}

	// For a slow query the following log message will be printed:
	// {"level":"warn","time":"2026-02-14T16:29:55.429257+02:00","msg":"slow SQL query",
	// "pid":14030,"event":"dbr.select","sql":"SELECT version, task, applied, hash FROM change_set ...","duration_ms":1007}
}

func openDB(eventReceiver dbr.EventReceiver) (*dbr.Connection, error) {
	cfg := &carpet.Config{
		Dialect: carpet.DialectMySQL,
		MySQL: carpet.MySQLConfig{
			Host:     os.Getenv("MYSQL_HOST"),
			Port:     3306,
			User:     os.Getenv("MYSQL_USER"),
			Password: os.Getenv("MYSQL_PASSWORD"),
			Database: os.Getenv("MYSQL_DATABASE"),
		},
	}

	// Opening includes configuring the max open/idle connections and their lifetime and
	// pinging the database.
	conn, err := dbrutil.Open(cfg, true, eventReceiver)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return conn, nil
}
