/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package main

import (
	"context"
	"database/sql"
	"embed"
	"flag"
	"fmt"
	"io/fs"
	stdlog "log"
	"os"

	"github.com/acronis/go-appkit/log"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/acronis/go-carpet"
	"github.com/acronis/go-carpet/connector"
	"github.com/acronis/go-carpet/migrate"
)

//go:embed changes
var changesFS embed.FS

func main() {
	if err := runChangeSet(); err != nil {
		stdlog.Fatal(err)
	}
}

func runChangeSet() error {
	var dev bool
	flag.BoolVar(&dev, "dev", false, "dev mode, nothing is executed")
	var driverName string
	flag.StringVar(&driverName, "driver", "sqlite3", "driver name, supported values: sqlite3, mysql, postgres, pgx")
	flag.Parse()

	dialect, err := parseDialectFromDriver(driverName)
	if err != nil {
		return fmt.Errorf("parse dialect: %w", err)
	}
	dsn := os.Getenv("DB_DSN")
	if dsn == "" && dialect == carpet.DialectSQLite {
		dsn = "carpet-example.db"
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() { _ = db.Close() }()

	logger, loggerClose := log.NewLogger(&log.Config{Output: log.OutputStderr, Level: log.LevelInfo})
	defer loggerClose()

	resources, err := fs.Sub(changesFS, "changes")
	if err != nil {
		return err
	}
	engine, err := migrate.NewEngine(connector.NewSQLProvider(db, dialect), logger,
		migrate.WithDevMode(dev), migrate.WithResources(resources))
	if err != nil {
		return err
	}
	report, err := engine.Run(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("%d task(s) applied, %d skipped\n", len(report.Applied), report.Skipped)
	return nil
}

func parseDialectFromDriver(driverName string) (carpet.Dialect, error) {
	switch driverName {
	case "sqlite3":
		return carpet.DialectSQLite, nil
	case "mysql":
		return carpet.DialectMySQL, nil
	case "postgres":
		return carpet.DialectPostgres, nil
	case "pgx":
		return carpet.DialectPgx, nil
	default:
		return "", fmt.Errorf("unknown driver name: %s", driverName)
	}
}
