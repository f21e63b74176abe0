/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package carpet_test

import (
	"context"
	"database/sql"
	"log"

	_ "github.com/mattn/go-sqlite3"

	"github.com/acronis/go-carpet"
)

func Example() {
	// Configure the database using the carpet.Config struct.
	// In this example, we're using an in-memory SQLite database. Adjust Dialect and config fields for your target DB.
	cfg := &carpet.Config{
		Dialect:      carpet.DialectSQLite,
		SQLite:       carpet.SQLiteConfig{Path: ":memory:"},
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}

	// Open the database connection.
	// The 2nd parameter is a boolean that indicates whether to ping the database.
	db, err := carpet.Open(cfg, true)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	// Execute several statements atomically.
	if err = carpet.DoInTx(context.Background(), db, func(tx *sql.Tx) error {
		_, txErr := tx.Exec("CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT)")
		return txErr
	}); err != nil {
		log.Fatal(err)
	}

	// Output:
}
