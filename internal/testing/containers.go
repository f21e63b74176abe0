/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

// Package testing contains helpers for integration tests that run against real database servers in Docker.
package testing

import (
	"context"
	"database/sql"
	gotesting "testing"
	"time"

	_ "github.com/go-sql-driver/mysql" // register driver
	_ "github.com/jackc/pgx/v5/stdlib" // register driver
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mariadb"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/acronis/go-carpet"
)

// Images used by the helpers.
const (
	PostgresImage = "postgres:16-alpine"
	MariaDBImage  = "mariadb:11.4"
)

const (
	testDatabase = "carpet"
	testUser     = "carpet"
	testPassword = "carpet"
)

const startTimeout = 3 * time.Minute

// DB is a database running in a container.
type DB struct {
	*sql.DB
	Dialect carpet.Dialect
}

// SkipIfNoDocker skips the test in short mode or when Docker is not available.
func SkipIfNoDocker(t *gotesting.T) {
	t.Helper()
	if gotesting.Short() {
		t.Skip("skipping integration test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)
}

// StartPostgres starts a Postgres container and returns a connection pool using the pgx driver.
// The container is terminated when the test finishes.
func StartPostgres(t *gotesting.T) *DB {
	t.Helper()
	SkipIfNoDocker(t)

	ctx, cancel := context.WithTimeout(context.Background(), startTimeout)
	defer cancel()

	ctr, err := postgres.Run(ctx, PostgresImage,
		postgres.WithDatabase(testDatabase),
		postgres.WithUsername(testUser),
		postgres.WithPassword(testPassword),
		postgres.BasicWaitStrategies(),
	)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(ctr) })
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return openDB(t, "pgx", dsn, carpet.DialectPgx)
}

// StartMariaDB starts a MariaDB container and returns a connection pool using the mysql driver.
// The container is terminated when the test finishes.
func StartMariaDB(t *gotesting.T) *DB {
	t.Helper()
	SkipIfNoDocker(t)

	ctx, cancel := context.WithTimeout(context.Background(), startTimeout)
	defer cancel()

	ctr, err := mariadb.Run(ctx, MariaDBImage,
		mariadb.WithDatabase(testDatabase),
		mariadb.WithUsername(testUser),
		mariadb.WithPassword(testPassword),
	)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(ctr) })
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "parseTime=true", "multiStatements=true")
	require.NoError(t, err)
	return openDB(t, "mysql", dsn, carpet.DialectMySQL)
}

func openDB(t *gotesting.T, driverName, dsn string, dialect carpet.Dialect) *DB {
	t.Helper()
	db, err := sql.Open(driverName, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Ping())
	return &DB{DB: db, Dialect: dialect}
}
