/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package distrlock

import (
	"fmt"
	"strconv"
	"time"

	"github.com/acronis/go-carpet"
)

type dbQueries struct {
	createTable   string
	dropTable     string
	initLock      string
	acquireLock   string
	releaseLock   string
	extendLock    string
	intervalMaker func(interval time.Duration) interface{}
}

func newDBQueries(dialect carpet.Dialect, tableName string) (dbQueries, error) {
	switch dialect {
	case carpet.DialectPostgres, carpet.DialectPgx:
		return dbQueries{
			createTable:   fmt.Sprintf(postgresCreateTableQuery, tableName),
			dropTable:     fmt.Sprintf(postgresDropTableQuery, tableName),
			initLock:      fmt.Sprintf(postgresInitLockQuery, tableName),
			acquireLock:   fmt.Sprintf(postgresAcquireLockQuery, tableName),
			releaseLock:   fmt.Sprintf(postgresReleaseLockQuery, tableName),
			extendLock:    fmt.Sprintf(postgresExtendLockQuery, tableName),
			intervalMaker: postgresMakeInterval,
		}, nil
	case carpet.DialectMySQL:
		return dbQueries{
			createTable:   fmt.Sprintf(mySQLCreateTableQuery, tableName),
			dropTable:     fmt.Sprintf(mySQLDropTableQuery, tableName),
			initLock:      fmt.Sprintf(mySQLInitLockQuery, tableName),
			acquireLock:   fmt.Sprintf(mySQLAcquireLockQuery, tableName),
			releaseLock:   fmt.Sprintf(mySQLReleaseLockQuery, tableName),
			extendLock:    fmt.Sprintf(mySQLExtendLockQuery, tableName),
			intervalMaker: mySQLMakeInterval,
		}, nil
	case carpet.DialectSQLite:
		return dbQueries{
			createTable:   fmt.Sprintf(sqliteCreateTableQuery, tableName),
			dropTable:     fmt.Sprintf(sqliteDropTableQuery, tableName),
			initLock:      fmt.Sprintf(sqliteInitLockQuery, tableName),
			acquireLock:   fmt.Sprintf(sqliteAcquireLockQuery, tableName),
			releaseLock:   fmt.Sprintf(sqliteReleaseLockQuery, tableName),
			extendLock:    fmt.Sprintf(sqliteExtendLockQuery, tableName),
			intervalMaker: sqliteMakeInterval,
		}, nil
	case carpet.DialectMSSQL:
		return dbQueries{
			createTable:   fmt.Sprintf(msSQLCreateTableQuery, tableName),
			dropTable:     fmt.Sprintf(msSQLDropTableQuery, tableName),
			initLock:      fmt.Sprintf(msSQLInitLockQuery, tableName),
			acquireLock:   fmt.Sprintf(msSQLAcquireLockQuery, tableName),
			releaseLock:   fmt.Sprintf(msSQLReleaseLockQuery, tableName),
			extendLock:    fmt.Sprintf(msSQLExtendLockQuery, tableName),
			intervalMaker: msSQLMakeInterval,
		}, nil
	default:
		return dbQueries{}, fmt.Errorf("unsupported sql dialect %q", dialect)
	}
}

//nolint:lll
const (
	postgresCreateTableQuery = `CREATE TABLE IF NOT EXISTS "%s" (lock_key varchar(40) PRIMARY KEY, token uuid, expire_at timestamp);`
	postgresDropTableQuery   = `DROP TABLE IF EXISTS "%s";`
	postgresInitLockQuery    = `INSERT INTO "%s" (lock_key) VALUES ($1) ON CONFLICT (lock_key) DO NOTHING;`
	postgresAcquireLockQuery = `UPDATE "%s" SET expire_at = NOW() + $1::interval, token = $2 WHERE lock_key = $3 AND ((expire_at IS NULL OR expire_at < NOW()) OR token = $4);`
	postgresReleaseLockQuery = `UPDATE "%s" SET expire_at = NULL WHERE lock_key = $1 AND token = $2 AND expire_at >= NOW();`
	postgresExtendLockQuery  = `UPDATE "%s" SET expire_at = NOW() + $1::interval WHERE lock_key = $2 AND token = $3 AND expire_at >= NOW();`
)

func postgresMakeInterval(interval time.Duration) interface{} {
	return strconv.FormatInt(interval.Microseconds(), 10) + " microseconds"
}

//nolint:lll
const (
	mySQLCreateTableQuery = "CREATE TABLE IF NOT EXISTS `%s` (lock_key VARCHAR(40) PRIMARY KEY, token VARCHAR(36), expire_at BIGINT);"
	mySQLDropTableQuery   = "DROP TABLE IF EXISTS `%s`;"
	mySQLInitLockQuery    = "INSERT IGNORE `%s` (lock_key) VALUES (?);"
	mySQLAcquireLockQuery = "UPDATE `%s` SET expire_at = UNIX_TIMESTAMP(DATE_ADD(CURTIME(4), INTERVAL ? MICROSECOND))*10000, token = ? WHERE lock_key = ? AND ((expire_at IS NULL OR expire_at < UNIX_TIMESTAMP(CURTIME(4))*10000) OR token = ?);"
	mySQLReleaseLockQuery = "UPDATE `%s` SET expire_at = NULL WHERE lock_key = ? AND token = ? AND expire_at >= UNIX_TIMESTAMP(CURTIME(4))*10000;"
	mySQLExtendLockQuery  = "UPDATE `%s` SET expire_at = UNIX_TIMESTAMP(DATE_ADD(CURTIME(4), INTERVAL ? MICROSECOND))*10000 WHERE lock_key = ? AND token = ? AND expire_at >= UNIX_TIMESTAMP(CURTIME(4))*10000;"
)

func mySQLMakeInterval(interval time.Duration) interface{} {
	return strconv.FormatInt(interval.Microseconds(), 10)
}

// sqliteNow is the current unix time in microseconds.
const sqliteNow = `CAST((julianday('now') - 2440587.5) * 86400000000 AS INTEGER)`

//nolint:lll
const (
	sqliteCreateTableQuery = `CREATE TABLE IF NOT EXISTS "%s" (lock_key VARCHAR(40) PRIMARY KEY, token VARCHAR(36), expire_at BIGINT);`
	sqliteDropTableQuery   = `DROP TABLE IF EXISTS "%s";`
	sqliteInitLockQuery    = `INSERT OR IGNORE INTO "%s" (lock_key) VALUES (?);`
	sqliteAcquireLockQuery = `UPDATE "%s" SET expire_at = ` + sqliteNow + ` + ?, token = ? WHERE lock_key = ? AND ((expire_at IS NULL OR expire_at < ` + sqliteNow + `) OR token = ?);`
	sqliteReleaseLockQuery = `UPDATE "%s" SET expire_at = NULL WHERE lock_key = ? AND token = ? AND expire_at >= ` + sqliteNow + `;`
	sqliteExtendLockQuery  = `UPDATE "%s" SET expire_at = ` + sqliteNow + ` + ? WHERE lock_key = ? AND token = ? AND expire_at >= ` + sqliteNow + `;`
)

func sqliteMakeInterval(interval time.Duration) interface{} {
	return interval.Microseconds()
}

//nolint:lll
const (
	msSQLCreateTableQuery = `IF OBJECT_ID(N'%[1]s', N'U') IS NULL CREATE TABLE [%[1]s] (lock_key VARCHAR(40) PRIMARY KEY, token VARCHAR(36), expire_at DATETIME2);`
	msSQLDropTableQuery   = `DROP TABLE IF EXISTS [%s];`
	msSQLInitLockQuery    = `IF NOT EXISTS (SELECT 1 FROM [%[1]s] WHERE lock_key = @p1) INSERT INTO [%[1]s] (lock_key) VALUES (@p1);`
	msSQLAcquireLockQuery = `UPDATE [%s] SET expire_at = DATEADD(MILLISECOND, @p1, SYSUTCDATETIME()), token = @p2 WHERE lock_key = @p3 AND ((expire_at IS NULL OR expire_at < SYSUTCDATETIME()) OR token = @p4);`
	msSQLReleaseLockQuery = `UPDATE [%s] SET expire_at = NULL WHERE lock_key = @p1 AND token = @p2 AND expire_at >= SYSUTCDATETIME();`
	msSQLExtendLockQuery  = `UPDATE [%s] SET expire_at = DATEADD(MILLISECOND, @p1, SYSUTCDATETIME()) WHERE lock_key = @p2 AND token = @p3 AND expire_at >= SYSUTCDATETIME();`
)

// DATEADD accepts an int, so the interval is passed in milliseconds.
func msSQLMakeInterval(interval time.Duration) interface{} {
	return interval.Milliseconds()
}
