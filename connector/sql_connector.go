/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package connector

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/acronis/go-appkit/log"
	"github.com/hashicorp/go-multierror"

	"github.com/acronis/go-carpet"
)

// Option is a functional option for SQLConnector.
type Option func(*options)

type options struct {
	tableName           string
	eagerBackfillCommit bool
	txLevel             sql.IsolationLevel
	logger              log.FieldLogger
	now                 func() time.Time
}

// WithTableName sets a custom tracking table name.
func WithTableName(name string) Option {
	return func(o *options) {
		o.tableName = name
	}
}

// WithEagerBackfillCommit makes UpdateTaskHash commit the current transaction right after the hash is stored.
// By default back-filled hashes are committed together with the rest of the run.
func WithEagerBackfillCommit(eager bool) Option {
	return func(o *options) {
		o.eagerBackfillCommit = eager
	}
}

// WithIsolationLevel sets the isolation level of transactions started by the connector.
func WithIsolationLevel(level sql.IsolationLevel) Option {
	return func(o *options) {
		o.txLevel = level
	}
}

// WithLogger sets the logger. Executed statements are logged at info level.
func WithLogger(logger log.FieldLogger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func makeOptions(opts []Option) options {
	o := options{tableName: DefaultTableName, logger: log.NewDisabledLogger(), now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// SQLConnector implements DatabaseConnector over a single connection of a *sql.DB.
// It is not safe for concurrent use.
type SQLConnector struct {
	conn   *sql.Conn
	tx     *sql.Tx
	schema *schema
	opts   options
}

var _ DatabaseConnector = (*SQLConnector)(nil)

// NewSQLConnector reserves a connection from db and creates a new SQLConnector on it.
// The connection is returned to the pool by Close.
func NewSQLConnector(ctx context.Context, db *sql.DB, dialect carpet.Dialect, opts ...Option) (*SQLConnector, error) {
	if db == nil {
		return nil, fmt.Errorf("db cannot be nil")
	}
	o := makeOptions(opts)
	s, err := newSchema(dialect, o.tableName)
	if err != nil {
		return nil, err
	}
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, carpet.WrapDatabaseError(err, "unable to get database connection")
	}
	return &SQLConnector{conn: conn, schema: s, opts: o}, nil
}

// TableName returns the name of the tracking table.
func (c *SQLConnector) TableName() string {
	return c.schema.tableName
}

func (c *SQLConnector) currentTx(ctx context.Context) (*sql.Tx, error) {
	if c.tx != nil {
		return c.tx, nil
	}
	if c.conn == nil {
		return nil, carpet.DatabaseErrorf("connector is closed")
	}
	tx, err := c.conn.BeginTx(ctx, &sql.TxOptions{Isolation: c.opts.txLevel})
	if err != nil {
		return nil, carpet.WrapDatabaseError(err, "unable to begin transaction")
	}
	c.tx = tx
	return tx, nil
}

func (c *SQLConnector) exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	tx, err := c.currentTx(ctx)
	if err != nil {
		return nil, err
	}
	return tx.ExecContext(ctx, query, args...)
}

func (c *SQLConnector) queryCount(ctx context.Context, query string, args []interface{}) (int, error) {
	tx, err := c.currentTx(ctx)
	if err != nil {
		return 0, err
	}
	var count int
	if err = tx.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// ExecuteStatement executes a single statement in the current transaction.
func (c *SQLConnector) ExecuteStatement(ctx context.Context, statement string) error {
	c.opts.logger.Info("executing statement", log.String("statement", statement))
	if _, err := c.exec(ctx, statement); err != nil {
		return carpet.WrapDatabaseError(err, "could not execute statement: %s", statement)
	}
	return nil
}

// CheckChangeSetTable creates the tracking table and adds the hash column if they are missing.
// The changes are committed immediately.
func (c *SQLConnector) CheckChangeSetTable(ctx context.Context, createIfMissing bool) error {
	tableExists, err := c.exists(ctx, c.schema.tableExistsSQL)
	if err != nil {
		return carpet.WrapDatabaseError(err, "could not inspect table %s", c.schema.tableName)
	}
	if !tableExists {
		if !createIfMissing {
			return carpet.DatabaseErrorf("table %s does not exist", c.schema.tableName)
		}
		c.opts.logger.Info("creating change set table", log.String("table", c.schema.tableName))
		if _, err = c.exec(ctx, c.schema.createTableSQL()); err != nil {
			return carpet.WrapDatabaseError(err, "could not create table %s", c.schema.tableName)
		}
	}

	hashExists, err := c.exists(ctx, func() (string, []interface{}, error) {
		return c.schema.columnExistsSQL(HashColumn)
	})
	if err != nil {
		return carpet.WrapDatabaseError(err, "could not inspect columns of table %s", c.schema.tableName)
	}
	if !hashExists {
		if !createIfMissing {
			return carpet.DatabaseErrorf("table %s has no %s column", c.schema.tableName, HashColumn)
		}
		c.opts.logger.Info("adding hash column to change set table", log.String("table", c.schema.tableName))
		if _, err = c.exec(ctx, c.schema.addHashColumnSQL()); err != nil {
			return carpet.WrapDatabaseError(err, "could not alter table %s with column %s", c.schema.tableName, HashColumn)
		}
	}
	if !tableExists || !hashExists {
		return c.Commit()
	}
	return nil
}

func (c *SQLConnector) exists(ctx context.Context, buildQuery func() (string, []interface{}, error)) (bool, error) {
	query, args, err := buildQuery()
	if err != nil {
		return false, err
	}
	count, err := c.queryCount(ctx, query, args)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// VersionExists reports whether any task of the version is recorded.
func (c *SQLConnector) VersionExists(ctx context.Context, version string) (bool, error) {
	exists, err := c.exists(ctx, func() (string, []interface{}, error) {
		return c.schema.countVersionSQL(version)
	})
	if err != nil {
		return false, carpet.WrapDatabaseError(err, "could not check version %s", version)
	}
	return exists, nil
}

// TaskExists reports whether the task of the version is recorded.
func (c *SQLConnector) TaskExists(ctx context.Context, version, taskName string) (bool, error) {
	exists, err := c.exists(ctx, func() (string, []interface{}, error) {
		return c.schema.countTaskSQL(version, taskName)
	})
	if err != nil {
		return false, carpet.WrapDatabaseError(err, "could not check task %s %s", version, taskName)
	}
	return exists, nil
}

// TaskHashMatches compares the stored hash of the task with the hash of content.
func (c *SQLConnector) TaskHashMatches(ctx context.Context, version, taskName, content string) (bool, error) {
	query, args, err := c.schema.selectHashSQL(version, taskName)
	if err != nil {
		return false, carpet.WrapDatabaseError(err, "could not build hash query")
	}
	tx, err := c.currentTx(ctx)
	if err != nil {
		return false, err
	}
	var storedHash sql.NullString
	if err = tx.QueryRowContext(ctx, query, args...).Scan(&storedHash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, carpet.WrapDatabaseError(err, "could not read hash of task %s %s", version, taskName)
	}
	if !storedHash.Valid {
		return false, nil
	}
	if storedHash.String != ContentHash(content) {
		return false, carpet.DriftErrorf("stored hash and calculated hash for %s %s do not match", version, taskName)
	}
	return true, nil
}

// UpdateTaskHash stores the hash of content for the task if it has no hash yet.
func (c *SQLConnector) UpdateTaskHash(ctx context.Context, version, taskName, content string) error {
	query, args, err := c.schema.updateHashSQL(version, taskName, ContentHash(content))
	if err != nil {
		return carpet.WrapDatabaseError(err, "could not build hash update")
	}
	if _, err = c.exec(ctx, query, args...); err != nil {
		return carpet.WrapDatabaseError(err, "could not update hash of task %s %s", version, taskName)
	}
	if c.opts.eagerBackfillCommit {
		return c.Commit()
	}
	return nil
}

// RecordTask inserts a tracking row for the task.
func (c *SQLConnector) RecordTask(ctx context.Context, version, taskName, content string) error {
	now := c.opts.now().UTC()
	applied := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	query, args, err := c.schema.insertTaskSQL(version, taskName, ContentHash(content), applied)
	if err != nil {
		return carpet.WrapDatabaseError(err, "could not build task insert")
	}
	if _, err = c.exec(ctx, query, args...); err != nil {
		return carpet.WrapDatabaseError(err, "could not insert task %s for change %s", taskName, version)
	}
	return nil
}

// Commit commits the current transaction. It is a no-op if no transaction is in progress.
func (c *SQLConnector) Commit() error {
	if c.tx == nil {
		return nil
	}
	tx := c.tx
	c.tx = nil
	if err := tx.Commit(); err != nil {
		return carpet.WrapDatabaseError(err, "unable to commit changes to database")
	}
	return nil
}

// RollBack rolls back the current transaction. It is a no-op if no transaction is in progress.
func (c *SQLConnector) RollBack() error {
	if c.tx == nil {
		return nil
	}
	tx := c.tx
	c.tx = nil
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return carpet.WrapDatabaseError(err, "could not roll back changes")
	}
	return nil
}

// Close rolls back the transaction in progress, if any, and returns the connection to the pool.
func (c *SQLConnector) Close() error {
	if c.conn == nil {
		return nil
	}
	var result *multierror.Error
	if err := c.RollBack(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := c.conn.Close(); err != nil {
		result = multierror.Append(result, carpet.WrapDatabaseError(err, "unable to close database connection"))
	}
	c.conn = nil
	return result.ErrorOrNil()
}

// SQLProvider opens SQLConnectors on connections of a *sql.DB.
type SQLProvider struct {
	db      *sql.DB
	dialect carpet.Dialect
	opts    []Option
}

var _ Provider = (*SQLProvider)(nil)

// NewSQLProvider creates a new SQLProvider. The options are applied to every opened connector.
func NewSQLProvider(db *sql.DB, dialect carpet.Dialect, opts ...Option) *SQLProvider {
	return &SQLProvider{db: db, dialect: dialect, opts: opts}
}

// Open reserves a connection and returns a connector on it.
func (p *SQLProvider) Open(ctx context.Context) (DatabaseConnector, error) {
	conn, err := NewSQLConnector(ctx, p.db, p.dialect, p.opts...)
	if err != nil {
		return nil, err
	}
	return conn, nil
}
