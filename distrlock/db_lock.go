/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package distrlock

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/acronis/go-appkit/log"
	"github.com/google/uuid"

	"github.com/acronis/go-carpet"
)

// DefaultTableName is the name of the table holding run locks unless WithTableName is used.
const DefaultTableName = "change_set_locks"

// MaxKeyLength is the maximum length of a lock key.
const MaxKeyLength = 40

// SQLExecutor is implemented by *sql.DB, *sql.Conn and *sql.Tx.
type SQLExecutor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// DBManager creates locks stored as rows of a single table, one row per key.
type DBManager struct {
	queries dbQueries
}

// DBManagerOption is an option for NewDBManager.
type DBManagerOption func(*dbManagerOptions)

type dbManagerOptions struct {
	tableName string
}

// WithTableName overrides DefaultTableName.
func WithTableName(tableName string) DBManagerOption {
	return func(o *dbManagerOptions) {
		o.tableName = tableName
	}
}

// NewDBManager returns a manager generating the lock queries for dialect.
func NewDBManager(dialect carpet.Dialect, options ...DBManagerOption) (*DBManager, error) {
	var opts dbManagerOptions
	for _, opt := range options {
		opt(&opts)
	}
	if opts.tableName == "" {
		opts.tableName = DefaultTableName
	}
	q, err := newDBQueries(dialect, opts.tableName)
	if err != nil {
		return nil, err
	}
	return &DBManager{q}, nil
}

// CreateTableSQL returns idempotent DDL of the locks table.
func (m *DBManager) CreateTableSQL() string {
	return m.queries.createTable
}

// DropTableSQL returns DDL removing the locks table.
func (m *DBManager) DropTableSQL() string {
	return m.queries.dropTable
}

// EnsureTable runs CreateTableSQL.
func (m *DBManager) EnsureTable(ctx context.Context, executor SQLExecutor) error {
	if _, err := executor.ExecContext(ctx, m.queries.createTable); err != nil {
		return fmt.Errorf("create locks table: %w", err)
	}
	return nil
}

// NewLock makes sure the row for key exists and returns a lock that is not acquired yet.
func (m *DBManager) NewLock(ctx context.Context, executor SQLExecutor, key string) (DBLock, error) {
	if key == "" {
		return DBLock{}, fmt.Errorf("lock key cannot be empty")
	}
	if len(key) > MaxKeyLength {
		return DBLock{}, fmt.Errorf("lock key cannot be longer than %d symbols", MaxKeyLength)
	}
	if _, err := executor.ExecContext(ctx, m.queries.initLock, key); err != nil {
		return DBLock{}, fmt.Errorf("init lock with key %s: %w", key, err)
	}
	return DBLock{Key: key, manager: m}, nil
}

// DBLock is a handle of the row guarding one key.
type DBLock struct {
	Key     string
	TTL     time.Duration
	token   string
	manager *DBManager
}

// Acquire takes the lock with a fresh random token. ErrLockAlreadyAcquired is returned while another holder's lock is unexpired.
func (l *DBLock) Acquire(ctx context.Context, executor SQLExecutor, lockTTL time.Duration) error {
	return l.AcquireWithStaticToken(ctx, executor, uuid.NewString(), lockTTL)
}

// AcquireWithStaticToken is Acquire with a caller-chosen token.
// Re-acquiring with the token of the current holder succeeds and resets the expiration.
func (l *DBLock) AcquireWithStaticToken(ctx context.Context, executor SQLExecutor, token string, lockTTL time.Duration) error {
	interval := l.manager.queries.intervalMaker(lockTTL)
	err := execExpectingRow(ctx, executor, l.manager.queries.acquireLock,
		[]interface{}{interval, token, l.Key, token}, ErrLockAlreadyAcquired)
	if err != nil {
		return err
	}
	l.TTL = lockTTL
	l.token = token
	return nil
}

// Release frees the lock if it is still held with the lock's token.
func (l *DBLock) Release(ctx context.Context, executor SQLExecutor) error {
	return execExpectingRow(ctx, executor,
		l.manager.queries.releaseLock, []interface{}{l.Key, l.token}, ErrLockAlreadyReleased)
}

// Extend pushes the expiration of a held lock TTL into the future.
// ErrLockAlreadyReleased means the lock expired and was taken or released meanwhile.
func (l *DBLock) Extend(ctx context.Context, executor SQLExecutor) error {
	interval := l.manager.queries.intervalMaker(l.TTL)
	return execExpectingRow(ctx, executor,
		l.manager.queries.extendLock, []interface{}{interval, l.Key, l.token}, ErrLockAlreadyReleased)
}

// Token returns the token used by the last successful acquisition.
func (l *DBLock) Token() string {
	return l.token
}

type doOptions struct {
	lockTTL        time.Duration
	extendInterval time.Duration
	releaseTimeout time.Duration
	logger         log.FieldLogger
}

// DoOption configures DoExclusively.
type DoOption func(*doOptions)

// WithLockTTL sets the lock expiration. Default is 1 minute.
func WithLockTTL(ttl time.Duration) DoOption {
	return func(o *doOptions) {
		o.lockTTL = ttl
	}
}

// WithPeriodicExtendInterval sets how often the held lock is extended. Default is half of the TTL.
func WithPeriodicExtendInterval(interval time.Duration) DoOption {
	return func(o *doOptions) {
		o.extendInterval = interval
	}
}

// WithReleaseTimeout bounds the final release. Default is 5 seconds.
func WithReleaseTimeout(timeout time.Duration) DoOption {
	return func(o *doOptions) {
		o.releaseTimeout = timeout
	}
}

// WithLogger sets the logger used for lock life-cycle events.
func WithLogger(logger log.FieldLogger) DoOption {
	return func(o *doOptions) {
		o.logger = logger
	}
}

func makeDoOptions(options []DoOption) doOptions {
	opts := doOptions{lockTTL: time.Minute, releaseTimeout: 5 * time.Second}
	for _, opt := range options {
		opt(&opts)
	}
	if opts.extendInterval == 0 {
		opts.extendInterval = opts.lockTTL / 2
	}
	if opts.logger == nil {
		opts.logger = log.NewDisabledLogger()
	}
	return opts
}

// DoExclusively runs fn while holding the lock.
// The lock is extended in the background; if an extension finds the lock lost, fn's context is canceled.
// The lock is released when fn returns, even if ctx is already canceled.
func (l *DBLock) DoExclusively(
	ctx context.Context,
	dbConn *sql.DB,
	fn func(ctx context.Context) error,
	options ...DoOption,
) error {
	opts := makeDoOptions(options)
	logger := opts.logger.With(log.String("lock_key", l.Key))

	if err := carpet.DoInTx(ctx, dbConn, func(tx *sql.Tx) error {
		return l.Acquire(ctx, tx, opts.lockTTL)
	}); err != nil {
		return err
	}
	logger = logger.With(log.String("lock_token", l.token))
	logger.Debug("lock acquired")
	defer l.releaseDetached(dbConn, opts.releaseTimeout, logger)

	fnCtx, cancelFn := context.WithCancel(ctx)
	defer cancelFn()

	stop := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		l.keepAlive(ctx, dbConn, opts.extendInterval, stop, cancelFn, logger)
	}()
	defer func() {
		close(stop)
		<-stopped
	}()

	return fn(fnCtx)
}

// keepAlive extends the lock every interval until stop is closed or the lock is lost.
func (l *DBLock) keepAlive(
	ctx context.Context, dbConn *sql.DB, interval time.Duration, stop <-chan struct{}, onLost func(), logger log.FieldLogger,
) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			err := carpet.DoInTx(ctx, dbConn, func(tx *sql.Tx) error {
				return l.Extend(ctx, tx)
			})
			if err == nil {
				continue
			}
			logger.Error("lock extension failed", log.Error(err))
			if errors.Is(err, ErrLockAlreadyReleased) {
				onLost()
				return
			}
		}
	}
}

//nolint:contextcheck // release must happen even when the caller's context is canceled
func (l *DBLock) releaseDetached(dbConn *sql.DB, timeout time.Duration, logger log.FieldLogger) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := carpet.DoInTx(ctx, dbConn, func(tx *sql.Tx) error {
		return l.Release(ctx, tx)
	}); err != nil {
		logger.Error("lock release failed", log.Error(err))
		return
	}
	logger.Debug("lock released")
}

// DoExclusively initializes the lock for key in the DefaultTableName table and runs fn while holding it.
// The table must exist, see DBManager.EnsureTable.
func DoExclusively(
	ctx context.Context,
	dbConn *sql.DB,
	dbDialect carpet.Dialect,
	key string,
	fn func(ctx context.Context) error,
	options ...DoOption,
) error {
	manager, err := NewDBManager(dbDialect)
	if err != nil {
		return err
	}
	lock, err := manager.NewLock(ctx, dbConn, key)
	if err != nil {
		return err
	}
	return lock.DoExclusively(ctx, dbConn, fn, options...)
}

// execExpectingRow runs query and returns errNoRows if it changed nothing.
func execExpectingRow(ctx context.Context, executor SQLExecutor, query string, args []interface{}, errNoRows error) error {
	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	// lib/pq may report success for statements of a canceled transaction.
	if err = ctx.Err(); err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return errNoRows
	}
	return nil
}
