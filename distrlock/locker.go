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
	"github.com/cenkalti/backoff/v4"

	"github.com/acronis/go-carpet"
	"github.com/acronis/go-carpet/migrate"
)

// DBLocker serializes change set runs of several deployers sharing the same database.
// It implements migrate.Locker.
type DBLocker struct {
	db          *sql.DB
	manager     *DBManager
	key         string
	wait        time.Duration
	ensureTable bool
	logger      log.FieldLogger
	doOptions   []DoOption
}

var _ migrate.Locker = (*DBLocker)(nil)

// LockerOption is an option for NewDBLocker.
type LockerOption func(*DBLocker)

// WithWait sets how long DoExclusively waits for a lock held by another deployer. Zero means no waiting.
func WithWait(wait time.Duration) LockerOption {
	return func(l *DBLocker) {
		l.wait = wait
	}
}

// WithEnsureTable controls whether the locks table is created on first use. It is enabled by default.
func WithEnsureTable(ensure bool) LockerOption {
	return func(l *DBLocker) {
		l.ensureTable = ensure
	}
}

// WithLockerLogger sets logger for the locker and the underlying lock.
func WithLockerLogger(logger log.FieldLogger) LockerOption {
	return func(l *DBLocker) {
		l.logger = logger
	}
}

// WithDoOptions sets options passed to DBLock.DoExclusively.
func WithDoOptions(options ...DoOption) LockerOption {
	return func(l *DBLocker) {
		l.doOptions = append(l.doOptions, options...)
	}
}

// NewDBLocker creates a new DBLocker for the key.
func NewDBLocker(db *sql.DB, manager *DBManager, key string, options ...LockerOption) (*DBLocker, error) {
	if db == nil {
		return nil, fmt.Errorf("db cannot be nil")
	}
	if manager == nil {
		return nil, fmt.Errorf("manager cannot be nil")
	}
	if key == "" || len(key) > MaxKeyLength {
		return nil, fmt.Errorf("lock key must be from 1 to %d symbols long", MaxKeyLength)
	}
	l := &DBLocker{db: db, manager: manager, key: key, ensureTable: true}
	for _, opt := range options {
		opt(l)
	}
	if l.logger == nil {
		l.logger = log.NewDisabledLogger()
	}
	return l, nil
}

// NewDBLockerFromConfig creates a DBLocker configured by the lock section of the change set config.
func NewDBLockerFromConfig(
	db *sql.DB, dialect carpet.Dialect, cfg migrate.LockConfig, logger log.FieldLogger,
) (*DBLocker, error) {
	manager, err := NewDBManager(dialect)
	if err != nil {
		return nil, err
	}
	return NewDBLocker(db, manager, cfg.Key,
		WithWait(time.Duration(cfg.Wait)),
		WithLockerLogger(logger),
		WithDoOptions(WithLockTTL(time.Duration(cfg.TTL))),
	)
}

// DoExclusively acquires the lock, waiting for it if configured, and runs fn while holding it.
func (l *DBLocker) DoExclusively(ctx context.Context, fn func(ctx context.Context) error) error {
	if l.ensureTable {
		if err := l.manager.EnsureTable(ctx, l.db); err != nil {
			return err
		}
	}
	lock, err := l.manager.NewLock(ctx, l.db, l.key)
	if err != nil {
		return err
	}

	doOptions := append([]DoOption{WithLogger(l.logger)}, l.doOptions...)
	started := false
	operation := func() error {
		doErr := lock.DoExclusively(ctx, l.db, func(ctx context.Context) error {
			started = true
			return fn(ctx)
		}, doOptions...)
		if !started && errors.Is(doErr, ErrLockAlreadyAcquired) {
			return doErr
		}
		return backoff.Permanent(doErr)
	}
	notify := func(err error, next time.Duration) {
		l.logger.Info("change set lock is held by another deployer, waiting",
			log.String("key", l.key), log.String("retry_in", next.String()))
	}
	return backoff.RetryNotify(operation, l.newBackOff(ctx), notify)
}

func (l *DBLocker) newBackOff(ctx context.Context) backoff.BackOff {
	if l.wait <= 0 {
		return backoff.WithContext(&backoff.StopBackOff{}, ctx)
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = l.wait
	return backoff.WithContext(b, ctx)
}
