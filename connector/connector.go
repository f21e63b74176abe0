/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package connector

import (
	"context"

	"github.com/hashicorp/go-multierror"

	"github.com/acronis/go-carpet/change"
)

// DatabaseConnector is the set of transactional primitives the migration engine relies on.
// All methods return errors of the carpet.ErrDatabase kind wrapping the driver error,
// except TaskHashMatches that returns a carpet.ErrDrift error on hash mismatch.
type DatabaseConnector interface {
	change.StatementExecutor

	// CheckChangeSetTable ensures the tracking table and its hash column exist.
	// If createIfMissing is false, a missing table or column is an error.
	CheckChangeSetTable(ctx context.Context, createIfMissing bool) error

	// VersionExists reports whether any task of the version was recorded.
	VersionExists(ctx context.Context, version string) (bool, error)

	// TaskExists reports whether the task of the version was recorded.
	TaskExists(ctx context.Context, version, taskName string) (bool, error)

	// TaskHashMatches returns true if the stored hash of the task equals the hash of content,
	// false if no hash is stored and a drift error if the stored hash differs.
	TaskHashMatches(ctx context.Context, version, taskName, content string) (bool, error)

	// UpdateTaskHash stores the hash of content for a task recorded without hash.
	// A stored hash is never overwritten.
	UpdateTaskHash(ctx context.Context, version, taskName, content string) error

	// RecordTask records the task as applied today with the hash of content.
	RecordTask(ctx context.Context, version, taskName, content string) error

	Commit() error
	RollBack() error
	Close() error
}

// Provider opens connectors. Every opened connector must be closed by the caller.
type Provider interface {
	Open(ctx context.Context) (DatabaseConnector, error)
}

// ProviderFunc is an adapter to allow the use of ordinary functions as Provider.
type ProviderFunc func(ctx context.Context) (DatabaseConnector, error)

// Open calls f(ctx).
func (f ProviderFunc) Open(ctx context.Context) (DatabaseConnector, error) {
	return f(ctx)
}

// Use opens a connector, passes it to fn and closes it regardless of the result.
// A close error is returned alone if fn succeeded, or combined with the error of fn otherwise.
func Use(ctx context.Context, provider Provider, fn func(conn DatabaseConnector) error) (err error) {
	conn, err := provider.Open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := conn.Close(); closeErr != nil {
			if err == nil {
				err = closeErr
			} else {
				err = multierror.Append(err, closeErr)
			}
		}
	}()
	return fn(conn)
}
