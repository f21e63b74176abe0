/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package migrate

import (
	"io/fs"

	"github.com/acronis/go-carpet/change"
)

// Option is a functional option for Engine configuration.
type Option func(*Engine)

// WithDevMode disables all database interaction: parsing is skipped and execution is a no-op.
func WithDevMode(devMode bool) Option {
	return func(e *Engine) {
		e.devMode = devMode
	}
}

// WithCreateTable controls whether the tracking table may be created or altered. Enabled by default.
func WithCreateTable(createTable bool) Option {
	return func(e *Engine) {
		e.createTable = createTable
	}
}

// WithSource sets the source changes are resolved from.
func WithSource(source ChangeSource) Option {
	return func(e *Engine) {
		e.source = source
	}
}

// WithChangeSetPath makes the engine resolve changes from a file or directory on the OS filesystem.
// It is ignored if WithSource is used.
func WithChangeSetPath(path string) Option {
	return func(e *Engine) {
		e.changeSetPath = path
	}
}

// WithResources sets the FS used for "classpath:" file references. Without WithSource and WithChangeSetPath,
// changes are resolved from the root of this FS.
func WithResources(resources fs.FS) Option {
	return func(e *Engine) {
		e.resources = resources
	}
}

// WithChanges sets the changes explicitly. ParseChanges keeps them if no source is configured.
func WithChanges(changes ...*change.Change) Option {
	return func(e *Engine) {
		e.changes = append([]*change.Change(nil), changes...)
	}
}

// WithOrdering sets the version ordering. change.DecimalOrdering is used by default.
func WithOrdering(ordering change.Ordering) Option {
	return func(e *Engine) {
		e.ordering = ordering
	}
}

// WithMetrics sets the collector of run metrics.
func WithMetrics(metrics MetricsCollector) Option {
	return func(e *Engine) {
		e.metrics = metrics
	}
}

// WithLocker makes Run hold the lock while changes are parsed and executed.
func WithLocker(locker Locker) Option {
	return func(e *Engine) {
		e.locker = locker
	}
}
