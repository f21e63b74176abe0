/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package migrate

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/acronis/go-appkit/log"
	"github.com/hashicorp/go-multierror"

	"github.com/acronis/go-carpet"
	"github.com/acronis/go-carpet/change"
	"github.com/acronis/go-carpet/changeset"
	"github.com/acronis/go-carpet/connector"
)

// ChangeSource resolves the changes of a change set.
type ChangeSource interface {
	Resolve(ctx context.Context) ([]*change.Change, error)
}

// Locker runs fn while holding an exclusive lock shared by all deployers of the same database.
type Locker interface {
	DoExclusively(ctx context.Context, fn func(ctx context.Context) error) error
}

// TaskRef identifies a task of a change.
type TaskRef struct {
	Version string
	Task    string
}

func (r TaskRef) String() string {
	return r.Version + " " + r.Task
}

// Report describes the outcome of ExecuteChanges. A failed run reports nothing,
// since its work is rolled back.
type Report struct {
	// Applied are the tasks executed and recorded during the run, in execution order.
	Applied []TaskRef
	// Skipped is the number of recorded tasks whose hash matched.
	Skipped int
	// Backfilled are the recorded tasks that got their hash stored during the run.
	Backfilled []TaskRef
}

// Engine applies a change set to a database.
type Engine struct {
	provider connector.Provider
	logger   log.FieldLogger

	devMode       bool
	createTable   bool
	source        ChangeSource
	changeSetPath string
	resources     fs.FS
	changes       []*change.Change
	ordering      change.Ordering
	metrics       MetricsCollector
	locker        Locker
}

// NewEngine creates a new Engine.
func NewEngine(provider connector.Provider, logger log.FieldLogger, opts ...Option) (*Engine, error) {
	if provider == nil {
		return nil, fmt.Errorf("provider cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	e := &Engine{
		provider:    provider,
		logger:      logger,
		createTable: true,
		ordering:    change.DecimalOrdering,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.ordering == nil {
		e.ordering = change.DecimalOrdering
	}
	return e, nil
}

// DevMode reports whether the engine runs in dev mode.
func (e *Engine) DevMode() bool {
	return e.devMode
}

// Changes returns the changes that ExecuteChanges will apply, in execution order.
func (e *Engine) Changes() []*change.Change {
	changes := append([]*change.Change(nil), e.changes...)
	change.SortChanges(changes, e.ordering)
	return changes
}

func (e *Engine) changeSource() ChangeSource {
	switch {
	case e.source != nil:
		return e.source
	case e.changeSetPath != "":
		return changeset.NewResolver(e.changeSetPath,
			changeset.WithResources(e.resources), changeset.WithLogger(e.logger))
	case e.resources != nil:
		return changeset.NewFSResolver(e.resources, ".", changeset.WithLogger(e.logger))
	default:
		return nil
	}
}

// ParseChanges resolves the changes from the configured source. It does nothing in dev mode.
// If no source is configured, the changes passed with WithChanges are kept.
func (e *Engine) ParseChanges(ctx context.Context) error {
	if e.devMode {
		return nil
	}
	source := e.changeSource()
	if source == nil {
		if e.changes == nil {
			return carpet.ParseErrorf("no change set source is configured")
		}
		return nil
	}
	changes, err := source.Resolve(ctx)
	if err != nil {
		return err
	}
	e.changes = changes
	e.logger.Info(fmt.Sprintf("Parsed %d change(s)", len(changes)))
	return nil
}

// ExecuteChanges applies the parsed changes in a single transaction.
// On any failure the transaction is rolled back and the error is returned.
func (e *Engine) ExecuteChanges(ctx context.Context) (Report, error) {
	if e.devMode {
		e.logger.Info("Dev mode is enabled, changes are not executed")
		return Report{}, nil
	}

	startTime := time.Now()
	var report Report
	err := connector.Use(ctx, e.provider, func(conn connector.DatabaseConnector) error {
		if execErr := e.execute(ctx, conn, &report); execErr != nil {
			if rollbackErr := conn.RollBack(); rollbackErr != nil {
				return multierror.Append(execErr, rollbackErr)
			}
			return execErr
		}
		return conn.Commit()
	})
	if e.metrics != nil {
		e.metrics.ObserveRun(report, time.Since(startTime), err)
	}
	if err != nil {
		e.logger.Error("Change set execution failed, changes are rolled back", log.Error(err))
		return Report{}, err
	}
	e.logger.Info(fmt.Sprintf("Change set executed: %d task(s) applied, %d skipped, %d hash(es) back-filled",
		len(report.Applied), report.Skipped, len(report.Backfilled)))
	return report, nil
}

// Run parses and executes the changes. In dev mode it does nothing.
// If a Locker is configured, both steps are done while holding the lock.
func (e *Engine) Run(ctx context.Context) (Report, error) {
	if e.devMode {
		e.logger.Info("Dev mode is enabled, changes are not executed")
		return Report{}, nil
	}

	var report Report
	run := func(ctx context.Context) error {
		if err := e.ParseChanges(ctx); err != nil {
			return err
		}
		var err error
		report, err = e.ExecuteChanges(ctx)
		return err
	}
	if e.locker == nil {
		return report, run(ctx)
	}
	return report, e.locker.DoExclusively(ctx, run)
}

func (e *Engine) execute(ctx context.Context, conn connector.DatabaseConnector, report *Report) error {
	if err := conn.CheckChangeSetTable(ctx, e.createTable); err != nil {
		return err
	}

	for _, c := range e.Changes() {
		versionExists, err := conn.VersionExists(ctx, c.Version())
		if err != nil {
			return err
		}
		if !versionExists {
			e.logger.Info("Applying change", log.String("version", c.Version()))
			for _, task := range c.SortedTasks() {
				if err = e.runTask(ctx, conn, c.Version(), task, report); err != nil {
					return err
				}
			}
			continue
		}
		if err = e.validateExistingChange(ctx, conn, c, report); err != nil {
			return err
		}
	}
	return nil
}

// validateExistingChange applies the new tasks of a recorded change and verifies the hashes of the recorded ones.
func (e *Engine) validateExistingChange(
	ctx context.Context, conn connector.DatabaseConnector, c *change.Change, report *Report,
) error {
	for _, task := range c.SortedTasks() {
		taskExists, err := conn.TaskExists(ctx, c.Version(), task.Name())
		if err != nil {
			return err
		}
		if !taskExists {
			if err = e.runTask(ctx, conn, c.Version(), task, report); err != nil {
				return err
			}
			continue
		}

		matches, err := conn.TaskHashMatches(ctx, c.Version(), task.Name(), task.Query())
		if err != nil {
			return err
		}
		ref := TaskRef{Version: c.Version(), Task: task.Name()}
		if matches {
			report.Skipped++
			continue
		}
		if err = conn.UpdateTaskHash(ctx, c.Version(), task.Name(), task.Query()); err != nil {
			return err
		}
		e.logger.Info("Task hash back-filled", log.String("version", ref.Version), log.String("task", ref.Task))
		report.Backfilled = append(report.Backfilled, ref)
	}
	return nil
}

func (e *Engine) runTask(
	ctx context.Context, conn connector.DatabaseConnector, version string, task change.Task, report *Report,
) error {
	e.logger.Info("Running task", log.String("version", version), log.String("task", task.Name()),
		log.Int("statements", len(task.Statements())))
	if err := task.Perform(ctx, conn); err != nil {
		return taskError(err, version, task.Name())
	}
	if err := conn.RecordTask(ctx, version, task.Name(), task.Query()); err != nil {
		return taskError(err, version, task.Name())
	}
	report.Applied = append(report.Applied, TaskRef{Version: version, Task: task.Name()})
	return nil
}

func taskError(err error, version, taskName string) error {
	if errors.Is(err, carpet.ErrDatabase) || errors.Is(err, carpet.ErrDrift) {
		return fmt.Errorf("error running task %s %s: %w", version, taskName, err)
	}
	return carpet.WrapDatabaseError(err, "error running task %s %s", version, taskName)
}
