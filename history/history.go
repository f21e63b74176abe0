/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

// Package history reads the change set tracking table and compares it with a change set.
package history

import (
	"context"
	"fmt"
	"time"

	"github.com/gocraft/dbr/v2"

	"github.com/acronis/go-carpet"
	"github.com/acronis/go-carpet/change"
	"github.com/acronis/go-carpet/connector"
)

// Record is a row of the tracking table.
type Record struct {
	Version string         `db:"version"`
	Task    string         `db:"task"`
	Applied dbr.NullTime   `db:"applied"`
	Hash    dbr.NullString `db:"hash"`
}

// State is the state of a task relative to the tracking table.
type State string

// Task states.
const (
	// StatePending means the task is not recorded.
	StatePending State = "pending"
	// StateApplied means the task is recorded and its hash matches.
	StateApplied State = "applied"
	// StateUnverified means the task is recorded without a hash, it will be back-filled by the next run.
	StateUnverified State = "unverified"
	// StateDrifted means the recorded hash differs from the hash of the task content.
	StateDrifted State = "drifted"
)

// TaskStatus is the state of a single task of a change set.
type TaskStatus struct {
	Version string
	Task    string
	State   State
	Applied time.Time
}

// Reader reads the tracking table.
type Reader struct {
	conn      *dbr.Connection
	tableName string
}

// Option is an option for NewReader.
type Option func(*Reader)

// WithTableName sets the name of the tracking table.
func WithTableName(name string) Option {
	return func(r *Reader) {
		r.tableName = name
	}
}

// NewReader creates a new Reader.
func NewReader(conn *dbr.Connection, opts ...Option) *Reader {
	r := &Reader{conn: conn, tableName: connector.DefaultTableName}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Records returns all tracked tasks ordered by version and task name.
func (r *Reader) Records(ctx context.Context) ([]Record, error) {
	var records []Record
	_, err := r.conn.NewSession(nil).
		Select(connector.VersionColumn, connector.TaskColumn, connector.AppliedColumn, connector.HashColumn).
		From(r.tableName).
		OrderBy(connector.VersionColumn).
		OrderBy(connector.TaskColumn).
		LoadContext(ctx, &records)
	if err != nil {
		return nil, carpet.WrapDatabaseError(err, "could not read table %s", r.tableName)
	}
	return records, nil
}

// Status compares changes with the tracking table. The result is in execution order.
func (r *Reader) Status(ctx context.Context, changes []*change.Change, ordering change.Ordering) ([]TaskStatus, error) {
	records, err := r.Records(ctx)
	if err != nil {
		return nil, err
	}
	return CompareRecords(records, changes, ordering), nil
}

// CompareRecords computes the state of every task of changes against records.
func CompareRecords(records []Record, changes []*change.Change, ordering change.Ordering) []TaskStatus {
	type key struct{ version, task string }
	byKey := make(map[key]Record, len(records))
	for _, rec := range records {
		byKey[key{rec.Version, rec.Task}] = rec
	}

	sorted := append([]*change.Change(nil), changes...)
	change.SortChanges(sorted, ordering)

	var result []TaskStatus
	for _, c := range sorted {
		for _, task := range c.SortedTasks() {
			status := TaskStatus{Version: c.Version(), Task: task.Name(), State: StatePending}
			if rec, ok := byKey[key{c.Version(), task.Name()}]; ok {
				status.State = recordState(rec, task.Query())
				if rec.Applied.Valid {
					status.Applied = rec.Applied.Time
				}
			}
			result = append(result, status)
		}
	}
	return result
}

func recordState(rec Record, content string) State {
	switch {
	case !rec.Hash.Valid:
		return StateUnverified
	case rec.Hash.String == connector.ContentHash(content):
		return StateApplied
	default:
		return StateDrifted
	}
}

func (s TaskStatus) String() string {
	return fmt.Sprintf("%s %s: %s", s.Version, s.Task, s.State)
}
