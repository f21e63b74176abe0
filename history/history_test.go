/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package history

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/acronis/go-appkit/log"
	"github.com/gocraft/dbr/v2"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/acronis/go-carpet"
	"github.com/acronis/go-carpet/change"
	"github.com/acronis/go-carpet/connector"
	"github.com/acronis/go-carpet/dbrutil"
	"github.com/acronis/go-carpet/migrate"
)

func mustChange(t *testing.T, version string, scripts ...string) *change.Change {
	t.Helper()
	tasks := make([]change.Task, 0, len(scripts))
	for i, script := range scripts {
		task, err := change.NewScriptTask("task"+string(rune('a'+i)), i+1, script, "")
		require.NoError(t, err)
		tasks = append(tasks, task)
	}
	c, err := change.New(version, tasks...)
	require.NoError(t, err)
	return c
}

func TestReader(t *testing.T) {
	ctx := context.Background()
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	applied := []*change.Change{
		mustChange(t, "1.0.0", "CREATE TABLE a (id INTEGER)", "CREATE TABLE b (id INTEGER)"),
		mustChange(t, "1.0.1", "CREATE TABLE c (id INTEGER)"),
	}
	engine, err := migrate.NewEngine(connector.NewSQLProvider(db, carpet.DialectSQLite), log.NewDisabledLogger(),
		migrate.WithChanges(applied...))
	require.NoError(t, err)
	_, err = engine.ExecuteChanges(ctx)
	require.NoError(t, err)

	_, err = db.Exec("UPDATE change_set SET hash = NULL WHERE version = '1.0.1'")
	require.NoError(t, err)

	conn, err := dbrutil.Wrap(db, carpet.DialectSQLite, nil)
	require.NoError(t, err)
	reader := NewReader(conn)

	records, err := reader.Records(ctx)
	require.NoError(t, err)
	require.Len(t, records, 3)
	require.Equal(t, "1.0.0", records[0].Version)
	require.Equal(t, "taska", records[0].Task)
	require.Equal(t, connector.ContentHash("CREATE TABLE a (id INTEGER)"), records[0].Hash.String)
	require.True(t, records[0].Applied.Valid)
	require.Equal(t, time.Now().UTC().Format("2006-01-02"), records[0].Applied.Time.UTC().Format("2006-01-02"))
	require.False(t, records[2].Hash.Valid)

	current := []*change.Change{
		mustChange(t, "1.1.0", "CREATE TABLE d (id INTEGER)"),
		mustChange(t, "1.0.0", "CREATE TABLE a (id INTEGER)", "CREATE TABLE b (id BIGINT)"),
		mustChange(t, "1.0.1", "CREATE TABLE c (id INTEGER)"),
	}
	statuses, err := reader.Status(ctx, current, nil)
	require.NoError(t, err)
	var got []string
	for _, s := range statuses {
		got = append(got, s.String())
	}
	require.Equal(t, []string{
		"1.0.0 taska: applied",
		"1.0.0 taskb: drifted",
		"1.0.1 taska: unverified",
		"1.1.0 taska: pending",
	}, got)
	require.True(t, statuses[3].Applied.IsZero())
}

func TestReader_MissingTable(t *testing.T) {
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	conn, err := dbrutil.Wrap(db, carpet.DialectSQLite, nil)
	require.NoError(t, err)
	_, err = NewReader(conn, WithTableName("schema_changes")).Records(context.Background())
	require.ErrorIs(t, err, carpet.ErrDatabase)
	require.Contains(t, err.Error(), "schema_changes")
}

func TestCompareRecords(t *testing.T) {
	records := []Record{
		{Version: "1.0.0", Task: "taska", Hash: dbr.NewNullString(connector.ContentHash("SELECT 1"))},
	}
	changes := []*change.Change{mustChange(t, "1.0.0", "SELECT 1", "SELECT 2")}
	statuses := CompareRecords(records, changes, change.SemanticOrdering)
	require.Equal(t, []TaskStatus{
		{Version: "1.0.0", Task: "taska", State: StateApplied},
		{Version: "1.0.0", Task: "taskb", State: StatePending},
	}, statuses)
}
