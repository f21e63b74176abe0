/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package changeset

import (
	"context"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acronis/go-carpet"
	"github.com/acronis/go-carpet/change"
)

type taskSummary struct {
	Name  string
	Order int
	Type  change.TaskType
}

func summarize(c *change.Change) []taskSummary {
	var result []taskSummary
	for _, t := range c.SortedTasks() {
		result = append(result, taskSummary{Name: t.Name(), Order: t.Order(), Type: t.Type()})
	}
	return result
}

func versions(changes []*change.Change) []string {
	result := make([]string, 0, len(changes))
	for _, c := range changes {
		result = append(result, c.Version())
	}
	return result
}

func TestResolver_DirectoryConvention(t *testing.T) {
	changes, err := NewResolver(filepath.Join("testdata", "dirs")).Resolve(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"1.0.0", "1.0.1"}, versions(changes))

	require.Equal(t, []taskSummary{
		{Name: "create", Order: 1, Type: change.TaskTypeFile},
		{Name: "alter", Order: 2, Type: change.TaskTypeFile},
	}, summarize(changes[0]))

	require.Equal(t, []taskSummary{
		{Name: "add index", Order: 10, Type: change.TaskTypeFile},
		{Name: "cleanup", Order: UnnumberedTaskOrder, Type: change.TaskTypeFile},
	}, summarize(changes[1]))

	createTask := changes[0].SortedTasks()[0].(*change.FileTask)
	assert.Equal(t, filepath.Join("testdata", "dirs", "1.0.0", "1-create.sql"), createTask.FilePath())
	assert.Equal(t, []string{"CREATE TABLE users (id INTEGER PRIMARY KEY, name VARCHAR(255))"}, createTask.Statements())
}

func TestResolver_ConventionDocument(t *testing.T) {
	changes, err := NewResolver(filepath.Join("testdata", "document")).Resolve(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"1.0.0", "1.1.0"}, versions(changes))

	require.Equal(t, []taskSummary{
		{Name: "create users", Order: 1, Type: change.TaskTypeScript},
		{Name: "seed users", Order: 2, Type: change.TaskTypeFile},
	}, summarize(changes[0]))
	require.Len(t, changes[0].SortedTasks()[1].Statements(), 2)

	roles := changes[1].Tasks()[0]
	assert.Equal(t, "$$", roles.Delimiter())
	assert.Equal(t, []string{
		"CREATE TABLE roles (id INTEGER PRIMARY KEY)",
		"CREATE TABLE user_roles (user_id INTEGER, role_id INTEGER)",
	}, roles.Statements())
}

func TestResolver_SingleDocument(t *testing.T) {
	tests := []struct {
		file         string
		wantVersions []string
	}{
		{file: "changes.xml", wantVersions: []string{"1.0.0"}},
		{file: "changes.yaml", wantVersions: []string{"1.0.0", "1.0.1"}},
	}
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			changes, err := NewResolver(filepath.Join("testdata", "single", tt.file)).Resolve(context.Background())
			require.NoError(t, err)
			require.Equal(t, tt.wantVersions, versions(changes))
			require.Equal(t, []taskSummary{
				{Name: "create users", Order: 1, Type: change.TaskTypeScript},
				{Name: "seed users", Order: 2, Type: change.TaskTypeFile},
			}, summarize(changes[0]))
		})
	}
}

func TestResolver_MissingPath(t *testing.T) {
	_, err := NewResolver(filepath.Join("testdata", "missing")).Resolve(context.Background())
	require.ErrorIs(t, err, carpet.ErrParse)
	require.Contains(t, err.Error(), filepath.Join("testdata", "missing"))
}

func TestResolver_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	changes, err := NewResolver(filepath.Join("testdata", "dirs")).Resolve(ctx)
	require.ErrorIs(t, err, carpet.ErrParse)
	require.ErrorIs(t, err, context.Canceled)
	require.Nil(t, changes)
}

func TestFSResolver(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/1.0.0/1-create.sql":  {Data: []byte("CREATE TABLE users (id INT)")},
		"migrations/1.0.0/2-seed.sql":    {Data: []byte("INSERT INTO users VALUES (1); INSERT INTO users VALUES (2)")},
		"migrations/1.2.0/ChangeSet.yml": {Data: []byte("- version: 1.2.0\n  tasks:\n    - type: FileTask\n      taskName: cleanup\n      taskOrder: 1\n      filePath: classpath:sql/cleanup.sql\n")},
		"migrations/not-a-version/x.sql": {Data: []byte("SELECT 1")},
		"sql/cleanup.sql":                {Data: []byte("DELETE FROM users WHERE id = 2")},
	}

	changes, err := NewFSResolver(fsys, "migrations").Resolve(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"1.0.0", "1.2.0"}, versions(changes))

	seed := changes[0].SortedTasks()[1].(*change.FileTask)
	assert.Equal(t, "classpath:migrations/1.0.0/2-seed.sql", seed.FilePath())
	assert.Equal(t, []string{"INSERT INTO users VALUES (1)", "INSERT INTO users VALUES (2)"}, seed.Statements())

	cleanup := changes[1].Tasks()[0]
	assert.Equal(t, []string{"DELETE FROM users WHERE id = 2"}, cleanup.Statements())
}

func TestFSResolver_Errors(t *testing.T) {
	tests := []struct {
		name    string
		fsys    fstest.MapFS
		wantMsg string
	}{
		{
			name: "duplicate versions",
			fsys: fstest.MapFS{
				"ChangeSet.json": {Data: []byte(`[{"version": "1.0.0", "tasks": []}, {"version": "1.0.0", "tasks": []}]`)},
			},
			wantMsg: "duplicate change version 1.0.0",
		},
		{
			name: "invalid version",
			fsys: fstest.MapFS{
				"ChangeSet.json": {Data: []byte(`[{"version": "one", "tasks": []}]`)},
			},
			wantMsg: `version "one" does not match`,
		},
		{
			name: "malformed document",
			fsys: fstest.MapFS{
				"ChangeSet.json": {Data: []byte(`[{"version": "1.0.0", "tasks": [}]`)},
			},
			wantMsg: "decode JSON document",
		},
		{
			name: "unknown field",
			fsys: fstest.MapFS{
				"ChangeSet.json": {Data: []byte(`[{"version": "1.0.0", "steps": []}]`)},
			},
			wantMsg: "decode JSON document",
		},
		{
			name: "unknown task type",
			fsys: fstest.MapFS{
				"ChangeSet.yaml": {Data: []byte("- version: 1.0.0\n  tasks:\n    - type: ShellTask\n      taskName: x\n      taskOrder: 1\n")},
			},
			wantMsg: `unknown type "ShellTask"`,
		},
		{
			name: "missing referenced file",
			fsys: fstest.MapFS{
				"ChangeSet.xml": {Data: []byte(`<changeList><change><version>1.0.0</version><tasks>` +
					`<task type="FileTask"><taskName>a</taskName><taskOrder>1</taskOrder><filePath>classpath:missing.sql</filePath></task>` +
					`</tasks></change></changeList>`)},
			},
			wantMsg: "unable to find file classpath:missing.sql",
		},
		{
			name: "empty task file",
			fsys: fstest.MapFS{
				"1.0.0/1-create.sql": {Data: []byte(" \n")},
			},
			wantMsg: "is empty",
		},
		{
			name: "duplicate task names",
			fsys: fstest.MapFS{
				"1.0.0/1-create.sql": {Data: []byte("SELECT 1")},
				"1.0.0/2-create.sql": {Data: []byte("SELECT 2")},
			},
			wantMsg: `duplicate task "create"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			changes, err := NewFSResolver(tt.fsys, ".").Resolve(context.Background())
			require.ErrorIs(t, err, carpet.ErrParse)
			require.Contains(t, err.Error(), tt.wantMsg)
			require.Nil(t, changes)
		})
	}
}

func TestParseTaskFileName(t *testing.T) {
	tests := []struct {
		fileName  string
		wantOrder int
		wantName  string
		wantErr   bool
	}{
		{fileName: "1-create.sql", wantOrder: 1, wantName: "create"},
		{fileName: "12 - Create new Table.sql", wantOrder: 12, wantName: "Create new Table"},
		{fileName: "3.add index", wantOrder: 3, wantName: "add index"},
		{fileName: "04:seed.sql", wantOrder: 4, wantName: "seed"},
		{fileName: "cleanup.sql", wantOrder: UnnumberedTaskOrder, wantName: "cleanup"},
		{fileName: "2-archive.tar.sql", wantOrder: 2, wantName: "archive.tar"},
		{fileName: "5.sql", wantOrder: 5, wantName: "sql"},
		{fileName: "7 - ", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.fileName, func(t *testing.T) {
			order, name, err := ParseTaskFileName(tt.fileName)
			if tt.wantErr {
				require.ErrorIs(t, err, carpet.ErrParse)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.wantOrder, order)
			require.Equal(t, tt.wantName, name)
		})
	}
}
