/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package change

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-carpet"
)

type recordingExecutor struct {
	statements []string
	failOn     string
}

func (e *recordingExecutor) ExecuteStatement(_ context.Context, statement string) error {
	if e.failOn != "" && statement == e.failOn {
		return carpet.WrapDatabaseError(errors.New("syntax error"), "execute statement")
	}
	e.statements = append(e.statements, statement)
	return nil
}

func TestSplitStatements(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		delimiter string
		want      []string
	}{
		{name: "default delimiter", query: "A; B; C", want: []string{"A", "B", "C"}},
		{name: "trailing delimiter", query: "A;\nB;\n", want: []string{"A", "B"}},
		{name: "custom delimiter", query: "CREATE PROCEDURE p() BEGIN SELECT 1; END$$SELECT 2", delimiter: "$$",
			want: []string{"CREATE PROCEDURE p() BEGIN SELECT 1; END", "SELECT 2"}},
		{name: "no delimiter in query", query: "  SELECT 1  ", want: []string{"SELECT 1"}},
		{name: "only delimiters", query: " ; ;", want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, SplitStatements(tt.query, tt.delimiter))
		})
	}
}

func TestScriptTask_Perform(t *testing.T) {
	task, err := NewScriptTask("insert", 1, "A; B; C", "")
	require.NoError(t, err)
	require.Equal(t, DefaultDelimiter, task.Delimiter())
	require.Equal(t, TaskTypeScript, task.Type())

	exec := &recordingExecutor{}
	require.NoError(t, task.Perform(context.Background(), exec))
	require.Equal(t, []string{"A", "B", "C"}, exec.statements)
}

func TestScriptTask_PerformStopsOnFailure(t *testing.T) {
	task, err := NewScriptTask("insert", 1, "A; B; C", ";")
	require.NoError(t, err)

	exec := &recordingExecutor{failOn: "B"}
	err = task.Perform(context.Background(), exec)
	require.ErrorIs(t, err, carpet.ErrDatabase)
	require.Contains(t, err.Error(), "statement 2 of task insert")
	require.Equal(t, []string{"A"}, exec.statements)
}

func TestNewScriptTask_Invalid(t *testing.T) {
	_, err := NewScriptTask("", 1, "SELECT 1", "")
	require.ErrorIs(t, err, carpet.ErrParse)

	_, err = NewScriptTask("empty", 1, "   ", "")
	require.ErrorIs(t, err, carpet.ErrParse)
}

func TestNewFileTask(t *testing.T) {
	resources := fstest.MapFS{
		"sql/users.sql": {Data: []byte("CREATE TABLE users (id INT);INSERT INTO users VALUES (1)")},
		"sql/empty.sql": {Data: []byte("\n")},
	}
	loader := NewLoader(resources)

	t.Run("filesystem path", func(t *testing.T) {
		task, err := NewFileTask("users", 1, filepath.Join("testdata", "sql", "users.sql"), "", loader)
		require.NoError(t, err)
		require.Equal(t, TaskTypeFile, task.Type())
		require.Len(t, task.Statements(), 2)
		require.Equal(t, "CREATE TABLE users (id INTEGER PRIMARY KEY, name VARCHAR(255))", task.Statements()[0])
	})

	t.Run("resource path", func(t *testing.T) {
		task, err := NewFileTask("users", 1, "classpath:sql/users.sql", "", loader)
		require.NoError(t, err)
		require.Equal(t, []string{"CREATE TABLE users (id INT)", "INSERT INTO users VALUES (1)"}, task.Statements())
		require.Equal(t, "classpath:sql/users.sql", task.FilePath())
	})

	t.Run("resource prefix is case-insensitive", func(t *testing.T) {
		_, err := NewFileTask("users", 1, "CLASSPATH:/sql/users.sql", "", loader)
		require.NoError(t, err)
	})

	t.Run("missing filesystem path", func(t *testing.T) {
		_, err := NewFileTask("users", 1, filepath.Join("testdata", "sql", "missing.sql"), "", loader)
		require.ErrorIs(t, err, carpet.ErrParse)
	})

	t.Run("missing resource", func(t *testing.T) {
		_, err := NewFileTask("users", 1, "classpath:sql/missing.sql", "", loader)
		require.ErrorIs(t, err, carpet.ErrParse)
	})

	t.Run("resource without resources configured", func(t *testing.T) {
		_, err := NewFileTask("users", 1, "classpath:sql/users.sql", "", nil)
		require.ErrorIs(t, err, carpet.ErrParse)
		require.Contains(t, err.Error(), "no resources configured")
	})

	t.Run("empty file", func(t *testing.T) {
		_, err := NewFileTask("users", 1, filepath.Join("testdata", "sql", "empty.sql"), "", loader)
		require.ErrorIs(t, err, carpet.ErrParse)
		require.Contains(t, err.Error(), "is empty")

		_, err = NewFileTask("users", 1, "classpath:sql/empty.sql", "", loader)
		require.ErrorIs(t, err, carpet.ErrParse)
	})
}
