/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/acronis/go-appkit/log/logtest"
	"github.com/stretchr/testify/require"

	"github.com/acronis/go-carpet/migrate"
)

func writeConfig(t *testing.T, extra string) (cfgPath, dbPath string) {
	t.Helper()
	dir := t.TempDir()
	dbPath = filepath.Join(dir, "carpet.db")
	cfgData := `
db:
  dialect: sqlite3
  sqlite3:
    path: ` + dbPath + `
changeSet:
  path: testdata/changes
` + extra
	cfgPath = filepath.Join(dir, "carpet.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfgData), 0o600))
	return cfgPath, dbPath
}

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	err := app.Run(context.Background(), append([]string{"carpet", "--log-level", "error"}, args...))
	return out.String(), err
}

func TestMigrateCommand(t *testing.T) {
	cfgPath, _ := writeConfig(t, `  lock:
    enabled: true
    key: carpet-test
`)

	out, err := runApp(t, "--config", cfgPath, "migrate")
	require.NoError(t, err)
	require.Contains(t, out, "applied    1.0.0 create-tenants")
	require.Contains(t, out, "3 applied, 0 skipped, 0 back-filled")

	out, err = runApp(t, "--config", cfgPath, "migrate")
	require.NoError(t, err)
	require.Contains(t, out, "0 applied, 3 skipped, 0 back-filled")

	out, err = runApp(t, "--config", cfgPath, "status")
	require.NoError(t, err)
	require.Equal(t, []string{
		"1.0.0 create-tenants: applied",
		"1.0.0 seed-tenants: applied",
		"1.1.0 index-tenants: applied",
	}, strings.Split(strings.TrimSpace(out), "\n"))
}

func TestMigrateCommand_DevMode(t *testing.T) {
	cfgPath, dbPath := writeConfig(t, "")

	out, err := runApp(t, "--config", cfgPath, "migrate", "--dev")
	require.NoError(t, err)
	require.Contains(t, out, "0 applied, 0 skipped, 0 back-filled")

	_, statErr := os.Stat(dbPath)
	require.ErrorIs(t, statErr, os.ErrNotExist)
}

func TestRunMigrate_DevModeWithUnreachableDatabase(t *testing.T) {
	cfg, err := loadConfig(writeUnreachablePostgresConfig(t))
	require.NoError(t, err)
	cfg.ChangeSet.DevMode = true

	logRecorder := logtest.NewRecorder()
	report, err := runMigrate(context.Background(), cfg, logRecorder)
	require.NoError(t, err)
	require.Equal(t, migrate.Report{}, report)
	require.Len(t, logRecorder.Entries(), 1)
	require.Equal(t, "Dev mode is enabled, changes are not executed", logRecorder.Entries()[0].Text)

	cfg.ChangeSet.DevMode = false
	_, err = runMigrate(context.Background(), cfg, logRecorder)
	require.ErrorContains(t, err, "ping database")
}

func writeUnreachablePostgresConfig(t *testing.T) string {
	t.Helper()
	cfgPath := filepath.Join(t.TempDir(), "carpet.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
db:
  dialect: postgres
  postgres:
    host: 127.0.0.1
    port: 1
    database: carpet
    user: carpet
    sslMode: disable
changeSet:
  path: testdata/changes
`), 0o600))
	return cfgPath
}

func TestValidateCommand(t *testing.T) {
	out, err := runApp(t, "validate", "--path", "testdata/changes")
	require.NoError(t, err)
	require.Equal(t, `1.0.0
  1 create-tenants (FileTask, 1 statements)
  2 seed-tenants (FileTask, 1 statements)
1.1.0
  1 index-tenants (FileTask, 1 statements)
`, out)

	out, err = runApp(t, "validate", "--path", "testdata/changes", "--output", "yaml")
	require.NoError(t, err)
	require.Contains(t, out, "version: 1.1.0")
	require.Contains(t, out, "taskName: index-tenants")

	_, err = runApp(t, "validate", "--path", "testdata/missing")
	require.Error(t, err)

	_, err = runApp(t, "validate", "--path", "testdata/changes", "--ordering", "lexical")
	require.EqualError(t, err, `unknown ordering "lexical"`)
}
