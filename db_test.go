/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package carpet

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/acronis/go-appkit/config"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
)

func TestOpen(t *testing.T) {
	t.Run("pool settings are applied", func(t *testing.T) {
		cfg := &Config{
			Dialect:         DialectSQLite,
			SQLite:          SQLiteConfig{Path: filepath.Join(t.TempDir(), "changes.db")},
			MaxOpenConns:    3,
			MaxIdleConns:    1,
			ConnMaxLifetime: config.TimeDuration(time.Minute),
		}
		db, err := Open(cfg, true)
		require.NoError(t, err)
		defer func() { require.NoError(t, db.Close()) }()
		require.Equal(t, 3, db.Stats().MaxOpenConnections)
	})

	t.Run("unsupported dialect", func(t *testing.T) {
		_, err := Open(&Config{Dialect: "oracle"}, false)
		require.EqualError(t, err, `unsupported dialect "oracle"`)
	})

	t.Run("ping fails", func(t *testing.T) {
		// A directory can't be opened as a database file.
		cfg := &Config{Dialect: DialectSQLite, SQLite: SQLiteConfig{Path: t.TempDir()}, MaxOpenConns: 1}
		_, err := Open(cfg, true)
		require.ErrorContains(t, err, "ping database")
	})

	t.Run("no ping, no connection", func(t *testing.T) {
		cfg := &Config{Dialect: DialectSQLite, SQLite: SQLiteConfig{Path: t.TempDir()}, MaxOpenConns: 1}
		db, err := Open(cfg, false)
		require.NoError(t, err)
		require.NoError(t, db.Close())
	})
}

func TestDoInTx(t *testing.T) {
	errTask := errors.New("task failed")

	tests := []struct {
		name     string
		initMock func(m sqlmock.Sqlmock)
		fn       func(tx *sql.Tx) error
		wantErr  string
	}{
		{
			name: "statements are committed",
			initMock: func(m sqlmock.Sqlmock) {
				m.ExpectBegin()
				m.ExpectExec("INSERT INTO change_set").WillReturnResult(sqlmock.NewResult(0, 1))
				m.ExpectCommit()
			},
			fn: func(tx *sql.Tx) error {
				_, err := tx.Exec("INSERT INTO change_set (version, task) VALUES ('1.0.0', 'create')")
				return err
			},
		},
		{
			name: "begin fails",
			initMock: func(m sqlmock.Sqlmock) {
				m.ExpectBegin().WillReturnError(errors.New("connection reset"))
			},
			fn:      func(tx *sql.Tx) error { return nil },
			wantErr: "begin tx: connection reset",
		},
		{
			name: "commit fails",
			initMock: func(m sqlmock.Sqlmock) {
				m.ExpectBegin()
				m.ExpectCommit().WillReturnError(errors.New("serialization failure"))
			},
			fn:      func(tx *sql.Tx) error { return nil },
			wantErr: "commit tx: serialization failure",
		},
		{
			name: "error from fn rolls back",
			initMock: func(m sqlmock.Sqlmock) {
				m.ExpectBegin()
				m.ExpectRollback()
			},
			fn:      func(tx *sql.Tx) error { return errTask },
			wantErr: errTask.Error(),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer func() { require.NoError(t, mock.ExpectationsWereMet()) }()
			tt.initMock(mock)

			err = DoInTx(context.Background(), db, tt.fn)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.EqualError(t, err, tt.wantErr)
		})
	}
}

func TestDoInTx_PanicRollsBack(t *testing.T) {
	db, err := Open(&Config{Dialect: DialectSQLite, SQLite: SQLiteConfig{Path: filepath.Join(t.TempDir(), "tx.db")}, MaxOpenConns: 1}, true)
	require.NoError(t, err)
	defer func() { require.NoError(t, db.Close()) }()

	_, err = db.Exec("CREATE TABLE change_set (version VARCHAR(255), task VARCHAR(255))")
	require.NoError(t, err)

	require.PanicsWithValue(t, "broken task", func() {
		_ = DoInTx(context.Background(), db, func(tx *sql.Tx) error {
			if _, txErr := tx.Exec("INSERT INTO change_set VALUES ('1.0.0', 'create')"); txErr != nil {
				return txErr
			}
			panic("broken task")
		})
	})

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM change_set").Scan(&count))
	require.Zero(t, count)
}
