/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/acronis/go-appkit/config"
	"github.com/acronis/go-appkit/log"

	"github.com/acronis/go-carpet"
	"github.com/acronis/go-carpet/migrate"
)

const envVarsPrefix = "CARPET"

var supportedDialects = []carpet.Dialect{
	carpet.DialectSQLite, carpet.DialectMySQL, carpet.DialectPostgres, carpet.DialectPgx, carpet.DialectMSSQL,
}

type appConfig struct {
	DB        *carpet.Config
	ChangeSet *migrate.Config
}

func loadConfig(path string) (*appConfig, error) {
	dataType := config.DataTypeYAML
	if strings.EqualFold(filepath.Ext(path), ".json") {
		dataType = config.DataTypeJSON
	}
	f, err := os.Open(path) //nolint:gosec // path is provided by the operator
	if err != nil {
		return nil, fmt.Errorf("open config file: %w", err)
	}
	defer func() { _ = f.Close() }()

	cfg := &appConfig{
		DB:        carpet.NewDefaultConfig(supportedDialects),
		ChangeSet: migrate.NewConfig(),
	}
	if err = config.NewDefaultLoader(envVarsPrefix).LoadFromReader(f, dataType, cfg.DB, cfg.ChangeSet); err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

func newLogger(level string) (log.FieldLogger, func()) {
	logLevel := log.LevelInfo
	switch strings.ToLower(level) {
	case "error":
		logLevel = log.LevelError
	case "warn":
		logLevel = log.LevelWarn
	case "debug":
		logLevel = log.LevelDebug
	}
	return log.NewLogger(&log.Config{Output: log.OutputStderr, Level: logLevel})
}
