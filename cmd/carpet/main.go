/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

// Command carpet applies change sets to SQL databases.
package main

import (
	"context"
	stdlog "log"
	"os"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	_ "github.com/microsoft/go-mssqldb"
	"github.com/urfave/cli/v3"
)

// Set during a build.
var version = "dev"

const (
	flagConfig   = "config"
	flagLogLevel = "log-level"
	flagPath     = "path"
	flagDev      = "dev"
	flagOutput   = "output"
	flagOrdering = "ordering"
)

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		stdlog.Fatal(err)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:    "carpet",
		Usage:   "Apply versioned change sets to a SQL database",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "the configuration file (YAML or JSON)",
				Sources: cli.EnvVars("CARPET_CONFIG"),
				Value:   "carpet.yaml",
			},
			&cli.StringFlag{
				Name:    flagLogLevel,
				Usage:   "log level: error, warn, info or debug",
				Sources: cli.EnvVars("CARPET_LOG_LEVEL"),
				Value:   "info",
			},
		},
		Commands: []*cli.Command{
			migrateCommand(),
			validateCommand(),
			statusCommand(),
		},
	}
}
