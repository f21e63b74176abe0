/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/acronis/go-appkit/log"
	"github.com/urfave/cli/v3"

	"github.com/acronis/go-carpet"
	"github.com/acronis/go-carpet/change"
	"github.com/acronis/go-carpet/changeset"
	"github.com/acronis/go-carpet/connector"
	"github.com/acronis/go-carpet/dbrutil"
	"github.com/acronis/go-carpet/distrlock"
	"github.com/acronis/go-carpet/history"
	"github.com/acronis/go-carpet/migrate"
)

const slowQueryThreshold = time.Second

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply the change set to the configured database",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  flagDev,
				Usage: "dev mode, nothing is executed",
			},
			&cli.StringFlag{
				Name:  flagPath,
				Usage: "the change set location, overrides changeSet.path",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd.String(flagConfig))
			if err != nil {
				return err
			}
			if cmd.Bool(flagDev) {
				cfg.ChangeSet.DevMode = true
			}
			if path := cmd.String(flagPath); path != "" {
				cfg.ChangeSet.Path = path
			}
			logger, loggerClose := newLogger(cmd.String(flagLogLevel))
			defer loggerClose()

			report, err := runMigrate(ctx, cfg, logger)
			if err != nil {
				return err
			}
			printReport(cmd.Root().Writer, report)
			return nil
		},
	}
}

func runMigrate(ctx context.Context, cfg *appConfig, logger log.FieldLogger) (migrate.Report, error) {
	if cfg.ChangeSet.DevMode {
		logger.Info("Dev mode is enabled, changes are not executed")
		return migrate.Report{}, nil
	}
	if cfg.ChangeSet.Path == "" {
		return migrate.Report{}, fmt.Errorf("change set path is not configured")
	}
	db, err := carpet.Open(cfg.DB, true)
	if err != nil {
		return migrate.Report{}, err
	}
	defer func() { _ = db.Close() }()

	connOpts := append(cfg.ChangeSet.ConnectorOptions(),
		connector.WithIsolationLevel(cfg.DB.TxIsolationLevel()), connector.WithLogger(logger))
	provider := connector.NewSQLProvider(db, cfg.DB.Dialect, connOpts...)

	var engineOpts []migrate.Option
	if cfg.ChangeSet.Lock.Enabled {
		locker, lockErr := distrlock.NewDBLockerFromConfig(db, cfg.DB.Dialect, cfg.ChangeSet.Lock, logger)
		if lockErr != nil {
			return migrate.Report{}, fmt.Errorf("create change set lock: %w", lockErr)
		}
		engineOpts = append(engineOpts, migrate.WithLocker(locker))
	}
	engine, err := migrate.NewEngineFromConfig(cfg.ChangeSet, provider, logger, engineOpts...)
	if err != nil {
		return migrate.Report{}, err
	}
	return engine.Run(ctx)
}

func printReport(w io.Writer, report migrate.Report) {
	for _, ref := range report.Applied {
		_, _ = fmt.Fprintf(w, "applied    %s\n", ref)
	}
	for _, ref := range report.Backfilled {
		_, _ = fmt.Fprintf(w, "backfilled %s\n", ref)
	}
	_, _ = fmt.Fprintf(w, "%d applied, %d skipped, %d back-filled\n",
		len(report.Applied), report.Skipped, len(report.Backfilled))
}

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:  "validate",
		Usage: "Parse the change set without touching any database",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     flagPath,
				Usage:    "the change set location",
				Required: true,
			},
			&cli.StringFlag{
				Name:  flagOutput,
				Usage: "print the change set as a document: json, xml or yaml",
			},
			&cli.StringFlag{
				Name:  flagOrdering,
				Usage: "version ordering: decimal or semantic",
				Value: migrate.OrderingDecimal,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			ordering, err := parseOrdering(cmd.String(flagOrdering))
			if err != nil {
				return err
			}
			logger, loggerClose := newLogger(cmd.String(flagLogLevel))
			defer loggerClose()

			changes, err := changeset.NewResolver(cmd.String(flagPath), changeset.WithLogger(logger)).Resolve(ctx)
			if err != nil {
				return err
			}
			change.SortChanges(changes, ordering)

			if output := cmd.String(flagOutput); output != "" {
				return changeset.EncodeDocument(cmd.Root().Writer, changeset.DocumentFormat(output), changes)
			}
			for _, c := range changes {
				_, _ = fmt.Fprintln(cmd.Root().Writer, c.Version())
				for _, task := range c.SortedTasks() {
					_, _ = fmt.Fprintf(cmd.Root().Writer, "  %d %s (%s, %d statements)\n",
						task.Order(), task.Name(), task.Type(), len(task.Statements()))
				}
			}
			return nil
		},
	}
}

func parseOrdering(name string) (change.Ordering, error) {
	switch name {
	case migrate.OrderingDecimal:
		return change.DecimalOrdering, nil
	case migrate.OrderingSemantic:
		return change.SemanticOrdering, nil
	}
	return nil, fmt.Errorf("unknown ordering %q", name)
}

func statusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show the tracked tasks and, if the change set path is configured, the pending ones",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  flagPath,
				Usage: "the change set location, overrides changeSet.path",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd.String(flagConfig))
			if err != nil {
				return err
			}
			if path := cmd.String(flagPath); path != "" {
				cfg.ChangeSet.Path = path
			}
			logger, loggerClose := newLogger(cmd.String(flagLogLevel))
			defer loggerClose()

			return printStatus(ctx, cmd.Root().Writer, cfg, logger)
		},
	}
}

func printStatus(ctx context.Context, w io.Writer, cfg *appConfig, logger log.FieldLogger) error {
	conn, err := dbrutil.Open(cfg.DB, true, dbrutil.NewSlowQueryLogEventReceiver(logger, slowQueryThreshold))
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	reader := history.NewReader(conn, history.WithTableName(cfg.ChangeSet.TableName))
	if cfg.ChangeSet.Path == "" {
		records, recErr := reader.Records(ctx)
		if recErr != nil {
			return recErr
		}
		for _, rec := range records {
			applied := "-"
			if rec.Applied.Valid {
				applied = rec.Applied.Time.Format("2006-01-02")
			}
			_, _ = fmt.Fprintf(w, "%s %s %s\n", rec.Version, rec.Task, applied)
		}
		return nil
	}

	changes, err := changeset.NewResolver(cfg.ChangeSet.Path, changeset.WithLogger(logger)).Resolve(ctx)
	if err != nil {
		return err
	}
	statuses, err := reader.Status(ctx, changes, cfg.ChangeSet.VersionOrdering())
	if err != nil {
		return err
	}
	for _, s := range statuses {
		_, _ = fmt.Fprintln(w, s)
	}
	return nil
}
