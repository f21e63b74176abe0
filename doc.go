/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

// Package carpet contains the shared building blocks of the change-set migration library:
// the error taxonomy (parse, database and drift errors), the database configuration,
// DSN builders and helpers for opening connections and running transactions.
//
// The change model lives in the change package, the change-set resolver in the changeset package,
// the transactional database capability in the connector package and the engine that ties
// everything together in the migrate package.
//
// Basic usage:
//
//	db, err := carpet.Open(cfg, true)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	engine, err := migrate.NewEngine(connector.NewSQLProvider(db, cfg.Dialect), logger,
//	    migrate.WithChangeSetPath("changes"))
//	if err != nil {
//	    return err
//	}
//	return engine.Run(ctx)
package carpet
