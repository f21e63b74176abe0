/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

// Package migrate provides the Engine that applies a change set to a database.
//
// The engine resolves changes from a ChangeSource (see the changeset package), sorts them
// by version and walks them in order:
//
//   - a change whose version was never recorded has all its tasks applied;
//   - for a recorded change, new tasks are applied, recorded tasks with a matching hash are skipped,
//     recorded tasks without hash get their hash back-filled and recorded tasks whose hash differs
//     fail the run with a carpet.ErrDrift error.
//
// Everything runs in one transaction of a connector.DatabaseConnector that is committed when all
// changes succeed and rolled back on the first failure, so re-running after a fix is safe.
//
// Example:
//
//	//go:embed changes
//	var changesFS embed.FS
//
//	engine, err := migrate.NewEngine(connector.NewSQLProvider(db, carpet.DialectPostgres), logger,
//		migrate.WithSource(changeset.NewFSResolver(changesFS, "changes")))
//	if err != nil {
//		return err
//	}
//	if _, err = engine.Run(ctx); err != nil {
//		return err
//	}
package migrate
