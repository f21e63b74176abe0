/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

// Package connector provides the database side of change set execution: the DatabaseConnector
// capability used by the migration engine and its implementation on top of database/sql.
//
// Applied tasks are tracked in a table (change_set by default) with the following columns:
//
//	version VARCHAR(255)  change version
//	task    VARCHAR(255)  task name
//	applied DATE          date the task was applied
//	hash    VARCHAR(64)   MD5 of the task content, NULL for rows written before the column existed
//
// SQLConnector works in a single transaction that is started lazily by the first operation
// and finished by Commit or RollBack. The next operation after that starts a new transaction.
package connector
