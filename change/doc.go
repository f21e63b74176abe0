/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

// Package change contains the in-memory model of a change set: versioned changes
// and the SQL tasks they consist of.
//
// A Change groups tasks under a dotted numeric version ("1.0.0", "2.3").
// A Task is either a ScriptTask that carries SQL inline or a FileTask that
// references an SQL file on disk or in a bundled resource FS (the "classpath:" prefix).
// Task content is loaded when the task is constructed, so a missing or empty file
// is reported as a parse error before anything touches the database.
package change
