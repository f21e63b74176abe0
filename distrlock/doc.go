/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

// Package distrlock provides distributed locks backed by a SQL table.
// DBLocker serializes change set runs of several application instances that deploy against the same database.
package distrlock
