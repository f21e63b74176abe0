/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

// Package changeset discovers changes and builds the change.Change graph from one of the supported sources:
//
//   - a single JSON, XML or YAML document;
//   - a directory with a ChangeSet.json, ChangeSet.xml, ChangeSet.yaml or ChangeSet.yml document;
//   - a directory with one sub-directory per version ("1.0.0", "1.0.1", ...), each of them containing
//     either a ChangeSet document or plain SQL files named like "1-create-users.sql", "2 - add index.sql".
//
// Resolver works on the OS filesystem (NewResolver) or inside an fs.FS such as embed.FS (NewFSResolver).
// Resolution is all or nothing: any malformed document or unresolvable file yields a parse error
// and no changes.
package changeset
