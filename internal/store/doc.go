// Package store persists researchers and their section records in SQLite.
//
// Records are kept as JSON documents keyed by (user, section, put-code).
// Put-codes are allocated by the database and are unique across sections.
// Every successful write is published on the database's event broker so
// that caches and the terminal browser can react.
package store
