// Package runstore keeps the history of processed lectures in SQLite.
//
// Each run records its inputs, terminal status, detection summary, output
// paths, and the confirmed slide transitions. The schema is managed by
// embedded migrations tracked in schema_migrations, and writes retry briefly
// when another process holds the database lock.
package runstore
