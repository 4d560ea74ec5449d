// Package history records the terminal outcome of every render job in a
// SQLite ledger.
//
// The Store owns the database connection, schema versioning and busy-retry
// handling. The Recorder listens to render lifecycle events and appends one
// row per finished job, which the API and `lapse history` read back with
// List. Schema changes bump schemaVersion in schema.go; users delete the
// database file to adopt a new schema.
package history
