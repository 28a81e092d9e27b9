// Package queue persists offline mutation records and exposes helpers for
// driving their lifecycle.
//
// The Store keeps items in SQLite, scoped per organization and user, and
// assigns every insert a monotonically increasing sequence number so sync
// passes replay mutations in the order they were made. Items move through
// pending, processing, and failed; synced items are deleted rather than kept.
// The badger subpackage provides the same contract on an embedded key-value
// store for hosts that prefer it.
//
// The database is treated as transient storage for unconfirmed mutations rather
// than a long-term archive. A file that SQLite reports as corrupt is moved aside
// and replaced by an empty queue. Schema changes bump the version in schema.go;
// users clear the database to adopt the new schema.
package queue
