// Package sqlite provides the SQLite-backed implementations of the
// storage ports: endpoints, file records, sync logs and scheduler jobs
// in a single database file.
package sqlite
