// Package memory provides in-memory implementations of the storage
// ports. They are safe for concurrent use and back tests and ephemeral
// runs where no database file is wanted.
package memory
