// Package connectors wires vendor client implementations to the client
// factory used by the sync engine.
package connectors
