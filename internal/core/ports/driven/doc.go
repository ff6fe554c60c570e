// Package driven defines the outbound ports of the core: interfaces the
// core depends on and adapters implement (vendor clients, storage,
// configuration sources).
package driven
