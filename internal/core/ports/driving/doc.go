// Package driving defines the inbound ports of the core: the interfaces
// the CLI and other entry points call into.
package driving
