// Package domain contains the core business entities and value objects
// for filebridge: endpoints, file metadata, sync results, scheduler job
// records, and the error taxonomy shared by all layers.
//
// The domain layer has no dependencies on adapters or external services.
package domain
