// Package services contains the core application services: the retry
// policy, the per-endpoint sync engine, the orchestrator that fans syncs
// out across endpoints, the job scheduler, and the scheduler manager.
package services
