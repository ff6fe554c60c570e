package domain

import "time"

// HealthStatus is the overall condition reported by a health check.
type HealthStatus string

const (
	// HealthHealthy means all checks passed.
	HealthHealthy HealthStatus = "healthy"

	// HealthDegraded means the system is running but some checks failed.
	HealthDegraded HealthStatus = "degraded"

	// HealthUnhealthy means the system is not operational.
	HealthUnhealthy HealthStatus = "unhealthy"
)

// Health is the result of a scheduler or connector health check.
type Health struct {
	// Status is the overall condition.
	Status HealthStatus

	// Issues lists human-readable reasons when Status is not healthy.
	Issues []string

	// CheckedAt is when the check ran.
	CheckedAt time.Time

	// SchedulerRunning reports the scheduler clock state.
	SchedulerRunning bool

	// Stats carries the scheduler counters at check time.
	Stats SchedulerStats
}

// Degrade lowers the status to degraded unless it is already unhealthy,
// and records the reason.
func (h *Health) Degrade(reason string) {
	h.Issues = append(h.Issues, reason)
	if h.Status != HealthUnhealthy {
		h.Status = HealthDegraded
	}
}

// Fail marks the status unhealthy and records the reason.
func (h *Health) Fail(reason string) {
	h.Issues = append(h.Issues, reason)
	h.Status = HealthUnhealthy
}
