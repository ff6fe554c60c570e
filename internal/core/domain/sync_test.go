package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSyncResultFilesChanged(t *testing.T) {
	r := SyncResult{FilesAdded: 3, FilesUpdated: 2, FilesSkipped: 7}
	assert.Equal(t, 5, r.FilesChanged())
}

func TestSyncStatsSuccessRate(t *testing.T) {
	tests := []struct {
		name  string
		stats SyncStats
		want  float64
	}{
		{"no endpoints", SyncStats{}, 0},
		{"all successful", SyncStats{TotalEndpoints: 4, SuccessfulSyncs: 4}, 100},
		{"partial", SyncStats{TotalEndpoints: 4, SuccessfulSyncs: 3, FailedSyncs: 1}, 75},
		{"all failed", SyncStats{TotalEndpoints: 2, FailedSyncs: 2}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.stats.SuccessRate(), 0.001)
		})
	}
}

func TestHealthTransitions(t *testing.T) {
	h := Health{Status: HealthHealthy}

	h.Degrade("connector probe failed")
	assert.Equal(t, HealthDegraded, h.Status)

	h.Fail("scheduler stopped")
	assert.Equal(t, HealthUnhealthy, h.Status)

	// Degrade never upgrades an unhealthy report.
	h.Degrade("another issue")
	assert.Equal(t, HealthUnhealthy, h.Status)
	assert.Len(t, h.Issues, 3)
}
