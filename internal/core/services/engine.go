package services

import (
	"context"
	"time"

	"github.com/custodia-labs/filebridge/internal/core/domain"
	"github.com/custodia-labs/filebridge/internal/core/ports/driven"
	"github.com/custodia-labs/filebridge/internal/core/ports/driving"
	"github.com/custodia-labs/filebridge/internal/logger"
	"github.com/custodia-labs/filebridge/internal/ratelimit"
)

// SyncConfig tunes the sync engine.
type SyncConfig struct {
	// MaxRetries, RetryDelay and RateLimitBackoff configure the retry
	// policy wrapped around each endpoint sync.
	MaxRetries       int
	RetryDelay       time.Duration
	RateLimitBackoff time.Duration

	// MaxFilesPerSync is the global hard cap on files per sync.
	MaxFilesPerSync int

	// EpochFloor is the "never synced" watermark substitute.
	EpochFloor time.Time

	// CancelCheckEvery is how many files to process between explicit
	// cancellation checks during a listing.
	CancelCheckEvery int
}

// DefaultSyncConfig returns the engine defaults.
func DefaultSyncConfig() SyncConfig {
	return SyncConfig{
		MaxRetries:       3,
		RetryDelay:       30 * time.Second,
		RateLimitBackoff: 60 * time.Second,
		MaxFilesPerSync:  1000,
		EpochFloor:       time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC),
		CancelCheckEvery: 50,
	}
}

// SyncEngine drives a single endpoint's sync: authenticate, page through
// the vendor listing since a watermark, upsert each file, classify it as
// added/updated/skipped, and record the outcome in the sync log. The
// whole operation runs under the retry policy; transient failures
// restart from authentication with a freshly built client.
type SyncEngine struct {
	endpoints driven.EndpointStore
	files     driven.FileStore
	syncLogs  driven.SyncLogStore
	factory   driven.ClientFactory

	// limiters bounds calls per vendor; shared across concurrent syncs
	// of the same vendor. May be nil when no limit applies.
	limiters map[domain.VendorType]*ratelimit.Limiter

	cfg     SyncConfig
	retryer Retryer

	// now is stubbed in tests.
	now func() time.Time
}

// NewSyncEngine creates a sync engine. limiters may be nil.
func NewSyncEngine(
	endpoints driven.EndpointStore,
	files driven.FileStore,
	syncLogs driven.SyncLogStore,
	factory driven.ClientFactory,
	limiters map[domain.VendorType]*ratelimit.Limiter,
	cfg SyncConfig,
) *SyncEngine {
	if cfg.MaxFilesPerSync <= 0 {
		cfg.MaxFilesPerSync = DefaultSyncConfig().MaxFilesPerSync
	}
	if cfg.EpochFloor.IsZero() {
		cfg.EpochFloor = DefaultSyncConfig().EpochFloor
	}
	if cfg.CancelCheckEvery <= 0 {
		cfg.CancelCheckEvery = DefaultSyncConfig().CancelCheckEvery
	}

	return &SyncEngine{
		endpoints: endpoints,
		files:     files,
		syncLogs:  syncLogs,
		factory:   factory,
		limiters:  limiters,
		cfg:       cfg,
		retryer: Retryer{
			MaxRetries:       cfg.MaxRetries,
			RetryDelay:       cfg.RetryDelay,
			RateLimitBackoff: cfg.RateLimitBackoff,
		},
		now: time.Now,
	}
}

// SyncEndpoint syncs one endpoint and returns the result. The result is
// always non-nil; failures are reported through Success and
// ErrorMessage, never panics or partial state.
func (e *SyncEngine) SyncEndpoint(ctx context.Context, endpoint domain.Endpoint, req driving.SyncRequest) *domain.SyncResult {
	start := e.now()
	result := &domain.SyncResult{EndpointID: endpoint.ID}

	since := e.resolveSince(endpoint, req.Since)
	maxFiles := e.effectiveMax(endpoint, req.MaxFiles)

	logger.Info("starting sync: endpoint=%s vendor=%s since=%s max_files=%d",
		endpoint.ID, endpoint.Vendor, since.Format(time.RFC3339), maxFiles)

	// One sync-log entry per sync, covering all retry attempts.
	logID := e.startLog(ctx, endpoint.ID)

	err := e.retryer.Do(ctx, func(ctx context.Context) error {
		return e.attempt(ctx, endpoint, since, maxFiles, result)
	})

	if err != nil {
		result.ErrorMessage = err.Error()
		logger.Error("sync failed: endpoint=%s error=%v", endpoint.ID, err)
	} else {
		result.Success = true
		// Advance the watermark to "now" rather than the newest file
		// timestamp: vendor clocks may be skewed and items can arrive
		// late; the next incremental sync re-covers the overlap.
		if werr := e.endpoints.UpdateWatermark(ctx, endpoint.ID, e.now()); werr != nil {
			logger.Warn("failed to update watermark for endpoint %s: %v", endpoint.ID, werr)
		}
	}

	result.Duration = e.now().Sub(start)
	e.completeLog(ctx, logID, endpoint.ID, start, result)

	logger.Info("sync completed: endpoint=%s success=%t processed=%d changed=%d duration=%s",
		endpoint.ID, result.Success, result.FilesProcessed, result.FilesChanged(), result.Duration)

	return result
}

// attempt performs one full sync attempt with a fresh client. Counters
// are reset on entry so a retried attempt does not double-count.
func (e *SyncEngine) attempt(ctx context.Context, endpoint domain.Endpoint, since time.Time, maxFiles int, result *domain.SyncResult) error {
	result.FilesProcessed = 0
	result.FilesAdded = 0
	result.FilesUpdated = 0
	result.FilesSkipped = 0

	client, err := e.factory.Create(endpoint)
	if err != nil {
		// Unknown vendor or structurally invalid configuration.
		return domain.NewVendorError(domain.KindPermanent, err)
	}
	defer client.Close()

	if lim := e.limiters[endpoint.Vendor]; lim != nil {
		if err := lim.Acquire(ctx); err != nil {
			return err
		}
	}

	if err := client.Authenticate(ctx); err != nil {
		return err
	}

	files, errs := client.ListFiles(ctx, since, maxFiles)

	for files != nil || errs != nil {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if err != nil {
				return err
			}

		case meta, ok := <-files:
			if !ok {
				files = nil
				continue
			}

			e.processFile(ctx, endpoint.ID, meta, result)

			if result.FilesProcessed >= maxFiles {
				// Cap reached: stop immediately, mid-page if need be.
				return nil
			}
			if result.FilesProcessed%e.cfg.CancelCheckEvery == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}
		}
	}

	return nil
}

// processFile upserts one file and classifies the outcome. Unprocessable
// files are logged and skipped without aborting the listing; they count
// as processed but fall into no category.
func (e *SyncEngine) processFile(ctx context.Context, endpointID string, meta domain.FileMetadata, result *domain.SyncResult) {
	result.FilesProcessed++

	record, created, err := e.files.Upsert(ctx, meta, endpointID)
	if err != nil {
		logger.Warn("failed to store file %s (%s): %v", meta.Name, meta.ExternalID, err)
		return
	}

	switch {
	case created:
		result.FilesAdded++
		logger.Debug("added file %s (%s)", meta.Name, meta.ExternalID)
	case isNewer(meta.ExternalUpdatedAt, record.ExternalUpdatedAt):
		result.FilesUpdated++
		logger.Debug("updated file %s (%s)", meta.Name, meta.ExternalID)
	default:
		result.FilesSkipped++
	}
}

// isNewer reports whether the vendor modification time is strictly newer
// than the stored one. Missing timestamps on either side mean "skipped".
func isNewer(vendor, stored time.Time) bool {
	if vendor.IsZero() || stored.IsZero() {
		return false
	}
	return vendor.After(stored)
}

// resolveSince picks the incremental listing start: explicit override,
// else the endpoint's watermark, else the epoch floor.
func (e *SyncEngine) resolveSince(endpoint domain.Endpoint, override time.Time) time.Time {
	if !override.IsZero() {
		return override
	}
	if !endpoint.LastSyncAt.IsZero() {
		return endpoint.LastSyncAt
	}
	return e.cfg.EpochFloor
}

// effectiveMax bounds the file count by the request, the endpoint cap
// and the global hard cap.
func (e *SyncEngine) effectiveMax(endpoint domain.Endpoint, requested int) int {
	max := e.cfg.MaxFilesPerSync
	if endpoint.MaxFilesPerSync > 0 && endpoint.MaxFilesPerSync < max {
		max = endpoint.MaxFilesPerSync
	}
	if requested > 0 && requested < max {
		max = requested
	}
	return max
}

// startLog opens a sync-log entry. Log failures must never mask the
// sync's own outcome, so they are only warned about.
func (e *SyncEngine) startLog(ctx context.Context, endpointID string) string {
	logID, err := e.syncLogs.Start(ctx, endpointID)
	if err != nil {
		logger.Warn("failed to start sync log for endpoint %s: %v", endpointID, err)
		return ""
	}
	return logID
}

// completeLog finalises the sync-log entry for a sync.
func (e *SyncEngine) completeLog(ctx context.Context, logID, endpointID string, started time.Time, result *domain.SyncResult) {
	if logID == "" {
		return
	}

	status := domain.SyncStatusSuccess
	if !result.Success {
		status = domain.SyncStatusFailed
	}

	entry := domain.SyncLog{
		EndpointID:     endpointID,
		StartedAt:      started,
		CompletedAt:    e.now(),
		Status:         status,
		FilesProcessed: result.FilesProcessed,
		FilesAdded:     result.FilesAdded,
		FilesUpdated:   result.FilesUpdated,
		FilesSkipped:   result.FilesSkipped,
		ErrorMessage:   result.ErrorMessage,
		Duration:       result.Duration,
	}

	if err := e.syncLogs.Complete(ctx, logID, entry); err != nil {
		logger.Warn("failed to complete sync log %s: %v", logID, err)
	}
}
