package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/filebridge/internal/adapters/driven/config/file"
	"github.com/custodia-labs/filebridge/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/filebridge/internal/connectors"
	"github.com/custodia-labs/filebridge/internal/connectors/autodesk"
	"github.com/custodia-labs/filebridge/internal/connectors/googledrive"
	"github.com/custodia-labs/filebridge/internal/core/domain"
	"github.com/custodia-labs/filebridge/internal/core/services"
	"github.com/custodia-labs/filebridge/internal/logger"
	"github.com/custodia-labs/filebridge/internal/ratelimit"
)

// appStore is the open database handle of the current invocation, nil
// when services were injected via Configure.
var appStore *sqlite.Store

// setup wires the production services before any command runs. It is a
// no-op when services are already configured (tests) or for commands
// that need none.
func setup(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verboseFlag)

	switch cmd.Name() {
	case "version", "help", "completion":
		return nil
	}
	if configured {
		return nil
	}

	path := configFlag
	if path == "" {
		var err error
		if path, err = file.DefaultPath(); err != nil {
			return err
		}
	}

	cfg, err := file.Load(path)
	if err != nil {
		return err
	}
	if cfg.Verbose {
		logger.SetVerbose(true)
	}

	store, err := sqlite.NewStore(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	appStore = store

	factory := connectors.NewFactory()
	factory.Register(domain.VendorGoogleDrive, googledrive.Builder)
	factory.Register(domain.VendorAutodesk, autodesk.Builder)

	syncCfg, err := syncConfigFrom(cfg.Sync)
	if err != nil {
		return err
	}

	engine := services.NewSyncEngine(
		store.EndpointStore(), store.FileStore(), store.SyncLogStore(),
		factory, limitersFrom(cfg.RateLimit), syncCfg)
	orchestrator := services.NewOrchestrator(
		store.EndpointStore(), store.FileStore(), store.SyncLogStore(),
		factory, engine, cfg.Sync.Concurrency)
	jobScheduler := services.NewJobScheduler(
		orchestrator, store.EndpointStore(), store.SchedulerStore(),
		schedulerConfigFrom(cfg.Scheduler))
	schedulerManager := services.NewSchedulerManager(
		jobScheduler, orchestrator, store.EndpointStore(),
		file.NewSource(path), services.ManagerConfig{})

	Configure(orchestrator, jobScheduler, schedulerManager)
	return nil
}

// teardown closes the database after the command finishes.
func teardown(_ *cobra.Command, _ []string) {
	if appStore != nil {
		if err := appStore.Close(); err != nil {
			logger.Warn("closing database: %v", err)
		}
		appStore = nil
	}
}

func syncConfigFrom(s file.SyncSettings) (services.SyncConfig, error) {
	cfg := services.DefaultSyncConfig()
	if s.MaxRetries > 0 {
		cfg.MaxRetries = s.MaxRetries
	}
	if s.RetryDelaySeconds > 0 {
		cfg.RetryDelay = time.Duration(s.RetryDelaySeconds) * time.Second
	}
	if s.RateLimitBackoffSeconds > 0 {
		cfg.RateLimitBackoff = time.Duration(s.RateLimitBackoffSeconds) * time.Second
	}
	if s.MaxFilesPerSync > 0 {
		cfg.MaxFilesPerSync = s.MaxFilesPerSync
	}
	if s.EpochFloor != "" {
		floor, err := time.Parse(time.RFC3339, s.EpochFloor)
		if err != nil {
			return cfg, fmt.Errorf("parsing epoch_floor: %w", err)
		}
		cfg.EpochFloor = floor
	}
	return cfg, nil
}

func schedulerConfigFrom(s file.SchedulerSettings) services.SchedulerConfig {
	cfg := services.SchedulerConfig{}
	if s.TickSeconds > 0 {
		cfg.TickInterval = time.Duration(s.TickSeconds) * time.Second
	}
	if s.MisfireGraceSeconds > 0 {
		cfg.MisfireGrace = time.Duration(s.MisfireGraceSeconds) * time.Second
	}
	return cfg
}

func limitersFrom(settings map[string]file.RateLimitSettings) map[domain.VendorType]*ratelimit.Limiter {
	if len(settings) == 0 {
		return nil
	}
	limiters := make(map[domain.VendorType]*ratelimit.Limiter, len(settings))
	for vendor, rl := range settings {
		if rl.MaxCalls <= 0 || rl.WindowSeconds <= 0 {
			continue
		}
		limiters[domain.VendorType(vendor)] = ratelimit.NewLimiter(
			rl.MaxCalls, time.Duration(rl.WindowSeconds)*time.Second)
	}
	return limiters
}
