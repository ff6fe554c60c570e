// Package file is the TOML-file configuration adapter: application
// settings, endpoint definitions and change watching.
package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/filebridge/internal/core/domain"
	"github.com/custodia-labs/filebridge/internal/core/ports/driven"
	"github.com/custodia-labs/filebridge/internal/logger"
)

// debounceWindow batches rapid editor write events into one reload.
const debounceWindow = 250 * time.Millisecond

// Config is the full application configuration file.
type Config struct {
	// DataDir is where the SQLite database lives.
	DataDir string `toml:"data_dir"`

	// Verbose enables debug logging.
	Verbose bool `toml:"verbose"`

	Sync      SyncSettings                 `toml:"sync"`
	Scheduler SchedulerSettings            `toml:"scheduler"`
	RateLimit map[string]RateLimitSettings `toml:"rate_limits"`

	Endpoints []EndpointConfig `toml:"endpoints"`
}

// SyncSettings tunes the sync engine.
type SyncSettings struct {
	MaxRetries              int    `toml:"max_retries"`
	RetryDelaySeconds       int    `toml:"retry_delay_seconds"`
	RateLimitBackoffSeconds int    `toml:"rate_limit_backoff_seconds"`
	MaxFilesPerSync         int    `toml:"max_files_per_sync"`
	EpochFloor              string `toml:"epoch_floor"` // RFC 3339
	Concurrency             int    `toml:"concurrency"`
}

// SchedulerSettings tunes the scheduler clock.
type SchedulerSettings struct {
	TickSeconds         int `toml:"tick_seconds"`
	MisfireGraceSeconds int `toml:"misfire_grace_seconds"`
}

// RateLimitSettings bounds calls per vendor.
type RateLimitSettings struct {
	MaxCalls      int `toml:"max_calls"`
	WindowSeconds int `toml:"window_seconds"`
}

// EndpointConfig is the TOML shape of one endpoint definition.
type EndpointConfig struct {
	ID              string            `toml:"id"`
	Name            string            `toml:"name"`
	Vendor          string            `toml:"vendor"`
	ProjectID       string            `toml:"project_id"`
	UserID          string            `toml:"user_id"`
	Details         map[string]string `toml:"details"`
	Schedule        string            `toml:"schedule"` // manual, interval, cron, webhook
	Interval        string            `toml:"interval"` // Go duration, for interval schedules
	Cron            string            `toml:"cron"`     // 5-field expression, for cron schedules
	Active          *bool             `toml:"active"`   // defaults to true
	MaxFilesPerSync int               `toml:"max_files_per_sync"`
	Description     string            `toml:"description"`
}

// Load reads and parses the configuration file. A missing file yields
// the defaults with no endpoints.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}

// DefaultPath returns ~/.filebridge/config.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".filebridge", "config.toml"), nil
}

// Source is a file-based implementation of driven.ConfigSource. It
// re-reads the TOML file on every load and reports changes through
// fsnotify.
type Source struct {
	path string
}

var _ driven.ConfigSource = (*Source)(nil)

// NewSource creates a config source for the given file path.
func NewSource(path string) *Source {
	return &Source{path: path}
}

// Path returns the configuration file path.
func (s *Source) Path() string {
	return s.path
}

// LoadEndpoints reads the file and returns the validated endpoint set.
// A single malformed endpoint fails the whole load; partial
// configurations must never be half-applied.
func (s *Source) LoadEndpoints(ctx context.Context) ([]domain.Endpoint, error) {
	cfg, err := Load(s.path)
	if err != nil {
		return nil, err
	}

	endpoints := make([]domain.Endpoint, 0, len(cfg.Endpoints))
	for i, ec := range cfg.Endpoints {
		endpoint, err := ec.toDomain()
		if err != nil {
			return nil, fmt.Errorf("endpoint %d (%q): %w", i, ec.ID, err)
		}
		endpoints = append(endpoints, *endpoint)
	}
	return endpoints, nil
}

// Watch reports file changes until ctx is done. Rapid successive write
// events are debounced into a single onChange call.
func (s *Source) Watch(ctx context.Context, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory, not the file: editors replace files on save
	// and a file watch would be lost with the old inode.
	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	var debounce *time.Timer
	fire := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(s.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceWindow, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})

		case <-fire:
			logger.Debug("configuration file changed: %s", s.path)
			onChange()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("config watcher error: %v", err)
		}
	}
}

// toDomain converts and validates one endpoint definition.
func (ec EndpointConfig) toDomain() (*domain.Endpoint, error) {
	schedule := domain.Schedule{CronExpr: ec.Cron}

	switch ec.Schedule {
	case "", string(domain.ScheduleManual):
		schedule.Type = domain.ScheduleManual
	case string(domain.ScheduleWebhook):
		schedule.Type = domain.ScheduleWebhook
	case string(domain.ScheduleCron):
		schedule.Type = domain.ScheduleCron
	case string(domain.ScheduleInterval):
		schedule.Type = domain.ScheduleInterval
		if ec.Interval == "" {
			return nil, fmt.Errorf("%w: interval schedule requires an interval", domain.ErrInvalidSchedule)
		}
		interval, err := time.ParseDuration(ec.Interval)
		if err != nil {
			return nil, fmt.Errorf("%w: bad interval %q: %v", domain.ErrInvalidSchedule, ec.Interval, err)
		}
		schedule.Interval = interval
	default:
		return nil, fmt.Errorf("%w: unknown schedule type %q", domain.ErrInvalidSchedule, ec.Schedule)
	}

	active := true
	if ec.Active != nil {
		active = *ec.Active
	}

	endpoint := &domain.Endpoint{
		ID:              ec.ID,
		Name:            ec.Name,
		Vendor:          domain.VendorType(ec.Vendor),
		ProjectID:       ec.ProjectID,
		UserID:          ec.UserID,
		Details:         ec.Details,
		Schedule:        schedule,
		Active:          active,
		MaxFilesPerSync: ec.MaxFilesPerSync,
		Description:     ec.Description,
	}

	if err := endpoint.Validate(); err != nil {
		return nil, err
	}
	return endpoint, nil
}
