package domain

import (
	"fmt"
	"time"

	"github.com/custodia-labs/filebridge/internal/cron"
)

// VendorType identifies the external file-storage service an endpoint
// syncs from. The set is closed; adding a vendor means adding a client
// implementation and registering it with the connector factory.
type VendorType string

const (
	// VendorGoogleDrive is the Google Drive API.
	VendorGoogleDrive VendorType = "google_drive"

	// VendorAutodesk is the Autodesk Construction Cloud API.
	VendorAutodesk VendorType = "autodesk_construction_cloud"
)

// Valid reports whether v is a known vendor type.
func (v VendorType) Valid() bool {
	switch v {
	case VendorGoogleDrive, VendorAutodesk:
		return true
	}
	return false
}

// ScheduleType describes how an endpoint's syncs are triggered.
type ScheduleType string

const (
	// ScheduleManual endpoints are only synced on explicit request.
	ScheduleManual ScheduleType = "manual"

	// ScheduleInterval endpoints sync on a fixed period.
	ScheduleInterval ScheduleType = "interval"

	// ScheduleCron endpoints sync on a 5-field cron expression.
	ScheduleCron ScheduleType = "cron"

	// ScheduleWebhook endpoints are driven by an external trigger and
	// register no timer job.
	ScheduleWebhook ScheduleType = "webhook"
)

// Schedule is the trigger specification for an endpoint.
type Schedule struct {
	// Type selects the trigger mechanism.
	Type ScheduleType

	// Interval is the period between firings for ScheduleInterval.
	Interval time.Duration

	// CronExpr is the 5-field cron expression for ScheduleCron
	// (minute hour day-of-month month day-of-week).
	CronExpr string
}

// Validate checks that the schedule specification is well-formed.
// A malformed schedule is a permanent configuration error.
func (s Schedule) Validate() error {
	switch s.Type {
	case ScheduleManual, ScheduleWebhook:
		return nil
	case ScheduleInterval:
		if s.Interval < time.Minute {
			return fmt.Errorf("%w: interval must be at least one minute, got %s", ErrInvalidSchedule, s.Interval)
		}
		return nil
	case ScheduleCron:
		if s.CronExpr == "" {
			return fmt.Errorf("%w: cron expression required", ErrInvalidSchedule)
		}
		if _, err := cron.Parse(s.CronExpr); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown schedule type %q", ErrInvalidSchedule, s.Type)
	}
}

// Recurring reports whether the schedule registers a timer job.
func (s Schedule) Recurring() bool {
	return s.Type == ScheduleInterval || s.Type == ScheduleCron
}

// Endpoint is the configuration for one sync target. It is immutable
// during a sync and replaced wholesale on configuration reload.
type Endpoint struct {
	// ID is the unique identifier for the endpoint.
	ID string

	// Name is the human-readable name for this endpoint.
	Name string

	// Vendor identifies which external service this endpoint polls.
	Vendor VendorType

	// ProjectID groups endpoints belonging to one project.
	ProjectID string

	// UserID identifies the account the endpoint syncs on behalf of.
	UserID string

	// Details contains vendor-specific configuration, opaque to the core
	// (e.g. folder_id for Drive, hub/project identifiers for Autodesk).
	Details map[string]string

	// Schedule specifies when the endpoint is synced.
	Schedule Schedule

	// Active indicates whether the endpoint participates in syncs.
	Active bool

	// MaxFilesPerSync caps files processed per sync. Zero means the
	// engine's global cap applies.
	MaxFilesPerSync int

	// Description is optional free text.
	Description string

	// LastSyncAt is the sync watermark: the wall-clock time at which the
	// last successful sync started to be recorded. Zero means the
	// endpoint has never been synced. It never moves backward and is
	// only advanced after a fully successful sync.
	LastSyncAt time.Time

	// CreatedAt is when the endpoint was created.
	CreatedAt time.Time

	// UpdatedAt is when the endpoint was last updated.
	UpdatedAt time.Time
}

// JobID returns the deterministic scheduler job identity for the
// endpoint. Re-registering the same logical endpoint replaces its job.
func (e Endpoint) JobID() string {
	return fmt.Sprintf("%s_%s_%s", e.Vendor, e.ProjectID, e.UserID)
}

// Validate checks the endpoint configuration.
func (e *Endpoint) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("%w: endpoint id required", ErrInvalidInput)
	}
	if !e.Vendor.Valid() {
		return fmt.Errorf("%w: %q", ErrUnsupportedType, e.Vendor)
	}
	if e.ProjectID == "" || e.UserID == "" {
		return fmt.Errorf("%w: project id and user id required", ErrInvalidInput)
	}
	if e.MaxFilesPerSync < 0 {
		return fmt.Errorf("%w: max files per sync must not be negative", ErrInvalidInput)
	}
	return e.Schedule.Validate()
}

// EndpointFilter narrows endpoint listings. Zero values match everything.
type EndpointFilter struct {
	// Vendor restricts to endpoints of one vendor type.
	Vendor VendorType

	// ProjectID restricts to endpoints of one project.
	ProjectID string
}

// Matches reports whether the endpoint satisfies the filter.
func (f EndpointFilter) Matches(e *Endpoint) bool {
	if f.Vendor != "" && e.Vendor != f.Vendor {
		return false
	}
	if f.ProjectID != "" && e.ProjectID != f.ProjectID {
		return false
	}
	return true
}
