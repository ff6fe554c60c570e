// Package cli implements the filebridge command-line interface.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/filebridge/internal/core/domain"
	"github.com/custodia-labs/filebridge/internal/core/ports/driving"
)

// version is set at build time via -ldflags.
var version = "dev"

// Manager is the subset of the scheduler manager the CLI drives.
type Manager interface {
	Start(ctx context.Context) error
	Stop(wait bool) error
	ReloadConfiguration(ctx context.Context) error
	Health(ctx context.Context) *domain.Health
}

// Services the commands operate on. Wired by bootstrap for production
// runs; tests inject fakes directly.
var (
	syncer    driving.Syncer
	scheduler driving.Scheduler
	manager   Manager

	// configured suppresses the production bootstrap once services have
	// been injected.
	configured bool
)

var (
	configFlag  string
	verboseFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "filebridge",
	Short: "Sync file metadata from cloud storage vendors",
	Long: `filebridge polls external file-storage vendors (Google Drive,
Autodesk Construction Cloud) and mirrors their file metadata into a
local database. Endpoints can be synced on demand or on a schedule.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: teardown,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "config file (default ~/.filebridge/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "enable debug logging")
}

// Configure injects the services the commands drive, bypassing the
// production bootstrap.
func Configure(s driving.Syncer, sch driving.Scheduler, m Manager) {
	syncer = s
	scheduler = sch
	manager = m
	configured = true
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
