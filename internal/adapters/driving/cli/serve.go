package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the sync scheduler daemon",
	Long: `Starts the scheduler and keeps it running in the foreground.
Endpoints with interval or cron schedules are synced automatically;
the configuration file is watched and reloaded on change.

Stop with Ctrl-C; in-flight syncs are allowed to finish.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if manager == nil {
		return errors.New("scheduler manager not configured")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if err := manager.Start(ctx); err != nil {
		return err
	}
	cmd.Println("Scheduler started. Press Ctrl-C to stop.")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case sig := <-stop:
		cmd.Printf("Received %s, shutting down...\n", sig)
	case <-ctx.Done():
	}

	if err := manager.Stop(true); err != nil {
		return err
	}
	cmd.Println("Scheduler stopped.")
	return nil
}
