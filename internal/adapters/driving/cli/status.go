package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var statusProjectFlag string

var statusCmd = &cobra.Command{
	Use:   "status [endpoint-id]",
	Short: "Show system health or endpoint status",
	Long: `Without arguments, reports overall health: storage, vendor
client construction and scheduler state. With an endpoint ID, reports
that endpoint's configuration, file count and recent sync history.
With --project, reports every endpoint of the project.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusProjectFlag, "project", "", "report all endpoints of this project")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return endpointStatus(cmd, args[0])
	}
	if statusProjectFlag != "" {
		return projectStatus(cmd, statusProjectFlag)
	}
	return systemStatus(cmd)
}

func projectStatus(cmd *cobra.Command, projectID string) error {
	if syncer == nil {
		return errors.New("sync service not configured")
	}

	statuses, err := syncer.ProjectStatus(context.Background(), projectID)
	if err != nil {
		return fmt.Errorf("getting project status: %w", err)
	}
	if len(statuses) == 0 {
		cmd.Printf("No endpoints in project %s.\n", projectID)
		return nil
	}

	for _, status := range statuses {
		e := status.Endpoint
		lastSync := "never"
		if !e.LastSyncAt.IsZero() {
			lastSync = e.LastSyncAt.Local().Format(time.RFC3339)
		}
		cmd.Printf("%s  %-28s %s  active=%v  %d files  last sync %s\n",
			e.ID, e.Name, e.Vendor, e.Active, status.FileCount, lastSync)
	}
	return nil
}

func systemStatus(cmd *cobra.Command) error {
	if manager == nil {
		return errors.New("scheduler manager not configured")
	}

	health := manager.Health(context.Background())
	cmd.Printf("Status: %s\n", health.Status)
	cmd.Printf("Scheduler running: %v\n", health.SchedulerRunning)

	stats := health.Stats
	if stats.TotalJobs > 0 {
		cmd.Printf("Jobs: %d (%d runs, %d ok, %d failed, %d missed)\n",
			stats.TotalJobs, stats.TotalRuns, stats.TotalSuccesses,
			stats.TotalErrors, stats.TotalMissed)
	}
	for _, issue := range health.Issues {
		cmd.Printf("  - %s\n", issue)
	}
	return nil
}

func endpointStatus(cmd *cobra.Command, endpointID string) error {
	if syncer == nil {
		return errors.New("sync service not configured")
	}

	status, err := syncer.EndpointStatus(context.Background(), endpointID)
	if err != nil {
		return fmt.Errorf("getting endpoint status: %w", err)
	}

	e := status.Endpoint
	cmd.Printf("Endpoint: %s (%s)\n", e.Name, e.ID)
	cmd.Printf("Vendor: %s  Project: %s  Active: %v\n", e.Vendor, e.ProjectID, e.Active)
	cmd.Printf("Schedule: %s", e.Schedule.Type)
	switch {
	case e.Schedule.Interval > 0:
		cmd.Printf(" every %s", e.Schedule.Interval)
	case e.Schedule.CronExpr != "":
		cmd.Printf(" %q", e.Schedule.CronExpr)
	}
	cmd.Println()

	if e.LastSyncAt.IsZero() {
		cmd.Println("Last sync: never")
	} else {
		cmd.Printf("Last sync: %s\n", e.LastSyncAt.Local().Format(time.RFC3339))
	}
	cmd.Printf("Files tracked: %d\n", status.FileCount)

	if len(status.RecentSyncs) > 0 {
		cmd.Println("Recent syncs:")
		for _, log := range status.RecentSyncs {
			line := fmt.Sprintf("  %s  %-7s  %d files",
				log.StartedAt.Local().Format("2006-01-02 15:04:05"),
				log.Status, log.FilesProcessed)
			if log.ErrorMessage != "" {
				line += "  " + log.ErrorMessage
			}
			cmd.Println(line)
		}
	}
	return nil
}
