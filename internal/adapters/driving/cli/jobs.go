package cli

import (
	"errors"
	"time"

	"github.com/spf13/cobra"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List scheduled sync jobs",
	Long: `Shows every registered recurring job with its run counters and
next planned firing. Counters survive configuration reloads.`,
	RunE: runJobs,
}

func init() {
	rootCmd.AddCommand(jobsCmd)
}

func runJobs(cmd *cobra.Command, _ []string) error {
	if scheduler == nil {
		return errors.New("scheduler not configured")
	}

	jobs := scheduler.JobStatuses()
	if len(jobs) == 0 {
		cmd.Println("No scheduled jobs.")
		return nil
	}

	for _, job := range jobs {
		cmd.Printf("%s  (%s)\n", job.ID, job.EndpointName)
		cmd.Printf("  schedule: %s", job.Schedule.Type)
		switch {
		case job.Schedule.Interval > 0:
			cmd.Printf(" every %s", job.Schedule.Interval)
		case job.Schedule.CronExpr != "":
			cmd.Printf(" %q", job.Schedule.CronExpr)
		}
		cmd.Println()
		cmd.Printf("  runs: %d (%d ok, %d failed, %d missed)\n",
			job.RunCount, job.SuccessCount, job.ErrorCount, job.MissedCount)
		if !job.NextRun.IsZero() {
			cmd.Printf("  next run: %s\n", job.NextRun.Local().Format(time.RFC3339))
		}
		if job.LastResult != nil && job.LastResult.ErrorMessage != "" {
			cmd.Printf("  last error: %s\n", job.LastResult.ErrorMessage)
		}
	}

	stats := scheduler.Stats()
	cmd.Println()
	cmd.Printf("%d jobs, %d runs total\n", stats.TotalJobs, stats.TotalRuns)
	return nil
}
