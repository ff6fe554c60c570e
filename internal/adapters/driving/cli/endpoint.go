package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/filebridge/internal/core/domain"
)

var (
	endpointNameFlag     string
	endpointVendorFlag   string
	endpointProjectFlag  string
	endpointUserFlag     string
	endpointScheduleFlag string
	endpointIntervalFlag string
	endpointCronFlag     string
	endpointDetailFlags  []string
	endpointMaxFilesFlag int
)

var (
	endpointListProjectFlag string
	endpointListVendorFlag  string
)

var endpointCmd = &cobra.Command{
	Use:     "endpoint",
	Aliases: []string{"endpoints"},
	Short:   "Manage sync endpoints",
}

var endpointListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured endpoints",
	RunE:  runEndpointList,
}

var endpointAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a new endpoint",
	Long: `Registers a new sync endpoint. Vendor credentials and other
vendor-specific settings are passed as repeated --detail key=value
flags, e.g. --detail access_token=... --detail folder_id=...`,
	RunE: runEndpointAdd,
}

var endpointActivateCmd = &cobra.Command{
	Use:   "activate <endpoint-id>",
	Short: "Activate an endpoint",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setEndpointActive(cmd, args[0], true)
	},
}

var endpointDeactivateCmd = &cobra.Command{
	Use:   "deactivate <endpoint-id>",
	Short: "Deactivate an endpoint",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setEndpointActive(cmd, args[0], false)
	},
}

func init() {
	endpointAddCmd.Flags().StringVar(&endpointNameFlag, "name", "", "human-readable name")
	endpointAddCmd.Flags().StringVar(&endpointVendorFlag, "vendor", "", "vendor type (google_drive, autodesk_construction_cloud)")
	endpointAddCmd.Flags().StringVar(&endpointProjectFlag, "project", "", "project the endpoint belongs to")
	endpointAddCmd.Flags().StringVar(&endpointUserFlag, "user", "", "account the endpoint syncs on behalf of")
	endpointAddCmd.Flags().StringVar(&endpointScheduleFlag, "schedule", "manual", "schedule type (manual, interval, cron, webhook)")
	endpointAddCmd.Flags().StringVar(&endpointIntervalFlag, "interval", "", "sync period for interval schedules (e.g. 30m)")
	endpointAddCmd.Flags().StringVar(&endpointCronFlag, "cron", "", "5-field cron expression for cron schedules")
	endpointAddCmd.Flags().StringArrayVar(&endpointDetailFlags, "detail", nil, "vendor-specific setting as key=value (repeatable)")
	endpointAddCmd.Flags().IntVar(&endpointMaxFilesFlag, "max-files", 0, "cap files processed per sync")
	_ = endpointAddCmd.MarkFlagRequired("vendor")
	_ = endpointAddCmd.MarkFlagRequired("project")
	_ = endpointAddCmd.MarkFlagRequired("user")

	endpointListCmd.Flags().StringVar(&endpointListProjectFlag, "project", "", "list only endpoints of this project")
	endpointListCmd.Flags().StringVar(&endpointListVendorFlag, "vendor", "", "list only endpoints of this vendor")

	endpointCmd.AddCommand(endpointListCmd)
	endpointCmd.AddCommand(endpointAddCmd)
	endpointCmd.AddCommand(endpointActivateCmd)
	endpointCmd.AddCommand(endpointDeactivateCmd)
	rootCmd.AddCommand(endpointCmd)
}

func runEndpointList(cmd *cobra.Command, _ []string) error {
	if syncer == nil {
		return errors.New("sync service not configured")
	}

	endpoints, err := syncer.ListEndpoints(context.Background(), domain.EndpointFilter{
		Vendor:    domain.VendorType(endpointListVendorFlag),
		ProjectID: endpointListProjectFlag,
	})
	if err != nil {
		return fmt.Errorf("listing endpoints: %w", err)
	}

	if len(endpoints) == 0 {
		cmd.Println("No endpoints configured.")
		return nil
	}

	for _, e := range endpoints {
		state := "inactive"
		if e.Active {
			state = "active"
		}
		lastSync := "never"
		if !e.LastSyncAt.IsZero() {
			lastSync = e.LastSyncAt.Local().Format(time.RFC3339)
		}
		cmd.Printf("%s  %-28s %s/%s  %s  %s  last sync %s\n",
			e.ID, e.Name, e.Vendor, e.ProjectID, e.Schedule.Type, state, lastSync)
	}
	return nil
}

func runEndpointAdd(cmd *cobra.Command, _ []string) error {
	if syncer == nil {
		return errors.New("sync service not configured")
	}

	schedule, err := scheduleFromFlags()
	if err != nil {
		return err
	}
	details, err := detailsFromFlags()
	if err != nil {
		return err
	}

	endpoint := domain.Endpoint{
		Name:            endpointNameFlag,
		Vendor:          domain.VendorType(endpointVendorFlag),
		ProjectID:       endpointProjectFlag,
		UserID:          endpointUserFlag,
		Details:         details,
		Schedule:        schedule,
		Active:          true,
		MaxFilesPerSync: endpointMaxFilesFlag,
	}

	created, err := syncer.AddEndpoint(context.Background(), endpoint)
	if err != nil {
		return fmt.Errorf("adding endpoint: %w", err)
	}
	cmd.Printf("Endpoint added: %s\n", created.ID)
	return nil
}

func setEndpointActive(cmd *cobra.Command, endpointID string, active bool) error {
	if syncer == nil {
		return errors.New("sync service not configured")
	}

	ctx := context.Background()
	var err error
	if active {
		err = syncer.ActivateEndpoint(ctx, endpointID)
	} else {
		err = syncer.DeactivateEndpoint(ctx, endpointID)
	}
	if err != nil {
		return err
	}

	state := "deactivated"
	if active {
		state = "activated"
	}
	cmd.Printf("Endpoint %s %s.\n", endpointID, state)
	return nil
}

func scheduleFromFlags() (domain.Schedule, error) {
	schedule := domain.Schedule{
		Type:     domain.ScheduleType(endpointScheduleFlag),
		CronExpr: endpointCronFlag,
	}
	if endpointIntervalFlag != "" {
		interval, err := time.ParseDuration(endpointIntervalFlag)
		if err != nil {
			return schedule, fmt.Errorf("parsing --interval: %w", err)
		}
		schedule.Interval = interval
	}
	return schedule, nil
}

func detailsFromFlags() (map[string]string, error) {
	if len(endpointDetailFlags) == 0 {
		return nil, nil
	}
	details := make(map[string]string, len(endpointDetailFlags))
	for _, kv := range endpointDetailFlags {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("malformed --detail %q, want key=value", kv)
		}
		details[key] = value
	}
	return details, nil
}
