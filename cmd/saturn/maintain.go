package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"mercator-hq/saturn/pkg/cli"
	"mercator-hq/saturn/pkg/config"
	"mercator-hq/saturn/pkg/expiry/maintenance"
)

var maintainFlags struct {
	at     string
	format string
	output string
}

var maintainCmd = &cobra.Command{
	Use:   "maintain",
	Short: "Run one maintenance cycle",
	Long: `Run one provision-then-reap maintenance cycle and exit.

The cycle registers and activates the partition containing the current
time plus the configured number of future partitions, then retires
partitions whose range has passed the grace horizon. The run report lists
what changed.

A cycle that finds another maintenance run in progress reports skipped
and exits successfully. Per-partition failures are collected in the
report and make the command exit non-zero.

Examples:
  # Run one cycle against the configured store
  saturn maintain

  # Run as of a specific instant (useful for drills and backfills)
  saturn maintain --at "2025-06-01T00:00:00Z"

  # Emit the run report as JSON
  saturn maintain --format json

  # Write the report to a file
  saturn maintain --format json --output report.json`,
	RunE: runMaintain,
}

func init() {
	rootCmd.AddCommand(maintainCmd)

	maintainCmd.Flags().StringVar(&maintainFlags.at, "at", "", "run as of this instant (RFC3339, default: now)")
	maintainCmd.Flags().StringVar(&maintainFlags.format, "format", "text", "output format: text, json")
	maintainCmd.Flags().StringVarP(&maintainFlags.output, "output", "o", "", "output file (default: stdout)")
}

func runMaintain(cmd *cobra.Command, args []string) error {
	// Load configuration
	if err := config.Initialize(cfgFile); err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	cfg := config.GetConfig()

	if verbose {
		cfg.Logging.Level = "debug"
	}
	setupLogging(cfg)

	format, err := cli.ParseOutputFormat(maintainFlags.format, cli.FormatText, cli.FormatJSON)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if maintainFlags.at != "" {
		parsed, err := time.Parse(time.RFC3339, maintainFlags.at)
		if err != nil {
			return cli.NewFlagError("at", maintainFlags.at, "expected an RFC 3339 timestamp")
		}
		now = parsed.UTC()
	}

	// Open store backends
	stores, err := openBackends(cfg)
	if err != nil {
		return cli.NewCommandError("maintain", err)
	}
	defer stores.Close()

	coordinator := maintenance.NewCoordinator(stores.registry, stores.engine, &maintenance.CoordinatorConfig{
		Policy:      expiryPolicy(cfg),
		ArchivePath: cfg.Maintenance.ArchivePath,
	})

	// Interrupts abort the run between partitions rather than mid-drop.
	ctx := cli.SetupSignalHandler()

	report, err := coordinator.RunMaintenance(ctx, now)
	if err != nil {
		return cli.NewCommandError("maintain", err)
	}

	// Output the run report
	var output *os.File
	if maintainFlags.output != "" {
		output, err = os.Create(maintainFlags.output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer output.Close()
	} else {
		output = os.Stdout
	}

	switch format {
	case cli.FormatJSON:
		if err := cli.NewFormatter(cli.FormatJSON).FormatTo(output, report); err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
	default:
		printReport(output, report)
	}

	if len(report.Errors) > 0 {
		return cli.NewCommandError("maintain", fmt.Errorf("%d partition failures", len(report.Errors)))
	}
	return nil
}

func printReport(output *os.File, report *maintenance.Report) {
	fmt.Fprintf(output, "Maintenance run %s\n", report.RunID)
	fmt.Fprintf(output, "Started: %s\n", report.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(output, "Duration: %s\n", report.Duration)

	if report.Skipped {
		fmt.Fprintln(output, "Skipped: another maintenance run holds the lock")
		return
	}

	fmt.Fprintf(output, "Created: %d\n", len(report.Created))
	for _, id := range report.Created {
		fmt.Fprintf(output, "  %s\n", id)
	}

	fmt.Fprintf(output, "Retired: %d\n", len(report.Retired))
	for _, id := range report.Retired {
		fmt.Fprintf(output, "  %s\n", id)
	}

	if len(report.Errors) > 0 {
		fmt.Fprintf(output, "Errors: %d\n", len(report.Errors))
		for _, msg := range report.Errors {
			fmt.Fprintf(output, "  %s\n", msg)
		}
	}
}
