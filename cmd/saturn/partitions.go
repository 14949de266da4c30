package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"mercator-hq/saturn/pkg/cli"
	"mercator-hq/saturn/pkg/config"
	"mercator-hq/saturn/pkg/expiry"
)

var partitionsFlags struct {
	states string
	counts bool
	format string
	output string
}

var partitionsCmd = &cobra.Command{
	Use:   "partitions",
	Short: "Inspect the partition catalog",
	Long: `Inspect the partition catalog for operations and debugging.

Subcommands:
  list - List catalog entries with ranges and lifecycle states

Examples:
  # List every partition
  saturn partitions list

  # List only active partitions with payload row counts
  saturn partitions list --states active --counts

  # Export the catalog to JSON
  saturn partitions list --format json --output partitions.json`,
}

var partitionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List partition catalog entries",
	Long: `List partition catalog entries with ranges and lifecycle states.

Entries are ordered by range. Retired entries are tombstones; their
physical storage is gone and they are never counted.

Examples:
  # List every partition
  saturn partitions list

  # List planned and active partitions
  saturn partitions list --states planned,active

  # Include payload row counts (reads partition storage)
  saturn partitions list --counts

  # Export the catalog as CSV
  saturn partitions list --format csv --output partitions.csv`,
	RunE: listPartitions,
}

func init() {
	rootCmd.AddCommand(partitionsCmd)
	partitionsCmd.AddCommand(partitionsListCmd)

	partitionsListCmd.Flags().StringVar(&partitionsFlags.states, "states", "", "comma-separated state filter (planned, active, retiring, retired)")
	partitionsListCmd.Flags().BoolVar(&partitionsFlags.counts, "counts", false, "include payload row counts")
	partitionsListCmd.Flags().StringVar(&partitionsFlags.format, "format", "text", "output format: text, json, csv")
	partitionsListCmd.Flags().StringVarP(&partitionsFlags.output, "output", "o", "", "output file (default: stdout)")
}

// partitionListing is one catalog entry as printed.
type partitionListing struct {
	ID       expiry.PartitionID `json:"id"`
	Start    time.Time          `json:"start"`
	End      time.Time          `json:"end"`
	State    expiry.State       `json:"state"`
	Sequence int64              `json:"sequence"`
	Rows     *int64             `json:"rows,omitempty"`
}

func listPartitions(cmd *cobra.Command, args []string) error {
	// Load config to get backend settings
	if err := config.Initialize(cfgFile); err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	cfg := config.GetConfig()

	states, err := parseStates(partitionsFlags.states)
	if err != nil {
		return err
	}

	format, err := cli.ParseOutputFormat(partitionsFlags.format, cli.FormatText, cli.FormatJSON, cli.FormatCSV)
	if err != nil {
		return err
	}

	// Open store backends
	stores, err := openBackends(cfg)
	if err != nil {
		return cli.NewCommandError("partitions", err)
	}
	defer stores.Close()

	ctx := context.Background()

	var parts []expiry.Partition
	if len(states) > 0 {
		parts, err = stores.registry.ListByState(ctx, states...)
	} else {
		parts, err = stores.registry.List(ctx)
	}
	if err != nil {
		return cli.NewCommandError("partitions", fmt.Errorf("failed to list partitions: %w", err))
	}

	listings := make([]partitionListing, 0, len(parts))
	for _, part := range parts {
		listing := partitionListing{
			ID:       part.ID,
			Start:    part.Range.Start,
			End:      part.Range.End,
			State:    part.State,
			Sequence: part.Sequence,
		}
		if partitionsFlags.counts && part.State != expiry.StateRetired {
			n, err := stores.engine.Count(ctx, part)
			if err != nil {
				return cli.NewCommandError("partitions", fmt.Errorf("failed to count rows in %s: %w", part.ID, err))
			}
			listing.Rows = &n
		}
		listings = append(listings, listing)
	}

	// Output results
	var output *os.File
	if partitionsFlags.output != "" {
		output, err = os.Create(partitionsFlags.output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer output.Close()
	} else {
		output = os.Stdout
	}

	switch format {
	case cli.FormatJSON:
		return cli.NewFormatter(cli.FormatJSON).FormatTo(output, map[string]interface{}{
			"total_partitions": len(listings),
			"partitions":       listings,
		})
	case cli.FormatCSV:
		return outputPartitionsCSV(output, listings)
	default:
		return outputPartitionsText(output, listings)
	}
}

func outputPartitionsCSV(output *os.File, listings []partitionListing) error {
	formatter := &cli.CSVFormatter{
		Headers: []string{"id", "start", "end", "state", "sequence", "rows"},
	}

	rows := make([][]string, 0, len(listings))
	for _, listing := range listings {
		rowCount := ""
		if listing.Rows != nil {
			rowCount = strconv.FormatInt(*listing.Rows, 10)
		}
		rows = append(rows, []string{
			string(listing.ID),
			listing.Start.Format(time.RFC3339),
			listing.End.Format(time.RFC3339),
			string(listing.State),
			strconv.FormatInt(listing.Sequence, 10),
			rowCount,
		})
	}
	return formatter.FormatTo(output, rows)
}

// parseStates parses a comma-separated state filter. Empty input means no
// filter.
func parseStates(s string) ([]expiry.State, error) {
	if s == "" {
		return nil, nil
	}

	var states []expiry.State
	for _, field := range strings.Split(s, ",") {
		state := expiry.State(strings.TrimSpace(field))
		if !state.Valid() {
			return nil, cli.NewFlagError("state", strings.TrimSpace(field), "valid states: planned, active, retiring, retired")
		}
		states = append(states, state)
	}
	return states, nil
}

func outputPartitionsText(output *os.File, listings []partitionListing) error {
	fmt.Fprintf(output, "Total partitions: %d\n", len(listings))
	fmt.Fprintln(output)

	if len(listings) == 0 {
		fmt.Fprintln(output, "No partitions found.")
		return nil
	}

	for _, listing := range listings {
		fmt.Fprintf(output, "%s  [%s, %s)  %s",
			listing.ID,
			listing.Start.Format(time.RFC3339),
			listing.End.Format(time.RFC3339),
			listing.State)
		if listing.Rows != nil {
			fmt.Fprintf(output, "  %d rows", *listing.Rows)
		}
		fmt.Fprintln(output)
	}

	return nil
}
