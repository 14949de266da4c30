/*
Package cli provides command-line interface utilities for Mercator Saturn.

The cli package includes output formatters, progress reporters, and common CLI
helpers used by the saturn command.

Output Formatting:

The cli package supports multiple output formats (text, JSON, CSV) for
displaying command results such as maintenance reports and partition
listings:

	formatter := cli.NewFormatter(cli.FormatJSON)
	if err := formatter.FormatTo(os.Stdout, report); err != nil {
		return err
	}

CSV output works on row data: pass [][]string and set Headers on the
formatter.

Progress Reporting:

For long-running operations such as bench write loads, use the progress
reporter:

	progress := cli.NewProgressReporter(os.Stdout)
	progress.Start(totalRecords)
	for i := 0; i < totalRecords; i++ {
		// Do work, track failures
		progress.Update(int64(i+1), failedSoFar)
	}
	progress.Finish()

Signal Handling:

For graceful shutdown on SIGINT/SIGTERM:

	ctx := cli.SetupSignalHandler()
	// Use ctx for operations that should be cancelled on shutdown
*/
package cli
