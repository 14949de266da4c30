// Mercator Saturn is a partition-based TTL layer for record stores.
//
// Each record keeps a permanent core row while its expiring attributes
// live in time-range partitions selected by expiry timestamp. Expiry is
// enforced by retiring whole partitions on a schedule, never by per-row
// deletes:
//   - Deterministic routing of expiring payloads into half-open ranges
//   - Scheduled provisioning of partitions ahead of the clock
//   - Partition retirement with optional archive-then-drop
//   - A composite read view that never shows expired attributes
//
// Usage:
//
//	# Start the maintenance daemon with default configuration
//	saturn run
//
//	# Start with a custom configuration file
//	saturn run --config /path/to/config.yaml
//
//	# Run one maintenance cycle and exit
//	saturn maintain
//
//	# Inspect the partition catalog
//	saturn partitions list
//
//	# Show version information
//	saturn version
//
// For complete documentation, see: https://github.com/mercator-hq/saturn
package main

func main() {
	Execute()
}
