package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"mercator-hq/saturn/pkg/cli"
	"mercator-hq/saturn/pkg/config"
	"mercator-hq/saturn/pkg/expiry"
	"mercator-hq/saturn/pkg/expiry/maintenance"
	"mercator-hq/saturn/pkg/expiry/store"
)

var benchFlags struct {
	records     int
	concurrency int
	spread      time.Duration
	keep        bool
	format      string
	report      string
}

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Load test the record store",
	Long: `Measure write throughput and latency of the configured store.

The bench command provisions partitions for the current time, writes
synthetic records with expiring payloads through the full routing path,
and reports throughput and latency percentiles. Record IDs carry a
"bench-" prefix and are deleted afterwards unless --keep is set.

A nonzero --spread distributes payload expiries uniformly across that
span, exercising routing into multiple partitions. Expiries beyond the
provisioned coverage fail and are counted as errors.

Examples:
  # Write 1000 records against the configured store
  saturn bench

  # Heavier load with more writers
  saturn bench --records 10000 --concurrency 8

  # Route across partitions (expiries spread over 60 days)
  saturn bench --spread 1440h

  # Emit results as JSON
  saturn bench --format json --report bench.json`,
	RunE: runBench,
}

func init() {
	rootCmd.AddCommand(benchCmd)

	benchCmd.Flags().IntVar(&benchFlags.records, "records", 1000, "number of records to write")
	benchCmd.Flags().IntVar(&benchFlags.concurrency, "concurrency", 4, "concurrent writers")
	benchCmd.Flags().DurationVar(&benchFlags.spread, "spread", 0, "spread payload expiries across this span (default: policy retention)")
	benchCmd.Flags().BoolVar(&benchFlags.keep, "keep", false, "keep bench records after the run")
	benchCmd.Flags().StringVar(&benchFlags.format, "format", "text", "output format: text, json")
	benchCmd.Flags().StringVar(&benchFlags.report, "report", "", "output file for results (default: stdout)")
}

func runBench(cmd *cobra.Command, args []string) error {
	// Load configuration
	if err := config.Initialize(cfgFile); err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	cfg := config.GetConfig()

	if verbose {
		cfg.Logging.Level = "debug"
	}
	setupLogging(cfg)

	if benchFlags.records < 1 {
		return cli.NewFlagError("records", strconv.Itoa(benchFlags.records), "must be at least 1")
	}
	if benchFlags.concurrency < 1 {
		return cli.NewFlagError("concurrency", strconv.Itoa(benchFlags.concurrency), "must be at least 1")
	}
	format, err := cli.ParseOutputFormat(benchFlags.format, cli.FormatText, cli.FormatJSON)
	if err != nil {
		return err
	}

	fmt.Println("Saturn Bench")
	fmt.Println("============")
	fmt.Printf("Backend: %s\n", cfg.Store.Backend)
	fmt.Printf("Records: %d\n", benchFlags.records)
	fmt.Printf("Concurrency: %d\n", benchFlags.concurrency)
	if benchFlags.spread > 0 {
		fmt.Printf("Expiry spread: %s\n", benchFlags.spread)
	}
	fmt.Println()

	// Open store backends
	stores, err := openBackends(cfg)
	if err != nil {
		return cli.NewCommandError("bench", err)
	}
	defer stores.Close()

	ctx := cli.SetupSignalHandler()
	policy := expiryPolicy(cfg)
	now := time.Now().UTC()

	// Provision partitions so routing has somewhere to land.
	provisioner := maintenance.NewProvisioner(stores.registry, stores.engine)
	if _, err := provisioner.EnsureFuturePartitions(ctx, now, policy); err != nil {
		return cli.NewCommandError("bench", fmt.Errorf("failed to provision partitions: %w", err))
	}

	records := store.NewRecordStore(stores.cores, stores.registry, stores.engine, &store.RecordStoreConfig{
		Policy: policy,
	})

	fmt.Println("Running...")
	fmt.Println()

	results := runWriteLoad(ctx, records, now)

	if !benchFlags.keep {
		cleanupBenchRecords(ctx, records, results.totalRecords)
	}

	return outputBenchResults(results, format)
}

type benchResults struct {
	totalRecords int
	successful   int
	failed       int
	duration     time.Duration
	latencies    []time.Duration
	errors       []error
}

// runWriteLoad writes the configured number of synthetic records through
// the store's routing path and collects per-write latencies.
func runWriteLoad(ctx context.Context, records *store.RecordStore, now time.Time) *benchResults {
	results := &benchResults{
		totalRecords: benchFlags.records,
		latencies:    make([]time.Duration, 0, benchFlags.records),
	}

	var (
		successful int64
		failed     int64
		mu         sync.Mutex
	)

	progress := cli.NewProgressReporter(nil)
	progress.Start(int64(benchFlags.records))

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < benchFlags.concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				record := expiry.CoreRecord{
					CoreID: fmt.Sprintf("bench-%06d", i),
					Kind:   "bench",
					Body:   map[string]string{"seq": strconv.Itoa(i)},
				}
				payload := &expiry.Payload{
					Attributes: map[string]string{"token": uuid.New().String()},
				}
				if benchFlags.spread > 0 {
					// Deterministic uniform spread; a zero ExpiresAt takes
					// the policy's default retention instead.
					offset := time.Duration(i) * benchFlags.spread / time.Duration(benchFlags.records)
					payload.ExpiresAt = now.Add(time.Minute + offset)
				}

				reqStart := time.Now()
				err := records.Put(ctx, record, payload)
				latency := time.Since(reqStart)

				mu.Lock()
				results.latencies = append(results.latencies, latency)
				if err != nil && len(results.errors) < 5 {
					results.errors = append(results.errors, err)
				}
				mu.Unlock()

				if err != nil {
					atomic.AddInt64(&failed, 1)
				} else {
					atomic.AddInt64(&successful, 1)
				}
				progress.Update(atomic.LoadInt64(&successful)+atomic.LoadInt64(&failed), atomic.LoadInt64(&failed))
			}
		}()
	}

	start := time.Now()
	for i := 0; i < benchFlags.records; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	progress.Finish()

	results.duration = time.Since(start)
	results.successful = int(atomic.LoadInt64(&successful))
	results.failed = int(atomic.LoadInt64(&failed))

	return results
}

// cleanupBenchRecords deletes the synthetic records written by the run.
func cleanupBenchRecords(ctx context.Context, records *store.RecordStore, count int) {
	fmt.Println("Cleaning up bench records...")

	var failures int
	for i := 0; i < count; i++ {
		if err := records.Delete(ctx, fmt.Sprintf("bench-%06d", i)); err != nil {
			failures++
		}
	}
	if failures > 0 {
		fmt.Printf("Warning: %d bench records could not be deleted\n", failures)
	}
}

// benchReport is the serializable form of a bench run's results.
type benchReport struct {
	TotalRecords    int     `json:"total_records"`
	Successful      int     `json:"successful"`
	Failed          int     `json:"failed"`
	DurationSeconds float64 `json:"duration_seconds"`
	PerSecond       float64 `json:"records_per_second"`
	LatencyMinMs    float64 `json:"latency_min_ms"`
	LatencyMeanMs   float64 `json:"latency_mean_ms"`
	LatencyMedianMs float64 `json:"latency_median_ms"`
	LatencyP95Ms    float64 `json:"latency_p95_ms"`
	LatencyP99Ms    float64 `json:"latency_p99_ms"`
	LatencyMaxMs    float64 `json:"latency_max_ms"`
}

func outputBenchResults(results *benchResults, format cli.OutputFormat) error {
	var output *os.File
	var err error
	if benchFlags.report != "" {
		output, err = os.Create(benchFlags.report)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer output.Close()
	} else {
		output = os.Stdout
	}

	min, mean, median, p95, p99, max := calculatePercentiles(results.latencies)

	if format == cli.FormatJSON {
		report := benchReport{
			TotalRecords:    results.totalRecords,
			Successful:      results.successful,
			Failed:          results.failed,
			DurationSeconds: results.duration.Seconds(),
			LatencyMinMs:    millis(min),
			LatencyMeanMs:   millis(mean),
			LatencyMedianMs: millis(median),
			LatencyP95Ms:    millis(p95),
			LatencyP99Ms:    millis(p99),
			LatencyMaxMs:    millis(max),
		}
		if results.duration > 0 {
			report.PerSecond = float64(results.successful) / results.duration.Seconds()
		}

		return cli.NewFormatter(cli.FormatJSON).FormatTo(output, report)
	}

	fmt.Fprintln(output)
	fmt.Fprintln(output, "Results:")
	fmt.Fprintln(output, "--------")
	fmt.Fprintf(output, "Records:     %d total, %d successful, %d failed\n",
		results.totalRecords, results.successful, results.failed)
	fmt.Fprintf(output, "Duration:    %.1fs\n", results.duration.Seconds())

	if results.successful > 0 && results.duration > 0 {
		throughput := float64(results.successful) / results.duration.Seconds()
		fmt.Fprintf(output, "Throughput:  %.2f records/s\n", throughput)
	}

	if len(results.latencies) > 0 {
		fmt.Fprintln(output)
		fmt.Fprintln(output, "Latency:")
		fmt.Fprintf(output, "  Min:     %.2fms\n", millis(min))
		fmt.Fprintf(output, "  Mean:    %.2fms\n", millis(mean))
		fmt.Fprintf(output, "  Median:  %.2fms\n", millis(median))
		fmt.Fprintf(output, "  p95:     %.2fms\n", millis(p95))
		fmt.Fprintf(output, "  p99:     %.2fms\n", millis(p99))
		fmt.Fprintf(output, "  Max:     %.2fms\n", millis(max))
	}

	if len(results.errors) > 0 {
		fmt.Fprintln(output)
		fmt.Fprintf(output, "First errors (%d failed writes):\n", results.failed)
		for _, err := range results.errors {
			fmt.Fprintf(output, "  %v\n", err)
		}
	}

	return nil
}

func millis(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}

func calculatePercentiles(latencies []time.Duration) (min, mean, median, p95, p99, max time.Duration) {
	if len(latencies) == 0 {
		return
	}

	sorted := make([]time.Duration, len(latencies))
	copy(sorted, latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	min = sorted[0]
	max = sorted[len(sorted)-1]

	var sum time.Duration
	for _, lat := range sorted {
		sum += lat
	}
	mean = sum / time.Duration(len(sorted))

	median = sorted[len(sorted)/2]
	p95 = sorted[int(float64(len(sorted))*0.95)]
	p99 = sorted[int(float64(len(sorted))*0.99)]

	return
}
