package tx

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ValentinKolb/txkv/cmd/util"
	"github.com/ValentinKolb/txkv/rpc/client"
	gometrics "github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	perfTestCmd = &cobra.Command{
		Use:   "perf",
		Short: "Performance testing tool for txKV servers",
		Long: `Performance testing tool for txKV servers.

Every thread opens its own connection. Keys written by the commit test use the
prefix __perf and stay committed after the run.`,
		RunE:    runPerf,
		PreRunE: processPerfConfig,
	}
	perfKeyPrefix  = "__perf"
	perfNumThreads = 10
	perfOps        = 10000
	perfKeySpread  = 100
	perfValueSize  = 128
	perfSkip       = make([]string, 0)
)

// perfTest is a single benchmark. op is called once per iteration, it records
// the duration of the measured part itself because some tests need untimed setup.
type perfTest struct {
	name string
	op   func(c client.ITxClient, key string, value []byte, timer gometrics.Timer) error
}

var perfTests = []perfTest{
	{
		name: "write",
		op: func(c client.ITxClient, key string, value []byte, timer gometrics.Timer) error {
			start := time.Now()
			txID, err := c.Write(key, value)
			timer.UpdateSince(start)
			if err != nil {
				return err
			}
			// do not leave the transaction open on the server
			return c.Rollback(txID)
		},
	},
	{
		name: "write-commit",
		op: func(c client.ITxClient, key string, value []byte, timer gometrics.Timer) error {
			start := time.Now()
			defer timer.UpdateSince(start)
			txID, err := c.Write(key, value)
			if err != nil {
				return err
			}
			return c.Commit(txID)
		},
	},
	{
		name: "read",
		op: func(c client.ITxClient, key string, _ []byte, timer gometrics.Timer) error {
			var err error
			timer.Time(func() {
				_, _, err = c.Read(key, "")
			})
			return err
		},
	},
	{
		name: "read-tx",
		op: func(c client.ITxClient, key string, value []byte, timer gometrics.Timer) error {
			txID, err := c.Write(key, value)
			if err != nil {
				return err
			}
			timer.Time(func() {
				_, _, err = c.Read(key, txID)
			})
			if rbErr := c.Rollback(txID); err == nil {
				err = rbErr
			}
			return err
		},
	},
	{
		name: "snapshot",
		op: func(c client.ITxClient, _ string, _ []byte, timer gometrics.Timer) error {
			var err error
			timer.Time(func() {
				_, err = c.Snapshot()
			})
			return err
		},
	},
}

func init() {
	// add flags
	key := "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. write,snapshot)"))
	key = "threads"
	perfTestCmd.Flags().Int(key, 10, util.WrapString("Number of threads (connections) to use for the benchmark"))
	key = "ops"
	perfTestCmd.Flags().Int(key, 10000, util.WrapString("Number of operations per benchmark"))
	key = "keys"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How many different keys to use for the tests"))
	key = "value-size"
	perfTestCmd.Flags().Int(key, 128, util.WrapString("Size of the written values in bytes"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	perfNumThreads = max(viper.GetInt("threads"), 1)
	perfOps = max(viper.GetInt("ops"), 1)
	perfKeySpread = max(viper.GetInt("keys"), 1)
	perfValueSize = max(viper.GetInt("value-size"), 0)
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	return nil
}

func runPerf(_ *cobra.Command, _ []string) error {
	fmt.Println("Performance testing tool for txKV servers")

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(util.GetClientConfig().String())
	fmt.Printf("Threads: %d, Operations: %d, Keys: %d, Value size: %d bytes\n", perfNumThreads, perfOps, perfKeySpread, perfValueSize)
	fmt.Println()

	// one client (connection) per thread
	clients := make([]client.ITxClient, 0, perfNumThreads)
	defer func() {
		for _, c := range clients {
			_ = c.Close()
		}
	}()
	for i := 0; i < perfNumThreads; i++ {
		c, err := util.NewClient()
		if err != nil {
			return fmt.Errorf("failed to connect thread %d: %v", i, err)
		}
		clients = append(clients, c)
	}

	fmt.Println("starting tests...")

	registry := gometrics.NewRegistry()
	value := make([]byte, perfValueSize)

	for _, test := range perfTests {
		if shouldSkip(test.name) {
			fmt.Printf("%-16sskipped\n", test.name)
			continue
		}

		timer := gometrics.GetOrRegisterTimer(test.name, registry)
		elapsed := runParallel(clients, func(c client.ITxClient, i int) {
			if err := test.op(c, getKey(test.name, i), value, timer); err != nil {
				log.Printf("(%s) - error: %v\n", test.name, err)
			}
		})
		printResult(test.name, timer.Snapshot(), elapsed)
	}

	// Write results to csv is specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, registry); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// runParallel distributes perfOps calls of fn over the clients and returns the wall time
func runParallel(clients []client.ITxClient, fn func(c client.ITxClient, i int)) time.Duration {
	start := time.Now()
	var wg sync.WaitGroup
	for t, c := range clients {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := t; i < perfOps; i += len(clients) {
				fn(c, i)
			}
		}()
	}
	wg.Wait()
	return time.Since(start)
}

func shouldSkip(test string) bool {
	for _, skip := range perfSkip {
		if test == strings.TrimSpace(skip) {
			return true
		}
	}
	return false
}

// getKey returns the test key for iteration i (with wraparound)
func getKey(test string, i int) string {
	return fmt.Sprintf("%s-%s-%d", perfKeyPrefix, test, i%perfKeySpread)
}

// printResult prints the result of a benchmark test in a formatted way
func printResult(test string, timer gometrics.Timer, elapsed time.Duration) {
	if timer.Count() == 0 {
		fmt.Printf("%-16sno successful operations\n", test)
		return
	}

	opsPerSec := float64(timer.Count()) / elapsed.Seconds()
	fmt.Printf("%-16smean %s\tp99 %s\t%.0f ops/sec\n",
		test,
		time.Duration(timer.Mean()),
		time.Duration(timer.Percentile(0.99)),
		opsPerSec,
	)
}

// writeResultsToCSV writes all timers of the registry to a CSV file
func writeResultsToCSV(csvPath string, registry gometrics.Registry) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	header := []string{
		"Test", "Count", "MeanNs", "P50Ns", "P99Ns", "MaxNs",
		"Endpoint", "TimeoutSec", "Serializer", "Transport",
		"Threads", "ValueSize", "Keys Count",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	config := util.GetClientConfig()

	var rowErr error
	registry.Each(func(name string, metric interface{}) {
		timer, ok := metric.(gometrics.Timer)
		if !ok || rowErr != nil {
			return
		}
		snapshot := timer.Snapshot()
		row := []string{
			name,
			strconv.FormatInt(snapshot.Count(), 10),
			fmt.Sprintf("%.0f", snapshot.Mean()),
			fmt.Sprintf("%.0f", snapshot.Percentile(0.5)),
			fmt.Sprintf("%.0f", snapshot.Percentile(0.99)),
			strconv.FormatInt(snapshot.Max(), 10),
			config.Endpoint,
			strconv.Itoa(config.TimeoutSecond),
			viper.GetString("serializer"),
			viper.GetString("transport"),
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(perfValueSize),
			strconv.Itoa(perfKeySpread),
		}
		if err := writer.Write(row); err != nil {
			rowErr = fmt.Errorf("failed to write row for test %s: %v", name, err)
		}
	})

	return rowErr
}
