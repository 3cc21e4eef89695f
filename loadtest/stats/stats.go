// Package stats provides a goroutine-safe metrics collector that
// aggregates results from multiple load test clients and prints a
// summary report with percentile distributions and the verdict mix.
package stats

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"
)

// Collector aggregates results from load test clients. All methods are
// goroutine-safe and can be called concurrently from many client
// goroutines.
type Collector struct {
	mu              sync.Mutex
	submitLatencies []time.Duration
	verdicts        map[string]int
	errors          int
	submissions     int
	startTime       time.Time
}

// NewCollector creates a new Collector with the start time set to now.
func NewCollector() *Collector {
	return &Collector{
		verdicts:  make(map[string]int),
		startTime: time.Now(),
	}
}

// AddSubmit records one completed submission: its latency and the
// verdict the server returned.
func (c *Collector) AddSubmit(d time.Duration, verdict string) {
	c.mu.Lock()
	c.submitLatencies = append(c.submitLatencies, d)
	c.verdicts[verdict]++
	c.submissions++
	c.mu.Unlock()
}

// AddError increments the error counter.
func (c *Collector) AddError() {
	c.mu.Lock()
	c.errors++
	c.mu.Unlock()
}

// SubmissionCount returns the current number of recorded submissions.
func (c *Collector) SubmissionCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.submissions
}

// Report prints a formatted summary of the collected results to stdout:
// duration, throughput, error count, verdict distribution and latency
// percentiles.
func (c *Collector) Report() {
	c.mu.Lock()
	defer c.mu.Unlock()

	elapsed := time.Since(c.startTime)

	fmt.Println("\n=== Load Test Results ===")
	fmt.Printf("Duration:     %s\n", elapsed.Round(time.Second))
	fmt.Printf("Submissions:  %d\n", c.submissions)
	fmt.Printf("Errors:       %d\n", c.errors)
	if elapsed > 0 && c.submissions > 0 {
		fmt.Printf("Throughput:   %.1f/s\n", float64(c.submissions)/elapsed.Seconds())
	}

	if len(c.verdicts) > 0 {
		fmt.Println("\n--- Verdicts ---")
		names := make([]string, 0, len(c.verdicts))
		for v := range c.verdicts {
			names = append(names, v)
		}
		sort.Strings(names)
		for _, v := range names {
			fmt.Printf("  %-22s %d\n", v, c.verdicts[v])
		}
	}

	if len(c.submitLatencies) > 0 {
		fmt.Println("\n--- Submit Latency ---")
		printPercentiles(c.submitLatencies)
	}

	fmt.Println()
}

// printPercentiles sorts the given durations and prints avg, p50, p95,
// p99 and max values along with the sample count.
func printPercentiles(durations []time.Duration) {
	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })

	n := len(durations)
	p50 := durations[n/2]
	p95 := durations[int(math.Ceil(float64(n)*0.95))-1]
	p99 := durations[int(math.Ceil(float64(n)*0.99))-1]

	var sum time.Duration
	for _, d := range durations {
		sum += d
	}
	avg := sum / time.Duration(n)

	fmt.Printf("  avg: %v  p50: %v  p95: %v  p99: %v  max: %v  (n=%d)\n",
		avg.Round(time.Microsecond),
		p50.Round(time.Microsecond),
		p95.Round(time.Microsecond),
		p99.Round(time.Microsecond),
		durations[n-1].Round(time.Microsecond),
		n,
	)
}
