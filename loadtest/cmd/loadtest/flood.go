package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/pondworks/comments/loadtest/client"
	"github.com/pondworks/comments/loadtest/stats"
)

// runFlood hammers the service from a single identity. The expected
// shape of the run: a few accepted posts, then 429s with growing
// retry_after values as the cooldown ladder climbs.
func runFlood(args []string) {
	fs := flag.NewFlagSet("flood", flag.ExitOnError)
	baseURL := fs.String("url", "http://localhost:8080", "comment service base URL")
	count := fs.Int("count", 30, "number of posts to attempt")
	interval := fs.Duration("interval", 200*time.Millisecond, "gap between posts")
	fs.Parse(args)

	ctx := context.Background()
	c := client.New(*baseURL, 0)
	collector := stats.NewCollector()

	log.Printf("flood: %d posts at %v intervals against %s", *count, *interval, *baseURL)

	for i := 0; i < *count; i++ {
		result, err := c.Submit(ctx, "flood-page", "another perfectly ordinary comment")
		if err != nil {
			collector.AddError()
			log.Printf("post %d: error: %v", i, err)
		} else {
			collector.AddSubmit(result.Latency, result.Verdict)
			if result.StatusCode == 429 {
				log.Printf("post %d: throttled, retry_after=%ds", i, result.RetryAfter)
			} else {
				log.Printf("post %d: %s", i, result.Verdict)
			}
		}
		time.Sleep(*interval)
	}

	collector.Report()
}
