package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"sync"
	"time"

	"github.com/pondworks/comments/loadtest/client"
	"github.com/pondworks/comments/loadtest/stats"
)

// Mixed-traffic corpus. Roughly one in ten bodies should draw a verdict
// above plain allow.
var cleanBodies = []string{
	"Great write-up, thanks for sharing.",
	"I ran into the same issue last week and this fixed it.",
	"Not sure I agree with the second point, but well argued.",
	"Bookmarking this for later.",
	"The example in section two really made it click for me.",
	"Could you expand on the benchmark setup?",
	"This aged well.",
	"Typo in the third paragraph, otherwise solid.",
	"Interesting take.",
}

var spicyBodies = []string{
	"this is complete bullshit",
	"what an idiot",
	"check out my site at example.com, buy now",
	"\U0001F600\U0001F600\U0001F600\U0001F600\U0001F600\U0001F600\U0001F600",
}

func runSubmit(args []string) {
	fs := flag.NewFlagSet("submit", flag.ExitOnError)
	baseURL := fs.String("url", "http://localhost:8080", "comment service base URL")
	users := fs.Int("users", 50, "number of simulated commenters")
	duration := fs.Duration("duration", 30*time.Second, "test duration")
	rate := fs.Duration("interval", 2*time.Second, "per-user interval between posts")
	feedURL := fs.String("feed", "", "admin feed ws:// URL (optional)")
	adminKey := fs.String("admin-key", "", "admin key for the feed subscription")
	fs.Parse(args)

	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	var watcher *client.FeedWatcher
	if *feedURL != "" {
		var err error
		watcher, err = client.WatchFeed(ctx, *feedURL, *adminKey)
		if err != nil {
			log.Printf("feed watch disabled: %v", err)
		}
	}

	collector := stats.NewCollector()
	log.Printf("submit: %d users posting every %v for %v against %s",
		*users, *rate, *duration, *baseURL)

	var wg sync.WaitGroup
	for i := 0; i < *users; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			c := client.New(*baseURL, id)
			rng := rand.New(rand.NewSource(int64(id)))

			for {
				body := cleanBodies[rng.Intn(len(cleanBodies))]
				if rng.Intn(10) == 0 {
					body = spicyBodies[rng.Intn(len(spicyBodies))]
				}
				pageID := fmt.Sprintf("post-%d", rng.Intn(20))

				result, err := c.Submit(ctx, pageID, body)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					collector.AddError()
				} else {
					collector.AddSubmit(result.Latency, result.Verdict)
				}

				select {
				case <-ctx.Done():
					return
				case <-time.After(*rate):
				}
			}
		}(i)
	}
	wg.Wait()

	collector.Report()
	if watcher != nil {
		counts, total := watcher.Counts()
		fmt.Println("--- Admin Feed Events ---")
		fmt.Printf("  total: %d\n", total)
		for v, n := range counts {
			fmt.Printf("  %-22s %d\n", v, n)
		}
	}
	if collector.SubmissionCount() == 0 {
		os.Exit(1)
	}
}
