// Package client provides a reusable load test client for the comment
// service. Each Client simulates one anonymous commenter with its own
// identity headers, posts comments over HTTP and records the verdicts
// the server hands back. FeedWatcher subscribes to the admin WebSocket
// feed with gobwas/ws (the same library the server uses) so a test run
// can verify that flagged events actually flow.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

// SubmitResult is the server's answer to one comment submission.
type SubmitResult struct {
	StatusCode int
	Verdict    string
	RetryAfter int
	Latency    time.Duration
}

// Client simulates one commenter.
type Client struct {
	baseURL    string
	localToken string
	userAgent  string
	http       *http.Client
}

// New creates a commenter with a distinct identity. The server
// fingerprints it by the local token and user agent derived from id.
func New(baseURL string, id int) *Client {
	return &Client{
		baseURL:    baseURL,
		localToken: fmt.Sprintf("loadtest-local-token-%08d", id),
		userAgent:  fmt.Sprintf("loadtest-agent/%d", id),
		http:       &http.Client{Timeout: 10 * time.Second},
	}
}

// Submit posts one comment and parses the moderation outcome.
func (c *Client) Submit(ctx context.Context, pageID, body string) (SubmitResult, error) {
	payload, err := json.Marshal(map[string]string{"page_id": pageID, "body": body})
	if err != nil {
		return SubmitResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/comments", bytes.NewReader(payload))
	if err != nil {
		return SubmitResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Local-Token", c.localToken)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return SubmitResult{}, err
	}
	defer resp.Body.Close()

	result := SubmitResult{
		StatusCode: resp.StatusCode,
		Latency:    time.Since(start),
	}

	var parsed struct {
		Status     string `json:"status"`
		RetryAfter int    `json:"retry_after"`
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return result, err
	}
	if err := json.Unmarshal(data, &parsed); err == nil {
		result.Verdict = parsed.Status
		result.RetryAfter = parsed.RetryAfter
	}
	if result.Verdict == "" {
		result.Verdict = fmt.Sprintf("http_%d", resp.StatusCode)
	}
	return result, nil
}

// FeedWatcher holds an admin feed subscription and counts the events it
// receives, by verdict.
type FeedWatcher struct {
	conn net.Conn

	mu     sync.Mutex
	counts map[string]int
	total  int
}

// WatchFeed dials the admin feed endpoint and consumes events in the
// background until the context is cancelled.
func WatchFeed(ctx context.Context, wsURL, adminKey string) (*FeedWatcher, error) {
	dialer := ws.Dialer{
		Header: ws.HandshakeHeaderHTTP(http.Header{
			"X-Admin-Key": []string{adminKey},
		}),
	}
	conn, _, _, err := dialer.Dial(ctx, wsURL)
	if err != nil {
		return nil, fmt.Errorf("feed dial: %w", err)
	}

	w := &FeedWatcher{conn: conn, counts: make(map[string]int)}

	go func() {
		<-ctx.Done()
		conn.Close()
	}()
	go func() {
		for {
			data, _, err := wsutil.ReadServerData(conn)
			if err != nil {
				return
			}
			var event struct {
				Verdict string `json:"verdict"`
			}
			w.mu.Lock()
			w.total++
			if json.Unmarshal(data, &event) == nil && event.Verdict != "" {
				w.counts[event.Verdict]++
			}
			w.mu.Unlock()
		}
	}()
	return w, nil
}

// Counts returns a copy of the per-verdict event counts and the total.
func (w *FeedWatcher) Counts() (map[string]int, int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make(map[string]int, len(w.counts))
	for k, v := range w.counts {
		out[k] = v
	}
	return out, w.total
}
