// Package messaging provides a NATS client wrapper for moderation
// events. The comment service publishes every flagged comment and every
// verdict; the moderator worker and the admin feed subscribe.
package messaging

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// NATS subjects used across comment services.
const (
	SubjectFlagged = "comments.flagged"
	SubjectVerdict = "comments.verdict"
)

// FlaggedEvent is published when a comment is shadow-hidden, auto-banned
// or reported past the shadow threshold. It carries everything the audit
// worker archives so it never has to read the database.
type FlaggedEvent struct {
	CommentID    string   `json:"comment_id"`
	Fingerprint  string   `json:"fingerprint"`
	Verdict      string   `json:"verdict"`
	AbuseScore   int      `json:"abuse_score"`
	MatchedTerms []string `json:"matched_terms,omitempty"`
	Reason       string   `json:"reason,omitempty"` // set for report-driven flags
	Ts           int64    `json:"ts"`
}

// VerdictEvent is published for every evaluated comment, flagged or not,
// so dashboards see the full decision stream.
type VerdictEvent struct {
	CommentID   string `json:"comment_id"`
	Fingerprint string `json:"fingerprint"`
	Verdict     string `json:"verdict"`
	AbuseScore  int    `json:"abuse_score"`
	Ts          int64  `json:"ts"`
}

// NATSClient wraps the NATS connection with helper methods for pub/sub.
type NATSClient struct {
	conn *nats.Conn
	mu   sync.Mutex
	subs map[string]*nats.Subscription
}

// NATSConfig holds NATS connection settings.
type NATSConfig struct {
	URL           string        // nats://localhost:4222
	Name          string        // client name for identification
	ReconnectWait time.Duration // time between reconnect attempts
	MaxReconnects int           // max reconnect attempts (-1 for infinite)
}

// DefaultNATSConfig returns sensible defaults.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           "nats://localhost:4222",
		Name:          "comments",
		ReconnectWait: 2 * time.Second,
		MaxReconnects: -1, // infinite reconnects
	}
}

// NewNATSClient connects to NATS with the given config and returns a ready client.
// It returns an error if the initial connection fails.
func NewNATSClient(config NATSConfig) (*NATSClient, error) {
	opts := []nats.Option{
		nats.Name(config.Name),
		nats.ReconnectWait(config.ReconnectWait),
		nats.MaxReconnects(config.MaxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Printf("[nats] disconnected: %v", err)
			} else {
				log.Printf("[nats] disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("[nats] reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			log.Printf("[nats] connection closed")
		}),
	}

	nc, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	log.Printf("[nats] connected to %s", nc.ConnectedUrl())

	return &NATSClient{
		conn: nc,
		subs: make(map[string]*nats.Subscription),
	}, nil
}

// Publish sends data to the given NATS subject.
func (c *NATSClient) Publish(subject string, data []byte) error {
	return c.conn.Publish(subject, data)
}

// Subscribe registers a handler for the given subject and stores the
// subscription internally for later cleanup.
func (c *NATSClient) Subscribe(subject string, handler func(msg *nats.Msg)) error {
	sub, err := c.conn.Subscribe(subject, handler)
	if err != nil {
		return fmt.Errorf("nats subscribe %s: %w", subject, err)
	}

	c.mu.Lock()
	c.subs[subject] = sub
	c.mu.Unlock()

	return nil
}

// PublishFlagged publishes a flagged-comment event.
func (c *NATSClient) PublishFlagged(event FlaggedEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("nats: marshal flagged event: %w", err)
	}
	return c.Publish(SubjectFlagged, data)
}

// SubscribeFlagged subscribes to flagged-comment events. Malformed
// payloads are logged and dropped rather than killing the subscription.
func (c *NATSClient) SubscribeFlagged(handler func(event FlaggedEvent)) error {
	return c.Subscribe(SubjectFlagged, func(msg *nats.Msg) {
		var event FlaggedEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			log.Printf("[nats] bad flagged event: %v", err)
			return
		}
		handler(event)
	})
}

// PublishVerdict publishes a verdict event.
func (c *NATSClient) PublishVerdict(event VerdictEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("nats: marshal verdict event: %w", err)
	}
	return c.Publish(SubjectVerdict, data)
}

// SubscribeVerdict subscribes to verdict events.
func (c *NATSClient) SubscribeVerdict(handler func(event VerdictEvent)) error {
	return c.Subscribe(SubjectVerdict, func(msg *nats.Msg) {
		var event VerdictEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			log.Printf("[nats] bad verdict event: %v", err)
			return
		}
		handler(event)
	})
}

// Close drains all active subscriptions and closes the NATS connection.
func (c *NATSClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for subject, sub := range c.subs {
		if err := sub.Drain(); err != nil {
			log.Printf("[nats] drain %s: %v", subject, err)
		}
	}
	c.subs = make(map[string]*nats.Subscription)

	if err := c.conn.Drain(); err != nil {
		log.Printf("[nats] connection drain: %v", err)
	}

	log.Printf("[nats] client closed")
}
