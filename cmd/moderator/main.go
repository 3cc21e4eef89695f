package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pondworks/comments/internal/config"
	"github.com/pondworks/comments/internal/database"
	"github.com/pondworks/comments/internal/history"
	"github.com/pondworks/comments/internal/messaging"
)

// The moderator worker archives every flagged-comment event into the
// audit table so review tooling has a durable record even when events
// race ahead of the dashboard.
func main() {
	log.Println("Starting comment moderation worker...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := database.Open(cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("failed to connect to PostgreSQL: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}
	audit := history.NewAuditStore(db)

	natsConfig := messaging.DefaultNATSConfig()
	natsConfig.URL = cfg.NATSURL
	natsConfig.Name = "comments-moderator"

	natsClient, err := messaging.NewNATSClient(natsConfig)
	if err != nil {
		log.Fatalf("failed to connect to NATS: %v", err)
	}

	err = natsClient.SubscribeFlagged(func(event messaging.FlaggedEvent) {
		log.Printf("[moderator] FLAGGED comment=%s fingerprint=%s verdict=%s score=%d",
			event.CommentID, event.Fingerprint, event.Verdict, event.AbuseScore)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		entry := &history.AuditEntry{
			CommentID:    event.CommentID,
			Fingerprint:  event.Fingerprint,
			Verdict:      event.Verdict,
			AbuseScore:   event.AbuseScore,
			MatchedTerms: event.MatchedTerms,
			CreatedAt:    time.Unix(event.Ts, 0),
		}
		if err := audit.Record(ctx, entry); err != nil {
			log.Printf("[moderator] failed to archive event: %v", err)
		}
	})
	if err != nil {
		log.Fatalf("failed to subscribe to flagged events: %v", err)
	}

	log.Printf("Comment moderation worker running")
	log.Printf("  postgres_dsn: %s", cfg.PostgresDSN)
	log.Printf("  nats_url:     %s", cfg.NATSURL)

	// Graceful shutdown.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Printf("received signal %v, shutting down...", sig)

	natsClient.Close()
	db.Close()
}
