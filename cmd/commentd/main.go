package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/nats-io/nats.go"

	"github.com/pondworks/comments/internal/comment"
	"github.com/pondworks/comments/internal/config"
	"github.com/pondworks/comments/internal/cooldown"
	"github.com/pondworks/comments/internal/database"
	"github.com/pondworks/comments/internal/engine"
	"github.com/pondworks/comments/internal/feed"
	"github.com/pondworks/comments/internal/history"
	"github.com/pondworks/comments/internal/httpapi"
	"github.com/pondworks/comments/internal/messaging"
	"github.com/pondworks/comments/internal/ratelimit"
	"github.com/pondworks/comments/internal/report"
	"github.com/pondworks/comments/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// --- PostgreSQL ---
	db, err := database.Open(cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("failed to connect to PostgreSQL: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	// --- Redis ---
	tokenStore, err := session.NewStore(cfg.RedisAddr)
	if err != nil {
		log.Fatalf("failed to connect to Redis: %v", err)
	}
	cooldownStore := cooldown.NewStore(tokenStore.Client())

	// --- NATS ---
	natsConfig := messaging.DefaultNATSConfig()
	natsConfig.URL = cfg.NATSURL
	natsConfig.Name = "comments-api"

	natsClient, err := messaging.NewNATSClient(natsConfig)
	if err != nil {
		log.Fatalf("failed to connect to NATS: %v", err)
	}

	// The admin feed relays the raw event stream, so dashboards see
	// events from every API instance, not just this one.
	hub := feed.NewHub()
	relay := func(msg *nats.Msg) { hub.Broadcast(msg.Data) }
	if err := natsClient.Subscribe(messaging.SubjectFlagged, relay); err != nil {
		log.Fatalf("failed to subscribe to flagged events: %v", err)
	}
	if err := natsClient.Subscribe(messaging.SubjectVerdict, relay); err != nil {
		log.Fatalf("failed to subscribe to verdict events: %v", err)
	}

	server := httpapi.NewServer(httpapi.Options{
		Engine:    engine.New(cfg.IdentitySalt),
		Comments:  comment.NewStore(db),
		History:   history.NewStore(db),
		Reports:   report.NewStore(db),
		Cooldowns: cooldownStore,
		Tokens:    tokenStore,
		Publisher: natsClient,
		Limiter:   ratelimit.NewLimiter(tokenStore.Client()),
		Hub:       hub,
		AdminKey:  cfg.AdminKey,
		MaxChars:  cfg.MaxCommentChars,
	})

	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: server.Router(),
	}

	log.Printf("Comment service starting")
	log.Printf("  listen_addr:  %s", cfg.ListenAddr)
	log.Printf("  postgres_dsn: %s", cfg.PostgresDSN)
	log.Printf("  redis_addr:   %s", cfg.RedisAddr)
	log.Printf("  nats_url:     %s", cfg.NATSURL)
	log.Printf("  admin_api:    %v", cfg.AdminKey != "")

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server: %v", err)
		}
	}()

	// Graceful shutdown.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Printf("received signal %v, shutting down...", sig)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("http shutdown: %v", err)
	}

	hub.Close()
	natsClient.Close()
	tokenStore.Close()
	db.Close()
}
