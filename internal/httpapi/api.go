// Package httpapi exposes the comment service over HTTP: the public
// comment endpoints, the admin moderation surface and the operational
// endpoints. Handlers depend on narrow store interfaces so they can be
// tested against stubs.
package httpapi

import (
	"context"
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pondworks/comments/internal/abuse"
	"github.com/pondworks/comments/internal/comment"
	"github.com/pondworks/comments/internal/cooldown"
	"github.com/pondworks/comments/internal/engine"
	"github.com/pondworks/comments/internal/feed"
	"github.com/pondworks/comments/internal/messaging"
	"github.com/pondworks/comments/internal/metrics"
	"github.com/pondworks/comments/internal/ratelimit"
	"github.com/pondworks/comments/internal/report"
	"github.com/pondworks/comments/internal/session"
)

// CommentStore is the comment persistence surface the handlers need.
type CommentStore interface {
	Insert(ctx context.Context, c *comment.Comment) error
	Get(ctx context.Context, id uuid.UUID) (*comment.Comment, error)
	ListVisible(ctx context.Context, pageID, viewerFingerprint string) ([]comment.Comment, error)
	ListFlagged(ctx context.Context, minScore, limit int) ([]comment.Comment, error)
	SoftDelete(ctx context.Context, id uuid.UUID, fingerprint string) (bool, error)
	Hide(ctx context.Context, id uuid.UUID) error
	FlagForRemoval(ctx context.Context, fingerprint string) (int64, error)
}

// HistoryStore reads and updates per-identity abuse records.
type HistoryStore interface {
	Touch(ctx context.Context, fingerprint, ipHash, uaHash string, t time.Time) error
	Snapshot(ctx context.Context, fingerprint string, now time.Time) (abuse.History, error)
	SetBanFlags(ctx context.Context, fingerprint string, shadow, auto bool) error
	AdminBan(ctx context.Context, fingerprint string) error
	AdminUnban(ctx context.Context, fingerprint string) error
}

// ReportStore persists reader reports.
type ReportStore interface {
	Create(ctx context.Context, r *report.Report) error
	CountForComment(ctx context.Context, commentID uuid.UUID) (int, error)
}

// CooldownStore applies atomic cooldown transitions.
type CooldownStore interface {
	Get(ctx context.Context, fingerprint string) (cooldown.State, error)
	Escalate(ctx context.Context, fingerprint string, now time.Time) (cooldown.Level, error)
	Decay(ctx context.Context, fingerprint string, now time.Time) (cooldown.Level, bool, error)
}

// TokenStore issues and validates stable anonymous tokens.
type TokenStore interface {
	Issue(ctx context.Context, fingerprint, ipHash string) (string, error)
	Validate(ctx context.Context, value string) (*session.Token, error)
}

// Publisher emits moderation events. A nil Publisher disables events.
type Publisher interface {
	PublishFlagged(event messaging.FlaggedEvent) error
	PublishVerdict(event messaging.VerdictEvent) error
}

// RateLimiter throttles request volume ahead of the pipeline. A nil
// RateLimiter disables throttling.
type RateLimiter interface {
	Allow(ctx context.Context, identifier string, rule ratelimit.Rule) (bool, error)
}

// Server wires the moderation engine and stores into HTTP handlers.
type Server struct {
	engine    *engine.Engine
	comments  CommentStore
	history   HistoryStore
	reports   ReportStore
	cooldowns CooldownStore
	tokens    TokenStore
	publisher Publisher
	limiter   RateLimiter
	hub       *feed.Hub

	adminKey string
	maxChars int
}

// Options carries the Server's dependencies.
type Options struct {
	Engine    *engine.Engine
	Comments  CommentStore
	History   HistoryStore
	Reports   ReportStore
	Cooldowns CooldownStore
	Tokens    TokenStore
	Publisher Publisher
	Limiter   RateLimiter
	Hub       *feed.Hub
	AdminKey  string
	MaxChars  int
}

func NewServer(opts Options) *Server {
	if opts.MaxChars <= 0 {
		opts.MaxChars = 2000
	}
	return &Server{
		engine:    opts.Engine,
		comments:  opts.Comments,
		history:   opts.History,
		reports:   opts.Reports,
		cooldowns: opts.Cooldowns,
		tokens:    opts.Tokens,
		publisher: opts.Publisher,
		limiter:   opts.Limiter,
		hub:       opts.Hub,
		adminKey:  opts.AdminKey,
		maxChars:  opts.MaxChars,
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := r.Group("/api")
	{
		api.POST("/session", s.createSession)
		api.POST("/comments", s.createComment)
		api.GET("/comments", s.listComments)
		api.DELETE("/comments/:id", s.deleteComment)
		api.POST("/comments/:id/report", s.reportComment)
	}

	// An empty admin key disables the whole admin surface rather than
	// leaving it open.
	if s.adminKey != "" {
		admin := r.Group("/api/admin", s.requireAdmin)
		{
			admin.GET("/flagged", s.listFlagged)
			admin.POST("/ban/:fingerprint", s.adminBan)
			admin.POST("/unban/:fingerprint", s.adminUnban)
			admin.GET("/feed", s.adminFeed)
		}
	}
	return r
}

// requireAdmin rejects requests without the correct X-Admin-Key header.
func (s *Server) requireAdmin(c *gin.Context) {
	key := c.GetHeader("X-Admin-Key")
	if subtle.ConstantTimeCompare([]byte(key), []byte(s.adminKey)) != 1 {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Next()
}
