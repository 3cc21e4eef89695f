package httpapi

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pondworks/comments/internal/abuse"
	"github.com/pondworks/comments/internal/comment"
	"github.com/pondworks/comments/internal/cooldown"
	"github.com/pondworks/comments/internal/engine"
	"github.com/pondworks/comments/internal/identity"
	"github.com/pondworks/comments/internal/messaging"
	"github.com/pondworks/comments/internal/metrics"
	"github.com/pondworks/comments/internal/ratelimit"
	"github.com/pondworks/comments/internal/report"
)

// Header and cookie names carrying identity signals.
const (
	headerAnonToken  = "X-Anon-Token"
	headerLocalToken = "X-Local-Token"
	cookieSession    = "comment_session"
)

// signals extracts the identity signals from a request. A stable token
// that fails validation is dropped rather than rejected, so a stale
// client degrades to the weaker tiers.
func (s *Server) signals(c *gin.Context) identity.Signals {
	sig := identity.Signals{
		IP:         c.ClientIP(),
		UserAgent:  c.Request.UserAgent(),
		LocalToken: c.GetHeader(headerLocalToken),
	}
	if v, err := c.Cookie(cookieSession); err == nil {
		sig.SessionToken = v
	}

	if tok := c.GetHeader(headerAnonToken); tok != "" && s.tokens != nil {
		valid, err := s.tokens.Validate(c.Request.Context(), tok)
		if err != nil {
			log.Printf("[api] token validate: %v", err)
		} else if valid != nil {
			sig.StableToken = tok
		}
	}
	return sig
}

// allowed applies a rate limit rule, failing open on limiter errors.
func (s *Server) allowed(c *gin.Context, identifier string, rule ratelimit.Rule) bool {
	if s.limiter == nil {
		return true
	}
	ok, _ := s.limiter.Allow(c.Request.Context(), identifier, rule)
	return ok
}

// createSession issues a stable anonymous token bound to the caller's
// current fingerprint.
func (s *Server) createSession(c *gin.Context) {
	if s.tokens == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "sessions disabled"})
		return
	}
	fp := s.engine.Resolve(s.signals(c))
	if !s.allowed(c, fp.IPHash, ratelimit.RuleSession) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limited"})
		return
	}

	token, err := s.tokens.Issue(c.Request.Context(), fp.Hash, fp.IPHash)
	if err != nil {
		log.Printf("[api] issue token: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"token": token})
}

type createCommentRequest struct {
	PageID string `json:"page_id" binding:"required"`
	Body   string `json:"body" binding:"required"`
}

// createComment runs the full moderation pipeline for one submission.
// Shadow-banned authors always receive a success response; their comments
// are stored hidden so only they see them.
func (s *Server) createComment(c *gin.Context) {
	var req createCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "page_id and body are required"})
		return
	}
	if strings.TrimSpace(req.Body) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body is empty"})
		return
	}
	if len([]rune(req.Body)) > s.maxChars {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "comment too long"})
		return
	}

	ctx := c.Request.Context()
	now := time.Now()
	sig := s.signals(c)
	fp := s.engine.Resolve(sig)

	if !s.allowed(c, fp.Hash, ratelimit.RuleSubmit) || !s.allowed(c, fp.IPHash, ratelimit.RuleSubmitIP) {
		metrics.CommentsTotal.WithLabelValues("rejected").Inc()
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limited"})
		return
	}

	hist, err := s.history.Snapshot(ctx, fp.Hash, now)
	if err != nil {
		log.Printf("[api] history snapshot: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if hist.Cooldown, err = s.cooldowns.Get(ctx, fp.Hash); err != nil {
		log.Printf("[api] cooldown get: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	// Banned identities get the shadow treatment regardless of content:
	// the comment is stored hidden and the response looks like success.
	if hist.Banned() {
		s.storeShadowed(c, req, fp, now)
		return
	}

	start := time.Now()
	result := s.engine.Evaluate(engine.Request{
		Body:    req.Body,
		Signals: sig,
		History: hist,
		Now:     now,
	})
	metrics.EvalLatency.Observe(time.Since(start).Seconds())
	metrics.AbuseScore.Observe(float64(result.Score))

	// A rate violation on an otherwise acceptable comment rejects it and
	// escalates; the client gets told how long to wait.
	if result.RateViolation && result.Verdict < abuse.VerdictShadowBan {
		level, err := s.cooldowns.Escalate(ctx, fp.Hash, now)
		if err != nil {
			log.Printf("[api] cooldown escalate: %v", err)
			level = result.Cooldown.Level
		}
		metrics.CooldownTransitions.WithLabelValues("escalate").Inc()
		metrics.CommentsTotal.WithLabelValues("rejected").Inc()
		retry := cooldown.State{Level: level}.Remaining(time.Unix(hist.LastCommentAt, 0), now)
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":          "posting too fast",
			"cooldown_level": int(level),
			"retry_after":    int(retry.Seconds()),
		})
		return
	}

	s.applyTransition(c, fp.Hash, result.CooldownTransition, now)

	hidden := result.Verdict >= abuse.VerdictShadowBan
	cm := &comment.Comment{
		PageID:        req.PageID,
		Fingerprint:   fp.Hash,
		Body:          req.Body,
		AbuseScore:    int(result.Score),
		MatchedTerms:  result.Match.Terms(),
		MaskOnDisplay: result.Verdict == abuse.VerdictAllowMasked || len(result.Match.Tier3) > 0,
		Hidden:        hidden,
		CreatedAt:     now,
	}
	if err := s.comments.Insert(ctx, cm); err != nil {
		log.Printf("[api] insert comment: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if err := s.history.Touch(ctx, fp.Hash, fp.IPHash, fp.UAHash, now); err != nil {
		log.Printf("[api] history touch: %v", err)
	}

	switch result.Verdict {
	case abuse.VerdictShadowBan:
		if err := s.history.SetBanFlags(ctx, fp.Hash, true, false); err != nil {
			log.Printf("[api] set ban flags: %v", err)
		}
	case abuse.VerdictShadowBanAndAutoBan:
		if err := s.history.SetBanFlags(ctx, fp.Hash, true, true); err != nil {
			log.Printf("[api] set ban flags: %v", err)
		}
		if _, err := s.comments.FlagForRemoval(ctx, fp.Hash); err != nil {
			log.Printf("[api] flag for removal: %v", err)
		}
	}

	metrics.CommentsTotal.WithLabelValues(result.Verdict.String()).Inc()
	s.publishVerdict(cm, result.Verdict.String())
	if hidden {
		s.publishFlagged(cm, result.Verdict.String(), "")
	}

	resp := gin.H{
		"id":     cm.ID,
		"status": result.Verdict.String(),
	}
	if cm.MaskOnDisplay {
		resp["body"] = s.engine.Mask(cm.Body)
	}
	if result.Verdict == abuse.VerdictApplyCooldown {
		resp["cooldown_level"] = int(result.Cooldown.Level)
		resp["retry_after"] = int(result.Cooldown.Level.Duration().Seconds())
	}
	c.JSON(http.StatusCreated, resp)
}

// storeShadowed persists a banned author's comment hidden and answers as
// if it were accepted.
func (s *Server) storeShadowed(c *gin.Context, req createCommentRequest, fp identity.Fingerprint, now time.Time) {
	ctx := c.Request.Context()
	cm := &comment.Comment{
		PageID:      req.PageID,
		Fingerprint: fp.Hash,
		Body:        req.Body,
		Hidden:      true,
		CreatedAt:   now,
	}
	if err := s.comments.Insert(ctx, cm); err != nil {
		log.Printf("[api] insert shadowed comment: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if err := s.history.Touch(ctx, fp.Hash, fp.IPHash, fp.UAHash, now); err != nil {
		log.Printf("[api] history touch: %v", err)
	}
	metrics.CommentsTotal.WithLabelValues("rejected").Inc()
	c.JSON(http.StatusCreated, gin.H{"id": cm.ID, "status": "allow"})
}

// applyTransition mirrors the engine's cooldown transition into Redis.
func (s *Server) applyTransition(c *gin.Context, fingerprint string, t cooldown.Transition, now time.Time) {
	ctx := c.Request.Context()
	switch t {
	case cooldown.TransitionEscalate:
		if _, err := s.cooldowns.Escalate(ctx, fingerprint, now); err != nil {
			log.Printf("[api] cooldown escalate: %v", err)
			return
		}
		metrics.CooldownTransitions.WithLabelValues("escalate").Inc()
	case cooldown.TransitionDecay:
		_, applied, err := s.cooldowns.Decay(ctx, fingerprint, now)
		if err != nil {
			log.Printf("[api] cooldown decay: %v", err)
			return
		}
		if applied {
			metrics.CooldownTransitions.WithLabelValues("decay").Inc()
		}
	}
}

// listComments returns a page's visible comments for the caller. Masked
// comments are served with tier-2/3 terms asterisked; shadow-hidden rows
// appear only to their own author.
func (s *Server) listComments(c *gin.Context) {
	pageID := c.Query("page_id")
	if pageID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "page_id is required"})
		return
	}
	fp := s.engine.Resolve(s.signals(c))

	list, err := s.comments.ListVisible(c.Request.Context(), pageID, fp.Hash)
	if err != nil {
		log.Printf("[api] list comments: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	type commentView struct {
		ID        uuid.UUID `json:"id"`
		Body      string    `json:"body"`
		Own       bool      `json:"own"`
		CreatedAt int64     `json:"created_at"`
	}
	out := make([]commentView, 0, len(list))
	for _, cm := range list {
		body := cm.Body
		if cm.MaskOnDisplay {
			body = s.engine.Mask(body)
		}
		out = append(out, commentView{
			ID:        cm.ID,
			Body:      body,
			Own:       cm.Fingerprint == fp.Hash,
			CreatedAt: cm.CreatedAt.Unix(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"comments": out})
}

// deleteComment soft-deletes the caller's own comment.
func (s *Server) deleteComment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid comment id"})
		return
	}
	fp := s.engine.Resolve(s.signals(c))

	ok, err := s.comments.SoftDelete(c.Request.Context(), id, fp.Hash)
	if err != nil {
		log.Printf("[api] delete comment: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "comment not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

type reportRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// reportComment files a reader report. Crossing the shadow threshold
// hides the comment; crossing the auto-ban threshold escalates its
// author.
func (s *Server) reportComment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid comment id"})
		return
	}
	var req reportRequest
	if err := c.ShouldBindJSON(&req); err != nil || !report.ValidReason(req.Reason) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "valid reason is required"})
		return
	}

	ctx := c.Request.Context()
	fp := s.engine.Resolve(s.signals(c))
	if !s.allowed(c, fp.Hash, ratelimit.RuleReport) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limited"})
		return
	}

	target, err := s.comments.Get(ctx, id)
	if err != nil {
		log.Printf("[api] report lookup: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if target == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "comment not found"})
		return
	}

	err = s.reports.Create(ctx, &report.Report{
		CommentID:           id,
		ReporterFingerprint: fp.Hash,
		ReportedFingerprint: target.Fingerprint,
		Reason:              req.Reason,
	})
	if err == report.ErrDuplicate {
		c.JSON(http.StatusConflict, gin.H{"error": "already reported"})
		return
	}
	if err != nil {
		log.Printf("[api] create report: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	metrics.ReportsTotal.WithLabelValues(req.Reason).Inc()

	count, err := s.reports.CountForComment(ctx, id)
	if err != nil {
		log.Printf("[api] count reports: %v", err)
		c.JSON(http.StatusAccepted, gin.H{"reported": true})
		return
	}
	if count >= report.ShadowThreshold && !target.Hidden {
		if err := s.comments.Hide(ctx, id); err != nil {
			log.Printf("[api] hide reported comment: %v", err)
		} else {
			s.publishFlagged(target, "report_shadow", req.Reason)
		}
	}
	if count >= report.AutoBanThreshold {
		if err := s.history.SetBanFlags(ctx, target.Fingerprint, true, true); err != nil {
			log.Printf("[api] report auto ban: %v", err)
		} else {
			if _, err := s.comments.FlagForRemoval(ctx, target.Fingerprint); err != nil {
				log.Printf("[api] flag for removal: %v", err)
			}
			s.publishFlagged(target, "report_auto_ban", req.Reason)
		}
	}
	c.JSON(http.StatusAccepted, gin.H{"reported": true, "count": count})
}

func (s *Server) publishVerdict(cm *comment.Comment, verdict string) {
	if s.publisher == nil {
		return
	}
	err := s.publisher.PublishVerdict(messaging.VerdictEvent{
		CommentID:   cm.ID.String(),
		Fingerprint: cm.Fingerprint,
		Verdict:     verdict,
		AbuseScore:  cm.AbuseScore,
		Ts:          cm.CreatedAt.Unix(),
	})
	if err != nil {
		log.Printf("[api] publish verdict: %v", err)
	}
}

func (s *Server) publishFlagged(cm *comment.Comment, verdict, reason string) {
	if s.publisher == nil {
		return
	}
	err := s.publisher.PublishFlagged(messaging.FlaggedEvent{
		CommentID:    cm.ID.String(),
		Fingerprint:  cm.Fingerprint,
		Verdict:      verdict,
		AbuseScore:   cm.AbuseScore,
		MatchedTerms: cm.MatchedTerms,
		Reason:       reason,
		Ts:           time.Now().Unix(),
	})
	if err != nil {
		log.Printf("[api] publish flagged: %v", err)
	}
}
