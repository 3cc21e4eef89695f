package httpapi

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pondworks/comments/internal/abuse"
)

// listFlagged returns the moderation review queue: hidden, flagged or
// high-scoring comments, newest first.
func (s *Server) listFlagged(c *gin.Context) {
	limit := 50
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	list, err := s.comments.ListFlagged(c.Request.Context(), abuse.ThresholdHigh, limit)
	if err != nil {
		log.Printf("[admin] list flagged: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	type flaggedView struct {
		ID                string   `json:"id"`
		PageID            string   `json:"page_id"`
		Fingerprint       string   `json:"fingerprint"`
		Body              string   `json:"body"`
		AbuseScore        int      `json:"abuse_score"`
		MatchedTerms      []string `json:"matched_terms,omitempty"`
		Hidden            bool     `json:"hidden"`
		FlaggedForRemoval bool     `json:"flagged_for_removal"`
		CreatedAt         int64    `json:"created_at"`
	}
	out := make([]flaggedView, 0, len(list))
	for _, cm := range list {
		out = append(out, flaggedView{
			ID:                cm.ID.String(),
			PageID:            cm.PageID,
			Fingerprint:       cm.Fingerprint,
			Body:              cm.Body,
			AbuseScore:        cm.AbuseScore,
			MatchedTerms:      cm.MatchedTerms,
			Hidden:            cm.Hidden,
			FlaggedForRemoval: cm.FlaggedForRemoval,
			CreatedAt:         cm.CreatedAt.Unix(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"flagged": out})
}

// adminBan places an explicit ban on a fingerprint and hides its
// comments.
func (s *Server) adminBan(c *gin.Context) {
	fingerprint := c.Param("fingerprint")
	ctx := c.Request.Context()

	if err := s.history.AdminBan(ctx, fingerprint); err != nil {
		log.Printf("[admin] ban %s: %v", fingerprint, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	n, err := s.comments.FlagForRemoval(ctx, fingerprint)
	if err != nil {
		log.Printf("[admin] flag comments for %s: %v", fingerprint, err)
	}
	log.Printf("[admin] banned %s (%d comments flagged)", fingerprint, n)
	c.JSON(http.StatusOK, gin.H{"banned": true, "comments_flagged": n})
}

// adminUnban pardons a fingerprint: clears the admin ban and overrides
// any automatic bans until the identity reoffends.
func (s *Server) adminUnban(c *gin.Context) {
	fingerprint := c.Param("fingerprint")

	if err := s.history.AdminUnban(c.Request.Context(), fingerprint); err != nil {
		log.Printf("[admin] unban %s: %v", fingerprint, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	log.Printf("[admin] unbanned %s", fingerprint)
	c.JSON(http.StatusOK, gin.H{"unbanned": true})
}

// adminFeed upgrades the request to the live moderation event stream.
func (s *Server) adminFeed(c *gin.Context) {
	if s.hub == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "feed disabled"})
		return
	}
	if err := s.hub.Upgrade(c.Writer, c.Request); err != nil {
		log.Printf("[admin] feed upgrade: %v", err)
		// Upgrade wrote its own error response.
	}
}
