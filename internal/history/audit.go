package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// AuditEntry is one archived moderation event.
type AuditEntry struct {
	CommentID    string
	Fingerprint  string
	Verdict      string
	AbuseScore   int
	MatchedTerms []string
	CreatedAt    time.Time
}

// AuditStore archives flagged-comment events for offline review. The
// archive is append-only.
type AuditStore struct {
	db *sql.DB
}

func NewAuditStore(db *sql.DB) *AuditStore {
	return &AuditStore{db: db}
}

// Record appends one entry to the audit log.
func (s *AuditStore) Record(ctx context.Context, e *AuditEntry) error {
	var terms []byte
	if len(e.MatchedTerms) > 0 {
		var err error
		terms, err = json.Marshal(e.MatchedTerms)
		if err != nil {
			return fmt.Errorf("history: marshal audit terms: %w", err)
		}
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	const query = `
		INSERT INTO flagged_audit (comment_id, fingerprint, verdict, abuse_score, matched_terms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := s.db.ExecContext(ctx, query,
		e.CommentID, e.Fingerprint, e.Verdict, e.AbuseScore, terms, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("history: record audit: %w", err)
	}
	return nil
}

// RecentForFingerprint returns the latest audit entries for one identity.
func (s *AuditStore) RecentForFingerprint(ctx context.Context, fingerprint string, limit int) ([]AuditEntry, error) {
	const query = `
		SELECT comment_id, fingerprint, verdict, abuse_score, matched_terms, created_at
		FROM flagged_audit
		WHERE fingerprint = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := s.db.QueryContext(ctx, query, fingerprint, limit)
	if err != nil {
		return nil, fmt.Errorf("history: audit query: %w", err)
	}
	defer rows.Close()

	var out []AuditEntry
	for rows.Next() {
		var e AuditEntry
		var terms []byte
		if err := rows.Scan(&e.CommentID, &e.Fingerprint, &e.Verdict, &e.AbuseScore, &terms, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("history: audit scan: %w", err)
		}
		if len(terms) > 0 {
			if err := json.Unmarshal(terms, &e.MatchedTerms); err != nil {
				return nil, fmt.Errorf("history: audit terms: %w", err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
