// Package comment provides PostgreSQL-backed storage for comments and
// their moderation outcome. The raw body is the record of truth; the
// abuse score, matched terms and visibility flags computed at submission
// time are persisted alongside it so later decisions never recompute.
package comment

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Comment is one stored comment row.
type Comment struct {
	ID           uuid.UUID
	PageID       string
	Fingerprint  string
	Body         string
	AbuseScore   int
	MatchedTerms []string

	// MaskOnDisplay marks tier-2/3 language to be asterisked at render
	// time; the stored body stays as posted.
	MaskOnDisplay bool

	// Hidden marks shadow-hidden comments: visible to their author,
	// invisible to everyone else.
	Hidden bool

	FlaggedForRemoval bool
	Deleted           bool
	CreatedAt         time.Time
}

// Store manages comment rows in PostgreSQL.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Insert persists a comment. ID and CreatedAt are assigned here when
// unset.
func (s *Store) Insert(ctx context.Context, c *Comment) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}

	var terms []byte
	if len(c.MatchedTerms) > 0 {
		var err error
		terms, err = json.Marshal(c.MatchedTerms)
		if err != nil {
			return fmt.Errorf("comment: marshal terms: %w", err)
		}
	}

	const query = `
		INSERT INTO comments (id, page_id, fingerprint, body, abuse_score, matched_terms,
		                      mask_on_display, hidden, flagged_for_removal, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := s.db.ExecContext(ctx, query,
		c.ID, c.PageID, c.Fingerprint, c.Body, c.AbuseScore, terms,
		c.MaskOnDisplay, c.Hidden, c.FlaggedForRemoval, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("comment: insert: %w", err)
	}
	return nil
}

// ListVisible returns a page's comments as seen by viewerFingerprint:
// non-deleted, and either not shadow-hidden or authored by the viewer
// (shadow-banned authors must keep seeing their own comments).
func (s *Store) ListVisible(ctx context.Context, pageID, viewerFingerprint string) ([]Comment, error) {
	const query = `
		SELECT id, page_id, fingerprint, body, abuse_score, matched_terms,
		       mask_on_display, hidden, flagged_for_removal, created_at
		FROM comments
		WHERE page_id = $1
		  AND NOT deleted
		  AND (NOT hidden OR fingerprint = $2)
		ORDER BY created_at ASC`

	rows, err := s.db.QueryContext(ctx, query, pageID, viewerFingerprint)
	if err != nil {
		return nil, fmt.Errorf("comment: list: %w", err)
	}
	defer rows.Close()

	var out []Comment
	for rows.Next() {
		var c Comment
		var terms []byte
		if err := rows.Scan(&c.ID, &c.PageID, &c.Fingerprint, &c.Body, &c.AbuseScore,
			&terms, &c.MaskOnDisplay, &c.Hidden, &c.FlaggedForRemoval, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("comment: scan: %w", err)
		}
		if len(terms) > 0 {
			if err := json.Unmarshal(terms, &c.MatchedTerms); err != nil {
				return nil, fmt.Errorf("comment: unmarshal terms: %w", err)
			}
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Get fetches one comment by ID. Returns nil when not found.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*Comment, error) {
	const query = `
		SELECT id, page_id, fingerprint, body, abuse_score, matched_terms,
		       mask_on_display, hidden, flagged_for_removal, created_at
		FROM comments
		WHERE id = $1 AND NOT deleted`

	var c Comment
	var terms []byte
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&c.ID, &c.PageID, &c.Fingerprint, &c.Body, &c.AbuseScore,
		&terms, &c.MaskOnDisplay, &c.Hidden, &c.FlaggedForRemoval, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("comment: get: %w", err)
	}
	if len(terms) > 0 {
		if err := json.Unmarshal(terms, &c.MatchedTerms); err != nil {
			return nil, fmt.Errorf("comment: unmarshal terms: %w", err)
		}
	}
	return &c, nil
}

// SoftDelete marks a comment deleted if it belongs to the fingerprint.
// Returns whether a row was affected.
func (s *Store) SoftDelete(ctx context.Context, id uuid.UUID, fingerprint string) (bool, error) {
	const query = `UPDATE comments SET deleted = TRUE WHERE id = $1 AND fingerprint = $2`

	result, err := s.db.ExecContext(ctx, query, id, fingerprint)
	if err != nil {
		return false, fmt.Errorf("comment: soft delete: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("comment: soft delete rows: %w", err)
	}
	return n > 0, nil
}

// Hide shadow-hides a single comment, used when reader reports cross the
// shadow threshold.
func (s *Store) Hide(ctx context.Context, id uuid.UUID) error {
	const query = `UPDATE comments SET hidden = TRUE WHERE id = $1`

	if _, err := s.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("comment: hide: %w", err)
	}
	return nil
}

// FlagForRemoval marks all of an identity's comments for administrative
// removal. Called when an auto-ban lands; the actual removal is done by
// admin tooling outside this service.
func (s *Store) FlagForRemoval(ctx context.Context, fingerprint string) (int64, error) {
	const query = `
		UPDATE comments SET flagged_for_removal = TRUE, hidden = TRUE
		WHERE fingerprint = $1 AND NOT deleted`

	result, err := s.db.ExecContext(ctx, query, fingerprint)
	if err != nil {
		return 0, fmt.Errorf("comment: flag for removal: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("comment: flag for removal rows: %w", err)
	}
	return n, nil
}

// ListFlagged returns recent comments awaiting moderator review: hidden,
// flagged for removal, or scoring at or above minScore.
func (s *Store) ListFlagged(ctx context.Context, minScore, limit int) ([]Comment, error) {
	const query = `
		SELECT id, page_id, fingerprint, body, abuse_score, matched_terms,
		       mask_on_display, hidden, flagged_for_removal, created_at
		FROM comments
		WHERE NOT deleted AND (hidden OR flagged_for_removal OR abuse_score >= $1)
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := s.db.QueryContext(ctx, query, minScore, limit)
	if err != nil {
		return nil, fmt.Errorf("comment: list flagged: %w", err)
	}
	defer rows.Close()

	var out []Comment
	for rows.Next() {
		var c Comment
		var terms []byte
		if err := rows.Scan(&c.ID, &c.PageID, &c.Fingerprint, &c.Body, &c.AbuseScore,
			&terms, &c.MaskOnDisplay, &c.Hidden, &c.FlaggedForRemoval, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("comment: scan flagged: %w", err)
		}
		if len(terms) > 0 {
			if err := json.Unmarshal(terms, &c.MatchedTerms); err != nil {
				return nil, fmt.Errorf("comment: unmarshal terms: %w", err)
			}
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
