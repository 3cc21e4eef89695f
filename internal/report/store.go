// Package report provides PostgreSQL-backed storage for reader reports
// against comments. Reports feed two thresholds: enough distinct reports
// shadow the comment, more trigger an automatic ban review of its author.
package report

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Report thresholds. At ShadowThreshold distinct reports the comment is
// hidden pending review; at AutoBanThreshold the author's record is
// escalated to an automatic ban.
const (
	ShadowThreshold  = 5
	AutoBanThreshold = 10
)

// validReasons is the set of allowed reason values, matching the CHECK
// constraint on the comment_reports table.
var validReasons = map[string]bool{
	"harassment": true,
	"hate":       true,
	"spam":       true,
	"explicit":   true,
	"other":      true,
}

// ValidReason reports whether reason is one of the accepted values.
func ValidReason(reason string) bool {
	return validReasons[reason]
}

// ErrDuplicate means this reporter already reported this comment.
var ErrDuplicate = errors.New("report: already reported")

// Report represents a single reader report to be persisted.
type Report struct {
	CommentID           uuid.UUID
	ReporterFingerprint string
	ReportedFingerprint string
	Reason              string
}

// Store manages comment reports in PostgreSQL.
type Store struct {
	db *sql.DB
}

// NewStore creates a new report store backed by the given database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Create inserts a report. The reason is validated against the allowed
// set before insertion, and each reporter counts once per comment; a
// repeat report returns ErrDuplicate.
func (s *Store) Create(ctx context.Context, r *Report) error {
	if !validReasons[r.Reason] {
		return fmt.Errorf("report: invalid reason %q", r.Reason)
	}

	const query = `
		INSERT INTO comment_reports (comment_id, reporter_fingerprint, reported_fingerprint, reason)
		VALUES ($1, $2, $3, $4)`

	_, err := s.db.ExecContext(ctx, query,
		r.CommentID,
		r.ReporterFingerprint,
		r.ReportedFingerprint,
		r.Reason,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicate
		}
		return fmt.Errorf("report: insert: %w", err)
	}
	return nil
}

// CountForComment returns how many distinct reporters reported a comment.
func (s *Store) CountForComment(ctx context.Context, commentID uuid.UUID) (int, error) {
	const query = `SELECT COUNT(*) FROM comment_reports WHERE comment_id = $1`

	var count int
	if err := s.db.QueryRowContext(ctx, query, commentID).Scan(&count); err != nil {
		return 0, fmt.Errorf("report: count for comment: %w", err)
	}
	return count, nil
}

// CountRecent returns the number of reports filed against a fingerprint
// within the given time window, for ban-review decisions.
func (s *Store) CountRecent(ctx context.Context, reportedFingerprint string, window time.Duration) (int, error) {
	const query = `
		SELECT COUNT(*)
		FROM comment_reports
		WHERE reported_fingerprint = $1
		  AND created_at >= NOW() - $2::interval`

	var count int
	err := s.db.QueryRowContext(ctx, query, reportedFingerprint, window.String()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("report: count recent: %w", err)
	}
	return count, nil
}
