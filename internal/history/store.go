// Package history tracks per-identity abuse records in PostgreSQL and
// assembles the history snapshots the decision engine consumes. The
// identities table holds durable ban flags; the window aggregates are
// computed live from the comments and reports tables.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pondworks/comments/internal/abuse"
)

// window is the trailing interval used for repeated-abuse aggregates.
const window = time.Hour

// Store manages identity records and history snapshots.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Touch records that the fingerprint posted at t, creating the identity
// row on first contact. The IP and UA hashes are refreshed on every
// post; identities that rotate networks keep their latest hashes.
func (s *Store) Touch(ctx context.Context, fingerprint, ipHash, uaHash string, t time.Time) error {
	const query = `
		INSERT INTO identities (fingerprint, ip_hash, ua_hash, first_seen_at, last_comment_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (fingerprint) DO UPDATE
		SET ip_hash = EXCLUDED.ip_hash,
		    ua_hash = EXCLUDED.ua_hash,
		    last_comment_at = EXCLUDED.last_comment_at`

	if _, err := s.db.ExecContext(ctx, query, fingerprint, ipHash, uaHash, t); err != nil {
		return fmt.Errorf("history: touch: %w", err)
	}
	return nil
}

// Snapshot builds the abuse history for a fingerprint as of now. The
// cooldown state lives in Redis and is filled in by the caller; here the
// Cooldown field stays zero.
func (s *Store) Snapshot(ctx context.Context, fingerprint string, now time.Time) (abuse.History, error) {
	var h abuse.History
	since := now.Add(-window)

	const aggQuery = `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE created_at >= $2),
		       COUNT(*) FILTER (WHERE created_at >= $2 AND abuse_score >= $3),
		       COALESCE(SUM(abuse_score) FILTER (WHERE created_at >= $2), 0)
		FROM comments
		WHERE fingerprint = $1 AND NOT deleted`

	err := s.db.QueryRowContext(ctx, aggQuery, fingerprint, since, abuse.ThresholdMedium).
		Scan(&h.TotalComments, &h.RecentComments, &h.RecentViolations, &h.RecentScore)
	if err != nil {
		return h, fmt.Errorf("history: comment aggregates: %w", err)
	}

	const reportQuery = `SELECT COUNT(*) FROM comment_reports WHERE reported_fingerprint = $1`
	if err := s.db.QueryRowContext(ctx, reportQuery, fingerprint).Scan(&h.ReportCount); err != nil {
		return h, fmt.Errorf("history: report count: %w", err)
	}

	const identQuery = `
		SELECT shadow_banned, auto_banned, admin_banned, admin_unbanned, last_comment_at
		FROM identities
		WHERE fingerprint = $1`

	var lastComment sql.NullTime
	err = s.db.QueryRowContext(ctx, identQuery, fingerprint).
		Scan(&h.ShadowBanned, &h.AutoBanned, &h.AdminBanned, &h.AdminUnbanned, &lastComment)
	if err != nil && err != sql.ErrNoRows {
		return h, fmt.Errorf("history: identity flags: %w", err)
	}
	if lastComment.Valid {
		h.LastCommentAt = lastComment.Time.Unix()
	}
	return h, nil
}

// SetBanFlags applies automatic ban outcomes. Either flag only ever goes
// from false to true here; an automatic verdict never clears a ban. A new
// automatic ban also resets any earlier admin unban, so a pardoned
// identity that reoffends is banned again.
func (s *Store) SetBanFlags(ctx context.Context, fingerprint string, shadow, auto bool) error {
	if !shadow && !auto {
		return nil
	}
	const query = `
		INSERT INTO identities (fingerprint, shadow_banned, auto_banned, admin_unbanned)
		VALUES ($1, $2, $3, FALSE)
		ON CONFLICT (fingerprint) DO UPDATE
		SET shadow_banned = identities.shadow_banned OR EXCLUDED.shadow_banned,
		    auto_banned = identities.auto_banned OR EXCLUDED.auto_banned,
		    admin_unbanned = FALSE`

	if _, err := s.db.ExecContext(ctx, query, fingerprint, shadow, auto); err != nil {
		return fmt.Errorf("history: set ban flags: %w", err)
	}
	return nil
}

// AdminBan places an explicit administrative ban. Admin bans are not
// affected by admin unbans of the automatic kind; Unban clears everything.
func (s *Store) AdminBan(ctx context.Context, fingerprint string) error {
	const query = `
		INSERT INTO identities (fingerprint, admin_banned)
		VALUES ($1, TRUE)
		ON CONFLICT (fingerprint) DO UPDATE SET admin_banned = TRUE`

	if _, err := s.db.ExecContext(ctx, query, fingerprint); err != nil {
		return fmt.Errorf("history: admin ban: %w", err)
	}
	return nil
}

// AdminUnban pardons an identity: clears the explicit admin ban and sets
// the unban override that suppresses existing automatic bans.
func (s *Store) AdminUnban(ctx context.Context, fingerprint string) error {
	const query = `
		UPDATE identities
		SET admin_banned = FALSE, admin_unbanned = TRUE
		WHERE fingerprint = $1`

	if _, err := s.db.ExecContext(ctx, query, fingerprint); err != nil {
		return fmt.Errorf("history: admin unban: %w", err)
	}
	return nil
}

// BannedIPHashes returns the IP hashes of auto- or admin-banned
// identities, for coarse ban-evasion checks against new fingerprints.
func (s *Store) BannedIPHashes(ctx context.Context) (map[string]bool, error) {
	const query = `
		SELECT DISTINCT ip_hash FROM identities
		WHERE ip_hash <> ''
		  AND (admin_banned OR (auto_banned AND NOT admin_unbanned))`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("history: banned ip hashes: %w", err)
	}
	defer rows.Close()

	out := make(map[string]bool)
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, fmt.Errorf("history: scan ip hash: %w", err)
		}
		out[h] = true
	}
	return out, rows.Err()
}
