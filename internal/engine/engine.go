// Package engine ties the moderation pipeline together: identity
// resolution, normalization, tier classification, abuse scoring, the
// cooldown transition and the ban decision, all in one pure synchronous
// evaluation. The engine performs no I/O; the caller supplies the abuse
// history snapshot and persists whatever the result implies.
package engine

import (
	"time"

	"github.com/pondworks/comments/internal/abuse"
	"github.com/pondworks/comments/internal/cooldown"
	"github.com/pondworks/comments/internal/identity"
	"github.com/pondworks/comments/internal/normalize"
	"github.com/pondworks/comments/internal/profanity"
)

// Request is one comment evaluation. Body is raw UTF-8 text, already
// length-validated by the caller. History must be accurate as of call
// time; the engine does not re-read it.
type Request struct {
	Body    string
	Signals identity.Signals
	History abuse.History
	Now     time.Time
}

// Result is everything a caller needs to persist the outcome: the verdict,
// the score and match detail for archival, and the cooldown state the
// evaluation produced.
type Result struct {
	Fingerprint identity.Fingerprint
	Normalized  string
	Match       profanity.TierMatch
	Score       abuse.Score
	Verdict     abuse.Verdict

	// Cooldown is the post-evaluation state; CooldownTransition says
	// whether it escalated, decayed or stayed put. The caller applies the
	// same transition through the cooldown store's atomic operations.
	Cooldown           cooldown.State
	CooldownTransition cooldown.Transition

	// RateViolation is set when this comment arrived faster than the
	// identity's current cooldown level permits.
	RateViolation bool
}

// Engine evaluates comments. Safe for concurrent use; all state is
// per-call.
type Engine struct {
	resolver   *identity.Resolver
	classifier *profanity.Classifier
}

func New(salt string) *Engine {
	return &Engine{
		resolver:   identity.NewResolver(salt),
		classifier: profanity.NewClassifier(),
	}
}

// Mask returns the display form of a comment body with tier-2/3 terms
// masked.
func (e *Engine) Mask(raw string) string {
	return e.classifier.Mask(raw)
}

// Resolve exposes bare identity resolution for read paths that need the
// viewer's fingerprint without a full evaluation.
func (e *Engine) Resolve(sig identity.Signals) identity.Fingerprint {
	return e.resolver.Resolve(sig)
}

// Evaluate runs the full pipeline for one comment. It is deterministic
// given the request (including Now) and never fails: malformed or hostile
// input degrades to a verdict, not an error.
func (e *Engine) Evaluate(req Request) Result {
	now := req.Now
	if now.IsZero() {
		now = time.Now()
	}

	res := Result{
		Fingerprint: e.resolver.Resolve(req.Signals),
		Normalized:  normalize.Normalize(req.Body),
	}

	res.Match = e.classifier.Classify(res.Normalized)
	res.Score = abuse.ComputeScore(req.Body, &res.Match)

	res.RateViolation = rateViolation(req.History, now)
	violation := int(res.Score) >= abuse.ThresholdMedium || res.RateViolation
	res.Cooldown, res.CooldownTransition = cooldown.Evaluate(req.History.Cooldown, violation, now)

	// Decide computes the escalated level itself from the pre-transition
	// state, so it gets the history exactly as supplied.
	decision := abuse.Decide(res.Score, res.Match, req.History)
	res.Verdict = decision.Verdict
	return res
}

// rateViolation reports posting faster than the current level's minimum
// interval. Level 0 imposes no gap.
func rateViolation(h abuse.History, now time.Time) bool {
	if h.Cooldown.Level == cooldown.None || h.LastCommentAt == 0 {
		return false
	}
	last := time.Unix(h.LastCommentAt, 0)
	return now.Sub(last) < h.Cooldown.Level.Duration()
}
