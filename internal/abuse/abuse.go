// Package abuse turns classifier output into a single abuse score and
// maps score plus identity history to a moderation verdict.
//
// The weighting is deliberate policy: threats dominate so a single clear
// threat forces escalation on its own; slurs accumulate per occurrence so
// hate-speech bursts score proportionally; profanity tiers 1 and 2 cost
// nothing, because the system targets harm, not rudeness.
package abuse

import (
	"strings"

	"github.com/pondworks/comments/internal/cooldown"
	"github.com/pondworks/comments/internal/normalize"
	"github.com/pondworks/comments/internal/profanity"
)

// Score weights. Summed per comment, floored at 0, never capped: extreme
// combinations should produce scores that guarantee an extreme verdict.
const (
	WeightTier1     = 0  // informational only
	WeightTier2     = 0  // tolerated, masked on display
	WeightTier3     = 10 // per slur occurrence
	WeightSexual    = 3  // per pattern match
	WeightThreat    = 20 // per pattern match
	WeightSpam      = 5  // per pattern match
	WeightEmojiSpam = 2  // flat
	WeightEmojiOnly = 3  // flat, exclusive with emoji spam
)

// Verdict thresholds.
const (
	ThresholdMedium  = 3  // cooldown escalation
	ThresholdHigh    = 10 // shadow ban
	ThresholdExtreme = 20 // shadow ban plus auto-ban
)

// Emoji spam bounds: more than maxEmojiCount emoji, or emoji making up
// more than maxEmojiRatio of the message.
const (
	maxEmojiCount = 5
	maxEmojiRatio = 0.3
)

// Score is the non-negative abuse score of one comment.
type Score int

// ComputeScore scores one comment from its raw text and classifier match.
// It also fills the match's emoji fields (computed from raw text, since
// normalization strips emoji). A message is charged for at most one of
// the two emoji categories: only-emoji wins over emoji spam.
func ComputeScore(raw string, m *profanity.TierMatch) Score {
	m.OnlyEmojis = normalize.IsOnlyEmojis(raw)
	m.EmojiSpam = !m.OnlyEmojis && emojiSpam(raw)

	total := len(m.Tier1)*WeightTier1 +
		len(m.Tier2)*WeightTier2 +
		len(m.Tier3)*WeightTier3 +
		len(m.Sexual)*WeightSexual +
		len(m.Threat)*WeightThreat +
		len(m.Spam)*WeightSpam
	if m.OnlyEmojis {
		total += WeightEmojiOnly
	}
	if m.EmojiSpam {
		total += WeightEmojiSpam
	}
	if total < 0 {
		total = 0
	}
	return Score(total)
}

func emojiSpam(raw string) bool {
	count := normalize.CountEmojis(raw)
	if count == 0 {
		return false
	}
	if count > maxEmojiCount {
		return true
	}
	runes := len([]rune(strings.TrimSpace(raw)))
	return runes > 0 && float64(count)/float64(runes) > maxEmojiRatio
}

// Verdict is the engine's final decision for one comment, ordered from
// least to most severe.
type Verdict int

const (
	VerdictAllow Verdict = iota
	VerdictAllowMasked
	VerdictApplyCooldown
	VerdictShadowBan
	VerdictShadowBanAndAutoBan
)

func (v Verdict) String() string {
	switch v {
	case VerdictAllow:
		return "allow"
	case VerdictAllowMasked:
		return "allow_masked"
	case VerdictApplyCooldown:
		return "apply_cooldown"
	case VerdictShadowBan:
		return "shadow_ban"
	case VerdictShadowBanAndAutoBan:
		return "shadow_ban_auto_ban"
	}
	return "unknown"
}

// History is the read-only snapshot of an identity's abuse record that the
// caller assembles before an evaluation. The engine never queries storage;
// it trusts this snapshot as accurate at call time.
type History struct {
	TotalComments int

	// Trailing-window aggregates (window defined by the caller's store,
	// one hour by default).
	RecentComments   int
	RecentViolations int // comments at or above ThresholdMedium
	RecentScore      int // summed scores in the window

	ReportCount int

	ShadowBanned  bool
	AutoBanned    bool
	AdminBanned   bool
	AdminUnbanned bool

	Cooldown      cooldown.State
	LastCommentAt int64 // unix seconds, zero if never posted
}

// Repeated-abuse bounds within the trailing window.
const (
	repeatedAbuseComments = 3 // scored violations
	repeatedAbuseScore    = 9 // combined with this much total score
	floodComments         = 5 // this many comments flags regardless of score
)

// RepeatedAbuse reports whether the identity shows an abuse pattern rather
// than a one-off: several scored violations in the window, or outright
// comment flooding.
func RepeatedAbuse(h History) bool {
	if h.RecentViolations >= repeatedAbuseComments && h.RecentScore >= repeatedAbuseScore {
		return true
	}
	return h.RecentComments >= floodComments
}

// Banned reports whether the identity is currently banned by any
// mechanism, honoring the admin unban override: an admin unban clears
// automatic shadow and auto bans but never an explicit admin ban.
func (h History) Banned() bool {
	if h.AdminUnbanned {
		return h.AdminBanned
	}
	return h.ShadowBanned || h.AutoBanned || h.AdminBanned
}

// Decision is the outcome of Decide: the verdict plus the cooldown level
// the caller should persist when the verdict implies a cooldown change.
type Decision struct {
	Verdict       Verdict
	CooldownLevel cooldown.Level
}

// Decide maps a comment's score, its tier match and the identity's history
// to a verdict. Rules are evaluated in order, first match wins:
//
//  1. score >= extreme, or repeated abuse with score >= high: shadow ban
//     plus auto-ban
//  2. score >= high: shadow ban
//  3. score >= medium: escalate cooldown
//  4. tier-2 profanity present below medium: allow but mask on display
//  5. otherwise allow
//
// Decide is pure; persistence of the verdict's consequences is the
// caller's job.
func Decide(score Score, m profanity.TierMatch, h History) Decision {
	switch {
	case int(score) >= ThresholdExtreme,
		RepeatedAbuse(h) && int(score) >= ThresholdHigh:
		return Decision{Verdict: VerdictShadowBanAndAutoBan, CooldownLevel: h.Cooldown.Level}
	case int(score) >= ThresholdHigh:
		return Decision{Verdict: VerdictShadowBan, CooldownLevel: h.Cooldown.Level}
	case int(score) >= ThresholdMedium:
		next := h.Cooldown.Level + 1
		if next > cooldown.MaxLevel {
			next = cooldown.MaxLevel
		}
		return Decision{Verdict: VerdictApplyCooldown, CooldownLevel: next}
	case len(m.Tier2) > 0:
		return Decision{Verdict: VerdictAllowMasked, CooldownLevel: h.Cooldown.Level}
	default:
		return Decision{Verdict: VerdictAllow, CooldownLevel: h.Cooldown.Level}
	}
}
