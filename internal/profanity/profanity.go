// Package profanity classifies normalized comment text against three
// severity tiers of blocklisted terms and a set of pattern detectors for
// sexual content, threats and spam.
//
// Tier 1 is mild language, matched for information only. Tier 2 is
// aggressive profanity: tolerated, but flagged so callers can mask it on
// display. Tier 3 is hate speech and slurs and drives scoring. The tiers
// are disjoint; a term listed in a higher tier is removed from lower ones.
//
// All classification must run on output of the normalize package.
// Word lists intentionally contain offensive terms; they are detection
// data, not editorial content.
package profanity

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/pondworks/comments/internal/normalize"
)

// Tier 1: low impact. Matched but never penalized.
var tier1Words = []string{
	"damn", "dammit", "hell", "crap", "crud", "dang", "heck",
}

// Tier 2: aggressive profanity. Zero score by policy, masked on display.
var tier2Words = []string{
	"fuck", "fucking", "fucked", "fucker", "fck", "fuk", "fking",
	"shit", "shitty", "bullshit", "shite",
	"bitch", "bitches", "bitchy", "bastard",
	"ass", "asshole", "assholes", "arse",
	"dick", "dickhead", "prick", "cock", "cunt", "pussy",
	"slut", "whore", "douche", "douchebag", "piss", "pissed",

	"balls", "ballsack", "screw", "screwing", "screwed",
	"sex", "sexy", "cum", "cumming", "jizz", "semen", "orgasm",
	"masturbate", "masturbation", "porn", "pornography",
	"tits", "boobs", "breast", "nipple", "penis", "vagina",
	"anal", "blowjob", "handjob",

	"idiot", "moron", "stupid", "dumb", "dumbass",
	"retard", "retarded", "loser", "pathetic", "worthless",
	"trash", "garbage",
}

// Tier 3: hate speech and slurs. Every occurrence scores.
var tier3Words = []string{
	"nigger", "nigga", "niga", "nigg",
	"coon", "spic", "spick", "beaner", "wetback",
	"chink", "gook", "zipperhead", "towelhead", "sandnigger", "raghead",
	"kike", "hymie", "yid",
	"paki", "wop", "dago", "polack",
	"cracker", "honkey", "whitey", "redskin", "injun",

	"faggot", "fag", "fagot", "dyke", "tranny", "trannie", "shemale",

	"cripple", "mongoloid", "spastic",

	"feminazi", "cunt",

	"subhuman", "untermensch", "vermin", "parasite", "scum",
}

var sexualPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bsex(?:ual)?\s+(?:with|act|acts)\b`),
	regexp.MustCompile(`\brape(?:d)?\b`),
	regexp.MustCompile(`\bmolest(?:ed|ing)?\b`),
	regexp.MustCompile(`\bpedophile\b`),
	regexp.MustCompile(`\bpedo\b`),
	regexp.MustCompile(`\bchild\s+(?:porn|abuse)\b`),
	regexp.MustCompile(`\bincest\b`),
	regexp.MustCompile(`\bbestiality\b`),
	regexp.MustCompile(`\bnaked\s+(?:pic|picture|photo|image)`),
	regexp.MustCompile(`\bnude(?:s)?\s+(?:pic|picture|photo|image)`),
	regexp.MustCompile(`\bdick\s+pic`),
}

// Threat patterns carry the heaviest score weight; a missed threat is the
// highest-cost failure mode of the whole pipeline.
var threatPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bkill\s+(?:you|yourself|myself|him|her|them)\b`),
	regexp.MustCompile(`\b(?:gonna|going to|will)\s+kill\b`),
	regexp.MustCompile(`\bmurder\s+(?:you|him|her|them)\b`),
	regexp.MustCompile(`\bhurt\s+(?:you|him|her|them)\b`),
	regexp.MustCompile(`\bharm\s+(?:you|yourself|him|her|them)\b`),
	regexp.MustCompile(`\bbeat\s+(?:you|the shit|your ass)\b`),
	regexp.MustCompile(`\bshoot\s+(?:you|up|him|her|them)\b`),
	regexp.MustCompile(`\bstab\s+(?:you|him|her|them)\b`),
	regexp.MustCompile(`\bsuicide\b`),
	regexp.MustCompile(`\bend\s+(?:my|your)\s+life\b`),
	regexp.MustCompile(`\bdeath\s+threat`),
	regexp.MustCompile(`\bbomb\s+(?:threat|you|this|the)\b`),
	regexp.MustCompile(`\bterror(?:ist|ism)?\s+attack\b`),
}

// urlPatterns and promoPatterns cover link and promotional spam.
// Repetition flooding is detected with linear scans below; Go's regexp
// package (RE2) does not support the backreferences a repetition regex
// would need.
var urlPatterns = []*regexp.Regexp{
	regexp.MustCompile(`https?://`),
	regexp.MustCompile(`www\.`),
	regexp.MustCompile(`\b[a-z0-9-]+\.(?:com|net|org|io|co|info|biz)\b`),
}

var promoPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(?:click here|buy now|limited time|act now|order now|free money|make money)\b`),
	regexp.MustCompile(`\b(?:check out|follow me|subscribe|like and subscribe)\b`),
}

// TierMatch is the result of classifying one comment. The tier slices hold
// the literal matched terms, one entry per occurrence, so moderators can
// see exactly what triggered a flag. Emoji fields are filled by the scorer
// from the raw (pre-normalization) text.
type TierMatch struct {
	Tier1  []string
	Tier2  []string
	Tier3  []string
	Sexual []string
	Threat []string
	Spam   []string

	EmojiSpam  bool
	OnlyEmojis bool
}

// HighestTier returns the most severe tier with at least one match, or 0.
func (m TierMatch) HighestTier() int {
	switch {
	case len(m.Tier3) > 0:
		return 3
	case len(m.Tier2) > 0:
		return 2
	case len(m.Tier1) > 0:
		return 1
	}
	return 0
}

// HasThreat reports whether any threat pattern matched.
func (m TierMatch) HasThreat() bool { return len(m.Threat) > 0 }

// HasSexual reports whether any sexual-content pattern matched.
func (m TierMatch) HasSexual() bool { return len(m.Sexual) > 0 }

// HasSpam reports whether any spam pattern matched.
func (m TierMatch) HasSpam() bool { return len(m.Spam) > 0 }

// Terms returns every matched term and pattern across all categories, for
// the audit trail persisted alongside the comment.
func (m TierMatch) Terms() []string {
	out := make([]string, 0,
		len(m.Tier1)+len(m.Tier2)+len(m.Tier3)+len(m.Sexual)+len(m.Threat)+len(m.Spam))
	out = append(out, m.Tier1...)
	out = append(out, m.Tier2...)
	out = append(out, m.Tier3...)
	out = append(out, m.Sexual...)
	out = append(out, m.Threat...)
	out = append(out, m.Spam...)
	return out
}

// Classifier scans normalized text against the tier lists and pattern
// detectors. All regexes are compiled once in NewClassifier and reused;
// a Classifier is safe for concurrent use.
type Classifier struct {
	tier1Re *regexp.Regexp
	tier2Re *regexp.Regexp
	tier3Re *regexp.Regexp
	maskRe  *regexp.Regexp

	// every tiered word, for separator-evasion rejoining
	words map[string]bool
}

// NewClassifier builds the compiled matcher set. Tier precedence is
// enforced here: a word listed in tier 3 is excluded from tiers 1 and 2,
// so a term can only ever appear in one tier's match set.
func NewClassifier() *Classifier {
	t3 := wordSet(tier3Words)
	t2 := wordSet(tier2Words)
	for w := range t3 {
		delete(t2, w)
	}
	t1 := wordSet(tier1Words)
	for w := range t3 {
		delete(t1, w)
	}
	for w := range t2 {
		delete(t1, w)
	}

	all := make(map[string]bool, len(t1)+len(t2)+len(t3))
	for _, set := range []map[string]bool{t1, t2, t3} {
		for w := range set {
			all[w] = true
		}
	}

	maskable := append(setWords(t2), setWords(t3)...)

	return &Classifier{
		tier1Re: wordRegexp(setWords(t1), false),
		tier2Re: wordRegexp(setWords(t2), false),
		tier3Re: wordRegexp(setWords(t3), false),
		maskRe:  wordRegexp(maskable, true),
		words:   all,
	}
}

// Classify scans normalized text and returns all tier and pattern matches.
// Separator-split evasions ("f.a.g.g.o.t", "f a g g o t") are rejoined
// before matching when the rejoined form is a blocklisted word.
func (c *Classifier) Classify(normalized string) TierMatch {
	text := normalize.CollapseSeparators(normalized, c.isBlockedWord)

	m := TierMatch{
		Tier1: c.tier1Re.FindAllString(text, -1),
		Tier2: c.tier2Re.FindAllString(text, -1),
		Tier3: c.tier3Re.FindAllString(text, -1),
	}

	for _, re := range sexualPatterns {
		if hit := re.FindString(text); hit != "" {
			m.Sexual = append(m.Sexual, hit)
		}
	}
	for _, re := range threatPatterns {
		if hit := re.FindString(text); hit != "" {
			m.Threat = append(m.Threat, hit)
		}
	}
	m.Spam = spamMatches(text)

	return m
}

// Mask replaces tier-2 and tier-3 words in raw display text with
// asterisks of the same length. Raw text is matched case-insensitively;
// masking happens at render time, the stored body stays as posted.
func (c *Classifier) Mask(raw string) string {
	return c.maskRe.ReplaceAllStringFunc(raw, func(hit string) string {
		return strings.Repeat("*", len([]rune(hit)))
	})
}

func (c *Classifier) isBlockedWord(w string) bool {
	return c.words[w]
}

func spamMatches(text string) []string {
	var out []string
	for _, re := range urlPatterns {
		if hit := re.FindString(text); hit != "" {
			out = append(out, hit)
			break // one URL flag per comment, not one per pattern variant
		}
	}
	for _, re := range promoPatterns {
		if hit := re.FindString(text); hit != "" {
			out = append(out, hit)
		}
	}
	if hasCharFlood(text) {
		out = append(out, "char_flood")
	}
	if hasWordFlood(text) {
		out = append(out, "word_flood")
	}
	return out
}

// hasCharFlood reports 5 or more consecutive identical non-space
// characters. Normalization collapses plain letter runs, so a flood
// surviving to this point is punctuation or mixed noise.
func hasCharFlood(text string) bool {
	const threshold = 5

	count := 1
	prev := rune(-1)
	for _, r := range text {
		if r == prev && !unicode.IsSpace(r) {
			count++
			if count >= threshold {
				return true
			}
		} else {
			count = 1
			prev = r
		}
	}
	return false
}

// hasWordFlood reports the same word appearing 3 or more times in a row.
func hasWordFlood(text string) bool {
	const threshold = 3

	words := strings.Fields(text)
	if len(words) < threshold {
		return false
	}

	count := 1
	prev := ""
	for _, w := range words {
		if w == prev {
			count++
			if count >= threshold {
				return true
			}
		} else {
			count = 1
			prev = w
		}
	}
	return false
}

func wordSet(words []string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

func setWords(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for w := range set {
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}

// wordRegexp compiles a single word-boundary alternation for a word list,
// longest alternatives first so "fucking" wins over "fuck" at the same
// position. Boundary anchors keep blocklist entries from matching inside
// unrelated longer words ("class" never matches "ass").
func wordRegexp(words []string, caseInsensitive bool) *regexp.Regexp {
	if len(words) == 0 {
		return regexp.MustCompile(`\b\x00\b`) // matches nothing in text
	}
	sorted := make([]string, len(words))
	copy(sorted, words)
	sort.Slice(sorted, func(i, j int) bool {
		if len(sorted[i]) != len(sorted[j]) {
			return len(sorted[i]) > len(sorted[j])
		}
		return sorted[i] < sorted[j]
	})
	escaped := make([]string, len(sorted))
	for i, w := range sorted {
		escaped[i] = regexp.QuoteMeta(w)
	}
	expr := `\b(?:` + strings.Join(escaped, "|") + `)\b`
	if caseInsensitive {
		expr = `(?i)` + expr
	}
	return regexp.MustCompile(expr)
}
