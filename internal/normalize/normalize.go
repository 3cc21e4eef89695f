// Package normalize canonicalizes raw comment text before classification.
// Classifying unnormalized content is considered invalid: character
// substitution (leetspeak, homoglyphs), zero-width insertion and character
// flooding are all cheap evasion techniques, so every classifier input
// must pass through Normalize first.
//
// Normalization is deterministic, idempotent and total: unrecognized bytes
// pass through unchanged and the function never fails.
package normalize

import (
	"strings"
	"unicode"
)

// homoglyphs maps visually similar Unicode characters to their ASCII
// equivalents. Covers Cyrillic and Greek lookalikes, circled letters and
// common accented forms.
var homoglyphs = map[rune]rune{
	// Cyrillic to Latin
	'а': 'a', 'А': 'A',
	'е': 'e', 'Е': 'E',
	'о': 'o', 'О': 'O',
	'р': 'p', 'Р': 'P',
	'с': 'c', 'С': 'C',
	'у': 'y', 'У': 'Y',
	'х': 'x', 'Х': 'X',
	'і': 'i', 'І': 'I',
	'ј': 'j', 'Ј': 'J',
	'ѕ': 's', 'Ѕ': 'S',
	'в': 'b', 'В': 'B',
	'к': 'k', 'К': 'K',
	'м': 'm', 'М': 'M',
	'н': 'h', 'Н': 'H',
	'т': 't', 'Т': 'T',

	// Greek to Latin
	'α': 'a', 'Α': 'A',
	'β': 'b', 'Β': 'B',
	'ε': 'e', 'Ε': 'E',
	'ι': 'i', 'Ι': 'I',
	'ο': 'o', 'Ο': 'O',
	'ρ': 'p', 'Ρ': 'P',
	'τ': 't', 'Τ': 'T',
	'υ': 'y', 'Υ': 'Y',
	'χ': 'x', 'Χ': 'X',
	'ν': 'v', 'Ν': 'V',
	'κ': 'k', 'Κ': 'K',
	'μ': 'u', 'Μ': 'M',
	'η': 'n', 'Η': 'H',
	'ζ': 'z', 'Ζ': 'Z',

	// Circled letters
	'ⓐ': 'a', 'ⓑ': 'b', 'ⓒ': 'c', 'ⓓ': 'd', 'ⓔ': 'e',
	'ⓕ': 'f', 'ⓖ': 'g', 'ⓗ': 'h', 'ⓘ': 'i', 'ⓙ': 'j',
	'ⓚ': 'k', 'ⓛ': 'l', 'ⓜ': 'm', 'ⓝ': 'n', 'ⓞ': 'o',
	'ⓟ': 'p', 'ⓠ': 'q', 'ⓡ': 'r', 'ⓢ': 's', 'ⓣ': 't',
	'ⓤ': 'u', 'ⓥ': 'v', 'ⓦ': 'w', 'ⓧ': 'x', 'ⓨ': 'y', 'ⓩ': 'z',

	// Accented characters
	'á': 'a', 'à': 'a', 'â': 'a', 'ä': 'a', 'ã': 'a', 'å': 'a', 'ā': 'a',
	'é': 'e', 'è': 'e', 'ê': 'e', 'ë': 'e', 'ē': 'e', 'ė': 'e', 'ę': 'e',
	'í': 'i', 'ì': 'i', 'î': 'i', 'ï': 'i', 'ī': 'i', 'į': 'i',
	'ó': 'o', 'ò': 'o', 'ô': 'o', 'ö': 'o', 'õ': 'o', 'ō': 'o', 'ø': 'o',
	'ú': 'u', 'ù': 'u', 'û': 'u', 'ü': 'u', 'ū': 'u', 'ų': 'u',
	'ý': 'y', 'ÿ': 'y',
	'ñ': 'n', 'ń': 'n',
	'ç': 'c', 'ć': 'c', 'č': 'c',
	'ł': 'l', 'ĺ': 'l',
	'ś': 's', 'š': 's',
	'ź': 'z', 'ż': 'z', 'ž': 'z',

	// Non-breaking space to regular space
	' ': ' ',
}

// leetRunes maps single-character leetspeak substitutions back to Latin
// letters. Applied after lowercasing, so only lowercase targets appear.
var leetRunes = map[rune]rune{
	'0': 'o',
	'1': 'i',
	'3': 'e',
	'4': 'a',
	'5': 's',
	'7': 't',
	'8': 'b',
	'@': 'a',
	'$': 's',
	'!': 'i',
	'|': 'i',
	'+': 't',
}

// leetDigraphs are multi-character ASCII-art substitutions. They must be
// applied before the single-rune pass so that their component characters
// are not consumed individually.
var leetDigraphs = []struct{ from, to string }{
	{`/-\`, "a"},
	{`|\|`, "n"},
	{`|)`, "d"},
	{`\|/`, "w"},
	{`\/`, "v"},
	{`()`, "o"},
	{`[]`, "o"},
}

// Normalize canonicalizes raw text: zero-width characters and emoji
// removed, homoglyphs folded to ASCII, lowercased, leetspeak reversed,
// runs of 3+ identical characters collapsed to 2 and whitespace folded.
// Emoji come out with the zero-width pass because they are the same
// evasion channel: an emoji wedged into "so😀oo😀oo" would otherwise
// shield the run from collapsing. Normalize(Normalize(s)) == Normalize(s)
// for all s.
func Normalize(raw string) string {
	s := stripZeroWidth(raw)
	s = StripEmojis(s)
	s = foldHomoglyphs(s)
	s = strings.ToLower(s)
	for _, d := range leetDigraphs {
		s = strings.ReplaceAll(s, d.from, d.to)
	}
	s = strings.Map(func(r rune) rune {
		if out, ok := leetRunes[r]; ok {
			return out
		}
		return r
	}, s)
	s = collapseRuns(s)
	return foldWhitespace(s)
}

// stripZeroWidth removes zero-width and invisible joiner characters used
// to split blocklisted words without changing their rendering.
func stripZeroWidth(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '\u200b', '\u200c', '\u200d', '\ufeff':
			return -1
		}
		return r
	}, s)
}

func foldHomoglyphs(s string) string {
	return strings.Map(func(r rune) rune {
		if out, ok := homoglyphs[r]; ok {
			return out
		}
		return r
	}, s)
}

// collapseRuns reduces runs of 3 or more identical letters or digits to
// exactly 2, defeating "sooooo" padding without destroying legitimate
// doubled letters. Punctuation runs are left alone so the spam detector
// can still see "?????" floods. Go's regexp package (RE2) has no
// backreferences, so this is a linear scan.
func collapseRuns(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	var prev rune = -1
	count := 0
	for _, r := range s {
		if r == prev && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			count++
			if count > 2 {
				continue
			}
		} else {
			prev = r
			count = 1
		}
		b.WriteRune(r)
	}
	return b.String()
}

func foldWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// IsEmoji reports whether r falls in one of the emoji/pictograph Unicode
// blocks.
func IsEmoji(r rune) bool {
	switch {
	case r >= 0x1F600 && r <= 0x1F64F: // emoticons
		return true
	case r >= 0x1F300 && r <= 0x1F5FF: // misc symbols and pictographs
		return true
	case r >= 0x1F680 && r <= 0x1F6FF: // transport and map
		return true
	case r >= 0x1F1E0 && r <= 0x1F1FF: // regional indicators
		return true
	case r >= 0x2600 && r <= 0x26FF: // misc symbols
		return true
	case r >= 0x2700 && r <= 0x27BF: // dingbats
		return true
	case r >= 0x1F900 && r <= 0x1F9FF: // supplemental pictographs
		return true
	case r >= 0x1FA00 && r <= 0x1FAFF: // extended pictographs
		return true
	case r >= 0xFE00 && r <= 0xFE0F: // variation selectors
		return true
	}
	return false
}

// StripEmojis removes all emoji characters from s.
func StripEmojis(s string) string {
	return strings.Map(func(r rune) rune {
		if IsEmoji(r) {
			return -1
		}
		return r
	}, s)
}

// CountEmojis returns the number of emoji runes in s.
func CountEmojis(s string) int {
	n := 0
	for _, r := range s {
		if IsEmoji(r) {
			n++
		}
	}
	return n
}

// IsOnlyEmojis reports whether raw contains something but normalizes to
// nothing, i.e. the message is emoji (and noise) with no meaningful text.
func IsOnlyEmojis(raw string) bool {
	return strings.TrimSpace(raw) != "" && Normalize(raw) == ""
}

// CollapseSeparators rejoins tokens whose letters were split by inserted
// punctuation or spacing, but only when the rejoined form is a known
// blocklist hit. Merging unconditionally would glue legitimately separate
// words together. Two evasion shapes are handled:
//
//   - punctuation inside one token: "f.a.g.g.o.t"
//   - a run of 3+ single-character tokens: "f a g g o t"
//
// hit reports whether a candidate word is on a blocklist. The input is
// expected to already be normalized.
func CollapseSeparators(s string, hit func(string) bool) string {
	tokens := strings.Fields(s)
	for i, tok := range tokens {
		squeezed := squeezeToken(tok)
		if squeezed != tok && hit(squeezed) {
			tokens[i] = squeezed
		}
	}

	out := make([]string, 0, len(tokens))
	for i := 0; i < len(tokens); {
		j := i
		for j < len(tokens) && isSingleLetter(tokens[j]) {
			j++
		}
		if j-i >= 3 {
			joined := strings.Join(tokens[i:j], "")
			if hit(joined) {
				out = append(out, joined)
				i = j
				continue
			}
		}
		out = append(out, tokens[i])
		i++
	}
	return strings.Join(out, " ")
}

func squeezeToken(tok string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, tok)
}

func isSingleLetter(tok string) bool {
	runes := []rune(tok)
	return len(runes) == 1 && unicode.IsLetter(runes[0])
}
