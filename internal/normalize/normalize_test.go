package normalize

import (
	"strings"
	"testing"
)

func TestNormalize_Basic(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain text", "hello world", "hello world"},
		{"uppercase", "Hello WORLD", "hello world"},
		{"extra whitespace", "  hello   world  ", "hello world"},
		{"tabs and newlines", "hello\tworld\n", "hello world"},
		{"empty", "", ""},
		{"only whitespace", "   \t\n  ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.input); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalize_Homoglyphs(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"cyrillic a", "аsshole", "asshole"},
		{"cyrillic o and e", "lоsеr", "loser"},
		{"greek omicron", "mοrοn", "moron"},
		{"accented", "été", "ete"},
		{"mixed scripts", "асс", "acc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.input); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalize_Leet(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"digits", "1d10t", "idiot"},
		{"at sign", "@sshole", "asshole"},
		{"dollar sign", "a$$", "ass"},
		{"bang", "!diot", "idiot"},
		{"digraph slash a", `/-\ss`, "ass"},
		{"mixed", "5tup1d", "stupid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.input); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalize_ZeroWidth(t *testing.T) {
	input := "id\u200bi\u200cot\u200d"
	if got := Normalize(input); got != "idiot" {
		t.Errorf("Normalize(%q) = %q, want %q", input, got, "idiot")
	}
	withBOM := "\ufeffhello"
	if got := Normalize(withBOM); got != "hello" {
		t.Errorf("Normalize(%q) = %q, want %q", withBOM, got, "hello")
	}
}

func TestNormalize_CollapseRuns(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"soooo", "soo"},
		{"fuuuuck", "fuuck"},
		{"aa", "aa"},
		{"aaa", "aa"},
		{"noooooooope", "noope"},
	}

	for _, tt := range tests {
		if got := Normalize(tt.input); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestNormalize_StripsEmojis(t *testing.T) {
	if got := Normalize("nice post \U0001F600\U0001F600"); got != "nice post" {
		t.Errorf("got %q, want %q", got, "nice post")
	}
}

// Emoji wedged inside a letter run must not shield the run from
// collapsing.
func TestNormalize_EmojiInsideRun(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"so\U0001F600oo\U0001F600oo", "soo"},
		{"aa\U0001F600a", "aa"},
		{"fu\U0001F600uu\U0001F600uck", "fuuck"},
	}

	for _, tt := range tests {
		if got := Normalize(tt.input); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"Hello World",
		"аssh0le!!!",
		"soooo c00l \U0001F600",
		"so\U0001F600oo\U0001F600oo",
		"aa\U0001F600a",
		"f.a.g chain",
		"",
	}
	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestIsOnlyEmojis(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"\U0001F600\U0001F600", true},
		{" \U0001F44D ", true},
		{"hello \U0001F600", false},
		{"hello", false},
		{"", false},
		{"   ", false},
	}

	for _, tt := range tests {
		if got := IsOnlyEmojis(tt.input); got != tt.want {
			t.Errorf("IsOnlyEmojis(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestCountEmojis(t *testing.T) {
	tests := []struct {
		input string
		want  int
	}{
		{"no emoji here", 0},
		{"\U0001F600", 1},
		{"a \U0001F600 b \U0001F44D", 2},
		{strings.Repeat("\U0001F600", 7), 7},
	}

	for _, tt := range tests {
		if got := CountEmojis(tt.input); got != tt.want {
			t.Errorf("CountEmojis(%q) = %d, want %d", tt.input, got, tt.want)
		}
	}
}

func TestCollapseSeparators(t *testing.T) {
	blocklist := map[string]bool{"faggot": true, "fag": true}
	hit := func(w string) bool { return blocklist[w] }

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"dotted slur", "f.a.g.g.o.t", "faggot"},
		{"dashed slur", "f-a-g-g-o-t", "faggot"},
		{"spaced letters", "f a g g o t", "faggot"},
		{"dotted word in sentence", "you f.a.g.g.o.t loser", "you faggot loser"},
		{"innocent dotted acronym", "U.S.A. rocks", "U.S.A. rocks"},
		{"innocent sentence", "hello there", "hello there"},
		{"spaced non-hit stays", "a b c d e f", "a b c d e f"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CollapseSeparators(tt.input, hit); got != tt.want {
				t.Errorf("CollapseSeparators(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
