package profanity

import (
	"testing"

	"github.com/pondworks/comments/internal/normalize"
)

func TestNewClassifier(t *testing.T) {
	c := NewClassifier()
	if c == nil {
		t.Fatal("NewClassifier returned nil")
	}
	if len(c.words) == 0 {
		t.Fatal("NewClassifier built an empty word set")
	}
}

func TestClassify_Tiers(t *testing.T) {
	c := NewClassifier()

	tests := []struct {
		name  string
		input string
		tier1 int
		tier2 int
		tier3 int
	}{
		{"clean", "what a lovely day", 0, 0, 0},
		{"tier1 only", "damn that hurts", 1, 0, 0},
		{"tier2 only", "this is bullshit", 0, 1, 0},
		{"tier3 only", "you faggot", 0, 0, 1},
		{"two tier3 occurrences", "faggot faggot", 0, 0, 2},
		{"mixed tiers", "damn this shit, you fag", 1, 1, 1},
		{"substring no match", "classic assassin", 0, 0, 0},
		{"word boundaries", "hello, asshole.", 0, 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := c.Classify(normalize.Normalize(tt.input))
			if len(m.Tier1) != tt.tier1 {
				t.Errorf("Tier1 = %v, want %d matches", m.Tier1, tt.tier1)
			}
			if len(m.Tier2) != tt.tier2 {
				t.Errorf("Tier2 = %v, want %d matches", m.Tier2, tt.tier2)
			}
			if len(m.Tier3) != tt.tier3 {
				t.Errorf("Tier3 = %v, want %d matches", m.Tier3, tt.tier3)
			}
		})
	}
}

// A term listed in multiple tiers must only ever match at the highest.
func TestClassify_TierPrecedence(t *testing.T) {
	c := NewClassifier()

	m := c.Classify("cunt")
	if len(m.Tier3) != 1 {
		t.Fatalf("Tier3 = %v, want exactly one match", m.Tier3)
	}
	if len(m.Tier2) != 0 {
		t.Errorf("Tier2 = %v, want empty: word belongs to tier 3", m.Tier2)
	}
}

func TestClassify_NormalizedEvasions(t *testing.T) {
	c := NewClassifier()

	tests := []struct {
		name  string
		input string
	}{
		{"leet tier3", "f4gg0t"},
		{"dotted tier3", "f.a.g.g.o.t"},
		{"spaced tier3", "f a g g o t"},
		{"cyrillic tier3", "fаggot"},
		{"flooded tier3", "faggggot"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := c.Classify(normalize.Normalize(tt.input))
			if len(m.Tier3) == 0 {
				t.Errorf("Classify(Normalize(%q)) found no tier-3 match", tt.input)
			}
		})
	}
}

func TestClassify_Threats(t *testing.T) {
	c := NewClassifier()

	tests := []struct {
		input  string
		threat bool
	}{
		{"i will kill you", true},
		{"im gonna kill everyone here", true},
		{"going to kill it at the gym", true}, // known overreach, scored anyway
		{"kill yourself", true},
		{"that comedian killed it", false},
		{"great post", false},
	}

	for _, tt := range tests {
		m := c.Classify(normalize.Normalize(tt.input))
		if m.HasThreat() != tt.threat {
			t.Errorf("HasThreat(%q) = %v, want %v (matches %v)",
				tt.input, m.HasThreat(), tt.threat, m.Threat)
		}
	}
}

func TestClassify_Sexual(t *testing.T) {
	c := NewClassifier()

	tests := []struct {
		input  string
		sexual bool
	}{
		{"you got raped in that game", true},
		{"he is a pedophile", true},
		{"send nude pics", true},
		{"the grape harvest", false},
		{"nice weather", false},
	}

	for _, tt := range tests {
		m := c.Classify(normalize.Normalize(tt.input))
		if m.HasSexual() != tt.sexual {
			t.Errorf("HasSexual(%q) = %v, want %v (matches %v)",
				tt.input, m.HasSexual(), tt.sexual, m.Sexual)
		}
	}
}

func TestClassify_Spam(t *testing.T) {
	c := NewClassifier()

	tests := []struct {
		name string
		// input is passed through Normalize first, like production.
		input string
		spam  int
	}{
		{"http url", "look at http://example.com now", 1},
		{"bare domain", "visit example.com today", 1},
		{"two url shapes one flag", "http://a.com and www.b.com", 1},
		{"promo phrase", "click here for a deal", 1},
		{"url plus promo", "buy now at shop.com", 2},
		{"word flood", "spam spam spam", 1},
		{"punctuation flood", "what?????", 1},
		{"clean", "just a normal comment", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := c.Classify(normalize.Normalize(tt.input))
			if len(m.Spam) != tt.spam {
				t.Errorf("Spam = %v, want %d matches", m.Spam, tt.spam)
			}
		})
	}
}

func TestMask(t *testing.T) {
	c := NewClassifier()

	tests := []struct {
		input string
		want  string
	}{
		{"this is bullshit", "this is ********"},
		{"This is BULLSHIT", "This is ********"},
		{"you faggot", "you ******"},
		{"clean text stays", "clean text stays"},
		{"fuck this shit", "**** this ****"},
	}

	for _, tt := range tests {
		if got := c.Mask(tt.input); got != tt.want {
			t.Errorf("Mask(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestHighestTier(t *testing.T) {
	tests := []struct {
		name string
		m    TierMatch
		want int
	}{
		{"empty", TierMatch{}, 0},
		{"tier1", TierMatch{Tier1: []string{"damn"}}, 1},
		{"tier2 wins over tier1", TierMatch{Tier1: []string{"damn"}, Tier2: []string{"shit"}}, 2},
		{"tier3 wins over all", TierMatch{Tier1: []string{"damn"}, Tier3: []string{"fag"}}, 3},
	}

	for _, tt := range tests {
		if got := tt.m.HighestTier(); got != tt.want {
			t.Errorf("%s: HighestTier() = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestTerms(t *testing.T) {
	m := TierMatch{
		Tier2:  []string{"shit"},
		Tier3:  []string{"fag"},
		Threat: []string{"kill you"},
	}
	terms := m.Terms()
	if len(terms) != 3 {
		t.Fatalf("Terms() = %v, want 3 entries", terms)
	}
}
