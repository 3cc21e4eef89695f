package abuse

import (
	"strings"
	"testing"

	"github.com/pondworks/comments/internal/cooldown"
	"github.com/pondworks/comments/internal/profanity"
)

func TestComputeScore_Weights(t *testing.T) {
	tests := []struct {
		name string
		m    profanity.TierMatch
		want Score
	}{
		{"clean", profanity.TierMatch{}, 0},
		{"tier1 free", profanity.TierMatch{Tier1: []string{"damn"}}, 0},
		{"tier2 free", profanity.TierMatch{Tier2: []string{"shit", "fuck"}}, 0},
		{"one slur", profanity.TierMatch{Tier3: []string{"fag"}}, 10},
		{"slurs accumulate", profanity.TierMatch{Tier3: []string{"fag", "fag", "fag"}}, 30},
		{"threat", profanity.TierMatch{Threat: []string{"kill you"}}, 20},
		{"sexual", profanity.TierMatch{Sexual: []string{"raped"}}, 3},
		{"spam", profanity.TierMatch{Spam: []string{"click here"}}, 5},
		{"threat plus slur", profanity.TierMatch{Tier3: []string{"fag"}, Threat: []string{"kill you"}}, 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := tt.m
			if got := ComputeScore("some text", &m); got != tt.want {
				t.Errorf("ComputeScore = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestComputeScore_EmojiCategories(t *testing.T) {
	t.Run("only emojis", func(t *testing.T) {
		var m profanity.TierMatch
		got := ComputeScore("\U0001F600\U0001F600", &m)
		if !m.OnlyEmojis {
			t.Error("OnlyEmojis not set")
		}
		if m.EmojiSpam {
			t.Error("EmojiSpam must not be set when OnlyEmojis is")
		}
		if got != WeightEmojiOnly {
			t.Errorf("score = %d, want %d", got, WeightEmojiOnly)
		}
	})

	t.Run("emoji spam by count", func(t *testing.T) {
		var m profanity.TierMatch
		raw := "check this out everyone " + strings.Repeat("\U0001F600", 6)
		got := ComputeScore(raw, &m)
		if !m.EmojiSpam {
			t.Error("EmojiSpam not set for 6 emoji")
		}
		if m.OnlyEmojis {
			t.Error("OnlyEmojis wrongly set")
		}
		if got != WeightEmojiSpam {
			t.Errorf("score = %d, want %d", got, WeightEmojiSpam)
		}
	})

	t.Run("few emoji in text is fine", func(t *testing.T) {
		var m profanity.TierMatch
		got := ComputeScore("great article, thanks for writing it \U0001F600", &m)
		if m.EmojiSpam || m.OnlyEmojis {
			t.Errorf("emoji flags set for normal usage: spam=%v only=%v", m.EmojiSpam, m.OnlyEmojis)
		}
		if got != 0 {
			t.Errorf("score = %d, want 0", got)
		}
	})
}

func TestRepeatedAbuse(t *testing.T) {
	tests := []struct {
		name string
		h    History
		want bool
	}{
		{"empty history", History{}, false},
		{"violations without score", History{RecentViolations: 3, RecentScore: 5}, false},
		{"score without violations", History{RecentViolations: 2, RecentScore: 50}, false},
		{"violations and score", History{RecentViolations: 3, RecentScore: 9}, true},
		{"comment flood alone", History{RecentComments: 5}, true},
		{"four comments fine", History{RecentComments: 4}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RepeatedAbuse(tt.h); got != tt.want {
				t.Errorf("RepeatedAbuse = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHistory_Banned(t *testing.T) {
	tests := []struct {
		name string
		h    History
		want bool
	}{
		{"clean", History{}, false},
		{"shadow banned", History{ShadowBanned: true}, true},
		{"auto banned", History{AutoBanned: true}, true},
		{"admin banned", History{AdminBanned: true}, true},
		{"admin unban clears auto", History{AutoBanned: true, AdminUnbanned: true}, false},
		{"admin unban clears shadow", History{ShadowBanned: true, AdminUnbanned: true}, false},
		{"admin unban keeps admin ban", History{AdminBanned: true, AdminUnbanned: true}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.h.Banned(); got != tt.want {
				t.Errorf("Banned = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDecide_Thresholds(t *testing.T) {
	tests := []struct {
		name  string
		score Score
		m     profanity.TierMatch
		h     History
		want  Verdict
	}{
		{"zero allows", 0, profanity.TierMatch{}, History{}, VerdictAllow},
		{"below medium allows", 2, profanity.TierMatch{}, History{}, VerdictAllow},
		{"tier2 below medium masks", 0, profanity.TierMatch{Tier2: []string{"shit"}}, History{}, VerdictAllowMasked},
		{"medium boundary cools down", 3, profanity.TierMatch{}, History{}, VerdictApplyCooldown},
		{"just under high cools down", 9, profanity.TierMatch{}, History{}, VerdictApplyCooldown},
		{"high boundary shadow bans", 10, profanity.TierMatch{}, History{}, VerdictShadowBan},
		{"just under extreme shadow bans", 19, profanity.TierMatch{}, History{}, VerdictShadowBan},
		{"extreme boundary auto bans", 20, profanity.TierMatch{}, History{}, VerdictShadowBanAndAutoBan},
		{"threat plus slur auto bans", 30, profanity.TierMatch{}, History{}, VerdictShadowBanAndAutoBan},
		{
			"repeated abuse promotes high to auto ban",
			10, profanity.TierMatch{},
			History{RecentViolations: 3, RecentScore: 9},
			VerdictShadowBanAndAutoBan,
		},
		{
			"repeated abuse does not promote medium",
			5, profanity.TierMatch{},
			History{RecentViolations: 3, RecentScore: 9},
			VerdictApplyCooldown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Decide(tt.score, tt.m, tt.h)
			if d.Verdict != tt.want {
				t.Errorf("Decide(%d) = %v, want %v", tt.score, d.Verdict, tt.want)
			}
		})
	}
}

func TestDecide_CooldownLevel(t *testing.T) {
	h := History{Cooldown: cooldown.State{Level: cooldown.Medium}}
	d := Decide(5, profanity.TierMatch{}, h)
	if d.Verdict != VerdictApplyCooldown {
		t.Fatalf("verdict = %v, want apply_cooldown", d.Verdict)
	}
	if d.CooldownLevel != cooldown.Long {
		t.Errorf("CooldownLevel = %v, want next level up", d.CooldownLevel)
	}

	h.Cooldown.Level = cooldown.MaxLevel
	d = Decide(5, profanity.TierMatch{}, h)
	if d.CooldownLevel != cooldown.MaxLevel {
		t.Errorf("CooldownLevel = %v, want clamped at max", d.CooldownLevel)
	}
}

func TestVerdict_String(t *testing.T) {
	tests := []struct {
		v    Verdict
		want string
	}{
		{VerdictAllow, "allow"},
		{VerdictAllowMasked, "allow_masked"},
		{VerdictApplyCooldown, "apply_cooldown"},
		{VerdictShadowBan, "shadow_ban"},
		{VerdictShadowBanAndAutoBan, "shadow_ban_auto_ban"},
		{Verdict(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.v.String(); got != tt.want {
			t.Errorf("Verdict(%d).String() = %q, want %q", tt.v, got, tt.want)
		}
	}
}
