// Package cooldown implements the per-identity escalating cooldown state
// machine. Levels 0 (none) through 5 (extreme) each map to a minimum
// interval between posts. Levels escalate on scored violations or rate
// violations and decay one step at a time after a sustained clean window.
//
// The pure transition functions here operate on an explicit State record;
// the atomic per-identity update lives in Store, which pushes the
// read-modify-write into a Redis Lua script.
package cooldown

import "time"

// Level is the escalation state, always in [0, 5].
type Level int

const (
	None Level = iota
	Short
	Medium
	Long
	VeryLong
	Extreme
)

// MaxLevel is the ceiling for escalation.
const MaxLevel = Extreme

// DecayWindow is how long an identity must stay violation-free before its
// level drops by one. Decay never cascades within a single evaluation, so
// clearing a level-5 history takes five full clean windows.
const DecayWindow = 24 * time.Hour

var durations = [...]time.Duration{
	None:     0,
	Short:    5 * time.Second,
	Medium:   30 * time.Second,
	Long:     2 * time.Minute,
	VeryLong: 5 * time.Minute,
	Extreme:  15 * time.Minute,
}

var labels = [...]string{
	None:     "none",
	Short:    "5s",
	Medium:   "30s",
	Long:     "2m",
	VeryLong: "5m",
	Extreme:  "15m",
}

// Duration returns the minimum interval between posts at this level.
func (l Level) Duration() time.Duration {
	if l < None || l > MaxLevel {
		return 0
	}
	return durations[l]
}

func (l Level) String() string {
	if l < None || l > MaxLevel {
		return "invalid"
	}
	return labels[l]
}

// clamp forces a level into the valid range.
func clamp(l Level) Level {
	if l < None {
		return None
	}
	if l > MaxLevel {
		return MaxLevel
	}
	return l
}

// State is the persisted per-identity cooldown record.
type State struct {
	Level            Level
	LastViolationAt  time.Time
	LastDecayCheckAt time.Time
}

// Transition identifies which transition an evaluation took.
type Transition int

const (
	TransitionNone Transition = iota
	TransitionEscalate
	TransitionDecay
)

func (t Transition) String() string {
	switch t {
	case TransitionEscalate:
		return "escalate"
	case TransitionDecay:
		return "decay"
	}
	return "none"
}

// Escalate returns the state after a violation at now: level+1 capped at
// MaxLevel, violation and decay clocks reset.
func Escalate(s State, now time.Time) State {
	return State{
		Level:            clamp(s.Level + 1),
		LastViolationAt:  now,
		LastDecayCheckAt: now,
	}
}

// decayEligible reports whether a full clean window has elapsed since the
// later of the last violation and the last decay step.
func decayEligible(s State, now time.Time) bool {
	if s.Level == None {
		return false
	}
	anchor := s.LastViolationAt
	if s.LastDecayCheckAt.After(anchor) {
		anchor = s.LastDecayCheckAt
	}
	if anchor.IsZero() {
		// Level above zero with no recorded clock: treat as eligible so
		// stale records cannot pin an identity forever.
		return true
	}
	return now.Sub(anchor) >= DecayWindow
}

// Decay returns the state after one decay step, or the input unchanged if
// decay is not due. At most one level per evaluation.
func Decay(s State, now time.Time) (State, bool) {
	if !decayEligible(s, now) {
		return s, false
	}
	return State{
		Level:            clamp(s.Level - 1),
		LastViolationAt:  s.LastViolationAt,
		LastDecayCheckAt: now,
	}, true
}

// Evaluate applies exactly one transition for a single evaluation:
// escalate when the evaluation is a violation, otherwise decay if due,
// otherwise nothing. Escalation and decay are mutually exclusive; a
// request that is itself a violation never decays.
func Evaluate(s State, violation bool, now time.Time) (State, Transition) {
	if violation {
		return Escalate(s, now), TransitionEscalate
	}
	if next, ok := Decay(s, now); ok {
		return next, TransitionDecay
	}
	return s, TransitionNone
}

// Remaining returns how long the identity must still wait before posting,
// given the time of its previous comment. Zero when the gap has passed or
// no cooldown is active.
func (s State) Remaining(lastPostAt, now time.Time) time.Duration {
	if s.Level == None || lastPostAt.IsZero() {
		return 0
	}
	wait := s.Level.Duration() - now.Sub(lastPostAt)
	if wait < 0 {
		return 0
	}
	return wait
}
