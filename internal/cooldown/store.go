package cooldown

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// KeyPrefix is the Redis key prefix for cooldown records.
const KeyPrefix = "cooldown:"

// Store persists cooldown state in Redis, keyed by identity fingerprint.
// Both transitions run as Lua scripts so that concurrent evaluations for
// the same identity serialize on the record: escalations never lose an
// increment and decay can never fire twice for one clean window.
//
// Records are created lazily on first escalation and are never deleted;
// they decay to level 0 instead, so repeat-offender history survives
// good-behavior windows.
type Store struct {
	rdb            *redis.Client
	escalateScript *redis.Script
	decayScript    *redis.Script
}

// NewStore creates a cooldown store backed by the given Redis client.
func NewStore(rdb *redis.Client) *Store {
	return &Store{
		rdb:            rdb,
		escalateScript: redis.NewScript(escalateLua),
		decayScript:    redis.NewScript(decayLua),
	}
}

// Get retrieves the cooldown state for a fingerprint. A missing record is
// the zero state (level 0).
func (s *Store) Get(ctx context.Context, fingerprint string) (State, error) {
	key := KeyPrefix + fingerprint
	result, err := s.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return State{}, fmt.Errorf("cooldown: get %s: %w", fingerprint, err)
	}
	if len(result) == 0 {
		return State{}, nil
	}

	level, _ := strconv.Atoi(result["level"])
	lastViolation, _ := strconv.ParseInt(result["last_violation"], 10, 64)
	lastDecay, _ := strconv.ParseInt(result["last_decay_check"], 10, 64)

	st := State{Level: clamp(Level(level))}
	if lastViolation > 0 {
		st.LastViolationAt = time.Unix(lastViolation, 0)
	}
	if lastDecay > 0 {
		st.LastDecayCheckAt = time.Unix(lastDecay, 0)
	}
	return st, nil
}

// Escalate atomically raises the fingerprint's level by one (capped at
// MaxLevel) and stamps the violation clock. Returns the new level.
func (s *Store) Escalate(ctx context.Context, fingerprint string, now time.Time) (Level, error) {
	key := KeyPrefix + fingerprint
	result, err := s.escalateScript.Run(ctx, s.rdb, []string{key},
		int(MaxLevel), now.Unix()).Int()
	if err != nil {
		return None, fmt.Errorf("cooldown: escalate %s: %w", fingerprint, err)
	}
	return clamp(Level(result)), nil
}

// Decay atomically lowers the level by one if a full DecayWindow has
// passed since the last violation or decay step. Returns the resulting
// level and whether a decay was applied.
func (s *Store) Decay(ctx context.Context, fingerprint string, now time.Time) (Level, bool, error) {
	key := KeyPrefix + fingerprint
	result, err := s.decayScript.Run(ctx, s.rdb, []string{key},
		now.Unix(), int(DecayWindow.Seconds())).Int64()
	if err != nil {
		return None, false, fmt.Errorf("cooldown: decay %s: %w", fingerprint, err)
	}
	// The script returns level+10 when it decayed, bare level when not.
	if result >= 10 {
		return clamp(Level(result - 10)), true, nil
	}
	return clamp(Level(result)), false, nil
}

// escalateLua bumps the level with a ceiling and resets both clocks.
const escalateLua = `
local key = KEYS[1]
local max_level = tonumber(ARGV[1])
local now = tonumber(ARGV[2])

local level = tonumber(redis.call('HGET', key, 'level') or '0')
if level < max_level then
    level = level + 1
end

redis.call('HSET', key, 'level', level, 'last_violation', now, 'last_decay_check', now)
return level
`

// decayLua decrements the level only when the clean window has elapsed
// since the later of the two clocks. Returns level+10 on decay so the
// caller can distinguish "decayed to N" from "still at N".
const decayLua = `
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])

local level = tonumber(redis.call('HGET', key, 'level') or '0')
if level == 0 then return 0 end

local last_violation = tonumber(redis.call('HGET', key, 'last_violation') or '0')
local last_decay = tonumber(redis.call('HGET', key, 'last_decay_check') or '0')
local anchor = math.max(last_violation, last_decay)

if anchor > 0 and (now - anchor) < window then
    return level
end

level = level - 1
redis.call('HSET', key, 'level', level, 'last_decay_check', now)
return level + 10
`
