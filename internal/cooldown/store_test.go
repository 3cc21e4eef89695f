package cooldown

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// newTestStore creates a Store connected to a local Redis instance and
// flushes leftover test keys before returning. Tests that call this
// helper require a running Redis on localhost:6379.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not available: %v", err)
	}

	clean := func() {
		iter := client.Scan(ctx, 0, KeyPrefix+"test_*", 100).Iterator()
		for iter.Next(ctx) {
			client.Del(ctx, iter.Val())
		}
	}
	clean()
	t.Cleanup(func() {
		clean()
		client.Close()
	})
	return NewStore(client)
}

func TestStore_GetMissing(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	state, err := store.Get(ctx, "test_missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.Level != None {
		t.Errorf("missing record level = %v, want %v", state.Level, None)
	}
}

func TestStore_EscalateAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	level, err := store.Escalate(ctx, "test_esc", now)
	if err != nil {
		t.Fatalf("escalate: %v", err)
	}
	if level != Short {
		t.Errorf("first escalation level = %v, want %v", level, Short)
	}

	state, err := store.Get(ctx, "test_esc")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if state.Level != Short {
		t.Errorf("stored level = %v, want %v", state.Level, Short)
	}
	if state.LastViolationAt.Unix() != now.Unix() {
		t.Errorf("violation clock = %v, want %v", state.LastViolationAt.Unix(), now.Unix())
	}
}

func TestStore_EscalateCapsAtMax(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	var level Level
	var err error
	for i := 0; i < int(MaxLevel)+3; i++ {
		level, err = store.Escalate(ctx, "test_cap", now)
		if err != nil {
			t.Fatalf("escalate %d: %v", i, err)
		}
	}
	if level != MaxLevel {
		t.Errorf("level after repeated escalation = %v, want %v", level, MaxLevel)
	}
}

func TestStore_DecayInsideWindow(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	if _, err := store.Escalate(ctx, "test_decay_early", now); err != nil {
		t.Fatalf("escalate: %v", err)
	}

	level, applied, err := store.Decay(ctx, "test_decay_early", now.Add(time.Minute))
	if err != nil {
		t.Fatalf("decay: %v", err)
	}
	if applied {
		t.Error("decay applied inside the clean window")
	}
	if level != Short {
		t.Errorf("level = %v, want unchanged %v", level, Short)
	}
}

func TestStore_DecayAfterWindow(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	for i := 0; i < 2; i++ {
		if _, err := store.Escalate(ctx, "test_decay_due", now); err != nil {
			t.Fatalf("escalate: %v", err)
		}
	}

	later := now.Add(DecayWindow + time.Minute)
	level, applied, err := store.Decay(ctx, "test_decay_due", later)
	if err != nil {
		t.Fatalf("decay: %v", err)
	}
	if !applied {
		t.Fatal("decay not applied after the clean window")
	}
	if level != Short {
		t.Errorf("level = %v, want %v", level, Short)
	}

	// A second decay right away must be gated by the decay clock.
	_, applied, err = store.Decay(ctx, "test_decay_due", later.Add(time.Second))
	if err != nil {
		t.Fatalf("second decay: %v", err)
	}
	if applied {
		t.Error("decay cascaded within one clean window")
	}
}

func TestStore_DecayMissingRecord(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	level, applied, err := store.Decay(ctx, "test_decay_none", time.Now())
	if err != nil {
		t.Fatalf("decay: %v", err)
	}
	if applied || level != None {
		t.Errorf("decay on missing record = (%v, %v), want (none, false)", level, applied)
	}
}
