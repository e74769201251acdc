package ledger

import (
	"sort"
	"testing"
)

func TestLedger_Flags(t *testing.T) {
	l := New(nil)

	if l.HasFlag("bridge_lowered") {
		t.Error("fresh ledger should have no flags")
	}

	l.SetFlag("bridge_lowered", true)
	if !l.HasFlag("bridge_lowered") {
		t.Error("flag should be set")
	}

	l.SetFlag("bridge_lowered", false)
	if l.HasFlag("bridge_lowered") {
		t.Error("flag should be cleared")
	}
}

func TestLedger_EventsSatisfyFlagChecks(t *testing.T) {
	l := New(nil)

	if !l.GrantEvent("Zelda Rescued") {
		t.Error("first grant should report newly granted")
	}
	if l.GrantEvent("Zelda Rescued") {
		t.Error("second grant should be an idempotent no-op")
	}

	if !l.HasEvent("Zelda Rescued") {
		t.Error("event should be recorded")
	}
	if !l.HasFlag("Zelda Rescued") {
		t.Error("granted events should satisfy flag checks")
	}
}

func TestLedger_NotificationsFirePerMutation(t *testing.T) {
	l := New(nil)
	notifications := 0
	l.SetOnChange(func() { notifications++ })

	l.SetFlag("a", true)
	l.GrantEvent("b")
	l.GrantEvent("b") // idempotent, no notification
	if notifications != 2 {
		t.Errorf("expected 2 notifications, got %d", notifications)
	}
}

func TestLedger_Settings(t *testing.T) {
	l := New(map[string]any{"difficulty": "normal"})

	v, ok := l.Setting("difficulty")
	if !ok || v != "normal" {
		t.Errorf("Setting(difficulty) = %v, %v; want normal, true", v, ok)
	}
	if _, ok := l.Setting("shuffle"); ok {
		t.Error("missing setting should report absent")
	}
}

func TestLedger_SnapshotRoundTrip(t *testing.T) {
	l := New(map[string]any{"difficulty": "normal"})
	l.SetFlag("flute_activated", true)
	l.GrantEvent("Zelda Rescued")
	l.GrantEvent("Agahnim Defeated")

	snap := l.Snapshot()

	// Settings come from the ruleset, not the snapshot.
	restored := New(map[string]any{"difficulty": "normal"})
	restored.Restore(snap)

	if !restored.HasFlag("flute_activated") {
		t.Error("flag should survive the round trip")
	}
	if !restored.HasEvent("Zelda Rescued") || !restored.HasEvent("Agahnim Defeated") {
		t.Error("events should survive the round trip")
	}

	events := restored.Events()
	sort.Strings(events)
	if len(events) != 2 || events[0] != "Agahnim Defeated" || events[1] != "Zelda Rescued" {
		t.Errorf("unexpected events after restore: %v", events)
	}
}
