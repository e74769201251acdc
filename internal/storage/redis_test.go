package storage

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jwebster45206/logic-tracker/pkg/inventory"
	"github.com/jwebster45206/logic-tracker/pkg/ledger"
	"github.com/jwebster45206/logic-tracker/pkg/tracker"
)

const testRulesetJSON = `{
	"name": "Test World",
	"items": {"Key": {"advancement": true}},
	"regions": {
		"Start": {
			"locations": [{"name": "First Chest"}],
			"exits": [{"name": "Door", "target_region": "Hall", "rule": {"type": "item_check", "item": "Key"}}]
		},
		"Hall": {}
	}
}`

func setupTestStorage(t *testing.T) (*RedisStorage, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	dataDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dataDir, "rulesets"), 0o755); err != nil {
		t.Fatalf("Failed to create rulesets dir: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := NewRedisStorage(mr.Addr(), dataDir, time.Hour, logger)
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("Failed to close storage: %v", err)
		}
	})

	return store, mr
}

func writeRuleset(t *testing.T, store *RedisStorage, filename, content string) {
	t.Helper()
	path := filepath.Join(store.dataDir, "rulesets", filename)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write ruleset file: %v", err)
	}
}

func TestRedisStorage_Ping(t *testing.T) {
	store, mr := setupTestStorage(t)
	ctx := context.Background()

	if err := store.Ping(ctx); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}

	mr.Close()
	if err := store.Ping(ctx); err == nil {
		t.Error("Ping should fail after the server goes away")
	}
}

func TestRedisStorage_SessionRoundTrip(t *testing.T) {
	store, _ := setupTestStorage(t)
	ctx := context.Background()

	id := uuid.New()
	snap := &tracker.Snapshot{
		ID:      id,
		Ruleset: "test_world.json",
		Inventory: inventory.Snapshot{
			Counts:   map[string]int{"Key": 2},
			Excluded: []string{"Lamp"},
		},
		Ledger: ledger.Snapshot{
			Flags:  []string{"flute_activated"},
			Events: []string{"Zelda Rescued"},
		},
		CreatedAt: time.Now(),
	}

	if err := store.SaveSession(ctx, id, snap); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}

	loaded, err := store.LoadSession(ctx, id)
	if err != nil {
		t.Fatalf("LoadSession failed: %v", err)
	}
	if loaded == nil {
		t.Fatal("LoadSession returned nil for a saved session")
	}
	if loaded.ID != id || loaded.Ruleset != "test_world.json" {
		t.Errorf("identity fields lost: %+v", loaded)
	}
	if loaded.Inventory.Counts["Key"] != 2 {
		t.Errorf("inventory counts lost: %+v", loaded.Inventory)
	}
	if len(loaded.Inventory.Excluded) != 1 || loaded.Inventory.Excluded[0] != "Lamp" {
		t.Errorf("exclusions lost: %+v", loaded.Inventory)
	}
	if len(loaded.Ledger.Events) != 1 || loaded.Ledger.Events[0] != "Zelda Rescued" {
		t.Errorf("events lost: %+v", loaded.Ledger)
	}
	if loaded.UpdatedAt.IsZero() {
		t.Error("SaveSession should stamp UpdatedAt")
	}
}

func TestRedisStorage_LoadMissingSession(t *testing.T) {
	store, _ := setupTestStorage(t)

	snap, err := store.LoadSession(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("missing session should not be an error: %v", err)
	}
	if snap != nil {
		t.Errorf("missing session should be nil, got %+v", snap)
	}
}

func TestRedisStorage_DeleteSession(t *testing.T) {
	store, _ := setupTestStorage(t)
	ctx := context.Background()

	id := uuid.New()
	if err := store.SaveSession(ctx, id, &tracker.Snapshot{ID: id, Ruleset: "x.json"}); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}

	if err := store.DeleteSession(ctx, id); err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}

	snap, err := store.LoadSession(ctx, id)
	if err != nil || snap != nil {
		t.Errorf("deleted session should load as nil, got %+v, %v", snap, err)
	}
}

func TestRedisStorage_SessionTTL(t *testing.T) {
	store, mr := setupTestStorage(t)
	ctx := context.Background()

	id := uuid.New()
	if err := store.SaveSession(ctx, id, &tracker.Snapshot{ID: id, Ruleset: "x.json"}); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}

	mr.FastForward(2 * time.Hour)

	snap, err := store.LoadSession(ctx, id)
	if err != nil || snap != nil {
		t.Errorf("expired session should load as nil, got %+v, %v", snap, err)
	}
}

func TestRedisStorage_ListRulesets(t *testing.T) {
	store, _ := setupTestStorage(t)

	writeRuleset(t, store, "test_world.json", testRulesetJSON)
	writeRuleset(t, store, "broken.json", `{"name": "Broken"`)
	writeRuleset(t, store, "notes.txt", "not a ruleset")

	rulesets, err := store.ListRulesets(context.Background())
	if err != nil {
		t.Fatalf("ListRulesets failed: %v", err)
	}
	if len(rulesets) != 1 {
		t.Fatalf("invalid files should be skipped; got %v", rulesets)
	}
	if rulesets["Test World"] != "test_world.json" {
		t.Errorf("expected Test World -> test_world.json, got %v", rulesets)
	}
}

func TestRedisStorage_GetRuleset(t *testing.T) {
	store, _ := setupTestStorage(t)
	writeRuleset(t, store, "test_world.json", testRulesetJSON)

	rs, err := store.GetRuleset(context.Background(), "test_world.json")
	if err != nil {
		t.Fatalf("GetRuleset failed: %v", err)
	}
	if rs.Name != "Test World" || len(rs.Regions) != 2 {
		t.Errorf("unexpected ruleset: %+v", rs)
	}

	if _, err := store.GetRuleset(context.Background(), "nope.json"); err == nil {
		t.Error("missing ruleset should be an error")
	}
}
