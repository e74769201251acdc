package rules

import (
	"testing"
)

func TestRegistry_UnknownNamesAreFalse(t *testing.T) {
	reg := NewRegistry(nil)
	ctx := Context{Inventory: &mockInventory{}, State: &mockState{}, Helpers: reg}

	if reg.CallHelper("nope", nil, ctx) {
		t.Error("unknown helper should evaluate to false")
	}
	if reg.CallStateMethod("nope", nil, ctx) {
		t.Error("unknown state method should evaluate to false")
	}
}

func TestRegistry_NilRegistryIsFalse(t *testing.T) {
	ctx := Context{Inventory: &mockInventory{}, State: &mockState{}}
	rule := mustParseRule(t, `{"type":"helper","name":"has_all","args":["A"]}`)
	if Evaluate(rule, ctx) {
		t.Error("helper rule without a registry should evaluate to false")
	}
}

func TestRegistry_PanicIsContained(t *testing.T) {
	reg := NewRegistry(nil)
	reg.RegisterHelper("explodes", func(inv InventoryView, st StateView, args []any) bool {
		panic("boom")
	})
	ctx := Context{Inventory: &mockInventory{}, State: &mockState{}, Helpers: reg}

	if reg.CallHelper("explodes", nil, ctx) {
		t.Error("panicking helper should evaluate to false")
	}

	// The containing expression keeps evaluating.
	expr := mustParseRule(t, `{"type":"or","conditions":[
		{"type":"helper","name":"explodes"},
		{"type":"constant","value":true}
	]}`)
	if !Evaluate(expr, ctx) {
		t.Error("expression should survive a panicking helper")
	}
}

func TestRegistry_LaterRegistrationWins(t *testing.T) {
	reg := NewRegistry(nil)
	reg.RegisterHelper("pick", func(inv InventoryView, st StateView, args []any) bool { return false })
	reg.RegisterHelper("pick", func(inv InventoryView, st StateView, args []any) bool { return true })
	ctx := Context{Inventory: &mockInventory{}, State: &mockState{}, Helpers: reg}

	if !reg.CallHelper("pick", nil, ctx) {
		t.Error("second registration should replace the first")
	}
}

func TestDefaultRegistry_SettingIs(t *testing.T) {
	reg := DefaultRegistry(nil)
	st := &mockState{settings: map[string]any{"mode": "open"}}
	ctx := Context{Inventory: &mockInventory{}, State: st, Helpers: reg}

	tests := []struct {
		name     string
		args     []any
		expected bool
	}{
		{"matching value", []any{"mode", "open"}, true},
		{"mismatched value", []any{"mode", "standard"}, false},
		{"missing setting", []any{"shuffle", "full"}, false},
		{"wrong arity", []any{"mode"}, false},
		{"non-string key", []any{7, "open"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := reg.CallStateMethod("setting_is", tt.args, ctx); got != tt.expected {
				t.Errorf("setting_is(%v) = %v, want %v", tt.args, got, tt.expected)
			}
		})
	}
}

func TestDefaultRegistry_DifficultyAtMost(t *testing.T) {
	reg := DefaultRegistry(nil)

	tests := []struct {
		name       string
		difficulty any
		args       []any
		expected   bool
	}{
		{"within limit", float64(1), []any{2}, true},
		{"at limit", float64(2), []any{2}, true},
		{"over limit", float64(3), []any{2}, false},
		{"non-numeric setting", "hard", []any{2}, false},
		{"missing setting", nil, []any{2}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := map[string]any{}
			if tt.difficulty != nil {
				settings["difficulty"] = tt.difficulty
			}
			ctx := Context{Inventory: &mockInventory{}, State: &mockState{settings: settings}, Helpers: reg}
			if got := reg.CallStateMethod("difficulty_at_most", tt.args, ctx); got != tt.expected {
				t.Errorf("difficulty_at_most(%v) with difficulty=%v = %v, want %v",
					tt.args, tt.difficulty, got, tt.expected)
			}
		})
	}
}
