package rules

import (
	"encoding/json"
	"testing"
)

// mockInventory implements InventoryView for testing
type mockInventory struct {
	items  map[string]bool
	counts map[string]int
	groups map[string]int
}

func (m *mockInventory) Has(item string) bool       { return m.items[item] }
func (m *mockInventory) Count(item string) int      { return m.counts[item] }
func (m *mockInventory) CountGroup(group string) int { return m.groups[group] }

// mockState implements StateView for testing
type mockState struct {
	flags    map[string]bool
	settings map[string]any
}

func (m *mockState) HasFlag(flag string) bool { return m.flags[flag] }
func (m *mockState) Setting(key string) (any, bool) {
	v, ok := m.settings[key]
	return v, ok
}

func testContext(inv *mockInventory, st *mockState) Context {
	if inv == nil {
		inv = &mockInventory{}
	}
	if st == nil {
		st = &mockState{}
	}
	return Context{
		Inventory: inv,
		State:     st,
		Helpers:   DefaultRegistry(nil),
	}
}

func mustParseRule(t *testing.T, data string) *Rule {
	t.Helper()
	var r Rule
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		t.Fatalf("failed to parse rule %s: %v", data, err)
	}
	return &r
}

func TestEvaluate(t *testing.T) {
	inv := &mockInventory{
		items:  map[string]bool{"Hookshot": true, "Lamp": true},
		counts: map[string]int{"Bottle": 2, "Hookshot": 1},
		groups: map[string]int{"Swords": 1},
	}
	st := &mockState{
		flags:    map[string]bool{"bridge_lowered": true},
		settings: map[string]any{"difficulty": float64(2)},
	}
	ctx := testContext(inv, st)

	tests := []struct {
		name     string
		rule     string
		expected bool
	}{
		{
			name:     "constant true",
			rule:     `{"type":"constant","value":true}`,
			expected: true,
		},
		{
			name:     "constant false",
			rule:     `{"type":"constant","value":false}`,
			expected: false,
		},
		{
			name:     "item_check held",
			rule:     `{"type":"item_check","item":"Hookshot"}`,
			expected: true,
		},
		{
			name:     "item_check missing",
			rule:     `{"type":"item_check","item":"Hammer"}`,
			expected: false,
		},
		{
			name:     "count_check met",
			rule:     `{"type":"count_check","item":"Bottle","count":2}`,
			expected: true,
		},
		{
			name:     "count_check unmet",
			rule:     `{"type":"count_check","item":"Bottle","count":3}`,
			expected: false,
		},
		{
			name:     "count_check omitted count defaults to one",
			rule:     `{"type":"count_check","item":"Bottle"}`,
			expected: true,
		},
		{
			name:     "group_check met",
			rule:     `{"type":"group_check","group":"Swords"}`,
			expected: true,
		},
		{
			name:     "group_check unmet",
			rule:     `{"type":"group_check","group":"Swords","count":2}`,
			expected: false,
		},
		{
			name:     "state_flag set",
			rule:     `{"type":"state_flag","flag":"bridge_lowered"}`,
			expected: true,
		},
		{
			name:     "state_flag unset",
			rule:     `{"type":"state_flag","flag":"seal_broken"}`,
			expected: false,
		},
		{
			name:     "helper has_all true",
			rule:     `{"type":"helper","name":"has_all","args":["Hookshot","Lamp"]}`,
			expected: true,
		},
		{
			name:     "helper has_all false",
			rule:     `{"type":"helper","name":"has_all","args":["Hookshot","Hammer"]}`,
			expected: false,
		},
		{
			name:     "helper has_any",
			rule:     `{"type":"helper","name":"has_any","args":["Hammer","Lamp"]}`,
			expected: true,
		},
		{
			name:     "unknown helper is false",
			rule:     `{"type":"helper","name":"can_fly","args":[]}`,
			expected: false,
		},
		{
			name:     "state_method difficulty_at_most",
			rule:     `{"type":"state_method","method":"difficulty_at_most","args":[3]}`,
			expected: true,
		},
		{
			name:     "state_method difficulty_at_most exceeded",
			rule:     `{"type":"state_method","method":"difficulty_at_most","args":[1]}`,
			expected: false,
		},
		{
			name:     "unknown state method is false",
			rule:     `{"type":"state_method","method":"moon_phase","args":[]}`,
			expected: false,
		},
		{
			name:     "comparison literal operands",
			rule:     `{"type":"comparison","left":3,"op":">=","right":2}`,
			expected: true,
		},
		{
			name:     "comparison rule operand resolves to one",
			rule:     `{"type":"comparison","left":{"type":"item_check","item":"Hookshot"},"op":"==","right":1}`,
			expected: true,
		},
		{
			name:     "comparison rule operand resolves to zero",
			rule:     `{"type":"comparison","left":{"type":"item_check","item":"Hammer"},"op":"==","right":0}`,
			expected: true,
		},
		{
			name:     "comparison unknown operator is false",
			rule:     `{"type":"comparison","left":1,"op":"!=","right":0}`,
			expected: false,
		},
		{
			name:     "and all true",
			rule:     `{"type":"and","conditions":[{"type":"item_check","item":"Hookshot"},{"type":"state_flag","flag":"bridge_lowered"}]}`,
			expected: true,
		},
		{
			name:     "and one false",
			rule:     `{"type":"and","conditions":[{"type":"item_check","item":"Hookshot"},{"type":"item_check","item":"Hammer"}]}`,
			expected: false,
		},
		{
			name:     "empty and is vacuously true",
			rule:     `{"type":"and","conditions":[]}`,
			expected: true,
		},
		{
			name:     "or one true",
			rule:     `{"type":"or","conditions":[{"type":"item_check","item":"Hammer"},{"type":"item_check","item":"Lamp"}]}`,
			expected: true,
		},
		{
			name:     "or all false",
			rule:     `{"type":"or","conditions":[{"type":"item_check","item":"Hammer"},{"type":"state_flag","flag":"seal_broken"}]}`,
			expected: false,
		},
		{
			name:     "empty or is false",
			rule:     `{"type":"or","conditions":[]}`,
			expected: false,
		},
		{
			name:     "nested and of or",
			rule:     `{"type":"and","conditions":[{"type":"or","conditions":[{"type":"item_check","item":"Hammer"},{"type":"item_check","item":"Hookshot"}]},{"type":"count_check","item":"Bottle","count":2}]}`,
			expected: true,
		},
		{
			name:     "unknown rule type is false",
			rule:     `{"type":"count","item":"Bottle"}`,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := mustParseRule(t, tt.rule)
			if got := Evaluate(r, ctx); got != tt.expected {
				t.Errorf("Evaluate(%s) = %v, want %v", tt.rule, got, tt.expected)
			}
		})
	}
}

func TestEvaluate_NilRuleIsTrue(t *testing.T) {
	if !Evaluate(nil, testContext(nil, nil)) {
		t.Error("nil rule should be vacuously true")
	}
}

func TestEvaluate_ShortCircuit(t *testing.T) {
	calls := 0
	reg := NewRegistry(nil)
	reg.RegisterHelper("counting", func(inv InventoryView, st StateView, args []any) bool {
		calls++
		return true
	})
	ctx := Context{Inventory: &mockInventory{}, State: &mockState{}, Helpers: reg}

	and := mustParseRule(t, `{"type":"and","conditions":[{"type":"constant","value":false},{"type":"helper","name":"counting"}]}`)
	if Evaluate(and, ctx) {
		t.Error("and with a false condition should be false")
	}
	if calls != 0 {
		t.Errorf("and should short-circuit; helper called %d times", calls)
	}

	or := mustParseRule(t, `{"type":"or","conditions":[{"type":"constant","value":true},{"type":"helper","name":"counting"}]}`)
	if !Evaluate(or, ctx) {
		t.Error("or with a true condition should be true")
	}
	if calls != 0 {
		t.Errorf("or should short-circuit; helper called %d times", calls)
	}
}

func TestEvaluateWithOverrides(t *testing.T) {
	inv := &mockInventory{items: map[string]bool{"Lamp": true}}
	ctx := testContext(inv, nil)

	expr := mustParseRule(t, `{"type":"and","conditions":[{"type":"item_check","item":"Lamp"},{"type":"item_check","item":"Hammer"}]}`)
	if Evaluate(expr, ctx) {
		t.Fatal("expression should be false without Hammer")
	}

	hammer := mustParseRule(t, `{"type":"item_check","item":"Hammer"}`)
	forced := EvaluateWithOverrides(expr, ctx, map[LeafKey]bool{KeyFor(hammer): true})
	if !forced {
		t.Error("forcing the missing leaf true should make the expression true")
	}

	lamp := mustParseRule(t, `{"type":"item_check","item":"Lamp"}`)
	broken := EvaluateWithOverrides(expr, ctx, map[LeafKey]bool{KeyFor(lamp): false})
	if broken {
		t.Error("forcing a held leaf false should keep the expression false")
	}
}

func TestOperand_UnmarshalJSON(t *testing.T) {
	var num Operand
	if err := json.Unmarshal([]byte(`2.5`), &num); err != nil {
		t.Fatalf("failed to unmarshal literal operand: %v", err)
	}
	if num.Rule != nil || num.Literal != 2.5 {
		t.Errorf("expected literal 2.5, got rule=%v literal=%v", num.Rule, num.Literal)
	}

	var nested Operand
	if err := json.Unmarshal([]byte(`{"type":"item_check","item":"Bow"}`), &nested); err != nil {
		t.Fatalf("failed to unmarshal rule operand: %v", err)
	}
	if nested.Rule == nil || nested.Rule.Item != "Bow" {
		t.Errorf("expected nested rule operand, got %+v", nested)
	}

	var bad Operand
	if err := json.Unmarshal([]byte(`"Bow"`), &bad); err == nil {
		t.Error("expected error for string operand")
	}
}

func TestKeyFor_HelperArgsDistinguishCalls(t *testing.T) {
	a := mustParseRule(t, `{"type":"helper","name":"has_all","args":["Hookshot"]}`)
	b := mustParseRule(t, `{"type":"helper","name":"has_all","args":["Hammer"]}`)
	if KeyFor(a) == KeyFor(b) {
		t.Error("helper calls with different args should have distinct identities")
	}

	c := mustParseRule(t, `{"type":"helper","name":"has_all","args":["Hookshot"]}`)
	if KeyFor(a) != KeyFor(c) {
		t.Error("identical helper calls should share an identity")
	}
}

func TestCollectLeaves(t *testing.T) {
	expr := mustParseRule(t, `{"type":"and","conditions":[
		{"type":"item_check","item":"A"},
		{"type":"or","conditions":[
			{"type":"item_check","item":"B"},
			{"type":"comparison","left":{"type":"count_check","item":"C"},"op":">=","right":1}
		]}
	]}`)

	leaves := CollectLeaves(expr)
	if len(leaves) != 3 {
		t.Fatalf("expected 3 leaves, got %d", len(leaves))
	}
	// A comparison is one leaf even with a nested rule operand.
	if leaves[2].Type != TypeComparison {
		t.Errorf("expected third leaf to be the comparison, got %s", leaves[2].Type)
	}
}
