package ruleset

import (
	"strings"
	"testing"
)

const minimalRuleset = `{
	"name": "Minimal",
	"items": {"Key": {"advancement": true}},
	"regions": {
		"Start": {
			"locations": [{"name": "First Chest"}],
			"exits": [{"name": "Door", "target_region": "Hall", "rule": {"type": "item_check", "item": "Key"}}]
		},
		"Hall": {}
	}
}`

func TestLoad_Valid(t *testing.T) {
	rs, err := Load([]byte(minimalRuleset))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if rs.Name != "Minimal" {
		t.Errorf("Name = %q, want Minimal", rs.Name)
	}
	if len(rs.Regions) != 2 {
		t.Errorf("expected 2 regions, got %d", len(rs.Regions))
	}

	// No start_regions section falls back to the default.
	starts := rs.Starts()
	if len(starts) != 1 || starts[0] != DefaultStartRegion {
		t.Errorf("Starts() = %v, want [%s]", starts, DefaultStartRegion)
	}
}

func TestLoad_RejectsUnknownFields(t *testing.T) {
	data := `{
		"name": "Bad",
		"items": {"Key": {}},
		"regions": {"Start": {}},
		"dungeons": {}
	}`
	if _, err := Load([]byte(data)); err == nil {
		t.Error("expected strict decoding to reject an unknown top-level field")
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	if _, err := Load([]byte(`{"name": `)); err == nil {
		t.Error("expected error for truncated JSON")
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr string
	}{
		{
			name:    "empty regions",
			data:    `{"name": "X", "items": {"Key": {}}, "regions": {}}`,
			wantErr: "regions section is required",
		},
		{
			name:    "empty items",
			data:    `{"name": "X", "items": {}, "regions": {"Start": {}}}`,
			wantErr: "items section is required",
		},
		{
			name: "exit targets undeclared region",
			data: `{"name": "X", "items": {"Key": {}}, "regions": {
				"Start": {"exits": [{"name": "Door", "target_region": "Nowhere"}]}
			}}`,
			wantErr: `targets undeclared region "Nowhere"`,
		},
		{
			name: "entrance names undeclared source",
			data: `{"name": "X", "items": {"Key": {}}, "regions": {
				"Start": {"entrances": [{"name": "Back Door", "source_region": "Nowhere"}]}
			}}`,
			wantErr: `names undeclared source region "Nowhere"`,
		},
		{
			name: "unknown rule type",
			data: `{"name": "X", "items": {"Key": {}}, "regions": {
				"Start": {"locations": [{"name": "Chest", "access_rule": {"type": "count", "item": "Key"}}]}
			}}`,
			wantErr: `unknown rule type "count"`,
		},
		{
			name: "unknown comparison operator",
			data: `{"name": "X", "items": {"Key": {}}, "regions": {
				"Start": {"locations": [{"name": "Chest", "access_rule": {"type": "comparison", "left": 1, "op": "!=", "right": 0}}]}
			}}`,
			wantErr: `unknown comparison operator "!="`,
		},
		{
			name: "progression level below one",
			data: `{"name": "X", "items": {"Sword": {}},
				"progression_mapping": {"Sword": {"items": [{"name": "Blade", "level": 0}]}},
				"regions": {"Start": {}}}`,
			wantErr: "levels start at 1",
		},
		{
			name: "progression references unknown base",
			data: `{"name": "X", "items": {"Key": {}},
				"progression_mapping": {"Sword": {"items": [{"name": "Blade", "level": 1}]}},
				"regions": {"Start": {}}}`,
			wantErr: `unknown base item "Sword"`,
		},
		{
			name: "item references undeclared group",
			data: `{"name": "X", "items": {"Key": {"groups": ["Keys"]}},
				"item_groups": ["Swords"],
				"regions": {"Start": {}}}`,
			wantErr: `references undeclared group "Keys"`,
		},
		{
			name: "start region undeclared",
			data: `{"name": "X", "items": {"Key": {}},
				"regions": {"Start": {}},
				"start_regions": ["Elsewhere"]}`,
			wantErr: `start region "Elsewhere" is not declared`,
		},
		{
			name: "event location without event name",
			data: `{"name": "X", "items": {"Key": {}}, "regions": {
				"Start": {"locations": [{"name": "Lever", "item": {"name": "", "type": "Event"}}]}
			}}`,
			wantErr: "has no event name",
		},
		{
			name: "location without a name",
			data: `{"name": "X", "items": {"Key": {}}, "regions": {
				"Start": {"locations": [{"name": ""}]}
			}}`,
			wantErr: "location without a name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load([]byte(tt.data))
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestValidate_AccumulatesErrors(t *testing.T) {
	data := `{"name": "X", "items": {"Key": {}}, "regions": {
		"Start": {
			"locations": [{"name": "", "access_rule": {"type": "count", "item": "Key"}}],
			"exits": [{"name": "Door", "target_region": "Nowhere"}]
		}
	}}`
	_, err := Load([]byte(data))
	if err == nil {
		t.Fatal("expected validation errors")
	}
	for _, fragment := range []string{"location without a name", "unknown rule type", "undeclared region"} {
		if !strings.Contains(err.Error(), fragment) {
			t.Errorf("accumulated error missing %q: %v", fragment, err)
		}
	}
}

func TestProgression_Flattens(t *testing.T) {
	data := `{"name": "X", "items": {"Sword": {}},
		"progression_mapping": {"Sword": {"items": [
			{"name": "Fighter Sword", "level": 1},
			{"name": "Master Sword", "level": 2}
		]}},
		"regions": {"Start": {}}}`
	rs, err := Load([]byte(data))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	prog := rs.Progression()
	tiers, ok := prog["Sword"]
	if !ok || len(tiers) != 2 {
		t.Fatalf("Progression() = %v, want 2 Sword tiers", prog)
	}
	if tiers[1].Name != "Master Sword" || tiers[1].Level != 2 {
		t.Errorf("unexpected tier: %+v", tiers[1])
	}
}

func TestLocation_IsEvent(t *testing.T) {
	event := Location{Name: "Lever", Item: &Item{Name: "Lever Pulled", Type: EventItemType}}
	if !event.IsEvent() {
		t.Error("location with an Event item should be an event location")
	}

	chest := Location{Name: "Chest", Item: &Item{Name: "Rupees"}}
	if chest.IsEvent() {
		t.Error("ordinary reward should not be an event location")
	}

	empty := Location{Name: "Empty"}
	if empty.IsEvent() {
		t.Error("location without an item should not be an event location")
	}
}
