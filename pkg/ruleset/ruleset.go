package ruleset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jwebster45206/logic-tracker/pkg/inventory"
	"github.com/jwebster45206/logic-tracker/pkg/rules"
)

// DefaultStartRegion is used when a ruleset omits start_regions.
const DefaultStartRegion = "Start"

// EventItemType marks a location whose reward is a named event
// rather than a tracked inventory item.
const EventItemType = "Event"

// Item is the reward placed at a location.
type Item struct {
	Name string `json:"name"`
	Type string `json:"type,omitempty"` // "Event" for event locations
}

// Location is a single check within a region.
type Location struct {
	Name       string      `json:"name"`
	AccessRule *rules.Rule `json:"access_rule,omitempty"`
	Item       *Item       `json:"item,omitempty"`
}

// IsEvent reports whether reaching this location grants an event.
func (l Location) IsEvent() bool {
	return l.Item != nil && l.Item.Type == EventItemType
}

// Exit is a rule-gated connection out of a region.
type Exit struct {
	Name         string      `json:"name,omitempty"`
	TargetRegion string      `json:"target_region"`
	Rule         *rules.Rule `json:"rule,omitempty"`
}

// Entrance is the redundant incoming view of a connection: the same
// edge a source region declares as an exit. Load-time normalization
// collapses the two views into one directed edge list.
type Entrance struct {
	Name         string      `json:"name,omitempty"`
	SourceRegion string      `json:"source_region"`
	Rule         *rules.Rule `json:"rule,omitempty"`
}

// Region is one node of the region graph.
type Region struct {
	Locations    []Location    `json:"locations,omitempty"`
	Exits        []Exit        `json:"exits,omitempty"`
	Entrances    []Entrance    `json:"entrances,omitempty"`
	RegionRules  []*rules.Rule `json:"region_rules,omitempty"`
	IsLightWorld bool          `json:"is_light_world,omitempty"`
	IsDarkWorld  bool          `json:"is_dark_world,omitempty"`
	Shop         bool          `json:"shop,omitempty"`
}

// ProgressionEntry lists the upgrade tiers of one base item.
type ProgressionEntry struct {
	Items []inventory.UpgradeTier `json:"items"`
}

// Ruleset is the complete wire contract loaded once per session type.
// It is immutable after load; only inventory and ledger state mutate
// during play.
type Ruleset struct {
	Name               string                       `json:"name"`
	Items              map[string]inventory.ItemMeta `json:"items"`
	ItemGroups         []string                     `json:"item_groups,omitempty"`
	ProgressionMapping map[string]ProgressionEntry  `json:"progression_mapping,omitempty"`
	Regions            map[string]Region            `json:"regions"`
	StartRegions       []string                     `json:"start_regions,omitempty"`
	Settings           map[string]any               `json:"settings,omitempty"`
}

// Load strictly decodes and validates a ruleset. Malformed or
// structurally incomplete data is fatal here; the engine refuses to
// operate on partial data.
func Load(data []byte) (*Ruleset, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()

	var rs Ruleset
	if err := decoder.Decode(&rs); err != nil {
		return nil, fmt.Errorf("failed to decode ruleset: %w", err)
	}

	if err := rs.Validate(); err != nil {
		return nil, err
	}
	return &rs, nil
}

// Starts returns the configured start regions, falling back to the
// default when the section is absent.
func (rs *Ruleset) Starts() []string {
	if len(rs.StartRegions) > 0 {
		return rs.StartRegions
	}
	return []string{DefaultStartRegion}
}

// Progression flattens the progression mapping into the form the
// inventory consumes.
func (rs *Ruleset) Progression() map[string][]inventory.UpgradeTier {
	out := make(map[string][]inventory.UpgradeTier, len(rs.ProgressionMapping))
	for base, entry := range rs.ProgressionMapping {
		out[base] = entry.Items
	}
	return out
}

// Validate checks structural integrity and accumulates every problem
// found rather than stopping at the first.
func (rs *Ruleset) Validate() error {
	var errs []string

	if len(rs.Regions) == 0 {
		errs = append(errs, "regions section is required and must not be empty")
	}
	if len(rs.Items) == 0 {
		errs = append(errs, "items section is required and must not be empty")
	}

	groups := make(map[string]bool, len(rs.ItemGroups))
	for _, g := range rs.ItemGroups {
		groups[g] = true
	}
	for item, meta := range rs.Items {
		for _, g := range meta.Groups {
			if len(rs.ItemGroups) > 0 && !groups[g] {
				errs = append(errs, fmt.Sprintf("item %q references undeclared group %q", item, g))
			}
		}
	}

	for base, entry := range rs.ProgressionMapping {
		if _, ok := rs.Items[base]; !ok {
			errs = append(errs, fmt.Sprintf("progression mapping references unknown base item %q", base))
		}
		for _, tier := range entry.Items {
			if tier.Level < 1 {
				errs = append(errs, fmt.Sprintf("progression tier %q of %q has level %d; levels start at 1", tier.Name, base, tier.Level))
			}
		}
	}

	for name, region := range rs.Regions {
		for _, exit := range region.Exits {
			if _, ok := rs.Regions[exit.TargetRegion]; !ok {
				errs = append(errs, fmt.Sprintf("region %q exit %q targets undeclared region %q", name, exit.Name, exit.TargetRegion))
			}
			if err := validateRule(exit.Rule); err != nil {
				errs = append(errs, fmt.Sprintf("region %q exit %q: %v", name, exit.Name, err))
			}
		}
		for _, entrance := range region.Entrances {
			if _, ok := rs.Regions[entrance.SourceRegion]; !ok {
				errs = append(errs, fmt.Sprintf("region %q entrance %q names undeclared source region %q", name, entrance.Name, entrance.SourceRegion))
			}
		}
		for _, loc := range region.Locations {
			if loc.Name == "" {
				errs = append(errs, fmt.Sprintf("region %q has a location without a name", name))
			}
			if loc.IsEvent() && loc.Item.Name == "" {
				errs = append(errs, fmt.Sprintf("event location %q in region %q has no event name", loc.Name, name))
			}
			if err := validateRule(loc.AccessRule); err != nil {
				errs = append(errs, fmt.Sprintf("location %q in region %q: %v", loc.Name, name, err))
			}
		}
		for _, r := range region.RegionRules {
			if err := validateRule(r); err != nil {
				errs = append(errs, fmt.Sprintf("region %q region rule: %v", name, err))
			}
		}
	}

	for _, start := range rs.StartRegions {
		if _, ok := rs.Regions[start]; !ok {
			errs = append(errs, fmt.Sprintf("start region %q is not declared", start))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid ruleset:\n%s", strings.Join(errs, "\n"))
	}
	return nil
}

// validateRule walks a rule tree and rejects unknown node kinds at
// load time. Unknown kinds would still evaluate to false safely, but
// surfacing them during validation catches data typos early.
func validateRule(r *rules.Rule) error {
	if r == nil {
		return nil
	}
	switch r.Type {
	case rules.TypeConstant, rules.TypeItemCheck, rules.TypeCountCheck,
		rules.TypeGroupCheck, rules.TypeStateFlag, rules.TypeHelper,
		rules.TypeStateMethod:
		return nil
	case rules.TypeComparison:
		for _, o := range []*rules.Operand{r.Left, r.Right} {
			if o == nil {
				return fmt.Errorf("comparison is missing an operand")
			}
			if o.Rule != nil {
				if err := validateRule(o.Rule); err != nil {
					return err
				}
			}
		}
		switch r.Op {
		case ">=", ">", "<=", "<", "==":
			return nil
		default:
			return fmt.Errorf("unknown comparison operator %q", r.Op)
		}
	case rules.TypeAnd, rules.TypeOr:
		for _, c := range r.Conditions {
			if err := validateRule(c); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown rule type %q", r.Type)
	}
}
