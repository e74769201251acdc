package rules

import (
	"encoding/json"
	"fmt"
)

// Rule node types as they appear in ruleset JSON.
const (
	TypeConstant    = "constant"
	TypeItemCheck   = "item_check"
	TypeCountCheck  = "count_check"
	TypeGroupCheck  = "group_check"
	TypeComparison  = "comparison"
	TypeStateFlag   = "state_flag"
	TypeHelper      = "helper"
	TypeStateMethod = "state_method"
	TypeAnd         = "and"
	TypeOr          = "or"
)

// Rule is a single node of a boolean access rule. Nodes are data-only:
// the "type" discriminator decides which of the other fields are
// meaningful. A nil *Rule is vacuously true.
type Rule struct {
	Type string `json:"type"`

	// constant
	Value bool `json:"value,omitempty"`

	// item_check, count_check
	Item  string `json:"item,omitempty"`
	Count int    `json:"count,omitempty"` // defaults to 1 when omitted

	// group_check
	Group string `json:"group,omitempty"`

	// comparison
	Left  *Operand `json:"left,omitempty"`
	Right *Operand `json:"right,omitempty"`
	Op    string   `json:"op,omitempty"`

	// state_flag
	Flag string `json:"flag,omitempty"`

	// helper, state_method
	Name   string `json:"name,omitempty"`
	Method string `json:"method,omitempty"`
	Args   []any  `json:"args,omitempty"`

	// and, or
	Conditions []*Rule `json:"conditions,omitempty"`
}

// Operand is one side of a comparison. It can be either a numeric
// literal or a nested rule node, so it needs custom unmarshaling
// (same pattern as dual-format fields elsewhere in the wire contract).
type Operand struct {
	Rule    *Rule
	Literal float64
}

// UnmarshalJSON accepts either a bare number or a rule object.
func (o *Operand) UnmarshalJSON(data []byte) error {
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		o.Literal = num
		o.Rule = nil
		return nil
	}

	var r Rule
	if err := json.Unmarshal(data, &r); err != nil {
		return fmt.Errorf("comparison operand must be a number or a rule node: %w", err)
	}
	o.Rule = &r
	return nil
}

// MarshalJSON writes the literal form when no rule is nested.
func (o Operand) MarshalJSON() ([]byte, error) {
	if o.Rule != nil {
		return json.Marshal(o.Rule)
	}
	return json.Marshal(o.Literal)
}

// LeafKey identifies a rule leaf by its type and key fields.
// Helper and state_method leaves include their serialized arguments,
// so the same helper called with different arguments is a distinct
// requirement.
type LeafKey string

// KeyFor builds the identity key for a rule node.
func KeyFor(r *Rule) LeafKey {
	if r == nil {
		return LeafKey("")
	}
	switch r.Type {
	case TypeConstant:
		return LeafKey(fmt.Sprintf("constant:%t", r.Value))
	case TypeItemCheck:
		return LeafKey("item_check:" + r.Item)
	case TypeCountCheck:
		return LeafKey(fmt.Sprintf("count_check:%s:%d", r.Item, r.threshold()))
	case TypeGroupCheck:
		return LeafKey(fmt.Sprintf("group_check:%s:%d", r.Group, r.threshold()))
	case TypeStateFlag:
		return LeafKey("state_flag:" + r.Flag)
	case TypeHelper:
		return LeafKey("helper:" + r.Name + ":" + serializeArgs(r.Args))
	case TypeStateMethod:
		return LeafKey("state_method:" + r.Method + ":" + serializeArgs(r.Args))
	case TypeComparison:
		data, _ := json.Marshal(r)
		return LeafKey("comparison:" + string(data))
	default:
		data, _ := json.Marshal(r)
		return LeafKey(r.Type + ":" + string(data))
	}
}

func serializeArgs(args []any) string {
	if len(args) == 0 {
		return "[]"
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Sprintf("%v", args)
	}
	return string(data)
}

// threshold returns the effective count for count_check/group_check.
// A count of zero means the field was omitted and defaults to 1.
func (r *Rule) threshold() int {
	if r.Count <= 0 {
		return 1
	}
	return r.Count
}

// IsLeaf reports whether a node is a leaf for counterfactual
// classification. Only and/or are composite; a comparison counts as
// one leaf even when it nests rule operands.
func IsLeaf(r *Rule) bool {
	if r == nil {
		return false
	}
	return r.Type != TypeAnd && r.Type != TypeOr
}

// CollectLeaves returns every leaf of the expression in evaluation
// order. Duplicate identities are preserved; callers dedup by KeyFor.
func CollectLeaves(r *Rule) []*Rule {
	if r == nil {
		return nil
	}
	if IsLeaf(r) {
		return []*Rule{r}
	}
	var leaves []*Rule
	for _, c := range r.Conditions {
		leaves = append(leaves, CollectLeaves(c)...)
	}
	return leaves
}
