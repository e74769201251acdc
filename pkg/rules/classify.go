package rules

// Category is the counterfactual classification of a single leaf's
// contribution to an expression's outcome.
type Category string

const (
	// The leaf is false, the expression is false, and flipping the
	// leaf alone would make the expression true.
	PrimaryBlocker Category = "primary_blocker"
	// The leaf is false and the expression stays false even with the
	// leaf flipped: something else also blocks.
	SecondaryBlocker Category = "secondary_blocker"
	// The leaf is false but the expression is true anyway.
	TertiaryBlocker Category = "tertiary_blocker"
	// The leaf is true, the expression is true, and flipping the leaf
	// alone would break it.
	PrimaryRequirement Category = "primary_requirement"
	// The leaf is true and the expression survives flipping it.
	SecondaryRequirement Category = "secondary_requirement"
	// The leaf is true but the expression is false regardless.
	TertiaryRequirement Category = "tertiary_requirement"
)

// Finding is one classified leaf of an expression.
type Finding struct {
	Key      LeafKey  `json:"key"`
	Leaf     *Rule    `json:"leaf"`
	Value    bool     `json:"value"`
	Category Category `json:"category"`
}

// Classify determines a leaf's category within an expression by
// re-evaluating the expression with that one leaf forced to the
// negation of its real value. Every other node keeps its real value.
func Classify(expr, leaf *Rule, ctx Context) Category {
	value := Evaluate(leaf, ctx)
	real := Evaluate(expr, ctx)

	if !value {
		if real {
			return TertiaryBlocker
		}
		flipped := EvaluateWithOverrides(expr, ctx, map[LeafKey]bool{KeyFor(leaf): true})
		if flipped {
			return PrimaryBlocker
		}
		return SecondaryBlocker
	}

	if !real {
		return TertiaryRequirement
	}
	flipped := EvaluateWithOverrides(expr, ctx, map[LeafKey]bool{KeyFor(leaf): false})
	if !flipped {
		return PrimaryRequirement
	}
	return SecondaryRequirement
}

// ClassifyRule classifies every distinct leaf of an expression.
// Leaves are deduplicated by identity: the same item_check appearing
// twice yields one finding, while a helper called with different
// arguments yields one finding per argument list.
func ClassifyRule(expr *Rule, ctx Context) []Finding {
	if expr == nil {
		return nil
	}

	seen := make(map[LeafKey]bool)
	var findings []Finding
	for _, leaf := range CollectLeaves(expr) {
		key := KeyFor(leaf)
		if seen[key] {
			continue
		}
		seen[key] = true
		findings = append(findings, Finding{
			Key:      key,
			Leaf:     leaf,
			Value:    Evaluate(leaf, ctx),
			Category: Classify(expr, leaf, ctx),
		})
	}
	return findings
}
