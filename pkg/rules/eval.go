package rules

import (
	"log/slog"
)

// InventoryView provides the minimal inventory surface needed to
// evaluate rules. This avoids an import cycle with the inventory
// package.
type InventoryView interface {
	Has(item string) bool
	Count(item string) int
	CountGroup(group string) int
}

// StateView provides the minimal state-ledger surface needed to
// evaluate rules.
type StateView interface {
	HasFlag(flag string) bool
	Setting(key string) (any, bool)
}

// Context bundles everything a rule evaluation reads. Evaluation
// never mutates any of it.
type Context struct {
	Inventory InventoryView
	State     StateView
	Helpers   *Registry
	Logger    *slog.Logger
}

func (ctx Context) logger() *slog.Logger {
	if ctx.Logger != nil {
		return ctx.Logger
	}
	return slog.Default()
}

// Evaluate resolves a rule to a boolean against the context.
// A nil rule is vacuously true. Unknown node types and unregistered
// helpers evaluate to false with a diagnostic; they never error.
func Evaluate(r *Rule, ctx Context) bool {
	return evaluate(r, ctx, nil)
}

// EvaluateWithOverrides evaluates like Evaluate, except leaves whose
// identity appears in overrides are forced to the given value instead
// of being resolved. This is the counterfactual evaluator behind leaf
// classification.
func EvaluateWithOverrides(r *Rule, ctx Context, overrides map[LeafKey]bool) bool {
	return evaluate(r, ctx, overrides)
}

func evaluate(r *Rule, ctx Context, overrides map[LeafKey]bool) bool {
	if r == nil {
		return true
	}

	if overrides != nil && IsLeaf(r) {
		if forced, ok := overrides[KeyFor(r)]; ok {
			return forced
		}
	}

	switch r.Type {
	case TypeConstant:
		return r.Value

	case TypeItemCheck:
		return ctx.Inventory.Has(r.Item)

	case TypeCountCheck:
		return ctx.Inventory.Count(r.Item) >= r.threshold()

	case TypeGroupCheck:
		return ctx.Inventory.CountGroup(r.Group) >= r.threshold()

	case TypeComparison:
		return evaluateComparison(r, ctx, overrides)

	case TypeStateFlag:
		return ctx.State.HasFlag(r.Flag)

	case TypeHelper:
		return ctx.Helpers.CallHelper(r.Name, r.Args, ctx)

	case TypeStateMethod:
		return ctx.Helpers.CallStateMethod(r.Method, r.Args, ctx)

	case TypeAnd:
		// Empty conjunction is vacuously true.
		for _, c := range r.Conditions {
			if !evaluate(c, ctx, overrides) {
				return false
			}
		}
		return true

	case TypeOr:
		// Empty disjunction is false.
		for _, c := range r.Conditions {
			if evaluate(c, ctx, overrides) {
				return true
			}
		}
		return false

	default:
		ctx.logger().Warn("Unknown rule type, evaluating as false", "type", r.Type)
		return false
	}
}

// evaluateComparison resolves both operands and applies the operator.
// A nested rule operand resolves to 1 or 0 from its boolean result.
func evaluateComparison(r *Rule, ctx Context, overrides map[LeafKey]bool) bool {
	left, ok := resolveOperand(r.Left, ctx, overrides)
	if !ok {
		ctx.logger().Warn("Comparison missing left operand, evaluating as false")
		return false
	}
	right, ok := resolveOperand(r.Right, ctx, overrides)
	if !ok {
		ctx.logger().Warn("Comparison missing right operand, evaluating as false")
		return false
	}

	switch r.Op {
	case ">=":
		return left >= right
	case ">":
		return left > right
	case "<=":
		return left <= right
	case "<":
		return left < right
	case "==":
		return left == right
	default:
		ctx.logger().Warn("Unknown comparison operator, evaluating as false", "op", r.Op)
		return false
	}
}

func resolveOperand(o *Operand, ctx Context, overrides map[LeafKey]bool) (float64, bool) {
	if o == nil {
		return 0, false
	}
	if o.Rule == nil {
		return o.Literal, true
	}
	if evaluate(o.Rule, ctx, overrides) {
		return 1, true
	}
	return 0, true
}
