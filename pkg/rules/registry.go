package rules

import (
	"log/slog"
)

// HelperFunc is a registered helper or state method. Helpers read
// inventory and state; they must not mutate either.
type HelperFunc func(inv InventoryView, st StateView, args []any) bool

// Registry holds the helper and state-method functions a ruleset may
// dispatch to by name. It replaces string-keyed dynamic dispatch with
// an explicit table built once at startup per supported game.
type Registry struct {
	helpers map[string]HelperFunc
	methods map[string]HelperFunc
	logger  *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		helpers: make(map[string]HelperFunc),
		methods: make(map[string]HelperFunc),
		logger:  logger,
	}
}

// RegisterHelper binds a helper name. Later registrations win.
func (reg *Registry) RegisterHelper(name string, fn HelperFunc) {
	reg.helpers[name] = fn
}

// RegisterStateMethod binds a state-method name.
func (reg *Registry) RegisterStateMethod(name string, fn HelperFunc) {
	reg.methods[name] = fn
}

// CallHelper dispatches a helper rule. An unknown name resolves to
// false with a diagnostic. A panic inside a helper implementation is
// caught at single-rule granularity and treated as false; it never
// aborts an in-progress reachability pass.
func (reg *Registry) CallHelper(name string, args []any, ctx Context) bool {
	if reg == nil {
		ctx.logger().Warn("No helper registry configured, evaluating as false", "helper", name)
		return false
	}
	fn, ok := reg.helpers[name]
	if !ok {
		reg.log(ctx).Warn("Unknown helper, evaluating as false", "helper", name)
		return false
	}
	return reg.call(ctx, "helper", name, fn, args)
}

// CallStateMethod dispatches a state_method rule with the same
// unknown-name and panic semantics as CallHelper.
func (reg *Registry) CallStateMethod(name string, args []any, ctx Context) bool {
	if reg == nil {
		ctx.logger().Warn("No helper registry configured, evaluating as false", "method", name)
		return false
	}
	fn, ok := reg.methods[name]
	if !ok {
		reg.log(ctx).Warn("Unknown state method, evaluating as false", "method", name)
		return false
	}
	return reg.call(ctx, "state_method", name, fn, args)
}

func (reg *Registry) call(ctx Context, kind, name string, fn HelperFunc, args []any) (result bool) {
	defer func() {
		if r := recover(); r != nil {
			reg.log(ctx).Error("Helper panicked, treating rule as false",
				"kind", kind, "name", name, "panic", r)
			result = false
		}
	}()
	return fn(ctx.Inventory, ctx.State, args)
}

func (reg *Registry) log(ctx Context) *slog.Logger {
	if reg.logger != nil {
		return reg.logger
	}
	return ctx.logger()
}

// DefaultRegistry returns a registry with the game-neutral helpers
// and state methods the bundled rulesets use. Game-specific trackers
// register their own on top.
func DefaultRegistry(logger *slog.Logger) *Registry {
	reg := NewRegistry(logger)

	// has_any(items...) is true when any named item is held.
	reg.RegisterHelper("has_any", func(inv InventoryView, st StateView, args []any) bool {
		for _, a := range args {
			if name, ok := a.(string); ok && inv.Has(name) {
				return true
			}
		}
		return false
	})

	// has_all(items...) is true when every named item is held.
	reg.RegisterHelper("has_all", func(inv InventoryView, st StateView, args []any) bool {
		for _, a := range args {
			name, ok := a.(string)
			if !ok || !inv.Has(name) {
				return false
			}
		}
		return true
	})

	// setting_is(key, value) compares an opaque setting to a literal.
	reg.RegisterStateMethod("setting_is", func(inv InventoryView, st StateView, args []any) bool {
		if len(args) != 2 {
			return false
		}
		key, ok := args[0].(string)
		if !ok {
			return false
		}
		value, ok := st.Setting(key)
		if !ok {
			return false
		}
		return value == args[1]
	})

	// difficulty_at_most(n) reads the numeric "difficulty" setting.
	reg.RegisterStateMethod("difficulty_at_most", func(inv InventoryView, st StateView, args []any) bool {
		if len(args) != 1 {
			return false
		}
		limit, ok := toFloat(args[0])
		if !ok {
			return false
		}
		value, ok := st.Setting("difficulty")
		if !ok {
			return false
		}
		current, ok := toFloat(value)
		return ok && current <= limit
	})

	return reg
}

// toFloat normalizes the numeric types JSON decoding produces.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
