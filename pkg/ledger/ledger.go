package ledger

// Ledger holds the non-inventory state rules can read: user-set
// flags, engine-granted events, and the opaque settings consumed by
// helper functions. Events are semantically a subtype of flag; they
// are granted only by reaching an event location, never by a user
// action, and HasFlag sees both.
type Ledger struct {
	flags    map[string]bool
	events   map[string]bool
	settings map[string]any

	onChange func()
}

// New creates a ledger with the given opaque settings. Settings are
// read-only for the lifetime of the session; the engine never
// interprets them, only helper implementations do.
func New(settings map[string]any) *Ledger {
	return &Ledger{
		flags:    make(map[string]bool),
		events:   make(map[string]bool),
		settings: settings,
	}
}

// SetOnChange registers the change notification fired after every
// flag or event mutation.
func (l *Ledger) SetOnChange(fn func()) {
	l.onChange = fn
}

func (l *Ledger) notify() {
	if l.onChange != nil {
		l.onChange()
	}
}

// HasFlag reports whether a flag is set. Granted events satisfy flag
// checks too, so rules can gate on events without a separate node
// kind.
func (l *Ledger) HasFlag(flag string) bool {
	return l.flags[flag] || l.events[flag]
}

// SetFlag sets or clears a user flag.
func (l *Ledger) SetFlag(flag string, value bool) {
	if value {
		l.flags[flag] = true
	} else {
		delete(l.flags, flag)
	}
	l.notify()
}

// HasEvent reports whether an event has been granted.
func (l *Ledger) HasEvent(event string) bool {
	return l.events[event]
}

// GrantEvent records an event. It is idempotent and reports whether
// the event was newly granted; the reachability fixed point stops
// when a full pass grants nothing new.
func (l *Ledger) GrantEvent(event string) bool {
	if l.events[event] {
		return false
	}
	l.events[event] = true
	l.notify()
	return true
}

// Events returns the granted event names.
func (l *Ledger) Events() []string {
	names := make([]string, 0, len(l.events))
	for name := range l.events {
		names = append(names, name)
	}
	return names
}

// Setting exposes one opaque setting to helper implementations.
func (l *Ledger) Setting(key string) (any, bool) {
	value, ok := l.settings[key]
	return value, ok
}

// Snapshot is the persistable form of a ledger. Settings are not
// persisted; they come from the ruleset on rehydration.
type Snapshot struct {
	Flags  []string `json:"flags,omitempty"`
	Events []string `json:"events,omitempty"`
}

// Snapshot captures flags and granted events.
func (l *Ledger) Snapshot() Snapshot {
	var snap Snapshot
	for flag, set := range l.flags {
		if set {
			snap.Flags = append(snap.Flags, flag)
		}
	}
	for event := range l.events {
		snap.Events = append(snap.Events, event)
	}
	return snap
}

// Restore replaces flags and events from a snapshot, firing a single
// notification.
func (l *Ledger) Restore(snap Snapshot) {
	l.flags = make(map[string]bool, len(snap.Flags))
	for _, flag := range snap.Flags {
		l.flags[flag] = true
	}
	l.events = make(map[string]bool, len(snap.Events))
	for _, event := range snap.Events {
		l.events[event] = true
	}
	l.notify()
}
