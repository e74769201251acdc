package tracker

import (
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/logic-tracker/pkg/inventory"
	"github.com/jwebster45206/logic-tracker/pkg/ledger"
	"github.com/jwebster45206/logic-tracker/pkg/rules"
	"github.com/jwebster45206/logic-tracker/pkg/ruleset"
)

// Session owns all mutable state for one tracked playthrough: the
// inventory, the state ledger, and the reachability cache, bound to
// one immutable ruleset graph. Sessions are single-threaded by
// contract; callers serialize access per session.
type Session struct {
	ID          uuid.UUID `json:"id"`
	RulesetName string    `json:"ruleset"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Inventory *inventory.Inventory `json:"-"`
	Ledger    *ledger.Ledger       `json:"-"`
	Graph     *ruleset.Graph       `json:"-"`

	registry *rules.Registry
	logger   *slog.Logger

	// Reachability cache. Any inventory or ledger mutation marks it
	// invalid via the change hooks; the next query recomputes.
	reachable  map[string]bool
	cacheValid bool
	computing  bool

	// Accessible-location set from the previous query, for the
	// newly-reachable diff.
	prevAccessible map[string]bool

	settings map[string]any
}

// NewSession creates a fresh session for a loaded ruleset.
func NewSession(rulesetName string, rs *ruleset.Ruleset, registry *rules.Registry, logger *slog.Logger) *Session {
	s := &Session{
		ID:          uuid.New(),
		RulesetName: rulesetName,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		Inventory:   inventory.New(rs.Items, rs.Progression()),
		Ledger:      ledger.New(rs.Settings),
		Graph:       ruleset.NewGraph(rs),
		registry:    registry,
		logger:      logger,
		settings:    rs.Settings,
	}
	s.Inventory.SetOnChange(s.Invalidate)
	s.Ledger.SetOnChange(s.Invalidate)
	return s
}

// Context builds the evaluation context rules run against.
func (s *Session) Context() rules.Context {
	return rules.Context{
		Inventory: s.Inventory,
		State:     s.Ledger,
		Helpers:   s.registry,
		Logger:    s.logger,
	}
}

// Invalidate marks the reachability cache stale. Mutators call it via
// the inventory/ledger change hooks; it is cheap and idempotent.
func (s *Session) Invalidate() {
	s.cacheValid = false
	s.UpdatedAt = time.Now()
}

// AddItem increments an item count and invalidates the cache.
func (s *Session) AddItem(item string) {
	s.Inventory.AddItem(item)
}

// SetExcluded toggles exclusion-set membership for an item.
func (s *Session) SetExcluded(item string, excluded bool) {
	s.Inventory.SetExcluded(item, excluded)
}

// SetFlag sets or clears a user flag.
func (s *Session) SetFlag(flag string, value bool) {
	s.Ledger.SetFlag(flag, value)
}

// BeginBatch stages item additions so a bulk setup invalidates the
// cache once on commit instead of per item.
func (s *Session) BeginBatch() {
	s.Inventory.BeginBatch(true)
}

// CommitBatch applies staged additions atomically.
func (s *Session) CommitBatch() {
	s.Inventory.CommitBatch()
}

// ClearState discards all inventory and ledger state, keeping the
// graph. The session is as fresh as at creation.
func (s *Session) ClearState() {
	s.Inventory.Restore(inventory.Snapshot{})
	s.Ledger.Restore(ledger.Snapshot{})
	s.prevAccessible = nil
	s.Invalidate()
}

// Snapshot is the persistable form of a session. The reachability
// cache is derived state and deliberately not part of it; the
// accessible-location set is kept so the newly-reachable diff works
// across rehydrations.
type Snapshot struct {
	ID         uuid.UUID          `json:"id"`
	Ruleset    string             `json:"ruleset"`
	Inventory  inventory.Snapshot `json:"inventory"`
	Ledger     ledger.Snapshot    `json:"ledger"`
	Accessible []string           `json:"accessible,omitempty"`
	CreatedAt  time.Time          `json:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at"`
}

// Snapshot captures the session for storage.
func (s *Session) Snapshot() *Snapshot {
	var accessible []string
	for name := range s.prevAccessible {
		accessible = append(accessible, name)
	}
	sort.Strings(accessible)
	return &Snapshot{
		ID:         s.ID,
		Ruleset:    s.RulesetName,
		Inventory:  s.Inventory.Snapshot(),
		Ledger:     s.Ledger.Snapshot(),
		Accessible: accessible,
		CreatedAt:  s.CreatedAt,
		UpdatedAt:  s.UpdatedAt,
	}
}

// Restore rehydrates a session from a stored snapshot. The cache
// starts invalid and recomputes on the first query.
func (s *Session) Restore(snap *Snapshot) {
	s.ID = snap.ID
	s.RulesetName = snap.Ruleset
	s.CreatedAt = snap.CreatedAt
	s.UpdatedAt = snap.UpdatedAt
	s.Inventory.Restore(snap.Inventory)
	s.Ledger.Restore(snap.Ledger)
	s.prevAccessible = make(map[string]bool, len(snap.Accessible))
	for _, name := range snap.Accessible {
		s.prevAccessible[name] = true
	}
}
