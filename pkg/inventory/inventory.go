package inventory

// UpgradeTier is one step of a progressive item: holding Level or
// more of the base item grants Name and everything in Provides.
type UpgradeTier struct {
	Name     string   `json:"name"`
	Level    int      `json:"level"`
	Provides []string `json:"provides,omitempty"`
}

// ItemMeta is the static metadata a ruleset declares per item.
type ItemMeta struct {
	Groups      []string `json:"groups,omitempty"`
	Advancement bool     `json:"advancement,omitempty"`
	Priority    bool     `json:"priority,omitempty"`
	Useful      bool     `json:"useful,omitempty"`
}

// Inventory tracks collected item counts for one session, plus the
// exclusion set used for what-if queries. Progression mappings and
// item metadata come from the ruleset and never change during play.
//
// Excluded items still store their counts; reads mask them. Removing
// an item from the exclusion set restores its true count.
type Inventory struct {
	counts      map[string]int
	excluded    map[string]bool
	progression map[string][]UpgradeTier
	meta        map[string]ItemMeta

	batch      map[string]int
	batchDefer bool

	onChange func()
}

// New creates an empty inventory bound to a ruleset's item metadata
// and progression mappings.
func New(meta map[string]ItemMeta, progression map[string][]UpgradeTier) *Inventory {
	return &Inventory{
		counts:      make(map[string]int),
		excluded:    make(map[string]bool),
		progression: progression,
		meta:        meta,
	}
}

// SetOnChange registers the change notification fired after every
// committed mutation. The reachability cache invalidation hangs off
// this hook.
func (inv *Inventory) SetOnChange(fn func()) {
	inv.onChange = fn
}

func (inv *Inventory) notify() {
	if inv.onChange != nil {
		inv.onChange()
	}
}

// Has reports whether the item is effectively held: a direct count,
// or any progressive tier whose base item count meets the tier level.
// Excluded items always read as absent.
func (inv *Inventory) Has(item string) bool {
	if inv.excluded[item] {
		return false
	}
	if inv.counts[item] > 0 {
		return true
	}
	for base, tiers := range inv.progression {
		if inv.excluded[base] {
			continue
		}
		have := inv.counts[base]
		for _, tier := range tiers {
			if have < tier.Level {
				continue
			}
			if tier.Name == item {
				return true
			}
			for _, provided := range tier.Provides {
				if provided == item {
					return true
				}
			}
		}
	}
	return false
}

// Count returns the raw direct count. Progressive resolution does not
// inflate counts; only Has resolves tiers. Excluded items count zero.
func (inv *Inventory) Count(item string) int {
	if inv.excluded[item] {
		return 0
	}
	return inv.counts[item]
}

// CountGroup sums direct counts of every item whose metadata lists
// the group. An "Any"+group exclusion marker forces the whole group
// to zero.
func (inv *Inventory) CountGroup(group string) int {
	if inv.excluded["Any"+group] {
		return 0
	}
	total := 0
	for item, m := range inv.meta {
		for _, g := range m.Groups {
			if g == group {
				total += inv.Count(item)
				break
			}
		}
	}
	return total
}

// AddItem increments the item's direct count by one. During a batch
// the increment is staged and applied on CommitBatch; the change
// notification still fires per add unless the batch defers it. The
// count is stored even for excluded items; exclusion masks it at
// read time.
func (inv *Inventory) AddItem(item string) {
	if inv.batch != nil {
		inv.batch[item]++
		if !inv.batchDefer {
			inv.notify()
		}
		return
	}
	inv.counts[item]++
	inv.notify()
}

// SetExcluded adds or removes an item from the exclusion set.
func (inv *Inventory) SetExcluded(item string, excluded bool) {
	if excluded {
		inv.excluded[item] = true
	} else {
		delete(inv.excluded, item)
	}
	inv.notify()
}

// IsExcluded reports exclusion-set membership.
func (inv *Inventory) IsExcluded(item string) bool {
	return inv.excluded[item]
}

// BeginBatch starts staging AddItem calls. When deferNotify is true,
// the change notification also waits for CommitBatch, so a bulk
// setup invalidates the reachability cache exactly once.
func (inv *Inventory) BeginBatch(deferNotify bool) {
	inv.batch = make(map[string]int)
	inv.batchDefer = deferNotify
}

// CommitBatch applies all staged increments atomically and fires one
// change notification. Committing with no open batch is a no-op.
func (inv *Inventory) CommitBatch() {
	if inv.batch == nil {
		return
	}
	for item, n := range inv.batch {
		inv.counts[item] += n
	}
	inv.batch = nil
	inv.batchDefer = false
	inv.notify()
}

// Snapshot is the persistable form of an inventory.
type Snapshot struct {
	Counts   map[string]int `json:"counts,omitempty"`
	Excluded []string       `json:"excluded,omitempty"`
}

// Snapshot captures counts and exclusions. Staged batch increments
// are not included; callers commit before persisting.
func (inv *Inventory) Snapshot() Snapshot {
	snap := Snapshot{Counts: make(map[string]int, len(inv.counts))}
	for item, n := range inv.counts {
		if n > 0 {
			snap.Counts[item] = n
		}
	}
	for item := range inv.excluded {
		snap.Excluded = append(snap.Excluded, item)
	}
	return snap
}

// Restore replaces counts and exclusions from a snapshot without
// firing per-item notifications; one notification fires at the end.
func (inv *Inventory) Restore(snap Snapshot) {
	inv.counts = make(map[string]int, len(snap.Counts))
	for item, n := range snap.Counts {
		if n > 0 {
			inv.counts[item] = n
		}
	}
	inv.excluded = make(map[string]bool, len(snap.Excluded))
	for _, item := range snap.Excluded {
		inv.excluded[item] = true
	}
	inv.notify()
}
