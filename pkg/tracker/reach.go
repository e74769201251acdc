package tracker

import (
	"sort"

	"github.com/jwebster45206/logic-tracker/pkg/rules"
)

// ComputeReachableRegions returns the set of regions reachable from
// the start regions under the current inventory and ledger. Results
// are cached until the next mutation.
//
// The computation interleaves BFS passes with event collection:
// reaching an event location grants its event, which may satisfy
// state_flag rules on further edges, so passes repeat until a full
// pass grants nothing new. Within one computation the reachable set
// and the event set only grow, which bounds the loop by the number
// of event locations plus one.
func (s *Session) ComputeReachableRegions() map[string]bool {
	if s.cacheValid {
		return s.reachable
	}
	if s.computing {
		// A helper side path asked for reachability mid-computation.
		// Return the set built so far rather than recursing.
		return s.reachable
	}
	s.computing = true
	defer func() { s.computing = false }()

	ctx := s.Context()
	var reachable map[string]bool
	for {
		reachable = s.bfsPass(ctx)
		s.reachable = reachable

		granted := 0
		for _, ev := range s.Graph.EventLocations() {
			if !reachable[ev.Region] {
				continue
			}
			if s.Ledger.HasEvent(ev.Location.Item.Name) {
				continue
			}
			if !rules.Evaluate(ev.Location.AccessRule, ctx) {
				continue
			}
			if s.Ledger.GrantEvent(ev.Location.Item.Name) {
				granted++
				s.logger.Debug("Event collected during reachability pass",
					"event", ev.Location.Item.Name, "region", ev.Region)
			}
		}
		if granted == 0 {
			break
		}
	}

	s.reachable = reachable
	s.cacheValid = true
	return reachable
}

// bfsPass runs one breadth-first traversal over rule-passing edges.
// Each parallel edge between the same two regions is evaluated
// independently. Regions with region rules are entered only when all
// of them pass.
func (s *Session) bfsPass(ctx rules.Context) map[string]bool {
	visited := make(map[string]bool)
	var queue []string

	for _, start := range s.Graph.Starts() {
		if !s.Graph.HasRegion(start) {
			s.logger.Warn("Start region not declared in ruleset", "region", start)
			continue
		}
		if !s.regionRulesPass(start, ctx) {
			continue
		}
		if !visited[start] {
			visited[start] = true
			queue = append(queue, start)
		}
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, edge := range s.Graph.Outbound(current) {
			if visited[edge.To] {
				continue
			}
			if !rules.Evaluate(edge.Rule, ctx) {
				continue
			}
			if !s.regionRulesPass(edge.To, ctx) {
				continue
			}
			visited[edge.To] = true
			queue = append(queue, edge.To)
		}
	}

	return visited
}

func (s *Session) regionRulesPass(region string, ctx rules.Context) bool {
	r, ok := s.Graph.Region(region)
	if !ok {
		return false
	}
	for _, rule := range r.RegionRules {
		if !rules.Evaluate(rule, ctx) {
			return false
		}
	}
	return true
}

// IsRegionReachable answers cached-set membership, recomputing first
// if a mutation invalidated the cache.
func (s *Session) IsRegionReachable(name string) bool {
	return s.ComputeReachableRegions()[name]
}

// IsLocationAccessible requires the location's region to be reachable
// and its own access rule to pass. Checking an event location that
// turns out accessible grants its event as a side effect, matching
// what a reachability pass would do.
func (s *Session) IsLocationAccessible(name string) bool {
	region, loc, ok := s.Graph.FindLocation(name)
	if !ok {
		s.logger.Warn("Unknown location queried", "location", name)
		return false
	}
	if !s.IsRegionReachable(region) {
		return false
	}
	if !rules.Evaluate(loc.AccessRule, s.Context()) {
		return false
	}
	if loc.IsEvent() {
		s.Ledger.GrantEvent(loc.Item.Name)
	}
	return true
}

// ReachableRegions returns the reachable region names, sorted.
func (s *Session) ReachableRegions() []string {
	set := s.ComputeReachableRegions()
	names := make([]string, 0, len(set))
	for name, ok := range set {
		if ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// UnreachableRegions returns the complement of the reachable set
// over all declared regions, sorted.
func (s *Session) UnreachableRegions() []string {
	set := s.ComputeReachableRegions()
	var names []string
	for _, name := range s.Graph.RegionNames() {
		if !set[name] {
			names = append(names, name)
		}
	}
	return names
}

// AccessibleLocations returns every location whose region is
// reachable and whose access rule passes, sorted by name. It does
// not grant events; reachability passes already collected any event
// this scan would find.
func (s *Session) AccessibleLocations() []string {
	set := s.ComputeReachableRegions()
	ctx := s.Context()
	var names []string
	for _, ref := range s.Graph.Locations() {
		if !set[ref.Region] {
			continue
		}
		if rules.Evaluate(ref.Location.AccessRule, ctx) {
			names = append(names, ref.Location.Name)
		}
	}
	sort.Strings(names)
	return names
}

// NewlyReachableLocations diffs accessible locations against the
// previous call, for highlighting what the latest mutation unlocked.
// The first call reports everything currently accessible.
func (s *Session) NewlyReachableLocations() []string {
	current := s.AccessibleLocations()
	var fresh []string
	for _, name := range current {
		if !s.prevAccessible[name] {
			fresh = append(fresh, name)
		}
	}
	s.prevAccessible = make(map[string]bool, len(current))
	for _, name := range current {
		s.prevAccessible[name] = true
	}
	return fresh
}
