package tracker

import (
	"github.com/jwebster45206/logic-tracker/pkg/rules"
)

// Default budgets for path enumeration. Dense, highly cyclic graphs
// can explode combinatorially; exceeding a budget returns a partial
// result marked incomplete instead of hanging.
const (
	DefaultMaxPaths      = 10
	DefaultMaxIterations = 100000
)

// EdgeCheck is one parallel edge of a transition with its current
// rule result.
type EdgeCheck struct {
	Name      string `json:"name,omitempty"`
	Satisfied bool   `json:"satisfied"`
}

// Transition is one hop of a candidate path. Accessible means at
// least one parallel edge currently passes. Blocking means the hop is
// the frontier: its source is reachable but its target is not.
type Transition struct {
	From       string      `json:"from"`
	To         string      `json:"to"`
	Accessible bool        `json:"accessible"`
	Blocking   bool        `json:"blocking"`
	Edges      []EdgeCheck `json:"edges"`
}

// Path is one simple region sequence from a start region to the
// target, with its transitions classified.
type Path struct {
	Regions     []string     `json:"regions"`
	Transitions []Transition `json:"transitions"`
	Viable      bool         `json:"viable"` // every transition currently accessible
}

// Report is the full path analysis for one target region.
type Report struct {
	Target        string   `json:"target"`
	Reachable     bool     `json:"reachable"`
	Paths         []Path   `json:"paths"`
	CanonicalPath []string `json:"canonical_path,omitempty"`
	// Incomplete is set when a search budget was exhausted before the
	// enumeration finished.
	Incomplete bool `json:"incomplete,omitempty"`
	// Disagreement is set when the engine says the target is
	// reachable but no enumerated path is fully viable. The canonical
	// path is the fallback explanation in that case.
	Disagreement bool `json:"disagreement,omitempty"`
}

// Analyzer explains reachability results by enumerating candidate
// paths and classifying what blocks them. It reuses the session's
// evaluator and cached reachable set and never mutates either.
type Analyzer struct {
	session       *Session
	MaxPaths      int
	MaxIterations int
}

// NewAnalyzer creates an analyzer with default budgets.
func NewAnalyzer(s *Session) *Analyzer {
	return &Analyzer{
		session:       s,
		MaxPaths:      DefaultMaxPaths,
		MaxIterations: DefaultMaxIterations,
	}
}

// FindPathsToRegion enumerates simple paths (no repeated region) from
// each start region to the target over the raw edge set, ignoring
// whether rules currently pass. Enumeration stops at maxPaths (or the
// analyzer default when maxPaths <= 0) or when the iteration budget
// runs out; the second return value reports whether the search was
// cut short.
func (a *Analyzer) FindPathsToRegion(target string, maxPaths int) ([][]string, bool) {
	if maxPaths <= 0 {
		maxPaths = a.MaxPaths
	}

	var paths [][]string
	iterations := 0
	incomplete := false

	var dfs func(current string, trail []string, onTrail map[string]bool)
	dfs = func(current string, trail []string, onTrail map[string]bool) {
		if len(paths) >= maxPaths || iterations >= a.MaxIterations {
			incomplete = true
			return
		}
		iterations++

		if current == target {
			path := make([]string, len(trail))
			copy(path, trail)
			paths = append(paths, path)
			return
		}

		// Successors, deduplicated: parallel edges collapse for
		// enumeration and are re-expanded by FindAllTransitions.
		seen := make(map[string]bool)
		for _, edge := range a.session.Graph.Outbound(current) {
			if onTrail[edge.To] || seen[edge.To] {
				continue
			}
			seen[edge.To] = true
			onTrail[edge.To] = true
			// No early break here: once the budget fills, the entry
			// guard of each remaining call marks the search truncated.
			dfs(edge.To, append(trail, edge.To), onTrail)
			onTrail[edge.To] = false
		}
	}

	for _, start := range a.session.Graph.Starts() {
		if len(paths) >= maxPaths || iterations >= a.MaxIterations {
			incomplete = true
			break
		}
		dfs(start, []string{start}, map[string]bool{start: true})
	}

	return paths, incomplete
}

// FindAllTransitions classifies each hop of a path. Every parallel
// edge between the pair is evaluated independently; the transition is
// accessible when any of them passes (OR semantics), and blocking
// when its source is reachable but its target is not.
func (a *Analyzer) FindAllTransitions(path []string) []Transition {
	ctx := a.session.Context()
	reachable := a.session.ComputeReachableRegions()

	transitions := make([]Transition, 0, len(path)-1)
	for i := 0; i+1 < len(path); i++ {
		from, to := path[i], path[i+1]
		t := Transition{From: from, To: to}
		for _, edge := range a.session.Graph.EdgesBetween(from, to) {
			satisfied := rules.Evaluate(edge.Rule, ctx)
			t.Edges = append(t.Edges, EdgeCheck{Name: edge.Name, Satisfied: satisfied})
			if satisfied {
				t.Accessible = true
			}
		}
		t.Blocking = reachable[from] && !reachable[to]
		transitions = append(transitions, t)
	}
	return transitions
}

// FindCanonicalPath runs an independent shortest-hop BFS restricted
// to edges that currently pass and lead into regions the engine
// already considers reachable. It is the fallback explanation when
// exhaustive enumeration finds no fully viable path even though the
// engine says the target is reachable.
func (a *Analyzer) FindCanonicalPath(target string) []string {
	ctx := a.session.Context()
	reachable := a.session.ComputeReachableRegions()
	if !reachable[target] {
		return nil
	}

	parent := make(map[string]string)
	visited := make(map[string]bool)
	var queue []string

	for _, start := range a.session.Graph.Starts() {
		if !a.session.Graph.HasRegion(start) || visited[start] {
			continue
		}
		visited[start] = true
		queue = append(queue, start)
		if start == target {
			return []string{start}
		}
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, edge := range a.session.Graph.Outbound(current) {
			if visited[edge.To] || !reachable[edge.To] {
				continue
			}
			if !rules.Evaluate(edge.Rule, ctx) {
				continue
			}
			visited[edge.To] = true
			parent[edge.To] = current
			if edge.To == target {
				return rebuildPath(parent, target)
			}
			queue = append(queue, edge.To)
		}
	}
	return nil
}

func rebuildPath(parent map[string]string, target string) []string {
	var reversed []string
	for at := target; ; {
		reversed = append(reversed, at)
		prev, ok := parent[at]
		if !ok {
			break
		}
		at = prev
	}
	path := make([]string, len(reversed))
	for i, name := range reversed {
		path[len(reversed)-1-i] = name
	}
	return path
}

// AnalyzeRegion builds the full report for a target region. A
// disagreement between the two search strategies (engine reachable,
// but no viable enumerated path) is surfaced explicitly rather than
// hidden, since it points at edge normalization gaps.
func (a *Analyzer) AnalyzeRegion(target string, maxPaths int) Report {
	report := Report{
		Target:    target,
		Reachable: a.session.IsRegionReachable(target),
	}

	rawPaths, incomplete := a.FindPathsToRegion(target, maxPaths)
	report.Incomplete = incomplete

	anyViable := false
	for _, regions := range rawPaths {
		transitions := a.FindAllTransitions(regions)
		viable := true
		for _, t := range transitions {
			if !t.Accessible {
				viable = false
				break
			}
		}
		if viable {
			anyViable = true
		}
		report.Paths = append(report.Paths, Path{
			Regions:     regions,
			Transitions: transitions,
			Viable:      viable,
		})
	}

	if report.Reachable && !anyViable {
		report.Disagreement = true
		report.CanonicalPath = a.FindCanonicalPath(target)
	}
	return report
}

// ExplainLocation classifies every leaf of a location's access rule
// against the current state. Callers pair this with AnalyzeRegion on
// the location's region for a complete "why is this blocked" answer.
func (a *Analyzer) ExplainLocation(name string) ([]rules.Finding, bool) {
	_, loc, ok := a.session.Graph.FindLocation(name)
	if !ok {
		return nil, false
	}
	return rules.ClassifyRule(loc.AccessRule, a.session.Context()), true
}
