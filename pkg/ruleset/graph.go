package ruleset

import (
	"encoding/json"
	"sort"

	"github.com/jwebster45206/logic-tracker/pkg/rules"
)

// Edge is one canonical directed connection between two regions.
// Parallel edges between the same pair are kept as long as their
// rules differ; only the exit/entrance double encoding of the same
// connection is collapsed.
type Edge struct {
	From string
	To   string
	Name string
	Rule *rules.Rule
}

// EventLocation pairs an event location with the region that holds it.
type EventLocation struct {
	Region   string
	Location Location
}

// Graph is the immutable, normalized view of a ruleset's regions:
// one deduplicated directed edge list plus lookup indexes. It is
// built once at load and shared by every query.
type Graph struct {
	regions        map[string]Region
	regionNames    []string
	starts         []string
	edges          []Edge
	outbound       map[string][]int
	eventLocations []EventLocation
	locationIndex  map[string]locationRef
}

type locationRef struct {
	region   string
	location Location
}

// NewGraph normalizes a validated ruleset into a graph. Connections
// declared twice (as an exit on the source and an entrance on the
// target) are keyed by (from, to, rule identity) and kept once.
func NewGraph(rs *Ruleset) *Graph {
	g := &Graph{
		regions:       make(map[string]Region, len(rs.Regions)),
		starts:        rs.Starts(),
		outbound:      make(map[string][]int),
		locationIndex: make(map[string]locationRef),
	}

	for name, region := range rs.Regions {
		g.regions[name] = region
		g.regionNames = append(g.regionNames, name)
	}
	sort.Strings(g.regionNames)

	seen := make(map[string]bool)
	add := func(from, to, name string, rule *rules.Rule) {
		key := from + "\x00" + to + "\x00" + ruleIdentity(rule)
		if seen[key] {
			return
		}
		seen[key] = true
		g.outbound[from] = append(g.outbound[from], len(g.edges))
		g.edges = append(g.edges, Edge{From: from, To: to, Name: name, Rule: rule})
	}

	// Deterministic edge order: walk regions sorted by name.
	for _, name := range g.regionNames {
		region := g.regions[name]
		for _, exit := range region.Exits {
			add(name, exit.TargetRegion, exit.Name, exit.Rule)
		}
	}
	for _, name := range g.regionNames {
		region := g.regions[name]
		for _, entrance := range region.Entrances {
			add(entrance.SourceRegion, name, entrance.Name, entrance.Rule)
		}
	}

	for _, name := range g.regionNames {
		region := g.regions[name]
		for _, loc := range region.Locations {
			g.locationIndex[loc.Name] = locationRef{region: name, location: loc}
			if loc.IsEvent() {
				g.eventLocations = append(g.eventLocations, EventLocation{Region: name, Location: loc})
			}
		}
	}

	return g
}

// ruleIdentity serializes a rule for edge deduplication. Two edges
// between the same regions with identical rules are the same edge.
func ruleIdentity(r *rules.Rule) string {
	if r == nil {
		return "nil"
	}
	data, err := json.Marshal(r)
	if err != nil {
		return "unserializable"
	}
	return string(data)
}

// Starts returns the start regions.
func (g *Graph) Starts() []string {
	return g.starts
}

// HasRegion reports whether a region is declared.
func (g *Graph) HasRegion(name string) bool {
	_, ok := g.regions[name]
	return ok
}

// Region returns a region by name.
func (g *Graph) Region(name string) (Region, bool) {
	region, ok := g.regions[name]
	return region, ok
}

// RegionNames returns all region names in sorted order.
func (g *Graph) RegionNames() []string {
	return g.regionNames
}

// Edges returns the full canonical edge list.
func (g *Graph) Edges() []Edge {
	return g.edges
}

// Outbound returns every edge leaving a region.
func (g *Graph) Outbound(region string) []Edge {
	indexes := g.outbound[region]
	edges := make([]Edge, 0, len(indexes))
	for _, i := range indexes {
		edges = append(edges, g.edges[i])
	}
	return edges
}

// EdgesBetween returns every parallel edge from one region to another.
func (g *Graph) EdgesBetween(from, to string) []Edge {
	var edges []Edge
	for _, i := range g.outbound[from] {
		if g.edges[i].To == to {
			edges = append(edges, g.edges[i])
		}
	}
	return edges
}

// EventLocations returns every event location with its region.
func (g *Graph) EventLocations() []EventLocation {
	return g.eventLocations
}

// FindLocation resolves a location name to its region and definition.
func (g *Graph) FindLocation(name string) (string, Location, bool) {
	ref, ok := g.locationIndex[name]
	if !ok {
		return "", Location{}, false
	}
	return ref.region, ref.location, true
}

// Locations returns every location name with its region, sorted by
// location name.
func (g *Graph) Locations() []EventLocation {
	out := make([]EventLocation, 0, len(g.locationIndex))
	names := make([]string, 0, len(g.locationIndex))
	for name := range g.locationIndex {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		ref := g.locationIndex[name]
		out = append(out, EventLocation{Region: ref.region, Location: ref.location})
	}
	return out
}
