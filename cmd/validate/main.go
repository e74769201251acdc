package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/jwebster45206/logic-tracker/pkg/ruleset"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <ruleset.json>\n", os.Args[0])
		os.Exit(1)
	}

	filename := os.Args[1]
	validator := &RulesetValidator{}

	if err := validator.validateFile(filename); err != nil {
		fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Ruleset file is valid!")
}

type RulesetValidator struct {
	errors []string
}

func (v *RulesetValidator) validateFile(filename string) error {
	fmt.Printf("Validating %s...\n", filename)

	// Validate filename format
	baseName := filepath.Base(filename)
	if !strings.HasSuffix(baseName, ".json") {
		return fmt.Errorf("ruleset file must have .json extension: %s", baseName)
	}

	nameWithoutExt := strings.TrimSuffix(baseName, ".json")
	if !isValidRulesetFilename(nameWithoutExt) {
		return fmt.Errorf("ruleset filename '%s' must be lowercase snake_case (e.g., my_world.json, not my-world.json or MyWorld.json)", baseName)
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", filename, err)
	}

	v.errors = nil

	if !json.Valid(data) {
		return fmt.Errorf("file %s contains invalid JSON", filename)
	}

	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()

	var rs ruleset.Ruleset
	if err := decoder.Decode(&rs); err != nil {
		return fmt.Errorf("file %s failed strict JSON unmarshaling: %w", filename, err)
	}

	// Structural validation: undeclared exit targets, unknown rule
	// types, bad progression levels, missing start regions.
	if err := rs.Validate(); err != nil {
		v.errors = append(v.errors, err.Error())
	}

	v.validateGraph(&rs)

	if len(v.errors) > 0 {
		return fmt.Errorf("validation errors in %s:\n%s", filename, strings.Join(v.errors, "\n"))
	}

	return nil
}

// validateGraph reports data-quality problems the engine tolerates
// but a ruleset author should fix.
func (v *RulesetValidator) validateGraph(rs *ruleset.Ruleset) {
	graph := ruleset.NewGraph(rs)

	// Duplicate connections: the same (from, to, rule) pair declared
	// more than once as exits collapses silently at load; warn here.
	type edgeCount map[string]int
	counts := make(edgeCount)
	for name, region := range rs.Regions {
		for _, exit := range region.Exits {
			ruleJSON, _ := json.Marshal(exit.Rule)
			key := name + " -> " + exit.TargetRegion + " " + string(ruleJSON)
			counts[key]++
			if counts[key] == 2 {
				v.errors = append(v.errors, fmt.Sprintf("duplicate exit declared: %s", key))
			}
		}
	}

	// Unreachable-by-construction regions: no inbound edge and not a
	// start region.
	inbound := make(map[string]bool)
	for _, edge := range graph.Edges() {
		inbound[edge.To] = true
	}
	starts := make(map[string]bool)
	for _, s := range graph.Starts() {
		starts[s] = true
	}
	for _, name := range graph.RegionNames() {
		if !inbound[name] && !starts[name] {
			v.errors = append(v.errors, fmt.Sprintf("region %q has no inbound connection and is not a start region", name))
		}
	}

	// Duplicate location names across regions shadow each other in
	// lookups.
	seen := make(map[string]string)
	for name, region := range rs.Regions {
		for _, loc := range region.Locations {
			if prev, ok := seen[loc.Name]; ok {
				v.errors = append(v.errors, fmt.Sprintf("location name %q declared in both %q and %q", loc.Name, prev, name))
				continue
			}
			seen[loc.Name] = name
		}
	}
}

var rulesetFilenamePattern = regexp.MustCompile(`^[a-z0-9]+(_[a-z0-9]+)*$`)

func isValidRulesetFilename(name string) bool {
	return rulesetFilenamePattern.MatchString(name)
}
