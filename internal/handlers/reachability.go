package handlers

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/jwebster45206/logic-tracker/pkg/rules"
	"github.com/jwebster45206/logic-tracker/pkg/tracker"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// ReachabilityResponse is the full reachability view of a session.
type ReachabilityResponse struct {
	ReachableRegions    []string `json:"reachable_regions"`
	UnreachableRegions  []string `json:"unreachable_regions"`
	AccessibleLocations []string `json:"accessible_locations"`
	NewlyReachable      []string `json:"newly_reachable"`
	Events              []string `json:"events,omitempty"`
}

// PathsResponse wraps a path analysis report.
type PathsResponse struct {
	tracker.Report
}

// ExplainResponse classifies a location's access rule leaves.
type ExplainResponse struct {
	Location        string          `json:"location"`
	Region          string          `json:"region"`
	RegionReachable bool            `json:"region_reachable"`
	Accessible      bool            `json:"accessible"`
	Findings        []rules.Finding `json:"findings"`
}

// displayCollator orders user-facing name lists the way an English
// reader expects, rather than by raw byte order.
var displayCollator = collate.New(language.English)

func sortForDisplay(names []string) []string {
	displayCollator.SortStrings(names)
	return names
}

func (h *SessionHandler) handleReachability(w http.ResponseWriter, r *http.Request, sessionID uuid.UUID) {
	session, ok := h.loadSession(w, r, sessionID)
	if !ok {
		return
	}

	// Diff against the persisted accessible set, then save so the
	// next query diffs against this one.
	response := ReachabilityResponse{
		ReachableRegions:    sortForDisplay(session.ReachableRegions()),
		UnreachableRegions:  sortForDisplay(session.UnreachableRegions()),
		AccessibleLocations: sortForDisplay(session.AccessibleLocations()),
		NewlyReachable:      sortForDisplay(session.NewlyReachableLocations()),
		Events:              sortForDisplay(session.Ledger.Events()),
	}

	if err := h.storage.SaveSession(r.Context(), session.ID, session.Snapshot()); err != nil {
		h.logger.Error("Failed to save session after reachability query", "error", err, "id", session.ID.String())
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to save session")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, response)
}

func (h *SessionHandler) handlePaths(w http.ResponseWriter, r *http.Request, sessionID uuid.UUID, region string) {
	session, ok := h.loadSession(w, r, sessionID)
	if !ok {
		return
	}

	if !session.Graph.HasRegion(region) {
		writeError(w, h.logger, http.StatusNotFound, "Unknown region: "+region)
		return
	}

	maxPaths := h.maxPaths
	if raw := r.URL.Query().Get("max"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, h.logger, http.StatusBadRequest, "max must be a positive integer")
			return
		}
		if n < maxPaths {
			maxPaths = n
		}
	}

	analyzer := tracker.NewAnalyzer(session)
	analyzer.MaxPaths = h.maxPaths
	analyzer.MaxIterations = h.maxPathIterations

	report := analyzer.AnalyzeRegion(region, maxPaths)
	writeJSON(w, h.logger, http.StatusOK, PathsResponse{Report: report})
}

func (h *SessionHandler) handleExplain(w http.ResponseWriter, r *http.Request, sessionID uuid.UUID, location string) {
	session, ok := h.loadSession(w, r, sessionID)
	if !ok {
		return
	}

	region, _, found := session.Graph.FindLocation(location)
	if !found {
		writeError(w, h.logger, http.StatusNotFound, "Unknown location: "+location)
		return
	}

	analyzer := tracker.NewAnalyzer(session)
	findings, _ := analyzer.ExplainLocation(location)

	response := ExplainResponse{
		Location:        location,
		Region:          region,
		RegionReachable: session.IsRegionReachable(region),
		Accessible:      session.IsLocationAccessible(location),
		Findings:        findings,
	}

	// Checking an accessible event location grants its event, so the
	// session is saved like the reachability handler does.
	if err := h.storage.SaveSession(r.Context(), session.ID, session.Snapshot()); err != nil {
		h.logger.Error("Failed to save session after explain query", "error", err, "id", session.ID.String())
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to save session")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, response)
}
