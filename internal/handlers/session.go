package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jwebster45206/logic-tracker/internal/storage"
	"github.com/jwebster45206/logic-tracker/pkg/rules"
	"github.com/jwebster45206/logic-tracker/pkg/tracker"
)

// SessionHandler owns the /v1/sessions surface.
// Routes:
// POST /v1/sessions                          - Create a session for a ruleset
// GET /v1/sessions/{id}                      - Read session snapshot
// DELETE /v1/sessions/{id}                   - Delete session (clearState)
// POST /v1/sessions/{id}/items               - Add item(s); batch supported
// POST /v1/sessions/{id}/exclusions          - Toggle exclusion-set membership
// POST /v1/sessions/{id}/flags               - Set or clear a flag
// GET /v1/sessions/{id}/reachability         - Reachable regions + accessible locations
// GET /v1/sessions/{id}/paths/{region}       - Path analysis for a region
// GET /v1/sessions/{id}/explain/{location}   - Blocker classification for a location
type SessionHandler struct {
	storage  storage.Storage
	registry *rules.Registry
	logger   *slog.Logger

	maxPaths          int
	maxPathIterations int
}

func NewSessionHandler(storage storage.Storage, registry *rules.Registry, maxPaths, maxPathIterations int, logger *slog.Logger) *SessionHandler {
	if maxPaths <= 0 {
		maxPaths = tracker.DefaultMaxPaths
	}
	if maxPathIterations <= 0 {
		maxPathIterations = tracker.DefaultMaxIterations
	}
	return &SessionHandler{
		storage:           storage,
		registry:          registry,
		logger:            logger,
		maxPaths:          maxPaths,
		maxPathIterations: maxPathIterations,
	}
}

func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/sessions"), "/")
	if path == "" {
		if r.Method != http.MethodPost {
			writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: POST")
			return
		}
		h.handleCreate(w, r)
		return
	}

	segments := strings.Split(path, "/")
	sessionID, err := uuid.Parse(segments[0])
	if err != nil {
		h.logger.Warn("Invalid session ID", "id", segments[0], "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid session ID format")
		return
	}

	if len(segments) == 1 {
		switch r.Method {
		case http.MethodGet:
			h.handleRead(w, r, sessionID)
		case http.MethodDelete:
			h.handleDelete(w, r, sessionID)
		default:
			writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: GET, DELETE")
		}
		return
	}

	switch segments[1] {
	case "items":
		if r.Method != http.MethodPost {
			writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: POST")
			return
		}
		h.handleAddItems(w, r, sessionID)
	case "exclusions":
		if r.Method != http.MethodPost {
			writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: POST")
			return
		}
		h.handleExclusion(w, r, sessionID)
	case "flags":
		if r.Method != http.MethodPost {
			writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: POST")
			return
		}
		h.handleFlag(w, r, sessionID)
	case "reachability":
		if r.Method != http.MethodGet {
			writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: GET")
			return
		}
		h.handleReachability(w, r, sessionID)
	case "paths":
		if r.Method != http.MethodGet || len(segments) < 3 {
			writeError(w, h.logger, http.StatusBadRequest, "Path analysis requires GET /v1/sessions/{id}/paths/{region}")
			return
		}
		h.handlePaths(w, r, sessionID, strings.Join(segments[2:], "/"))
	case "explain":
		if r.Method != http.MethodGet || len(segments) < 3 {
			writeError(w, h.logger, http.StatusBadRequest, "Explanation requires GET /v1/sessions/{id}/explain/{location}")
			return
		}
		h.handleExplain(w, r, sessionID, strings.Join(segments[2:], "/"))
	default:
		writeError(w, h.logger, http.StatusNotFound, "Unknown session resource: "+segments[1])
	}
}

// CreateSessionRequest defines the request body for creating a session
type CreateSessionRequest struct {
	Ruleset string `json:"ruleset"` // Required: ruleset filename
}

// SessionResponse is the snapshot plus a reachability summary.
type SessionResponse struct {
	*tracker.Snapshot
	ReachableRegions    []string `json:"reachable_regions"`
	AccessibleLocations []string `json:"accessible_locations"`
}

func (h *SessionHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	h.logger.Debug("Creating new session")

	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Invalid JSON in request body", "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}

	if req.Ruleset == "" {
		writeError(w, h.logger, http.StatusBadRequest, "ruleset field is required")
		return
	}
	if strings.Contains(req.Ruleset, "..") || strings.Contains(req.Ruleset, "/") {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid ruleset filename")
		return
	}
	if !strings.HasSuffix(req.Ruleset, ".json") {
		req.Ruleset += ".json"
	}

	rs, err := h.storage.GetRuleset(r.Context(), req.Ruleset)
	if err != nil {
		h.logger.Warn("Failed to load ruleset", "ruleset", req.Ruleset, "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Failed to load ruleset: "+err.Error())
		return
	}

	session := tracker.NewSession(req.Ruleset, rs, h.registry, h.logger)

	// Compute before snapshotting so events granted by the first
	// reachability pass are persisted with the session.
	reachable := session.ReachableRegions()
	accessible := session.AccessibleLocations()

	if err := h.storage.SaveSession(r.Context(), session.ID, session.Snapshot()); err != nil {
		h.logger.Error("Failed to save new session", "error", err, "id", session.ID.String())
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to create session")
		return
	}

	h.logger.Debug("Session created successfully", "id", session.ID.String(), "ruleset", req.Ruleset)
	writeJSON(w, h.logger, http.StatusCreated, SessionResponse{
		Snapshot:            session.Snapshot(),
		ReachableRegions:    reachable,
		AccessibleLocations: accessible,
	})
}

func (h *SessionHandler) handleRead(w http.ResponseWriter, r *http.Request, sessionID uuid.UUID) {
	session, ok := h.loadSession(w, r, sessionID)
	if !ok {
		return
	}
	writeJSON(w, h.logger, http.StatusOK, SessionResponse{
		Snapshot:            session.Snapshot(),
		ReachableRegions:    session.ReachableRegions(),
		AccessibleLocations: session.AccessibleLocations(),
	})
}

func (h *SessionHandler) handleDelete(w http.ResponseWriter, r *http.Request, sessionID uuid.UUID) {
	if err := h.storage.DeleteSession(r.Context(), sessionID); err != nil {
		h.logger.Error("Failed to delete session", "error", err, "id", sessionID.String())
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to delete session")
		return
	}
	h.logger.Debug("Session deleted successfully", "id", sessionID.String())
	w.WriteHeader(http.StatusNoContent)
}

// AddItemsRequest adds one item, or several as a single batch.
type AddItemsRequest struct {
	Item  string   `json:"item,omitempty"`
	Items []string `json:"items,omitempty"`
	Batch bool     `json:"batch,omitempty"`
}

func (h *SessionHandler) handleAddItems(w http.ResponseWriter, r *http.Request, sessionID uuid.UUID) {
	var req AddItemsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}
	if req.Item == "" && len(req.Items) == 0 {
		writeError(w, h.logger, http.StatusBadRequest, "item or items field is required")
		return
	}

	session, ok := h.loadSession(w, r, sessionID)
	if !ok {
		return
	}

	if len(req.Items) > 0 && req.Batch {
		session.BeginBatch()
		for _, item := range req.Items {
			session.AddItem(item)
		}
		session.CommitBatch()
	} else {
		for _, item := range req.Items {
			session.AddItem(item)
		}
		if req.Item != "" {
			session.AddItem(req.Item)
		}
	}

	h.saveAndRespond(w, r, session)
}

// ExclusionRequest toggles exclusion-set membership for one item.
type ExclusionRequest struct {
	Item     string `json:"item"`
	Excluded bool   `json:"excluded"`
}

func (h *SessionHandler) handleExclusion(w http.ResponseWriter, r *http.Request, sessionID uuid.UUID) {
	var req ExclusionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}
	if req.Item == "" {
		writeError(w, h.logger, http.StatusBadRequest, "item field is required")
		return
	}

	session, ok := h.loadSession(w, r, sessionID)
	if !ok {
		return
	}
	session.SetExcluded(req.Item, req.Excluded)
	h.saveAndRespond(w, r, session)
}

// FlagRequest sets or clears one flag.
type FlagRequest struct {
	Flag  string `json:"flag"`
	Value bool   `json:"value"`
}

func (h *SessionHandler) handleFlag(w http.ResponseWriter, r *http.Request, sessionID uuid.UUID) {
	var req FlagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}
	if req.Flag == "" {
		writeError(w, h.logger, http.StatusBadRequest, "flag field is required")
		return
	}

	session, ok := h.loadSession(w, r, sessionID)
	if !ok {
		return
	}
	session.SetFlag(req.Flag, req.Value)
	h.saveAndRespond(w, r, session)
}

// loadSession rehydrates a session from its stored snapshot and
// ruleset. It writes the error response itself when loading fails.
func (h *SessionHandler) loadSession(w http.ResponseWriter, r *http.Request, sessionID uuid.UUID) (*tracker.Session, bool) {
	snap, err := h.storage.LoadSession(r.Context(), sessionID)
	if err != nil {
		h.logger.Error("Failed to load session", "error", err, "id", sessionID.String())
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load session")
		return nil, false
	}
	if snap == nil {
		h.logger.Warn("Session not found", "id", sessionID.String())
		writeError(w, h.logger, http.StatusNotFound, "Session not found")
		return nil, false
	}

	rs, err := h.storage.GetRuleset(r.Context(), snap.Ruleset)
	if err != nil {
		h.logger.Error("Failed to load session ruleset", "error", err, "ruleset", snap.Ruleset)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load session ruleset")
		return nil, false
	}

	session := tracker.NewSession(snap.Ruleset, rs, h.registry, h.logger)
	session.Restore(snap)
	return session, true
}

func (h *SessionHandler) saveAndRespond(w http.ResponseWriter, r *http.Request, session *tracker.Session) {
	// Compute before snapshotting so freshly granted events persist.
	reachable := session.ReachableRegions()
	accessible := session.AccessibleLocations()

	if err := h.storage.SaveSession(r.Context(), session.ID, session.Snapshot()); err != nil {
		h.logger.Error("Failed to save session", "error", err, "id", session.ID.String())
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to save session")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, SessionResponse{
		Snapshot:            session.Snapshot(),
		ReachableRegions:    reachable,
		AccessibleLocations: accessible,
	})
}
