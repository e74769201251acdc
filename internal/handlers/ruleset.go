package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/jwebster45206/logic-tracker/internal/storage"
)

// RulesetHandler serves the static ruleset catalog.
// Routes:
// GET /v1/rulesets        - Map of ruleset names to filenames
// GET /v1/rulesets/{file} - One validated ruleset
type RulesetHandler struct {
	logger  *slog.Logger
	storage storage.Storage
}

func NewRulesetHandler(logger *slog.Logger, storage storage.Storage) *RulesetHandler {
	return &RulesetHandler{
		logger:  logger,
		storage: storage,
	}
}

func (h *RulesetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: GET")
		return
	}

	filename := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/rulesets"), "/")
	if filename == "" {
		h.handleList(w, r)
		return
	}

	if strings.Contains(filename, "..") || strings.Contains(filename, "/") {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid filename")
		return
	}

	h.handleGet(w, r, filename)
}

func (h *RulesetHandler) handleList(w http.ResponseWriter, r *http.Request) {
	rulesets, err := h.storage.ListRulesets(r.Context())
	if err != nil {
		h.logger.Error("Failed to list rulesets", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to list rulesets")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, rulesets)
}

func (h *RulesetHandler) handleGet(w http.ResponseWriter, r *http.Request, filename string) {
	rs, err := h.storage.GetRuleset(r.Context(), filename)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			writeError(w, h.logger, http.StatusNotFound, "Ruleset not found")
			return
		}
		h.logger.Error("Failed to get ruleset", "error", err, "filename", filename)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to retrieve ruleset")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, rs)
}
