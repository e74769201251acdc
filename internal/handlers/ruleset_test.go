package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jwebster45206/logic-tracker/internal/storage"
	"github.com/jwebster45206/logic-tracker/pkg/ruleset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRulesetHandler_List(t *testing.T) {
	mock := storage.NewMockStorage()
	mock.AddRuleset("handler_world.json", testRuleset())
	handler := NewRulesetHandler(testLogger(), mock)

	rec := getPath(handler, "/v1/rulesets")
	require.Equal(t, http.StatusOK, rec.Code)

	var listing map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&listing))
	assert.Equal(t, map[string]string{"Handler World": "handler_world.json"}, listing)
}

func TestRulesetHandler_Get(t *testing.T) {
	mock := storage.NewMockStorage()
	mock.AddRuleset("handler_world.json", testRuleset())
	handler := NewRulesetHandler(testLogger(), mock)

	rec := getPath(handler, "/v1/rulesets/handler_world.json")
	require.Equal(t, http.StatusOK, rec.Code)

	var rs ruleset.Ruleset
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&rs))
	assert.Equal(t, "Handler World", rs.Name)
	assert.Len(t, rs.Regions, 3)
}

func TestRulesetHandler_Errors(t *testing.T) {
	mock := storage.NewMockStorage()
	handler := NewRulesetHandler(testLogger(), mock)

	tests := []struct {
		name           string
		method         string
		path           string
		expectedStatus int
	}{
		{"unknown ruleset", http.MethodGet, "/v1/rulesets/nope.json", http.StatusNotFound},
		{"path traversal", http.MethodGet, "/v1/rulesets/..%2Fsecrets.json", http.StatusBadRequest},
		{"method not allowed", http.MethodPost, "/v1/rulesets", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.expectedStatus, rec.Code)
		})
	}
}
