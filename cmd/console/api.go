package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/jwebster45206/logic-tracker/pkg/rules"
	"github.com/jwebster45206/logic-tracker/pkg/tracker"
)

// SessionView matches the API session response shape.
type SessionView struct {
	ID                  uuid.UUID `json:"id"`
	Ruleset             string    `json:"ruleset"`
	ReachableRegions    []string  `json:"reachable_regions"`
	AccessibleLocations []string  `json:"accessible_locations"`
}

// ReachabilityView matches GET /v1/sessions/{id}/reachability.
type ReachabilityView struct {
	ReachableRegions    []string `json:"reachable_regions"`
	UnreachableRegions  []string `json:"unreachable_regions"`
	AccessibleLocations []string `json:"accessible_locations"`
	NewlyReachable      []string `json:"newly_reachable"`
	Events              []string `json:"events,omitempty"`
}

// ExplainView matches GET /v1/sessions/{id}/explain/{location}.
type ExplainView struct {
	Location        string          `json:"location"`
	Region          string          `json:"region"`
	RegionReachable bool            `json:"region_reachable"`
	Accessible      bool            `json:"accessible"`
	Findings        []rules.Finding `json:"findings"`
}

func testConnection(client *http.Client, baseURL string) bool {
	resp, err := client.Get(baseURL + "/health")
	if err != nil {
		return false
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()
	return resp.StatusCode == http.StatusOK
}

func listRulesets(client *http.Client, baseURL string) ([]string, map[string]string, error) {
	resp, err := client.Get(baseURL + "/v1/rulesets")
	if err != nil {
		return nil, nil, err
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	var rulesetMap map[string]string
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, err
	}

	if err := json.Unmarshal(body, &rulesetMap); err != nil {
		return nil, nil, err
	}

	return sortedKeys(rulesetMap), rulesetMap, nil
}

// CreateSessionRequest matches the API request structure
type CreateSessionRequest struct {
	Ruleset string `json:"ruleset"`
}

func createSession(client *http.Client, baseURL string, rulesetFile string) (*SessionView, error) {
	req := CreateSessionRequest{
		Ruleset: rulesetFile,
	}

	jsonData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := client.Post(
		baseURL+"/v1/sessions",
		"application/json",
		bytes.NewBuffer(jsonData),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusCreated {
		var errorResp ErrorResponse
		if err := json.Unmarshal(body, &errorResp); err != nil {
			return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
		}
		return nil, fmt.Errorf("failed to create session: %s", errorResp.Error)
	}

	var session SessionView
	if err := json.Unmarshal(body, &session); err != nil {
		return nil, fmt.Errorf("failed to parse session response: %w", err)
	}

	return &session, nil
}

func postSessionJSON(client *http.Client, baseURL string, sessionID uuid.UUID, resource string, payload any) (*SessionView, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := client.Post(
		fmt.Sprintf("%s/v1/sessions/%s/%s", baseURL, sessionID, resource),
		"application/json",
		bytes.NewBuffer(jsonData),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errorResp ErrorResponse
		if err := json.Unmarshal(body, &errorResp); err != nil {
			return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
		}
		return nil, fmt.Errorf("request failed: %s", errorResp.Error)
	}

	var session SessionView
	if err := json.Unmarshal(body, &session); err != nil {
		return nil, fmt.Errorf("failed to parse session response: %w", err)
	}
	return &session, nil
}

func addItem(client *http.Client, baseURL string, sessionID uuid.UUID, item string) (*SessionView, error) {
	return postSessionJSON(client, baseURL, sessionID, "items", map[string]any{"item": item})
}

func addItemsBatch(client *http.Client, baseURL string, sessionID uuid.UUID, items []string) (*SessionView, error) {
	return postSessionJSON(client, baseURL, sessionID, "items", map[string]any{"items": items, "batch": true})
}

func setExcluded(client *http.Client, baseURL string, sessionID uuid.UUID, item string, excluded bool) (*SessionView, error) {
	return postSessionJSON(client, baseURL, sessionID, "exclusions", map[string]any{"item": item, "excluded": excluded})
}

func setFlag(client *http.Client, baseURL string, sessionID uuid.UUID, flag string, value bool) (*SessionView, error) {
	return postSessionJSON(client, baseURL, sessionID, "flags", map[string]any{"flag": flag, "value": value})
}

func getReachability(client *http.Client, baseURL string, sessionID uuid.UUID) (*ReachabilityView, error) {
	resp, err := client.Get(fmt.Sprintf("%s/v1/sessions/%s/reachability", baseURL, sessionID))
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errorResp ErrorResponse
		if err := json.Unmarshal(body, &errorResp); err != nil {
			return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
		}
		return nil, fmt.Errorf("failed to get reachability: %s", errorResp.Error)
	}

	var view ReachabilityView
	if err := json.Unmarshal(body, &view); err != nil {
		return nil, fmt.Errorf("failed to parse reachability response: %w", err)
	}
	return &view, nil
}

func getPaths(client *http.Client, baseURL string, sessionID uuid.UUID, region string) (*tracker.Report, error) {
	resp, err := client.Get(fmt.Sprintf("%s/v1/sessions/%s/paths/%s", baseURL, sessionID, url.PathEscape(region)))
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errorResp ErrorResponse
		if err := json.Unmarshal(body, &errorResp); err != nil {
			return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
		}
		return nil, fmt.Errorf("failed to get paths: %s", errorResp.Error)
	}

	var report tracker.Report
	if err := json.Unmarshal(body, &report); err != nil {
		return nil, fmt.Errorf("failed to parse paths response: %w", err)
	}
	return &report, nil
}

func getExplain(client *http.Client, baseURL string, sessionID uuid.UUID, location string) (*ExplainView, error) {
	resp, err := client.Get(fmt.Sprintf("%s/v1/sessions/%s/explain/%s", baseURL, sessionID, url.PathEscape(location)))
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errorResp ErrorResponse
		if err := json.Unmarshal(body, &errorResp); err != nil {
			return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
		}
		return nil, fmt.Errorf("failed to explain location: %s", errorResp.Error)
	}

	var view ExplainView
	if err := json.Unmarshal(body, &view); err != nil {
		return nil, fmt.Errorf("failed to parse explain response: %w", err)
	}
	return &view, nil
}
