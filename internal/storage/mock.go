package storage

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/jwebster45206/logic-tracker/pkg/ruleset"
	"github.com/jwebster45206/logic-tracker/pkg/tracker"
)

// MockStorage is a mock implementation of Storage for testing
type MockStorage struct {
	mu        sync.RWMutex
	sessions  map[uuid.UUID]*tracker.Snapshot
	rulesets  map[string]*ruleset.Ruleset
	pingError error
	saveError error
	loadError error
}

// Ensure MockStorage implements Storage interface
var _ Storage = (*MockStorage)(nil)

// NewMockStorage creates a new mock storage
func NewMockStorage() *MockStorage {
	return &MockStorage{
		sessions: make(map[uuid.UUID]*tracker.Snapshot),
		rulesets: make(map[string]*ruleset.Ruleset),
	}
}

// SetPingSuccess configures the mock to succeed on ping
func (m *MockStorage) SetPingSuccess() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = nil
}

// SetPingError configures the mock to fail on ping with the given error
func (m *MockStorage) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = err
}

// SetSaveError configures SaveSession to fail
func (m *MockStorage) SetSaveError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveError = err
}

// SetLoadError configures LoadSession to fail
func (m *MockStorage) SetLoadError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadError = err
}

// AddRuleset preloads a ruleset under a filename
func (m *MockStorage) AddRuleset(filename string, rs *ruleset.Ruleset) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rulesets[filename] = rs
}

// Ping mocks storage ping
func (m *MockStorage) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pingError
}

// Close mocks storage close
func (m *MockStorage) Close() error {
	return nil
}

// SaveSession mocks saving a session snapshot
func (m *MockStorage) SaveSession(ctx context.Context, id uuid.UUID, snap *tracker.Snapshot) error {
	if snap == nil {
		return errors.New("session snapshot cannot be nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveError != nil {
		return m.saveError
	}
	m.sessions[id] = snap
	return nil
}

// LoadSession mocks loading a session snapshot
func (m *MockStorage) LoadSession(ctx context.Context, id uuid.UUID) (*tracker.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.loadError != nil {
		return nil, m.loadError
	}
	return m.sessions[id], nil
}

// DeleteSession mocks deleting a session
func (m *MockStorage) DeleteSession(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// ListRulesets mocks listing rulesets
func (m *MockStorage) ListRulesets(ctx context.Context) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(m.rulesets))
	for filename, rs := range m.rulesets {
		name := rs.Name
		if name == "" {
			name = filename
		}
		out[name] = filename
	}
	return out, nil
}

// GetRuleset mocks loading a ruleset
func (m *MockStorage) GetRuleset(ctx context.Context, filename string) (*ruleset.Ruleset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rs, ok := m.rulesets[filename]
	if !ok {
		return nil, errors.New("ruleset not found: " + filename)
	}
	return rs, nil
}
