package memory

import (
	"maps"
	"sync"

	"github.com/custodia-labs/gdprqa/internal/core/ports/driven"
)

var _ driven.ConfigStore = (*ConfigStore)(nil)

// ConfigStore keeps settings in a map. Save takes a snapshot and Load
// restores the last snapshot, so a test can discard unsaved edits the
// way a reload from disk would.
type ConfigStore struct {
	mu    sync.RWMutex
	live  map[string]any
	saved map[string]any
}

// NewConfigStore returns a store holding a copy of initial.
func NewConfigStore(initial ...map[string]any) *ConfigStore {
	s := &ConfigStore{live: make(map[string]any)}
	for _, m := range initial {
		maps.Copy(s.live, m)
	}
	s.saved = maps.Clone(s.live)
	return s
}

func (s *ConfigStore) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.live[key]
	return v, ok
}

func (s *ConfigStore) GetString(key string) string {
	v, _ := s.Get(key)
	str, _ := v.(string)
	return str
}

// GetInt truncates floats, matching values decoded from JSON.
func (s *ConfigStore) GetInt(key string) int {
	v, _ := s.Get(key)
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}

func (s *ConfigStore) GetFloat(key string) float64 {
	v, _ := s.Get(key)
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return 0
}

func (s *ConfigStore) GetBool(key string) bool {
	v, _ := s.Get(key)
	b, _ := v.(bool)
	return b
}

// GetStringSlice drops non-string elements of a []any value.
func (s *ConfigStore) GetStringSlice(key string) []string {
	v, _ := s.Get(key)
	switch arr := v.(type) {
	case []string:
		return arr
	case []any:
		out := make([]string, 0, len(arr))
		for _, item := range arr {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	}
	return nil
}

// Set changes the live value. Unlike the file store it does not save.
func (s *ConfigStore) Set(key string, value any) error {
	s.mu.Lock()
	s.live[key] = value
	s.mu.Unlock()
	return nil
}

// Save snapshots the live values.
func (s *ConfigStore) Save() error {
	s.mu.Lock()
	s.saved = maps.Clone(s.live)
	s.mu.Unlock()
	return nil
}

// Load replaces the live values with the last snapshot.
func (s *ConfigStore) Load() error {
	s.mu.Lock()
	s.live = maps.Clone(s.saved)
	s.mu.Unlock()
	return nil
}

func (s *ConfigStore) Path() string {
	return ":memory:"
}
