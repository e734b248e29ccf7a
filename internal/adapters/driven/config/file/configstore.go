package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/gdprqa/internal/core/ports/driven"
)

// Ensure ConfigStore implements the interface.
var _ driven.ConfigStore = (*ConfigStore)(nil)

// configFile is the settings file inside the config directory.
const configFile = "config.toml"

// ConfigStore keeps settings in a TOML file. Keys are dotted paths such
// as "embedding.model"; on disk the first segment becomes a table:
//
//	[embedding]
//	model = "text-embedding-3-large"
type ConfigStore struct {
	mu   sync.RWMutex
	path string
	data map[string]any
}

// NewConfigStore opens config.toml in configDir, defaulting to ~/.gdprqa.
// A missing file is an empty configuration; a malformed one is an error.
func NewConfigStore(configDir string) (*ConfigStore, error) {
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		configDir = filepath.Join(home, ".gdprqa")
	}
	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return nil, fmt.Errorf("create config directory: %w", err)
	}

	s := &ConfigStore{path: filepath.Join(configDir, configFile)}
	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Get returns the raw value of key.
func (s *ConfigStore) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok
}

// lookup converts the value of key with conv, yielding the zero value
// when the key is missing or has another type.
func lookup[T any](s *ConfigStore, key string, conv func(any) (T, bool)) T {
	var zero T
	v, ok := s.Get(key)
	if !ok {
		return zero
	}
	if t, ok := conv(v); ok {
		return t
	}
	return zero
}

// GetString returns the string at key.
func (s *ConfigStore) GetString(key string) string {
	return lookup(s, key, func(v any) (string, bool) {
		str, ok := v.(string)
		return str, ok
	})
}

// GetInt returns the integer at key. TOML decodes integers as int64.
func (s *ConfigStore) GetInt(key string) int {
	return lookup(s, key, func(v any) (int, bool) {
		switch n := v.(type) {
		case int64:
			return int(n), true
		case int:
			return n, true
		}
		return 0, false
	})
}

// GetFloat returns the number at key. Integers are widened, so
// "rerank_weight = 1" reads as 1.0.
func (s *ConfigStore) GetFloat(key string) float64 {
	return lookup(s, key, func(v any) (float64, bool) {
		switch n := v.(type) {
		case float64:
			return n, true
		case float32:
			return float64(n), true
		case int64:
			return float64(n), true
		case int:
			return float64(n), true
		}
		return 0, false
	})
}

// GetBool returns the boolean at key.
func (s *ConfigStore) GetBool(key string) bool {
	return lookup(s, key, func(v any) (bool, bool) {
		b, ok := v.(bool)
		return b, ok
	})
}

// GetStringSlice returns the string array at key. Non-string elements of
// a decoded array are skipped.
func (s *ConfigStore) GetStringSlice(key string) []string {
	return lookup(s, key, func(v any) ([]string, bool) {
		switch arr := v.(type) {
		case []string:
			return arr, true
		case []any:
			out := make([]string, 0, len(arr))
			for _, item := range arr {
				if str, ok := item.(string); ok {
					out = append(out, str)
				}
			}
			return out, true
		}
		return nil, false
	})
}

// Set stores value at key and writes the file.
func (s *ConfigStore) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return s.write()
}

// Save writes the file.
func (s *ConfigStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write()
}

// write replaces the file atomically with owner-only permissions, since
// it may hold API keys. Callers hold the lock.
func (s *ConfigStore) write() error {
	data, err := toml.Marshal(nest(s.data))
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".config-*.toml")
	if err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // gone after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write config: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("write config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load reads the file, replacing the values in memory.
func (s *ConfigStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.data = make(map[string]any)
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	var tree map[string]any
	if err := toml.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("parse %s: %w", s.path, err)
	}
	s.data = flatten(tree, "", make(map[string]any))
	return nil
}

// Path returns the configuration file path.
func (s *ConfigStore) Path() string {
	return s.path
}

// flatten turns nested tables into dotted keys, writing into out.
func flatten(tree map[string]any, prefix string, out map[string]any) map[string]any {
	for k, v := range tree {
		if prefix != "" {
			k = prefix + "." + k
		}
		if sub, ok := v.(map[string]any); ok {
			flatten(sub, k, out)
			continue
		}
		out[k] = v
	}
	return out
}

// nest groups dotted keys under their first segment. A key whose table
// name is also used as a plain value stays a quoted dotted key.
func nest(flat map[string]any) map[string]any {
	tree := make(map[string]any, len(flat))
	for k, v := range flat {
		if !strings.Contains(k, ".") {
			tree[k] = v
		}
	}
	for k, v := range flat {
		table, rest, ok := strings.Cut(k, ".")
		if !ok {
			continue
		}
		existing, found := tree[table]
		sub, isTable := existing.(map[string]any)
		switch {
		case !found:
			sub = make(map[string]any)
			tree[table] = sub
		case !isTable:
			tree[k] = v
			continue
		}
		sub[rest] = v
	}
	return tree
}
