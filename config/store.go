// Package config provides the process-wide key-value configuration
// store. Keys use dotted lower-case form ("server.address"); values
// come from explicit Set calls, PROBING_* environment variables, and
// optional .env files.
package config

import (
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/joho/godotenv"
)

// EnvPrefix marks environment variables that feed the store.
// PROBING_SERVER_ADDRESS becomes the key "server.address".
const EnvPrefix = "PROBING_"

// A Store is a concurrency-safe key-value configuration table.
type Store struct {
	mu     sync.RWMutex
	values map[string]string
}

// New returns an empty store.
func New() *Store {
	return &Store{values: make(map[string]string)}
}

// FromEnv returns a store seeded from PROBING_* environment
// variables.
func FromEnv() *Store {
	s := New()

	for _, entry := range os.Environ() {
		key, value, ok := strings.Cut(entry, "=")
		if !ok || !strings.HasPrefix(key, EnvPrefix) {
			continue
		}

		s.Set(envToKey(key), value)
	}

	return s
}

// LoadDotenv merges values from a .env file. A missing file is not an
// error; the store simply stays as it is. Only PROBING_* entries are
// taken.
func (s *Store) LoadDotenv(path string) error {
	values, err := godotenv.Read(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}

		return err
	}

	for key, value := range values {
		if !strings.HasPrefix(key, EnvPrefix) {
			continue
		}

		s.Set(envToKey(key), value)
	}

	return nil
}

// Get returns the value for key and whether it is present.
func (s *Store) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[key]

	return v, ok
}

// GetDefault returns the value for key, or fallback when absent.
func (s *Store) GetDefault(key, fallback string) string {
	if v, ok := s.Get(key); ok {
		return v
	}

	return fallback
}

// Set stores a value.
func (s *Store) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = value
}

// Keys returns all present keys in sorted order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return keys
}

// Snapshot returns a copy of all values.
func (s *Store) Snapshot() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]string, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}

	return out
}

func envToKey(envName string) string {
	key := strings.TrimPrefix(envName, EnvPrefix)
	key = strings.ToLower(key)
	key = strings.ReplaceAll(key, "_", ".")

	return key
}
