// Package memstore provides an in-memory key/value store that stands in for
// durable browser storage when token persistence across reloads must be
// suppressed, such as token-in-URL federated flows. Values live exactly as
// long as the process; there is no eviction and no expiry.
package memstore

import (
	"strings"
	"sync"
)

// Store is an in-memory string key/value store. The zero value is not
// usable; construct with New.
type Store struct {
	mu     sync.Mutex
	values map[string]string
}

// New creates an empty store.
func New() *Store {
	return &Store{values: make(map[string]string)}
}

// Get returns the stored value and whether the key was present.
func (s *Store) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.values[key]
	return value, ok
}

// Set stores the value under key and returns the value.
func (s *Store) Set(key, value string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return value
}

// Remove deletes the key if present.
func (s *Store) Remove(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
}

// Clear removes every stored key.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = make(map[string]string)
}

// RemovePrefixMatch deletes every key containing the given substring,
// case-insensitively, and returns how many keys were removed. Used to sweep
// provider-prefixed keys on forced local logout.
func (s *Store) RemovePrefixMatch(fragment string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	fragment = strings.ToLower(fragment)
	removed := 0
	for key := range s.values {
		if strings.Contains(strings.ToLower(key), fragment) {
			delete(s.values, key)
			removed++
		}
	}
	return removed
}

// Keys returns a snapshot of the stored keys.
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.values))
	for key := range s.values {
		keys = append(keys, key)
	}
	return keys
}
