// Package store defines the persistence boundary for the matching core.
// Documents are JSON-serializable values persisted under string keys; the
// engines treat the store as an external capability and never retry failed
// operations themselves.
package store

import (
	"sort"
	"strings"
)

// Logical keys used by the matching core. Collections (vectors, dynamics,
// windows, units) are stored as whole JSON arrays; caches and the match
// history as JSON maps.
const (
	KeyBioAnalysis   = "impression:bio_analysis"
	KeyCompatibility = "impression:compatibility_cache"
	KeyVectors       = "impression:behavioral_vectors"
	KeyDynamics      = "impression:dynamics"
	KeyWindows       = "impression:first_windows"
	KeyUnits         = "impression:unit_profiles"
	KeyMatchHistory  = "impression:match_history"
	KeySession       = "impression:session_id"
	KeyProfilePrefix = "impression:profile:"
)

// Store is a string-keyed JSON document store. Reads and writes are expected
// to be fast and non-suspending; implementations backed by a network service
// should bound their own timeouts.
type Store interface {
	// Get unmarshals the document stored under key into out and reports
	// whether a document existed. A missing document is (false, nil), not
	// an error.
	Get(key string, out any) (bool, error)
	// Set marshals v to JSON and persists it under key, replacing any
	// previous document.
	Set(key string, v any) error
	// Keys lists all stored keys with the given prefix.
	Keys(prefix string) ([]string, error)
}

// PairKey builds a normalized composite key for the unordered user pair. The
// two ids are sorted before joining, so (a, b) and (b, a) always address the
// same entry.
func PairKey(a, b string) string {
	ids := []string{a, b}
	sort.Strings(ids)
	return strings.Join(ids, "_")
}

// ProfileKey returns the document key for a user's own profile.
func ProfileKey(userID string) string {
	return KeyProfilePrefix + userID
}
