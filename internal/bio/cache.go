package bio

import (
	"fmt"

	"github.com/impression-social/impression-engine/internal/store"
)

// Cache is the store-backed cache shared by all Analyzer implementations.
// Analyses are keyed by user id with at most one entry per user; tone
// compatibility results are keyed by the normalized pair key.
type Cache struct {
	store store.Store
}

func NewCache(s store.Store) *Cache {
	return &Cache{store: s}
}

// Analysis returns the cached analysis for the user, if any.
func (c *Cache) Analysis(userID string) (*BioAnalysis, bool, error) {
	entries := make(map[string]*BioAnalysis)
	if _, err := c.store.Get(store.KeyBioAnalysis, &entries); err != nil {
		return nil, false, fmt.Errorf("read bio analysis cache: %w", err)
	}

	analysis, ok := entries[userID]
	return analysis, ok, nil
}

// PutAnalysis stores the analysis, overwriting any prior entry for the user.
func (c *Cache) PutAnalysis(analysis *BioAnalysis) error {
	entries := make(map[string]*BioAnalysis)
	if _, err := c.store.Get(store.KeyBioAnalysis, &entries); err != nil {
		return fmt.Errorf("read bio analysis cache: %w", err)
	}

	entries[analysis.UserID] = analysis
	if err := c.store.Set(store.KeyBioAnalysis, entries); err != nil {
		return fmt.Errorf("write bio analysis cache: %w", err)
	}
	return nil
}

// ClearAnalysis drops the cached analysis for the user so the next Analyze
// call recomputes it.
func (c *Cache) ClearAnalysis(userID string) error {
	entries := make(map[string]*BioAnalysis)
	ok, err := c.store.Get(store.KeyBioAnalysis, &entries)
	if err != nil {
		return fmt.Errorf("read bio analysis cache: %w", err)
	}
	if !ok {
		return nil
	}

	delete(entries, userID)
	if err := c.store.Set(store.KeyBioAnalysis, entries); err != nil {
		return fmt.Errorf("write bio analysis cache: %w", err)
	}
	return nil
}

// ToneCompatibility returns the cached pairwise compatibility, computing and
// caching it when absent. The cache key is normalized, so (a, b) and (b, a)
// share one entry.
func (c *Cache) ToneCompatibility(a, b *BioAnalysis) (*ToneCompatibility, error) {
	key := store.PairKey(a.UserID, b.UserID)

	entries := make(map[string]*ToneCompatibility)
	if _, err := c.store.Get(store.KeyCompatibility, &entries); err != nil {
		return nil, fmt.Errorf("read compatibility cache: %w", err)
	}

	if cached, ok := entries[key]; ok {
		return cached, nil
	}

	compatibility := Compatibility(a, b)
	entries[key] = compatibility
	if err := c.store.Set(store.KeyCompatibility, entries); err != nil {
		return nil, fmt.Errorf("write compatibility cache: %w", err)
	}
	return compatibility, nil
}
