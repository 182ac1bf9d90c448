// Package match orchestrates the full detection pipeline: behavioral
// recording, resonance, bio analysis, tone compatibility, score blending and
// dynamic initiation.
package match

import (
	"time"

	"github.com/impression-social/impression-engine/internal/behavior"
	"github.com/impression-social/impression-engine/internal/dynamics"
)

// Result is the outcome of one processed profile view. A nil Result means the
// pipeline stopped early: no mutual viewing yet, or an internal failure that
// was logged and swallowed.
type Result struct {
	IsMatch                bool                 `json:"is_match"`
	MatchScore             float64              `json:"match_score"`
	MatchType              behavior.MatchType   `json:"match_type"`
	ConfidenceLevel        float64              `json:"confidence_level"`
	DynamicLabel           dynamics.DynamicType `json:"dynamic_label"`
	Reasoning              []string             `json:"reasoning"`
	ShouldInitiate         bool                 `json:"should_initiate"`
	EstimatedCompatibility float64              `json:"estimated_compatibility"`
}

// HistoryEntry is the persisted per-pair record. One entry per unordered
// pair, overwritten on every evaluation regardless of outcome; its timestamp
// anchors the cooldown.
type HistoryEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Users     []string  `json:"users"`
	Result    *Result   `json:"result"`
}
