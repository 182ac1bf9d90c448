// Package behavior converts raw interaction telemetry into normalized
// behavioral vectors and derives pairwise resonance from the stored vector
// history.
package behavior

import "time"

// MatchType is the relationship flavor inferred from behavioral patterns.
type MatchType string

const (
	MatchRomantic  MatchType = "romantic"
	MatchPlatonic  MatchType = "platonic"
	MatchCreative  MatchType = "creative"
	MatchUndefined MatchType = "undefined"
	MatchSync      MatchType = "sync"
)

// Last-action tags attached to a recorded view.
const (
	ActionViewed   = "viewed"
	ActionReturned = "returned"
	ActionSkipped  = "skipped"
)

// Touch intensity categories derived from average scroll intensity.
const (
	TouchLow    = "low"
	TouchMedium = "medium"
	TouchHigh   = "high"
)

// RawSignals is the interaction telemetry delivered by the UI layer for a
// single profile view.
type RawSignals struct {
	DwellMS            int     `json:"dwell_ms" mapstructure:"dwell-ms"`
	ScrollReversals    int     `json:"scroll_reversals" mapstructure:"scroll-reversals"`
	ScrollEvents       int     `json:"scroll_events" mapstructure:"scroll-events"`
	AvgScrollIntensity float64 `json:"avg_scroll_intensity" mapstructure:"avg-scroll-intensity"`
	LastAction         string  `json:"last_action,omitempty" mapstructure:"last-action"`
}

// BehavioralVector is one normalized observation of a viewer looking at a
// target. The vector log is append-only with a capped, time-windowed
// retention enforced on every store.
type BehavioralVector struct {
	TargetID             string    `json:"target_id"`
	ViewerID             string    `json:"viewer_id"`
	DwellMS              int       `json:"dwell_ms"`
	ScrollReversals      int       `json:"scroll_reversals"`
	ScrollEvents         int       `json:"scroll_events"`
	AvgScrollIntensity   float64   `json:"avg_scroll_intensity"`
	TouchIntensity       string    `json:"touch_intensity"`
	ContentToneResonance float64   `json:"content_tone_resonance"`
	ReturnBehavior       bool      `json:"return_behavior"`
	LastAction           string    `json:"last_action"`
	Timestamp            time.Time `json:"timestamp"`
	SessionID            string    `json:"session_id"`
}

// ResonanceScore is the derived pairwise value requiring vector evidence in
// both directions. It is recomputed on demand and never persisted.
type ResonanceScore struct {
	UserAID              string    `json:"user_a_id"`
	UserBID              string    `json:"user_b_id"`
	BehavioralSimilarity float64   `json:"behavioral_similarity"`
	MutualInterestScore  float64   `json:"mutual_interest_score"`
	ContentResonance     float64   `json:"content_resonance"`
	OverallScore         float64   `json:"overall_score"`
	MatchType            MatchType `json:"match_type"`
	ConfidenceLevel      float64   `json:"confidence_level"`
}
