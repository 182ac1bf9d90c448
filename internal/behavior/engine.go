package behavior

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/impression-social/impression-engine/internal/logger"
	"github.com/impression-social/impression-engine/internal/profile"
	"github.com/impression-social/impression-engine/internal/store"
	"github.com/impression-social/impression-engine/internal/utils"
)

// Normalization caps for similarity scoring.
const (
	dwellCapMS      = 30000
	reversalCap     = 10
	intensityDivide = 100
)

// Config holds the engine tunables with their documented defaults.
type Config struct {
	// ResonanceThreshold is the minimum overall score for a resonance to
	// surface at all. Default 0.72.
	ResonanceThreshold float64
	// MaxVectors caps the stored vector log. Default 1000.
	MaxVectors int
	// MaxVectorAge drops vectors older than this on every append.
	// Default 24h.
	MaxVectorAge time.Duration
}

func (c Config) withDefaults() Config {
	if c.ResonanceThreshold == 0 {
		c.ResonanceThreshold = 0.72
	}
	if c.MaxVectors == 0 {
		c.MaxVectors = 1000
	}
	if c.MaxVectorAge == 0 {
		c.MaxVectorAge = 24 * time.Hour
	}
	return c
}

// ToneSource supplies the content-tone-resonance signal for a new vector.
// The default draws uniformly from [0.6, 1.0): a placeholder for model-based
// content analysis, deliberately not derived from bio analysis.
type ToneSource func() float64

// Engine records behavioral vectors and computes pairwise resonance. Now and
// Tone are overridable for deterministic tests.
type Engine struct {
	store  store.Store
	logger *zap.Logger
	cfg    Config

	Now  func() time.Time
	Tone ToneSource
}

func NewEngine(s store.Store, log *zap.Logger, cfg Config) *Engine {
	return &Engine{
		store:  s,
		logger: log,
		cfg:    cfg.withDefaults(),
		Now:    time.Now,
		Tone:   func() float64 { return 0.6 + rand.Float64()*0.4 },
	}
}

// RecordView normalizes the raw signals into a vector, appends it to the log
// and enforces the retention policy. The write completes before any
// resonance evaluation sees it.
func (e *Engine) RecordView(targetID, viewerID string, raw RawSignals) (*BehavioralVector, error) {
	vectors, err := e.loadVectors()
	if err != nil {
		return nil, err
	}

	sessionID, err := profile.Session(e.store)
	if err != nil {
		return nil, err
	}

	lastAction := raw.LastAction
	if lastAction == "" {
		lastAction = ActionViewed
	}

	vector := &BehavioralVector{
		TargetID:             targetID,
		ViewerID:             viewerID,
		DwellMS:              raw.DwellMS,
		ScrollReversals:      raw.ScrollReversals,
		ScrollEvents:         raw.ScrollEvents,
		AvgScrollIntensity:   raw.AvgScrollIntensity,
		TouchIntensity:       touchIntensity(raw.AvgScrollIntensity),
		ContentToneResonance: utils.Clamp01(e.Tone()),
		ReturnBehavior:       hasPriorView(vectors, viewerID, targetID),
		LastAction:           lastAction,
		Timestamp:            e.Now().UTC(),
		SessionID:            sessionID,
	}

	vectors = append(vectors, vector)
	vectors = e.prune(vectors)

	if err := e.store.Set(store.KeyVectors, vectors); err != nil {
		return nil, fmt.Errorf("store behavioral vectors: %w", err)
	}

	e.logger.Debug("behavioral vector recorded",
		append(logger.PairFields(viewerID, targetID),
			zap.Int("dwell_ms", vector.DwellMS),
			zap.Int("log_size", len(vectors)),
		)...,
	)

	return vector, nil
}

// Similarity blends the normalized component distances of two vectors into a
// [0, 1] score.
func Similarity(a, b *BehavioralVector) float64 {
	dwellA := math.Min(float64(a.DwellMS)/dwellCapMS, 1)
	dwellB := math.Min(float64(b.DwellMS)/dwellCapMS, 1)

	scrollA := math.Min(float64(a.ScrollReversals)/reversalCap, 1)
	scrollB := math.Min(float64(b.ScrollReversals)/reversalCap, 1)

	intensityA := a.AvgScrollIntensity / intensityDivide
	intensityB := b.AvgScrollIntensity / intensityDivide

	similarity := 0.4*(1-math.Abs(dwellA-dwellB)) +
		0.2*(1-math.Abs(scrollA-scrollB)) +
		0.2*(1-math.Abs(intensityA-intensityB)) +
		0.2*(a.ContentToneResonance*b.ContentToneResonance)

	return utils.Clamp01(similarity)
}

// CheckMutualResonance evaluates the pair from the stored vector log. It
// returns nil when vector evidence is missing in either direction or when the
// overall score stays below the resonance threshold; there is no intermediate
// weak-score result.
func (e *Engine) CheckMutualResonance(userAID, userBID string) (*ResonanceScore, error) {
	vectors, err := e.loadVectors()
	if err != nil {
		return nil, err
	}

	vectorA := findVector(vectors, userAID, userBID)
	vectorB := findVector(vectors, userBID, userAID)
	if vectorA == nil || vectorB == nil {
		return nil, nil
	}

	similarity := Similarity(vectorA, vectorB)
	interest := mutualInterest(vectorA, vectorB)
	contentResonance := utils.Clamp01(vectorA.ContentToneResonance * vectorB.ContentToneResonance)

	overall := 0.5*similarity + 0.3*interest + 0.2*contentResonance
	if overall < e.cfg.ResonanceThreshold {
		return nil, nil
	}

	return &ResonanceScore{
		UserAID:              userAID,
		UserBID:              userBID,
		BehavioralSimilarity: similarity,
		MutualInterestScore:  interest,
		ContentResonance:     contentResonance,
		OverallScore:         overall,
		MatchType:            inferMatchType(vectorA, vectorB),
		ConfidenceLevel:      overall,
	}, nil
}

// PotentialMatches scans the user's own views and returns every qualifying
// resonance, best first.
func (e *Engine) PotentialMatches(userID string) ([]*ResonanceScore, error) {
	vectors, err := e.loadVectors()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	matches := make([]*ResonanceScore, 0)
	for _, vector := range vectors {
		if vector.ViewerID != userID {
			continue
		}
		if _, done := seen[vector.TargetID]; done {
			continue
		}
		seen[vector.TargetID] = struct{}{}

		score, err := e.CheckMutualResonance(userID, vector.TargetID)
		if err != nil {
			return nil, err
		}
		if score != nil {
			matches = append(matches, score)
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].OverallScore > matches[j].OverallScore
	})
	return matches, nil
}

// inferMatchType applies the fixed-priority behavioral rules; the first
// matching rule wins.
func inferMatchType(a, b *BehavioralVector) MatchType {
	avgDwell := float64(a.DwellMS+b.DwellMS) / 2
	avgReversals := float64(a.ScrollReversals+b.ScrollReversals) / 2
	avgContent := (a.ContentToneResonance + b.ContentToneResonance) / 2

	switch {
	case avgDwell > 10000 && avgReversals > 3:
		return MatchRomantic
	case avgDwell > 5000 && avgContent > 0.8:
		return MatchCreative
	case avgDwell > 3000:
		return MatchPlatonic
	case avgReversals > 5 || avgContent > 0.9:
		return MatchSync
	default:
		return MatchUndefined
	}
}

func mutualInterest(a, b *BehavioralVector) float64 {
	score := 0.0

	if a.DwellMS > 5000 && b.DwellMS > 5000 {
		score += 0.4
	}
	if a.ReturnBehavior && b.ReturnBehavior {
		score += 0.3
	}
	if abs(a.ScrollReversals-b.ScrollReversals) <= 2 {
		score += 0.3
	}

	return utils.Clamp01(score)
}

func touchIntensity(avgIntensity float64) string {
	switch {
	case avgIntensity > 70:
		return TouchHigh
	case avgIntensity > 30:
		return TouchMedium
	default:
		return TouchLow
	}
}

func hasPriorView(vectors []*BehavioralVector, viewerID, targetID string) bool {
	return findVector(vectors, viewerID, targetID) != nil
}

func findVector(vectors []*BehavioralVector, viewerID, targetID string) *BehavioralVector {
	for _, vector := range vectors {
		if vector.ViewerID == viewerID && vector.TargetID == targetID {
			return vector
		}
	}
	return nil
}

func (e *Engine) loadVectors() ([]*BehavioralVector, error) {
	vectors := make([]*BehavioralVector, 0)
	if _, err := e.store.Get(store.KeyVectors, &vectors); err != nil {
		return nil, fmt.Errorf("read behavioral vectors: %w", err)
	}
	return vectors, nil
}

// prune applies the retention policy: drop entries past the age limit, then
// keep only the newest MaxVectors.
func (e *Engine) prune(vectors []*BehavioralVector) []*BehavioralVector {
	cutoff := e.Now().UTC().Add(-e.cfg.MaxVectorAge)

	kept := vectors[:0]
	for _, vector := range vectors {
		if vector.Timestamp.After(cutoff) {
			kept = append(kept, vector)
		}
	}

	if len(kept) > e.cfg.MaxVectors {
		kept = kept[len(kept)-e.cfg.MaxVectors:]
	}
	return kept
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
