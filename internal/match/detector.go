package match

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/impression-social/impression-engine/internal/behavior"
	"github.com/impression-social/impression-engine/internal/bio"
	"github.com/impression-social/impression-engine/internal/dynamics"
	"github.com/impression-social/impression-engine/internal/logger"
	"github.com/impression-social/impression-engine/internal/profile"
	"github.com/impression-social/impression-engine/internal/store"
)

// Score blend weights.
const (
	weightBehavioral   = 0.4
	weightTone         = 0.3
	weightIntent       = 0.2
	weightDemographics = 0.1

	ageSpreadYears = 20
)

// Config holds the detector tunables.
type Config struct {
	// MatchThreshold is the minimum blended score for a match. Default 0.72.
	MatchThreshold float64
	// Cooldown suppresses dynamic initiation for a pair after any
	// evaluation. Default 24h.
	Cooldown time.Duration
}

func (c Config) withDefaults() Config {
	if c.MatchThreshold == 0 {
		c.MatchThreshold = 0.72
	}
	if c.Cooldown == 0 {
		c.Cooldown = 24 * time.Hour
	}
	return c
}

// Detector wires the engines together. Now is overridable for deterministic
// tests.
type Detector struct {
	behavior *behavior.Engine
	analyzer bio.Analyzer
	cache    *bio.Cache
	dynamics *dynamics.Engine
	store    store.Store
	logger   *zap.Logger
	cfg      Config

	Now func() time.Time
}

func NewDetector(
	behaviorEngine *behavior.Engine,
	analyzer bio.Analyzer,
	cache *bio.Cache,
	dynamicsEngine *dynamics.Engine,
	s store.Store,
	log *zap.Logger,
	cfg Config,
) *Detector {
	return &Detector{
		behavior: behaviorEngine,
		analyzer: analyzer,
		cache:    cache,
		dynamics: dynamicsEngine,
		store:    s,
		logger:   log,
		cfg:      cfg.withDefaults(),
		Now:      time.Now,
	}
}

// ProcessProfileView runs the detection pipeline for one view. It is
// fail-safe: any internal error is logged and collapsed into a nil result, so
// a broken analysis never takes the browsing flow down with it.
func (d *Detector) ProcessProfileView(ctx context.Context, viewer, target *profile.UserProfile, signals behavior.RawSignals) *Result {
	result, err := d.processProfileView(ctx, viewer, target, signals)
	if err != nil {
		d.logger.Error("match detection failed",
			append(logger.PairFields(viewer.UserID, target.UserID), zap.Error(err))...,
		)
		return nil
	}
	return result
}

func (d *Detector) processProfileView(ctx context.Context, viewer, target *profile.UserProfile, signals behavior.RawSignals) (*Result, error) {
	if _, err := d.behavior.RecordView(target.UserID, viewer.UserID, signals); err != nil {
		return nil, err
	}

	resonance, err := d.behavior.CheckMutualResonance(viewer.UserID, target.UserID)
	if err != nil {
		return nil, err
	}
	if resonance == nil {
		return nil, nil
	}

	var viewerAnalysis, targetAnalysis *bio.BioAnalysis
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		viewerAnalysis, err = d.analyzer.Analyze(groupCtx, viewer.UserID, viewer.Bio)
		return err
	})
	group.Go(func() error {
		var err error
		targetAnalysis, err = d.analyzer.Analyze(groupCtx, target.UserID, target.Bio)
		return err
	})
	if err := group.Wait(); err != nil {
		return nil, err
	}

	tone, err := d.cache.ToneCompatibility(viewerAnalysis, targetAnalysis)
	if err != nil {
		return nil, err
	}

	result, err := d.buildResult(viewer, target, resonance, tone, viewerAnalysis, targetAnalysis)
	if err != nil {
		return nil, err
	}

	if result.ShouldInitiate {
		dynamic, err := d.dynamics.InitiateDynamic(
			[]string{viewer.UserID, target.UserID},
			result.DynamicLabel,
			viewer.UserID,
		)
		if err != nil {
			return nil, err
		}
		d.logger.Info("dynamic initiated from match",
			append(logger.PairFields(viewer.UserID, target.UserID),
				zap.String(logger.FieldDynamic, dynamic.DynamicID),
				zap.String("dynamic_type", string(result.DynamicLabel)),
			)...,
		)
	}

	if err := d.storeResult(viewer.UserID, target.UserID, result); err != nil {
		return nil, err
	}

	return result, nil
}

func (d *Detector) buildResult(
	viewer, target *profile.UserProfile,
	resonance *behavior.ResonanceScore,
	tone *bio.ToneCompatibility,
	viewerAnalysis, targetAnalysis *bio.BioAnalysis,
) (*Result, error) {
	intentScore := intentJaccard(viewer.Intents, target.Intents)
	demographicScore := demographicCompatibility(viewer.Age, target.Age)

	overall := resonance.OverallScore*weightBehavioral +
		tone.OverallCompatibility*weightTone +
		intentScore*weightIntent +
		demographicScore*weightDemographics

	matchType := determineMatchType(resonance.MatchType, viewer.Intents, target.Intents)
	isMatch := overall >= d.cfg.MatchThreshold

	cooling, err := d.inCooldown(viewer.UserID, target.UserID)
	if err != nil {
		return nil, err
	}

	return &Result{
		IsMatch:                isMatch,
		MatchScore:             overall,
		MatchType:              matchType,
		ConfidenceLevel:        (resonance.ConfidenceLevel + tone.OverallCompatibility) / 2,
		DynamicLabel:           dynamicLabel(matchType),
		Reasoning:              reasoning(resonance, tone, viewerAnalysis, targetAnalysis),
		ShouldInitiate:         isMatch && !cooling,
		EstimatedCompatibility: overall,
	}, nil
}

// UserMatches lists the user's stored positive results, best score first.
func (d *Detector) UserMatches(userID string) ([]*Result, error) {
	history, err := d.loadHistory()
	if err != nil {
		return nil, err
	}

	matches := make([]*Result, 0)
	for _, entry := range history {
		if entry.Result == nil || !entry.Result.IsMatch {
			continue
		}
		for _, user := range entry.Users {
			if user == userID {
				matches = append(matches, entry.Result)
				break
			}
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].MatchScore > matches[j].MatchScore
	})
	return matches, nil
}

// determineMatchType prefers explicitly shared intents over the inferred
// behavioral type.
func determineMatchType(behavioralType behavior.MatchType, viewerIntents, targetIntents []string) behavior.MatchType {
	shared := make(map[string]struct{})
	targets := make(map[string]struct{}, len(targetIntents))
	for _, intent := range targetIntents {
		targets[intent] = struct{}{}
	}
	for _, intent := range viewerIntents {
		if _, ok := targets[intent]; ok {
			shared[intent] = struct{}{}
		}
	}

	switch {
	case hasIntent(shared, bio.IntentRomantic):
		return behavior.MatchRomantic
	case hasIntent(shared, bio.IntentCreative):
		return behavior.MatchCreative
	case hasIntent(shared, bio.IntentPlatonic):
		return behavior.MatchPlatonic
	default:
		return behavioralType
	}
}

func hasIntent(set map[string]struct{}, intent string) bool {
	_, ok := set[intent]
	return ok
}

func dynamicLabel(matchType behavior.MatchType) dynamics.DynamicType {
	switch matchType {
	case behavior.MatchRomantic:
		return dynamics.DynamicFirstFlirt
	case behavior.MatchCreative:
		return dynamics.DynamicFirstCollab
	case behavior.MatchPlatonic:
		return dynamics.DynamicFirstMeet
	case behavior.MatchSync:
		return dynamics.DynamicFirstSync
	default:
		return dynamics.DynamicFirstEncounter
	}
}

// reasoning emits human-readable explanations in a fixed candidate order,
// truncated to the first four.
func reasoning(
	resonance *behavior.ResonanceScore,
	tone *bio.ToneCompatibility,
	viewerAnalysis, targetAnalysis *bio.BioAnalysis,
) []string {
	reasons := make([]string, 0, 4)

	if resonance.BehavioralSimilarity > 0.8 {
		reasons = append(reasons, "Strong subconscious behavioral alignment detected")
	}
	if resonance.MutualInterestScore > 0.7 {
		reasons = append(reasons, "Mutual interest patterns show high compatibility")
	}
	if tone.EmotionalResonance > 0.8 {
		reasons = append(reasons, "Emotional communication styles are highly compatible")
	}
	if tone.HumorCompatibility > 0.7 {
		reasons = append(reasons, "Humor and playfulness levels align well")
	}
	if math.Abs(viewerAnalysis.CreativityScore-targetAnalysis.CreativityScore) < 0.3 {
		reasons = append(reasons, "Similar creative energy and expression styles")
	}
	if math.Abs(viewerAnalysis.VulnerabilityScore-targetAnalysis.VulnerabilityScore) < 0.2 {
		reasons = append(reasons, "Balanced emotional openness and authenticity")
	}
	if sum := viewerAnalysis.ConfidenceScore + targetAnalysis.ConfidenceScore; sum > 1.2 && sum < 1.8 {
		reasons = append(reasons, "Complementary confidence levels create good balance")
	}
	if resonance.ContentResonance > 0.8 {
		reasons = append(reasons, "Bio content shows strong thematic resonance")
	}

	if len(reasons) > 4 {
		reasons = reasons[:4]
	}
	return reasons
}

// intentJaccard is |intersection| / |union| over the deduplicated intent
// sets, zero on an empty union.
func intentJaccard(a, b []string) float64 {
	union := make(map[string]struct{})
	setA := make(map[string]struct{}, len(a))
	for _, intent := range a {
		setA[intent] = struct{}{}
		union[intent] = struct{}{}
	}

	intersection := 0
	for _, intent := range b {
		if _, seen := union[intent]; seen {
			if _, shared := setA[intent]; shared {
				intersection++
				delete(setA, intent)
			}
			continue
		}
		union[intent] = struct{}{}
	}

	if len(union) == 0 {
		return 0
	}
	return float64(intersection) / float64(len(union))
}

func demographicCompatibility(viewerAge, targetAge int) float64 {
	ageDiff := math.Abs(float64(viewerAge - targetAge))
	return math.Max(0, 1-ageDiff/ageSpreadYears)
}

func (d *Detector) inCooldown(userAID, userBID string) (bool, error) {
	history, err := d.loadHistory()
	if err != nil {
		return false, err
	}

	entry, ok := history[store.PairKey(userAID, userBID)]
	if !ok {
		return false, nil
	}
	return d.Now().Before(entry.Timestamp.Add(d.cfg.Cooldown)), nil
}

func (d *Detector) storeResult(userAID, userBID string, result *Result) error {
	history, err := d.loadHistory()
	if err != nil {
		return err
	}

	history[store.PairKey(userAID, userBID)] = &HistoryEntry{
		Timestamp: d.Now().UTC(),
		Users:     []string{userAID, userBID},
		Result:    result,
	}

	if err := d.store.Set(store.KeyMatchHistory, history); err != nil {
		return fmt.Errorf("store match history: %w", err)
	}
	return nil
}

func (d *Detector) loadHistory() (map[string]*HistoryEntry, error) {
	history := make(map[string]*HistoryEntry)
	if _, err := d.store.Get(store.KeyMatchHistory, &history); err != nil {
		return nil, fmt.Errorf("read match history: %w", err)
	}
	return history, nil
}
