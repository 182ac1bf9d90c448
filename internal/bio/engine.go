package bio

import (
	"context"
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/impression-social/impression-engine/internal/logger"
	"github.com/impression-social/impression-engine/internal/utils"
)

const (
	defaultMinDelay = 100 * time.Millisecond
	defaultMaxDelay = 300 * time.Millisecond

	humorIncrement         = 0.15
	confidenceBaseline     = 0.5
	confidenceIncrement    = 0.1
	vulnerabilityIncrement = 0.08
	pronounIncrement       = 0.02
	creativityIncrement    = 0.1
	metaphorIncrement      = 0.05
	opennessIncrement      = 0.1
	intentIncrement        = 0.2

	maxKeywords = 10
)

var (
	personalPronouns = regexp.MustCompile(`\b(i|me|my|myself)\b`)
	nonWord          = regexp.MustCompile(`[^\w\s]`)
)

// Config holds the heuristic engine tunables. The artificial delay emulates
// asynchronous model inference; set both bounds to zero in tests.
type Config struct {
	MinDelay time.Duration
	MaxDelay time.Duration
}

func (c Config) withDefaults() Config {
	if c.MinDelay == 0 && c.MaxDelay == 0 {
		c.MinDelay = defaultMinDelay
		c.MaxDelay = defaultMaxDelay
	}
	if c.MaxDelay < c.MinDelay {
		c.MaxDelay = c.MinDelay
	}
	return c
}

// Engine is the heuristic Analyzer. It is stateless apart from the shared
// cache; parallel instances over the same store are safe because analysis is
// a pure function of the bio text.
type Engine struct {
	cache  *Cache
	logger *zap.Logger
	cfg    Config
}

func NewEngine(cache *Cache, log *zap.Logger, cfg Config) *Engine {
	return &Engine{
		cache:  cache,
		logger: log,
		cfg:    cfg.withDefaults(),
	}
}

// Analyze returns the cached analysis for the user when present, otherwise
// scores the bio text and stores the result. An empty bio is valid input and
// yields zeroed scores with a neutral tone.
func (e *Engine) Analyze(ctx context.Context, userID, bioText string) (*BioAnalysis, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}

	if cached, ok, err := e.cache.Analysis(userID); err != nil {
		return nil, err
	} else if ok {
		return cached, nil
	}

	if err := utils.WaitFor(ctx, e.delay()); err != nil {
		return nil, err
	}

	analysis := analyze(userID, bioText)

	if err := e.cache.PutAnalysis(analysis); err != nil {
		return nil, err
	}

	e.logger.Debug("bio analyzed",
		zap.String("user_id", userID),
		zap.String(logger.FieldProvider, "heuristic"),
		zap.Float64("tone_polarity", analysis.TonePolarity),
		zap.String("emotional_tone", string(analysis.EmotionalTone)),
	)

	return analysis, nil
}

func (e *Engine) delay() time.Duration {
	spread := e.cfg.MaxDelay - e.cfg.MinDelay
	if spread <= 0 {
		return e.cfg.MinDelay
	}
	return e.cfg.MinDelay + time.Duration(rand.Int63n(int64(spread)))
}

// analyze computes the full feature vector. Each sub-score scans the
// lower-cased text independently.
func analyze(userID, bioText string) *BioAnalysis {
	text := strings.ToLower(bioText)

	confidence := scoreConfidence(text)
	tone := emotionalTone(text)

	return &BioAnalysis{
		UserID:             userID,
		BioText:            bioText,
		HumorScore:         scoreHumor(bioText, text),
		ConfidenceScore:    confidence,
		VulnerabilityScore: scoreVulnerability(text),
		CreativityScore:    scoreCreativity(text),
		EmotionalTone:      tone,
		OpennessScore:      scoreOpenness(text),
		TonePolarity:       tonePolarity(tone, confidence),
		Keywords:           extractKeywords(text),
		PersonalityMarkers: personalityMarkers(bioText, text),
		IntentAlignment:    intentAlignment(text),
	}
}

func scoreHumor(raw, text string) float64 {
	score := 0.0
	for _, indicator := range humorIndicators {
		if strings.Contains(text, indicator) {
			score += humorIncrement
		}
	}

	// Punctuation patterns can indicate playfulness.
	if strings.Count(raw, "!") > 2 {
		score += 0.1
	}
	if strings.Count(raw, "?") > 1 {
		score += 0.1
	}

	return utils.Clamp01(score)
}

func scoreConfidence(text string) float64 {
	score := confidenceBaseline
	for _, marker := range confidenceMarkers {
		if strings.Contains(text, marker) {
			score += confidenceIncrement
		}
	}
	for _, marker := range uncertaintyMarkers {
		if strings.Contains(text, marker) {
			score -= confidenceIncrement
		}
	}
	return utils.Clamp01(score)
}

func scoreVulnerability(text string) float64 {
	score := 0.0
	for _, marker := range vulnerabilityMarkers {
		if strings.Contains(text, marker) {
			score += vulnerabilityIncrement
		}
	}

	// Personal pronouns indicate openness.
	score += float64(len(personalPronouns.FindAllString(text, -1))) * pronounIncrement

	return utils.Clamp01(score)
}

func scoreCreativity(text string) float64 {
	score := 0.0
	for _, marker := range creativityMarkers {
		if strings.Contains(text, marker) {
			score += creativityIncrement
		}
	}
	for _, phrase := range metaphorPhrases {
		if strings.Contains(text, phrase) {
			score += metaphorIncrement
		}
	}
	return utils.Clamp01(score)
}

func scoreOpenness(text string) float64 {
	score := 0.0
	for _, marker := range opennessMarkers {
		if strings.Contains(text, marker) {
			score += opennessIncrement
		}
	}
	return utils.Clamp01(score)
}

func emotionalTone(text string) EmotionalTone {
	positive := 0
	negative := 0
	for _, word := range positiveWords {
		if strings.Contains(text, word) {
			positive++
		}
	}
	for _, word := range negativeWords {
		if strings.Contains(text, word) {
			negative++
		}
	}

	switch {
	case positive > negative*2:
		return TonePositive
	case negative > positive*2:
		return ToneNegative
	case positive > 0 && negative > 0:
		return ToneComplex
	default:
		return ToneNeutral
	}
}

// tonePolarity maps (tone, confidence) to [-1, 1] via fixed bands.
func tonePolarity(tone EmotionalTone, confidence float64) float64 {
	var polarity float64
	switch tone {
	case TonePositive:
		polarity = 0.3 + confidence*0.7
	case ToneNegative:
		polarity = -0.3 - confidence*0.4
	case ToneComplex:
		polarity = (confidence - 0.5) * 0.6
	default:
		polarity = (confidence - 0.5) * 0.4
	}
	return utils.Clamp(polarity, -1, 1)
}

func extractKeywords(text string) []string {
	cleaned := nonWord.ReplaceAllString(text, "")
	keywords := make([]string, 0, maxKeywords)
	for _, word := range strings.Fields(cleaned) {
		if len(word) <= 3 {
			continue
		}
		if _, stop := stopWords[word]; stop {
			continue
		}
		keywords = append(keywords, word)
		if len(keywords) == maxKeywords {
			break
		}
	}
	return keywords
}

// personalityMarkers emits a tag per trait whose score clears its threshold.
func personalityMarkers(raw, text string) []string {
	markers := make([]string, 0, 5)
	if scoreHumor(raw, text) > 0.5 {
		markers = append(markers, "humorous")
	}
	if scoreConfidence(text) > 0.6 {
		markers = append(markers, "confident")
	}
	if scoreVulnerability(text) > 0.5 {
		markers = append(markers, "open")
	}
	if scoreCreativity(text) > 0.6 {
		markers = append(markers, "creative")
	}
	if scoreOpenness(text) > 0.6 {
		markers = append(markers, "adventurous")
	}
	return markers
}

func intentAlignment(text string) map[string]float64 {
	alignment := make(map[string]float64, len(intentKeywords))
	for intent, keywords := range intentKeywords {
		score := 0.0
		for _, keyword := range keywords {
			if strings.Contains(text, keyword) {
				score += intentIncrement
			}
		}
		alignment[intent] = utils.Clamp01(score)
	}
	return alignment
}
