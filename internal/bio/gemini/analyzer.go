package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"

	"github.com/impression-social/impression-engine/internal/bio"
	"github.com/impression-social/impression-engine/internal/logger"
	"github.com/impression-social/impression-engine/internal/utils"
)

//go:embed prompt.md
var promptTemplate string

const (
	defaultMaxLogLength = 200
	maxKeywords         = 10
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
	Model() string
}

// Analyzer is a bio.Analyzer backed by a Gemini model. It shares the same
// store-backed cache as the heuristic engine, so switching providers keeps
// the at-most-one-entry-per-user contract.
type Analyzer struct {
	generator contentGenerator
	cache     *bio.Cache
	logger    *zap.Logger
	maxLogLen int
}

func NewAnalyzer(generator contentGenerator, cache *bio.Cache, log *zap.Logger, maxLogLength int) *Analyzer {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Analyzer{
		generator: generator,
		cache:     cache,
		logger:    log,
		maxLogLen: maxLogLength,
	}
}

func (a *Analyzer) Analyze(ctx context.Context, userID, bioText string) (*bio.BioAnalysis, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}

	if cached, ok, err := a.cache.Analysis(userID); err != nil {
		return nil, err
	} else if ok {
		return cached, nil
	}

	prompt := buildPrompt(userID, bioText)

	a.logger.Debug("gemini analysis request",
		zap.String("user_id", userID),
		zap.String(logger.FieldProvider, "gemini"),
		zap.String(logger.FieldModel, a.generator.Model()),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, a.maxLogLen)),
	)

	raw, err := a.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return nil, err
	}

	a.logger.Debug("gemini analysis response",
		zap.String("user_id", userID),
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, a.maxLogLen)),
	)

	analysis, err := parseResponse(raw)
	if err != nil {
		return nil, err
	}

	analysis.UserID = userID
	analysis.BioText = bioText

	if err := a.cache.PutAnalysis(analysis); err != nil {
		return nil, err
	}

	return analysis, nil
}

func buildPrompt(userID, bioText string) string {
	template := promptTemplate
	if strings.TrimSpace(template) == "" {
		template = "User id: {{USER_ID}}\n\nBiography:\n{{BIO_TEXT}}\n\nJSON Response:"
	}
	prompt := strings.ReplaceAll(template, "{{USER_ID}}", userID)
	prompt = strings.ReplaceAll(prompt, "{{BIO_TEXT}}", bioText)
	return prompt
}

// parseResponse converts the model reply into a BioAnalysis, clamping every
// scalar into range and falling back to a neutral tone on junk values.
func parseResponse(raw string) (*bio.BioAnalysis, error) {
	cleaned := extractJSON(raw)

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, fmt.Errorf("parse gemini response: %w", err)
	}

	analysis := &bio.BioAnalysis{
		HumorScore:         utils.Clamp01(coerceFloat(data["humor_score"])),
		ConfidenceScore:    utils.Clamp01(coerceFloat(data["confidence_score"])),
		VulnerabilityScore: utils.Clamp01(coerceFloat(data["vulnerability_score"])),
		CreativityScore:    utils.Clamp01(coerceFloat(data["creativity_score"])),
		OpennessScore:      utils.Clamp01(coerceFloat(data["openness_score"])),
		EmotionalTone:      coerceTone(data["emotional_tone"]),
		TonePolarity:       utils.Clamp(coerceFloat(data["tone_polarity"]), -1, 1),
		Keywords:           coerceStrings(data["keywords"], maxKeywords),
		PersonalityMarkers: coerceStrings(data["personality_markers"], 0),
		IntentAlignment:    coerceIntents(data["intent_alignment"]),
	}

	return analysis, nil
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

func coerceFloat(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

func coerceTone(v any) bio.EmotionalTone {
	s, _ := v.(string)
	tone := bio.EmotionalTone(strings.ToLower(strings.TrimSpace(s)))
	switch tone {
	case bio.TonePositive, bio.ToneNegative, bio.ToneComplex, bio.ToneNeutral:
		return tone
	default:
		return bio.ToneNeutral
	}
}

func coerceStrings(v any, limit int) []string {
	items, ok := v.([]any)
	if !ok {
		return []string{}
	}

	result := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			continue
		}
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		result = append(result, s)
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result
}

func coerceIntents(v any) map[string]float64 {
	raw, ok := v.(map[string]any)
	alignment := map[string]float64{
		bio.IntentRomantic:     0,
		bio.IntentPlatonic:     0,
		bio.IntentCreative:     0,
		bio.IntentProfessional: 0,
	}
	if !ok {
		return alignment
	}

	for intent := range alignment {
		if value, present := raw[intent]; present {
			alignment[intent] = utils.Clamp01(coerceFloat(value))
		}
	}
	return alignment
}
