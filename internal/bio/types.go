// Package bio turns free-text biographies into fixed-shape feature vectors
// and scores pairwise tone compatibility. The heuristic engine is a
// deterministic placeholder for a real language model; the Analyzer interface
// stays stable so a model-backed implementation can be substituted.
package bio

import "context"

// EmotionalTone is the categorical tone of a biography.
type EmotionalTone string

const (
	TonePositive EmotionalTone = "positive"
	ToneNeutral  EmotionalTone = "neutral"
	ToneNegative EmotionalTone = "negative"
	ToneComplex  EmotionalTone = "complex"
)

// Intent categories scored by intent alignment.
const (
	IntentRomantic     = "romantic"
	IntentPlatonic     = "platonic"
	IntentCreative     = "creative"
	IntentProfessional = "professional"
)

// BioAnalysis is the per-user feature vector derived from bio text. All
// scalar scores are clamped to [0, 1] (polarity to [-1, 1]) at computation
// time. Immutable once computed; cached by user id.
type BioAnalysis struct {
	UserID             string             `json:"user_id"`
	BioText            string             `json:"bio_text"`
	HumorScore         float64            `json:"humor_score"`
	ConfidenceScore    float64            `json:"confidence_score"`
	VulnerabilityScore float64            `json:"vulnerability_score"`
	CreativityScore    float64            `json:"creativity_score"`
	EmotionalTone      EmotionalTone      `json:"emotional_tone"`
	OpennessScore      float64            `json:"openness_score"`
	TonePolarity       float64            `json:"tone_polarity"`
	Keywords           []string           `json:"keywords"`
	PersonalityMarkers []string           `json:"personality_markers"`
	IntentAlignment    map[string]float64 `json:"intent_alignment"`
}

// ToneCompatibility is the pairwise compatibility derived from two bio
// analyses. Cached by the normalized (sorted) pair key.
type ToneCompatibility struct {
	UserAID                 string  `json:"user_a_id"`
	UserBID                 string  `json:"user_b_id"`
	HumorCompatibility      float64 `json:"humor_compatibility"`
	EmotionalResonance      float64 `json:"emotional_resonance"`
	CommunicationStyleMatch float64 `json:"communication_style_match"`
	PersonalityComplement   float64 `json:"personality_complement"`
	OverallCompatibility    float64 `json:"overall_compatibility"`
}

// Analyzer produces a BioAnalysis for a user. Analyze is a suspension point:
// implementations may delay to emulate asynchronous processing and must honor
// context cancellation while doing so.
type Analyzer interface {
	Analyze(ctx context.Context, userID, bioText string) (*BioAnalysis, error)
}
