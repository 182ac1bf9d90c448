package bio

import (
	"math"

	"github.com/impression-social/impression-engine/internal/utils"
)

// Weights of the overall compatibility blend.
const (
	humorWeight         = 0.25
	emotionalWeight     = 0.35
	communicationWeight = 0.25
	personalityWeight   = 0.15
)

// Compatibility scores how well two analyzed bios fit together. Every
// sub-score is symmetric in its inputs.
func Compatibility(a, b *BioAnalysis) *ToneCompatibility {
	humor := humorCompatibility(a, b)
	emotional := emotionalResonance(a, b)
	communication := communicationMatch(a, b)
	personality := personalityComplement(a, b)

	overall := humor*humorWeight +
		emotional*emotionalWeight +
		communication*communicationWeight +
		personality*personalityWeight

	return &ToneCompatibility{
		UserAID:                 a.UserID,
		UserBID:                 b.UserID,
		HumorCompatibility:      humor,
		EmotionalResonance:      emotional,
		CommunicationStyleMatch: communication,
		PersonalityComplement:   personality,
		OverallCompatibility:    utils.Clamp01(overall),
	}
}

// Similar humor levels score high.
func humorCompatibility(a, b *BioAnalysis) float64 {
	return utils.Clamp01(1 - math.Abs(a.HumorScore-b.HumorScore))
}

// Matching tones plus similar vulnerability levels.
func emotionalResonance(a, b *BioAnalysis) float64 {
	toneMatch := 0.0
	if a.EmotionalTone == b.EmotionalTone {
		toneMatch = 0.5
	}
	vulnerabilityBalance := 1 - math.Abs(a.VulnerabilityScore-b.VulnerabilityScore)
	return utils.Clamp01(toneMatch + vulnerabilityBalance*0.5)
}

func communicationMatch(a, b *BioAnalysis) float64 {
	confidenceBalance := 1 - math.Abs(a.ConfidenceScore-b.ConfidenceScore)
	opennessMatch := 1 - math.Abs(a.OpennessScore-b.OpennessScore)
	return utils.Clamp01((confidenceBalance + opennessMatch) / 2)
}

// Creativity can be complementary rather than identical.
func personalityComplement(a, b *BioAnalysis) float64 {
	complement := math.Min(
		a.CreativityScore+b.CreativityScore,
		2-math.Abs(a.CreativityScore-b.CreativityScore),
	) / 2
	return utils.Clamp01(complement)
}
