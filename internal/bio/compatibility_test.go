package bio

import (
	"testing"

	"github.com/impression-social/impression-engine/internal/store"
)

func analysisFixture(id string, humor, vulnerability, confidence, openness, creativity float64, tone EmotionalTone) *BioAnalysis {
	return &BioAnalysis{
		UserID:             id,
		HumorScore:         humor,
		VulnerabilityScore: vulnerability,
		ConfidenceScore:    confidence,
		OpennessScore:      openness,
		CreativityScore:    creativity,
		EmotionalTone:      tone,
	}
}

func TestCompatibilityBlend(t *testing.T) {
	t.Parallel()

	a := analysisFixture("a", 0.8, 0.5, 0.6, 0.4, 0.9, TonePositive)
	b := analysisFixture("b", 0.6, 0.3, 0.4, 0.6, 0.5, TonePositive)

	c := Compatibility(a, b)

	approx(t, c.HumorCompatibility, 0.8, "humor")
	approx(t, c.EmotionalResonance, 0.9, "emotional")
	approx(t, c.CommunicationStyleMatch, 0.8, "communication")
	approx(t, c.PersonalityComplement, 0.7, "personality")
	approx(t, c.OverallCompatibility, 0.82, "overall")
}

func TestCompatibilityIsSymmetric(t *testing.T) {
	t.Parallel()

	a := analysisFixture("a", 0.2, 0.9, 0.1, 0.7, 0.3, ToneComplex)
	b := analysisFixture("b", 0.7, 0.2, 0.8, 0.2, 0.6, ToneNeutral)

	ab := Compatibility(a, b)
	ba := Compatibility(b, a)

	approx(t, ab.HumorCompatibility, ba.HumorCompatibility, "humor symmetry")
	approx(t, ab.EmotionalResonance, ba.EmotionalResonance, "emotional symmetry")
	approx(t, ab.CommunicationStyleMatch, ba.CommunicationStyleMatch, "communication symmetry")
	approx(t, ab.PersonalityComplement, ba.PersonalityComplement, "personality symmetry")
	approx(t, ab.OverallCompatibility, ba.OverallCompatibility, "overall symmetry")
}

func TestToneCompatibilityCacheNormalizesPairKey(t *testing.T) {
	t.Parallel()

	s := store.NewMemory()
	cache := NewCache(s)

	a := analysisFixture("a", 0.8, 0.5, 0.6, 0.4, 0.9, TonePositive)
	b := analysisFixture("b", 0.6, 0.3, 0.4, 0.6, 0.5, TonePositive)

	first, err := cache.ToneCompatibility(a, b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The reversed call must hit the same normalized entry, user order
	// included.
	second, err := cache.ToneCompatibility(b, a)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.UserAID != first.UserAID || second.UserBID != first.UserBID {
		t.Fatalf("expected cache hit for reversed pair, got %+v and %+v", first, second)
	}

	entries := make(map[string]*ToneCompatibility)
	if _, err := s.Get(store.KeyCompatibility, &entries); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected a single cache entry, got %d", len(entries))
	}
	if _, ok := entries[store.PairKey("a", "b")]; !ok {
		t.Fatalf("expected normalized pair key, got %v", entries)
	}
}
