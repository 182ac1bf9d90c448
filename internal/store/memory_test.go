package store

import "testing"

func TestMemoryGetMissing(t *testing.T) {
	t.Parallel()

	s := NewMemory()

	var out map[string]string
	ok, err := s.Get("impression:missing", &out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatalf("expected missing document to report false")
	}
}

func TestMemorySetGetRoundTrip(t *testing.T) {
	t.Parallel()

	s := NewMemory()

	doc := map[string]int{"views": 3}
	if err := s.Set(KeyMatchHistory, doc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var out map[string]int
	ok, err := s.Get(KeyMatchHistory, &out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatalf("expected document to exist")
	}
	if out["views"] != 3 {
		t.Fatalf("expected views=3, got %d", out["views"])
	}
}

func TestMemoryKeysFiltersByPrefix(t *testing.T) {
	t.Parallel()

	s := NewMemory()
	if err := s.Set(ProfileKey("u1"), "a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Set(ProfileKey("u2"), "b"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Set(KeySession, "sess"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	keys, err := s.Keys(KeyProfilePrefix)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("expected two profile keys, got %v", keys)
	}
}

func TestPairKeyNormalizesOrder(t *testing.T) {
	t.Parallel()

	if PairKey("b", "a") != PairKey("a", "b") {
		t.Fatalf("expected pair key to be order independent")
	}
	if PairKey("a", "b") != "a_b" {
		t.Fatalf("unexpected pair key: %s", PairKey("a", "b"))
	}
}
