package similarity

import "testing"

func TestNormalizeStripsUrlsSigilsAndShortTokens(t *testing.T) {
	got := Normalize("Check this out https://example.com/x?y=1 @someone #trending a I go!!")
	want := "check this out someone trending go"
	if got != want {
		t.Fatalf("Normalize: want %q got %q", want, got)
	}
}

func TestFingerprintIsStableAndLength24(t *testing.T) {
	f1 := Fingerprint("Hello World!")
	f2 := Fingerprint("hello   world")
	if f1 != f2 {
		t.Fatalf("expected fingerprints of near-identical text to match: %q vs %q", f1, f2)
	}
	if len(f1) != 24 {
		t.Fatalf("expected 24 hex chars, got %d (%q)", len(f1), f1)
	}
}

func TestSimilarityIdenticalIsOne(t *testing.T) {
	s := Similarity("the quick brown fox jumps", "the quick brown fox jumps")
	if s != 1.0 {
		t.Fatalf("expected similarity 1.0 for identical text, got %v", s)
	}
}

func TestSimilarityEmptySideIsZero(t *testing.T) {
	if s := Similarity("", "something here"); s != 0 {
		t.Fatalf("expected 0 for empty candidate, got %v", s)
	}
	if s := Similarity("something here", "!!! ### https://x.com"); s != 0 {
		t.Fatalf("expected 0 when normalized corpus entry is empty, got %v", s)
	}
}

func TestSimilarityPartialOverlap(t *testing.T) {
	s := Similarity("breaking news about the weather today", "breaking news about the economy today")
	if s <= 0 || s >= 1 {
		t.Fatalf("expected partial overlap strictly between 0 and 1, got %v", s)
	}
}

func TestTooSimilarThresholdBoundary(t *testing.T) {
	corpus := []string{"the quick brown fox jumps over the lazy dog"}
	candidate := "the quick brown fox jumps over the lazy dog"
	if !TooSimilar(candidate, corpus, DefaultThreshold) {
		t.Fatalf("expected exact match to be flagged too similar")
	}

	unrelated := "completely different topic about space travel missions"
	if TooSimilar(unrelated, corpus, DefaultThreshold) {
		t.Fatalf("expected unrelated text not to be flagged too similar")
	}
}

func TestTooSimilarEmptyCorpus(t *testing.T) {
	if TooSimilar("anything", nil, DefaultThreshold) {
		t.Fatalf("expected empty corpus to never flag too similar")
	}
}
