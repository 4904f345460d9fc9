package crypto

import (
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func testSealer(t *testing.T) *Sealer {
	t.Helper()
	s, err := NewSealer("0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcd", logrus.New())
	if err != nil {
		t.Fatalf("NewSealer: %v", err)
	}
	return s
}

func TestSealOpenRoundTrip(t *testing.T) {
	s := testSealer(t)
	cases := []string{"", "hello", "a-token-with-!@#$%^&*()", "多字节 utf8 字符串"}
	for _, c := range cases {
		sealed := s.Seal(c)
		got, err := s.Open(sealed)
		if err != nil {
			t.Fatalf("Open(Seal(%q)): %v", c, err)
		}
		if got != c {
			t.Fatalf("round trip mismatch: want %q got %q", c, got)
		}
	}
}

func TestSealProducesDistinctIVsEachCall(t *testing.T) {
	s := testSealer(t)
	a := s.Seal("same-plaintext")
	b := s.Seal("same-plaintext")
	if a == b {
		t.Fatalf("expected distinct ciphertexts from random IVs, got identical output")
	}
}

func TestOpenRejectsCorruptedSegments(t *testing.T) {
	s := testSealer(t)
	sealed := s.Seal("secret-value")
	parts := strings.SplitN(sealed, ".", 3)

	corruptedTag := parts[0] + "." + flipFirstChar(parts[1]) + "." + parts[2]
	if _, err := s.Open(corruptedTag); err == nil {
		t.Fatalf("expected error opening value with corrupted tag")
	}

	corruptedCiphertext := parts[0] + "." + parts[1] + "." + flipFirstChar(parts[2])
	if _, err := s.Open(corruptedCiphertext); err == nil {
		t.Fatalf("expected error opening value with corrupted ciphertext")
	}

	if _, err := s.Open("not-even-three-segments"); err == nil {
		t.Fatalf("expected error opening malformed value")
	}
}

func TestOpenFailsWithWrongKey(t *testing.T) {
	s := testSealer(t)
	other, err := NewSealer("fedcba9876543210fedcba9876543210fedcba9876543210fedcba98765432", logrus.New())
	if err != nil {
		t.Fatalf("NewSealer: %v", err)
	}
	sealed := s.Seal("secret-value")
	if _, err := other.Open(sealed); err == nil {
		t.Fatalf("expected error opening value sealed under a different key")
	}
}

func TestNewSealerKeyDerivation(t *testing.T) {
	if _, err := NewSealer("", logrus.New()); err == nil {
		t.Fatalf("expected error for empty secret")
	}

	// Not hex, not 32-byte base64 -> falls back to SHA-256, still usable.
	s, err := NewSealer("a short passphrase that is neither hex nor base64-32", logrus.New())
	if err != nil {
		t.Fatalf("NewSealer fallback: %v", err)
	}
	sealed := s.Seal("value")
	if _, err := s.Open(sealed); err != nil {
		t.Fatalf("round trip after fallback derivation: %v", err)
	}
}

func flipFirstChar(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] == 'A' {
		b[0] = 'B'
	} else {
		b[0] = 'A'
	}
	return string(b)
}
