// Package crypto is the Credential Store (spec.md §4.A): AEAD seal/open of
// account access tokens, refresh tokens, and proxy passwords.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/xfleet/publisher/utils"
)

// ErrOpenFailed is wrapped into every Open failure so callers can
// distinguish "cannot decrypt this value" from a programmer-error panic —
// the Publisher Cycle treats it as a BLOCKED-with-diagnostic outcome
// (spec.md §4.A), never a retry.
var ErrOpenFailed = errors.New("credential store: open failed")

const nonceSize = 12

// wrapSealErr passes nil through unchanged so utils.ErrorPanic only fires
// on a genuine failure, never on a wrapped nil.
func wrapSealErr(step string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("credential store: %s: %w", step, err)
}

// Sealer seals and opens secrets with AES-256-GCM. The zero value is not
// usable; construct with NewSealer.
type Sealer struct {
	key [32]byte
}

// NewSealer derives the 32-byte AES key from the process-wide secret per
// spec.md §4.A: 64 hex chars decode directly; else a 32-byte base64 value
// is used as-is; else the raw string is SHA-256'd. The SHA-256 fallback is
// pragmatic, not cryptographically ideal (spec.md §9) — logger, when
// non-nil, gets a WARN the way the teacher's config package logs
// degraded-mode fallbacks.
func NewSealer(secret string, logger *logrus.Logger) (*Sealer, error) {
	if secret == "" {
		return nil, errors.New("credential store: TOKEN_ENCRYPTION_KEY is required")
	}

	if len(secret) == 64 {
		if raw, err := hex.DecodeString(secret); err == nil && len(raw) == 32 {
			var key [32]byte
			copy(key[:], raw)
			return &Sealer{key: key}, nil
		}
	}

	if raw, err := base64.StdEncoding.DecodeString(secret); err == nil && len(raw) == 32 {
		var key [32]byte
		copy(key[:], raw)
		return &Sealer{key: key}, nil
	}

	if logger != nil {
		logger.WithFields(logrus.Fields{"module": "crypto"}).
			Warn("TOKEN_ENCRYPTION_KEY is neither 64 hex chars nor a 32-byte base64 value; " +
				"falling back to SHA-256(secret) — operators should supply a real 32-byte key")
	}
	return &Sealer{key: sha256.Sum256([]byte(secret))}, nil
}

// Seal encrypts plaintext, returning "iv.tag.ciphertext" with each segment
// base64-encoded (spec.md §4.A, §6). A failure here is programmer error —
// it can only happen if the system's CSRNG is broken — so Seal panics via
// utils.ErrorPanic rather than returning an error, matching its use for
// unrecoverable conditions in the teacher codebase.
func (s *Sealer) Seal(plaintext string) string {
	block, err := aes.NewCipher(s.key[:])
	utils.ErrorPanic(wrapSealErr("new cipher", err))
	gcm, err := cipher.NewGCM(block)
	utils.ErrorPanic(wrapSealErr("new gcm", err))

	iv := make([]byte, nonceSize)
	_, err = rand.Read(iv)
	utils.ErrorPanic(wrapSealErr("read iv", err))

	sealed := gcm.Seal(nil, iv, []byte(plaintext), nil)
	ciphertext := sealed[:len(sealed)-gcm.Overhead()]
	tag := sealed[len(sealed)-gcm.Overhead():]

	return strings.Join([]string{
		base64.StdEncoding.EncodeToString(iv),
		base64.StdEncoding.EncodeToString(tag),
		base64.StdEncoding.EncodeToString(ciphertext),
	}, ".")
}

// Open decrypts a value produced by Seal. Any malformed segment, wrong key,
// or tampered ciphertext returns ErrOpenFailed — callers must treat this as
// an operator-actionable BLOCK, never a retry (spec.md §4.A, §7).
func (s *Sealer) Open(sealed string) (string, error) {
	parts := strings.Split(sealed, ".")
	if len(parts) != 3 {
		return "", fmt.Errorf("%w: expected 3 segments, got %d", ErrOpenFailed, len(parts))
	}

	iv, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return "", fmt.Errorf("%w: decode iv: %v", ErrOpenFailed, err)
	}
	tag, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return "", fmt.Errorf("%w: decode tag: %v", ErrOpenFailed, err)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(parts[2])
	if err != nil {
		return "", fmt.Errorf("%w: decode ciphertext: %v", ErrOpenFailed, err)
	}

	block, err := aes.NewCipher(s.key[:])
	if err != nil {
		return "", fmt.Errorf("%w: new cipher: %v", ErrOpenFailed, err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("%w: new gcm: %v", ErrOpenFailed, err)
	}
	if len(iv) != gcm.NonceSize() {
		return "", fmt.Errorf("%w: bad iv length %d", ErrOpenFailed, len(iv))
	}

	plaintext, err := gcm.Open(nil, iv, append(ciphertext, tag...), nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrOpenFailed, err)
	}
	return string(plaintext), nil
}
