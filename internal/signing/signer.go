// Package signing implements the tamper-evident seat-count token used by
// the upgrade flow. A seat count computed at page-render time is signed
// together with a single-use random salt; the client echoes the signed
// value and salt back on submission, and verification recovers the integer
// only if nothing was altered in between. Tokens are never persisted.
package signing

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"corporate/internal/types"
)

// saltBytes is the number of random bytes in a salt (32 hex chars).
const saltBytes = 16

// sep separates the value payload from its signature in the signed string.
const sep = ":"

// errSeatCountInvalid is the single error returned for every verification
// failure. Malformed input, a non-integer payload, and a signature mismatch
// are deliberately indistinguishable so the endpoint cannot be used as a
// forgery oracle.
func errSeatCountInvalid() *types.AppError {
	return types.NewAppError(
		types.ErrCodeBillingError,
		"Seat count verification failed. Please reload the page and try again.",
		nil,
	)
}

// Signer signs and verifies seat-count tokens with a process-wide secret.
// The secret is read once at construction and never mutated.
type Signer struct {
	secret []byte
}

// NewSigner creates a Signer keyed by the given secret.
func NewSigner(secret types.SecretString) *Signer {
	return &Signer{secret: []byte(secret.Unmask())}
}

// Sign generates a fresh random salt, computes a signature over the value
// salted with it, and returns the signed value and the salt for embedding
// into the page.
func (s *Signer) Sign(value int) (signed string, salt string, err error) {
	if value < 0 {
		return "", "", fmt.Errorf("seat count must be non-negative, got %d", value)
	}

	raw := make([]byte, saltBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", "", fmt.Errorf("generating salt: %w", err)
	}
	salt = hex.EncodeToString(raw)

	payload := strconv.Itoa(value)
	return payload + sep + s.signature(payload, salt), salt, nil
}

// Verify recomputes the signature for the value carried inside signed and
// compares it against the attached signature. It returns the recovered
// integer on success and a single opaque error on any failure.
func (s *Signer) Verify(signed string, salt string) (int, error) {
	payload, sig, ok := strings.Cut(signed, sep)
	if !ok {
		return 0, errSeatCountInvalid()
	}

	value, err := strconv.Atoi(payload)
	if err != nil || value < 0 {
		return 0, errSeatCountInvalid()
	}

	expected := s.signature(payload, salt)
	if !hmac.Equal([]byte(sig), []byte(expected)) {
		return 0, errSeatCountInvalid()
	}

	return value, nil
}

// signature computes the HMAC-SHA256 over payload and salt.
func (s *Signer) signature(payload, salt string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(salt))
	mac.Write([]byte(sep))
	mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
