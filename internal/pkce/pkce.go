// Package pkce implements the Proof Key for Code Exchange helpers (RFC 7636) used by the
// authorization flow: verifier generation, S256 challenge derivation and state tokens.
package pkce

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
)

const (
	// VerifierLength is the default verifier length. RFC 7636 allows 43-128 characters.
	VerifierLength = 64

	// Method is the only challenge method this client sends.
	Method = "S256"

	stateBytes = 32
)

// Alphabet is the RFC 3986 unreserved character set.
const Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-._~"

// Reader is the randomness source. It must stay cryptographically secure outside tests.
var Reader io.Reader = rand.Reader

// GenerateVerifier returns length characters drawn from [Alphabet], one per random byte
// taken modulo the alphabet size. A non-positive length selects [VerifierLength].
func GenerateVerifier(length int) (string, error) {
	if length <= 0 {
		length = VerifierLength
	}

	buf := make([]byte, length)
	if _, err := io.ReadFull(Reader, buf); err != nil {
		return "", fmt.Errorf("failed to generate random bytes for PKCE: %w", err)
	}

	for i, b := range buf {
		buf[i] = Alphabet[int(b)%len(Alphabet)]
	}
	return string(buf), nil
}

// ChallengeFromVerifier computes base64url(SHA-256(verifier)) without padding.
func ChallengeFromVerifier(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// Pair is a verifier together with its derived challenge.
type Pair struct {
	Verifier  string
	Challenge string
	Method    string
}

// NewPair generates a verifier of the default length and its S256 challenge.
func NewPair() (*Pair, error) {
	verifier, err := GenerateVerifier(VerifierLength)
	if err != nil {
		return nil, err
	}
	return &Pair{Verifier: verifier, Challenge: ChallengeFromVerifier(verifier), Method: Method}, nil
}

// GenerateState returns a random base64url state token used to pair a consent redirect
// with its callback.
func GenerateState() (string, error) {
	buf := make([]byte, stateBytes)
	if _, err := io.ReadFull(Reader, buf); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
