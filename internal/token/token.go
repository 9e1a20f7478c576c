// Package token mints the unguessable strings used as session and link
// credentials.
package token

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// Source produces credential tokens. The session service takes a Source
// so tests can substitute a deterministic one.
type Source interface {
	Token() (string, error)
}

// Random is a Source backed by crypto/rand, emitting 64 hex characters
// (32 random bytes) per token.
type Random struct{}

func (Random) Token() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("token: read random: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
