package guests

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/blake2b"
)

const tokenBytes = 32

// NewToken returns a random hex conversion token and its storage digest.
func NewToken() (token, digest string, err error) {
	return newTokenFrom(rand.Reader)
}

func newTokenFrom(r io.Reader) (string, string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", "", fmt.Errorf("generate convert token: %w", err)
	}
	token := hex.EncodeToString(buf)
	return token, Digest(token), nil
}

// Digest is the blake2b-256 hex digest stored in place of a raw token.
func Digest(token string) string {
	sum := blake2b.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
