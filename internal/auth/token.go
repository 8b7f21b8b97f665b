// Package auth provides management token generation used by the server
// registration path and the CLI admin commands.
package auth

import (
	"crypto/rand"
	"fmt"
)

const tokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// DefaultTokenLength is the issued token length when none is configured.
const DefaultTokenLength = 10

// GenerateToken returns a cryptographically random token of n alphanumeric
// characters (DefaultTokenLength when n <= 0). The token is the registrant's
// sole proof of control, so a randomness failure is returned as an error
// rather than degrading to a weaker source.
func GenerateToken(n int) (string, error) {
	if n <= 0 {
		n = DefaultTokenLength
	}

	token := make([]byte, n)
	buf := make([]byte, 1)
	// 248 is the largest multiple of len(tokenAlphabet) below 256; bytes at
	// or above it are redrawn to keep the selection uniform.
	const redrawAt = 248
	for i := 0; i < n; {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("token randomness: %w", err)
		}
		if buf[0] >= redrawAt {
			continue
		}
		token[i] = tokenAlphabet[int(buf[0])%len(tokenAlphabet)]
		i++
	}
	return string(token), nil
}
