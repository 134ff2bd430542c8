package savestore

import (
	"crypto/rand"

	"github.com/marketsim/core/internal/apperr"
)

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
const codeLength = 9
const maxCollisionRetries = 100

// generateCode mints a 9-character [A-Z0-9] save code, per spec §4.7.
func generateCode() (string, error) {
	b := make([]byte, codeLength)
	if _, err := rand.Read(b); err != nil {
		return "", apperr.Wrap(apperr.Transient, err, "generate save code: random source unavailable")
	}
	out := make([]byte, codeLength)
	for i, v := range b {
		out[i] = codeAlphabet[int(v)%len(codeAlphabet)]
	}
	return string(out), nil
}
