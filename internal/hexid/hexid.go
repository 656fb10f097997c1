// Package hexid generates random lowercase hex identifiers and secrets.
package hexid

import (
	"crypto/rand"
	"encoding/hex"
)

// TokenBytes is the entropy of a generated API token.
const TokenBytes = 32

// New returns an 8-character id, used to tag event stream clients in logs.
func New() string {
	return random(4)
}

// Token returns a bearer token of TokenBytes random bytes.
func Token() string {
	return random(TokenBytes)
}

func random(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic("hexid: crypto/rand failed: " + err.Error())
	}
	return hex.EncodeToString(b)
}
