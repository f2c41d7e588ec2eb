package id

import (
	"crypto/rand"
	"encoding/hex"
)

// Generator creates opaque identifiers for time entries.
type Generator interface {
	New() string
}

// RandomHex produces 32-character hex identifiers.
type RandomHex struct{}

func (RandomHex) New() string {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}
