package random

import (
	"crypto/rand"
	"encoding/hex"
)

// NewHexString returns a hex-encoded string of size random bytes.
func NewHexString(size int) (string, error) {
	buf := make([]byte, size)

	if _, err := rand.Read(buf); err != nil {
		return "", err
	}

	return hex.EncodeToString(buf), nil
}
