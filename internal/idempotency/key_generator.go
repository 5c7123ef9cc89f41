package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// GenerateKey builds a deterministic key using all provided parts.
func GenerateKey(parts ...interface{}) string {
	h := sha256.New()
	for _, part := range parts {
		fmt.Fprintf(h, "%v:", part)
	}

	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint identifies a request by method, path and body so a key reused
// for a different request can be rejected.
func Fingerprint(method, path string, body []byte) string {
	sum := sha256.Sum256(body)
	return GenerateKey(method, path, hex.EncodeToString(sum[:]))
}
