package render

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// ETag returns a strong entity tag for rendered output.
func ETag(body []byte) string {
	sum := blake2b.Sum256(body)
	return `"` + hex.EncodeToString(sum[:16]) + `"`
}
