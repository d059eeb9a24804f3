package util

import (
	"encoding/hex"
)

// HexToBytes decodes a hex string to bytes, returning an error if invalid.
func HexToBytes(s string) ([]byte, error) {
	return hex.DecodeString(s)
}

// BytesToHex encodes bytes to a lowercase hex string.
func BytesToHex(b []byte) string {
	return hex.EncodeToString(b)
}
