package id

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
)

const (
	PrefixUpload = "upl"
	PrefixJob    = "job"
)

// New returns prefix_<32 hex chars>. An empty prefix yields the bare hex string.
func New(prefix string) string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return strings.TrimPrefix(prefix+"_fallback-id", "_")
	}
	if prefix == "" {
		return hex.EncodeToString(b[:])
	}
	return prefix + "_" + hex.EncodeToString(b[:])
}
