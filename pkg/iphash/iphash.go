package iphash

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Hasher derives a stable, non-reversible tag from a client IP so abuse can
// be analysed without storing the address itself.
type Hasher struct {
	key []byte
}

// New creates a hasher keyed with salt
func New(salt string) *Hasher {
	return &Hasher{key: []byte(salt)}
}

// Hash returns "h_" followed by the first 16 hex chars of HMAC-SHA256(ip)
func (h *Hasher) Hash(ip string) string {
	mac := hmac.New(sha256.New, h.key)
	mac.Write([]byte(ip))
	return "h_" + hex.EncodeToString(mac.Sum(nil))[:16]
}
