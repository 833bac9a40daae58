package utils

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"hash"
	"sync"
)

// Hasher computes keyed HMAC-SHA256 digests used for request body integrity
// (the HashSHA256 header). Hash instances are pooled to avoid an allocation
// per request.
type Hasher struct {
	pool sync.Pool
}

// NewHasher returns a Hasher keyed with hashKey.
//
//	h := utils.NewHasher("my-secret-key")
//	sig := h.SumHex(body)
func NewHasher(hashKey string) *Hasher {
	key := []byte(hashKey)
	return &Hasher{
		pool: sync.Pool{
			New: func() any {
				return hmac.New(sha256.New, key)
			},
		},
	}
}

// Sum returns the raw HMAC-SHA256 digest of data.
func (h *Hasher) Sum(data []byte) []byte {
	mac := h.pool.Get().(hash.Hash)
	mac.Reset()

	mac.Write(data)
	sum := mac.Sum(nil)

	mac.Reset()
	h.pool.Put(mac)

	return sum
}

// SumHex returns the hex-encoded HMAC-SHA256 digest of data.
func (h *Hasher) SumHex(data []byte) string {
	return hex.EncodeToString(h.Sum(data))
}

// Verify reports whether signature is the hex-encoded digest of data.
// The comparison is constant-time.
func (h *Hasher) Verify(data []byte, signature string) bool {
	expected, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	return hmac.Equal(expected, h.Sum(data))
}

// PayloadDigest returns the SHA-256 digest of a JSON payload in compact form,
// so that two payloads differing only in insignificant whitespace hash
// equally. Payloads that are not valid JSON are hashed verbatim.
func PayloadDigest(payload []byte) [sha256.Size]byte {
	var buf bytes.Buffer
	if err := json.Compact(&buf, payload); err != nil {
		return sha256.Sum256(payload)
	}
	return sha256.Sum256(buf.Bytes())
}
