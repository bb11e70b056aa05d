// Package idhash derives deterministic, address-equivalent token handles.
package idhash

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/mr-tron/base58"
)

// ComputeTokenID computes a deterministic token handle:
// base58(SHA256(name, symbol, creator, createdAtNs, nonce)). Each string
// field is written with a length header so distinct metadata can never
// produce the same preimage. The nonce disambiguates identical metadata
// created in the same instant.
func ComputeTokenID(name, symbol, creator string, createdAtNs int64, nonce uint64) string {
	h := sha256.New()
	for _, field := range []string{name, symbol, creator} {
		var hdr [8]byte
		binary.BigEndian.PutUint64(hdr[:], uint64(len(field)))
		h.Write(hdr[:])
		h.Write([]byte(field))
	}
	var tail [16]byte
	binary.BigEndian.PutUint64(tail[:8], uint64(createdAtNs))
	binary.BigEndian.PutUint64(tail[8:], nonce)
	h.Write(tail[:])
	return base58.Encode(h.Sum(nil))
}
