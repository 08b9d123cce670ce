// Package chain provides the hashing primitives for the CreditChain ledgers:
// canonical payload encoding, SHA-256 digests, Merkle-root reduction, and
// bounded proof-of-work mining.
//
// Everything here is deterministic: the ledger engine recomputes digests from
// persisted fields during verification, so two logically-equal inputs must
// produce byte-identical canonical encodings. Digests are SHA-256 rendered as
// 64 lowercase hex characters.
package chain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// GenesisHash is the previous-hash sentinel of the first block in every
// ledger: 64 hex zeros, the width of a hex-encoded SHA-256 digest.
const GenesisHash = "0000000000000000000000000000000000000000000000000000000000000000"

// SumHex returns the hex-encoded SHA-256 digest of data.
func SumHex(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Canonical encodes a flat field map as compact JSON with sorted keys.
// Timestamps must already be pre-formatted strings; numeric values keep Go's
// shortest float representation, which round-trips exactly through a
// DOUBLE PRECISION column. The encoding is reproducible byte-for-byte from
// persisted data alone.
func Canonical(fields map[string]any) ([]byte, error) {
	b, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("canonical encode: %w", err)
	}
	return b, nil
}
