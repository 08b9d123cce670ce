package ledger

import (
	"fmt"
	"strconv"
	"time"

	"github.com/jmerrifield20/CreditChain/pkg/chain"
)

// timestampFormat is the exact layout sealed into every block hash. The
// timestamp is persisted as this string, never re-parsed and re-formatted,
// so recomputation during verification is byte-identical.
const timestampFormat = time.RFC3339Nano

// Block is a single hash-sealed unit in a ledger. Once persisted it is never
// mutated; Hash is the block's identity and the value the next block's
// PrevHash links to.
type Block struct {
	Index      int64   `json:"index"`
	Kind       Kind    `json:"kind"`
	Payload    Payload `json:"payload"`
	PrevHash   string  `json:"previous_hash"`
	MerkleRoot string  `json:"merkle_root"`
	Nonce      uint64  `json:"nonce"`
	Timestamp  string  `json:"timestamp"`
	Hash       string  `json:"block_hash"`
	Verified   bool    `json:"verified"`
}

// newTimestamp returns the creation time string for a block being appended.
func newTimestamp() string {
	return time.Now().UTC().Format(timestampFormat)
}

// canonicalBlockData encodes the payload fields together with the
// previous-hash link and timestamp as canonical bytes. This is the data the
// Merkle leaves and the sealing input are built from.
func canonicalBlockData(p Payload, prevHash, timestamp string) ([]byte, error) {
	m := p.fields()
	m["previous_hash"] = prevHash
	m["timestamp"] = timestamp
	return chain.Canonical(m)
}

// sealInput concatenates the canonical block data with the Merkle root. The
// block hash is the digest of sealInput ‖ decimal nonce.
func sealInput(canonical []byte, merkleRoot string) []byte {
	return append(append([]byte{}, canonical...), merkleRoot...)
}

// blockHash computes the final block hash for a sealing input and nonce,
// using the same nonce stringification as chain.Solve.
func blockHash(seal []byte, nonce uint64) string {
	return chain.SumHex(append(append([]byte{}, seal...), strconv.FormatUint(nonce, 10)...))
}

// Recompute derives the block hash from the block's stored fields. A stored
// block whose Hash differs from Recompute(b) has been tampered with.
func Recompute(b *Block) (string, error) {
	canonical, err := canonicalBlockData(b.Payload, b.PrevHash, b.Timestamp)
	if err != nil {
		return "", fmt.Errorf("recompute block %d: %w", b.Index, err)
	}
	return blockHash(sealInput(canonical, b.MerkleRoot), b.Nonce), nil
}

// transactionHash derives a transaction's own digest from its data and the
// block timestamp, before the transaction is embedded in a block.
func transactionHash(p *TransactionPayload, timestamp string) (string, error) {
	canonical, err := chain.Canonical(map[string]any{
		"user_id":          p.UserID,
		"transaction_type": p.TransactionType,
		"amount":           p.Amount,
		"timestamp":        timestamp,
	})
	if err != nil {
		return "", fmt.Errorf("transaction hash: %w", err)
	}
	return chain.SumHex(canonical), nil
}

// clone returns a deep-enough copy of a block for handing to callers.
// Payloads are value-copied so query results never alias ledger state.
func clone(b *Block) *Block {
	cp := *b
	switch p := b.Payload.(type) {
	case *CreditScorePayload:
		pc := *p
		// Nil and empty canonicalize differently (null vs []); the copy must
		// keep whichever form was sealed.
		if p.RiskFactors != nil {
			pc.RiskFactors = make([]string, len(p.RiskFactors))
			copy(pc.RiskFactors, p.RiskFactors)
		}
		cp.Payload = &pc
	case *TransactionPayload:
		pc := *p
		cp.Payload = &pc
	case *ModelVersionPayload:
		pc := *p
		cp.Payload = &pc
	case *PredictionAuditPayload:
		pc := *p
		cp.Payload = &pc
	}
	return &cp
}
