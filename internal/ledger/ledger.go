// Package ledger implements the append-only, hash-linked audit ledgers of
// CreditChain. Four independent chains (credit-score, transaction,
// model-version, prediction-audit) share one engine: each append serializes
// the payload canonically, reduces it to a Merkle root, mines a bounded
// proof-of-work nonce, seals the block hash against the previous block, and
// persists atomically. Verification recomputes every stored hash and checks
// inter-block linkage, producing an integrity score.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/jmerrifield20/CreditChain/pkg/chain"
)

// ErrMiningExhausted is returned by Append only when StrictMining is set and
// the proof-of-work attempt cap is hit without a qualifying nonce. In the
// default lenient mode the block is stored with the best nonce found; such a
// block's digest simply does not carry the difficulty prefix, which Verify
// does not check — an accepted gap, traded for bounded append time.
var ErrMiningExhausted = errors.New("proof-of-work attempts exhausted")

// appendRetries bounds tip-conflict retries against a concurrent writer in
// another process. In-process appends are serialized by the ledger mutex and
// never conflict.
const appendRetries = 5

// Options tune one ledger's mining and verification behaviour.
type Options struct {
	// Difficulty is the number of leading hex zeros required of a block
	// digest. Zero or negative falls back to chain.DefaultDifficulty.
	Difficulty int

	// MaxAttempts caps the proof-of-work search. Zero falls back to
	// chain.DefaultMaxAttempts.
	MaxAttempts int

	// StrictMining turns proof-of-work exhaustion into a hard append
	// failure instead of storing an under-mined block.
	StrictMining bool

	// FullScan makes Verify continue past a broken link and examine every
	// block. The default preserves the fail-fast behaviour: scanning stops
	// at the first linkage mismatch, so tampering later in the chain goes
	// unreported in that pass.
	FullScan bool
}

func (o Options) withDefaults() Options {
	if o.Difficulty <= 0 {
		o.Difficulty = chain.DefaultDifficulty
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = chain.DefaultMaxAttempts
	}
	return o
}

// Ledger owns the append and verify algorithms for a single kind. Appends
// are serialized per ledger; different kinds append independently.
type Ledger struct {
	kind   Kind
	store  Store
	opts   Options
	logger *zap.Logger

	// mu serializes the read-tip / mine / insert sequence in-process. The
	// store's conditional Insert guards against writers in other processes.
	mu sync.Mutex
}

// NewLedger creates a Ledger of the given kind backed by store.
func NewLedger(kind Kind, store Store, opts Options, logger *zap.Logger) *Ledger {
	return &Ledger{kind: kind, store: store, opts: opts.withDefaults(), logger: logger}
}

// Kind returns the ledger's kind tag.
func (l *Ledger) Kind() Kind { return l.kind }

// Append validates the payload, builds a sealed block chained to the current
// tip, and persists it. On success the ledger is exactly one block longer and
// the returned block carries the new tip hash. Storage failure appends
// nothing.
func (l *Ledger) Append(ctx context.Context, p Payload) (*Block, error) {
	if p.Kind() != l.kind {
		return nil, fmt.Errorf("%w: payload kind %q does not match ledger %q", ErrValidation, p.Kind(), l.kind)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	var lastErr error
	for attempt := 0; attempt < appendRetries; attempt++ {
		b, err := l.buildBlock(ctx, p)
		if err != nil {
			return nil, err
		}

		err = l.store.Insert(ctx, b)
		if errors.Is(err, ErrTipConflict) {
			// Another writer advanced the tip; re-read and re-mine.
			lastErr = err
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("append %s block: %w", l.kind, err)
		}

		l.logger.Debug("block appended",
			zap.String("kind", string(l.kind)),
			zap.Int64("index", b.Index),
			zap.String("hash", b.Hash),
			zap.Uint64("nonce", b.Nonce),
		)
		return clone(b), nil
	}
	return nil, fmt.Errorf("append %s block: %w", l.kind, lastErr)
}

// buildBlock reads the tip and seals a new block on top of it: canonical
// encoding, Merkle root, proof-of-work, final hash.
func (l *Ledger) buildBlock(ctx context.Context, p Payload) (*Block, error) {
	tip, err := l.store.Tip(ctx, l.kind)
	if err != nil {
		return nil, fmt.Errorf("read %s tip: %w", l.kind, err)
	}

	prevHash := chain.GenesisHash
	index := int64(0)
	if tip != nil {
		prevHash = tip.Hash
		index = tip.Index + 1
	}

	timestamp := newTimestamp()

	if tx, ok := p.(*TransactionPayload); ok {
		tx.TransactionHash, err = transactionHash(tx, timestamp)
		if err != nil {
			return nil, err
		}
	}

	canonical, err := canonicalBlockData(p, prevHash, timestamp)
	if err != nil {
		return nil, err
	}

	// One leaf per block today; the reduction handles any leaf count.
	root := chain.MerkleRoot([]string{string(canonical)})
	seal := sealInput(canonical, root)

	nonce, found := chain.Solve(seal, l.opts.Difficulty, l.opts.MaxAttempts)
	if !found {
		if l.opts.StrictMining {
			return nil, fmt.Errorf("seal %s block at difficulty %d: %w", l.kind, l.opts.Difficulty, ErrMiningExhausted)
		}
		l.logger.Warn("proof-of-work exhausted, storing under-mined block",
			zap.String("kind", string(l.kind)),
			zap.Int("difficulty", l.opts.Difficulty),
			zap.Int("max_attempts", l.opts.MaxAttempts),
		)
	}

	return &Block{
		Index:      index,
		Kind:       l.kind,
		Payload:    p,
		PrevHash:   prevHash,
		MerkleRoot: root,
		Nonce:      nonce,
		Timestamp:  timestamp,
		Hash:       blockHash(seal, nonce),
		Verified:   true,
	}, nil
}

// Verify scans the chain in index order, recomputing every block hash and
// checking linkage to the predecessor. An empty ledger is vacuously valid.
//
// On the first linkage mismatch the scan stops (unless FullScan is set):
// counts tallied so far are kept and later blocks are never examined. The
// resulting record is persisted to the verification log, except for the
// vacuous empty-ledger pass.
func (l *Ledger) Verify(ctx context.Context) (*VerificationRecord, error) {
	blocks, err := l.store.Blocks(ctx, l.kind)
	if err != nil {
		return nil, fmt.Errorf("read %s chain: %w", l.kind, err)
	}

	rec := &VerificationRecord{
		Kind:      l.kind,
		Timestamp: newTimestamp(),
	}

	if len(blocks) == 0 {
		rec.Valid = true
		rec.IntegrityScore = 1.0
		if err := rec.seal(); err != nil {
			return nil, err
		}
		return rec, nil
	}

	verified, examined := 0, 0
	for i, b := range blocks {
		examined++
		recomputed, err := Recompute(b)
		if err != nil {
			return nil, err
		}
		if recomputed == b.Hash {
			verified++
		}

		// The block with the broken link is still examined above; blocks
		// after it are not.
		if i > 0 && b.PrevHash != blocks[i-1].Hash {
			l.logger.Warn("hash chain broken",
				zap.String("kind", string(l.kind)),
				zap.Int64("index", b.Index),
			)
			if !l.opts.FullScan {
				break
			}
		}
	}

	rec.TotalBlocks = examined
	rec.VerifiedBlocks = verified
	rec.IntegrityScore = float64(verified) / float64(examined)
	rec.Valid = rec.IntegrityScore == 1.0
	if err := rec.seal(); err != nil {
		return nil, err
	}

	if err := l.store.LogVerification(ctx, rec); err != nil {
		return nil, fmt.Errorf("log %s verification: %w", l.kind, err)
	}

	if !rec.Valid {
		l.logger.Warn("chain integrity degraded",
			zap.String("kind", string(l.kind)),
			zap.Int("total", rec.TotalBlocks),
			zap.Int("verified", rec.VerifiedBlocks),
			zap.Float64("integrity_score", rec.IntegrityScore),
		)
	}
	return rec, nil
}
