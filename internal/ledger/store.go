package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/jmerrifield20/CreditChain/pkg/chain"
)

var (
	// ErrTipConflict is returned by Store.Insert when the block being
	// inserted no longer links to the current tip — another append won the
	// race. The engine re-reads the tip, re-mines, and retries.
	ErrTipConflict = errors.New("ledger tip changed during append")

	// ErrNotFound is returned when a requested block does not exist.
	ErrNotFound = errors.New("block not found")
)

// Store is the persistence contract of the ledger engine. Implementations
// must make Insert conditional on the chain tip so that concurrent appends to
// one kind cannot both link to the same predecessor, and must never expose a
// partially written block to readers.
//
// Two implementations are provided: MemoryStore (tests and single-process
// development) and PostgresStore (durable, production).
type Store interface {
	// Tip returns the most recent block of a kind, or (nil, nil) when the
	// ledger is empty.
	Tip(ctx context.Context, kind Kind) (*Block, error)

	// Insert appends a fully sealed block. It fails with ErrTipConflict when
	// b.PrevHash does not match the current tip hash (or the genesis sentinel
	// on an empty ledger). Insertion is all-or-nothing.
	Insert(ctx context.Context, b *Block) error

	// Blocks returns every block of a kind in index order.
	Blocks(ctx context.Context, kind Kind) ([]*Block, error)

	// UserHistory returns the credit-score blocks for a user, most recent
	// first.
	UserHistory(ctx context.Context, userID int64) ([]*Block, error)

	// Count returns the number of blocks of a kind.
	Count(ctx context.Context, kind Kind) (int64, error)

	// CreditStats returns the credit-score block count and average score.
	CreditStats(ctx context.Context) (count int64, avgScore float64, err error)

	// TransactionStats returns the transaction block count and total volume.
	TransactionStats(ctx context.Context) (count int64, totalVolume float64, err error)

	// LogVerification persists the outcome of a verify pass.
	LogVerification(ctx context.Context, rec *VerificationRecord) error

	// VerificationStats aggregates the verification log per kind.
	VerificationStats(ctx context.Context) ([]VerificationStat, error)
}

// VerificationRecord is the persisted audit trail of one verify pass. It is
// hashed over its own canonical fields but not chained to other records.
type VerificationRecord struct {
	ID             uuid.UUID `json:"id"`
	Kind           Kind      `json:"blockchain_type"`
	Valid          bool      `json:"valid"`
	TotalBlocks    int       `json:"total_blocks"`
	VerifiedBlocks int       `json:"verified_blocks"`
	IntegrityScore float64   `json:"integrity_score"`
	Timestamp      string    `json:"verification_timestamp"`
	Hash           string    `json:"verification_hash"`
}

// seal computes the record's own hash from its canonical fields.
func (r *VerificationRecord) seal() error {
	canonical, err := chain.Canonical(map[string]any{
		"blockchain_type": string(r.Kind),
		"total_blocks":    r.TotalBlocks,
		"verified_blocks": r.VerifiedBlocks,
		"integrity_score": r.IntegrityScore,
		"timestamp":       r.Timestamp,
	})
	if err != nil {
		return err
	}
	r.Hash = chain.SumHex(canonical)
	return nil
}

// VerificationStat is one row of the aggregated verification history.
type VerificationStat struct {
	Kind                  Kind    `json:"blockchain_type"`
	AverageIntegrityScore float64 `json:"average_integrity_score"`
	VerificationCount     int64   `json:"verification_count"`
}
