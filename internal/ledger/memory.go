package ledger

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory, thread-safe Store implementation. It is
// primarily useful for testing and for single-process deployments that do
// not require durable persistence across restarts.
type MemoryStore struct {
	mu            sync.RWMutex
	blocks        map[Kind][]*Block
	verifications []*VerificationRecord
}

// NewMemoryStore creates an empty MemoryStore covering all ledger kinds.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blocks: make(map[Kind][]*Block)}
}

// Tip implements Store.
func (s *MemoryStore) Tip(_ context.Context, kind Kind) (*Block, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chain := s.blocks[kind]
	if len(chain) == 0 {
		return nil, nil
	}
	return clone(chain[len(chain)-1]), nil
}

// Insert implements Store. The tip condition is re-checked under the write
// lock, so two racing appends to one kind cannot both link to the same
// predecessor.
func (s *MemoryStore) Insert(_ context.Context, b *Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	chain := s.blocks[b.Kind]
	if len(chain) == 0 {
		if b.Index != 0 {
			return ErrTipConflict
		}
	} else if tip := chain[len(chain)-1]; b.PrevHash != tip.Hash || b.Index != tip.Index+1 {
		return ErrTipConflict
	}

	s.blocks[b.Kind] = append(chain, clone(b))
	return nil
}

// Blocks implements Store.
func (s *MemoryStore) Blocks(_ context.Context, kind Kind) ([]*Block, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chain := s.blocks[kind]
	out := make([]*Block, len(chain))
	for i, b := range chain {
		out[i] = clone(b)
	}
	return out, nil
}

// UserHistory implements Store.
func (s *MemoryStore) UserHistory(_ context.Context, userID int64) ([]*Block, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Block
	chain := s.blocks[KindCreditScore]
	for i := len(chain) - 1; i >= 0; i-- {
		if p, ok := chain[i].Payload.(*CreditScorePayload); ok && p.UserID == userID {
			out = append(out, clone(chain[i]))
		}
	}
	return out, nil
}

// Count implements Store.
func (s *MemoryStore) Count(_ context.Context, kind Kind) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.blocks[kind])), nil
}

// CreditStats implements Store.
func (s *MemoryStore) CreditStats(_ context.Context) (int64, float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chain := s.blocks[KindCreditScore]
	if len(chain) == 0 {
		return 0, 0, nil
	}
	sum := 0
	for _, b := range chain {
		if p, ok := b.Payload.(*CreditScorePayload); ok {
			sum += p.CreditScore
		}
	}
	return int64(len(chain)), float64(sum) / float64(len(chain)), nil
}

// TransactionStats implements Store.
func (s *MemoryStore) TransactionStats(_ context.Context) (int64, float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chain := s.blocks[KindTransaction]
	volume := 0.0
	for _, b := range chain {
		if p, ok := b.Payload.(*TransactionPayload); ok {
			volume += p.Amount
		}
	}
	return int64(len(chain)), volume, nil
}

// LogVerification implements Store.
func (s *MemoryStore) LogVerification(_ context.Context, rec *VerificationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *rec
	s.verifications = append(s.verifications, &cp)
	return nil
}

// VerificationStats implements Store.
func (s *MemoryStore) VerificationStats(_ context.Context) ([]VerificationStat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sums := make(map[Kind]float64)
	counts := make(map[Kind]int64)
	for _, rec := range s.verifications {
		sums[rec.Kind] += rec.IntegrityScore
		counts[rec.Kind]++
	}

	var out []VerificationStat
	for _, kind := range Kinds() {
		if counts[kind] == 0 {
			continue
		}
		out = append(out, VerificationStat{
			Kind:                  kind,
			AverageIntegrityScore: sums[kind] / float64(counts[kind]),
			VerificationCount:     counts[kind],
		})
	}
	return out, nil
}
