package ledger

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// healthyThreshold is the minimum integrity score for a kind to count as
// healthy.
const healthyThreshold = 0.95

// Registry holds one Ledger per kind and runs the cross-cutting queries:
// per-user history, aggregate statistics, and the health check.
type Registry struct {
	store   Store
	ledgers map[Kind]*Ledger
	logger  *zap.Logger
}

// NewRegistry creates a Registry with one ledger per kind, all sharing the
// same store and options.
func NewRegistry(store Store, opts Options, logger *zap.Logger) *Registry {
	ledgers := make(map[Kind]*Ledger, len(Kinds()))
	for _, kind := range Kinds() {
		ledgers[kind] = NewLedger(kind, store, opts, logger)
	}
	return &Registry{store: store, ledgers: ledgers, logger: logger}
}

// Ledger returns the ledger for a kind.
func (r *Registry) Ledger(kind Kind) *Ledger {
	return r.ledgers[kind]
}

// AppendCreditScore appends a scoring decision to the credit-score chain.
func (r *Registry) AppendCreditScore(ctx context.Context, p *CreditScorePayload) (*Block, error) {
	return r.ledgers[KindCreditScore].Append(ctx, p)
}

// AppendTransaction appends a financial transaction to the transaction chain.
func (r *Registry) AppendTransaction(ctx context.Context, p *TransactionPayload) (*Block, error) {
	return r.ledgers[KindTransaction].Append(ctx, p)
}

// AppendModelVersion appends a model deployment to the model-version chain.
func (r *Registry) AppendModelVersion(ctx context.Context, p *ModelVersionPayload) (*Block, error) {
	return r.ledgers[KindModelVersion].Append(ctx, p)
}

// AppendPredictionAudit appends a prediction audit record to the audit chain.
func (r *Registry) AppendPredictionAudit(ctx context.Context, p *PredictionAuditPayload) (*Block, error) {
	return r.ledgers[KindPredictionAudit].Append(ctx, p)
}

// Verify runs a full integrity pass over one kind's chain.
func (r *Registry) Verify(ctx context.Context, kind Kind) (*VerificationRecord, error) {
	l, ok := r.ledgers[kind]
	if !ok {
		return nil, fmt.Errorf("%w: unknown ledger kind %q", ErrValidation, kind)
	}
	return l.Verify(ctx)
}

// HistoryEntry is one row of a user's credit history as exposed to callers.
type HistoryEntry struct {
	BlockHash            string   `json:"block_hash"`
	CreditScore          int      `json:"credit_score"`
	ModelVersion         string   `json:"model_version"`
	PredictionConfidence float64  `json:"prediction_confidence"`
	RiskFactors          []string `json:"risk_factors"`
	Timestamp            string   `json:"timestamp"`
	BlockchainVerified   bool     `json:"blockchain_verified"`
}

// UserHistory returns a user's credit-score entries, most recent first.
// Only the credit-score chain is exposed per-user.
func (r *Registry) UserHistory(ctx context.Context, userID int64) ([]HistoryEntry, error) {
	blocks, err := r.store.UserHistory(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("user %d history: %w", userID, err)
	}

	out := make([]HistoryEntry, 0, len(blocks))
	for _, b := range blocks {
		p, ok := b.Payload.(*CreditScorePayload)
		if !ok {
			continue
		}
		out = append(out, HistoryEntry{
			BlockHash:            b.Hash,
			CreditScore:          p.CreditScore,
			ModelVersion:         p.ModelVersion,
			PredictionConfidence: p.PredictionConfidence,
			RiskFactors:          p.RiskFactors,
			Timestamp:            b.Timestamp,
			BlockchainVerified:   b.Verified,
		})
	}
	return out, nil
}

// Statistics is the read-side aggregate view across all chains.
type Statistics struct {
	CreditBlockchain struct {
		TotalBlocks        int64   `json:"total_blocks"`
		AverageCreditScore float64 `json:"average_credit_score"`
	} `json:"credit_blockchain"`
	TransactionBlockchain struct {
		TotalBlocks            int64   `json:"total_blocks"`
		TotalTransactionVolume float64 `json:"total_transaction_volume"`
	} `json:"transaction_blockchain"`
	ModelVersionBlockchain struct {
		TotalBlocks int64 `json:"total_blocks"`
	} `json:"model_version_blockchain"`
	PredictionAuditBlockchain struct {
		TotalBlocks int64 `json:"total_blocks"`
	} `json:"prediction_audit_blockchain"`
	VerificationHistory []VerificationStat `json:"verification_history"`
}

// Statistics aggregates block counts, the average credit score, total
// transaction volume, and the verification history. Pure read side, no
// mutation.
func (r *Registry) Statistics(ctx context.Context) (*Statistics, error) {
	stats := &Statistics{}

	var err error
	stats.CreditBlockchain.TotalBlocks, stats.CreditBlockchain.AverageCreditScore, err = r.store.CreditStats(ctx)
	if err != nil {
		return nil, err
	}

	stats.TransactionBlockchain.TotalBlocks, stats.TransactionBlockchain.TotalTransactionVolume, err = r.store.TransactionStats(ctx)
	if err != nil {
		return nil, err
	}

	if stats.ModelVersionBlockchain.TotalBlocks, err = r.store.Count(ctx, KindModelVersion); err != nil {
		return nil, err
	}
	if stats.PredictionAuditBlockchain.TotalBlocks, err = r.store.Count(ctx, KindPredictionAudit); err != nil {
		return nil, err
	}

	if stats.VerificationHistory, err = r.store.VerificationStats(ctx); err != nil {
		return nil, err
	}
	if stats.VerificationHistory == nil {
		stats.VerificationHistory = []VerificationStat{}
	}
	return stats, nil
}

// KindHealth is the health status of one chain.
type KindHealth struct {
	Status         string  `json:"status"` // healthy or degraded
	IntegrityScore float64 `json:"integrity_score"`
	TotalBlocks    int     `json:"total_blocks"`
}

// HealthReport is the per-kind and overall health of the ledger system.
type HealthReport struct {
	OverallStatus string              `json:"overall_status"`
	Chains        map[Kind]KindHealth `json:"blockchain_health"`
}

// Healthy reports whether every chain is healthy.
func (h *HealthReport) Healthy() bool {
	return h.OverallStatus == "healthy"
}

// HealthCheck verifies every chain and reports per-kind status. A kind is
// healthy iff its integrity score is at least 0.95; the overall status is
// healthy iff all kinds are.
func (r *Registry) HealthCheck(ctx context.Context) (*HealthReport, error) {
	report := &HealthReport{
		OverallStatus: "healthy",
		Chains:        make(map[Kind]KindHealth, len(Kinds())),
	}

	for _, kind := range Kinds() {
		rec, err := r.ledgers[kind].Verify(ctx)
		if err != nil {
			return nil, fmt.Errorf("health check %s: %w", kind, err)
		}

		status := "healthy"
		if rec.IntegrityScore < healthyThreshold {
			status = "degraded"
			report.OverallStatus = "degraded"
		}
		report.Chains[kind] = KindHealth{
			Status:         status,
			IntegrityScore: rec.IntegrityScore,
			TotalBlocks:    rec.TotalBlocks,
		}
	}
	return report, nil
}
