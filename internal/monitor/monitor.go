// Package monitor runs periodic integrity verification over every ledger
// kind and raises operator alerts when a chain degrades.
package monitor

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jmerrifield20/CreditChain/internal/alert"
	"github.com/jmerrifield20/CreditChain/internal/ledger"
)

// Config holds integrity monitor configuration.
type Config struct {
	CheckInterval time.Duration
	CheckTimeout  time.Duration
	// FailThreshold is the number of consecutive failed verifications
	// before an alert fires.
	FailThreshold int
	// AlertTo is the recipient for degradation alerts. Empty disables alerting.
	AlertTo string
}

// Verifier runs an integrity pass over one chain.
type Verifier interface {
	Verify(ctx context.Context, kind ledger.Kind) (*ledger.VerificationRecord, error)
}

// MetricsRecordFunc is an optional callback for recording verification results.
type MetricsRecordFunc func(kind string, valid bool, score float64)

// Monitor verifies every chain on a fixed interval.
type Monitor struct {
	verifier   Verifier
	sender     alert.Sender
	failCounts map[ledger.Kind]int
	mu         sync.Mutex
	cfg        Config
	onMetrics  MetricsRecordFunc
	logger     *zap.Logger
}

// New creates a new Monitor.
func New(verifier Verifier, sender alert.Sender, cfg Config, logger *zap.Logger) *Monitor {
	if cfg.CheckInterval == 0 {
		cfg.CheckInterval = 5 * time.Minute
	}
	if cfg.CheckTimeout == 0 {
		cfg.CheckTimeout = 30 * time.Second
	}
	if cfg.FailThreshold == 0 {
		cfg.FailThreshold = 1
	}

	return &Monitor{
		verifier:   verifier,
		sender:     sender,
		failCounts: make(map[ledger.Kind]int),
		cfg:        cfg,
		logger:     logger,
	}
}

// SetMetricsRecord configures the metrics recording callback.
func (m *Monitor) SetMetricsRecord(fn MetricsRecordFunc) {
	m.onMetrics = fn
}

// Start runs the verification loop until quit is signalled.
func (m *Monitor) Start(quit <-chan os.Signal) {
	ticker := time.NewTicker(m.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), m.cfg.CheckTimeout)
			m.CheckAll(ctx)
			cancel()
		case <-quit:
			return
		}
	}
}

// CheckAll verifies every chain once.
func (m *Monitor) CheckAll(ctx context.Context) {
	for _, kind := range ledger.Kinds() {
		rec, err := m.verifier.Verify(ctx, kind)
		if err != nil {
			m.logger.Error("integrity check failed to run",
				zap.String("kind", string(kind)),
				zap.Error(err),
			)
			continue
		}

		if m.onMetrics != nil {
			m.onMetrics(string(kind), rec.Valid, rec.IntegrityScore)
		}

		m.mu.Lock()
		prevCount := m.failCounts[kind]
		if rec.Valid {
			m.failCounts[kind] = 0
		} else {
			m.failCounts[kind]++
		}
		count := m.failCounts[kind]
		m.mu.Unlock()

		switch {
		case rec.Valid && prevCount >= m.cfg.FailThreshold:
			m.logger.Info("chain recovered",
				zap.String("kind", string(kind)),
				zap.Float64("integrity_score", rec.IntegrityScore),
			)
		case rec.Valid:
			m.logger.Debug("chain verified",
				zap.String("kind", string(kind)),
				zap.Int("total_blocks", rec.TotalBlocks),
			)
		case count == m.cfg.FailThreshold:
			// Transition: valid -> degraded (exactly at threshold).
			m.logger.Warn("chain degraded",
				zap.String("kind", string(kind)),
				zap.Float64("integrity_score", rec.IntegrityScore),
				zap.Int("verified_blocks", rec.VerifiedBlocks),
				zap.Int("total_blocks", rec.TotalBlocks),
			)
			m.alertDegraded(ctx, kind, rec)
		default:
			m.logger.Warn("chain still degraded",
				zap.String("kind", string(kind)),
				zap.Int("fail_count", count),
			)
		}
	}
}

func (m *Monitor) alertDegraded(ctx context.Context, kind ledger.Kind, rec *ledger.VerificationRecord) {
	if m.sender == nil || m.cfg.AlertTo == "" {
		return
	}

	subject := fmt.Sprintf("[CreditChain] %s blockchain integrity degraded", kind)
	body := fmt.Sprintf(
		"Integrity verification failed for the %s blockchain.\n\n"+
			"Integrity score: %.4f\n"+
			"Verified blocks: %d of %d\n"+
			"Verification record: %s\n"+
			"Timestamp: %s\n\n"+
			"The chain is append-only; a failed verification means stored "+
			"blocks no longer match their recorded hashes and must be "+
			"investigated before further writes are trusted.",
		kind, rec.IntegrityScore, rec.VerifiedBlocks, rec.TotalBlocks, rec.ID, rec.Timestamp,
	)

	if err := m.sender.Send(ctx, m.cfg.AlertTo, subject, body); err != nil {
		m.logger.Error("send degradation alert", zap.String("kind", string(kind)), zap.Error(err))
	}
}
