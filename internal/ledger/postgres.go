package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// advisoryLockBase is a stable PostgreSQL advisory lock namespace for append
// serialization. Each kind locks base+ordinal, so different kinds append
// concurrently while appends within one kind are mutually exclusive across
// all service instances.
const advisoryLockBase = int64(7_240_519_000)

// kindOrdinal gives every kind a stable advisory-lock offset.
func kindOrdinal(kind Kind) int64 {
	for i, k := range Kinds() {
		if k == kind {
			return int64(i)
		}
	}
	return int64(len(Kinds()))
}

// tableName maps a kind to its block table.
func tableName(kind Kind) string {
	switch kind {
	case KindCreditScore:
		return "credit_score_blockchain"
	case KindTransaction:
		return "transaction_blockchain"
	case KindModelVersion:
		return "model_version_blockchain"
	case KindPredictionAudit:
		return "prediction_audit_blockchain"
	}
	return ""
}

// PostgresStore persists the four block chains and the verification log to
// PostgreSQL. It implements the Store interface.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresStore creates a PostgresStore backed by the given pool.
func NewPostgresStore(pool *pgxpool.Pool, logger *zap.Logger) *PostgresStore {
	return &PostgresStore{pool: pool, logger: logger}
}

// Tip implements Store.
func (s *PostgresStore) Tip(ctx context.Context, kind Kind) (*Block, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM %s ORDER BY idx DESC LIMIT 1",
		columnList(kind), tableName(kind),
	)
	b, err := scanBlock(kind, s.pool.QueryRow(ctx, query))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s tip: %w", kind, err)
	}
	return b, nil
}

// Insert implements Store. The tip is re-read under a per-kind advisory lock
// inside the transaction; a mismatch aborts with ErrTipConflict and nothing
// is written.
func (s *PostgresStore) Insert(ctx context.Context, b *Block) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	lockKey := advisoryLockBase + kindOrdinal(b.Kind)
	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", lockKey); err != nil {
		return fmt.Errorf("acquire advisory lock: %w", err)
	}

	var tipIdx int64
	var tipHash string
	err = tx.QueryRow(ctx,
		fmt.Sprintf("SELECT idx, block_hash FROM %s ORDER BY idx DESC LIMIT 1", tableName(b.Kind)),
	).Scan(&tipIdx, &tipHash)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		if b.Index != 0 {
			return ErrTipConflict
		}
	case err != nil:
		return fmt.Errorf("read %s tail: %w", b.Kind, err)
	default:
		if b.PrevHash != tipHash || b.Index != tipIdx+1 {
			return ErrTipConflict
		}
	}

	if err := insertBlock(ctx, tx, b); err != nil {
		return fmt.Errorf("insert %s block: %w", b.Kind, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit %s block: %w", b.Kind, err)
	}

	s.logger.Debug("block persisted",
		zap.String("kind", string(b.Kind)),
		zap.Int64("idx", b.Index),
		zap.String("hash", b.Hash),
	)
	return nil
}

// Blocks implements Store.
func (s *PostgresStore) Blocks(ctx context.Context, kind Kind) ([]*Block, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM %s ORDER BY idx ASC",
		columnList(kind), tableName(kind),
	)
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query %s chain: %w", kind, err)
	}
	defer rows.Close()

	var out []*Block
	for rows.Next() {
		b, err := scanBlock(kind, rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s block: %w", kind, err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// UserHistory implements Store.
func (s *PostgresStore) UserHistory(ctx context.Context, userID int64) ([]*Block, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM %s WHERE user_id = $1 ORDER BY idx DESC",
		columnList(KindCreditScore), tableName(KindCreditScore),
	)
	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query user history: %w", err)
	}
	defer rows.Close()

	var out []*Block
	for rows.Next() {
		b, err := scanBlock(KindCreditScore, rows)
		if err != nil {
			return nil, fmt.Errorf("scan history block: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Count implements Store.
func (s *PostgresStore) Count(ctx context.Context, kind Kind) (int64, error) {
	var n int64
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", tableName(kind))
	if err := s.pool.QueryRow(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s blocks: %w", kind, err)
	}
	return n, nil
}

// CreditStats implements Store.
func (s *PostgresStore) CreditStats(ctx context.Context) (int64, float64, error) {
	var count int64
	var avg *float64
	err := s.pool.QueryRow(ctx,
		"SELECT COUNT(*), AVG(credit_score) FROM credit_score_blockchain",
	).Scan(&count, &avg)
	if err != nil {
		return 0, 0, fmt.Errorf("credit stats: %w", err)
	}
	if avg == nil {
		return count, 0, nil
	}
	return count, *avg, nil
}

// TransactionStats implements Store.
func (s *PostgresStore) TransactionStats(ctx context.Context) (int64, float64, error) {
	var count int64
	var volume *float64
	err := s.pool.QueryRow(ctx,
		"SELECT COUNT(*), SUM(amount) FROM transaction_blockchain",
	).Scan(&count, &volume)
	if err != nil {
		return 0, 0, fmt.Errorf("transaction stats: %w", err)
	}
	if volume == nil {
		return count, 0, nil
	}
	return count, *volume, nil
}

// LogVerification implements Store.
func (s *PostgresStore) LogVerification(ctx context.Context, rec *VerificationRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO blockchain_verification_log
		 (id, blockchain_type, valid, total_blocks, verified_blocks, integrity_score, verification_timestamp, verification_hash)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.ID, string(rec.Kind), rec.Valid, rec.TotalBlocks,
		rec.VerifiedBlocks, rec.IntegrityScore, rec.Timestamp, rec.Hash,
	)
	if err != nil {
		return fmt.Errorf("insert verification record: %w", err)
	}
	return nil
}

// VerificationStats implements Store.
func (s *PostgresStore) VerificationStats(ctx context.Context) ([]VerificationStat, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT blockchain_type, AVG(integrity_score), COUNT(*)
		 FROM blockchain_verification_log
		 GROUP BY blockchain_type
		 ORDER BY blockchain_type`,
	)
	if err != nil {
		return nil, fmt.Errorf("query verification stats: %w", err)
	}
	defer rows.Close()

	var out []VerificationStat
	for rows.Next() {
		var st VerificationStat
		var kind string
		if err := rows.Scan(&kind, &st.AverageIntegrityScore, &st.VerificationCount); err != nil {
			return nil, fmt.Errorf("scan verification stats: %w", err)
		}
		st.Kind = Kind(kind)
		out = append(out, st)
	}
	return out, rows.Err()
}

// ── Per-kind row mapping ─────────────────────────────────────────────────────

// rowScanner is satisfied by both pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// columnList returns the SELECT column list for a kind, ordered to match the
// corresponding scanBlock case.
func columnList(kind Kind) string {
	const spine = "idx, block_hash, previous_hash, merkle_root, nonce, timestamp, verified"
	switch kind {
	case KindCreditScore:
		return spine + ", user_id, credit_score, model_version, prediction_confidence, risk_factors"
	case KindTransaction:
		return spine + ", user_id, transaction_type, amount, transaction_hash"
	case KindModelVersion:
		return spine + ", model_version, accuracy, training_data_hash, algorithm_hash"
	case KindPredictionAudit:
		return spine + ", user_id, input_data_hash, prediction_hash, model_hash, auditor_signature"
	}
	return spine
}

// scanBlock maps one row into a Block with the kind's payload type.
func scanBlock(kind Kind, row rowScanner) (*Block, error) {
	b := &Block{Kind: kind}
	var nonce int64

	switch kind {
	case KindCreditScore:
		p := &CreditScorePayload{}
		var riskFactors []byte
		if err := row.Scan(
			&b.Index, &b.Hash, &b.PrevHash, &b.MerkleRoot, &nonce, &b.Timestamp, &b.Verified,
			&p.UserID, &p.CreditScore, &p.ModelVersion, &p.PredictionConfidence, &riskFactors,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(riskFactors, &p.RiskFactors); err != nil {
			return nil, fmt.Errorf("decode risk_factors: %w", err)
		}
		b.Payload = p

	case KindTransaction:
		p := &TransactionPayload{}
		if err := row.Scan(
			&b.Index, &b.Hash, &b.PrevHash, &b.MerkleRoot, &nonce, &b.Timestamp, &b.Verified,
			&p.UserID, &p.TransactionType, &p.Amount, &p.TransactionHash,
		); err != nil {
			return nil, err
		}
		b.Payload = p

	case KindModelVersion:
		p := &ModelVersionPayload{}
		if err := row.Scan(
			&b.Index, &b.Hash, &b.PrevHash, &b.MerkleRoot, &nonce, &b.Timestamp, &b.Verified,
			&p.ModelVersion, &p.Accuracy, &p.TrainingDataHash, &p.AlgorithmHash,
		); err != nil {
			return nil, err
		}
		b.Payload = p

	case KindPredictionAudit:
		p := &PredictionAuditPayload{}
		if err := row.Scan(
			&b.Index, &b.Hash, &b.PrevHash, &b.MerkleRoot, &nonce, &b.Timestamp, &b.Verified,
			&p.UserID, &p.InputDataHash, &p.PredictionHash, &p.ModelHash, &p.AuditorSignature,
		); err != nil {
			return nil, err
		}
		b.Payload = p

	default:
		return nil, fmt.Errorf("unknown ledger kind %q", kind)
	}

	b.Nonce = uint64(nonce)
	return b, nil
}

// insertBlock writes one block into its kind's table.
func insertBlock(ctx context.Context, tx pgx.Tx, b *Block) error {
	switch p := b.Payload.(type) {
	case *CreditScorePayload:
		riskFactors, err := json.Marshal(p.RiskFactors)
		if err != nil {
			return fmt.Errorf("encode risk_factors: %w", err)
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO credit_score_blockchain
			 (idx, block_hash, previous_hash, merkle_root, nonce, timestamp, verified,
			  user_id, credit_score, model_version, prediction_confidence, risk_factors)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			b.Index, b.Hash, b.PrevHash, b.MerkleRoot, int64(b.Nonce), b.Timestamp, b.Verified,
			p.UserID, p.CreditScore, p.ModelVersion, p.PredictionConfidence, riskFactors,
		)
		return err

	case *TransactionPayload:
		_, err := tx.Exec(ctx,
			`INSERT INTO transaction_blockchain
			 (idx, block_hash, previous_hash, merkle_root, nonce, timestamp, verified,
			  user_id, transaction_type, amount, transaction_hash)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			b.Index, b.Hash, b.PrevHash, b.MerkleRoot, int64(b.Nonce), b.Timestamp, b.Verified,
			p.UserID, p.TransactionType, p.Amount, p.TransactionHash,
		)
		return err

	case *ModelVersionPayload:
		_, err := tx.Exec(ctx,
			`INSERT INTO model_version_blockchain
			 (idx, block_hash, previous_hash, merkle_root, nonce, timestamp, verified,
			  model_version, accuracy, training_data_hash, algorithm_hash)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			b.Index, b.Hash, b.PrevHash, b.MerkleRoot, int64(b.Nonce), b.Timestamp, b.Verified,
			p.ModelVersion, p.Accuracy, p.TrainingDataHash, p.AlgorithmHash,
		)
		return err

	case *PredictionAuditPayload:
		_, err := tx.Exec(ctx,
			`INSERT INTO prediction_audit_blockchain
			 (idx, block_hash, previous_hash, merkle_root, nonce, timestamp, verified,
			  user_id, input_data_hash, prediction_hash, model_hash, auditor_signature)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			b.Index, b.Hash, b.PrevHash, b.MerkleRoot, int64(b.Nonce), b.Timestamp, b.Verified,
			p.UserID, p.InputDataHash, p.PredictionHash, p.ModelHash, p.AuditorSignature,
		)
		return err
	}
	return fmt.Errorf("unknown payload type %T", b.Payload)
}
