package ledger

import (
	"errors"
	"fmt"
)

// Kind identifies one of the four independent ledgers. Each kind has its own
// payload shape, its own chain, and its own tip; kinds never reference each
// other.
type Kind string

const (
	KindCreditScore     Kind = "credit_score"
	KindTransaction     Kind = "transaction"
	KindModelVersion    Kind = "model_version"
	KindPredictionAudit Kind = "prediction_audit"
)

// Kinds returns all ledger kinds in a stable order.
func Kinds() []Kind {
	return []Kind{KindCreditScore, KindTransaction, KindModelVersion, KindPredictionAudit}
}

// ParseKind validates a kind string from an external caller.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindCreditScore, KindTransaction, KindModelVersion, KindPredictionAudit:
		return Kind(s), nil
	}
	return "", fmt.Errorf("%w: unknown ledger kind %q", ErrValidation, s)
}

// ErrValidation is returned when a payload is missing required fields for its
// kind. Validation runs before any hashing or mining work.
var ErrValidation = errors.New("invalid payload")

// Payload is the kind-specific content of a block. Implementations live in
// this package only; the append and verify algorithms are generic over
// anything that validates and canonicalizes.
type Payload interface {
	Kind() Kind

	// Validate checks required fields; it wraps ErrValidation on failure.
	Validate() error

	// fields returns the canonical field map sealed into the block hash.
	// Derived fields (e.g. a transaction's own hash) must already be set.
	fields() map[string]any
}

// CreditScorePayload records one scoring decision.
type CreditScorePayload struct {
	UserID               int64    `json:"user_id"`
	CreditScore          int      `json:"credit_score"`
	ModelVersion         string   `json:"model_version"`
	PredictionConfidence float64  `json:"prediction_confidence"`
	RiskFactors          []string `json:"risk_factors"`
}

func (p *CreditScorePayload) Kind() Kind { return KindCreditScore }

func (p *CreditScorePayload) Validate() error {
	if p.UserID <= 0 {
		return fmt.Errorf("%w: user_id is required", ErrValidation)
	}
	if p.CreditScore <= 0 {
		return fmt.Errorf("%w: credit_score is required", ErrValidation)
	}
	if p.ModelVersion == "" {
		return fmt.Errorf("%w: model_version is required", ErrValidation)
	}
	if p.PredictionConfidence < 0 || p.PredictionConfidence > 1 {
		return fmt.Errorf("%w: prediction_confidence must be in [0,1]", ErrValidation)
	}
	if p.RiskFactors == nil {
		return fmt.Errorf("%w: risk_factors is required (may be empty)", ErrValidation)
	}
	return nil
}

func (p *CreditScorePayload) fields() map[string]any {
	return map[string]any{
		"user_id":               p.UserID,
		"credit_score":          p.CreditScore,
		"model_version":         p.ModelVersion,
		"prediction_confidence": p.PredictionConfidence,
		"risk_factors":          p.RiskFactors,
	}
}

// TransactionPayload records one financial transaction. TransactionHash is
// derived by the engine from the transaction data and the block timestamp
// before sealing; callers leave it empty.
type TransactionPayload struct {
	UserID          int64   `json:"user_id"`
	TransactionType string  `json:"transaction_type"`
	Amount          float64 `json:"amount"`
	TransactionHash string  `json:"transaction_hash"`
}

func (p *TransactionPayload) Kind() Kind { return KindTransaction }

func (p *TransactionPayload) Validate() error {
	if p.UserID <= 0 {
		return fmt.Errorf("%w: user_id is required", ErrValidation)
	}
	if p.TransactionType == "" {
		return fmt.Errorf("%w: transaction_type is required", ErrValidation)
	}
	if p.Amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	return nil
}

func (p *TransactionPayload) fields() map[string]any {
	return map[string]any{
		"user_id":          p.UserID,
		"transaction_type": p.TransactionType,
		"amount":           p.Amount,
		"transaction_hash": p.TransactionHash,
	}
}

// ModelVersionPayload records the deployment of a scoring model version.
type ModelVersionPayload struct {
	ModelVersion     string  `json:"model_version"`
	Accuracy         float64 `json:"accuracy"`
	TrainingDataHash string  `json:"training_data_hash"`
	AlgorithmHash    string  `json:"algorithm_hash"`
}

func (p *ModelVersionPayload) Kind() Kind { return KindModelVersion }

func (p *ModelVersionPayload) Validate() error {
	if p.ModelVersion == "" {
		return fmt.Errorf("%w: model_version is required", ErrValidation)
	}
	if p.Accuracy < 0 || p.Accuracy > 1 {
		return fmt.Errorf("%w: accuracy must be in [0,1]", ErrValidation)
	}
	if p.TrainingDataHash == "" {
		return fmt.Errorf("%w: training_data_hash is required", ErrValidation)
	}
	if p.AlgorithmHash == "" {
		return fmt.Errorf("%w: algorithm_hash is required", ErrValidation)
	}
	return nil
}

func (p *ModelVersionPayload) fields() map[string]any {
	return map[string]any{
		"model_version":      p.ModelVersion,
		"accuracy":           p.Accuracy,
		"training_data_hash": p.TrainingDataHash,
		"algorithm_hash":     p.AlgorithmHash,
	}
}

// PredictionAuditPayload records the audit trail of a single prediction:
// digests of the model inputs, the prediction output, and the model itself.
// AuditorSignature is optional.
type PredictionAuditPayload struct {
	UserID           int64  `json:"user_id"`
	InputDataHash    string `json:"input_data_hash"`
	PredictionHash   string `json:"prediction_hash"`
	ModelHash        string `json:"model_hash"`
	AuditorSignature string `json:"auditor_signature,omitempty"`
}

func (p *PredictionAuditPayload) Kind() Kind { return KindPredictionAudit }

func (p *PredictionAuditPayload) Validate() error {
	if p.UserID <= 0 {
		return fmt.Errorf("%w: user_id is required", ErrValidation)
	}
	if p.InputDataHash == "" {
		return fmt.Errorf("%w: input_data_hash is required", ErrValidation)
	}
	if p.PredictionHash == "" {
		return fmt.Errorf("%w: prediction_hash is required", ErrValidation)
	}
	if p.ModelHash == "" {
		return fmt.Errorf("%w: model_hash is required", ErrValidation)
	}
	return nil
}

func (p *PredictionAuditPayload) fields() map[string]any {
	return map[string]any{
		"user_id":           p.UserID,
		"input_data_hash":   p.InputDataHash,
		"prediction_hash":   p.PredictionHash,
		"model_hash":        p.ModelHash,
		"auditor_signature": p.AuditorSignature,
	}
}
