// Package scoring provides credit-risk scoring for loan applications. The
// scorer is a collaborator of the ledger service: its output is what gets
// sealed into the credit-score and prediction-audit chains, but the ledger
// never interprets scoring semantics.
package scoring

import "context"

// Request is one loan application to score.
type Request struct {
	UserID          int64   `json:"user_id"`
	MonthlyIncome   float64 `json:"monthly_income"`
	ExistingDebt    float64 `json:"existing_debt"`
	RequestedAmount float64 `json:"requested_amount"`
}

// Assessment is the output of a scoring run.
type Assessment struct {
	// CreditScore is the aggregate score, clamped to 300–900.
	CreditScore int `json:"credit_score"`

	// Decision is the lending recommendation:
	//   score ≥ 700 → "Approve" (Excellent)
	//   score ≥ 600 → "Approve" (Good)
	//   score ≥ 500 → "Review"  (Fair)
	//   otherwise   → "Reject"  (Poor)
	Decision     string `json:"decision"`
	RiskCategory string `json:"risk_category"`

	// MaxLoanAmount is capped at 125000 and ten months of income.
	MaxLoanAmount int `json:"max_loan_amount"`

	// RecommendedInterestRate is a yearly percentage in [12, 24].
	RecommendedInterestRate float64 `json:"recommended_interest_rate"`

	// Confidence is the model's self-reported confidence in [0, 1].
	Confidence float64 `json:"model_confidence"`

	// RiskFactors lists the labels of every risk rule that triggered.
	RiskFactors []string `json:"risk_factors"`

	// ModelVersion identifies the rule set that produced this assessment.
	ModelVersion string `json:"model_version"`
}

// Scorer produces a credit assessment for a loan application.
type Scorer interface {
	Score(ctx context.Context, req Request) (*Assessment, error)
}
