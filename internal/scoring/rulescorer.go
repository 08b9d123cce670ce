package scoring

import (
	"context"
	"fmt"
)

// ModelVersion identifies the current rule set.
const ModelVersion = "rule_based_v1"

// modelConfidence is the fixed self-reported confidence of the rule set.
const modelConfidence = 0.85

// RuleBasedScorer is the default Scorer implementation: a fixed additive
// rule set over income, debt ratio, and requested amount, starting from a
// base score of 500.
type RuleBasedScorer struct{}

// NewRuleBasedScorer returns a RuleBasedScorer.
func NewRuleBasedScorer() *RuleBasedScorer {
	return &RuleBasedScorer{}
}

// Score implements Scorer.
func (s *RuleBasedScorer) Score(_ context.Context, req Request) (*Assessment, error) {
	if req.UserID <= 0 {
		return nil, fmt.Errorf("user_id is required")
	}
	if req.MonthlyIncome < 0 || req.ExistingDebt < 0 || req.RequestedAmount <= 0 {
		return nil, fmt.Errorf("income, debt, and requested amount must be non-negative (amount positive)")
	}

	score := 500
	riskFactors := []string{}

	// Income band.
	switch {
	case req.MonthlyIncome >= 50000:
		score += 150
	case req.MonthlyIncome >= 25000:
		score += 100
	case req.MonthlyIncome >= 15000:
		score += 50
	default:
		riskFactors = append(riskFactors, "low_income")
	}

	// Debt ratio.
	debtRatio := 1.0
	if req.MonthlyIncome > 0 {
		debtRatio = req.ExistingDebt / req.MonthlyIncome
	}
	switch {
	case debtRatio < 0.3:
		score += 100
	case debtRatio < 0.6:
		score += 50
	default:
		score -= 50
		riskFactors = append(riskFactors, "high_debt_ratio")
	}

	// Requested amount.
	switch {
	case req.RequestedAmount <= 50000:
		score += 50
	case req.RequestedAmount <= 100000:
		score += 25
	default:
		riskFactors = append(riskFactors, "large_loan_request")
	}

	score = clamp(score, 300, 900)

	decision, category := "Reject", "Poor"
	switch {
	case score >= 700:
		decision, category = "Approve", "Excellent"
	case score >= 600:
		decision, category = "Approve", "Good"
	case score >= 500:
		decision, category = "Review", "Fair"
	}

	maxLoan := req.MonthlyIncome * 10
	if maxLoan > 125000 {
		maxLoan = 125000
	}

	rate := 24 - float64(score-300)/600*12
	if rate < 12 {
		rate = 12
	}
	if rate > 24 {
		rate = 24
	}

	return &Assessment{
		CreditScore:             score,
		Decision:                decision,
		RiskCategory:            category,
		MaxLoanAmount:           int(maxLoan),
		RecommendedInterestRate: round2(rate),
		Confidence:              modelConfidence,
		RiskFactors:             riskFactors,
		ModelVersion:            ModelVersion,
	}, nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// round2 rounds to two decimal places for presentation.
func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
