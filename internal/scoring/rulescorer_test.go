package scoring_test

import (
	"context"
	"testing"

	"github.com/jmerrifield20/CreditChain/internal/scoring"
)

var ctx = context.Background()

func score(t *testing.T, income, debt, amount float64) *scoring.Assessment {
	t.Helper()
	a, err := scoring.NewRuleBasedScorer().Score(ctx, scoring.Request{
		UserID:          1,
		MonthlyIncome:   income,
		ExistingDebt:    debt,
		RequestedAmount: amount,
	})
	if err != nil {
		t.Fatal(err)
	}
	return a
}

func TestScore_strongApplicant(t *testing.T) {
	// High income, low debt, small request: 500+150+100+50 = 800.
	a := score(t, 60000, 5000, 30000)
	if a.CreditScore != 800 {
		t.Errorf("score = %d, want 800", a.CreditScore)
	}
	if a.Decision != "Approve" || a.RiskCategory != "Excellent" {
		t.Errorf("decision = %s/%s, want Approve/Excellent", a.Decision, a.RiskCategory)
	}
	if len(a.RiskFactors) != 0 {
		t.Errorf("risk factors = %v, want none", a.RiskFactors)
	}
	if a.MaxLoanAmount != 125000 {
		t.Errorf("max loan = %d, want capped at 125000", a.MaxLoanAmount)
	}
}

func TestScore_weakApplicant(t *testing.T) {
	// No income band, debt ratio ≥ 0.6, oversized request: 500-50 = 450.
	a := score(t, 10000, 9000, 150000)
	if a.CreditScore != 450 {
		t.Errorf("score = %d, want 450", a.CreditScore)
	}
	if a.Decision != "Reject" || a.RiskCategory != "Poor" {
		t.Errorf("decision = %s/%s, want Reject/Poor", a.Decision, a.RiskCategory)
	}

	want := map[string]bool{"low_income": true, "high_debt_ratio": true, "large_loan_request": true}
	if len(a.RiskFactors) != len(want) {
		t.Fatalf("risk factors = %v, want %v", a.RiskFactors, want)
	}
	for _, f := range a.RiskFactors {
		if !want[f] {
			t.Errorf("unexpected risk factor %q", f)
		}
	}
}

func TestScore_midTier(t *testing.T) {
	// Income 15000 → +50, ratio 0.33 → +50, amount 60000 → +25: total 625.
	a := score(t, 15000, 5000, 60000)
	if a.CreditScore != 625 {
		t.Errorf("score = %d, want 625", a.CreditScore)
	}
	if a.Decision != "Approve" || a.RiskCategory != "Good" {
		t.Errorf("decision = %s/%s, want Approve/Good", a.Decision, a.RiskCategory)
	}
}

func TestScore_interestRateBounds(t *testing.T) {
	strong := score(t, 60000, 0, 10000)
	weak := score(t, 5000, 10000, 200000)
	if strong.RecommendedInterestRate < 12 || strong.RecommendedInterestRate > 24 {
		t.Errorf("rate %v out of [12,24]", strong.RecommendedInterestRate)
	}
	if weak.RecommendedInterestRate < 12 || weak.RecommendedInterestRate > 24 {
		t.Errorf("rate %v out of [12,24]", weak.RecommendedInterestRate)
	}
	if strong.RecommendedInterestRate >= weak.RecommendedInterestRate {
		t.Errorf("stronger applicant got rate %v ≥ weaker's %v",
			strong.RecommendedInterestRate, weak.RecommendedInterestRate)
	}
}

func TestScore_scoreClamped(t *testing.T) {
	a := score(t, 1000000, 0, 1000)
	if a.CreditScore > 900 {
		t.Errorf("score %d above clamp 900", a.CreditScore)
	}
}

func TestScore_rejectsInvalidRequest(t *testing.T) {
	s := scoring.NewRuleBasedScorer()
	if _, err := s.Score(ctx, scoring.Request{UserID: 0, MonthlyIncome: 1000, RequestedAmount: 10}); err == nil {
		t.Error("missing user_id accepted")
	}
	if _, err := s.Score(ctx, scoring.Request{UserID: 1, MonthlyIncome: 1000, RequestedAmount: 0}); err == nil {
		t.Error("zero requested amount accepted")
	}
}

func TestScore_modelMetadata(t *testing.T) {
	a := score(t, 20000, 1000, 20000)
	if a.ModelVersion != scoring.ModelVersion {
		t.Errorf("model version = %q, want %q", a.ModelVersion, scoring.ModelVersion)
	}
	if a.Confidence != 0.85 {
		t.Errorf("confidence = %v, want 0.85", a.Confidence)
	}
}
