package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jmerrifield20/CreditChain/internal/api/handler"
	"github.com/jmerrifield20/CreditChain/internal/ledger"
	"github.com/jmerrifield20/CreditChain/internal/scoring"
	"github.com/jmerrifield20/CreditChain/pkg/chain"
)

func newTestRouter(t *testing.T) (*gin.Engine, *ledger.Registry) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	registry := ledger.NewRegistry(ledger.NewMemoryStore(), ledger.Options{Difficulty: 1}, zap.NewNop())

	router := gin.New()
	v1 := router.Group("/api/v1")
	handler.NewLedgerHandler(registry, zap.NewNop()).Register(v1)
	handler.NewScoringHandler(scoring.NewRuleBasedScorer(), registry, zap.NewNop()).Register(v1)
	return router, registry
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	out := map[string]any{}
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode response %q: %v", w.Body.String(), err)
		}
	}
	return w, out
}

func TestAppendCreditScore_createsBlock(t *testing.T) {
	router, registry := newTestRouter(t)

	w, resp := doJSON(t, router, http.MethodPost, "/api/v1/blockchain/credit-scores", gin.H{
		"user_id":               1,
		"credit_score":          720,
		"model_version":         "v1",
		"prediction_confidence": 0.91,
		"risk_factors":          []string{"high_debt_ratio"},
	})

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	hash, _ := resp["block_hash"].(string)
	if len(hash) != 64 {
		t.Errorf("block_hash = %q, want 64 hex chars", hash)
	}

	rec, err := registry.Verify(context.Background(), ledger.KindCreditScore)
	if err != nil {
		t.Fatal(err)
	}
	if !rec.Valid || rec.TotalBlocks != 1 {
		t.Errorf("chain after append = %+v", rec)
	}
}

func TestAppendCreditScore_missingFields(t *testing.T) {
	router, registry := newTestRouter(t)

	w, _ := doJSON(t, router, http.MethodPost, "/api/v1/blockchain/credit-scores", gin.H{
		"user_id": 1,
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}

	rec, _ := registry.Verify(context.Background(), ledger.KindCreditScore)
	if rec.TotalBlocks != 0 {
		t.Error("invalid request produced a block")
	}
}

func TestAppendTransaction_returnsDerivedHash(t *testing.T) {
	router, _ := newTestRouter(t)

	w, resp := doJSON(t, router, http.MethodPost, "/api/v1/blockchain/transactions", gin.H{
		"user_id":          3,
		"transaction_type": "loan_disbursement",
		"amount":           25000.0,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if h, _ := resp["transaction_hash"].(string); len(h) != 64 {
		t.Errorf("transaction_hash = %q, want 64 hex chars", h)
	}
}

func TestVerify_endpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	doJSON(t, router, http.MethodPost, "/api/v1/blockchain/credit-scores", gin.H{
		"user_id": 1, "credit_score": 700, "model_version": "v1",
		"prediction_confidence": 0.9, "risk_factors": []string{},
	})

	w, resp := doJSON(t, router, http.MethodGet, "/api/v1/blockchain/verify/credit_score", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	result, _ := resp["verification_result"].(map[string]any)
	if result == nil {
		t.Fatalf("missing verification_result in %v", resp)
	}
	if valid, _ := result["valid"].(bool); !valid {
		t.Errorf("verification_result = %v, want valid", result)
	}
	if result["integrity_score"].(float64) != 1.0 {
		t.Errorf("integrity_score = %v, want 1.0", result["integrity_score"])
	}
}

func TestVerify_unknownKind(t *testing.T) {
	router, _ := newTestRouter(t)
	w, _ := doJSON(t, router, http.MethodGet, "/api/v1/blockchain/verify/bogus", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestUserHistory_endpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	for _, score := range []int{640, 700} {
		doJSON(t, router, http.MethodPost, "/api/v1/blockchain/credit-scores", gin.H{
			"user_id": 9, "credit_score": score, "model_version": "v1",
			"prediction_confidence": 0.9, "risk_factors": []string{},
		})
	}

	w, resp := doJSON(t, router, http.MethodGet, "/api/v1/blockchain/users/9/history", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if resp["total_records"].(float64) != 2 {
		t.Errorf("total_records = %v, want 2", resp["total_records"])
	}

	entries := resp["credit_history"].([]any)
	first := entries[0].(map[string]any)
	if first["credit_score"].(float64) != 700 {
		t.Errorf("history not newest-first: %v", entries)
	}
}

func TestUserHistory_invalidID(t *testing.T) {
	router, _ := newTestRouter(t)
	w, _ := doJSON(t, router, http.MethodGet, "/api/v1/blockchain/users/abc/history", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestStatistics_endpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	doJSON(t, router, http.MethodPost, "/api/v1/blockchain/transactions", gin.H{
		"user_id": 1, "transaction_type": "deposit", "amount": 1500.0,
	})

	w, resp := doJSON(t, router, http.MethodGet, "/api/v1/blockchain/statistics", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	stats := resp["blockchain_statistics"].(map[string]any)
	txStats := stats["transaction_blockchain"].(map[string]any)
	if txStats["total_transaction_volume"].(float64) != 1500 {
		t.Errorf("transaction stats = %v", txStats)
	}
}

func TestHealth_endpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	w, resp := doJSON(t, router, http.MethodGet, "/api/v1/blockchain/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if resp["overall_status"] != "healthy" {
		t.Errorf("overall_status = %v, want healthy", resp["overall_status"])
	}
	chains := resp["blockchain_health"].(map[string]any)
	if len(chains) != 4 {
		t.Errorf("health covers %d chains, want 4", len(chains))
	}
}

func TestPredict_sealsCreditAndAuditChains(t *testing.T) {
	router, registry := newTestRouter(t)

	w, resp := doJSON(t, router, http.MethodPost, "/api/v1/scoring/predictions", gin.H{
		"user_id":          7,
		"monthly_income":   8000.0,
		"existing_debt":    500.0,
		"requested_amount": 20000.0,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if resp["success"] != true {
		t.Errorf("response = %v", resp)
	}

	pred := resp["prediction"].(map[string]any)
	if pred["decision"] != "Approve" {
		t.Errorf("decision = %v, want Approve for a strong applicant", pred["decision"])
	}

	for _, kind := range []ledger.Kind{ledger.KindCreditScore, ledger.KindPredictionAudit} {
		rec, err := registry.Verify(context.Background(), kind)
		if err != nil {
			t.Fatal(err)
		}
		if !rec.Valid || rec.TotalBlocks != 1 {
			t.Errorf("%s chain after predict = %+v", kind, rec)
		}
	}
}

func TestPredict_invalidBody(t *testing.T) {
	router, _ := newTestRouter(t)
	w, _ := doJSON(t, router, http.MethodPost, "/api/v1/scoring/predictions", gin.H{
		"user_id": 7,
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestTrain_registersModelVersion(t *testing.T) {
	router, registry := newTestRouter(t)

	w, resp := doJSON(t, router, http.MethodPost, "/api/v1/scoring/train", gin.H{
		"model_version": "rule_based_v2",
		"accuracy":      0.9,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if resp["model_version"] != "rule_based_v2" {
		t.Errorf("model_version = %v", resp["model_version"])
	}

	rec, err := registry.Verify(context.Background(), ledger.KindModelVersion)
	if err != nil {
		t.Fatal(err)
	}
	if rec.TotalBlocks != 1 {
		t.Errorf("model chain blocks = %d, want 1", rec.TotalBlocks)
	}
}

func TestModelInfo_reportsIntegrity(t *testing.T) {
	router, _ := newTestRouter(t)

	w, resp := doJSON(t, router, http.MethodGet, "/api/v1/scoring/model", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if resp["model_version"] != scoring.ModelVersion {
		t.Errorf("model_version = %v", resp["model_version"])
	}
	if resp["model_hash"] != chain.SumHex([]byte(scoring.ModelVersion)) {
		t.Errorf("model_hash = %v", resp["model_hash"])
	}
	if resp["blockchain_verified"] != true {
		t.Errorf("empty chain should verify clean: %v", resp)
	}
}
