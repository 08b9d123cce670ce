package client_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jmerrifield20/CreditChain/pkg/client"
)

// ── Stub server ─────────────────────────────────────────────────────────

func stubLedgerServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/api/v1/blockchain/credit-scores", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body["user_id"] == nil {
			http.Error(w, `{"error":"invalid payload"}`, http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{
			"success":    true,
			"block_hash": strings.Repeat("a", 64),
			"message":    "credit score added to blockchain",
		})
	})

	mux.HandleFunc("/api/v1/blockchain/transactions", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{
			"success":          true,
			"block_hash":       strings.Repeat("b", 64),
			"transaction_hash": strings.Repeat("c", 64),
			"message":          "transaction added to blockchain",
		})
	})

	mux.HandleFunc("/api/v1/blockchain/verify/", func(w http.ResponseWriter, r *http.Request) {
		kind := strings.TrimPrefix(r.URL.Path, "/api/v1/blockchain/verify/")
		if kind == "bogus" {
			http.Error(w, `{"error":"unknown blockchain type"}`, http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"blockchain_type": kind,
			"verification_result": map[string]any{
				"blockchain_type": kind,
				"valid":           true,
				"total_blocks":    3,
				"verified_blocks": 3,
				"integrity_score": 1.0,
			},
		})
	})

	mux.HandleFunc("/api/v1/blockchain/users/", func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "/404/") {
			http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"user_id": 42,
			"credit_history": []map[string]any{
				{"block_hash": strings.Repeat("d", 64), "credit_score": 710, "blockchain_verified": true},
				{"block_hash": strings.Repeat("e", 64), "credit_score": 680, "blockchain_verified": true},
			},
			"total_records": 2,
		})
	})

	mux.HandleFunc("/api/v1/blockchain/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"overall_status": "healthy",
			"blockchain_health": map[string]any{
				"credit_score": map[string]any{"status": "healthy", "integrity_score": 1.0, "total_blocks": 3},
				"transaction":  map[string]any{"status": "healthy", "integrity_score": 1.0, "total_blocks": 1},
			},
		})
	})

	mux.HandleFunc("/api/v1/scoring/predictions", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"prediction": map[string]any{
				"credit_score":     725,
				"decision":         "Approve",
				"risk_category":    "Excellent",
				"model_confidence": 0.85,
				"model_version":    "rule_based_v1",
			},
			"blockchain_hash":  strings.Repeat("f", 64),
			"audit_block_hash": strings.Repeat("1", 64),
		})
	})

	return httptest.NewServer(mux)
}

// ── Tests ────────────────────────────────────────────────────────────────

func TestAppendCreditScore_success(t *testing.T) {
	srv := stubLedgerServer(t)
	defer srv.Close()

	c, err := client.New(srv.URL)
	if err != nil {
		t.Fatal(err)
	}

	res, err := c.AppendCreditScore(context.Background(), client.CreditScoreRecord{
		UserID:               42,
		CreditScore:          700,
		ModelVersion:         "rule_based_v1",
		PredictionConfidence: 0.85,
		RiskFactors:          []string{},
	})
	if err != nil {
		t.Fatalf("AppendCreditScore: %v", err)
	}
	if !res.Success || len(res.BlockHash) != 64 {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestAppendTransaction_returnsTransactionHash(t *testing.T) {
	srv := stubLedgerServer(t)
	defer srv.Close()

	c := client.MustNew(srv.URL)

	res, err := c.AppendTransaction(context.Background(), client.TransactionRecord{
		UserID:          42,
		TransactionType: "loan_payment",
		Amount:          1250,
	})
	if err != nil {
		t.Fatalf("AppendTransaction: %v", err)
	}
	if len(res.TransactionHash) != 64 {
		t.Errorf("unexpected transaction hash: %q", res.TransactionHash)
	}
}

func TestVerify_success(t *testing.T) {
	srv := stubLedgerServer(t)
	defer srv.Close()

	c := client.MustNew(srv.URL)

	rec, err := c.Verify(context.Background(), "credit_score")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !rec.Valid || rec.IntegrityScore != 1.0 {
		t.Errorf("unexpected verification: %+v", rec)
	}
}

func TestVerify_unknownKind(t *testing.T) {
	srv := stubLedgerServer(t)
	defer srv.Close()

	c := client.MustNew(srv.URL)
	if _, err := c.Verify(context.Background(), "bogus"); err == nil {
		t.Error("expected error for unknown chain kind")
	}
}

func TestVerify_cache(t *testing.T) {
	callCount := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		callCount++
		json.NewEncoder(w).Encode(map[string]any{
			"verification_result": map[string]any{
				"blockchain_type": "credit_score",
				"valid":           true,
				"integrity_score": 1.0,
			},
		})
	}))
	defer srv.Close()

	c := client.MustNew(srv.URL, client.WithVerifyCacheTTL(5*time.Minute))

	c.Verify(context.Background(), "credit_score")
	c.Verify(context.Background(), "credit_score")

	if callCount != 1 {
		t.Errorf("expected 1 HTTP call (cached), got %d", callCount)
	}
}

func TestUserHistory_success(t *testing.T) {
	srv := stubLedgerServer(t)
	defer srv.Close()

	c := client.MustNew(srv.URL)

	history, err := c.UserHistory(context.Background(), 42)
	if err != nil {
		t.Fatalf("UserHistory: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(history))
	}
	if history[0].CreditScore != 710 {
		t.Errorf("history not newest-first: %+v", history)
	}
}

func TestUserHistory_notFound(t *testing.T) {
	srv := stubLedgerServer(t)
	defer srv.Close()

	c := client.MustNew(srv.URL)
	if _, err := c.UserHistory(context.Background(), 404); err == nil {
		t.Error("expected error for missing user")
	}
}

func TestHealth_success(t *testing.T) {
	srv := stubLedgerServer(t)
	defer srv.Close()

	c := client.MustNew(srv.URL)

	report, err := c.Health(context.Background())
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if report.OverallStatus != "healthy" {
		t.Errorf("unexpected status: %s", report.OverallStatus)
	}
	if report.Chains["credit_score"].TotalBlocks != 3 {
		t.Errorf("unexpected chain health: %+v", report.Chains)
	}
}

func TestPredict_success(t *testing.T) {
	srv := stubLedgerServer(t)
	defer srv.Close()

	c := client.MustNew(srv.URL)

	result, err := c.Predict(context.Background(), client.PredictionRequest{
		UserID:          42,
		MonthlyIncome:   6500,
		ExistingDebt:    1200,
		RequestedAmount: 30000,
	})
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if result.Prediction.Decision != "Approve" {
		t.Errorf("unexpected decision: %s", result.Prediction.Decision)
	}
	if len(result.BlockchainHash) != 64 || len(result.AuditBlockHash) != 64 {
		t.Errorf("missing block hashes: %+v", result)
	}
}
