// Package client provides the CreditChain Go SDK for appending to and
// verifying the blockchain ledgers exposed by a ledgerd instance.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// ErrNotFound is returned when the server answers 404.
var ErrNotFound = errors.New("not found")

// VerifyResult mirrors one verification record as reported by the server.
type VerifyResult struct {
	ID             string  `json:"id"`
	Kind           string  `json:"blockchain_type"`
	Valid          bool    `json:"valid"`
	TotalBlocks    int     `json:"total_blocks"`
	VerifiedBlocks int     `json:"verified_blocks"`
	IntegrityScore float64 `json:"integrity_score"`
	Timestamp      string  `json:"verification_timestamp"`
	Hash           string  `json:"verification_hash"`
}

// AppendResult holds the outcome of any append call.
type AppendResult struct {
	Success         bool   `json:"success"`
	BlockHash       string `json:"block_hash"`
	TransactionHash string `json:"transaction_hash,omitempty"`
	Message         string `json:"message"`
}

// CreditScoreRecord is the payload for AppendCreditScore.
type CreditScoreRecord struct {
	UserID               int64    `json:"user_id"`
	CreditScore          int      `json:"credit_score"`
	ModelVersion         string   `json:"model_version"`
	PredictionConfidence float64  `json:"prediction_confidence"`
	RiskFactors          []string `json:"risk_factors"`
}

// TransactionRecord is the payload for AppendTransaction.
type TransactionRecord struct {
	UserID          int64   `json:"user_id"`
	TransactionType string  `json:"transaction_type"`
	Amount          float64 `json:"amount"`
}

// ModelVersionRecord is the payload for AppendModelVersion.
type ModelVersionRecord struct {
	ModelVersion     string  `json:"model_version"`
	Accuracy         float64 `json:"accuracy"`
	TrainingDataHash string  `json:"training_data_hash"`
	AlgorithmHash    string  `json:"algorithm_hash"`
}

// PredictionAuditRecord is the payload for AppendPredictionAudit.
type PredictionAuditRecord struct {
	UserID           int64  `json:"user_id"`
	InputDataHash    string `json:"input_data_hash"`
	PredictionHash   string `json:"prediction_hash"`
	ModelHash        string `json:"model_hash"`
	AuditorSignature string `json:"auditor_signature,omitempty"`
}

// HistoryEntry is one credit-score record in a user's history, newest first.
type HistoryEntry struct {
	BlockHash            string   `json:"block_hash"`
	CreditScore          int      `json:"credit_score"`
	ModelVersion         string   `json:"model_version"`
	PredictionConfidence float64  `json:"prediction_confidence"`
	RiskFactors          []string `json:"risk_factors"`
	Timestamp            string   `json:"timestamp"`
	BlockchainVerified   bool     `json:"blockchain_verified"`
}

// PredictionRequest is the loan application payload for Predict.
type PredictionRequest struct {
	UserID          int64   `json:"user_id"`
	MonthlyIncome   float64 `json:"monthly_income"`
	ExistingDebt    float64 `json:"existing_debt"`
	RequestedAmount float64 `json:"requested_amount"`
}

// Prediction is the scored assessment returned by Predict.
type Prediction struct {
	CreditScore             int      `json:"credit_score"`
	Decision                string   `json:"decision"`
	RiskCategory            string   `json:"risk_category"`
	MaxLoanAmount           int      `json:"max_loan_amount"`
	RecommendedInterestRate float64  `json:"recommended_interest_rate"`
	Confidence              float64  `json:"model_confidence"`
	RiskFactors             []string `json:"risk_factors"`
	ModelVersion            string   `json:"model_version"`
}

// PredictResult bundles the prediction with the block hashes that sealed it.
type PredictResult struct {
	Prediction     Prediction `json:"prediction"`
	BlockchainHash string     `json:"blockchain_hash"`
	AuditBlockHash string     `json:"audit_block_hash"`
}

// ChainHealth is the per-chain portion of a health report.
type ChainHealth struct {
	Status         string  `json:"status"`
	IntegrityScore float64 `json:"integrity_score"`
	TotalBlocks    int     `json:"total_blocks"`
}

// HealthReport is the full health response.
type HealthReport struct {
	OverallStatus string                 `json:"overall_status"`
	Chains        map[string]ChainHealth `json:"blockchain_health"`
}

// Client is the CreditChain SDK entry point.
type Client struct {
	baseURL    string
	httpClient *http.Client
	cache      *verifyCache
}

// Option is a functional option for configuring a Client.
type Option func(*Client) error

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		c.httpClient = hc
		return nil
	}
}

// WithVerifyCacheTTL caches verification results per kind for the given TTL.
// Verification walks the whole chain server-side; dashboards polling several
// chains should cache.
func WithVerifyCacheTTL(ttl time.Duration) Option {
	return func(c *Client) error {
		c.cache = newVerifyCache(ttl)
		return nil
	}
}

// New creates a new SDK Client connected to baseURL.
//
//	c, err := client.New("http://localhost:8080",
//	    client.WithVerifyCacheTTL(30*time.Second),
//	)
func New(baseURL string, opts ...Option) (*Client, error) {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		if err := o(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// MustNew is like New but panics on error. Useful in tests and program init.
func MustNew(baseURL string, opts ...Option) *Client {
	c, err := New(baseURL, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

// AppendCreditScore seals a credit-score record onto its chain.
func (c *Client) AppendCreditScore(ctx context.Context, rec CreditScoreRecord) (*AppendResult, error) {
	return c.append(ctx, "/api/v1/blockchain/credit-scores", rec)
}

// AppendTransaction seals a financial transaction onto its chain. The server
// derives the transaction hash; it comes back in the result.
func (c *Client) AppendTransaction(ctx context.Context, rec TransactionRecord) (*AppendResult, error) {
	return c.append(ctx, "/api/v1/blockchain/transactions", rec)
}

// AppendModelVersion registers a model deployment on its chain.
func (c *Client) AppendModelVersion(ctx context.Context, rec ModelVersionRecord) (*AppendResult, error) {
	return c.append(ctx, "/api/v1/blockchain/model-versions", rec)
}

// AppendPredictionAudit seals an audit record onto its chain.
func (c *Client) AppendPredictionAudit(ctx context.Context, rec PredictionAuditRecord) (*AppendResult, error) {
	return c.append(ctx, "/api/v1/blockchain/prediction-audits", rec)
}

func (c *Client) append(ctx context.Context, path string, payload any) (*AppendResult, error) {
	body, err := c.postJSON(ctx, path, payload)
	if err != nil {
		return nil, err
	}
	var result AppendResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode append response: %w", err)
	}
	return &result, nil
}

// Verify runs a full integrity pass over one chain. kind is one of
// credit_score, transaction, model_version, prediction_audit.
func (c *Client) Verify(ctx context.Context, kind string) (*VerifyResult, error) {
	if c.cache != nil {
		if result, ok := c.cache.get(kind); ok {
			return result, nil
		}
	}

	body, err := c.get(ctx, "/api/v1/blockchain/verify/"+kind)
	if err != nil {
		return nil, err
	}

	var wrapper struct {
		Result VerifyResult `json:"verification_result"`
	}
	if err := json.Unmarshal(body, &wrapper); err != nil {
		return nil, fmt.Errorf("decode verify response: %w", err)
	}

	if c.cache != nil {
		c.cache.set(kind, &wrapper.Result)
	}
	return &wrapper.Result, nil
}

// UserHistory returns a user's credit-score records, newest first.
func (c *Client) UserHistory(ctx context.Context, userID int64) ([]HistoryEntry, error) {
	body, err := c.get(ctx, "/api/v1/blockchain/users/"+strconv.FormatInt(userID, 10)+"/history")
	if err != nil {
		return nil, err
	}

	var wrapper struct {
		History []HistoryEntry `json:"credit_history"`
	}
	if err := json.Unmarshal(body, &wrapper); err != nil {
		return nil, fmt.Errorf("decode history response: %w", err)
	}
	return wrapper.History, nil
}

// Statistics returns the raw statistics document for all chains.
func (c *Client) Statistics(ctx context.Context) (map[string]any, error) {
	body, err := c.get(ctx, "/api/v1/blockchain/statistics")
	if err != nil {
		return nil, err
	}

	var wrapper struct {
		Stats map[string]any `json:"blockchain_statistics"`
	}
	if err := json.Unmarshal(body, &wrapper); err != nil {
		return nil, fmt.Errorf("decode statistics response: %w", err)
	}
	return wrapper.Stats, nil
}

// Health verifies every chain and returns the aggregate report.
func (c *Client) Health(ctx context.Context) (*HealthReport, error) {
	body, err := c.get(ctx, "/api/v1/blockchain/health")
	if err != nil {
		return nil, err
	}

	var report HealthReport
	if err := json.Unmarshal(body, &report); err != nil {
		return nil, fmt.Errorf("decode health response: %w", err)
	}
	return &report, nil
}

// Predict submits a loan application for scoring. The server seals the result
// into the credit-score and prediction-audit chains before answering.
func (c *Client) Predict(ctx context.Context, req PredictionRequest) (*PredictResult, error) {
	body, err := c.postJSON(ctx, "/api/v1/scoring/predictions", req)
	if err != nil {
		return nil, err
	}

	var result PredictResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode prediction response: %w", err)
	}
	return &result, nil
}

// Train registers a model version. Empty fields fall back to server defaults.
func (c *Client) Train(ctx context.Context, modelVersion string, accuracy float64) (*AppendResult, error) {
	return c.append(ctx, "/api/v1/scoring/train", map[string]any{
		"model_version": modelVersion,
		"accuracy":      accuracy,
	})
}

// ModelInfo returns the active model version and the credit chain's
// verification state.
func (c *Client) ModelInfo(ctx context.Context) (map[string]any, error) {
	body, err := c.get(ctx, "/api/v1/scoring/model")
	if err != nil {
		return nil, err
	}

	var result map[string]any
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode model response: %w", err)
	}
	return result, nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return c.do(req)
}

func (c *Client) postJSON(ctx context.Context, path string, payload any) ([]byte, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return c.do(req)
}

// do executes an HTTP request against the server.
func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, req.URL.Path)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("server error %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}

// --- simple in-memory verification cache ---

type cacheEntry struct {
	result    *VerifyResult
	expiresAt time.Time
}

type verifyCache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
	ttl     time.Duration
}

func newVerifyCache(ttl time.Duration) *verifyCache {
	return &verifyCache{entries: make(map[string]*cacheEntry), ttl: ttl}
}

func (vc *verifyCache) get(key string) (*VerifyResult, bool) {
	vc.mu.RLock()
	defer vc.mu.RUnlock()
	e, ok := vc.entries[key]
	if !ok || time.Now().After(e.expiresAt) {
		return nil, false
	}
	return e.result, true
}

func (vc *verifyCache) set(key string, result *VerifyResult) {
	vc.mu.Lock()
	defer vc.mu.Unlock()
	vc.entries[key] = &cacheEntry{result: result, expiresAt: time.Now().Add(vc.ttl)}
}
