package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jmerrifield20/CreditChain/internal/ledger"
)

// LedgerHandler exposes the blockchain endpoints: appends per kind, chain
// verification, per-user history, statistics, and the health check.
type LedgerHandler struct {
	registry *ledger.Registry
	logger   *zap.Logger
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(registry *ledger.Registry, logger *zap.Logger) *LedgerHandler {
	return &LedgerHandler{registry: registry, logger: logger}
}

// Register mounts the blockchain routes on the given router group.
func (h *LedgerHandler) Register(rg *gin.RouterGroup) {
	bc := rg.Group("/blockchain")
	{
		bc.POST("/credit-scores", h.AppendCreditScore)
		bc.POST("/transactions", h.AppendTransaction)
		bc.POST("/model-versions", h.AppendModelVersion)
		bc.POST("/prediction-audits", h.AppendPredictionAudit)
		bc.GET("/verify/:kind", h.Verify)
		bc.GET("/users/:user_id/history", h.UserHistory)
		bc.GET("/statistics", h.Statistics)
		bc.GET("/health", h.Health)
	}
}

// appendError maps engine errors to HTTP responses.
func (h *LedgerHandler) appendError(c *gin.Context, err error) {
	if errors.Is(err, ledger.ErrValidation) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.logger.Error("ledger append", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to append block"})
}

type creditScoreRequest struct {
	UserID               int64    `json:"user_id" binding:"required"`
	CreditScore          int      `json:"credit_score" binding:"required"`
	ModelVersion         string   `json:"model_version" binding:"required"`
	PredictionConfidence float64  `json:"prediction_confidence" binding:"required"`
	RiskFactors          []string `json:"risk_factors" binding:"required"`
}

// AppendCreditScore handles POST /blockchain/credit-scores.
func (h *LedgerHandler) AppendCreditScore(c *gin.Context) {
	var req creditScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	b, err := h.registry.AppendCreditScore(c.Request.Context(), &ledger.CreditScorePayload{
		UserID:               req.UserID,
		CreditScore:          req.CreditScore,
		ModelVersion:         req.ModelVersion,
		PredictionConfidence: req.PredictionConfidence,
		RiskFactors:          req.RiskFactors,
	})
	if err != nil {
		h.appendError(c, err)
		return
	}

	RecordBlockAppend(string(ledger.KindCreditScore))
	c.JSON(http.StatusCreated, gin.H{
		"success":    true,
		"block_hash": b.Hash,
		"message":    "credit score added to blockchain",
	})
}

type transactionRequest struct {
	UserID          int64   `json:"user_id" binding:"required"`
	TransactionType string  `json:"transaction_type" binding:"required"`
	Amount          float64 `json:"amount" binding:"required,gt=0"`
}

// AppendTransaction handles POST /blockchain/transactions.
func (h *LedgerHandler) AppendTransaction(c *gin.Context) {
	var req transactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	b, err := h.registry.AppendTransaction(c.Request.Context(), &ledger.TransactionPayload{
		UserID:          req.UserID,
		TransactionType: req.TransactionType,
		Amount:          req.Amount,
	})
	if err != nil {
		h.appendError(c, err)
		return
	}

	RecordBlockAppend(string(ledger.KindTransaction))
	c.JSON(http.StatusCreated, gin.H{
		"success":          true,
		"block_hash":       b.Hash,
		"transaction_hash": b.Payload.(*ledger.TransactionPayload).TransactionHash,
		"message":          "transaction added to blockchain",
	})
}

type modelVersionRequest struct {
	ModelVersion     string  `json:"model_version" binding:"required"`
	Accuracy         float64 `json:"accuracy" binding:"required,gte=0,lte=1"`
	TrainingDataHash string  `json:"training_data_hash" binding:"required"`
	AlgorithmHash    string  `json:"algorithm_hash" binding:"required"`
}

// AppendModelVersion handles POST /blockchain/model-versions.
func (h *LedgerHandler) AppendModelVersion(c *gin.Context) {
	var req modelVersionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	b, err := h.registry.AppendModelVersion(c.Request.Context(), &ledger.ModelVersionPayload{
		ModelVersion:     req.ModelVersion,
		Accuracy:         req.Accuracy,
		TrainingDataHash: req.TrainingDataHash,
		AlgorithmHash:    req.AlgorithmHash,
	})
	if err != nil {
		h.appendError(c, err)
		return
	}

	RecordBlockAppend(string(ledger.KindModelVersion))
	c.JSON(http.StatusCreated, gin.H{
		"success":    true,
		"block_hash": b.Hash,
		"message":    "model version registered on blockchain",
	})
}

type predictionAuditRequest struct {
	UserID           int64  `json:"user_id" binding:"required"`
	InputDataHash    string `json:"input_data_hash" binding:"required"`
	PredictionHash   string `json:"prediction_hash" binding:"required"`
	ModelHash        string `json:"model_hash" binding:"required"`
	AuditorSignature string `json:"auditor_signature"`
}

// AppendPredictionAudit handles POST /blockchain/prediction-audits.
func (h *LedgerHandler) AppendPredictionAudit(c *gin.Context) {
	var req predictionAuditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	b, err := h.registry.AppendPredictionAudit(c.Request.Context(), &ledger.PredictionAuditPayload{
		UserID:           req.UserID,
		InputDataHash:    req.InputDataHash,
		PredictionHash:   req.PredictionHash,
		ModelHash:        req.ModelHash,
		AuditorSignature: req.AuditorSignature,
	})
	if err != nil {
		h.appendError(c, err)
		return
	}

	RecordBlockAppend(string(ledger.KindPredictionAudit))
	c.JSON(http.StatusCreated, gin.H{
		"success":    true,
		"block_hash": b.Hash,
		"message":    "prediction audit added to blockchain",
	})
}

// Verify handles GET /blockchain/verify/:kind — runs a full integrity pass.
// An invalid chain is a normal, reportable outcome, not an HTTP error.
func (h *LedgerHandler) Verify(c *gin.Context) {
	kind, err := ledger.ParseKind(c.Param("kind"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rec, err := h.registry.Verify(c.Request.Context(), kind)
	if err != nil {
		h.logger.Error("chain verification", zap.String("kind", string(kind)), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify blockchain"})
		return
	}

	RecordVerification(string(kind), rec.Valid, rec.IntegrityScore)
	c.JSON(http.StatusOK, gin.H{
		"blockchain_type":     kind,
		"verification_result": rec,
	})
}

// UserHistory handles GET /blockchain/users/:user_id/history.
func (h *LedgerHandler) UserHistory(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id must be a positive integer"})
		return
	}

	history, err := h.registry.UserHistory(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("user history", zap.Int64("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch history"})
		return
	}
	if history == nil {
		history = []ledger.HistoryEntry{}
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":        userID,
		"credit_history": history,
		"total_records":  len(history),
	})
}

// Statistics handles GET /blockchain/statistics.
func (h *LedgerHandler) Statistics(c *gin.Context) {
	stats, err := h.registry.Statistics(c.Request.Context())
	if err != nil {
		h.logger.Error("blockchain statistics", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch statistics"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"blockchain_statistics": stats})
}

// Health handles GET /blockchain/health — verifies every chain and reports
// per-kind and overall status. A degraded system still answers 200; the
// status field carries the result.
func (h *LedgerHandler) Health(c *gin.Context) {
	report, err := h.registry.HealthCheck(c.Request.Context())
	if err != nil {
		h.logger.Error("blockchain health check", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "health check failed"})
		return
	}

	for kind, ch := range report.Chains {
		RecordVerification(string(kind), ch.Status == "healthy", ch.IntegrityScore)
	}
	c.JSON(http.StatusOK, report)
}
