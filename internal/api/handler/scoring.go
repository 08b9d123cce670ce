package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jmerrifield20/CreditChain/internal/ledger"
	"github.com/jmerrifield20/CreditChain/internal/scoring"
	"github.com/jmerrifield20/CreditChain/pkg/chain"
)

// ScoringHandler exposes the scoring endpoints. Every prediction is sealed
// into the credit-score chain and mirrored onto the prediction-audit chain;
// model deployments are registered on the model-version chain.
type ScoringHandler struct {
	scorer   scoring.Scorer
	registry *ledger.Registry
	logger   *zap.Logger
}

// NewScoringHandler creates a new ScoringHandler.
func NewScoringHandler(scorer scoring.Scorer, registry *ledger.Registry, logger *zap.Logger) *ScoringHandler {
	return &ScoringHandler{scorer: scorer, registry: registry, logger: logger}
}

// Register mounts the scoring routes on the given router group.
func (h *ScoringHandler) Register(rg *gin.RouterGroup) {
	sc := rg.Group("/scoring")
	{
		sc.POST("/predictions", h.Predict)
		sc.POST("/train", h.Train)
		sc.GET("/model", h.ModelInfo)
	}
}

type predictionRequest struct {
	UserID          int64   `json:"user_id" binding:"required"`
	MonthlyIncome   float64 `json:"monthly_income" binding:"required,gt=0"`
	ExistingDebt    float64 `json:"existing_debt" binding:"gte=0"`
	RequestedAmount float64 `json:"requested_amount" binding:"required,gt=0"`
}

// Predict handles POST /scoring/predictions: score the application, seal the
// result into the credit-score chain, and append a prediction-audit block
// carrying digests of the inputs, the output, and the model.
func (h *ScoringHandler) Predict(c *gin.Context) {
	var req predictionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	assessment, err := h.scorer.Score(ctx, scoring.Request{
		UserID:          req.UserID,
		MonthlyIncome:   req.MonthlyIncome,
		ExistingDebt:    req.ExistingDebt,
		RequestedAmount: req.RequestedAmount,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	creditBlock, err := h.registry.AppendCreditScore(ctx, &ledger.CreditScorePayload{
		UserID:               req.UserID,
		CreditScore:          assessment.CreditScore,
		ModelVersion:         assessment.ModelVersion,
		PredictionConfidence: assessment.Confidence,
		RiskFactors:          assessment.RiskFactors,
	})
	if err != nil {
		h.logger.Error("append credit score", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record prediction"})
		return
	}
	RecordBlockAppend(string(ledger.KindCreditScore))

	auditBlock, err := h.registry.AppendPredictionAudit(ctx, &ledger.PredictionAuditPayload{
		UserID:         req.UserID,
		InputDataHash:  digestJSON(req),
		PredictionHash: digestJSON(assessment),
		ModelHash:      chain.SumHex([]byte(assessment.ModelVersion)),
	})
	if err != nil {
		// The credit block is already sealed; surface the audit failure
		// rather than pretending the trail is complete.
		h.logger.Error("append prediction audit", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record audit trail"})
		return
	}
	RecordBlockAppend(string(ledger.KindPredictionAudit))
	RecordPrediction(assessment.Decision)

	c.JSON(http.StatusOK, gin.H{
		"success":          true,
		"prediction":       assessment,
		"blockchain_hash":  creditBlock.Hash,
		"audit_block_hash": auditBlock.Hash,
	})
}

type trainRequest struct {
	ModelVersion string  `json:"model_version"`
	Accuracy     float64 `json:"accuracy"`
}

// Train handles POST /scoring/train: registers a model deployment on the
// model-version chain. Actual model training happens outside this service;
// this endpoint seals the deployment metadata.
func (h *ScoringHandler) Train(c *gin.Context) {
	var req trainRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.ModelVersion == "" {
		req.ModelVersion = scoring.ModelVersion
	}
	if req.Accuracy <= 0 || req.Accuracy > 1 {
		req.Accuracy = 0.85
	}

	b, err := h.registry.AppendModelVersion(c.Request.Context(), &ledger.ModelVersionPayload{
		ModelVersion:     req.ModelVersion,
		Accuracy:         req.Accuracy,
		TrainingDataHash: digestJSON(req),
		AlgorithmHash:    chain.SumHex([]byte(req.ModelVersion)),
	})
	if err != nil {
		h.logger.Error("register model version", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to register model version"})
		return
	}
	RecordBlockAppend(string(ledger.KindModelVersion))

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"message":       "model version registered",
		"model_version": req.ModelVersion,
		"accuracy":      req.Accuracy,
		"block_hash":    b.Hash,
	})
}

// ModelInfo handles GET /scoring/model: the current model version plus the
// credit chain's verification state.
func (h *ScoringHandler) ModelInfo(c *gin.Context) {
	rec, err := h.registry.Verify(c.Request.Context(), ledger.KindCreditScore)
	if err != nil {
		h.logger.Error("verify credit chain", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify blockchain"})
		return
	}
	RecordVerification(string(ledger.KindCreditScore), rec.Valid, rec.IntegrityScore)

	c.JSON(http.StatusOK, gin.H{
		"model_version":        scoring.ModelVersion,
		"model_hash":           chain.SumHex([]byte(scoring.ModelVersion)),
		"blockchain_integrity": rec.IntegrityScore,
		"blockchain_verified":  rec.Valid,
		"total_predictions":    rec.TotalBlocks,
	})
}

// digestJSON hashes a value's JSON encoding. Inputs are structs with a fixed
// field order, so the encoding is deterministic.
func digestJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return chain.GenesisHash
	}
	return chain.SumHex(b)
}
