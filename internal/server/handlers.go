package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/veripay/riskengine/internal/training"
	"github.com/veripay/riskengine/pkg/errors"
	"github.com/veripay/riskengine/pkg/models"
)

func problem(c *gin.Context, p *errors.Problem) {
	c.JSON(p.Status, p)
}

// handleAnalyze scores one transaction. The engine's fail-open contract
// means this endpoint always returns 200 with a decision for well-formed
// payloads.
func (s *Server) handleAnalyze(c *gin.Context) {
	var tx models.TransactionContext
	if err := c.ShouldBindJSON(&tx); err != nil {
		problem(c, errors.Invalid.Explain("invalid transaction payload"))
		return
	}
	if tx.UserID == "" {
		problem(c, errors.Invalid.Explain("user_id is required"))
		return
	}
	if tx.Amount.IsNegative() || tx.Amount.IsZero() {
		problem(c, errors.Invalid.Explain("amount must be positive"))
		return
	}
	if tx.Timestamp.IsZero() {
		tx.Timestamp = time.Now()
	}

	analysis := s.engine.Analyze(c.Request.Context(), tx)
	c.JSON(http.StatusOK, analysis)
}

// handleEngineMetrics returns the dashboard surface.
func (s *Server) handleEngineMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, s.engine.GetMetrics(c.Request.Context()))
}

type blocklistRequest struct {
	ID string `json:"id" binding:"required"`
}

// handleBlocklistAdd is the operator-facing add. The scoring path reaches
// the blocklist only through enforcement, never through this endpoint.
func (s *Server) handleBlocklistAdd(c *gin.Context) {
	var req blocklistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		problem(c, errors.Invalid.Explain("id is required"))
		return
	}
	if err := s.blocklist.Add(c.Request.Context(), req.ID); err != nil {
		s.logger.Error("blocklist add failed", zap.String("id", req.ID), zap.Error(err))
		problem(c, errors.Internal.Explain("failed to add to blocklist"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": req.ID, "blocked": true})
}

func (s *Server) handleBlocklistRemove(c *gin.Context) {
	id := c.Param("id")
	if err := s.blocklist.Remove(c.Request.Context(), id); err != nil {
		s.logger.Error("blocklist remove failed", zap.String("id", id), zap.Error(err))
		problem(c, errors.Internal.Explain("failed to remove from blocklist"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "blocked": false})
}

// handleTrainingRun triggers one training cycle; 409 when a run is already
// active.
func (s *Server) handleTrainingRun(c *gin.Context) {
	report, err := s.trainer.Run(c.Request.Context())
	if err != nil {
		if errors.Is(err, training.ErrTrainingInProgress) {
			problem(c, errors.Conflict.Explain("training already in progress"))
			return
		}
		s.logger.Error("training run failed", zap.Error(err))
		problem(c, errors.Internal.Explain("training run failed"))
		return
	}
	c.JSON(http.StatusOK, report)
}

// handleAuditVerify recomputes the audit hash chain.
func (s *Server) handleAuditVerify(c *gin.Context) {
	if s.verifier == nil {
		problem(c, errors.NotImplemented.Explain("audit sink does not support verification"))
		return
	}
	verified, err := s.verifier.VerifyChain(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"verified_entries": verified, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"verified_entries": verified, "intact": true})
}
