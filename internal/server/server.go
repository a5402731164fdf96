// Package server exposes the risk engine over HTTP. The handlers are a thin
// adapter: they convert payloads and status codes and add no decision logic.
package server

import (
	"net/http"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/veripay/riskengine/internal/audit"
	"github.com/veripay/riskengine/internal/blocklist"
	"github.com/veripay/riskengine/internal/riskengine"
	"github.com/veripay/riskengine/internal/training"
)

// Server is the HTTP front for the scoring engine, blocklist administration,
// the training trigger and the metrics surfaces.
type Server struct {
	logger    *zap.Logger
	engine    *riskengine.Engine
	blocklist blocklist.Blocklist
	trainer   *training.Trainer
	verifier  audit.Verifier
}

// New creates the HTTP server over the given collaborators. verifier may be
// nil when the audit sink cannot re-read its chain.
func New(logger *zap.Logger, engine *riskengine.Engine, bl blocklist.Blocklist, trainer *training.Trainer, verifier audit.Verifier) *Server {
	return &Server{
		logger:    logger,
		engine:    engine,
		blocklist: bl,
		trainer:   trainer,
		verifier:  verifier,
	}
}

// Router builds the gin router with logging and recovery middleware.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(ginzap.Ginzap(s.logger, "2006-01-02T15:04:05Z07:00", true))
	router.Use(ginzap.RecoveryWithZap(s.logger, true))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		risk := v1.Group("/risk")
		{
			risk.POST("/analyze", s.handleAnalyze)
			risk.GET("/metrics", s.handleEngineMetrics)
		}

		bl := v1.Group("/blocklist")
		{
			bl.POST("", s.handleBlocklistAdd)
			bl.DELETE("/:id", s.handleBlocklistRemove)
		}

		v1.POST("/training/run", s.handleTrainingRun)
		v1.GET("/audit/verify", s.handleAuditVerify)
	}

	return router
}
