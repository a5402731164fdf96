package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/veripay/riskengine/internal/audit"
	"github.com/veripay/riskengine/internal/blocklist"
	"github.com/veripay/riskengine/internal/history"
	"github.com/veripay/riskengine/internal/profile"
	"github.com/veripay/riskengine/internal/riskengine"
	"github.com/veripay/riskengine/internal/training"
	"github.com/veripay/riskengine/pkg/models"
)

func newTestServer(t *testing.T) (*Server, *blocklist.Memory) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := history.NewMemoryStore()
	bl := blocklist.NewMemory()
	sink := audit.NewMemorySink()
	logger := zap.NewNop()
	profiles := profile.NewStore(store, logger)
	engine := riskengine.New(profiles, bl, store, sink, logger)
	trainer := training.NewTrainer(store, sink, training.DefaultConfig(), logger)

	return New(logger, engine, bl, trainer, sink), bl
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAnalyzeEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router()

	w := doJSON(t, router, http.MethodPost, "/api/v1/risk/analyze", map[string]interface{}{
		"user_id":      "u1",
		"session_id":   "s1",
		"amount":       "2500",
		"phone_number": "254722000111",
		"ip_address":   "10.0.0.1",
		"session_type": "standard",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var analysis models.RiskAnalysis
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &analysis))
	assert.GreaterOrEqual(t, analysis.Score, 0)
	assert.LessOrEqual(t, analysis.Score, 100)
	assert.NotEmpty(t, analysis.Decision)
}

func TestAnalyzeEndpointRejectsBadPayload(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router()

	w := doJSON(t, router, http.MethodPost, "/api/v1/risk/analyze", map[string]interface{}{
		"session_id": "missing-user",
		"amount":     "10",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/v1/risk/analyze", map[string]interface{}{
		"user_id": "u1",
		"amount":  "0",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBlocklistEndpoints(t *testing.T) {
	srv, bl := newTestServer(t)
	router := srv.Router()

	w := doJSON(t, router, http.MethodPost, "/api/v1/blocklist", map[string]string{"id": "254700000001"})
	require.Equal(t, http.StatusOK, w.Code)

	hit, err := bl.Contains(context.Background(), "254700000001")
	require.NoError(t, err)
	assert.True(t, hit)

	// A blocked phone now short-circuits scoring to exactly 100/BLOCK.
	w = doJSON(t, router, http.MethodPost, "/api/v1/risk/analyze", map[string]interface{}{
		"user_id":      "u9",
		"amount":       "100",
		"phone_number": "254700000001",
	})
	require.Equal(t, http.StatusOK, w.Code)
	var analysis models.RiskAnalysis
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &analysis))
	assert.Equal(t, 100, analysis.Score)
	assert.Equal(t, models.DecisionBlock, analysis.Decision)

	w = doJSON(t, router, http.MethodDelete, "/api/v1/blocklist/254700000001", nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestEngineMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router()

	w := doJSON(t, router, http.MethodGet, "/api/v1/risk/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var m models.EngineMetrics
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m))
	assert.Equal(t, 90, m.BlockThreshold)
	assert.Equal(t, 70, m.ReviewThreshold)
}

func TestTrainingRunEndpointSkipsOnThinData(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router()

	w := doJSON(t, router, http.MethodPost, "/api/v1/training/run", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var report training.Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, training.ResultSkipped, report.Result)
}

func TestAuditVerifyEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router()

	// Produce a couple of audited analyses first.
	for i := 0; i < 2; i++ {
		doJSON(t, router, http.MethodPost, "/api/v1/risk/analyze", map[string]interface{}{
			"user_id": "u1",
			"amount":  "250",
		})
	}

	w := doJSON(t, router, http.MethodGet, "/api/v1/audit/verify", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"intact":true`)
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router()

	w := doJSON(t, router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
