package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/fingoldin/sbrlmod/internal/db"
	"github.com/fingoldin/sbrlmod/internal/rulelib"
	"github.com/fingoldin/sbrlmod/internal/search"
	"github.com/fingoldin/sbrlmod/pkg/models"
	"github.com/fingoldin/sbrlmod/pkg/sbrl"
)

// maxIters caps a single run's requested Iters (the per-chain MCMC
// iteration count) to prevent unbounded resource consumption from
// unconstrained requests. The SA driver ignores Iters and always runs
// its fixed cooling schedule.
const maxIters = 200_000

// APIHandler serves the training-run HTTP and WebSocket surface. It
// keeps an in-memory index of recent runs for fast status polling even
// when dbStore is nil (dev mode, no PostgreSQL configured); when
// dbStore is set, every run is also durably persisted.
type APIHandler struct {
	dbStore *db.PostgresStore
	wsHub   *Hub

	mu   sync.Mutex
	runs map[string]*models.TrainRun
}

// SetupRouter builds the Gin engine: public health/stream endpoints,
// bearer-token-and-rate-limited run submission and polling endpoints.
func SetupRouter(dbStore *db.PostgresStore, wsHub *Hub) *gin.Engine {
	r := gin.Default()

	// Enable CORS — configurable via ALLOWED_ORIGINS env var.
	// Production: ALLOWED_ORIGINS=https://example.com
	// Development: leave empty for *.
	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if allowedOrigins == "" || allowedOrigins == "*" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		} else {
			for _, allowed := range strings.Split(allowedOrigins, ",") {
				if strings.TrimSpace(allowed) == origin {
					c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
					break
				}
			}
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	handler := &APIHandler{
		dbStore: dbStore,
		wsHub:   wsHub,
		runs:    make(map[string]*models.TrainRun),
	}

	pub := r.Group("/api/v1")
	{
		pub.GET("/health", handler.handleHealth)
		pub.GET("/stream", wsHub.Subscribe)
	}

	auth := r.Group("/api/v1")
	auth.Use(AuthMiddleware())
	auth.Use(NewRateLimiter(30, 5).Middleware())
	{
		auth.POST("/runs", handler.handleCreateRun)
		auth.GET("/runs", handler.handleListRuns)
		auth.GET("/runs/:id", handler.handleGetRun)
	}

	return r
}

func (h *APIHandler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "operational",
		"engine":      "sbrlmod training service",
		"dbConnected": h.dbStore != nil,
	})
}

// handleCreateRun validates the request, starts training in the
// background, and returns the new run's id immediately with status
// "pending". Progress and completion are reported over the WebSocket
// hub and polled via GET /runs/:id.
func (h *APIHandler) handleCreateRun(c *gin.Context) {
	var req models.TrainRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	params := rulelib.Params{
		Lambda:    req.Lambda,
		Eta:       req.Eta,
		Alpha:     [2]float64{req.Alpha0, req.Alpha1},
		Iters:     req.Iters,
		InitSize:  req.InitSize,
		NChain:    req.NChain,
		Threshold: req.Threshold,
	}
	if params.NChain < 1 {
		params.NChain = 1
	}
	if req.Iters <= 0 || req.Iters > maxIters {
		c.JSON(http.StatusBadRequest, gin.H{"error": "iters must be in (0, " + strconv.Itoa(maxIters) + "]"})
		return
	}
	if req.NRules < 2 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nRules must be >= 2"})
		return
	}
	if err := params.Validate(req.NRules + 1); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	run := models.TrainRun{
		ID:        uuid.NewString(),
		Status:    models.RunStatusPending,
		Request:   req,
		CreatedAt: time.Now(),
	}
	h.putRun(&run)
	h.persistRun(context.Background(), &run)

	go h.runTraining(run, params)

	c.JSON(http.StatusAccepted, run)
}

// runTraining owns its own copy of run throughout: every status
// transition is published by storing a fresh pointer, so a concurrent
// GET never observes a run record being mutated mid-read.
func (h *APIHandler) runTraining(run models.TrainRun, params rulelib.Params) {
	run.Status = models.RunStatusRunning
	h.putRun(&run)
	h.persistRun(context.Background(), &run)

	loader := sbrl.SyntheticLoader{NSamples: run.Request.NSamples, NRules: run.Request.NRules, Seed: run.Request.Seed}
	method := sbrl.Method(run.Request.Method)
	runID := run.ID

	progress := func(e search.Event) {
		h.wsHub.Broadcast(mustMarshal(models.ProgressEvent{
			RunID:           runID,
			Iteration:       e.Iteration,
			MaxLogPosterior: e.MaxLogPosterior,
			NAdd:            e.NAdd,
			NDelete:         e.NDelete,
			NSwap:           e.NSwap,
			NReject:         e.NReject,
		}))
	}

	result, err := sbrl.Train(context.Background(), loader, params, method, run.Request.Seed, progress)
	now := time.Now()
	run.CompletedAt = &now
	if err != nil {
		run.Status = models.RunStatusFailed
		run.Error = err.Error()
	} else {
		run.Status = models.RunStatusComplete
		run.RuleIDs = result.RuleIDs
		run.Theta = result.Theta
		run.MaxLogPosterior = result.MaxLogPosterior
	}
	h.putRun(&run)
	h.persistRun(context.Background(), &run)
}

func (h *APIHandler) handleGetRun(c *gin.Context) {
	id := c.Param("id")
	if run := h.getRun(id); run != nil {
		c.JSON(http.StatusOK, run)
		return
	}
	if h.dbStore != nil {
		run, err := h.dbStore.GetRun(c.Request.Context(), id)
		if err == nil {
			c.JSON(http.StatusOK, run)
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
}

func (h *APIHandler) handleListRuns(c *gin.Context) {
	if h.dbStore == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "database not connected"})
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	runs, totalCount, err := h.dbStore.ListRuns(c.Request.Context(), page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list runs", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": runs, "totalCount": totalCount, "page": page, "limit": limit})
}

func (h *APIHandler) putRun(run *models.TrainRun) {
	h.mu.Lock()
	defer h.mu.Unlock()
	cp := *run
	h.runs[run.ID] = &cp
}

func (h *APIHandler) getRun(id string) *models.TrainRun {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.runs[id]
}

func (h *APIHandler) persistRun(ctx context.Context, run *models.TrainRun) {
	if h.dbStore == nil {
		return
	}
	if err := h.dbStore.SaveRun(ctx, run); err != nil {
		log.Printf("failed to persist run %s: %v", run.ID, err)
	}
}

func mustMarshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}
