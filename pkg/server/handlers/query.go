// Package handlers implements the HTTP handlers of the stratum API.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/quarrylabs/stratum"
	"github.com/quarrylabs/stratum/pkg/server/dto"
	"github.com/quarrylabs/stratum/pkg/types"
)

// QueryHandler handles filtered-retrieval requests
type QueryHandler struct {
	pool   *stratum.Pool
	logger *slog.Logger
}

// NewQueryHandler creates a new query handler
func NewQueryHandler(pool *stratum.Pool, logger *slog.Logger) *QueryHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &QueryHandler{pool: pool, logger: logger}
}

// FilterData handles POST /filter_data and POST /api/v1/query/filter
func (h *QueryHandler) FilterData(c *gin.Context) {
	var req dto.FilterDataRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("invalid request body", err.Error()))
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("invalid request", err.Error()))
		return
	}

	// Validate filter and mode before any I/O.
	filter, err := types.ParseFilter(req.FilterConfig)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("invalid filter", err.Error()))
		return
	}
	mode, err := types.ParseQueryMode(req.Mode)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("invalid mode", err.Error()))
		return
	}

	ctx := c.Request.Context()

	engine, err := h.pool.GetOrCreate(ctx, req.TenantKey)
	if err != nil {
		status := http.StatusInternalServerError
		message := "engine construction failed"
		if errors.Is(err, stratum.ErrInvalidTenantKey) {
			status = http.StatusBadRequest
			message = "invalid tenant key"
		}
		h.logger.Error("engine lookup failed", "tenant", req.TenantKey, "error", err)
		c.JSON(status, dto.NewErrorResponse(message, err.Error()))
		return
	}

	result, err := engine.FilterData(ctx, stratum.FilterQuery{
		Query:             req.Query,
		Filter:            filter,
		ChunkTopK:         req.ChunkTopK,
		TopK:              req.TopK,
		Mode:              mode,
		OnlyNeedContext:   req.OnlyNeedContext,
		IncludeReferences: req.IncludeReferences,
		EnableRerank:      req.EnableRerank,
	})
	if err != nil {
		status := http.StatusInternalServerError
		message := "retrieval failed"
		if errors.Is(err, stratum.ErrStorageUnavailable) {
			status = http.StatusServiceUnavailable
			message = "storage unavailable"
		}
		h.logger.Error("retrieval failed", "tenant", req.TenantKey, "error", err)
		c.JSON(status, dto.NewErrorResponse(message, err.Error()))
		return
	}

	c.JSON(http.StatusOK, dto.FromQueryResult(result))
}

// PoolStats handles GET /api/v1/pool/stats
func (h *QueryHandler) PoolStats(c *gin.Context) {
	stats := h.pool.Stats()
	c.JSON(http.StatusOK, dto.PoolStatsResponse{
		Status: "success",
		Count:  stats.Count,
		Keys:   stats.Keys,
	})
}

// EvictTenant handles DELETE /api/v1/pool/:tenant
func (h *QueryHandler) EvictTenant(c *gin.Context) {
	tenant := c.Param("tenant")
	if h.pool.Evict(tenant) {
		c.JSON(http.StatusOK, gin.H{"status": "success", "evicted": tenant})
		return
	}
	c.JSON(http.StatusNotFound, dto.NewErrorResponse("tenant not cached", tenant))
}
