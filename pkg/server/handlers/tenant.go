package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/quarrylabs/stratum"
	"github.com/quarrylabs/stratum/pkg/registry"
	"github.com/quarrylabs/stratum/pkg/server/dto"
)

// TenantHandler handles tenant catalog requests
type TenantHandler struct {
	registry *registry.Registry
	pool     *stratum.Pool
	logger   *slog.Logger
}

// NewTenantHandler creates a new tenant handler
func NewTenantHandler(reg *registry.Registry, pool *stratum.Pool, logger *slog.Logger) *TenantHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TenantHandler{registry: reg, pool: pool, logger: logger}
}

// Create handles POST /api/v1/tenants
func (h *TenantHandler) Create(c *gin.Context) {
	var req dto.CreateTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("invalid request body", err.Error()))
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("invalid request", err.Error()))
		return
	}

	md, err := h.registry.Create(req.Name, req.Description, req.TenantID)
	if err != nil {
		if errors.Is(err, registry.ErrTenantExists) {
			c.JSON(http.StatusConflict, dto.NewErrorResponse("tenant already exists", err.Error()))
			return
		}
		h.logger.Error("tenant creation failed", "name", req.Name, "error", err)
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse("tenant creation failed", err.Error()))
		return
	}

	c.JSON(http.StatusCreated, gin.H{"status": "success", "tenant": h.toDTO(md)})
}

// List handles GET /api/v1/tenants
func (h *TenantHandler) List(c *gin.Context) {
	tenants := h.registry.List()
	out := make([]dto.Tenant, len(tenants))
	for i, md := range tenants {
		out[i] = h.toDTO(md)
	}
	c.JSON(http.StatusOK, dto.TenantListResponse{Status: "success", Tenants: out})
}

// Get handles GET /api/v1/tenants/:tenant
func (h *TenantHandler) Get(c *gin.Context) {
	md, err := h.registry.Get(c.Param("tenant"))
	if err != nil {
		c.JSON(http.StatusNotFound, dto.NewErrorResponse("tenant not found", err.Error()))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "tenant": h.toDTO(md)})
}

// Delete handles DELETE /api/v1/tenants/:tenant. The cached engine, if
// any, is evicted along with the registration.
func (h *TenantHandler) Delete(c *gin.Context) {
	id := c.Param("tenant")
	if err := h.registry.Delete(id); err != nil {
		if errors.Is(err, registry.ErrTenantUnknown) {
			c.JSON(http.StatusNotFound, dto.NewErrorResponse("tenant not found", err.Error()))
			return
		}
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("tenant deletion refused", err.Error()))
		return
	}
	if h.pool != nil {
		h.pool.Evict(id)
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "deleted": id})
}

// SetDefault handles PUT /api/v1/tenants/:tenant/default
func (h *TenantHandler) SetDefault(c *gin.Context) {
	id := c.Param("tenant")
	if err := h.registry.SetDefault(id); err != nil {
		c.JSON(http.StatusNotFound, dto.NewErrorResponse("tenant not found", err.Error()))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "default": id})
}

func (h *TenantHandler) toDTO(md *registry.TenantMetadata) dto.Tenant {
	isDefault := false
	if def, err := h.registry.Default(); err == nil {
		isDefault = def.ID == md.ID
	}
	return dto.Tenant{
		ID:            md.ID,
		Name:          md.Name,
		Description:   md.Description,
		CreatedAt:     md.CreatedAt,
		UpdatedAt:     md.UpdatedAt,
		DocumentCount: md.DocumentCount,
		EntityCount:   md.EntityCount,
		ChunkCount:    md.ChunkCount,
		IsDefault:     isDefault,
	}
}
