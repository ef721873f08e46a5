package dto

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrEmptyTenantName = errors.New("name cannot be empty")
	ErrNameTooLong     = errors.New("name exceeds maximum length (1024)")
)

const MaxTenantNameLength = 1024

// CreateTenantRequest registers a new tenant.
type CreateTenantRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	// TenantID optionally pins the id; empty means derive one from
	// the name.
	TenantID string `json:"tenantId,omitempty"`
}

// Validate performs validation on CreateTenantRequest
func (r *CreateTenantRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrEmptyTenantName
	}
	if len(r.Name) > MaxTenantNameLength {
		return ErrNameTooLong
	}
	if len(r.TenantID) > MaxTenantKeyLength {
		return ErrTenantKeyTooLong
	}
	return nil
}

// Tenant is one registered tenant on the wire.
type Tenant struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
	DocumentCount int       `json:"documentCount"`
	EntityCount   int       `json:"entityCount"`
	ChunkCount    int       `json:"chunkCount"`
	IsDefault     bool      `json:"isDefault"`
}

// TenantListResponse wraps the tenant catalog.
type TenantListResponse struct {
	Status  string   `json:"status"`
	Tenants []Tenant `json:"tenants"`
}

// PoolStatsResponse reports the engine pool's cached tenants.
type PoolStatsResponse struct {
	Status string   `json:"status"`
	Count  int      `json:"count"`
	Keys   []string `json:"keys"`
}
