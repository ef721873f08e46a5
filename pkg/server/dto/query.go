package dto

import (
	"errors"
	"strings"
)

// Validation errors
var (
	ErrEmptyTenantKey   = errors.New("tenantKey cannot be empty")
	ErrTenantKeyTooLong = errors.New("tenantKey exceeds maximum length (256)")
	ErrQueryTooLong     = errors.New("query exceeds maximum length (64KB)")
	ErrTooManyFilters   = errors.New("filterConfig exceeds maximum key count (16)")
)

// Maximum field lengths to prevent abuse
const (
	MaxTenantKeyLength = 256
	MaxQueryLength     = 64 * 1024
	MaxFilterKeys      = 16
	MaxValuesPerFilter = 256
)

// FilterDataRequest is a filtered-retrieval call.
type FilterDataRequest struct {
	TenantKey         string              `json:"tenantKey"`
	Query             string              `json:"query"`
	FilterConfig      map[string][]string `json:"filterConfig,omitempty"`
	TopK              int                 `json:"topK,omitempty"`
	ChunkTopK         int                 `json:"chunkTopK,omitempty"`
	Mode              string              `json:"mode,omitempty"`
	OnlyNeedContext   bool                `json:"onlyNeedContext,omitempty"`
	IncludeReferences bool                `json:"includeReferences,omitempty"`
	EnableRerank      bool                `json:"enableRerank,omitempty"`
}

// Validate performs structural validation on FilterDataRequest. Filter
// key and mode validation happens downstream where the enumerations
// live.
func (r *FilterDataRequest) Validate() error {
	if strings.TrimSpace(r.TenantKey) == "" {
		return ErrEmptyTenantKey
	}
	if len(r.TenantKey) > MaxTenantKeyLength {
		return ErrTenantKeyTooLong
	}
	if len(r.Query) > MaxQueryLength {
		return ErrQueryTooLong
	}
	if len(r.FilterConfig) > MaxFilterKeys {
		return ErrTooManyFilters
	}
	for key, values := range r.FilterConfig {
		if len(values) > MaxValuesPerFilter {
			return errors.New("filterConfig values for " + key + " exceed maximum (256)")
		}
	}
	return nil
}
