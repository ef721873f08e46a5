package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/quarrylabs/stratum"
	"github.com/quarrylabs/stratum/pkg/config"
	"github.com/quarrylabs/stratum/pkg/registry"
	"github.com/quarrylabs/stratum/pkg/server/dto"
	"github.com/quarrylabs/stratum/pkg/store"
	"github.com/quarrylabs/stratum/pkg/types"
)

func testServer(t *testing.T) *Server {
	t.Helper()

	mem := store.NewMemoryStore()
	err := mem.Ingest(context.Background(), "plant_a", true,
		[]types.EntityRecord{
			{ID: "ent-1", Name: "Gas Turbine", Type: "equipment", ChunkIDs: []string{"c1", "c2"}},
			{ID: "ent-2", Name: "Bearing", Type: "component", ChunkIDs: []string{"c2"}},
		},
		[]types.ChunkRecord{
			{ID: "c1", Content: "turbine startup sequence"},
			{ID: "c2", Content: "bearing vibration readings"},
		})
	if err != nil {
		t.Fatalf("seeding store: %v", err)
	}

	pool := stratum.NewPool(stratum.FactoryFunc(func(ctx context.Context, tenantKey string) (*stratum.Engine, error) {
		return stratum.NewEngine(tenantKey, mem, mem, nil)
	}), nil)

	reg, err := registry.New(t.TempDir())
	if err != nil {
		t.Fatalf("opening registry: %v", err)
	}

	cfg := &config.Config{
		Server: config.ServerConfig{
			Host: "localhost",
			Port: 8080,
			Mode: "test",
		},
	}

	srv := New(cfg, pool, reg, mem, mem, nil)
	srv.Setup()
	return srv
}

func TestSetup(t *testing.T) {
	srv := testServer(t)

	if srv.router == nil {
		t.Error("expected router to be initialized")
	}
	if srv.server == nil {
		t.Error("expected http.Server to be initialized")
	}
	if srv.server.Addr != "localhost:8080" {
		t.Errorf("expected addr localhost:8080, got %s", srv.server.Addr)
	}
}

func TestHealthEndpoints(t *testing.T) {
	srv := testServer(t)

	for _, path := range []string{"/health", "/healthcheck", "/ready", "/live", "/health/detailed"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		srv.router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("%s: expected status 200, got %d", path, w.Code)
		}
	}
}

func postFilterData(t *testing.T, srv *Server, path string, req dto.FilterDataRequest) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshaling request: %v", err)
	}
	httpReq := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	httpReq.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, httpReq)
	return w
}

func TestFilterDataEndpoint(t *testing.T) {
	srv := testServer(t)

	w := postFilterData(t, srv, "/filter_data", dto.FilterDataRequest{
		TenantKey:    "plant_a",
		FilterConfig: map[string][]string{"entity_type": {"equipment"}},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp dto.QueryResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Status != "success" {
		t.Errorf("expected status success, got %q", resp.Status)
	}
	if len(resp.Chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(resp.Chunks))
	}
	if resp.Chunks[0].ChunkID != "c1" || resp.Chunks[0].Rank != 1 {
		t.Errorf("unexpected first chunk: %+v", resp.Chunks[0])
	}
	if resp.Metadata.EntitiesAfterFilter != 1 {
		t.Errorf("expected 1 entity after filter, got %d", resp.Metadata.EntitiesAfterFilter)
	}
}

func TestFilterDataEndpointV1Route(t *testing.T) {
	srv := testServer(t)

	w := postFilterData(t, srv, "/api/v1/query/filter", dto.FilterDataRequest{TenantKey: "plant_a"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestFilterDataValidation(t *testing.T) {
	srv := testServer(t)

	tests := []struct {
		name string
		req  dto.FilterDataRequest
	}{
		{"missing tenant key", dto.FilterDataRequest{Query: "x"}},
		{"unknown filter key", dto.FilterDataRequest{
			TenantKey:    "plant_a",
			FilterConfig: map[string][]string{"entity_color": {"red"}},
		}},
		{"unknown mode", dto.FilterDataRequest{TenantKey: "plant_a", Mode: "turbo"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postFilterData(t, srv, "/filter_data", tt.req)
			if w.Code != http.StatusBadRequest {
				t.Errorf("expected status 400, got %d: %s", w.Code, w.Body.String())
			}

			var resp dto.ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decoding error response: %v", err)
			}
			if resp.Status != "error" {
				t.Errorf("expected status error, got %q", resp.Status)
			}
		})
	}
}

func TestTenantEndpoints(t *testing.T) {
	srv := testServer(t)

	body, _ := json.Marshal(dto.CreateTenantRequest{Name: "Plant B Turbines"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tenants", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/tenants", nil)
	w = httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var list dto.TenantListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("decoding tenant list: %v", err)
	}
	// The registry auto-creates a default tenant.
	if len(list.Tenants) != 2 {
		t.Errorf("expected 2 tenants, got %d", len(list.Tenants))
	}
}

func TestTenantNotFound(t *testing.T) {
	srv := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tenants/no-such-tenant", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", w.Code)
	}
}

func TestPoolStatsEndpoint(t *testing.T) {
	srv := testServer(t)

	// Populate the pool through a query first.
	postFilterData(t, srv, "/filter_data", dto.FilterDataRequest{TenantKey: "plant_a"})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/pool/stats", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var stats dto.PoolStatsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decoding pool stats: %v", err)
	}
	if stats.Count != 1 || len(stats.Keys) != 1 || stats.Keys[0] != "plant_a" {
		t.Errorf("unexpected pool stats: %+v", stats)
	}
}

func TestCORSPreflight(t *testing.T) {
	srv := testServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/filter_data", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Errorf("expected status 204, got %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("expected CORS headers on preflight response")
	}
}
