package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/db"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"

	"github.com/quarrylabs/stratum/pkg/types"
)

// Neo4jGraphStore implements GraphStore against a Neo4j database.
// Entities are nodes labeled :Entity, scoped by a tenant_key property.
type Neo4jGraphStore struct {
	client   neo4j.DriverWithContext
	database string
}

// NewNeo4jGraphStore connects to Neo4j with basic auth. An empty
// database name selects the server default "neo4j".
func NewNeo4jGraphStore(uri, username, password, database string) (*Neo4jGraphStore, error) {
	client, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}

	if database == "" {
		database = "neo4j"
	}

	return &Neo4jGraphStore{
		client:   client,
		database: database,
	}, nil
}

// ListEntities implements GraphStore. Results are ordered by entity id
// so repeated calls over unchanged data are deterministic.
func (n *Neo4jGraphStore) ListEntities(ctx context.Context, tenantKey string) ([]types.EntityRecord, error) {
	key, err := types.NormalizeTenantKey(tenantKey)
	if err != nil {
		return nil, err
	}

	session := n.client.NewSession(ctx, neo4j.SessionConfig{DatabaseName: n.database})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := `
			MATCH (e:Entity {tenant_key: $tenantKey})
			RETURN e
			ORDER BY e.id
		`
		res, err := tx.Run(ctx, query, map[string]any{
			"tenantKey": key,
		})
		if err != nil {
			return nil, err
		}

		return res.Collect(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list entities for tenant %q: %w", key, err)
	}

	records := result.([]*db.Record)
	entities := make([]types.EntityRecord, 0, len(records))
	for _, record := range records {
		value, found := record.Get("e")
		if !found {
			continue
		}
		node, ok := value.(dbtype.Node)
		if !ok {
			return nil, fmt.Errorf("unexpected type for entity node: got %T, expected dbtype.Node", value)
		}
		entities = append(entities, entityFromDBNode(node))
	}

	return entities, nil
}

// UpsertEntities writes entity records under the tenant, merging on
// entity id.
func (n *Neo4jGraphStore) UpsertEntities(ctx context.Context, tenantKey string, entities []types.EntityRecord) error {
	key, err := types.NormalizeTenantKey(tenantKey)
	if err != nil {
		return err
	}
	if len(entities) == 0 {
		return nil
	}

	rows := make([]map[string]any, 0, len(entities))
	for _, e := range entities {
		props := "{}"
		if len(e.Properties) > 0 {
			data, err := json.Marshal(e.Properties)
			if err != nil {
				return fmt.Errorf("failed to marshal properties for entity %q: %w", e.ID, err)
			}
			props = string(data)
		}
		rows = append(rows, map[string]any{
			"id":         e.ID,
			"name":       e.Name,
			"type":       e.Type,
			"properties": props,
			"chunk_ids":  e.ChunkIDs,
		})
	}

	session := n.client.NewSession(ctx, neo4j.SessionConfig{DatabaseName: n.database})
	defer session.Close(ctx)

	_, err = session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := `
			UNWIND $rows AS row
			MERGE (e:Entity {id: row.id, tenant_key: $tenantKey})
			SET e.name = row.name,
			    e.type = row.type,
			    e.properties = row.properties,
			    e.chunk_ids = row.chunk_ids
		`
		_, err := tx.Run(ctx, query, map[string]any{
			"rows":      rows,
			"tenantKey": key,
		})
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("failed to upsert entities for tenant %q: %w", key, err)
	}
	return nil
}

// DeleteTenant removes every entity stored under the tenant.
func (n *Neo4jGraphStore) DeleteTenant(ctx context.Context, tenantKey string) error {
	key, err := types.NormalizeTenantKey(tenantKey)
	if err != nil {
		return err
	}

	session := n.client.NewSession(ctx, neo4j.SessionConfig{DatabaseName: n.database})
	defer session.Close(ctx)

	_, err = session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := `
			MATCH (e:Entity {tenant_key: $tenantKey})
			DETACH DELETE e
		`
		_, err := tx.Run(ctx, query, map[string]any{
			"tenantKey": key,
		})
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("failed to delete tenant %q: %w", key, err)
	}
	return nil
}

// CreateIndices creates the index backing tenant-scoped entity lookups.
func (n *Neo4jGraphStore) CreateIndices(ctx context.Context) error {
	session := n.client.NewSession(ctx, neo4j.SessionConfig{DatabaseName: n.database})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := `
			CREATE INDEX entity_tenant_id IF NOT EXISTS
			FOR (e:Entity) ON (e.tenant_key, e.id)
		`
		_, err := tx.Run(ctx, query, nil)
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("failed to create indices: %w", err)
	}
	return nil
}

// Close shuts down the underlying driver.
func (n *Neo4jGraphStore) Close(ctx context.Context) error {
	return n.client.Close(ctx)
}

func entityFromDBNode(node dbtype.Node) types.EntityRecord {
	e := types.EntityRecord{}

	if v, ok := node.Props["id"].(string); ok {
		e.ID = v
	}
	if v, ok := node.Props["name"].(string); ok {
		e.Name = v
	}
	if v, ok := node.Props["type"].(string); ok {
		e.Type = v
	}
	if v, ok := node.Props["properties"].(string); ok && v != "" && v != "{}" {
		props := map[string]string{}
		if err := json.Unmarshal([]byte(v), &props); err == nil {
			e.Properties = props
		}
	}
	if raw, ok := node.Props["chunk_ids"].([]any); ok {
		ids := make([]string, 0, len(raw))
		for _, item := range raw {
			if s, ok := item.(string); ok {
				ids = append(ids, s)
			}
		}
		e.ChunkIDs = ids
	}

	return e
}

var _ GraphStore = (*Neo4jGraphStore)(nil)
