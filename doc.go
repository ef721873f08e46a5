// Package stratum provides a multi-tenant retrieval layer for Go.
//
// Each tenant owns an isolated knowledge corpus of entities and text
// chunks. Stratum serves filtered-retrieval queries against one
// tenant's corpus at a time: a boolean filter narrows the entity set,
// the associated chunks are resolved and scored against the query, and
// the result comes back deterministically ordered with metadata about
// what ran.
//
// # Basic Usage
//
// Engines are built per tenant and cached in a Pool, which guarantees a
// single construction per tenant no matter how many requests race on a
// cold key:
//
//	memStore := store.NewMemoryStore()
//	factory := stratum.FactoryFunc(func(ctx context.Context, tenantKey string) (*stratum.Engine, error) {
//		return stratum.NewEngine(tenantKey, memStore, memStore, &stratum.EngineOptions{
//			Embedder: embedClient,
//		})
//	})
//	pool := stratum.NewPool(factory, slog.Default())
//
//	engine, err := pool.GetOrCreate(ctx, "plant_a")
//	if err != nil {
//		log.Fatal(err)
//	}
//
// # Filtered Retrieval
//
// A filter ANDs across keys and ORs within one key's values:
//
//	filter, _ := types.ParseFilter(map[string][]string{
//		"entity_type":  {"equipment"},
//		"has_property": {"criticality"},
//	})
//	result, err := engine.FilterData(ctx, stratum.FilterQuery{
//		Query:        "bearing vibration",
//		Filter:       filter,
//		ChunkTopK:    5,
//		EnableRerank: true,
//	})
//
// Zero results is a successful outcome, reported with an explanatory
// message. Embedding and reranking are optional collaborators: when
// they are absent or failing, retrieval degrades to filter matching and
// records the degradation in result metadata instead of erroring.
package stratum
