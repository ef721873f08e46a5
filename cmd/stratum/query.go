package stratum

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	stratumlib "github.com/quarrylabs/stratum"
	"github.com/quarrylabs/stratum/pkg/config"
	"github.com/quarrylabs/stratum/pkg/types"
)

var queryCmd = &cobra.Command{
	Use:   "query [query text]",
	Short: "Run a one-off filtered retrieval",
	Long: `Run a single filtered-retrieval query against the configured stores
and print the result as JSON. Useful for smoke-testing a deployment
without going through the HTTP server.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runQuery,
}

var (
	queryTenant      string
	queryFilterJSON  string
	queryTopK        int
	queryChunkTopK   int
	queryMode        string
	queryRerank      bool
	queryIncludeRefs bool
)

func init() {
	rootCmd.AddCommand(queryCmd)

	queryCmd.Flags().StringVar(&queryTenant, "tenant", "default", "Tenant key to query")
	queryCmd.Flags().StringVar(&queryFilterJSON, "filter", "", `Filter as JSON, e.g. '{"entity_type":["equipment"]}'`)
	queryCmd.Flags().IntVar(&queryTopK, "top-k", 0, "General result limit")
	queryCmd.Flags().IntVar(&queryChunkTopK, "chunk-top-k", 0, "Chunk result limit (takes precedence)")
	queryCmd.Flags().StringVar(&queryMode, "mode", "", "Query mode (local, global, hybrid, naive, mix)")
	queryCmd.Flags().BoolVar(&queryRerank, "rerank", false, "Enable reranking")
	queryCmd.Flags().BoolVar(&queryIncludeRefs, "include-references", false, "Include source file paths")
}

func runQuery(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	queryText := ""
	if len(args) > 0 {
		queryText = args[0]
	}

	var rawFilter map[string][]string
	if queryFilterJSON != "" {
		if err := json.Unmarshal([]byte(queryFilterJSON), &rawFilter); err != nil {
			return fmt.Errorf("invalid filter JSON: %w", err)
		}
	}
	filter, err := types.ParseFilter(rawFilter)
	if err != nil {
		return fmt.Errorf("invalid filter: %w", err)
	}
	mode, err := types.ParseQueryMode(queryMode)
	if err != nil {
		return err
	}

	log, err := buildLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}

	graph, chunks, closeStores, err := buildStores(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize stores: %w", err)
	}
	defer closeStores()

	pool, err := buildPool(cfg, graph, chunks, log)
	if err != nil {
		return fmt.Errorf("failed to initialize engine pool: %w", err)
	}

	ctx := context.WithValue(cmd.Context(), types.ContextKeyRequestSource, "cli")
	ctx = context.WithValue(ctx, types.ContextKeyTenant, queryTenant)

	engine, err := pool.GetOrCreate(ctx, queryTenant)
	if err != nil {
		return err
	}

	result, err := engine.FilterData(ctx, stratumlib.FilterQuery{
		Query:             queryText,
		Filter:            filter,
		TopK:              queryTopK,
		ChunkTopK:         queryChunkTopK,
		Mode:              mode,
		IncludeReferences: queryIncludeRefs,
		EnableRerank:      queryRerank,
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
