package stratum

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	stratumlib "github.com/quarrylabs/stratum"
	"github.com/quarrylabs/stratum/pkg/alert"
	"github.com/quarrylabs/stratum/pkg/config"
	"github.com/quarrylabs/stratum/pkg/embedder"
	"github.com/quarrylabs/stratum/pkg/logger"
	"github.com/quarrylabs/stratum/pkg/registry"
	"github.com/quarrylabs/stratum/pkg/reranker"
	"github.com/quarrylabs/stratum/pkg/server"
	"github.com/quarrylabs/stratum/pkg/store"
	"github.com/quarrylabs/stratum/pkg/telemetry"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the Stratum HTTP server",
	Long: `Start the Stratum HTTP server to provide REST API access to the
filtered-retrieval layer.

The server provides endpoints for:
- Filtered retrieval (/filter_data, /api/v1/query/filter)
- Tenant catalog management
- Engine pool inspection
- Health checks and metrics

Configuration can be provided through config files, environment variables, or command-line flags.`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(serverCmd)

	// Server-specific flags
	serverCmd.Flags().String("host", "localhost", "Server host")
	serverCmd.Flags().Int("port", 8080, "Server port")
	serverCmd.Flags().String("mode", "debug", "Server mode (debug, release, test)")

	// Storage flags
	serverCmd.Flags().String("graph-driver", "memory", "Graph store driver (memory, neo4j)")
	serverCmd.Flags().String("graph-uri", "", "Graph store URI")
	serverCmd.Flags().String("graph-username", "", "Graph store username")
	serverCmd.Flags().String("graph-password", "", "Graph store password")
	serverCmd.Flags().String("graph-database", "", "Graph store database name")
	serverCmd.Flags().String("chunk-driver", "memory", "Chunk store driver (memory, badger)")
	serverCmd.Flags().String("chunk-path", "", "Chunk store path (badger)")

	// Embedding flags
	serverCmd.Flags().String("embedding-provider", "embedeverything", "Embedding provider (openai, embedeverything, none)")
	serverCmd.Flags().String("embedding-model", "", "Embedding model")
	serverCmd.Flags().String("embedding-api-key", "", "Embedding API key")
	serverCmd.Flags().String("embedding-base-url", "", "Embedding base URL")

	// Reranker flags
	serverCmd.Flags().String("reranker-provider", "none", "Reranker provider (llm, embedding, mock, none)")
	serverCmd.Flags().String("reranker-model", "", "Reranker model")
	serverCmd.Flags().String("reranker-api-key", "", "Reranker API key")
	serverCmd.Flags().String("reranker-base-url", "", "Reranker base URL")

	// Telemetry flags
	serverCmd.Flags().String("telemetry-parquet-path", "", "Path to directory for telemetry error logs")
	serverCmd.Flags().Bool("metrics", true, "Expose Prometheus metrics")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	overrideConfigWithFlags(cmd, cfg)

	if err := validateServerConfig(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
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

	reg, err := registry.New(cfg.Registry.BaseDir)
	if err != nil {
		return fmt.Errorf("failed to open tenant registry: %w", err)
	}

	srv := server.New(cfg, pool, reg, graph, chunks, log)
	srv.Setup()

	// Handle signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start server in a goroutine
	serverErrChan := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			serverErrChan <- err
		}
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-serverErrChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		log.Info("Received shutdown signal", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Stop(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		log.Info("Server stopped")
	}

	return nil
}

// buildLogger assembles the slog chain: colored stderr output, with
// warnings and errors mirrored to Parquet and optionally to SQL.
func buildLogger(cfg *config.Config) (*slog.Logger, error) {
	level := slog.LevelInfo
	switch cfg.Log.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var handler slog.Handler = logger.NewColorHandler(os.Stderr, &slog.HandlerOptions{Level: level})

	if cfg.Telemetry.ParquetPath != "" {
		parquetHandler, err := telemetry.NewParquetHandler(handler, cfg.Telemetry.ParquetPath)
		if err != nil {
			fmt.Printf("Warning: Failed to initialize error tracking: %v\n", err)
		} else {
			handler = parquetHandler
		}
	}

	if cfg.Telemetry.SQLDSN != "" {
		db, err := sql.Open("mysql", cfg.Telemetry.SQLDSN)
		if err != nil {
			fmt.Printf("Warning: Failed to open telemetry database: %v\n", err)
		} else if sqlHandler, err := telemetry.NewSQLHandler(handler, db); err != nil {
			fmt.Printf("Warning: Failed to initialize SQL telemetry: %v\n", err)
		} else {
			handler = sqlHandler
		}
	}

	log := slog.New(handler)
	slog.SetDefault(log)
	return log, nil
}

// buildStores constructs the graph and chunk stores from configuration.
// The returned closer shuts down whichever stores were opened.
func buildStores(cfg *config.Config) (store.GraphStore, store.ChunkStore, func(), error) {
	var (
		graph   store.GraphStore
		chunks  store.ChunkStore
		closers []func() error
	)

	switch cfg.Storage.GraphDriver {
	case "memory", "":
		mem := store.NewMemoryStore()
		graph = mem
		closers = append(closers, func() error { return mem.Close(context.Background()) })
		// A single memory store serves both roles unless the chunk
		// driver overrides it.
		if cfg.Storage.ChunkDriver == "memory" || cfg.Storage.ChunkDriver == "" {
			chunks = mem
		}
	case "neo4j":
		neo, err := store.NewNeo4jGraphStore(cfg.Storage.URI, cfg.Storage.Username, cfg.Storage.Password, cfg.Storage.Database)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("neo4j graph store: %w", err)
		}
		graph = neo
		closers = append(closers, func() error { return neo.Close(context.Background()) })
	default:
		return nil, nil, nil, fmt.Errorf("unsupported graph driver: %s", cfg.Storage.GraphDriver)
	}

	if chunks == nil {
		switch cfg.Storage.ChunkDriver {
		case "memory", "":
			mem := store.NewMemoryStore()
			chunks = mem
			closers = append(closers, func() error { return mem.Close(context.Background()) })
		case "badger":
			badger, err := store.NewBadgerChunkStore(cfg.Storage.ChunkPath)
			if err != nil {
				return nil, nil, nil, fmt.Errorf("badger chunk store: %w", err)
			}
			chunks = badger
			closers = append(closers, func() error { return badger.Close(context.Background()) })
		default:
			return nil, nil, nil, fmt.Errorf("unsupported chunk driver: %s", cfg.Storage.ChunkDriver)
		}
	}

	closeAll := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				slog.Warn("store close failed", "error", err)
			}
		}
	}
	return graph, chunks, closeAll, nil
}

// buildPool wires the model services and returns a pool whose factory
// binds every tenant engine to the shared stores.
func buildPool(cfg *config.Config, graph store.GraphStore, chunks store.ChunkStore, log *slog.Logger) (*stratumlib.Pool, error) {
	embedClient, err := embedder.New(cfg.Embedding)
	if err != nil {
		return nil, fmt.Errorf("embedder: %w", err)
	}
	if embedClient != nil && cfg.CircuitBreaker.Enabled {
		var alerter alert.Alerter = &alert.NoOpAlerter{}
		if cfg.Alert.Enabled {
			alerter = alert.NewEmailAlerter(cfg.Alert)
		}
		embedClient = embedder.WithCircuitBreaker(embedClient, cfg.CircuitBreaker, alerter, "embedder")
	}

	rerankClient, err := reranker.New(cfg.Reranker, embedClient)
	if err != nil {
		return nil, fmt.Errorf("reranker: %w", err)
	}

	factory := stratumlib.FactoryFunc(func(ctx context.Context, tenantKey string) (*stratumlib.Engine, error) {
		return stratumlib.NewEngine(tenantKey, graph, chunks, &stratumlib.EngineOptions{
			Embedder:    embedClient,
			Reranker:    rerankClient,
			Logger:      log,
			DefaultTopK: cfg.Retrieval.DefaultTopK,
		})
	})

	return stratumlib.NewPool(factory, log), nil
}

func overrideConfigWithFlags(cmd *cobra.Command, cfg *config.Config) {
	// Server flags
	if cmd.Flags().Changed("host") {
		cfg.Server.Host, _ = cmd.Flags().GetString("host")
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port, _ = cmd.Flags().GetInt("port")
	}
	if cmd.Flags().Changed("mode") {
		cfg.Server.Mode, _ = cmd.Flags().GetString("mode")
	}

	// Storage flags
	if cmd.Flags().Changed("graph-driver") {
		cfg.Storage.GraphDriver, _ = cmd.Flags().GetString("graph-driver")
	}
	if cmd.Flags().Changed("graph-uri") {
		cfg.Storage.URI, _ = cmd.Flags().GetString("graph-uri")
	}
	if cmd.Flags().Changed("graph-username") {
		cfg.Storage.Username, _ = cmd.Flags().GetString("graph-username")
	}
	if cmd.Flags().Changed("graph-password") {
		cfg.Storage.Password, _ = cmd.Flags().GetString("graph-password")
	}
	if cmd.Flags().Changed("graph-database") {
		cfg.Storage.Database, _ = cmd.Flags().GetString("graph-database")
	}
	if cmd.Flags().Changed("chunk-driver") {
		cfg.Storage.ChunkDriver, _ = cmd.Flags().GetString("chunk-driver")
	}
	if cmd.Flags().Changed("chunk-path") {
		cfg.Storage.ChunkPath, _ = cmd.Flags().GetString("chunk-path")
	}

	// Embedding flags
	if cmd.Flags().Changed("embedding-provider") {
		cfg.Embedding.Provider, _ = cmd.Flags().GetString("embedding-provider")
	}
	if cmd.Flags().Changed("embedding-model") {
		cfg.Embedding.Model, _ = cmd.Flags().GetString("embedding-model")
	}
	if cmd.Flags().Changed("embedding-api-key") {
		cfg.Embedding.APIKey, _ = cmd.Flags().GetString("embedding-api-key")
	}
	if cmd.Flags().Changed("embedding-base-url") {
		cfg.Embedding.BaseURL, _ = cmd.Flags().GetString("embedding-base-url")
	}

	// Reranker flags
	if cmd.Flags().Changed("reranker-provider") {
		cfg.Reranker.Provider, _ = cmd.Flags().GetString("reranker-provider")
	}
	if cmd.Flags().Changed("reranker-model") {
		cfg.Reranker.Model, _ = cmd.Flags().GetString("reranker-model")
	}
	if cmd.Flags().Changed("reranker-api-key") {
		cfg.Reranker.APIKey, _ = cmd.Flags().GetString("reranker-api-key")
	}
	if cmd.Flags().Changed("reranker-base-url") {
		cfg.Reranker.BaseURL, _ = cmd.Flags().GetString("reranker-base-url")
	}

	// Telemetry flags
	if cmd.Flags().Changed("telemetry-parquet-path") {
		cfg.Telemetry.ParquetPath, _ = cmd.Flags().GetString("telemetry-parquet-path")
	}
	if cmd.Flags().Changed("metrics") {
		cfg.Telemetry.Metrics, _ = cmd.Flags().GetBool("metrics")
	}
}

func validateServerConfig(cfg *config.Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", cfg.Server.Port)
	}
	if cfg.Storage.GraphDriver == "neo4j" && cfg.Storage.URI == "" {
		return fmt.Errorf("graph store URI is required for neo4j")
	}
	return nil
}
