package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	// Log configuration
	Log LogConfig `mapstructure:"log"`

	// Server configuration
	Server ServerConfig `mapstructure:"server"`

	// Storage configuration
	Storage StorageConfig `mapstructure:"storage"`

	// Registry configuration
	Registry RegistryConfig `mapstructure:"registry"`

	// Embedding configuration
	Embedding EmbeddingConfig `mapstructure:"embedding"`

	// Reranker configuration
	Reranker RerankerConfig `mapstructure:"reranker"`

	// Retrieval configuration
	Retrieval RetrievalConfig `mapstructure:"retrieval"`

	// Telemetry configuration
	Telemetry TelemetryConfig `mapstructure:"telemetry"`

	// Alert configuration
	Alert AlertConfig `mapstructure:"alert"`

	// CircuitBreaker configuration
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

// AlertConfig holds configuration for alerting
type AlertConfig struct {
	Enabled  bool     `mapstructure:"enabled"`
	SMTPHost string   `mapstructure:"smtp_host"`
	SMTPPort int      `mapstructure:"smtp_port"`
	Username string   `mapstructure:"username"`
	Password string   `mapstructure:"password"`
	From     string   `mapstructure:"from"`
	To       []string `mapstructure:"to"`
}

// CircuitBreakerConfig holds configuration for circuit breaking
type CircuitBreakerConfig struct {
	Enabled          bool    `mapstructure:"enabled"`
	MaxRequests      uint32  `mapstructure:"max_requests"`
	Interval         int     `mapstructure:"interval"` // in seconds
	Timeout          int     `mapstructure:"timeout"`  // in seconds
	ReadyToTripRatio float64 `mapstructure:"ready_to_trip_ratio"`
}

// TelemetryConfig holds telemetry configuration
type TelemetryConfig struct {
	ParquetPath string `mapstructure:"parquet_path"`
	// SQLDSN enables mirroring error logs to a MySQL-compatible
	// database when set.
	SQLDSN  string `mapstructure:"sql_dsn"`
	Metrics bool   `mapstructure:"metrics"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // gin mode: debug, release, test
}

// StorageConfig holds storage configuration for the graph and chunk stores
type StorageConfig struct {
	// GraphDriver selects the entity store: memory, neo4j
	GraphDriver string `mapstructure:"graph_driver"`
	URI         string `mapstructure:"uri"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	Database    string `mapstructure:"database"`

	// ChunkDriver selects the chunk store: memory, badger
	ChunkDriver string `mapstructure:"chunk_driver"`
	ChunkPath   string `mapstructure:"chunk_path"`
}

// RegistryConfig holds tenant registry configuration
type RegistryConfig struct {
	BaseDir string `mapstructure:"base_dir"`
}

// EmbeddingConfig holds embedding configuration
type EmbeddingConfig struct {
	Provider string `mapstructure:"provider"` // openai, embedeverything, none
	Model    string `mapstructure:"model"`
	APIKey   string `mapstructure:"api_key"`
	BaseURL  string `mapstructure:"base_url"`
}

// RerankerConfig holds reranker configuration
type RerankerConfig struct {
	Provider string `mapstructure:"provider"` // llm, embedding, none
	Model    string `mapstructure:"model"`
	APIKey   string `mapstructure:"api_key"`
	BaseURL  string `mapstructure:"base_url"`
}

// RetrievalConfig holds defaults for the filtered-retrieval pipeline
type RetrievalConfig struct {
	// DefaultTopK applies when a request sets neither chunk_top_k nor top_k
	DefaultTopK int `mapstructure:"default_top_k"`
}

// Load loads configuration from file and environment variables
func Load() (*Config, error) {
	// Set defaults
	setDefaults()

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Override with environment variables if present
	overrideWithEnv(config)

	return config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Log defaults
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")

	// Server defaults
	viper.SetDefault("server.host", "localhost")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.mode", "debug")

	// Storage defaults
	viper.SetDefault("storage.graph_driver", "memory")
	viper.SetDefault("storage.uri", "bolt://localhost:7687")
	viper.SetDefault("storage.username", "")
	viper.SetDefault("storage.password", "")
	viper.SetDefault("storage.database", "")
	viper.SetDefault("storage.chunk_driver", "memory")
	viper.SetDefault("storage.chunk_path", "./stratum_chunks")

	// Embedding defaults
	viper.SetDefault("embedding.provider", "embedeverything")
	viper.SetDefault("embedding.model", "all-MiniLM-L6-v2")

	// Reranker defaults
	viper.SetDefault("reranker.provider", "none")
	viper.SetDefault("reranker.model", "gpt-4o-mini")

	// Retrieval defaults
	viper.SetDefault("retrieval.default_top_k", 10)

	// Circuit breaker defaults
	viper.SetDefault("circuit_breaker.enabled", true)
	viper.SetDefault("circuit_breaker.max_requests", 3)
	viper.SetDefault("circuit_breaker.interval", 60)
	viper.SetDefault("circuit_breaker.timeout", 30)
	viper.SetDefault("circuit_breaker.ready_to_trip_ratio", 0.6)

	// Registry and telemetry defaults
	home, err := os.UserHomeDir()
	if err == nil {
		viper.SetDefault("registry.base_dir", fmt.Sprintf("%s/.stratum/tenants", home))
		viper.SetDefault("telemetry.parquet_path", fmt.Sprintf("%s/.stratum/telemetry", home))
	}
	viper.SetDefault("telemetry.metrics", true)
}

// overrideWithEnv overrides config with environment variables
func overrideWithEnv(config *Config) {
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		if config.Embedding.APIKey == "" {
			config.Embedding.APIKey = apiKey
		}
		if config.Reranker.APIKey == "" {
			config.Reranker.APIKey = apiKey
		}
	}

	// Graph store credentials
	if uri := os.Getenv("NEO4J_URI"); uri != "" {
		config.Storage.URI = uri
	}
	if user := os.Getenv("NEO4J_USER"); user != "" {
		config.Storage.Username = user
	}
	if pass := os.Getenv("NEO4J_PASSWORD"); pass != "" {
		config.Storage.Password = pass
	}

	// Generic storage settings
	if driver := os.Getenv("GRAPH_DRIVER"); driver != "" {
		config.Storage.GraphDriver = driver
	}
	if driver := os.Getenv("CHUNK_DRIVER"); driver != "" {
		config.Storage.ChunkDriver = driver
	}
	if path := os.Getenv("CHUNK_PATH"); path != "" {
		config.Storage.ChunkPath = path
	}

	// Server settings
	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		viper.Set("server.port", port)
	}

	// Registry and telemetry settings
	if dir := os.Getenv("TENANT_REGISTRY_DIR"); dir != "" {
		config.Registry.BaseDir = dir
	}
	if path := os.Getenv("TELEMETRY_PARQUET_PATH"); path != "" {
		config.Telemetry.ParquetPath = path
	}
	if dsn := os.Getenv("TELEMETRY_SQL_DSN"); dsn != "" {
		config.Telemetry.SQLDSN = dsn
	}
}
