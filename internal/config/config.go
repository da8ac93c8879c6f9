// Package config provides application configuration with multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (DIALTOOLS_ prefix)
//  2. Config file (~/.dialtools/config.yaml)
//  3. Default values
//
// Error Handling:
//   - Sentinel errors support errors.Is() checks at call sites
//   - Wrapped with fmt.Errorf("%w: details", ErrXxx) for context
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

var (
	// ErrMissingEndpoint indicates the DIAL endpoint is not configured.
	ErrMissingEndpoint = errors.New("missing DIAL endpoint")

	// ErrInvalidChunkSize indicates the RAG chunk size is out of range.
	ErrInvalidChunkSize = errors.New("invalid chunk size")

	// ErrInvalidChunkOverlap indicates the overlap is negative or not
	// smaller than the chunk size.
	ErrInvalidChunkOverlap = errors.New("invalid chunk overlap")

	// ErrInvalidTopK indicates the retrieval top-k is not positive.
	ErrInvalidTopK = errors.New("invalid top k")

	// ErrInvalidDimension indicates the embedding dimension is not positive.
	ErrInvalidDimension = errors.New("invalid embedding dimension")
)

const (
	// DefaultAPIVersion is the DIAL REST API version sent with every request.
	DefaultAPIVersion = "2025-01-01-preview"

	// DefaultChatDeployment answers RAG follow-up completions.
	DefaultChatDeployment = "gpt-4o"

	// DefaultEmbeddingsDeployment computes chunk and query embeddings.
	DefaultEmbeddingsDeployment = "text-embedding-3-small"

	// DefaultEmbeddingDimension matches the default embeddings deployment.
	DefaultEmbeddingDimension = 384

	// DefaultChunkSize is the target chunk length in characters.
	DefaultChunkSize = 500

	// DefaultChunkOverlap is the character overlap between adjacent chunks.
	DefaultChunkOverlap = 50

	// DefaultTopK is the number of nearest chunks fed into the prompt.
	DefaultTopK = 3
)

// DIAL holds connection settings for the DIAL API.
type DIAL struct {
	Endpoint   string `mapstructure:"endpoint"`
	APIVersion string `mapstructure:"api_version"`
}

// Interpreter configures the code-execution tool's MCP server.
type Interpreter struct {
	ServerURL string `mapstructure:"server_url"`
	ToolName  string `mapstructure:"tool_name"`
}

// RAG configures the retrieval pipeline.
type RAG struct {
	ChatDeployment       string `mapstructure:"chat_deployment"`
	EmbeddingsDeployment string `mapstructure:"embeddings_deployment"`
	EmbeddingDimension   int    `mapstructure:"embedding_dimension"`
	ChunkSize            int    `mapstructure:"chunk_size"`
	ChunkOverlap         int    `mapstructure:"chunk_overlap"`
	TopK                 int    `mapstructure:"top_k"`
	CacheCapacity        int    `mapstructure:"cache_capacity"`
}

// MCPServer describes one external tool server to expose tools from.
type MCPServer struct {
	Name string `mapstructure:"name"`
	URL  string `mapstructure:"url"`
}

// Config is the root application configuration.
type Config struct {
	DIAL        DIAL        `mapstructure:"dial"`
	RAG         RAG         `mapstructure:"rag"`
	Interpreter Interpreter `mapstructure:"interpreter"`
	MCPServers  []MCPServer `mapstructure:"mcp_servers"`
	LogLevel    string      `mapstructure:"log_level"`
}

// Load reads configuration from defaults, optional config file, and
// environment variables, in ascending priority.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("DIALTOOLS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if dir, err := configDir(); err == nil {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(dir)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
			// Missing file is fine; defaults and env apply.
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks ranges and required fields.
func (c *Config) Validate() error {
	if c.DIAL.Endpoint == "" {
		return fmt.Errorf("%w: set dial.endpoint or DIALTOOLS_DIAL_ENDPOINT", ErrMissingEndpoint)
	}
	if c.RAG.ChunkSize <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidChunkSize, c.RAG.ChunkSize)
	}
	if c.RAG.ChunkOverlap < 0 || c.RAG.ChunkOverlap >= c.RAG.ChunkSize {
		return fmt.Errorf("%w: %d (chunk size %d)", ErrInvalidChunkOverlap, c.RAG.ChunkOverlap, c.RAG.ChunkSize)
	}
	if c.RAG.TopK <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidTopK, c.RAG.TopK)
	}
	if c.RAG.EmbeddingDimension <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidDimension, c.RAG.EmbeddingDimension)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	// Register every key so AutomaticEnv overrides reach Unmarshal;
	// viper only binds env vars for keys it already knows about.
	v.SetDefault("dial.endpoint", "")
	v.SetDefault("dial.api_version", DefaultAPIVersion)
	v.SetDefault("rag.chat_deployment", DefaultChatDeployment)
	v.SetDefault("rag.embeddings_deployment", DefaultEmbeddingsDeployment)
	v.SetDefault("rag.embedding_dimension", DefaultEmbeddingDimension)
	v.SetDefault("rag.chunk_size", DefaultChunkSize)
	v.SetDefault("rag.chunk_overlap", DefaultChunkOverlap)
	v.SetDefault("rag.top_k", DefaultTopK)
	v.SetDefault("rag.cache_capacity", 0) // 0 = unbounded
	v.SetDefault("interpreter.server_url", "")
	v.SetDefault("interpreter.tool_name", "execute_python")
	v.SetDefault("log_level", "info")
}

// configDir returns ~/.dialtools, creating it is the caller's concern.
func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, ".dialtools"), nil
}
