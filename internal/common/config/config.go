// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App       AppConfig               `mapstructure:"app"`
	Camunda   CamundaConfig           `mapstructure:"camunda"`
	Database  DatabaseConfig          `mapstructure:"database"`
	AI        AIConfig                `mapstructure:"ai"`
	Retrieval RetrievalConfig         `mapstructure:"retrieval"`
	Workers   map[string]WorkerConfig `mapstructure:"workers"`
	Logging   LoggingConfig           `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	MetricsPort int    `mapstructure:"metrics_port"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	URL       string   `mapstructure:"url"` // Single URL for backwards compatibility
}

// GetURL returns the first address or the URL field
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AIConfig holds settings for the OpenAI-compatible embedding and
// completion services used by similarity search and dynamic prompts.
type AIConfig struct {
	BaseURL         string  `mapstructure:"base_url"`
	APIKey          string  `mapstructure:"api_key"`
	EmbeddingModel  string  `mapstructure:"embedding_model"`
	CompletionModel string  `mapstructure:"completion_model"`
	MaxTokens       int     `mapstructure:"max_tokens"`
	Temperature     float64 `mapstructure:"temperature"`
	SystemPrompt    string  `mapstructure:"system_prompt"`
	Timeout         int     `mapstructure:"timeout"` // milliseconds
}

// RetrievalConfig groups the prompt retrieval settings.
type RetrievalConfig struct {
	Orchestrator OrchestratorConfig `mapstructure:"orchestrator"`
	Similarity   SimilarityConfig   `mapstructure:"similarity"`
	Passthrough  PassthroughConfig  `mapstructure:"passthrough"`
}

// OrchestratorConfig holds the fallback-chain and concurrency settings.
type OrchestratorConfig struct {
	SimilarityThreshold   float64 `mapstructure:"similarity_threshold"`
	EnableDynamicPrompt   bool    `mapstructure:"enable_dynamic_prompt"`
	FallbackToPassthrough bool    `mapstructure:"fallback_to_passthrough"`
	MaxParallelRequests   int     `mapstructure:"max_parallel_requests"`
}

// SimilarityConfig holds the vector search backend settings.
type SimilarityConfig struct {
	IndexName     string `mapstructure:"index_name"`
	TopK          int    `mapstructure:"top_k"`
	CacheTTL      int    `mapstructure:"cache_ttl"`      // seconds, 0 disables caching
	SearchTimeout int    `mapstructure:"search_timeout"` // milliseconds
}

// PassthroughConfig holds the question-to-prompt formatting settings.
type PassthroughConfig struct {
	Prefix         string `mapstructure:"prefix"`
	Suffix         string `mapstructure:"suffix"`
	FormatTemplate string `mapstructure:"format_template"` // e.g., "Please answer: {question}"
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
