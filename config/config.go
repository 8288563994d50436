package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig
	Neo4j      Neo4jConfig
	Audit      AuditConfig
	Generation GenerationConfig
	Pipeline   PipelineConfig
	Schema     SchemaConfig
	Logging    LoggingConfig
	Metrics    MetricsConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// Neo4jConfig holds graph store connection configuration
type Neo4jConfig struct {
	URI      string
	User     string
	Password string
	Database string

	// Per-statement execution timeout
	QueryTimeout time.Duration
}

// AuditConfig holds the optional PostgreSQL turn-audit store configuration
type AuditConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string
}

// GenerationConfig holds text-generation capability configuration.
// Any OpenAI-compatible chat completions endpoint satisfies the contract.
type GenerationConfig struct {
	Endpoint  string
	APIKey    string
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

// PipelineConfig holds the bounded-cost knobs of the investigation pipeline
type PipelineConfig struct {
	// RowLimit caps rows per executed candidate; it is also embedded as a
	// LIMIT clause in every generated statement.
	RowLimit int

	// HistoryWindow is the number of recent turns rendered into prompts.
	HistoryWindow int

	// MaxCandidates caps generated statements per turn.
	MaxCandidates int

	// EnrichmentEntityCap bounds how many referenced-but-missing entities
	// get a one-hop fetch; EnrichmentRelCap bounds relationships per fetch.
	EnrichmentEntityCap int
	EnrichmentRelCap    int

	// SynthesisRowCap bounds rows per candidate serialized into the
	// synthesis prompt.
	SynthesisRowCap int

	// ErrorTruncation bounds the store error text handed to the repairer.
	ErrorTruncation int

	// MaxFollowUps bounds follow-up questions per answer.
	MaxFollowUps int

	PlannerTemperature     float64
	GeneratorTemperature   float64
	SynthesizerTemperature float64
}

// SchemaConfig holds the schema description source
type SchemaConfig struct {
	Path string

	// LiveStatistics toggles cardinality statistics for deep turns.
	LiveStatistics bool
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// MetricsConfig holds metrics exposure configuration
type MetricsConfig struct {
	Enabled  bool
	Endpoint string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 120*time.Second),
			IdleTimeout:  getDurationEnv("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Neo4j: Neo4jConfig{
			URI:          getEnv("NEO4J_URI", "neo4j://localhost:7687"),
			User:         getEnv("NEO4J_USER", "neo4j"),
			Password:     getEnv("NEO4J_PASSWORD", ""),
			Database:     getEnv("NEO4J_DATABASE", "neo4j"),
			QueryTimeout: getDurationEnv("NEO4J_QUERY_TIMEOUT", 15*time.Second),
		},
		Audit: AuditConfig{
			Enabled:  getBoolEnv("AUDIT_ENABLED", false),
			Host:     getEnv("AUDIT_DB_HOST", "localhost"),
			Port:     getIntEnv("AUDIT_DB_PORT", 5432),
			Database: getEnv("AUDIT_DB_NAME", "postgres"),
			User:     getEnv("AUDIT_DB_USER", "postgres"),
			Password: getEnv("AUDIT_DB_PASSWORD", ""),
			SSLMode:  getEnv("AUDIT_DB_SSLMODE", "prefer"),
		},
		Generation: GenerationConfig{
			Endpoint:  getEnv("GENERATION_ENDPOINT", ""),
			APIKey:    getEnv("GENERATION_API_KEY", ""),
			Model:     getEnv("GENERATION_MODEL", "gpt-4o-mini"),
			MaxTokens: getIntEnv("GENERATION_MAX_TOKENS", 2000),
			Timeout:   getDurationEnv("GENERATION_TIMEOUT", 60*time.Second),
		},
		Pipeline: PipelineConfig{
			RowLimit:               getIntEnv("PIPELINE_ROW_LIMIT", 50),
			HistoryWindow:          getIntEnv("PIPELINE_HISTORY_WINDOW", 5),
			MaxCandidates:          getIntEnv("PIPELINE_MAX_CANDIDATES", 2),
			EnrichmentEntityCap:    getIntEnv("PIPELINE_ENRICHMENT_ENTITY_CAP", 5),
			EnrichmentRelCap:       getIntEnv("PIPELINE_ENRICHMENT_REL_CAP", 30),
			SynthesisRowCap:        getIntEnv("PIPELINE_SYNTHESIS_ROW_CAP", 15),
			ErrorTruncation:        getIntEnv("PIPELINE_ERROR_TRUNCATION", 300),
			MaxFollowUps:           getIntEnv("PIPELINE_MAX_FOLLOW_UPS", 3),
			PlannerTemperature:     getFloatEnv("PIPELINE_PLANNER_TEMPERATURE", 0.2),
			GeneratorTemperature:   getFloatEnv("PIPELINE_GENERATOR_TEMPERATURE", 0.0),
			SynthesizerTemperature: getFloatEnv("PIPELINE_SYNTHESIZER_TEMPERATURE", 0.3),
		},
		Schema: SchemaConfig{
			Path:           getEnv("SCHEMA_PATH", "./configs/schema.yaml"),
			LiveStatistics: getBoolEnv("SCHEMA_LIVE_STATISTICS", true),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Metrics: MetricsConfig{
			Enabled:  getBoolEnv("METRICS_ENABLED", true),
			Endpoint: getEnv("METRICS_ENDPOINT", "/metrics"),
		},
	}
}

// Validate checks that the loaded configuration can actually run a turn
func (c *Config) Validate() error {
	if c.Generation.Endpoint == "" {
		return fmt.Errorf("GENERATION_ENDPOINT is required")
	}
	if c.Neo4j.URI == "" {
		return fmt.Errorf("NEO4J_URI is required")
	}
	if c.Pipeline.RowLimit <= 0 {
		return fmt.Errorf("PIPELINE_ROW_LIMIT must be positive")
	}
	if c.Pipeline.MaxCandidates <= 0 {
		return fmt.Errorf("PIPELINE_MAX_CANDIDATES must be positive")
	}
	if c.Schema.Path == "" {
		return fmt.Errorf("SCHEMA_PATH is required")
	}
	return nil
}

// getEnv gets environment variable with fallback
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getIntEnv gets integer environment variable with fallback
func getIntEnv(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return fallback
}

// getBoolEnv gets boolean environment variable with fallback
func getBoolEnv(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return fallback
}

// getFloatEnv gets float environment variable with fallback
func getFloatEnv(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return fallback
}

// getDurationEnv gets duration environment variable with fallback
func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return fallback
}
