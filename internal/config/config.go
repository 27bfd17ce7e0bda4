// Package config loads and validates the NovaIQ backend configuration from
// YAML with environment variable overrides.
package config

import (
	"fmt"
	"time"
)

// Default service configuration values.
const (
	defaultServiceName    = "novaiq"
	defaultServiceVersion = "1.0.0"
	defaultServicePort    = 8080
	defaultLogLevel       = "info"
	defaultLogFormat      = "json"
)

// Default database configuration values.
const (
	defaultDBHost          = "localhost"
	defaultDBPort          = 5432
	defaultDBUser          = "postgres"
	defaultDBName          = "novaiq"
	defaultDBSSLMode       = "disable"
	defaultDBMaxConns      = 25
	defaultDBMaxIdleConns  = 5
	defaultDBConnLifetimeH = 1
)

// Default ingestion configuration values.
const (
	defaultIngestionQuery      = "AI research breakthrough"
	defaultIngestionMaxResults = 20
	defaultMinContentLength    = 50
	defaultInsightBatchLimit   = 50
	defaultInsightTopN         = 10
)

// Default capability configuration values.
const (
	defaultSearchBaseURL    = "https://api.you.com"
	defaultSearchTimeout    = 30 * time.Second
	defaultVectorIndex      = "novaiq-articles"
	defaultVectorDims       = 1536
	defaultVectorBatchSize  = 100
	defaultVectorRetries    = 3
	defaultVectorTimeout    = 5 * time.Second
	defaultAIModel          = "gpt-4o-mini"
	defaultAIEmbeddingModel = "text-embedding-3-small"
)

// Config holds the application configuration.
type Config struct {
	Service   ServiceConfig   `yaml:"service"`
	Database  DatabaseConfig  `yaml:"database"`
	Search    SearchConfig    `yaml:"search"`
	Vectors   VectorsConfig   `yaml:"vectors"`
	AI        AIConfig        `yaml:"ai"`
	Ingestion IngestionConfig `yaml:"ingestion"`
	Auth      AuthConfig      `yaml:"auth"`
	CORS      CORSConfig      `yaml:"cors"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServiceConfig holds service identity and runtime settings.
type ServiceConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	Port    int    `env:"NOVAIQ_PORT" yaml:"port"`
	Debug   bool   `env:"APP_DEBUG"   yaml:"debug"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host                  string        `env:"POSTGRES_HOST"     yaml:"host"`
	Port                  int           `env:"POSTGRES_PORT"     yaml:"port"`
	User                  string        `env:"POSTGRES_USER"     yaml:"user"`
	Password              string        `env:"POSTGRES_PASSWORD" yaml:"password"`
	Database              string        `env:"POSTGRES_DB"       yaml:"database"`
	SSLMode               string        `yaml:"sslmode"`
	MaxConnections        int           `yaml:"max_connections"`
	MaxIdleConns          int           `yaml:"max_idle_connections"`
	ConnectionMaxLifetime time.Duration `yaml:"connection_max_lifetime"`
}

// SearchConfig holds external search API settings. An empty APIKey disables
// fetching: the fetcher degrades to empty results instead of erroring.
type SearchConfig struct {
	APIKey  string        `env:"SEARCH_API_KEY"      yaml:"api_key"`
	BaseURL string        `env:"SEARCH_API_BASE_URL" yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// VectorsConfig holds vector store settings. Enabled is the operator intent;
// the capability is only live when an Elasticsearch URL and an embedding
// provider are also configured.
type VectorsConfig struct {
	Enabled    bool          `env:"ENABLE_VECTORS"         yaml:"enabled"`
	URL        string        `env:"ELASTICSEARCH_URL"      yaml:"url"`
	Username   string        `env:"ELASTICSEARCH_USERNAME" yaml:"username"`
	Password   string        `env:"ELASTICSEARCH_PASSWORD" yaml:"password"`
	Index      string        `yaml:"index"`
	Dimensions int           `yaml:"dimensions"`
	BatchSize  int           `yaml:"batch_size"`
	MaxRetries int           `yaml:"max_retries"`
	Timeout    time.Duration `yaml:"timeout"`
}

// AIConfig holds LLM settings. An empty APIKey disables insight and
// hypothesis generation as well as embeddings.
type AIConfig struct {
	APIKey         string `env:"OPENAI_API_KEY"  yaml:"api_key"`
	BaseURL        string `env:"OPENAI_BASE_URL" yaml:"base_url"`
	Model          string `yaml:"model"`
	EmbeddingModel string `yaml:"embedding_model"`
}

// IngestionConfig holds pipeline defaults.
type IngestionConfig struct {
	DefaultQuery     string `env:"INGESTION_QUERY" yaml:"default_query"`
	MaxResults       int    `yaml:"max_results"`
	MinContentLength int    `yaml:"min_content_length"`
	InsightBatch     int    `yaml:"insight_batch"`
	InsightTopN      int    `yaml:"insight_top_n"`
}

// AuthConfig holds authentication settings.
type AuthConfig struct {
	JWTSecret     string `env:"AUTH_JWT_SECRET" yaml:"jwt_secret"`
	WebhookSecret string `env:"WEBHOOK_SECRET"  yaml:"webhook_secret"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	Enabled        bool     `yaml:"enabled"`
	AllowedOrigins []string `env:"CORS_ORIGINS" yaml:"allowed_origins"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL"  yaml:"level"`
	Format string `env:"LOG_FORMAT" yaml:"format"`
}

// Load loads configuration from a YAML file, applies defaults, then env
// overrides, and validates the result.
func Load(path string) (*Config, error) {
	cfg, loadErr := load(path)
	if loadErr != nil {
		return nil, fmt.Errorf("load config: %w", loadErr)
	}

	if validateErr := cfg.Validate(); validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return cfg, nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if err := ValidatePort("service.port", c.Service.Port); err != nil {
		return err
	}

	if c.Database.Host == "" {
		return &ValidationError{Field: "database.host", Message: "is required"}
	}

	if c.Database.Database == "" {
		return &ValidationError{Field: "database.database", Message: "is required"}
	}

	if c.Ingestion.MaxResults < 1 || c.Ingestion.MaxResults > 100 {
		return &ValidationError{Field: "ingestion.max_results", Message: "must be between 1 and 100"}
	}

	return nil
}

// SearchEnabled reports whether the external search capability is configured.
func (c *Config) SearchEnabled() bool {
	return c.Search.APIKey != ""
}

// VectorsEnabled reports whether the vector capability is configured.
func (c *Config) VectorsEnabled() bool {
	return c.Vectors.Enabled && c.Vectors.URL != "" && c.AI.APIKey != ""
}

// AIEnabled reports whether the LLM capability is configured.
func (c *Config) AIEnabled() bool {
	return c.AI.APIKey != ""
}

// setDefaults applies default values to all configuration sections.
func setDefaults(cfg *Config) {
	setServiceDefaults(&cfg.Service)
	setDatabaseDefaults(&cfg.Database)
	setSearchDefaults(&cfg.Search)
	setVectorsDefaults(&cfg.Vectors)
	setAIDefaults(&cfg.AI)
	setIngestionDefaults(&cfg.Ingestion)
	setLoggingDefaults(&cfg.Logging)
}

func setServiceDefaults(s *ServiceConfig) {
	if s.Name == "" {
		s.Name = defaultServiceName
	}

	if s.Version == "" {
		s.Version = defaultServiceVersion
	}

	if s.Port == 0 {
		s.Port = defaultServicePort
	}
}

func setDatabaseDefaults(d *DatabaseConfig) {
	if d.Host == "" {
		d.Host = defaultDBHost
	}

	if d.Port == 0 {
		d.Port = defaultDBPort
	}

	if d.User == "" {
		d.User = defaultDBUser
	}

	if d.Database == "" {
		d.Database = defaultDBName
	}

	if d.SSLMode == "" {
		d.SSLMode = defaultDBSSLMode
	}

	if d.MaxConnections == 0 {
		d.MaxConnections = defaultDBMaxConns
	}

	if d.MaxIdleConns == 0 {
		d.MaxIdleConns = defaultDBMaxIdleConns
	}

	if d.ConnectionMaxLifetime == 0 {
		d.ConnectionMaxLifetime = defaultDBConnLifetimeH * time.Hour
	}
}

func setSearchDefaults(s *SearchConfig) {
	if s.BaseURL == "" {
		s.BaseURL = defaultSearchBaseURL
	}

	if s.Timeout == 0 {
		s.Timeout = defaultSearchTimeout
	}
}

func setVectorsDefaults(v *VectorsConfig) {
	if v.Index == "" {
		v.Index = defaultVectorIndex
	}

	if v.Dimensions == 0 {
		v.Dimensions = defaultVectorDims
	}

	if v.BatchSize == 0 {
		v.BatchSize = defaultVectorBatchSize
	}

	if v.MaxRetries == 0 {
		v.MaxRetries = defaultVectorRetries
	}

	if v.Timeout == 0 {
		v.Timeout = defaultVectorTimeout
	}
}

func setAIDefaults(a *AIConfig) {
	if a.Model == "" {
		a.Model = defaultAIModel
	}

	if a.EmbeddingModel == "" {
		a.EmbeddingModel = defaultAIEmbeddingModel
	}
}

func setIngestionDefaults(i *IngestionConfig) {
	if i.DefaultQuery == "" {
		i.DefaultQuery = defaultIngestionQuery
	}

	if i.MaxResults == 0 {
		i.MaxResults = defaultIngestionMaxResults
	}

	if i.MinContentLength == 0 {
		i.MinContentLength = defaultMinContentLength
	}

	if i.InsightBatch == 0 {
		i.InsightBatch = defaultInsightBatchLimit
	}

	if i.InsightTopN == 0 {
		i.InsightTopN = defaultInsightTopN
	}
}

func setLoggingDefaults(l *LoggingConfig) {
	if l.Level == "" {
		l.Level = defaultLogLevel
	}

	if l.Format == "" {
		l.Format = defaultLogFormat
	}
}
