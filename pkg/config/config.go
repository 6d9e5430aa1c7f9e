package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/connexus-ai/knowledge-agent/pkg/domain"
)

// Config is the full runtime configuration. Every field maps to a plain
// key/value; the environment keys below override file values.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Identity IdentityConfig `mapstructure:"identity"`
	OpenAI   OpenAIConfig   `mapstructure:"openai"`
	Vector   VectorConfig   `mapstructure:"vector"`
	Graph    GraphConfig    `mapstructure:"graph"`
	Indexer  IndexerConfig  `mapstructure:"indexer"`
	Chat     ChatConfig     `mapstructure:"chat"`
	LogDebug bool           `mapstructure:"log_debug"`
}

type ServerConfig struct {
	Port        int      `mapstructure:"port"`
	CORSOrigins []string `mapstructure:"cors_origins"`
	RateLimit   int      `mapstructure:"rate_limit"` // requests per minute, 0 disables
	RateBurst   int      `mapstructure:"rate_burst"`
}

type IdentityConfig struct {
	TenantID     string `mapstructure:"tenant_id"`
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
}

type OpenAIConfig struct {
	Endpoint            string `mapstructure:"endpoint"`
	APIKey              string `mapstructure:"api_key"`
	APIVersion          string `mapstructure:"api_version"`
	Deployment          string `mapstructure:"deployment"`
	EmbeddingDeployment string `mapstructure:"embedding_deployment"`
}

type VectorConfig struct {
	URL        string `mapstructure:"url"`
	Collection string `mapstructure:"collection"`
}

type GraphConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Geo     string `mapstructure:"geo"`
}

type IndexerConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
	SiteURL  string        `mapstructure:"site_url"`
	DaysBack int           `mapstructure:"days_back"`
}

type ChatConfig struct {
	DefaultSearchMode domain.SearchMode `mapstructure:"default_search_mode"`
	TopK              int               `mapstructure:"top_k"`
	UseHybridSearch   bool              `mapstructure:"use_hybrid_search"`
	ToolTimeout       time.Duration     `mapstructure:"tool_timeout"`
	CompletionTimeout time.Duration     `mapstructure:"completion_timeout"`
}

// envBindings maps the recognized environment keys onto viper keys.
var envBindings = map[string]string{
	"identity.tenant_id":          "AD_TENANT_ID",
	"identity.client_id":          "AD_CLIENT_ID",
	"identity.client_secret":      "AD_CLIENT_SECRET",
	"openai.endpoint":             "AZURE_OPENAI_ENDPOINT",
	"openai.api_key":              "AZURE_OPENAI_API_KEY",
	"openai.api_version":          "AZURE_OPENAI_API_VERSION",
	"openai.deployment":           "AZURE_OPENAI_DEPLOYMENT",
	"openai.embedding_deployment": "AZURE_OPENAI_EMBEDDING_DEPLOYMENT",
	"vector.url":                  "QDRANT_URL",
	"vector.collection":           "QDRANT_COLLECTION",
	"graph.base_url":              "GRAPH_BASE_URL",
	"graph.geo":                   "SHAREPOINT_GEO",
	"indexer.enabled":             "KNOWLEDGE_INDEXER_ENABLED",
	"chat.default_search_mode":    "DEFAULT_SEARCH_MODE",
	"server.port":                 "PORT",
}

// Load reads configuration from an optional toml file plus the environment.
// Missing required values are a startup failure, never a lazy runtime error.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		abs, _ := filepath.Abs(configPath)
		v.SetConfigFile(abs)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("%w: failed to read config file %s: %v", domain.ErrConfiguration, configPath, err)
		}
	} else if _, err := os.Stat("knowledge-agent.toml"); err == nil {
		v.SetConfigFile("knowledge-agent.toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("%w: failed to read knowledge-agent.toml: %v", domain.ErrConfiguration, err)
		}
	}

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("%w: bind %s: %v", domain.ErrConfiguration, env, err)
		}
	}

	// KNOWLEDGE_INDEXER_INTERVAL_MS carries milliseconds, not a duration string.
	if ms := os.Getenv("KNOWLEDGE_INDEXER_INTERVAL_MS"); ms != "" {
		v.Set("indexer.interval", ms+"ms")
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal config: %v", domain.ErrConfiguration, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.rate_limit", 0)
	v.SetDefault("server.rate_burst", 20)
	v.SetDefault("openai.api_version", "2024-06-01")
	v.SetDefault("vector.collection", "knowledge_chunks")
	v.SetDefault("graph.base_url", "https://graph.microsoft.com/v1.0")
	v.SetDefault("graph.geo", "US")
	v.SetDefault("indexer.enabled", true)
	v.SetDefault("indexer.interval", time.Hour)
	v.SetDefault("indexer.days_back", 30)
	v.SetDefault("chat.default_search_mode", string(domain.SearchModeKQL))
	v.SetDefault("chat.top_k", 5)
	v.SetDefault("chat.use_hybrid_search", false)
	v.SetDefault("chat.tool_timeout", 30*time.Second)
	v.SetDefault("chat.completion_timeout", 120*time.Second)
}

func (c *Config) validate() error {
	required := map[string]string{
		"AD_TENANT_ID":          c.Identity.TenantID,
		"AD_CLIENT_ID":          c.Identity.ClientID,
		"AD_CLIENT_SECRET":      c.Identity.ClientSecret,
		"AZURE_OPENAI_ENDPOINT": c.OpenAI.Endpoint,
		"AZURE_OPENAI_API_KEY":  c.OpenAI.APIKey,
		"QDRANT_URL":            c.Vector.URL,
	}
	for key, val := range required {
		if val == "" {
			return fmt.Errorf("%w: %s is required", domain.ErrConfiguration, key)
		}
	}
	switch c.Chat.DefaultSearchMode {
	case domain.SearchModeRAG, domain.SearchModeKQL:
	default:
		return fmt.Errorf("%w: DEFAULT_SEARCH_MODE must be rag or kql, got %q", domain.ErrConfiguration, c.Chat.DefaultSearchMode)
	}
	return nil
}
