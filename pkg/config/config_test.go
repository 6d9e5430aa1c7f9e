package config

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/connexus-ai/knowledge-agent/pkg/domain"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("AD_TENANT_ID", "tenant")
	t.Setenv("AD_CLIENT_ID", "client")
	t.Setenv("AD_CLIENT_SECRET", "secret")
	t.Setenv("AZURE_OPENAI_ENDPOINT", "https://example.openai.azure.com")
	t.Setenv("AZURE_OPENAI_API_KEY", "key")
	t.Setenv("QDRANT_URL", "http://localhost:6334")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "knowledge_chunks", cfg.Vector.Collection)
	assert.Equal(t, "https://graph.microsoft.com/v1.0", cfg.Graph.BaseURL)
	assert.Equal(t, "US", cfg.Graph.Geo)
	assert.Equal(t, domain.SearchModeKQL, cfg.Chat.DefaultSearchMode)
	assert.Equal(t, time.Hour, cfg.Indexer.Interval)
	assert.Equal(t, 30, cfg.Indexer.DaysBack)
	assert.True(t, cfg.Indexer.Enabled)
	assert.Equal(t, 5, cfg.Chat.TopK)
}

func TestLoadEnvOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "8080")
	t.Setenv("DEFAULT_SEARCH_MODE", "rag")
	t.Setenv("SHAREPOINT_GEO", "EMEA")
	t.Setenv("QDRANT_COLLECTION", "other_chunks")
	t.Setenv("KNOWLEDGE_INDEXER_INTERVAL_MS", "900000")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, domain.SearchModeRAG, cfg.Chat.DefaultSearchMode)
	assert.Equal(t, "EMEA", cfg.Graph.Geo)
	assert.Equal(t, "other_chunks", cfg.Vector.Collection)
	assert.Equal(t, 15*time.Minute, cfg.Indexer.Interval)
}

func TestLoadMissingRequired(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("AD_CLIENT_SECRET", "")

	_, err := Load("")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConfiguration))
	assert.Contains(t, err.Error(), "AD_CLIENT_SECRET")
}

func TestLoadRejectsBadSearchMode(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("DEFAULT_SEARCH_MODE", "fulltext")

	_, err := Load("")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConfiguration))
}

func TestLoadMissingConfigFile(t *testing.T) {
	setRequiredEnv(t)

	_, err := Load("/nonexistent/path.toml")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConfiguration))
}
