package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/connexus-ai/knowledge-agent/pkg/domain"
)

// minSearchScore drops weak matches before they reach the model.
const minSearchScore = 0.6

// KnowledgeSearch is the RAG retrieval tool. Every candidate chunk is
// re-verified against the requesting user's delegated credential before it
// enters the result string; a chunk the user cannot read never reaches the
// model's context.
type KnowledgeSearch struct {
	embedder  domain.Embedder
	store     domain.VectorStore
	provider  domain.Provider
	user      domain.UserIdentity
	siteURL   string
	topK      int
	useHybrid bool

	// accessCache memoizes probe results per unique document for the
	// lifetime of this request. The model may issue several search calls in
	// one assistant turn and the agent runs them concurrently, so access is
	// guarded; a duplicate probe under contention is tolerated.
	cacheMu     sync.Mutex
	accessCache map[string]bool
}

func NewKnowledgeSearch(embedder domain.Embedder, store domain.VectorStore, provider domain.Provider, user domain.UserIdentity, siteURL string, topK int, useHybrid bool) *KnowledgeSearch {
	if topK <= 0 {
		topK = 5
	}
	return &KnowledgeSearch{
		embedder:    embedder,
		store:       store,
		provider:    provider,
		user:        user,
		siteURL:     siteURL,
		topK:        topK,
		useHybrid:   useHybrid,
		accessCache: map[string]bool{},
	}
}

func (t *KnowledgeSearch) Definition() domain.ToolDefinition {
	return functionDef("knowledge_search",
		"Search the indexed knowledge base for content relevant to a question. Pass the user's question verbatim.",
		map[string]interface{}{
			"query": map[string]interface{}{"type": "string", "description": "The question to search for, unmodified"},
		},
		[]string{"query"})
}

func (t *KnowledgeSearch) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	query := strings.TrimSpace(stringArg(args, "query"))
	if query == "" {
		return "", fmt.Errorf("%w: query is required", domain.ErrInvalidInput)
	}

	embeddings, err := t.embedder.EmbedBatch(ctx, []string{query})
	if err != nil {
		return "", fmt.Errorf("embed query: %w", err)
	}
	if len(embeddings) != 1 {
		return "", fmt.Errorf("%w: expected one query embedding, got %d", domain.ErrEmbeddingFailed, len(embeddings))
	}

	// Over-fetch so the permission filter and per-document dedupe still
	// leave enough results.
	opts := domain.SearchOptions{
		TopK:     t.topK * 2,
		SiteURL:  t.siteURL,
		MinScore: minSearchScore,
	}
	var hits []domain.ScoredChunk
	if t.useHybrid {
		hits, err = t.store.SearchHybrid(ctx, query, embeddings[0].Vector, opts)
	} else {
		hits, err = t.store.SearchSimilar(ctx, embeddings[0].Vector, opts)
	}
	if err != nil {
		return "", fmt.Errorf("vector search: %w", err)
	}

	accessible := t.filterAccessible(ctx, hits)
	best := bestPerDocument(accessible)
	sort.Slice(best, func(i, j int) bool { return best[i].Score > best[j].Score })
	if len(best) > t.topK {
		best = best[:t.topK]
	}

	if len(best) == 0 {
		return "No relevant documents found in the knowledge base.", nil
	}
	return formatSources(best), nil
}

// filterAccessible keeps only chunks whose document the user can read,
// probing each unique document at most once.
func (t *KnowledgeSearch) filterAccessible(ctx context.Context, hits []domain.ScoredChunk) []domain.ScoredChunk {
	var out []domain.ScoredChunk
	for _, hit := range hits {
		t.cacheMu.Lock()
		allowed, probed := t.accessCache[hit.DocumentID]
		t.cacheMu.Unlock()

		if !probed {
			doc := domain.KnowledgeDocument{
				ID:          hit.DocumentID,
				Title:       hit.DocumentTitle,
				WebURL:      hit.WebURL,
				SiteURL:     hit.SiteURL,
				DriveID:     hit.DriveID,
				DriveItemID: hit.DocumentID,
			}
			allowed = t.provider.ProbeAccess(ctx, hit.DocumentID, doc, t.user.Token)
			t.cacheMu.Lock()
			t.accessCache[hit.DocumentID] = allowed
			t.cacheMu.Unlock()
		}
		if allowed {
			out = append(out, hit)
		}
	}
	return out
}

// bestPerDocument keeps the highest-scoring chunk of each document.
func bestPerDocument(hits []domain.ScoredChunk) []domain.ScoredChunk {
	best := map[string]domain.ScoredChunk{}
	for _, hit := range hits {
		if current, ok := best[hit.DocumentID]; !ok || hit.Score > current.Score {
			best[hit.DocumentID] = hit
		}
	}
	out := make([]domain.ScoredChunk, 0, len(best))
	for _, hit := range best {
		out = append(out, hit)
	}
	return out
}

func formatSources(hits []domain.ScoredChunk) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d relevant sources:\n", len(hits)))
	for i, hit := range hits {
		fmt.Fprintf(&sb, "\nSource %d:\n", i+1)
		fmt.Fprintf(&sb, "Title: %s\n", hit.DocumentTitle)
		fmt.Fprintf(&sb, "URL: %s\n", hit.WebURL)
		fmt.Fprintf(&sb, "Site: %s\n", hit.SiteName)
		fmt.Fprintf(&sb, "DriveId: %s\n", hit.DriveID)
		fmt.Fprintf(&sb, "ItemId: %s\n", hit.DocumentID)
		fmt.Fprintf(&sb, "Relevance: %.0f%%\n", hit.Score*100)
		fmt.Fprintf(&sb, "Content: %s\n", hit.ChunkText)
	}
	return sb.String()
}
