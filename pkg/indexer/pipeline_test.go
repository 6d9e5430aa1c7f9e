package indexer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/connexus-ai/knowledge-agent/pkg/chunker"
	"github.com/connexus-ai/knowledge-agent/pkg/domain"
)

type fakeProvider struct {
	mu        sync.Mutex
	docs      []domain.KnowledgeDocument
	data      map[string][]byte
	searchErr error
	blockCh   chan struct{} // when set, Search blocks until the channel closes
	searches  int
}

func (p *fakeProvider) Search(ctx context.Context, query string, size int) ([]domain.KnowledgeDocument, error) {
	p.mu.Lock()
	p.searches++
	p.mu.Unlock()
	if p.blockCh != nil {
		select {
		case <-p.blockCh:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if p.searchErr != nil {
		return nil, p.searchErr
	}
	return p.docs, nil
}

func (p *fakeProvider) DownloadBytes(ctx context.Context, doc domain.KnowledgeDocument) ([]byte, error) {
	data, ok := p.data[doc.ID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, doc.ID)
	}
	return data, nil
}

func (p *fakeProvider) SearchRaw(context.Context, string, int, string) ([]domain.SearchHit, error) {
	return nil, nil
}
func (p *fakeProvider) ResolveSite(context.Context, string, string) (domain.SiteInfo, error) {
	return domain.SiteInfo{}, errors.New("unused")
}
func (p *fakeProvider) GetPageParts(context.Context, string, string) ([]domain.PagePart, error) {
	return nil, nil
}
func (p *fakeProvider) ProbeAccess(context.Context, string, domain.KnowledgeDocument, string) bool {
	return true
}
func (p *fakeProvider) GetUserProfile(context.Context, string) (domain.UserProfile, error) {
	return domain.UserProfile{}, nil
}

// fakeExtractor maps document bytes straight to a configured text.
type fakeExtractor struct {
	texts map[string]string
	errs  map[string]error
}

func (e *fakeExtractor) Extract(ctx context.Context, doc domain.KnowledgeDocument, data []byte) (string, error) {
	if err := e.errs[doc.ID]; err != nil {
		return "", err
	}
	return e.texts[doc.ID], nil
}

type fakeEmbedder struct {
	mu      sync.Mutex
	batches [][]string
	err     error
}

func (e *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([]domain.Embedding, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return nil, e.err
	}
	e.batches = append(e.batches, texts)
	out := make([]domain.Embedding, len(texts))
	for i := range texts {
		vector := make([]float32, domain.EmbeddingDim)
		vector[0] = float32(i + 1)
		out[i] = domain.Embedding{Vector: vector, TokenCount: len(texts[i]) / 4}
	}
	return out, nil
}

type fakeStore struct {
	mu       sync.Mutex
	ops      []string // interleaved "delete:<docID>" and "upsert:<n>"
	upserted []domain.DocumentChunk
}

func (s *fakeStore) EnsureSchema(context.Context) error { return nil }

func (s *fakeStore) Upsert(ctx context.Context, chunks []domain.DocumentChunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops = append(s.ops, fmt.Sprintf("upsert:%d", len(chunks)))
	s.upserted = append(s.upserted, chunks...)
	return nil
}

func (s *fakeStore) DeleteByDocumentID(ctx context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops = append(s.ops, "delete:"+documentID)
	return nil
}

func (s *fakeStore) SearchSimilar(context.Context, []float32, domain.SearchOptions) ([]domain.ScoredChunk, error) {
	return nil, nil
}
func (s *fakeStore) SearchHybrid(context.Context, string, []float32, domain.SearchOptions) ([]domain.ScoredChunk, error) {
	return nil, nil
}
func (s *fakeStore) Stats(context.Context) (domain.IndexStats, error) {
	return domain.IndexStats{}, nil
}

func doc(id, name string) domain.KnowledgeDocument {
	return domain.KnowledgeDocument{
		ID:           id,
		Title:        name,
		WebURL:       "https://contoso.sharepoint.com/sites/Eng/" + name,
		FileType:     domain.FileTypeFromName(name),
		LastModified: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		SiteURL:      "https://contoso.sharepoint.com/sites/Eng",
		SiteName:     "Eng",
	}
}

// One document of 4500 characters indexes as three chunks embedded in a
// single batch.
func TestRunSingleDocument(t *testing.T) {
	text := strings.TrimSpace(strings.Repeat("alpha beta gamma ", 265))[:4500]
	provider := &fakeProvider{
		docs: []domain.KnowledgeDocument{doc("d1", "guide.pdf")},
		data: map[string][]byte{"d1": []byte("%PDF")},
	}
	extractor := &fakeExtractor{texts: map[string]string{"d1": text}}
	embedder := &fakeEmbedder{}
	store := &fakeStore{}

	p := NewPipeline(provider, extractor, chunker.New(chunker.DefaultOptions()), embedder, store)
	result, err := p.Run(context.Background(), Options{SiteURL: "https://contoso.sharepoint.com/sites/Eng", DaysBack: 30})
	require.NoError(t, err)

	assert.Equal(t, 1, result.DocumentsFound)
	assert.Equal(t, 1, result.DocumentsProcessed)
	assert.Equal(t, 3, result.ChunksCreated)
	assert.Empty(t, result.Errors)

	require.Len(t, embedder.batches, 1)
	assert.Len(t, embedder.batches[0], 3)
	require.Len(t, store.upserted, 3)
	assert.Equal(t, "d1_chunk_0", store.upserted[0].ID)
	assert.Equal(t, domain.FileTypePDF, store.upserted[0].FileType)
}

// A failing document is reported and skipped; the rest of the pass continues.
func TestRunMixedCorpus(t *testing.T) {
	provider := &fakeProvider{
		docs: []domain.KnowledgeDocument{
			doc("ok", "guide.pdf"),
			doc("short", "stub.docx"),
			doc("broken", "bad.docx"),
			doc("missing", "gone.pdf"),
		},
		data: map[string][]byte{
			"ok":     []byte("x"),
			"short":  []byte("x"),
			"broken": []byte("x"),
		},
	}
	extractor := &fakeExtractor{
		texts: map[string]string{
			"ok":    strings.Repeat("useful words here ", 20),
			"short": "too small",
		},
		errs: map[string]error{
			"broken": fmt.Errorf("%w: bad.docx: not a container", domain.ErrExtractionFailed),
		},
	}
	store := &fakeStore{}

	p := NewPipeline(provider, extractor, chunker.New(chunker.DefaultOptions()), &fakeEmbedder{}, store)
	result, err := p.Run(context.Background(), Options{})
	require.NoError(t, err)

	assert.Equal(t, 4, result.DocumentsFound)
	assert.Equal(t, 1, result.DocumentsProcessed)
	require.Len(t, result.Errors, 3)
	assert.Contains(t, strings.Join(result.Errors, "\n"), "insufficient content")
	assert.Contains(t, strings.Join(result.Errors, "\n"), "gone.pdf")
}

// Chunks are replaced per document: delete strictly precedes upsert.
func TestRunDeleteBeforeUpsert(t *testing.T) {
	provider := &fakeProvider{
		docs: []domain.KnowledgeDocument{doc("d1", "a.pdf")},
		data: map[string][]byte{"d1": []byte("x")},
	}
	extractor := &fakeExtractor{texts: map[string]string{"d1": strings.Repeat("sentence here ", 30)}}
	store := &fakeStore{}

	p := NewPipeline(provider, extractor, chunker.New(chunker.DefaultOptions()), &fakeEmbedder{}, store)
	_, err := p.Run(context.Background(), Options{})
	require.NoError(t, err)

	require.Len(t, store.ops, 2)
	assert.Equal(t, "delete:d1", store.ops[0])
	assert.True(t, strings.HasPrefix(store.ops[1], "upsert:"))
}

// Re-running the same pass produces the same chunk ids, so the index does
// not grow.
func TestRunIdempotentIDs(t *testing.T) {
	provider := &fakeProvider{
		docs: []domain.KnowledgeDocument{doc("d1", "a.pdf")},
		data: map[string][]byte{"d1": []byte("x")},
	}
	extractor := &fakeExtractor{texts: map[string]string{"d1": strings.Repeat("stable text ", 40)}}
	store := &fakeStore{}

	p := NewPipeline(provider, extractor, chunker.New(chunker.DefaultOptions()), &fakeEmbedder{}, store)
	_, err := p.Run(context.Background(), Options{})
	require.NoError(t, err)
	firstIDs := chunkIDs(store.upserted)

	store.upserted = nil
	_, err = p.Run(context.Background(), Options{})
	require.NoError(t, err)

	assert.Equal(t, firstIDs, chunkIDs(store.upserted))
}

func chunkIDs(chunks []domain.DocumentChunk) []string {
	ids := make([]string, len(chunks))
	for i, c := range chunks {
		ids[i] = c.ID
	}
	return ids
}

func TestRunSkipEmbeddings(t *testing.T) {
	provider := &fakeProvider{
		docs: []domain.KnowledgeDocument{doc("d1", "a.pdf")},
		data: map[string][]byte{"d1": []byte("x")},
	}
	extractor := &fakeExtractor{texts: map[string]string{"d1": strings.Repeat("dry run text ", 30)}}
	embedder := &fakeEmbedder{}
	store := &fakeStore{}

	p := NewPipeline(provider, extractor, chunker.New(chunker.DefaultOptions()), embedder, store)
	result, err := p.Run(context.Background(), Options{SkipEmbeddings: true})
	require.NoError(t, err)

	assert.Equal(t, 1, result.DocumentsProcessed)
	assert.Greater(t, result.ChunksCreated, 0)
	assert.Empty(t, embedder.batches)
	assert.Empty(t, store.ops)
}

func TestRunLimit(t *testing.T) {
	provider := &fakeProvider{
		docs: []domain.KnowledgeDocument{doc("d1", "a.pdf"), doc("d2", "b.pdf"), doc("d3", "c.pdf")},
		data: map[string][]byte{"d1": []byte("x"), "d2": []byte("x"), "d3": []byte("x")},
	}
	texts := map[string]string{}
	for _, id := range []string{"d1", "d2", "d3"} {
		texts[id] = strings.Repeat("enough content to index ", 10)
	}
	p := NewPipeline(provider, &fakeExtractor{texts: texts}, chunker.New(chunker.DefaultOptions()), &fakeEmbedder{}, &fakeStore{})

	result, err := p.Run(context.Background(), Options{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, result.DocumentsProcessed)
}

func TestRunSearchFailure(t *testing.T) {
	provider := &fakeProvider{searchErr: fmt.Errorf("%w: search down", domain.ErrProviderUnavailable)}
	p := NewPipeline(provider, &fakeExtractor{}, chunker.New(chunker.DefaultOptions()), &fakeEmbedder{}, &fakeStore{})

	_, err := p.Run(context.Background(), Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrProviderUnavailable))
}
