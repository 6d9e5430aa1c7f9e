// Package indexer runs the discovery-to-index pipeline and its schedule.
package indexer

import (
	"context"
	"fmt"
	"time"

	"github.com/connexus-ai/knowledge-agent/pkg/domain"
	"github.com/connexus-ai/knowledge-agent/pkg/extract"
	"github.com/connexus-ai/knowledge-agent/pkg/graph"
	"github.com/connexus-ai/knowledge-agent/pkg/log"
)

// Options narrow one pipeline pass.
type Options struct {
	SiteURL        string
	DaysBack       int
	Limit          int  // cap on documents processed, 0 means all
	SkipEmbeddings bool // dry-run: stop before embedding and upserting
}

// Pipeline turns discovered documents into indexed chunks. One document
// failing never aborts the pass; its error is collected and the pass moves on.
type Pipeline struct {
	provider  domain.Provider
	extractor domain.Extractor
	chunker   domain.Chunker
	embedder  domain.Embedder
	store     domain.VectorStore
	logger    interface {
		Info(msg string, args ...any)
		Warn(msg string, args ...any)
		Debug(msg string, args ...any)
	}
}

func NewPipeline(provider domain.Provider, extractor domain.Extractor, chk domain.Chunker, embedder domain.Embedder, store domain.VectorStore) *Pipeline {
	return &Pipeline{
		provider:  provider,
		extractor: extractor,
		chunker:   chk,
		embedder:  embedder,
		store:     store,
		logger:    log.WithModule("indexer"),
	}
}

// Run executes a full pass: discover, extract, chunk, embed, replace.
func (p *Pipeline) Run(ctx context.Context, opts Options) (domain.IndexerResult, error) {
	started := time.Now()
	result := domain.IndexerResult{Errors: []string{}}

	query := graph.NewQuery().
		Marker().
		FileTypes().
		Path(opts.SiteURL).
		ModifiedSince(opts.DaysBack).
		String()

	docs, err := p.provider.Search(ctx, query, 0)
	if err != nil {
		return result, fmt.Errorf("discover documents: %w", err)
	}
	result.DocumentsFound = len(docs)
	p.logger.Info("discovered documents", "count", len(docs), "site", opts.SiteURL, "daysBack", opts.DaysBack)

	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("pass aborted: %v", err))
			break
		}
		if opts.Limit > 0 && result.DocumentsProcessed >= opts.Limit {
			break
		}

		created, err := p.processDocument(ctx, doc, opts.SkipEmbeddings)
		if err != nil {
			p.logger.Warn("document skipped", "title", doc.Title, "error", err)
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", doc.Title, err))
			continue
		}
		result.DocumentsProcessed++
		result.ChunksCreated += created
	}

	result.Duration = time.Since(started)
	result.DurationMs = result.Duration.Milliseconds()
	p.logger.Info("indexing pass finished",
		"found", result.DocumentsFound,
		"processed", result.DocumentsProcessed,
		"chunks", result.ChunksCreated,
		"errors", len(result.Errors),
		"duration", result.Duration)
	return result, nil
}

// processDocument runs one document end to end and returns the number of
// chunks written.
func (p *Pipeline) processDocument(ctx context.Context, doc domain.KnowledgeDocument, skipEmbeddings bool) (int, error) {
	data, err := p.provider.DownloadBytes(ctx, doc)
	if err != nil {
		return 0, fmt.Errorf("download: %w", err)
	}

	text, err := p.extractor.Extract(ctx, doc, data)
	if err != nil {
		return 0, err
	}
	text = extract.Normalize(text)
	if len(text) < extract.MinContentLength {
		return 0, fmt.Errorf("insufficient content (%d chars)", len(text))
	}

	textChunks := p.chunker.Split(text)
	if len(textChunks) == 0 {
		return 0, fmt.Errorf("no chunks produced")
	}
	if skipEmbeddings {
		return len(textChunks), nil
	}

	texts := make([]string, len(textChunks))
	for i, tc := range textChunks {
		texts[i] = tc.Text
	}
	embeddings, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed: %w", err)
	}
	if len(embeddings) != len(textChunks) {
		return 0, fmt.Errorf("embed: got %d vectors for %d chunks", len(embeddings), len(textChunks))
	}

	now := time.Now().UTC()
	chunks := make([]domain.DocumentChunk, len(textChunks))
	for i, tc := range textChunks {
		chunks[i] = domain.DocumentChunk{
			ID:                 domain.ChunkID(doc.ID, tc.Index),
			DocumentID:         doc.ID,
			DriveID:            doc.DriveID,
			WebURL:             doc.WebURL,
			SiteURL:            doc.SiteURL,
			SiteName:           doc.SiteName,
			DocumentTitle:      doc.Title,
			FileType:           doc.FileType,
			ChunkIndex:         tc.Index,
			ChunkText:          tc.Text,
			Embedding:          embeddings[i].Vector,
			DocumentModifiedAt: doc.LastModified,
			IndexedAt:          now,
		}
	}

	// Replace, not merge: stale chunks of a shrunken document must not linger.
	if err := p.store.DeleteByDocumentID(ctx, doc.ID); err != nil {
		return 0, fmt.Errorf("clear previous chunks: %w", err)
	}
	if err := p.store.Upsert(ctx, chunks); err != nil {
		return 0, fmt.Errorf("upsert: %w", err)
	}

	p.logger.Debug("document indexed", "title", doc.Title, "chunks", len(chunks))
	return len(chunks), nil
}

// Preview reports what a pass would index without touching the vector store.
func (p *Pipeline) Preview(ctx context.Context, opts Options) (domain.IndexerResult, []domain.KnowledgeDocument, error) {
	opts.SkipEmbeddings = true

	query := graph.NewQuery().
		Marker().
		FileTypes().
		Path(opts.SiteURL).
		ModifiedSince(opts.DaysBack).
		String()

	docs, err := p.provider.Search(ctx, query, 0)
	if err != nil {
		return domain.IndexerResult{}, nil, fmt.Errorf("discover documents: %w", err)
	}

	result := domain.IndexerResult{DocumentsFound: len(docs), Errors: []string{}}
	return result, docs, nil
}
