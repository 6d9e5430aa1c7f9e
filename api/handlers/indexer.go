package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/connexus-ai/knowledge-agent/pkg/config"
	"github.com/connexus-ai/knowledge-agent/pkg/domain"
	"github.com/connexus-ai/knowledge-agent/pkg/indexer"
)

// Indexer serves the admin endpoints for triggering and inspecting the
// indexing pipeline.
type Indexer struct {
	scheduler *indexer.Scheduler
	pipeline  *indexer.Pipeline
	store     domain.VectorStore
	defaults  config.IndexerConfig
}

func NewIndexer(scheduler *indexer.Scheduler, pipeline *indexer.Pipeline, store domain.VectorStore, defaults config.IndexerConfig) *Indexer {
	return &Indexer{scheduler: scheduler, pipeline: pipeline, store: store, defaults: defaults}
}

// optionsFromQuery builds pass options from query overrides, falling back to
// the configured defaults.
func (h *Indexer) optionsFromQuery(c *gin.Context) (indexer.Options, error) {
	opts := indexer.Options{
		SiteURL:  h.defaults.SiteURL,
		DaysBack: h.defaults.DaysBack,
	}
	if site := c.Query("siteUrl"); site != "" {
		opts.SiteURL = site
	}
	if days := c.Query("days"); days != "" {
		n, err := strconv.Atoi(days)
		if err != nil || n < 0 {
			return opts, fmt.Errorf("%w: days must be a non-negative integer", domain.ErrInvalidInput)
		}
		opts.DaysBack = n
	}
	if limit := c.Query("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			return opts, fmt.Errorf("%w: limit must be a non-negative integer", domain.ErrInvalidInput)
		}
		opts.Limit = n
	}
	return opts, nil
}

// Run triggers a full indexing pass.
func (h *Indexer) Run(c *gin.Context) {
	opts, err := h.optionsFromQuery(c)
	if err != nil {
		respondError(c, err)
		return
	}

	result, err := h.scheduler.Trigger(c.Request.Context(), opts)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Test triggers a pass that stops before embedding and writing.
func (h *Indexer) Test(c *gin.Context) {
	opts, err := h.optionsFromQuery(c)
	if err != nil {
		respondError(c, err)
		return
	}
	opts.SkipEmbeddings = true

	result, err := h.scheduler.Trigger(c.Request.Context(), opts)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Preview lists the documents a pass would process.
func (h *Indexer) Preview(c *gin.Context) {
	opts, err := h.optionsFromQuery(c)
	if err != nil {
		respondError(c, err)
		return
	}

	result, docs, err := h.pipeline.Preview(c.Request.Context(), opts)
	if err != nil {
		respondError(c, err)
		return
	}
	if opts.Limit > 0 && len(docs) > opts.Limit {
		docs = docs[:opts.Limit]
	}
	c.JSON(http.StatusOK, gin.H{
		"documentsFound": result.DocumentsFound,
		"documents":      docs,
	})
}

// Stats reports the vector index size.
func (h *Indexer) Stats(c *gin.Context) {
	stats, err := h.store.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"stats":   stats,
		"running": h.scheduler.Running(),
	})
}
