// Package embedder batches text into embedding vectors via an Azure OpenAI
// deployment.
package embedder

import (
	"context"
	"fmt"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/azure"

	"github.com/connexus-ai/knowledge-agent/pkg/config"
	"github.com/connexus-ai/knowledge-agent/pkg/domain"
)

// maxBatchSize is the upstream limit per embeddings call.
const maxBatchSize = 16

// Service generates embeddings in order-preserving batches.
type Service struct {
	client     openai.Client
	deployment string
}

func New(cfg config.OpenAIConfig) (*Service, error) {
	if cfg.Endpoint == "" || cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: embedding endpoint and api key are required", domain.ErrConfiguration)
	}
	client := openai.NewClient(
		azure.WithEndpoint(cfg.Endpoint, cfg.APIVersion),
		azure.WithAPIKey(cfg.APIKey),
	)
	return &Service{client: client, deployment: cfg.EmbeddingDeployment}, nil
}

// EmbedBatch embeds texts in batches of at most 16. The result has the same
// length and order as the input. Token usage is amortized evenly across the
// items of each upstream call. A failing batch aborts the whole call with its
// batch index.
func (s *Service) EmbedBatch(ctx context.Context, texts []string) ([]domain.Embedding, error) {
	if len(texts) == 0 {
		return []domain.Embedding{}, nil
	}

	results := make([]domain.Embedding, 0, len(texts))
	for start := 0; start < len(texts); start += maxBatchSize {
		end := start + maxBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[start:end]

		resp, err := s.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
			Model: openai.EmbeddingModel(s.deployment),
			Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: batch},
		})
		if err != nil {
			return nil, fmt.Errorf("%w: batch %d: %v", domain.ErrEmbeddingFailed, start/maxBatchSize, err)
		}
		if len(resp.Data) != len(batch) {
			return nil, fmt.Errorf("%w: batch %d: got %d embeddings for %d inputs",
				domain.ErrEmbeddingFailed, start/maxBatchSize, len(resp.Data), len(batch))
		}

		perItemTokens := int(resp.Usage.TotalTokens) / len(batch)
		for _, item := range resp.Data {
			vector := make([]float32, len(item.Embedding))
			for i, v := range item.Embedding {
				vector[i] = float32(v)
			}
			results = append(results, domain.Embedding{Vector: vector, TokenCount: perItemTokens})
		}
	}

	return results, nil
}
