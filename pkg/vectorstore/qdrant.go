// Package vectorstore persists document chunks in a Qdrant collection and
// serves filtered vector search over them.
package vectorstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/connexus-ai/knowledge-agent/pkg/config"
	"github.com/connexus-ai/knowledge-agent/pkg/domain"
	"github.com/connexus-ai/knowledge-agent/pkg/log"
)

const (
	dialTimeout     = 30 * time.Second
	upsertBatchSize = 1000

	// HNSW profile for the chunk collection.
	hnswM           = 4
	hnswEfConstruct = 400
	hnswEfSearch    = 500
)

var waitTrue = true

// Store is a Qdrant-backed vector index for document chunks.
type Store struct {
	points      pb.PointsClient
	collections pb.CollectionsClient
	conn        *grpc.ClientConn
	collection  string
	logger      interface {
		Info(msg string, args ...any)
		Warn(msg string, args ...any)
	}
}

// New connects to Qdrant and ensures the chunk collection exists.
func New(ctx context.Context, cfg config.VectorConfig) (*Store, error) {
	addr := strings.TrimPrefix(strings.TrimPrefix(cfg.URL, "http://"), "https://")

	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	conn, err := grpc.DialContext(dialCtx, addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("%w: connect to qdrant: %v", domain.ErrVectorStoreFailed, err)
	}

	s := &Store{
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		conn:        conn,
		collection:  cfg.Collection,
		logger:      log.WithModule("vectorstore"),
	}

	if err := s.EnsureSchema(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

// EnsureSchema creates the collection if absent: cosine distance, fixed
// dimension, HNSW profile m=4 / efConstruction=400. There is no migration
// path; a schema change means delete and recreate.
func (s *Store) EnsureSchema(ctx context.Context) error {
	listResp, err := s.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("%w: list collections: %v", domain.ErrVectorStoreFailed, err)
	}
	for _, col := range listResp.Collections {
		if col.Name == s.collection {
			return nil
		}
	}

	_, err = s.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(domain.EmbeddingDim),
					Distance: pb.Distance_Cosine,
				},
			},
		},
		HnswConfig: &pb.HnswConfigDiff{
			M:           ptr(uint64(hnswM)),
			EfConstruct: ptr(uint64(hnswEfConstruct)),
		},
	})
	if err != nil {
		return fmt.Errorf("%w: create collection %s: %v", domain.ErrVectorStoreFailed, s.collection, err)
	}
	s.logger.Info("created vector collection", "collection", s.collection, "dim", domain.EmbeddingDim)
	return nil
}

// Upsert merge-or-uploads chunks in batches of at most 1000. A batch failing
// at the transport level aborts the call; sample chunk ids are logged.
func (s *Store) Upsert(ctx context.Context, chunks []domain.DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	for start := 0; start < len(chunks); start += upsertBatchSize {
		end := start + upsertBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		points := make([]*pb.PointStruct, 0, len(batch))
		for _, chunk := range batch {
			if len(chunk.Embedding) != domain.EmbeddingDim {
				return fmt.Errorf("%w: chunk %s has embedding length %d, want %d",
					domain.ErrInvalidInput, chunk.ID, len(chunk.Embedding), domain.EmbeddingDim)
			}
			points = append(points, &pb.PointStruct{
				Id:      pointID(chunk.ID),
				Vectors: &pb.Vectors{VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: chunk.Embedding}}},
				Payload: chunkPayload(chunk),
			})
		}

		if _, err := s.points.Upsert(ctx, &pb.UpsertPoints{
			CollectionName: s.collection,
			Points:         points,
			Wait:           &waitTrue,
		}); err != nil {
			samples := make([]string, 0, 5)
			for _, chunk := range batch {
				if len(samples) == 5 {
					break
				}
				samples = append(samples, chunk.ID)
			}
			s.logger.Warn("upsert batch failed", "batch", start/upsertBatchSize, "samples", samples, "error", err)
			return fmt.Errorf("%w: upsert batch %d: %v", domain.ErrVectorStoreFailed, start/upsertBatchSize, err)
		}
	}
	return nil
}

// DeleteByDocumentID removes every chunk of a document. No-op when the
// document has no chunks.
func (s *Store) DeleteByDocumentID(ctx context.Context, documentID string) error {
	_, err := s.points.Delete(ctx, &pb.DeletePoints{
		CollectionName: s.collection,
		Points: &pb.PointsSelector{
			PointsSelectorOneOf: &pb.PointsSelector_Filter{
				Filter: &pb.Filter{
					Must: []*pb.Condition{keywordCondition("document_id", documentID)},
				},
			},
		},
		Wait: &waitTrue,
	})
	if err != nil {
		return fmt.Errorf("%w: delete chunks for %s: %v", domain.ErrVectorStoreFailed, documentID, err)
	}
	return nil
}

// SearchSimilar runs a pure vector query with optional site and file-type
// predicates. Results below opts.MinScore are dropped; scores are cosine
// similarities in [0, 1], larger is better.
func (s *Store) SearchSimilar(ctx context.Context, vector []float32, opts domain.SearchOptions) ([]domain.ScoredChunk, error) {
	if opts.TopK <= 0 {
		opts.TopK = 10
	}

	req := &pb.SearchPoints{
		CollectionName: s.collection,
		Vector:         vector,
		Limit:          uint64(opts.TopK),
		Filter:         searchFilter(opts),
		Params:         &pb.SearchParams{HnswEf: ptr(uint64(hnswEfSearch))},
		WithPayload: &pb.WithPayloadSelector{
			SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true},
		},
	}
	if opts.MinScore > 0 {
		req.ScoreThreshold = ptr(float32(opts.MinScore))
	}

	resp, err := s.points.Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: search: %v", domain.ErrVectorStoreFailed, err)
	}

	results := make([]domain.ScoredChunk, 0, len(resp.Result))
	for _, point := range resp.Result {
		score := float64(point.Score)
		if score < opts.MinScore {
			continue
		}
		results = append(results, domain.ScoredChunk{
			DocumentChunk: chunkFromPayload(point.Payload),
			Score:         score,
		})
	}
	return results, nil
}

// SearchHybrid accepts a text query alongside the vector. Ranking is
// dominated by vector similarity; the text query is recorded for diagnostics
// only.
func (s *Store) SearchHybrid(ctx context.Context, query string, vector []float32, opts domain.SearchOptions) ([]domain.ScoredChunk, error) {
	s.logger.Info("hybrid search", "query", query, "topK", opts.TopK)
	return s.SearchSimilar(ctx, vector, opts)
}

// Stats reports the number of stored entries and an estimate of the bytes
// they occupy.
func (s *Store) Stats(ctx context.Context) (domain.IndexStats, error) {
	resp, err := s.points.Count(ctx, &pb.CountPoints{
		CollectionName: s.collection,
		Exact:          ptr(true),
	})
	if err != nil {
		return domain.IndexStats{}, fmt.Errorf("%w: count: %v", domain.ErrVectorStoreFailed, err)
	}

	count := int64(resp.Result.Count)
	// 4 bytes per dimension plus a rough payload allowance per chunk.
	const perChunkBytes = domain.EmbeddingDim*4 + 2048
	return domain.IndexStats{
		DocumentCount: count,
		StorageSize:   count * perChunkBytes,
	}, nil
}

func (s *Store) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// pointID derives a stable UUID point id from the chunk's primary key.
func pointID(chunkID string) *pb.PointId {
	id := uuid.NewSHA1(uuid.NameSpaceURL, []byte(chunkID)).String()
	return &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: id}}
}

func searchFilter(opts domain.SearchOptions) *pb.Filter {
	var must []*pb.Condition
	if opts.SiteURL != "" {
		must = append(must, keywordCondition("site_url", opts.SiteURL))
	}
	if len(opts.FileTypes) > 0 {
		keywords := make([]string, len(opts.FileTypes))
		for i, ft := range opts.FileTypes {
			keywords[i] = string(ft)
		}
		must = append(must, &pb.Condition{
			ConditionOneOf: &pb.Condition_Field{
				Field: &pb.FieldCondition{
					Key: "file_type",
					Match: &pb.Match{
						MatchValue: &pb.Match_Keywords{
							Keywords: &pb.RepeatedStrings{Strings: keywords},
						},
					},
				},
			},
		})
	}
	if len(must) == 0 {
		return nil
	}
	return &pb.Filter{Must: must}
}

func keywordCondition(key, value string) *pb.Condition {
	return &pb.Condition{
		ConditionOneOf: &pb.Condition_Field{
			Field: &pb.FieldCondition{
				Key:   key,
				Match: &pb.Match{MatchValue: &pb.Match_Keyword{Keyword: value}},
			},
		},
	}
}

func chunkPayload(chunk domain.DocumentChunk) map[string]*pb.Value {
	return map[string]*pb.Value{
		"chunk_id":             stringValue(chunk.ID),
		"document_id":          stringValue(chunk.DocumentID),
		"drive_id":             stringValue(chunk.DriveID),
		"web_url":              stringValue(chunk.WebURL),
		"site_url":             stringValue(chunk.SiteURL),
		"site_name":            stringValue(chunk.SiteName),
		"document_title":       stringValue(chunk.DocumentTitle),
		"file_type":            stringValue(string(chunk.FileType)),
		"chunk_index":          {Kind: &pb.Value_IntegerValue{IntegerValue: int64(chunk.ChunkIndex)}},
		"chunk_text":           stringValue(chunk.ChunkText),
		"document_modified_at": stringValue(chunk.DocumentModifiedAt.UTC().Format(time.RFC3339)),
		"indexed_at":           stringValue(chunk.IndexedAt.UTC().Format(time.RFC3339)),
	}
}

// chunkFromPayload rebuilds chunk metadata from a search hit. The embedding
// is intentionally not selected.
func chunkFromPayload(payload map[string]*pb.Value) domain.DocumentChunk {
	get := func(key string) string {
		if v, ok := payload[key]; ok {
			return v.GetStringValue()
		}
		return ""
	}
	chunk := domain.DocumentChunk{
		ID:            get("chunk_id"),
		DocumentID:    get("document_id"),
		DriveID:       get("drive_id"),
		WebURL:        get("web_url"),
		SiteURL:       get("site_url"),
		SiteName:      get("site_name"),
		DocumentTitle: get("document_title"),
		FileType:      domain.FileType(get("file_type")),
		ChunkText:     get("chunk_text"),
	}
	if v, ok := payload["chunk_index"]; ok {
		chunk.ChunkIndex = int(v.GetIntegerValue())
	}
	if t, err := time.Parse(time.RFC3339, get("document_modified_at")); err == nil {
		chunk.DocumentModifiedAt = t
	}
	if t, err := time.Parse(time.RFC3339, get("indexed_at")); err == nil {
		chunk.IndexedAt = t
	}
	return chunk
}

func stringValue(s string) *pb.Value {
	return &pb.Value{Kind: &pb.Value_StringValue{StringValue: s}}
}

func ptr[T any](v T) *T { return &v }
