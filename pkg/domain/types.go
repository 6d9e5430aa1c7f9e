package domain

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"
)

// EmbeddingDim is the fixed dimensionality of every stored embedding.
// The vector index is created with this size and Upsert rejects anything else.
const EmbeddingDim = 1536

// FileType identifies the binary format of a discovered document.
type FileType string

const (
	FileTypePDF     FileType = "pdf"
	FileTypeDoc     FileType = "doc"
	FileTypeDocx    FileType = "docx"
	FileTypeAspx    FileType = "aspx"
	FileTypeUnknown FileType = "unknown"
)

// FileTypeFromName infers a file type from a filename extension.
func FileTypeFromName(name string) FileType {
	switch strings.ToLower(strings.TrimPrefix(path.Ext(name), ".")) {
	case "pdf":
		return FileTypePDF
	case "doc":
		return FileTypeDoc
	case "docx":
		return FileTypeDocx
	case "aspx":
		return FileTypeAspx
	default:
		return FileTypeUnknown
	}
}

// KnowledgeDocument is a candidate document discovered by a provider search.
// Instances are immutable and live for a single pipeline pass.
type KnowledgeDocument struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	WebURL       string    `json:"webUrl"`
	FileType     FileType  `json:"fileType"`
	LastModified time.Time `json:"lastModified"`
	SiteURL      string    `json:"siteUrl"`
	SiteName     string    `json:"siteName"`
	DriveID      string    `json:"driveId,omitempty"`
	DriveItemID  string    `json:"driveItemId,omitempty"`
}

// TextChunk is a bounded span of extracted text.
type TextChunk struct {
	Index       int    `json:"index"`
	Text        string `json:"text"`
	StartOffset int    `json:"startOffset"`
	EndOffset   int    `json:"endOffset"`
}

// DocumentChunk is the persisted unit in the vector index. All chunks of a
// document share identical document metadata.
type DocumentChunk struct {
	ID                 string    `json:"id"`
	DocumentID         string    `json:"documentId"`
	DriveID            string    `json:"driveId,omitempty"`
	WebURL             string    `json:"webUrl"`
	SiteURL            string    `json:"siteUrl"`
	SiteName           string    `json:"siteName"`
	DocumentTitle      string    `json:"documentTitle"`
	FileType           FileType  `json:"fileType"`
	ChunkIndex         int       `json:"chunkIndex"`
	ChunkText          string    `json:"chunkText"`
	Embedding          []float32 `json:"embedding,omitempty"`
	DocumentModifiedAt time.Time `json:"documentModifiedAt"`
	IndexedAt          time.Time `json:"indexedAt"`
}

var chunkIDUnsafe = regexp.MustCompile(`[^A-Za-z0-9_\-=]`)

// ChunkID builds the URL-safe primary key `<sanitized-documentId>_chunk_<index>`.
func ChunkID(documentID string, index int) string {
	return fmt.Sprintf("%s_chunk_%d", chunkIDUnsafe.ReplaceAllString(documentID, "_"), index)
}

// ScoredChunk is a search hit with its similarity score in [0, 1].
type ScoredChunk struct {
	DocumentChunk
	Score float64 `json:"score"`
}

// SearchMode selects the retrieval strategy exposed to the chat agent.
type SearchMode string

const (
	SearchModeRAG SearchMode = "rag"
	SearchModeKQL SearchMode = "kql"
)

// ChatMessage is one turn of a conversation.
type ChatMessage struct {
	Role       string     `json:"role"` // user, assistant, system, tool
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ChatContext scopes a chat request to a site and retrieval mode.
type ChatContext struct {
	SiteURL    string     `json:"siteUrl"`
	SearchMode SearchMode `json:"searchMode,omitempty"`
}

type ChatRequest struct {
	Messages []ChatMessage `json:"messages"`
	Context  ChatContext   `json:"context"`
}

type ChatResponse struct {
	Response   string        `json:"response"`
	Messages   []ChatMessage `json:"messages"`
	SearchMode SearchMode    `json:"searchMode"`
}

// UserIdentity is the validated caller attached by the auth middleware.
// Token is the raw delegated bearer credential, subject to the user's
// access controls on downstream resources.
type UserIdentity struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Token string `json:"-"`
}

// UserProfile is the delegated user's directory profile.
type UserProfile struct {
	ID             string `json:"id"`
	DisplayName    string `json:"displayName"`
	Mail           string `json:"mail"`
	JobTitle       string `json:"jobTitle,omitempty"`
	Department     string `json:"department,omitempty"`
	CompanyName    string `json:"companyName,omitempty"`
	OfficeLocation string `json:"officeLocation,omitempty"`
	City           string `json:"city,omitempty"`
	Country        string `json:"country,omitempty"`
	Manager        string `json:"manager,omitempty"`
}

// SiteInfo describes a resolved site.
type SiteInfo struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	WebURL  string `json:"webUrl"`
	SiteURL string `json:"siteUrl"`
}

// PagePart is one structured fragment of a markup page.
type PagePart struct {
	HTML string `json:"html,omitempty"`
	Text string `json:"text,omitempty"`
}

// SearchHit is one raw result from the provider's keyword search.
type SearchHit struct {
	Name         string    `json:"name"`
	Summary      string    `json:"summary"`
	WebURL       string    `json:"webUrl"`
	DriveID      string    `json:"driveId,omitempty"`
	DriveItemID  string    `json:"driveItemId,omitempty"`
	LastModified time.Time `json:"lastModified"`
}

// IndexerResult summarizes one pipeline pass. Duration stays a time.Duration
// for logs and the CLI; the wire field carries whole milliseconds.
type IndexerResult struct {
	DocumentsFound     int           `json:"documentsFound"`
	DocumentsProcessed int           `json:"documentsProcessed"`
	ChunksCreated      int           `json:"chunksCreated"`
	Errors             []string      `json:"errors"`
	Duration           time.Duration `json:"-"`
	DurationMs         int64         `json:"durationMs"`
}

// IndexStats reports the current size of the vector index.
type IndexStats struct {
	DocumentCount int64 `json:"documentCount"`
	StorageSize   int64 `json:"storageSize"`
}

// Embedding is one embedded input with its amortized token cost.
type Embedding struct {
	Vector     []float32 `json:"vector"`
	TokenCount int       `json:"tokenCount"`
}

// SearchOptions narrows a vector search.
type SearchOptions struct {
	TopK      int
	SiteURL   string
	FileTypes []FileType
	MinScore  float64
}

// Provider wraps the hosted document platform.
type Provider interface {
	Search(ctx context.Context, query string, size int) ([]KnowledgeDocument, error)
	SearchRaw(ctx context.Context, query string, size int, token string) ([]SearchHit, error)
	DownloadBytes(ctx context.Context, doc KnowledgeDocument) ([]byte, error)
	ResolveSite(ctx context.Context, host, siteName string) (SiteInfo, error)
	GetPageParts(ctx context.Context, siteID, pageName string) ([]PagePart, error)
	ProbeAccess(ctx context.Context, documentID string, doc KnowledgeDocument, token string) bool
	GetUserProfile(ctx context.Context, token string) (UserProfile, error)
}

// Extractor decodes document bytes into plain text.
type Extractor interface {
	Extract(ctx context.Context, doc KnowledgeDocument, data []byte) (string, error)
}

// Chunker splits text into overlapping, boundary-aware chunks.
type Chunker interface {
	Split(text string) []TextChunk
}

// Embedder turns an ordered list of texts into an equally ordered list of
// embeddings.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([]Embedding, error)
}

// VectorStore owns the remote vector index.
type VectorStore interface {
	EnsureSchema(ctx context.Context) error
	Upsert(ctx context.Context, chunks []DocumentChunk) error
	DeleteByDocumentID(ctx context.Context, documentID string) error
	SearchSimilar(ctx context.Context, vector []float32, opts SearchOptions) ([]ScoredChunk, error)
	SearchHybrid(ctx context.Context, query string, vector []float32, opts SearchOptions) ([]ScoredChunk, error)
	Stats(ctx context.Context) (IndexStats, error)
}

// Tool calling types follow the chat-completions function calling shape.

type ToolDefinition struct {
	Type     string       `json:"type"` // always "function"
	Function ToolFunction `json:"function"`
}

type ToolFunction struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

type FunctionCall struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

// GenerationResult is one model turn: content, or tool calls to satisfy.
type GenerationResult struct {
	Content   string     `json:"content"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// GenerationOptions tune a single completion call.
type GenerationOptions struct {
	Temperature float64
	MaxTokens   int
}

// Generator drives the chat-completion model.
type Generator interface {
	GenerateWithTools(ctx context.Context, messages []ChatMessage, tools []ToolDefinition, opts *GenerationOptions) (*GenerationResult, error)
}
