package tools

import (
	"context"
	"fmt"

	"github.com/connexus-ai/knowledge-agent/pkg/domain"
	"github.com/connexus-ai/knowledge-agent/pkg/extract"
)

// maxFileContentChars bounds how much extracted text a single tool result
// feeds into the model.
const maxFileContentChars = 8000

// ReadFile downloads and extracts a single document the user can access.
type ReadFile struct {
	provider  domain.Provider
	extractor domain.Extractor
	user      domain.UserIdentity
}

func NewReadFile(provider domain.Provider, extractor domain.Extractor, user domain.UserIdentity) *ReadFile {
	return &ReadFile{provider: provider, extractor: extractor, user: user}
}

func (t *ReadFile) Definition() domain.ToolDefinition {
	return functionDef("read_file_content",
		"Read the full text content of a document. Use the driveId and itemId returned by a search tool.",
		map[string]interface{}{
			"driveId": map[string]interface{}{"type": "string", "description": "Drive identifier of the document"},
			"itemId":  map[string]interface{}{"type": "string", "description": "Item identifier within the drive"},
			"name":    map[string]interface{}{"type": "string", "description": "File name, used to pick the decoder"},
		},
		[]string{"driveId", "itemId", "name"})
}

func (t *ReadFile) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	driveID := stringArg(args, "driveId")
	itemID := stringArg(args, "itemId")
	name := stringArg(args, "name")
	if driveID == "" || itemID == "" || name == "" {
		return "", fmt.Errorf("%w: driveId, itemId and name are required", domain.ErrInvalidInput)
	}

	doc := domain.KnowledgeDocument{
		ID:          itemID,
		Title:       name,
		FileType:    domain.FileTypeFromName(name),
		DriveID:     driveID,
		DriveItemID: itemID,
	}

	// The download itself runs under the application identity, so the user's
	// own access is verified first.
	if !t.provider.ProbeAccess(ctx, doc.ID, doc, t.user.Token) {
		return "", fmt.Errorf("%w: %s", domain.ErrAccessDenied, name)
	}

	data, err := t.provider.DownloadBytes(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", name, err)
	}

	text, err := t.extractor.Extract(ctx, doc, data)
	if err != nil {
		return "", err
	}
	text = extract.Normalize(text)

	if len(text) > maxFileContentChars {
		text = text[:maxFileContentChars] + "\n[Content truncated]"
	}
	return text, nil
}
