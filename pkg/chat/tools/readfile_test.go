package tools

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/connexus-ai/knowledge-agent/pkg/domain"
)

type fixedExtractor struct {
	text string
}

func (e fixedExtractor) Extract(context.Context, domain.KnowledgeDocument, []byte) (string, error) {
	return e.text, nil
}

func readArgs() map[string]interface{} {
	return map[string]interface{}{
		"driveId": "d1",
		"itemId":  "i1",
		"name":    "doc.pdf",
	}
}

func TestReadFileTruncates(t *testing.T) {
	provider := &toolProvider{access: map[string]bool{"i1": true}}
	tool := NewReadFile(provider, fixedExtractor{text: strings.Repeat("word ", 2000)}, domain.UserIdentity{Token: "tok"})

	out, err := tool.Execute(context.Background(), readArgs())
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(out, "[Content truncated]"))
	assert.LessOrEqual(t, len(out), maxFileContentChars+len("\n[Content truncated]"))
}

func TestReadFileShortContentUntouched(t *testing.T) {
	provider := &toolProvider{access: map[string]bool{"i1": true}}
	tool := NewReadFile(provider, fixedExtractor{text: "short body"}, domain.UserIdentity{Token: "tok"})

	out, err := tool.Execute(context.Background(), readArgs())
	require.NoError(t, err)
	assert.Equal(t, "short body", out)
}

// The user's own access is verified before the file is fetched.
func TestReadFileDeniedWithoutAccess(t *testing.T) {
	provider := &toolProvider{access: map[string]bool{}}
	tool := NewReadFile(provider, fixedExtractor{text: "secret"}, domain.UserIdentity{Token: "tok"})

	_, err := tool.Execute(context.Background(), readArgs())
	assert.True(t, errors.Is(err, domain.ErrAccessDenied))
}

func TestReadFileRequiresCoordinates(t *testing.T) {
	tool := NewReadFile(&toolProvider{}, fixedExtractor{}, domain.UserIdentity{})

	_, err := tool.Execute(context.Background(), map[string]interface{}{"driveId": "d1"})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}
