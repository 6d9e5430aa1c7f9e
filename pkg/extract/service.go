// Package extract decodes document bytes into normalized plain text.
// Unparsable content yields empty text; the indexing pipeline treats that
// as a skip, never as a fatal error.
package extract

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/connexus-ai/knowledge-agent/pkg/domain"
	"github.com/connexus-ai/knowledge-agent/pkg/log"
)

// MinContentLength is the shortest normalized text worth indexing.
const MinContentLength = 50

// Service dispatches extraction by file type. Markup pages go through the
// provider's structured page endpoint; binary formats decode locally.
type Service struct {
	provider domain.Provider
	logger   interface {
		Warn(msg string, args ...any)
	}
}

func New(provider domain.Provider) *Service {
	return &Service{provider: provider, logger: log.WithModule("extract")}
}

// Extract returns the normalized text of a document, or "" when the format
// is unknown or the content cannot be parsed.
func (s *Service) Extract(ctx context.Context, doc domain.KnowledgeDocument, data []byte) (string, error) {
	var (
		text string
		err  error
	)

	switch doc.FileType {
	case domain.FileTypePDF:
		text, err = extractPDF(data)
	case domain.FileTypeDoc, domain.FileTypeDocx:
		text, err = extractWord(data)
	case domain.FileTypeAspx:
		text, err = s.extractPage(ctx, doc, data)
	default:
		return "", nil
	}

	if err != nil {
		s.logger.Warn("extraction failed, skipping document",
			"document", doc.Title, "fileType", doc.FileType, "error", err)
		return "", fmt.Errorf("%w: %s: %v", domain.ErrExtractionFailed, doc.Title, err)
	}

	return Normalize(text), nil
}

var (
	spaceRuns   = regexp.MustCompile(`[ \t]+`)
	newlineRuns = regexp.MustCompile(`\n{3,}`)
)

// Normalize canonicalizes whitespace: LF line endings, single spaces, at most
// one blank line between paragraphs, no padding around lines or ends.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = spaceRuns.ReplaceAllString(text, " ")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	text = strings.Join(lines, "\n")

	text = newlineRuns.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
