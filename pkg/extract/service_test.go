package extract

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/connexus-ai/knowledge-agent/pkg/domain"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"crlf to lf", "one\r\ntwo\rthree", "one\ntwo\nthree"},
		{"space runs collapse", "a  \t b   c", "a b c"},
		{"line edges trimmed", "  padded  \n\tindented\t", "padded\nindented"},
		{"blank line runs collapse", "a\n\n\n\n\nb", "a\n\nb"},
		{"single paragraph break kept", "a\n\nb", "a\n\nb"},
		{"empty", "   \n \n ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestStripHTML(t *testing.T) {
	html := `<html><head><style>p { color: red }</style></head><body>
<script>alert("never")</script>
<h1>Heading</h1><p>First &amp; second &lt;para&gt;</p><div>Block</div>
Line one<br/>Line two&nbsp;end
</body></html>`

	text := StripHTML(html)

	assert.Contains(t, text, "Heading")
	assert.Contains(t, text, "First & second <para>")
	assert.Contains(t, text, "Block")
	assert.NotContains(t, text, "alert")
	assert.NotContains(t, text, "color: red")
	assert.NotContains(t, text, "<p>")
	// Block closers and <br> become line breaks.
	assert.Contains(t, text, "Heading\n")
	assert.Contains(t, text, "Line one\nLine two end")
}

func TestWordXMLText(t *testing.T) {
	doc := `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>First paragraph.</w:t></w:r></w:p>
    <w:p><w:r><w:t>Second</w:t></w:r><w:r><w:t xml:space="preserve"> half.</w:t></w:r></w:p>
  </w:body>
</w:document>`

	text, err := wordXMLText(strings.NewReader(doc))
	require.NoError(t, err)

	assert.Contains(t, text, "First paragraph.")
	assert.Contains(t, text, "Second half.")
	// Paragraph ends become newlines.
	assert.Contains(t, text, "First paragraph.\n")
}

// Unknown file types extract to nothing rather than failing.
func TestExtractUnknownType(t *testing.T) {
	svc := New(stubProvider{})
	doc := domain.KnowledgeDocument{Title: "mystery.bin", FileType: domain.FileTypeUnknown}

	text, err := svc.Extract(context.Background(), doc, []byte{0x00, 0x01})
	require.NoError(t, err)
	assert.Empty(t, text)
}

// A legacy binary .doc is not a zip container and surfaces as an extraction
// failure the pipeline can skip.
func TestExtractLegacyDocFails(t *testing.T) {
	svc := New(stubProvider{})
	doc := domain.KnowledgeDocument{Title: "old.doc", FileType: domain.FileTypeDoc}

	_, err := svc.Extract(context.Background(), doc, []byte("\xd0\xcf\x11\xe0 legacy ole container"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrExtractionFailed))
}

func TestExtractMalformedPDFFails(t *testing.T) {
	svc := New(stubProvider{})
	doc := domain.KnowledgeDocument{Title: "bad.pdf", FileType: domain.FileTypePDF}

	_, err := svc.Extract(context.Background(), doc, []byte("not a pdf at all"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrExtractionFailed))
}

type stubProvider struct{}

func (stubProvider) Search(context.Context, string, int) ([]domain.KnowledgeDocument, error) {
	return nil, nil
}
func (stubProvider) SearchRaw(context.Context, string, int, string) ([]domain.SearchHit, error) {
	return nil, nil
}
func (stubProvider) DownloadBytes(context.Context, domain.KnowledgeDocument) ([]byte, error) {
	return nil, nil
}
func (stubProvider) ResolveSite(context.Context, string, string) (domain.SiteInfo, error) {
	return domain.SiteInfo{}, errors.New("not implemented")
}
func (stubProvider) GetPageParts(context.Context, string, string) ([]domain.PagePart, error) {
	return nil, nil
}
func (stubProvider) ProbeAccess(context.Context, string, domain.KnowledgeDocument, string) bool {
	return false
}
func (stubProvider) GetUserProfile(context.Context, string) (domain.UserProfile, error) {
	return domain.UserProfile{}, nil
}
