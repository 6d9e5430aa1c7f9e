package extract

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/connexus-ai/knowledge-agent/pkg/domain"
)

// extractPage extracts text from a markup page. The structured page endpoint
// is preferred; when it yields nothing the raw page file bytes are stripped
// directly.
func (s *Service) extractPage(ctx context.Context, doc domain.KnowledgeDocument, data []byte) (string, error) {
	host, siteName, err := splitSiteURL(doc.SiteURL)
	if err != nil {
		return "", err
	}

	var parts []domain.PagePart
	if site, err := s.provider.ResolveSite(ctx, host, siteName); err == nil {
		parts, _ = s.provider.GetPageParts(ctx, site.ID, path.Base(doc.WebURL))
	}

	if len(parts) == 0 {
		// Structured endpoint yielded nothing; fall back to the raw page file.
		return StripHTML(string(data)), nil
	}

	var sections []string
	for _, part := range parts {
		switch {
		case part.HTML != "":
			sections = append(sections, StripHTML(part.HTML))
		case part.Text != "":
			sections = append(sections, part.Text)
		}
	}
	return strings.Join(sections, "\n\n"), nil
}

func splitSiteURL(siteURL string) (host, siteName string, err error) {
	u, err := url.Parse(siteURL)
	if err != nil || u.Host == "" {
		return "", "", fmt.Errorf("invalid site url %q", siteURL)
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	return u.Host, segments[len(segments)-1], nil
}

var (
	blockCloseTags = regexp.MustCompile(`(?i)</(?:p|div|h[1-6]|li|tr)>`)
	brTags         = regexp.MustCompile(`(?i)<br\s*/?>`)
	anyTag         = regexp.MustCompile(`<[^>]*>`)

	// Entity decoding is limited to this set on purpose; richer HTML parsing
	// is out of scope.
	entities = strings.NewReplacer(
		"&nbsp;", " ",
		" ", " ", // the parser may have already decoded &nbsp;
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
	)
)

// StripHTML reduces an HTML fragment to plain text: script and style subtrees
// are dropped, block-closing tags and <br> become newlines, remaining tags are
// removed, and the six common entities are decoded.
func StripHTML(html string) string {
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(html)); err == nil {
		doc.Find("script, style").Remove()
		if cleaned, err := doc.Html(); err == nil {
			html = cleaned
		}
	}

	html = blockCloseTags.ReplaceAllString(html, "\n")
	html = brTags.ReplaceAllString(html, "\n")
	html = anyTag.ReplaceAllString(html, "")
	return entities.Replace(html)
}
