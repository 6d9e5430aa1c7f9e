package extract

import (
	"bytes"
	"fmt"
	"strings"

	pdf "github.com/dslipak/pdf"
)

// extractPDF decodes a PDF byte buffer into plain text. Text items within a
// page are joined by single spaces, pages by a blank line.
func extractPDF(data []byte) (text string, err error) {
	// The PDF engine panics on some malformed inputs; map that to a parse error.
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("pdf decode panic: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("pdf open: %w", err)
	}

	var pages []string
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		content := page.Content()
		items := make([]string, 0, len(content.Text))
		for _, item := range content.Text {
			if t := strings.TrimSpace(item.S); t != "" {
				items = append(items, t)
			}
		}
		if len(items) > 0 {
			pages = append(pages, strings.Join(items, " "))
		}
	}

	return strings.Join(pages, "\n\n"), nil
}
