package graph

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestQueryComposition(t *testing.T) {
	q := NewQuery().
		Marker().
		FileTypes().
		Path("https://contoso.sharepoint.com/sites/Engineering").
		String()

	assert.Equal(t,
		`KnowledgeBaseDoc:1 (filetype:pdf OR filetype:doc OR filetype:docx OR filetype:aspx) path:"https://contoso.sharepoint.com/sites/Engineering"`,
		q)
}

func TestQueryModifiedSince(t *testing.T) {
	q := NewQuery().ModifiedSince(30).String()

	since := time.Now().UTC().AddDate(0, 0, -30).Format("2006-01-02")
	assert.Equal(t, fmt.Sprintf("LastModifiedTime>=%s", since), q)
}

func TestQuerySkipsEmptyClauses(t *testing.T) {
	q := NewQuery().Marker().Path("").ModifiedSince(0).Keywords("  ").String()

	assert.Equal(t, "KnowledgeBaseDoc:1", q)
}

func TestQueryKeywords(t *testing.T) {
	q := NewQuery().Keywords("vacation policy").Path("https://contoso.sharepoint.com/sites/HR").String()

	assert.Equal(t, `vacation policy path:"https://contoso.sharepoint.com/sites/HR"`, q)
}
