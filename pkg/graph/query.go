package graph

import (
	"fmt"
	"strings"
	"time"
)

// markerClause tags documents that belong to the knowledge corpus. Only items
// carrying the marker column are ever indexed.
const markerClause = "KnowledgeBaseDoc:1"

// indexableTypes is the file-type whitelist the indexer accepts.
var indexableTypes = []string{"pdf", "doc", "docx", "aspx"}

// Query composes a keyword query for the provider's search endpoint. Clauses
// are field:value tokens joined by spaces, which the endpoint treats as AND.
type Query struct {
	clauses []string
}

func NewQuery() *Query {
	return &Query{}
}

// Marker restricts hits to documents tagged for the knowledge corpus.
func (q *Query) Marker() *Query {
	q.clauses = append(q.clauses, markerClause)
	return q
}

// FileTypes restricts hits to the indexable file-type whitelist.
func (q *Query) FileTypes() *Query {
	alts := make([]string, len(indexableTypes))
	for i, t := range indexableTypes {
		alts[i] = "filetype:" + t
	}
	q.clauses = append(q.clauses, "("+strings.Join(alts, " OR ")+")")
	return q
}

// Path scopes hits to a single site. Empty siteURL is a no-op.
func (q *Query) Path(siteURL string) *Query {
	if siteURL != "" {
		q.clauses = append(q.clauses, fmt.Sprintf("path:%q", siteURL))
	}
	return q
}

// ModifiedSince keeps hits modified within the last daysBack days, at day
// granularity in UTC.
func (q *Query) ModifiedSince(daysBack int) *Query {
	if daysBack > 0 {
		since := time.Now().UTC().AddDate(0, 0, -daysBack).Format("2006-01-02")
		q.clauses = append(q.clauses, "LastModifiedTime>="+since)
	}
	return q
}

// Keywords appends free-text terms.
func (q *Query) Keywords(terms string) *Query {
	if terms = strings.TrimSpace(terms); terms != "" {
		q.clauses = append(q.clauses, terms)
	}
	return q
}

func (q *Query) String() string {
	return strings.Join(q.clauses, " ")
}
