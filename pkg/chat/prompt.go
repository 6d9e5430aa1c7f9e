package chat

import (
	"fmt"
	"strings"
	"time"

	"github.com/connexus-ai/knowledge-agent/pkg/domain"
)

// systemPrompt composes the agent's system message from a base block, a
// mode-specific tools block, and a common closing block.
func systemPrompt(user domain.UserIdentity, mode domain.SearchMode, now time.Time) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "You are a knowledge assistant helping %s (%s).\n", user.Name, user.Email)
	fmt.Fprintf(&sb, "Current time: %s\n\n", now.UTC().Format("2006-01-02 15:04:05 UTC"))

	switch mode {
	case domain.SearchModeRAG:
		sb.WriteString(`Available tools:
- knowledge_search: searches the indexed knowledge base. Pass the user's question verbatim. Do not rephrase, augment, or add context to the query.
- get_current_site: returns the site this conversation is about.
- get_current_user: returns the asking user's profile.
- read_file_content: reads the full text of one document by driveId and itemId.

Answer questions using knowledge_search first. Use read_file_content when a source needs more detail than its snippet.
`)
	default:
		sb.WriteString(`Available tools:
- sharepoint_search: searches documents and pages on the current site. Pass only 1 to 3 topic keywords. Never include user-specific context such as names or emails in the query.
- get_current_site: returns the site this conversation is about.
- get_current_user: returns the asking user's profile.
- read_file_content: reads the full text of one document by driveId and itemId.

Answer questions by searching with sharepoint_search, then reading the most promising documents with read_file_content.
`)
	}

	sb.WriteString(`
When answering:
- Prefer hedged phrasing such as "it appears that" over absolute statements.
- Include verbatim quotes from the sources you used.
- End your answer by citing the webUrl of every source you relied on.
- If the tools return nothing relevant, say so instead of guessing.`)

	return sb.String()
}
