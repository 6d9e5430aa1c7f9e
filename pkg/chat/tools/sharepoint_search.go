package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/connexus-ai/knowledge-agent/pkg/domain"
)

// maxKeywordResults caps the listing returned to the model.
const maxKeywordResults = 10

// SharepointSearch is the keyword retrieval tool. It runs under the user's
// delegated credential, so the provider itself trims results to what the
// user can see.
type SharepointSearch struct {
	provider domain.Provider
	user     domain.UserIdentity
	siteURL  string
}

func NewSharepointSearch(provider domain.Provider, user domain.UserIdentity, siteURL string) *SharepointSearch {
	return &SharepointSearch{provider: provider, user: user, siteURL: siteURL}
}

func (t *SharepointSearch) Definition() domain.ToolDefinition {
	return functionDef("sharepoint_search",
		"Search documents and pages on the current site by keyword. Pass only 1-3 topic keywords.",
		map[string]interface{}{
			"query": map[string]interface{}{"type": "string", "description": "One to three topic keywords"},
		},
		[]string{"query"})
}

func (t *SharepointSearch) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	query := strings.TrimSpace(stringArg(args, "query"))
	if query == "" {
		return "", fmt.Errorf("%w: query is required", domain.ErrInvalidInput)
	}

	scoped := fmt.Sprintf("%s site:%q (IsDocument:1 OR filetype:aspx)", query, t.siteURL)
	hits, err := t.provider.SearchRaw(ctx, scoped, maxKeywordResults, t.user.Token)
	if err != nil {
		return "", fmt.Errorf("keyword search: %w", err)
	}
	if len(hits) == 0 {
		return "No documents found for that query.", nil
	}

	type listing struct {
		Name         string `json:"name"`
		Summary      string `json:"summary,omitempty"`
		WebURL       string `json:"webUrl"`
		DriveID      string `json:"driveId,omitempty"`
		ItemID       string `json:"itemId,omitempty"`
		LastModified string `json:"lastModified,omitempty"`
	}
	listings := make([]listing, 0, len(hits))
	for _, hit := range hits {
		entry := listing{
			Name:    hit.Name,
			Summary: hit.Summary,
			WebURL:  hit.WebURL,
			DriveID: hit.DriveID,
			ItemID:  hit.DriveItemID,
		}
		if !hit.LastModified.IsZero() {
			entry.LastModified = hit.LastModified.UTC().Format(time.RFC3339)
		}
		listings = append(listings, entry)
	}

	encoded, err := json.MarshalIndent(listings, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode results: %w", err)
	}
	return string(encoded), nil
}
