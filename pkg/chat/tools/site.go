package tools

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/connexus-ai/knowledge-agent/pkg/domain"
)

// CurrentSite resolves the request's context site.
type CurrentSite struct {
	provider domain.Provider
	siteURL  string
}

func NewCurrentSite(provider domain.Provider, siteURL string) *CurrentSite {
	return &CurrentSite{provider: provider, siteURL: siteURL}
}

func (t *CurrentSite) Definition() domain.ToolDefinition {
	return functionDef("get_current_site",
		"Get the name and URL of the site this conversation is scoped to.",
		map[string]interface{}{}, nil)
}

func (t *CurrentSite) Execute(ctx context.Context, _ map[string]interface{}) (string, error) {
	u, err := url.Parse(t.siteURL)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("%w: invalid site url %q", domain.ErrInvalidInput, t.siteURL)
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	siteName := segments[len(segments)-1]

	site, err := t.provider.ResolveSite(ctx, u.Host, siteName)
	if err != nil {
		return "", fmt.Errorf("resolve site: %w", err)
	}
	return fmt.Sprintf("Site: %s\nURL: %s", site.Name, site.WebURL), nil
}
