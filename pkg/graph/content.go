package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"

	"github.com/connexus-ai/knowledge-agent/pkg/domain"
)

// DownloadBytes fetches a document's raw content under the application
// identity. Items with drive coordinates resolve directly; everything else
// is addressed by hostname and server-relative path from the web URL.
func (c *Client) DownloadBytes(ctx context.Context, doc domain.KnowledgeDocument) ([]byte, error) {
	var path string
	if doc.DriveID != "" && doc.DriveItemID != "" {
		path = fmt.Sprintf("/drives/%s/items/%s/content", url.PathEscape(doc.DriveID), url.PathEscape(doc.DriveItemID))
	} else {
		u, err := url.Parse(doc.WebURL)
		if err != nil || u.Host == "" {
			return nil, fmt.Errorf("%w: document %s has no drive coordinates and an unusable url", domain.ErrInvalidInput, doc.Title)
		}
		path = fmt.Sprintf("/sites/%s:%s:/content", u.Host, u.EscapedPath())
	}

	resp, err := c.doApp(ctx, "GET", path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp, "download "+doc.Title); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: download %s: read body: %v", domain.ErrProviderUnavailable, doc.Title, err)
	}
	return normalizeBody(data), nil
}

// normalizeBody unwraps content that arrives as a JSON string instead of raw
// bytes, which some page endpoints produce.
func normalizeBody(data []byte) []byte {
	if len(data) > 1 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err == nil {
			return []byte(s)
		}
	}
	return data
}

// ResolveSite looks up a site collection by hostname and site name.
func (c *Client) ResolveSite(ctx context.Context, host, siteName string) (domain.SiteInfo, error) {
	path := fmt.Sprintf("/sites/%s:/sites/%s", url.PathEscape(host), url.PathEscape(siteName))

	resp, err := c.doApp(ctx, "GET", path, nil)
	if err != nil {
		return domain.SiteInfo{}, err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp, "resolve site "+siteName); err != nil {
		return domain.SiteInfo{}, err
	}

	var site struct {
		ID          string `json:"id"`
		DisplayName string `json:"displayName"`
		Name        string `json:"name"`
		WebURL      string `json:"webUrl"`
	}
	if err := decodeJSON(resp, &site, "resolve site"); err != nil {
		return domain.SiteInfo{}, err
	}

	name := site.DisplayName
	if name == "" {
		name = site.Name
	}
	return domain.SiteInfo{ID: site.ID, Name: name, WebURL: site.WebURL, SiteURL: site.WebURL}, nil
}

// GetPageParts fetches the structured layout of a site page. Parts carry
// either rendered HTML or a plain-text property; both are surfaced and the
// caller picks. A page with no parts returns an empty slice, not an error.
func (c *Client) GetPageParts(ctx context.Context, siteID, pageName string) ([]domain.PagePart, error) {
	query := url.Values{}
	query.Set("$filter", fmt.Sprintf("name eq '%s'", pageName))
	query.Set("$expand", "webParts")
	path := fmt.Sprintf("/sites/%s/pages?%s", url.PathEscape(siteID), query.Encode())

	resp, err := c.doApp(ctx, "GET", path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp, "page parts "+pageName); err != nil {
		return nil, err
	}

	var parsed struct {
		Value []struct {
			WebParts []struct {
				InnerHTML string `json:"innerHtml"`
				Data      struct {
					Properties map[string]any `json:"properties"`
				} `json:"data"`
			} `json:"webParts"`
		} `json:"value"`
	}
	if err := decodeJSON(resp, &parsed, "page parts"); err != nil {
		return nil, err
	}

	var parts []domain.PagePart
	for _, page := range parsed.Value {
		for _, wp := range page.WebParts {
			part := domain.PagePart{HTML: wp.InnerHTML}
			if text, ok := wp.Data.Properties["text"].(string); ok {
				part.Text = text
			}
			if part.HTML != "" || part.Text != "" {
				parts = append(parts, part)
			}
		}
	}
	return parts, nil
}
