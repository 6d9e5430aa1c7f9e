package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/connexus-ai/knowledge-agent/pkg/domain"
)

type searchRequest struct {
	Requests []searchQuery `json:"requests"`
}

type searchQuery struct {
	EntityTypes []string          `json:"entityTypes"`
	Query       searchQueryString `json:"query"`
	From        int               `json:"from"`
	Size        int               `json:"size"`
	Region      string            `json:"region,omitempty"`
	Fields      []string          `json:"fields,omitempty"`
}

type searchQueryString struct {
	QueryString string `json:"queryString"`
}

type searchResponse struct {
	Value []struct {
		HitsContainers []struct {
			Hits []searchHit `json:"hits"`
		} `json:"hitsContainers"`
	} `json:"value"`
}

// searchHit mirrors the subset of the hit resource the pipeline consumes.
// Unknown fields are ignored, malformed hits never panic.
type searchHit struct {
	HitID    string `json:"hitId"`
	Summary  string `json:"summary"`
	Resource struct {
		ID                   string    `json:"id"`
		Name                 string    `json:"name"`
		WebURL               string    `json:"webUrl"`
		LastModifiedDateTime time.Time `json:"lastModifiedDateTime"`
		ParentReference      struct {
			DriveID string `json:"driveId"`
			SiteID  string `json:"siteId"`
		} `json:"parentReference"`
	} `json:"resource"`
}

func (c *Client) runSearch(ctx context.Context, query string, size int, token string) ([]searchHit, error) {
	if size <= 0 || size > maxSearchSize {
		size = maxSearchSize
	}

	body, err := json.Marshal(searchRequest{Requests: []searchQuery{{
		EntityTypes: []string{"driveItem", "listItem"},
		Query:       searchQueryString{QueryString: query},
		From:        0,
		Size:        size,
		Region:      c.geo,
		Fields:      []string{"id", "name", "webUrl", "lastModifiedDateTime", "parentReference"},
	}}})
	if err != nil {
		return nil, fmt.Errorf("%w: encode search request: %v", domain.ErrInvalidInput, err)
	}

	var resp *http.Response
	if token == "" {
		resp, err = c.doApp(ctx, "POST", "/search/query", bytes.NewReader(body))
	} else {
		resp, err = c.doDelegated(ctx, "POST", "/search/query", token, bytes.NewReader(body))
	}
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp, "search"); err != nil {
		return nil, err
	}

	var parsed searchResponse
	if err := decodeJSON(resp, &parsed, "search"); err != nil {
		return nil, err
	}

	var hits []searchHit
	for _, value := range parsed.Value {
		for _, container := range value.HitsContainers {
			hits = append(hits, container.Hits...)
		}
	}
	c.logger.Debug("search completed", "query", query, "hits", len(hits))
	return hits, nil
}

// Search runs an application-identity query and maps hits onto knowledge
// documents. Missing file types are inferred from the hit name.
func (c *Client) Search(ctx context.Context, query string, size int) ([]domain.KnowledgeDocument, error) {
	hits, err := c.runSearch(ctx, query, size, "")
	if err != nil {
		return nil, err
	}

	docs := make([]domain.KnowledgeDocument, 0, len(hits))
	for _, hit := range hits {
		id := hit.Resource.ID
		if id == "" {
			id = hit.HitID
		}
		if id == "" || hit.Resource.WebURL == "" {
			continue
		}
		siteURL, siteName := siteFromWebURL(hit.Resource.WebURL)
		docs = append(docs, domain.KnowledgeDocument{
			ID:           id,
			Title:        hit.Resource.Name,
			WebURL:       hit.Resource.WebURL,
			FileType:     domain.FileTypeFromName(hit.Resource.Name),
			LastModified: hit.Resource.LastModifiedDateTime,
			SiteURL:      siteURL,
			SiteName:     siteName,
			DriveID:      hit.Resource.ParentReference.DriveID,
			DriveItemID:  hit.Resource.ID,
		})
	}
	return docs, nil
}

// SearchRaw runs a delegated-identity query and returns hits as-is, for the
// keyword search tool.
func (c *Client) SearchRaw(ctx context.Context, query string, size int, token string) ([]domain.SearchHit, error) {
	hits, err := c.runSearch(ctx, query, size, token)
	if err != nil {
		return nil, err
	}

	out := make([]domain.SearchHit, 0, len(hits))
	for _, hit := range hits {
		out = append(out, domain.SearchHit{
			Name:         hit.Resource.Name,
			Summary:      hit.Summary,
			WebURL:       hit.Resource.WebURL,
			DriveID:      hit.Resource.ParentReference.DriveID,
			DriveItemID:  hit.Resource.ID,
			LastModified: hit.Resource.LastModifiedDateTime,
		})
	}
	return out, nil
}
