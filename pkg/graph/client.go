// Package graph adapts the Microsoft Graph REST surface to the document
// provider operations the indexer and chat agent need.
//
// Two credential modes exist side by side. The indexer runs on an application
// token obtained through the client-credentials grant; chat tools and access
// probes run on the caller's delegated bearer token, so every downstream call
// is subject to that user's own permissions.
package graph

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2/clientcredentials"

	"github.com/connexus-ai/knowledge-agent/pkg/config"
	"github.com/connexus-ai/knowledge-agent/pkg/domain"
	"github.com/connexus-ai/knowledge-agent/pkg/log"
)

const requestTimeout = 60 * time.Second

// maxSearchSize is the endpoint's hard page-size ceiling.
const maxSearchSize = 500

// Client talks to the Graph REST API.
type Client struct {
	baseURL string
	geo     string

	// app carries the client-credentials token source; delegated carries
	// no credentials and expects a bearer token per call.
	app       *http.Client
	delegated *http.Client

	logger interface {
		Debug(msg string, args ...any)
		Warn(msg string, args ...any)
	}
}

// New builds a client with an application token source for the given tenant.
func New(cfg config.GraphConfig, id config.IdentityConfig) *Client {
	cc := clientcredentials.Config{
		ClientID:     id.ClientID,
		ClientSecret: id.ClientSecret,
		TokenURL:     fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", id.TenantID),
		Scopes:       []string{"https://graph.microsoft.com/.default"},
	}

	app := cc.Client(context.Background())
	app.Timeout = requestTimeout

	return &Client{
		baseURL:   strings.TrimSuffix(cfg.BaseURL, "/"),
		geo:       cfg.Geo,
		app:       app,
		delegated: &http.Client{Timeout: requestTimeout},
		logger:    log.WithModule("graph"),
	}
}

// doApp issues a request under the application identity.
func (c *Client) doApp(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", domain.ErrProviderUnavailable, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.app.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", domain.ErrProviderUnavailable, method, path, err)
	}
	return resp, nil
}

// doDelegated issues a request under the caller's own bearer token.
func (c *Client) doDelegated(ctx context.Context, method, path, token string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", domain.ErrProviderUnavailable, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.delegated.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", domain.ErrProviderUnavailable, method, path, err)
	}
	return resp, nil
}

// checkStatus maps HTTP failures onto the domain sentinels and drains the body.
func checkStatus(resp *http.Response, op string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	switch resp.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s: %s", domain.ErrNotFound, op, strings.TrimSpace(string(detail)))
	case http.StatusForbidden, http.StatusUnauthorized:
		return fmt.Errorf("%w: %s: status %d", domain.ErrAccessDenied, op, resp.StatusCode)
	default:
		return fmt.Errorf("%w: %s: status %d: %s", domain.ErrProviderUnavailable, op, resp.StatusCode, strings.TrimSpace(string(detail)))
	}
}

// shareID encodes a web URL into the opaque sharing token used by the
// /shares endpoint, for items that carry no drive coordinates.
func shareID(webURL string) string {
	enc := base64.StdEncoding.EncodeToString([]byte(webURL))
	enc = strings.TrimRight(enc, "=")
	enc = strings.ReplaceAll(enc, "/", "_")
	enc = strings.ReplaceAll(enc, "+", "-")
	return "u!" + enc
}

// siteFromWebURL derives the containing site's URL and name from an item URL.
// Site collections live under /sites/<name> or /teams/<name>.
func siteFromWebURL(webURL string) (siteURL, siteName string) {
	u, err := url.Parse(webURL)
	if err != nil || u.Host == "" {
		return "", ""
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segments) >= 2 && (segments[0] == "sites" || segments[0] == "teams") {
		return u.Scheme + "://" + u.Host + "/" + segments[0] + "/" + segments[1], segments[1]
	}
	return u.Scheme + "://" + u.Host, u.Host
}

// decodeJSON decodes a response body, folding parse failures into the
// provider error class.
func decodeJSON(resp *http.Response, out any, op string) error {
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %s: decode: %v", domain.ErrProviderUnavailable, op, err)
	}
	return nil
}
