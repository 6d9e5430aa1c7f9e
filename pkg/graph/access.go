package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"

	"github.com/connexus-ai/knowledge-agent/pkg/domain"
)

// ProbeAccess checks whether the delegated user can read a document by
// issuing a minimal metadata fetch with their own token. The classification
// is fail-closed: 403 and 404 mean no access, and so does every other
// failure, including timeouts and malformed responses. Only a clean 2xx
// grants access.
func (c *Client) ProbeAccess(ctx context.Context, documentID string, doc domain.KnowledgeDocument, token string) bool {
	var path string
	switch {
	case doc.DriveID != "" && doc.DriveItemID != "":
		path = fmt.Sprintf("/drives/%s/items/%s?$select=id", url.PathEscape(doc.DriveID), url.PathEscape(doc.DriveItemID))
	case doc.WebURL != "":
		path = fmt.Sprintf("/shares/%s/driveItem?$select=id", shareID(doc.WebURL))
	default:
		c.logger.Warn("access probe has no resolvable coordinates", "documentId", documentID)
		return false
	}

	resp, err := c.doDelegated(ctx, "GET", path, token, nil)
	if err != nil {
		c.logger.Debug("access probe failed", "documentId", documentID, "error", err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Debug("access probe denied", "documentId", documentID, "status", resp.StatusCode)
		return false
	}

	// A 2xx with an unreadable or id-less body still counts as no access.
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return false
	}
	var item struct {
		ID string `json:"id"`
	}
	if json.Unmarshal(body, &item) != nil || item.ID == "" {
		c.logger.Debug("access probe returned malformed metadata", "documentId", documentID)
		return false
	}
	return true
}

// GetUserProfile fetches the delegated user's directory profile. The manager
// lookup is best effort; a missing manager leaves the field empty.
func (c *Client) GetUserProfile(ctx context.Context, token string) (domain.UserProfile, error) {
	const selectFields = "$select=id,displayName,mail,jobTitle,department,companyName,officeLocation,city,country"

	resp, err := c.doDelegated(ctx, "GET", "/me?"+selectFields, token, nil)
	if err != nil {
		return domain.UserProfile{}, err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp, "user profile"); err != nil {
		return domain.UserProfile{}, err
	}

	var profile domain.UserProfile
	if err := decodeJSON(resp, &profile, "user profile"); err != nil {
		return domain.UserProfile{}, err
	}

	if mgr, err := c.doDelegated(ctx, "GET", "/me/manager?$select=displayName", token, nil); err == nil {
		defer mgr.Body.Close()
		if mgr.StatusCode >= 200 && mgr.StatusCode < 300 {
			var manager struct {
				DisplayName string `json:"displayName"`
			}
			if decodeJSON(mgr, &manager, "manager") == nil {
				profile.Manager = manager.DisplayName
			}
		}
	}

	return profile, nil
}
