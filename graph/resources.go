// ABOUTME: Typed Graph calls for sites, lists, columns, drives, drive items, and list items
// ABOUTME: Path-addressed reads plus the folder, content, upload-session, and record writes
package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// GetSiteByPath looks a site up directly by hostname and server-relative path.
func (c *Client) GetSiteByPath(ctx context.Context, hostname, path string) (*Site, error) {
	target := "/sites/" + segment(hostname) + ":/" + escapePath(path)
	var site Site
	if err := c.getJSON(ctx, "get site", target, &site); err != nil {
		return nil, err
	}
	return &site, nil
}

// SearchSites runs a keyword search across sites visible to the caller.
func (c *Client) SearchSites(ctx context.Context, term string) ([]Site, error) {
	return getAll[Site](ctx, c, "search sites", "/sites?search="+queryEscape(term))
}

// FindListsByName returns the lists whose display name equals name.
func (c *Client) FindListsByName(ctx context.Context, siteID, name string) ([]List, error) {
	filter := "displayName eq '" + strings.ReplaceAll(name, "'", "''") + "'"
	target := "/sites/" + segment(siteID) + "/lists?$filter=" + queryEscape(filter)
	return getAll[List](ctx, c, "find list", target)
}

// ListLists returns every list in the site.
func (c *Client) ListLists(ctx context.Context, siteID string) ([]List, error) {
	return getAll[List](ctx, c, "list lists", "/sites/"+segment(siteID)+"/lists")
}

// ListColumns returns the column definitions of a list.
func (c *Client) ListColumns(ctx context.Context, siteID, listID string) ([]Column, error) {
	target := "/sites/" + segment(siteID) + "/lists/" + segment(listID) + "/columns"
	return getAll[Column](ctx, c, "list columns", target)
}

// ListDrives returns the drives of a site.
func (c *Client) ListDrives(ctx context.Context, siteID string) ([]Drive, error) {
	return getAll[Drive](ctx, c, "list drives", "/sites/"+segment(siteID)+"/drives")
}

// GetItemByPath reads a drive item addressed by its path from the drive root. An empty
// path addresses the root itself.
func (c *Client) GetItemByPath(ctx context.Context, driveID, path string) (*DriveItem, error) {
	target := itemPath(driveID, path)
	var item DriveItem
	if err := c.getJSON(ctx, "get item", target, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// CreateFolder creates name under parentID, or under the drive root when parentID is
// empty. Existing folders are replaced on conflict.
func (c *Client) CreateFolder(ctx context.Context, driveID, parentID, name string) (*DriveItem, error) {
	target := "/drives/" + segment(driveID) + "/root/children"
	if parentID != "" {
		target = "/drives/" + segment(driveID) + "/items/" + segment(parentID) + "/children"
	}
	body, err := json.Marshal(map[string]any{
		"name":                              name,
		"folder":                            map[string]any{},
		"@microsoft.graph.conflictBehavior": "replace",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode folder request: %w", err)
	}

	var item DriveItem
	req := request{op: "create folder", method: http.MethodPost, target: target, body: body, contentType: "application/json"}
	if err := c.writeJSON(ctx, req, []int{http.StatusOK, http.StatusCreated}, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// PutContent writes a small file in one request.
func (c *Client) PutContent(ctx context.Context, driveID, path, contentType string, data []byte) (*DriveItem, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	target := itemPath(driveID, path) + ":/content"
	var item DriveItem
	req := request{op: "put content", method: http.MethodPut, target: target, body: data, contentType: contentType}
	if err := c.writeJSON(ctx, req, []int{http.StatusOK, http.StatusCreated}, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// CreateUploadSession opens a resumable upload session for path.
func (c *Client) CreateUploadSession(ctx context.Context, driveID, path string) (*UploadSession, error) {
	target := itemPath(driveID, path) + ":/createUploadSession"
	body, err := json.Marshal(map[string]any{
		"item": map[string]any{"@microsoft.graph.conflictBehavior": "replace"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode upload session request: %w", err)
	}

	var session UploadSession
	req := request{op: "create upload session", method: http.MethodPost, target: target, body: body, contentType: "application/json"}
	if err := c.writeJSON(ctx, req, []int{http.StatusOK, http.StatusCreated}, &session); err != nil {
		return nil, err
	}
	if session.UploadURL == "" {
		return nil, &RemoteWriteError{Op: req.op, Endpoint: c.resolve(target), StatusCode: http.StatusOK, Body: "upload session has no uploadUrl"}
	}
	return &session, nil
}

// PutChunk sends bytes [start, start+len(chunk)) of a total-byte file to an upload
// session URL. The session URL is pre-authorized, so no bearer token is sent. Status
// handling is left to the caller.
func (c *Client) PutChunk(ctx context.Context, uploadURL string, chunk []byte, start, total int64) (*ChunkResponse, error) {
	end := start + int64(len(chunk)) - 1
	resp, err := c.send(ctx, request{
		op:          "upload chunk",
		method:      http.MethodPut,
		target:      uploadURL,
		body:        chunk,
		contentType: "application/octet-stream",
		headers: map[string]string{
			"Content-Length": strconv.Itoa(len(chunk)),
			"Content-Range":  fmt.Sprintf("bytes %d-%d/%d", start, end, total),
		},
		anonymous: true,
	})
	if err != nil {
		return nil, err
	}
	return &ChunkResponse{StatusCode: resp.StatusCode, Body: resp.Body}, nil
}

// CreateListItem creates one list record with the given internal-name keyed fields.
func (c *Client) CreateListItem(ctx context.Context, siteID, listID string, fields map[string]any) (*ListItem, error) {
	body, err := json.Marshal(map[string]any{"fields": fields})
	if err != nil {
		return nil, fmt.Errorf("failed to encode list item: %w", err)
	}
	target := "/sites/" + segment(siteID) + "/lists/" + segment(listID) + "/items"

	var item ListItem
	req := request{op: "create list item", method: http.MethodPost, target: target, body: body, contentType: "application/json"}
	if err := c.writeJSON(ctx, req, []int{http.StatusOK, http.StatusCreated}, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func itemPath(driveID, path string) string {
	path = strings.Trim(path, "/")
	if path == "" {
		return "/drives/" + segment(driveID) + "/root"
	}
	return "/drives/" + segment(driveID) + "/root:/" + escapePath(path)
}

// segment escapes a single path segment such as an id or hostname. Graph composite site ids
// contain commas, which are left intact.
func segment(s string) string {
	return strings.ReplaceAll(escapePath(s), "%2C", ",")
}
