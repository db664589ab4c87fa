// ABOUTME: Tests for the Graph client against an httptest server
// ABOUTME: Covers auth headers, paging, error classification, hints, and chunk PUT headers
package graph

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient(ClientOptions{
		Endpoint: server.URL + "/v1.0",
		Token: func(ctx context.Context) (string, error) {
			return "test-token", nil
		},
		HTTPClient: server.Client(),
		Hints:      HintContext{SiteHostname: "contoso.sharepoint.com", SitePath: "/sites/recon"},
	})
	return client, server
}

func TestGetSiteByPathSendsBearerAndRequestID(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1.0/sites/contoso.sharepoint.com:/sites/recon", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("client-request-id"))
		_ = json.NewEncoder(w).Encode(Site{ID: "contoso.sharepoint.com,1,2", WebURL: "https://contoso.sharepoint.com/sites/recon"})
	})

	site, err := client.GetSiteByPath(context.Background(), "contoso.sharepoint.com", "/sites/recon")
	require.NoError(t, err)
	assert.Equal(t, "contoso.sharepoint.com,1,2", site.ID)
}

func TestFindListsByNameDoublesQuotes(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1.0/sites/site-1/lists", r.URL.Path)
		assert.Equal(t, "displayName eq 'Ravi''s Reports'", r.URL.Query().Get("$filter"))
		_ = json.NewEncoder(w).Encode(Collection[List]{Value: []List{{ID: "list-1", DisplayName: "Ravi's Reports"}}})
	})

	lists, err := client.FindListsByName(context.Background(), "site-1", "Ravi's Reports")
	require.NoError(t, err)
	require.Len(t, lists, 1)
	assert.Equal(t, "list-1", lists[0].ID)
}

func TestListColumnsFollowsNextLink(t *testing.T) {
	var server *httptest.Server
	client, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			_ = json.NewEncoder(w).Encode(Collection[Column]{Value: []Column{{Name: "Notes"}}})
			return
		}
		_ = json.NewEncoder(w).Encode(Collection[Column]{
			Value:    []Column{{Name: "Title"}},
			NextLink: server.URL + "/v1.0/sites/s/lists/l/columns?page=2",
		})
	})

	columns, err := client.ListColumns(context.Background(), "s", "l")
	require.NoError(t, err)
	require.Len(t, columns, 2)
	assert.Equal(t, "Title", columns[0].Name)
	assert.Equal(t, "Notes", columns[1].Name)
}

func TestReadErrorIsHTTPError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":{"code":"itemNotFound","message":"The resource could not be found."}}`)
	})

	_, err := client.GetItemByPath(context.Background(), "drive-1", "Recon/2024")
	require.Error(t, err)

	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, "itemNotFound", httpErr.Code)
	assert.True(t, IsNotFound(err))
}

func TestWriteErrorCarriesBody(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":{"code":"invalidRequest","message":"Field 'Bogus' is not recognized"}}`)
	})

	_, err := client.CreateListItem(context.Background(), "site-1", "list-1", map[string]any{"Bogus": "x"})
	var writeErr *RemoteWriteError
	require.True(t, errors.As(err, &writeErr), "expected RemoteWriteError, got %v", err)
	assert.Equal(t, http.StatusBadRequest, writeErr.StatusCode)
	assert.Contains(t, writeErr.Body, "Bogus")
}

func TestTransportFailureIsNetworkErrorWithHints(t *testing.T) {
	client, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	server.Close()

	_, err := client.ListDrives(context.Background(), "site-1")
	require.Error(t, err)
	assert.True(t, IsNetwork(err))

	var netErr *NetworkError
	require.True(t, errors.As(err, &netErr))
	joined := strings.Join(netErr.Hints, "\n")
	assert.Contains(t, joined, "/v1.0/sites/site-1/drives")
	assert.Contains(t, joined, "contoso.sharepoint.com/sites/recon")
	assert.Contains(t, joined, "firewall")
}

func TestCancelledContextIsNotNetworkError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.ListDrives(ctx, "site-1")
	require.Error(t, err)
	assert.False(t, IsNetwork(err))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCreateFolderUsesParentChildrenCollection(t *testing.T) {
	var paths []string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "replace", body["@microsoft.graph.conflictBehavior"])
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(DriveItem{ID: "new", Name: body["name"].(string)})
	})

	_, err := client.CreateFolder(context.Background(), "drive-1", "", "Recon")
	require.NoError(t, err)
	_, err = client.CreateFolder(context.Background(), "drive-1", "parent-9", "2024")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"/v1.0/drives/drive-1/root/children",
		"/v1.0/drives/drive-1/items/parent-9/children",
	}, paths)
}

func TestPutChunkOmitsAuthorization(t *testing.T) {
	client, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		assert.Equal(t, "bytes 10-14/20", r.Header.Get("Content-Range"))
		assert.Equal(t, int64(5), r.ContentLength)
		w.WriteHeader(http.StatusAccepted)
		_, _ = io.WriteString(w, `{"nextExpectedRanges":["15-"]}`)
	})

	resp, err := client.PutChunk(context.Background(), server.URL+"/upload/session-1", []byte("hello"), 10, 20)
	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
}

func TestChunkTransportFailureRedactsSessionCredentials(t *testing.T) {
	client, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	uploadURL := server.URL + "/v1.0/drives/d/items/i/uploadSession?guid=abc&tempauth=SECRET-TOKEN"
	server.Close()

	_, err := client.PutChunk(context.Background(), uploadURL, []byte("hello"), 0, 5)
	require.Error(t, err)
	assert.True(t, IsNetwork(err))
	assert.NotContains(t, err.Error(), "SECRET-TOKEN")
	assert.Contains(t, err.Error(), "uploadSession?<redacted>")

	var netErr *NetworkError
	require.True(t, errors.As(err, &netErr))
	assert.NotContains(t, netErr.Endpoint, "tempauth")
	assert.NotContains(t, strings.Join(netErr.Hints, "\n"), "SECRET-TOKEN")
	assert.NotContains(t, netErr.Err.Error(), "SECRET-TOKEN")
}

func TestProbeTreatsAnyStatusAsReachable(t *testing.T) {
	client, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusUnauthorized)
	})

	status, err := client.Probe(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestItemPathEscapesSegments(t *testing.T) {
	assert.Equal(t, "/drives/d/root", itemPath("d", "/"))
	assert.Equal(t, "/drives/d/root:/Recon%20Photos/2024", itemPath("d", "Recon Photos/2024"))
	assert.Equal(t, "contoso.sharepoint.com,abc,def", segment("contoso.sharepoint.com,abc,def"))
}
