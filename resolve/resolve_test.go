// ABOUTME: Tests for site, list, and drive resolution against an in-memory API
// ABOUTME: Pins call counts for identifier pass-through and the search fallback ranking
package resolve

import (
	"context"
	"errors"
	"testing"

	"github.com/iTRMAutomation/mlc-village-recon-tool/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	site       *graph.Site
	siteErr    error
	search     []graph.Site
	searchTerm string
	lists      []graph.List
	allLists   []graph.List
	drives     []graph.Drive
	calls      int
}

func (f *fakeAPI) GetSiteByPath(ctx context.Context, hostname, path string) (*graph.Site, error) {
	f.calls++
	return f.site, f.siteErr
}

func (f *fakeAPI) SearchSites(ctx context.Context, term string) ([]graph.Site, error) {
	f.calls++
	f.searchTerm = term
	return f.search, nil
}

func (f *fakeAPI) FindListsByName(ctx context.Context, siteID, name string) ([]graph.List, error) {
	f.calls++
	return f.lists, nil
}

func (f *fakeAPI) ListLists(ctx context.Context, siteID string) ([]graph.List, error) {
	f.calls++
	return f.allLists, nil
}

func (f *fakeAPI) ListDrives(ctx context.Context, siteID string) ([]graph.Drive, error) {
	f.calls++
	return f.drives, nil
}

func TestListIdentifierMakesNoCalls(t *testing.T) {
	api := &fakeAPI{}
	r := New(api, nil)

	for _, id := range []string{
		"3f2504e0-4f89-11d3-9a0c-0305e82c3301",
		"{3F2504E0-4F89-11D3-9A0C-0305E82C3301}",
	} {
		got, err := r.List(context.Background(), "site-1", id)
		require.NoError(t, err)
		assert.Equal(t, id, got)
	}
	assert.Equal(t, 0, api.calls)
}

func TestListByName(t *testing.T) {
	api := &fakeAPI{lists: []graph.List{{ID: "list-7", DisplayName: "Village Reports"}}}
	got, err := New(api, nil).List(context.Background(), "site-1", "Village Reports")
	require.NoError(t, err)
	assert.Equal(t, "list-7", got)
}

func TestListNotFoundListsAlternatives(t *testing.T) {
	api := &fakeAPI{allLists: []graph.List{{DisplayName: "Documents"}, {DisplayName: "Site Pages"}}}
	_, err := New(api, nil).List(context.Background(), "site-1", "Village Reports")

	var resErr *ResolutionError
	require.True(t, errors.As(err, &resErr))
	assert.Equal(t, "list", resErr.Resource)
	assert.Equal(t, []string{"Documents", "Site Pages"}, resErr.Alternatives)
}

func TestSiteDirectLookup(t *testing.T) {
	api := &fakeAPI{site: &graph.Site{ID: "site-1"}}
	site, err := New(api, nil).Site(context.Background(), "contoso.example", "/sites/demo")
	require.NoError(t, err)
	assert.Equal(t, "site-1", site.ID)
	assert.Equal(t, 1, api.calls)
}

func TestSiteSearchFallbackPrefersPathAndHostname(t *testing.T) {
	api := &fakeAPI{
		siteErr: &graph.HTTPError{StatusCode: 404, Message: "not found"},
		search: []graph.Site{
			{ID: "other", WebURL: "https://fabrikam.example/sites/other"},
			{ID: "path-only", WebURL: "https://fabrikam.example/sites/demo"},
			{
				ID:             "both",
				WebURL:         "https://contoso.example/sites/demo",
				SiteCollection: &graph.SiteCollection{Hostname: "contoso.example"},
			},
		},
	}

	site, err := New(api, nil).Site(context.Background(), "contoso.example", "/sites/demo")
	require.NoError(t, err)
	assert.Equal(t, "both", site.ID)
	assert.Equal(t, "demo", api.searchTerm)
}

func TestSiteSearchFallsBackToPathMatchThenFirst(t *testing.T) {
	miss := &graph.HTTPError{StatusCode: 404}

	api := &fakeAPI{siteErr: miss, search: []graph.Site{
		{ID: "first", WebURL: "https://x.example/sites/zzz"},
		{ID: "path", WebURL: "https://x.example/Sites/Demo"},
	}}
	site, err := New(api, nil).Site(context.Background(), "contoso.example", "/sites/demo")
	require.NoError(t, err)
	assert.Equal(t, "path", site.ID, "path match is case-insensitive")

	api = &fakeAPI{siteErr: miss, search: []graph.Site{{ID: "first"}, {ID: "second"}}}
	site, err = New(api, nil).Site(context.Background(), "contoso.example", "/sites/demo")
	require.NoError(t, err)
	assert.Equal(t, "first", site.ID)
}

func TestSiteNoCandidatesNamesBothStrategies(t *testing.T) {
	api := &fakeAPI{siteErr: &graph.HTTPError{StatusCode: 404}}
	_, err := New(api, nil).Site(context.Background(), "contoso.example", "/sites/demo")

	var resErr *ResolutionError
	require.True(t, errors.As(err, &resErr))
	assert.Contains(t, resErr.Strategy, "direct lookup")
	assert.Contains(t, resErr.Strategy, "keyword search")
}

func TestDriveResolution(t *testing.T) {
	drives := []graph.Drive{
		{ID: "d-style", Name: "Style Library", DriveType: "documentLibrary"},
		{ID: "d-docs", Name: "Documents", DriveType: "documentLibrary"},
	}

	got, err := New(&fakeAPI{drives: drives}, nil).Drive(context.Background(), "site-1", "documents")
	require.NoError(t, err)
	assert.Equal(t, "d-docs", got)

	got, err = New(&fakeAPI{drives: drives}, nil).Drive(context.Background(), "site-1", "Photos")
	require.NoError(t, err)
	assert.Equal(t, "d-style", got, "falls back to the first document library")

	api := &fakeAPI{}
	got, err = New(api, nil).Drive(context.Background(), "site-1", "b!AbCdEfGhIjKlMnOpQrStUv_wxyz-0123")
	require.NoError(t, err)
	assert.Equal(t, "b!AbCdEfGhIjKlMnOpQrStUv_wxyz-0123", got)
	assert.Equal(t, 0, api.calls)
}

func TestDriveNotFoundListsNames(t *testing.T) {
	api := &fakeAPI{drives: []graph.Drive{{ID: "1", Name: "Personal", DriveType: "business"}}}
	_, err := New(api, nil).Drive(context.Background(), "site-1", "Documents")

	var resErr *ResolutionError
	require.True(t, errors.As(err, &resErr))
	assert.Equal(t, []string{"Personal"}, resErr.Alternatives)
	assert.Contains(t, err.Error(), "Personal")
}

func TestIdentifierShapes(t *testing.T) {
	assert.True(t, IsIdentifier("3f2504e0-4f89-11d3-9a0c-0305e82c3301"))
	assert.False(t, IsIdentifier("Village Reports"))
	assert.False(t, IsIdentifier("{3f2504e0-4f89-11d3-9a0c-0305e82c3301"))
	assert.False(t, IsIdentifier("3f2504e04f8911d39a0c0305e82c3301"))
	assert.False(t, IsDriveIdentifier("Documents"))
	assert.False(t, IsDriveIdentifier("b!short"))
}
