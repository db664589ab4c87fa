// ABOUTME: Maps configured site, list, and drive names to remote identifiers
// ABOUTME: Direct site lookup with keyword-search fallback; identifier-shaped inputs pass through
package resolve

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/iTRMAutomation/mlc-village-recon-tool/graph"
	"go.uber.org/zap"
)

// API is the subset of the Graph client the resolver reads from.
type API interface {
	GetSiteByPath(ctx context.Context, hostname, path string) (*graph.Site, error)
	SearchSites(ctx context.Context, term string) ([]graph.Site, error)
	FindListsByName(ctx context.Context, siteID, name string) ([]graph.List, error)
	ListLists(ctx context.Context, siteID string) ([]graph.List, error)
	ListDrives(ctx context.Context, siteID string) ([]graph.Drive, error)
}

// ResolutionError means a site, list, or drive could not be mapped to an identifier.
type ResolutionError struct {
	Resource     string // site, list, or drive
	Query        string
	Strategy     string
	Alternatives []string
	Err          error
}

func (e *ResolutionError) Error() string {
	msg := fmt.Sprintf("could not resolve %s %q (tried %s)", e.Resource, e.Query, e.Strategy)
	if len(e.Alternatives) > 0 {
		msg += "; available: " + strings.Join(e.Alternatives, ", ")
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// Resolver resolves remote resources. It holds no state; caching belongs to the caller.
type Resolver struct {
	api API
	log *zap.Logger
}

// New creates a Resolver.
func New(api API, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{api: api, log: logger}
}

// Site resolves hostname and path. A failed direct lookup falls back to a keyword search
// ranked by path and hostname match.
func (r *Resolver) Site(ctx context.Context, hostname, path string) (*graph.Site, error) {
	site, directErr := r.api.GetSiteByPath(ctx, hostname, path)
	if directErr == nil && site != nil && site.ID != "" {
		return site, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.log.Debug("direct site lookup failed, searching",
		zap.String("hostname", hostname),
		zap.String("path", path),
		zap.Error(directErr),
	)

	term := searchTerm(hostname, path)
	strategy := fmt.Sprintf("direct lookup %s:%s, keyword search %q", hostname, path, term)
	query := hostname + path

	candidates, err := r.api.SearchSites(ctx, term)
	if err != nil {
		return nil, &ResolutionError{Resource: "site", Query: query, Strategy: strategy, Err: errors.Join(directErr, err)}
	}
	if len(candidates) == 0 {
		return nil, &ResolutionError{Resource: "site", Query: query, Strategy: strategy, Err: directErr}
	}

	best := pickSite(candidates, hostname, path)
	r.log.Debug("site resolved by search", zap.String("id", best.ID), zap.String("web_url", best.WebURL))
	return &best, nil
}

// searchTerm is the last non-empty path segment, else the path, else the hostname.
func searchTerm(hostname, path string) string {
	segments := strings.Split(path, "/")
	for i := len(segments) - 1; i >= 0; i-- {
		if s := strings.TrimSpace(segments[i]); s != "" {
			return s
		}
	}
	if p := strings.TrimSpace(path); p != "" {
		return p
	}
	return hostname
}

func pickSite(candidates []graph.Site, hostname, path string) graph.Site {
	lowPath := strings.ToLower(path)
	lowHost := strings.ToLower(hostname)

	pathMatch := -1
	for i, site := range candidates {
		if !strings.Contains(strings.ToLower(site.WebURL), lowPath) {
			continue
		}
		if lowHost != "" && strings.Contains(strings.ToLower(siteHost(site)), lowHost) {
			return site
		}
		if pathMatch < 0 {
			pathMatch = i
		}
	}
	if pathMatch >= 0 {
		return candidates[pathMatch]
	}
	return candidates[0]
}

// siteHost prefers the site-collection hostname and falls back to the web URL host.
func siteHost(site graph.Site) string {
	if host := site.Hostname(); host != "" {
		return host
	}
	if u, err := url.Parse(site.WebURL); err == nil {
		return u.Host
	}
	return ""
}

// List resolves a list display name. Identifier-shaped input is returned unchanged without
// any remote call.
func (r *Resolver) List(ctx context.Context, siteID, nameOrID string) (string, error) {
	nameOrID = strings.TrimSpace(nameOrID)
	if IsIdentifier(nameOrID) {
		return nameOrID, nil
	}

	strategy := "display name filter"
	lists, err := r.api.FindListsByName(ctx, siteID, nameOrID)
	if err != nil {
		return "", &ResolutionError{Resource: "list", Query: nameOrID, Strategy: strategy, Err: err}
	}
	if len(lists) > 0 {
		if len(lists) > 1 {
			r.log.Warn("several lists share a display name, using the first",
				zap.String("name", nameOrID), zap.Int("matches", len(lists)))
		}
		return lists[0].ID, nil
	}

	resErr := &ResolutionError{Resource: "list", Query: nameOrID, Strategy: strategy}
	if all, err := r.api.ListLists(ctx, siteID); err == nil {
		for _, l := range all {
			resErr.Alternatives = append(resErr.Alternatives, l.DisplayName)
		}
	}
	return "", resErr
}

// Drive resolves a drive name. Identifier-shaped input is returned unchanged. Without an
// exact name match the first document library is used.
func (r *Resolver) Drive(ctx context.Context, siteID, nameOrID string) (string, error) {
	nameOrID = strings.TrimSpace(nameOrID)
	if IsDriveIdentifier(nameOrID) {
		return nameOrID, nil
	}

	strategy := "exact name match, first document library"
	drives, err := r.api.ListDrives(ctx, siteID)
	if err != nil {
		return "", &ResolutionError{Resource: "drive", Query: nameOrID, Strategy: strategy, Err: err}
	}

	for _, d := range drives {
		if strings.EqualFold(strings.TrimSpace(d.Name), nameOrID) {
			return d.ID, nil
		}
	}
	for _, d := range drives {
		if d.DriveType == graph.DriveTypeDocumentLibrary {
			r.log.Warn("drive not found by name, using first document library",
				zap.String("requested", nameOrID), zap.String("using", d.Name))
			return d.ID, nil
		}
	}

	names := make([]string, 0, len(drives))
	for _, d := range drives {
		names = append(names, d.Name)
	}
	return "", &ResolutionError{Resource: "drive", Query: nameOrID, Strategy: strategy, Alternatives: names}
}

// IsIdentifier reports whether s is GUID-shaped, with or without braces.
func IsIdentifier(s string) bool {
	switch len(s) {
	case 36:
	case 38:
		if s[0] != '{' || s[37] != '}' {
			return false
		}
	default:
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

var driveIDPattern = regexp.MustCompile(`^b![A-Za-z0-9_-]{16,}$`)

// IsDriveIdentifier reports whether s is a GUID or a b!-prefixed drive id.
func IsDriveIdentifier(s string) bool {
	return IsIdentifier(s) || driveIDPattern.MatchString(s)
}
