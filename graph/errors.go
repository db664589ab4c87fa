// ABOUTME: Typed transport errors for the Graph client
// ABOUTME: HTTPError for reads, RemoteWriteError for rejected writes, NetworkError with operator hints
package graph

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// HTTPError is a non-success response to a read.
type HTTPError struct {
	Op         string
	StatusCode int
	Code       string
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: http %d %s: %s", e.Op, e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: http %d: %s", e.Op, e.StatusCode, e.Message)
}

// IsNotFound reports whether err is an HTTPError with status 404.
func IsNotFound(err error) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.StatusCode == 404
}

// RemoteWriteError is a non-success status from a write call. Body is kept verbatim for
// diagnosis.
type RemoteWriteError struct {
	Op         string
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *RemoteWriteError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("%s rejected: status=%d endpoint=%s", e.Op, e.StatusCode, e.Endpoint)
	}
	return fmt.Sprintf("%s rejected: status=%d endpoint=%s body=%s", e.Op, e.StatusCode, e.Endpoint, body)
}

// NetworkError is a transport-level failure (DNS, TLS, connection reset, proxy) as opposed
// to an application error. Hints carry operator-actionable guidance.
type NetworkError struct {
	Op       string
	Endpoint string
	Err      error
	Hints    []string
}

func (e *NetworkError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: network failure calling %s: %v", e.Op, e.Endpoint, e.Err)
	for _, hint := range e.Hints {
		b.WriteString("\n  hint: ")
		b.WriteString(hint)
	}
	return b.String()
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// HintContext is the configuration echoed back to the operator when the network fails.
type HintContext struct {
	SiteHostname string
	SitePath     string
	RedirectURI  string
}

func (h HintContext) hints(endpoint string) []string {
	host := endpoint
	if u, err := url.Parse(endpoint); err == nil && u.Host != "" {
		host = u.Host
	}
	hints := []string{
		fmt.Sprintf("endpoint: %s", endpoint),
	}
	if h.SiteHostname != "" || h.SitePath != "" {
		hints = append(hints, fmt.Sprintf("configured site: %s%s (check site_hostname and site_path)", h.SiteHostname, h.SitePath))
	}
	hints = append(hints,
		fmt.Sprintf("check that outbound HTTPS to %s is allowed by the firewall or proxy", host),
		"when calling from a browser origin, the endpoint must allow that origin (CORS)",
	)
	if h.RedirectURI != "" {
		hints = append(hints, fmt.Sprintf("verify the app registration redirect URI %s matches the origin used to sign in", h.RedirectURI))
	}
	return hints
}
