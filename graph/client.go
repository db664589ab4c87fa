// ABOUTME: Rate-limited Microsoft Graph HTTP client with bearer auth and correlation ids
// ABOUTME: Classifies failures into HTTPError, RemoteWriteError, and NetworkError; never retries
package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout = 60 * time.Second
	maxErrorBody   = 64 << 10
)

// TokenFunc returns a bearer token for the next request.
type TokenFunc func(ctx context.Context) (string, error)

// ClientOptions configures a Client.
type ClientOptions struct {
	// Endpoint is the versioned service root, e.g. https://graph.microsoft.com/v1.0.
	Endpoint string
	Token    TokenFunc

	HTTPClient *http.Client
	RateLimit  float64
	RateBurst  int
	Logger     *zap.Logger
	Hints      HintContext
}

// Client talks to the Graph REST surface.
type Client struct {
	endpoint string
	token    TokenFunc
	http     *http.Client
	limiter  *rate.Limiter
	log      *zap.Logger
	hints    HintContext
}

// NewClient creates a Client. A nil HTTPClient gets a default with a 60s timeout; a
// non-positive RateLimit disables throttling.
func NewClient(opts ClientOptions) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	return &Client{
		endpoint: strings.TrimRight(opts.Endpoint, "/"),
		token:    opts.Token,
		http:     httpClient,
		limiter:  limiter,
		log:      logger,
		hints:    opts.Hints,
	}
}

// Endpoint returns the versioned service root.
func (c *Client) Endpoint() string {
	return c.endpoint
}

type request struct {
	op          string
	method      string
	target      string // relative to the endpoint, or absolute
	body        []byte
	contentType string
	headers     map[string]string
	anonymous   bool // omit the Authorization header
}

type response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

func (c *Client) resolve(target string) string {
	if strings.HasPrefix(target, "https://") || strings.HasPrefix(target, "http://") {
		return target
	}
	return c.endpoint + target
}

// send performs one HTTP exchange. Only transport failures become errors here; status
// classification is left to the caller.
func (c *Client) send(ctx context.Context, req request) (*response, error) {
	endpoint := c.resolve(req.target)

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%s: rate limiter: %w", req.op, err)
	}

	var body io.Reader
	if req.body != nil {
		body = bytes.NewReader(req.body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build request: %w", req.op, err)
	}

	if !req.anonymous && c.token != nil {
		token, err := c.token(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to acquire token: %w", req.op, err)
		}
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("client-request-id", uuid.NewString())
	httpReq.Header.Set("return-client-request-id", "true")
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}
	for key, value := range req.headers {
		httpReq.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%s: %w", req.op, ctxErr)
		}
		return nil, c.networkError(req.op, endpoint, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.networkError(req.op, endpoint, fmt.Errorf("failed to read response: %w", err))
	}

	c.log.Debug("graph request",
		zap.String("op", req.op),
		zap.String("method", req.method),
		zap.String("endpoint", redact(endpoint)),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
		zap.String("request_id", httpReq.Header.Get("client-request-id")),
	)

	return &response{StatusCode: resp.StatusCode, Header: resp.Header, Body: data}, nil
}

// networkError wraps a transport failure with the endpoint's credentials stripped from
// every place the URL appears.
func (c *Client) networkError(op, endpoint string, err error) *NetworkError {
	safe := redact(endpoint)
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		urlErr.URL = redact(urlErr.URL)
	}
	return &NetworkError{Op: op, Endpoint: safe, Err: err, Hints: c.hints.hints(safe)}
}

// getJSON issues a GET and decodes a 2xx body into out.
func (c *Client) getJSON(ctx context.Context, op, target string, out any) error {
	resp, err := c.send(ctx, request{op: op, method: http.MethodGet, target: target})
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return readError(op, resp)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("%s: failed to decode response: %w", op, err)
	}
	return nil
}

// writeJSON issues a write. Any status outside accept becomes a RemoteWriteError carrying
// the response body verbatim.
func (c *Client) writeJSON(ctx context.Context, req request, accept []int, out any) error {
	resp, err := c.send(ctx, req)
	if err != nil {
		return err
	}
	if !statusIn(resp.StatusCode, accept) {
		return &RemoteWriteError{Op: req.op, Endpoint: redact(c.resolve(req.target)), StatusCode: resp.StatusCode, Body: truncate(resp.Body)}
	}
	if out == nil || len(resp.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("%s: failed to decode response: %w", req.op, err)
	}
	return nil
}

// getAll follows @odata.nextLink until the collection is exhausted.
func getAll[T any](ctx context.Context, c *Client, op, target string) ([]T, error) {
	var all []T
	for target != "" {
		var page Collection[T]
		if err := c.getJSON(ctx, op, target, &page); err != nil {
			return nil, err
		}
		all = append(all, page.Value...)
		target = page.NextLink
	}
	return all, nil
}

// Probe reports whether target answers at all. Any HTTP response, including an error
// status, counts as reachable.
func (c *Client) Probe(ctx context.Context, target string) (int, error) {
	resp, err := c.send(ctx, request{op: "probe", method: http.MethodGet, target: target, anonymous: true})
	if err != nil {
		return 0, err
	}
	return resp.StatusCode, nil
}

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func readError(op string, resp *response) error {
	httpErr := &HTTPError{Op: op, StatusCode: resp.StatusCode}
	var envelope errorEnvelope
	if err := json.Unmarshal(resp.Body, &envelope); err == nil && envelope.Error.Code != "" {
		httpErr.Code = envelope.Error.Code
		httpErr.Message = envelope.Error.Message
	} else {
		httpErr.Message = strings.TrimSpace(truncate(resp.Body))
		if httpErr.Message == "" {
			httpErr.Message = http.StatusText(resp.StatusCode)
		}
	}
	return httpErr
}

func statusIn(status int, accept []int) bool {
	for _, s := range accept {
		if s == status {
			return true
		}
	}
	return false
}

func truncate(body []byte) string {
	if len(body) > maxErrorBody {
		return string(body[:maxErrorBody]) + "...(truncated)"
	}
	return string(body)
}

// redact drops the query string, which carries upload session credentials.
func redact(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil || u.RawQuery == "" {
		return endpoint
	}
	if strings.Contains(u.Path, "uploadSession") || u.Query().Has("tempauth") {
		u.RawQuery = ""
		return u.String() + "?<redacted>"
	}
	return endpoint
}

// escapePath escapes each segment of a slash-separated path.
func escapePath(p string) string {
	parts := strings.Split(strings.Trim(p, "/"), "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}

// queryEscape encodes a query value with %20 for spaces.
func queryEscape(v string) string {
	return strings.ReplaceAll(url.QueryEscape(v), "+", "%20")
}

// IsNetwork reports whether err is a transport-level failure.
func IsNetwork(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr)
}
