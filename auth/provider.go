// ABOUTME: Credential providers yielding bearer tokens for Graph
// ABOUTME: Silent cached/refresh path first, then exactly one interactive attempt
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// ErrInteractiveUnavailable means the provider cannot prompt the user.
var ErrInteractiveUnavailable = errors.New("interactive sign-in is not available")

// Provider obtains access tokens. Silent must not involve the user.
type Provider interface {
	Silent(ctx context.Context, scopes []string) (string, error)
	Interactive(ctx context.Context, scopes []string) (string, error)
}

// AccessToken tries the silent path, then the interactive path once.
func AccessToken(ctx context.Context, p Provider, scopes []string) (string, error) {
	token, _, err := acquire(ctx, p, scopes)
	return token, err
}

// acquire reports whether the token came from an interactive sign-in.
func acquire(ctx context.Context, p Provider, scopes []string) (string, bool, error) {
	token, silentErr := p.Silent(ctx, scopes)
	if silentErr == nil {
		return token, false, nil
	}
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	token, err := p.Interactive(ctx, scopes)
	if err != nil {
		return "", false, fmt.Errorf("failed to acquire access token: %w", errors.Join(silentErr, err))
	}
	return token, true, nil
}

// TokenFunc adapts a provider to a per-request token callback. onReauth, when set, runs
// after every successful interactive sign-in, since the signed-in user may have changed.
func TokenFunc(p Provider, scopes []string, onReauth func()) func(ctx context.Context) (string, error) {
	return func(ctx context.Context) (string, error) {
		token, interactive, err := acquire(ctx, p, scopes)
		if err == nil && interactive && onReauth != nil {
			onReauth()
		}
		return token, err
	}
}

// Store persists delegated tokens between runs.
type Store interface {
	Load() (*oauth2.Token, error)
	Save(token *oauth2.Token) error
	Delete() error
}

// DeviceCodeProvider signs a user in with the device authorization grant and refreshes
// the stored token silently afterwards.
type DeviceCodeProvider struct {
	config *oauth2.Config
	store  Store
	prompt func(*oauth2.DeviceAuthResponse)
	log    *zap.Logger

	mu      sync.Mutex
	token   *oauth2.Token
	signIns uint64

	// flow serializes device code prompts.
	flow sync.Mutex
}

// NewDeviceCodeProvider creates a provider. A nil prompt disables the interactive path.
func NewDeviceCodeProvider(config *oauth2.Config, store Store, prompt func(*oauth2.DeviceAuthResponse), logger *zap.Logger) *DeviceCodeProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DeviceCodeProvider{config: config, store: store, prompt: prompt, log: logger}
}

func (p *DeviceCodeProvider) scoped(scopes []string) *oauth2.Config {
	if len(scopes) == 0 {
		return p.config
	}
	conf := *p.config
	conf.Scopes = scopes
	return &conf
}

// Silent returns the cached token, refreshing it when expired.
func (p *DeviceCodeProvider) Silent(ctx context.Context, scopes []string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.token == nil {
		stored, err := p.store.Load()
		if err != nil {
			return "", err
		}
		p.token = stored
	}
	if p.token.Valid() {
		return p.token.AccessToken, nil
	}
	if p.token.RefreshToken == "" {
		return "", ErrNoCachedToken
	}

	fresh, err := p.scoped(scopes).TokenSource(ctx, p.token).Token()
	if err != nil {
		return "", fmt.Errorf("failed to refresh token: %w", err)
	}
	p.remember(fresh)
	return fresh.AccessToken, nil
}

// Interactive runs the device code flow. Concurrent callers share one prompt: a caller
// that waited on another caller's sign-in returns that token.
func (p *DeviceCodeProvider) Interactive(ctx context.Context, scopes []string) (string, error) {
	if p.prompt == nil {
		return "", ErrInteractiveUnavailable
	}

	p.mu.Lock()
	seen := p.signIns
	p.mu.Unlock()

	p.flow.Lock()
	defer p.flow.Unlock()

	p.mu.Lock()
	if p.signIns != seen && p.token != nil && p.token.Valid() {
		token := p.token.AccessToken
		p.mu.Unlock()
		return token, nil
	}
	p.mu.Unlock()

	conf := p.scoped(scopes)

	resp, err := conf.DeviceAuth(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to start device sign-in: %w", err)
	}
	p.prompt(resp)

	token, err := conf.DeviceAccessToken(ctx, resp)
	if err != nil {
		return "", fmt.Errorf("device sign-in failed: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.remember(token)
	p.signIns++
	return token.AccessToken, nil
}

// remember keeps token in memory and on disk. Callers hold p.mu.
func (p *DeviceCodeProvider) remember(token *oauth2.Token) {
	if token.RefreshToken == "" && p.token != nil {
		token.RefreshToken = p.token.RefreshToken
	}
	p.token = token
	if err := p.store.Save(token); err != nil {
		p.log.Warn("failed to persist token", zap.Error(err))
	}
}

// SignOut forgets the in-memory and stored token.
func (p *DeviceCodeProvider) SignOut() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.token = nil
	return p.store.Delete()
}

// ClientCredentialsProvider authenticates as the application itself.
type ClientCredentialsProvider struct {
	config clientcredentials.Config

	mu     sync.Mutex
	source oauth2.TokenSource
}

// NewClientCredentialsProvider creates an app-only provider. Graph only accepts the
// resource's .default scope for this grant.
func NewClientCredentialsProvider(clientID, clientSecret, tokenURL, graphBase string) *ClientCredentialsProvider {
	return &ClientCredentialsProvider{config: clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenURL,
		Scopes:       []string{strings.TrimRight(graphBase, "/") + "/.default"},
	}}
}

// Silent returns a cached app token, fetching one when needed.
func (p *ClientCredentialsProvider) Silent(ctx context.Context, scopes []string) (string, error) {
	p.mu.Lock()
	if p.source == nil {
		p.source = oauth2.ReuseTokenSource(nil, p.config.TokenSource(context.WithoutCancel(ctx)))
	}
	source := p.source
	p.mu.Unlock()

	token, err := source.Token()
	if err != nil {
		return "", fmt.Errorf("failed to acquire app token: %w", err)
	}
	return token.AccessToken, nil
}

// Interactive discards the cached source and fetches a fresh app token.
func (p *ClientCredentialsProvider) Interactive(ctx context.Context, scopes []string) (string, error) {
	token, err := p.config.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to acquire app token: %w", err)
	}
	p.mu.Lock()
	p.source = oauth2.ReuseTokenSource(token, p.config.TokenSource(context.WithoutCancel(ctx)))
	p.mu.Unlock()
	return token.AccessToken, nil
}

// StaticProvider serves a pre-issued token.
type StaticProvider struct {
	Token string
}

func (p StaticProvider) Silent(ctx context.Context, scopes []string) (string, error) {
	if p.Token == "" {
		return "", ErrNoCachedToken
	}
	return p.Token, nil
}

func (p StaticProvider) Interactive(ctx context.Context, scopes []string) (string, error) {
	return "", ErrInteractiveUnavailable
}
