// ABOUTME: OAuth configuration and token storage for Microsoft identity
// ABOUTME: Builds tenant endpoints and keeps the delegated token at an XDG data path
package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/iTRMAutomation/mlc-village-recon-tool/config"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/microsoft"
)

// ErrNoCachedToken means no token has been stored yet.
var ErrNoCachedToken = errors.New("no cached token; run 'recon auth login'")

// NewOAuthConfig creates the delegated OAuth2 config for the configured tenant.
func NewOAuthConfig(cfg *config.Config) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURI,
		Scopes:       append([]string(nil), cfg.Scopes...),
		Endpoint:     Endpoint(cfg),
	}
}

// Endpoint returns the authorize, token, and device code URLs for the configured
// authority and tenant.
func Endpoint(cfg *config.Config) oauth2.Endpoint {
	if strings.TrimRight(cfg.Authority, "/") == config.DefaultAuthority {
		return microsoft.AzureADEndpoint(cfg.TenantID)
	}
	base := cfg.AuthorityEndpoint() + "/oauth2/v2.0"
	return oauth2.Endpoint{
		AuthURL:       base + "/authorize",
		TokenURL:      base + "/token",
		DeviceAuthURL: base + "/devicecode",
	}
}

// TokenPath returns XDG-compliant path for storing OAuth tokens.
func TokenPath() string {
	return filepath.Join(xdg.DataHome, config.AppName, "graph-token.json")
}

// FileStore persists a token as JSON.
type FileStore struct {
	Path string
}

// NewFileStore returns a store at the XDG token path.
func NewFileStore() *FileStore {
	return &FileStore{Path: TokenPath()}
}

// Save writes the token with owner-only permissions.
func (s *FileStore) Save(token *oauth2.Token) error {
	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	f, err := os.OpenFile(s.Path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create token file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := json.NewEncoder(f).Encode(token); err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}

	return nil
}

// Load reads the stored token. A missing file is ErrNoCachedToken.
func (s *FileStore) Load() (*oauth2.Token, error) {
	f, err := os.Open(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoCachedToken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open token file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var token oauth2.Token
	if err := json.NewDecoder(f).Decode(&token); err != nil {
		return nil, fmt.Errorf("failed to decode token: %w", err)
	}

	return &token, nil
}

// Delete removes the stored token. Deleting a missing token is not an error.
func (s *FileStore) Delete() error {
	if err := os.Remove(s.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove token file: %w", err)
	}
	return nil
}

// NewProvider picks the credential provider for cfg: a pre-issued token when one is
// given, client credentials when a client secret is configured, otherwise the device code
// flow backed by store.
func NewProvider(cfg *config.Config, accessToken string, store Store, prompt func(*oauth2.DeviceAuthResponse), logger *zap.Logger) Provider {
	if accessToken != "" {
		return StaticProvider{Token: accessToken}
	}
	if cfg.ClientSecret != "" {
		return NewClientCredentialsProvider(cfg.ClientID, cfg.ClientSecret, Endpoint(cfg).TokenURL, cfg.GraphBaseURL)
	}
	return NewDeviceCodeProvider(NewOAuthConfig(cfg), store, prompt, logger)
}
