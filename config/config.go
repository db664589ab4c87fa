// ABOUTME: Validated runtime configuration for the report submission core
// ABOUTME: Loads .env, an XDG YAML file, and RECON_* overrides, then validates once at start
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // operational zone must resolve on hosts without zoneinfo

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// AppName is the directory name used under the XDG base directories.
	AppName = "recon"

	// ConfigFileName is the YAML file looked up under the XDG config home.
	ConfigFileName = "config.yaml"

	DefaultGraphBaseURL = "https://graph.microsoft.com"
	DefaultGraphVersion = "v1.0"
	DefaultTimeZone     = "Asia/Kolkata"
	DefaultTenantID     = "organizations"
	DefaultAuthority    = "https://login.microsoftonline.com"
	DefaultRateLimit    = 8.0
	DefaultRateBurst    = 4
)

// DefaultScopes is the fixed scope set the credential capability asks for.
var DefaultScopes = []string{
	"https://graph.microsoft.com/Sites.ReadWrite.All",
	"https://graph.microsoft.com/Files.ReadWrite.All",
	"offline_access",
}

// FieldCandidates lists, per logical report field, the human column names to try in
// priority order.
type FieldCandidates struct {
	Title      []string `yaml:"title"`
	Category   []string `yaml:"category"`
	Location   []string `yaml:"location"`
	Notes      []string `yaml:"notes"`
	CapturedOn []string `yaml:"captured_on"`
	Photos     []string `yaml:"photos"`
}

// Config is constructed once at process start and passed by reference.
type Config struct {
	SiteHostname string `yaml:"site_hostname"`
	SitePath     string `yaml:"site_path"`
	List         string `yaml:"list"`
	Drive        string `yaml:"drive"`
	BaseFolder   string `yaml:"base_folder"`

	GraphBaseURL string `yaml:"graph_base_url"`
	GraphVersion string `yaml:"graph_version"`
	Authority    string `yaml:"authority"`

	// TimeZone is the operational calendar used for folder partitions and for
	// interpreting user-entered wall-clock timestamps.
	TimeZone string `yaml:"time_zone"`

	TenantID     string   `yaml:"tenant_id"`
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret,omitempty"` // enables client credentials
	RedirectURI  string   `yaml:"redirect_uri,omitempty"`
	Scopes       []string `yaml:"scopes,omitempty"`

	Fields FieldCandidates `yaml:"fields"`

	RateLimit float64 `yaml:"rate_limit"`
	RateBurst int     `yaml:"rate_burst"`
	LogLevel  string  `yaml:"log_level"`

	location *time.Location
}

// DefaultFields returns the built-in candidate names per logical field.
func DefaultFields() FieldCandidates {
	return FieldCandidates{
		Title:      []string{"Title", "Report Title", "Subject"},
		Category:   []string{"Category", "Report Type", "Type"},
		Location:   []string{"Village", "Location", "Location Tag", "Site"},
		Notes:      []string{"Notes", "Comments", "Remarks", "Description"},
		CapturedOn: []string{"Captured On", "Captured", "Report Date", "Date"},
		Photos:     []string{"Photos", "Photo URLs", "Photo", "Images", "Image"},
	}
}

// Path returns the XDG-compliant config file location.
func Path() string {
	return filepath.Join(xdg.ConfigHome, AppName, ConfigFileName)
}

// Load reads configuration from an optional .env file, the YAML file at path (or the
// XDG default when path is empty), and RECON_* environment variables, in that order of
// increasing precedence. The returned config has defaults applied but is not validated.
//
// Environment variables:
// - RECON_SITE_HOSTNAME, RECON_SITE_PATH, RECON_LIST, RECON_DRIVE, RECON_BASE_FOLDER
// - RECON_GRAPH_BASE_URL, RECON_GRAPH_VERSION, RECON_AUTHORITY, RECON_TIME_ZONE
// - RECON_TENANT_ID, RECON_CLIENT_ID, RECON_CLIENT_SECRET, RECON_REDIRECT_URI
// - RECON_RATE_LIMIT, RECON_RATE_BURST, RECON_LOG_LEVEL.
func Load(path string) (*Config, error) {
	// .env is optional; real environment variables always win over it
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	explicit := path != ""
	if !explicit {
		path = Path()
	}

	cfg := &Config{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
		}
	case os.IsNotExist(err) && !explicit:
		// No file at the default location - environment only
	default:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	applyEnvOverrides(cfg)
	cfg.applyDefaults()

	return cfg, nil
}

// applyEnvOverrides applies RECON_* environment overrides.
func applyEnvOverrides(cfg *Config) {
	overrides := map[string]*string{
		"RECON_SITE_HOSTNAME":  &cfg.SiteHostname,
		"RECON_SITE_PATH":      &cfg.SitePath,
		"RECON_LIST":           &cfg.List,
		"RECON_DRIVE":          &cfg.Drive,
		"RECON_BASE_FOLDER":    &cfg.BaseFolder,
		"RECON_GRAPH_BASE_URL": &cfg.GraphBaseURL,
		"RECON_GRAPH_VERSION":  &cfg.GraphVersion,
		"RECON_AUTHORITY":      &cfg.Authority,
		"RECON_TIME_ZONE":      &cfg.TimeZone,
		"RECON_TENANT_ID":      &cfg.TenantID,
		"RECON_CLIENT_ID":      &cfg.ClientID,
		"RECON_CLIENT_SECRET":  &cfg.ClientSecret,
		"RECON_REDIRECT_URI":   &cfg.RedirectURI,
		"RECON_LOG_LEVEL":      &cfg.LogLevel,
	}
	for name, field := range overrides {
		if value := strings.TrimSpace(os.Getenv(name)); value != "" {
			*field = value
		}
	}

	if raw := strings.TrimSpace(os.Getenv("RECON_RATE_LIMIT")); raw != "" {
		if value, err := strconv.ParseFloat(raw, 64); err == nil {
			cfg.RateLimit = value
		}
	}
	if raw := strings.TrimSpace(os.Getenv("RECON_RATE_BURST")); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil {
			cfg.RateBurst = value
		}
	}
}

func (c *Config) applyDefaults() {
	if c.GraphBaseURL == "" {
		c.GraphBaseURL = DefaultGraphBaseURL
	}
	if c.GraphVersion == "" {
		c.GraphVersion = DefaultGraphVersion
	}
	if c.Authority == "" {
		c.Authority = DefaultAuthority
	}
	if c.TimeZone == "" {
		c.TimeZone = DefaultTimeZone
	}
	if c.TenantID == "" {
		c.TenantID = DefaultTenantID
	}
	if len(c.Scopes) == 0 {
		c.Scopes = append([]string(nil), DefaultScopes...)
	}
	if c.RateLimit <= 0 {
		c.RateLimit = DefaultRateLimit
	}
	if c.RateBurst <= 0 {
		c.RateBurst = DefaultRateBurst
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}

	defaults := DefaultFields()
	fillCandidates(&c.Fields.Title, defaults.Title)
	fillCandidates(&c.Fields.Category, defaults.Category)
	fillCandidates(&c.Fields.Location, defaults.Location)
	fillCandidates(&c.Fields.Notes, defaults.Notes)
	fillCandidates(&c.Fields.CapturedOn, defaults.CapturedOn)
	fillCandidates(&c.Fields.Photos, defaults.Photos)
}

func fillCandidates(dst *[]string, defaults []string) {
	if len(*dst) == 0 {
		*dst = append([]string(nil), defaults...)
	}
}

// Validate checks every value before use. Unusable required values produce a
// *ConfigurationError; recoverable shape mismatches are normalized in place and
// reported as warnings.
func (c *Config) Validate() ([]string, error) {
	var warnings []string

	c.SiteHostname = strings.TrimSpace(c.SiteHostname)
	if c.SiteHostname == "" {
		return warnings, &ConfigurationError{Field: "site_hostname", Reason: "is required"}
	}
	if strings.Contains(c.SiteHostname, "://") {
		if u, err := url.Parse(c.SiteHostname); err == nil && u.Host != "" {
			warnings = append(warnings, fmt.Sprintf("site_hostname %q contains a scheme; using %q", c.SiteHostname, u.Host))
			c.SiteHostname = u.Host
		}
	}
	if strings.ContainsAny(c.SiteHostname, "/ ") {
		return warnings, &ConfigurationError{Field: "site_hostname", Reason: fmt.Sprintf("%q is not a hostname", c.SiteHostname)}
	}
	if !strings.Contains(c.SiteHostname, ".") {
		warnings = append(warnings, fmt.Sprintf("site_hostname %q has no domain part", c.SiteHostname))
	}

	c.SitePath = strings.TrimSpace(c.SitePath)
	if c.SitePath == "" {
		return warnings, &ConfigurationError{Field: "site_path", Reason: "is required"}
	}
	if !strings.HasPrefix(c.SitePath, "/") {
		c.SitePath = "/" + c.SitePath
		warnings = append(warnings, fmt.Sprintf("site_path should start with '/'; using %q", c.SitePath))
	}
	c.SitePath = strings.TrimRight(c.SitePath, "/")
	if !strings.HasPrefix(c.SitePath, "/sites/") && !strings.HasPrefix(c.SitePath, "/teams/") {
		warnings = append(warnings, fmt.Sprintf("site_path %q is not under /sites/ or /teams/", c.SitePath))
	}

	c.List = strings.TrimSpace(c.List)
	if c.List == "" {
		return warnings, &ConfigurationError{Field: "list", Reason: "is required"}
	}
	c.Drive = strings.TrimSpace(c.Drive)
	if c.Drive == "" {
		return warnings, &ConfigurationError{Field: "drive", Reason: "is required"}
	}

	base := CleanFolderPath(c.BaseFolder)
	if base != c.BaseFolder {
		if strings.TrimSpace(c.BaseFolder) != "" {
			warnings = append(warnings, fmt.Sprintf("base_folder %q normalized to %q", c.BaseFolder, base))
		}
		c.BaseFolder = base
	}

	for _, endpoint := range []struct {
		field string
		value *string
	}{
		{"graph_base_url", &c.GraphBaseURL},
		{"authority", &c.Authority},
	} {
		*endpoint.value = strings.TrimRight(strings.TrimSpace(*endpoint.value), "/")
		u, err := url.Parse(*endpoint.value)
		if err != nil || u.Host == "" || (u.Scheme != "https" && u.Scheme != "http") {
			return warnings, &ConfigurationError{Field: endpoint.field, Reason: fmt.Sprintf("%q is not an absolute http(s) URL", *endpoint.value)}
		}
		if u.Scheme == "http" {
			warnings = append(warnings, fmt.Sprintf("%s %q is not https", endpoint.field, *endpoint.value))
		}
	}

	c.GraphVersion = strings.Trim(strings.TrimSpace(c.GraphVersion), "/")
	if c.GraphVersion != "v1.0" && c.GraphVersion != "beta" {
		warnings = append(warnings, fmt.Sprintf("graph_version %q is not v1.0 or beta", c.GraphVersion))
	}

	loc, err := time.LoadLocation(strings.TrimSpace(c.TimeZone))
	if err != nil {
		return warnings, &ConfigurationError{Field: "time_zone", Reason: fmt.Sprintf("%q is not a known zone", c.TimeZone), Err: err}
	}
	c.location = loc

	if strings.TrimSpace(c.ClientID) == "" {
		warnings = append(warnings, "client_id is empty; only pre-issued tokens will work")
	}
	if len(c.Fields.Photos) == 0 {
		return warnings, &ConfigurationError{Field: "fields.photos", Reason: "needs at least one candidate column name"}
	}

	return warnings, nil
}

// Location returns the operational time zone. It falls back to UTC when the config has
// not been validated.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

// GraphEndpoint returns the versioned Graph service root, e.g. https://graph.microsoft.com/v1.0.
func (c *Config) GraphEndpoint() string {
	return strings.TrimRight(c.GraphBaseURL, "/") + "/" + strings.Trim(c.GraphVersion, "/")
}

// AuthorityEndpoint returns the tenant-specific login authority.
func (c *Config) AuthorityEndpoint() string {
	return strings.TrimRight(c.Authority, "/") + "/" + c.TenantID
}

// CleanFolderPath trims whitespace and slashes and collapses duplicate separators.
// The result has no leading or trailing slash; the drive root is "".
func CleanFolderPath(p string) string {
	p = strings.ReplaceAll(strings.TrimSpace(p), "\\", "/")
	parts := strings.Split(p, "/")
	kept := parts[:0]
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			kept = append(kept, part)
		}
	}
	return strings.Join(kept, "/")
}
