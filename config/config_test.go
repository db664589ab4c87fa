// ABOUTME: Tests for configuration loading and validation
// ABOUTME: Covers XDG path handling, env overrides, defaults, and ConfigurationError cases
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/adrg/xdg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := &Config{
		SiteHostname: "contoso.sharepoint.com",
		SitePath:     "/sites/recon",
		List:         "Village Reports",
		Drive:        "Documents",
		BaseFolder:   "Recon/Photos",
		ClientID:     "00000000-0000-0000-0000-000000000001",
	}
	cfg.applyDefaults()
	return cfg
}

func TestConfigPathUnderXDG(t *testing.T) {
	path := Path()

	expectedBase := filepath.Join(xdg.ConfigHome, AppName)
	assert.True(t, strings.HasPrefix(path, expectedBase), "path should be under XDG config home")
	assert.Equal(t, ConfigFileName, filepath.Base(path))
}

func TestLoadFromYAMLWithEnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
site_hostname: contoso.sharepoint.com
site_path: /sites/recon
list: Village Reports
drive: Documents
base_folder: Recon/Photos
fields:
  location: ["Village Name"]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	t.Setenv("RECON_DRIVE", "Shared Documents")
	t.Setenv("RECON_RATE_BURST", "9")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "contoso.sharepoint.com", cfg.SiteHostname)
	assert.Equal(t, "Shared Documents", cfg.Drive, "env should override file")
	assert.Equal(t, 9, cfg.RateBurst)
	assert.Equal(t, []string{"Village Name"}, cfg.Fields.Location, "file candidates should be kept")
	assert.Equal(t, DefaultFields().Photos, cfg.Fields.Photos, "missing candidates get defaults")
	assert.Equal(t, DefaultGraphBaseURL, cfg.GraphBaseURL)
	assert.Equal(t, DefaultTimeZone, cfg.TimeZone)
}

func TestLoadMissingDefaultFileUsesEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	origHome := xdg.ConfigHome
	xdg.ConfigHome = t.TempDir()
	defer func() { xdg.ConfigHome = origHome }()
	t.Setenv("RECON_SITE_HOSTNAME", "contoso.sharepoint.com")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "contoso.sharepoint.com", cfg.SiteHostname)
}

func TestLoadMissingExplicitFileFails(t *testing.T) {
	t.Chdir(t.TempDir())
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidateAcceptsWellFormedConfig(t *testing.T) {
	cfg := validConfig()

	warnings, err := cfg.Validate()
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, "Asia/Kolkata", cfg.Location().String())
	assert.Equal(t, "https://graph.microsoft.com/v1.0", cfg.GraphEndpoint())
}

func TestValidateRequiredFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"hostname", func(c *Config) { c.SiteHostname = "  " }, "site_hostname"},
		{"path", func(c *Config) { c.SitePath = "" }, "site_path"},
		{"list", func(c *Config) { c.List = "" }, "list"},
		{"drive", func(c *Config) { c.Drive = "" }, "drive"},
		{"zone", func(c *Config) { c.TimeZone = "Mars/Olympus" }, "time_zone"},
		{"graph url", func(c *Config) { c.GraphBaseURL = "graph.microsoft.com" }, "graph_base_url"},
		{"hostname shape", func(c *Config) { c.SiteHostname = "contoso.sharepoint.com/sites" }, "site_hostname"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			_, err := cfg.Validate()
			var cfgErr *ConfigurationError
			require.True(t, errors.As(err, &cfgErr), "expected ConfigurationError, got %v", err)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestValidateWarnsAndNormalizesShapeMismatches(t *testing.T) {
	cfg := validConfig()
	cfg.SiteHostname = "https://contoso.sharepoint.com"
	cfg.SitePath = "recon/"
	cfg.BaseFolder = "//Recon//Photos/"

	warnings, err := cfg.Validate()
	require.NoError(t, err)

	assert.Equal(t, "contoso.sharepoint.com", cfg.SiteHostname)
	assert.Equal(t, "/recon", cfg.SitePath)
	assert.Equal(t, "Recon/Photos", cfg.BaseFolder)
	assert.Len(t, warnings, 4)
}

func TestCleanFolderPath(t *testing.T) {
	assert.Equal(t, "", CleanFolderPath(" / "))
	assert.Equal(t, "a/b/c", CleanFolderPath("/a//b\\c/"))
	assert.Equal(t, "Recon Photos/2024", CleanFolderPath("Recon Photos/ 2024 "))
}
