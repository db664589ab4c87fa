// ABOUTME: Report manifests: JSON documents naming a report's fields and photo files
// ABOUTME: Validated against an embedded JSON Schema; photo paths resolve relative to the manifest
package models

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed manifest.schema.json
var manifestSchemaJSON []byte

const manifestSchemaURL = "https://recon.local/manifest.schema.json"

var (
	manifestSchemaOnce sync.Once
	manifestSchema     *jsonschema.Schema
	manifestSchemaErr  error
)

// Manifest is the on-disk form of a report.
type Manifest struct {
	Title      string   `json:"title"`
	Category   string   `json:"category,omitempty"`
	Location   string   `json:"location,omitempty"`
	Notes      string   `json:"notes,omitempty"`
	CapturedOn string   `json:"captured_on,omitempty"`
	Photos     []string `json:"photos"`
}

func compiledManifestSchema() (*jsonschema.Schema, error) {
	manifestSchemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(manifestSchemaJSON))
		if err != nil {
			manifestSchemaErr = fmt.Errorf("failed to parse manifest schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(manifestSchemaURL, doc); err != nil {
			manifestSchemaErr = fmt.Errorf("failed to add manifest schema: %w", err)
			return
		}
		manifestSchema, manifestSchemaErr = c.Compile(manifestSchemaURL)
	})
	return manifestSchema, manifestSchemaErr
}

// ParseManifest validates and decodes a manifest document.
func ParseManifest(data []byte) (*Manifest, error) {
	sch, err := compiledManifestSchema()
	if err != nil {
		return nil, err
	}

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if err := sch.Validate(inst); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to decode manifest: %w", err)
	}
	return &m, nil
}

// LoadManifest reads a manifest file and the photos it names.
func LoadManifest(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", path, err)
	}
	m, err := ParseManifest(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m.Report(filepath.Dir(path))
}

// Report loads the manifest's photos, resolving relative paths against dir.
func (m *Manifest) Report(dir string) (*Report, error) {
	report := &Report{
		Title:      m.Title,
		Category:   m.Category,
		Location:   m.Location,
		Notes:      m.Notes,
		CapturedOn: m.CapturedOn,
	}
	for _, p := range m.Photos {
		if !filepath.IsAbs(p) {
			p = filepath.Join(dir, p)
		}
		photo, err := LoadPhoto(p)
		if err != nil {
			return nil, err
		}
		report.Photos = append(report.Photos, photo)
	}
	return report, nil
}

// LoadPhoto reads a photo file and detects its content type from the extension, falling
// back to content sniffing.
func LoadPhoto(path string) (Photo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Photo{}, fmt.Errorf("failed to read photo %s: %w", path, err)
	}
	return Photo{
		Name:        filepath.Base(path),
		ContentType: DetectContentType(path, data),
		Data:        data,
	}, nil
}

// DetectContentType guesses a media type from the file name, then from the content.
func DetectContentType(name string, data []byte) string {
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		if mediaType, _, err := mime.ParseMediaType(ct); err == nil {
			return mediaType
		}
		return ct
	}
	if len(data) == 0 {
		return "application/octet-stream"
	}
	ct := http.DetectContentType(data)
	if mediaType, _, err := mime.ParseMediaType(ct); err == nil {
		return mediaType
	}
	return ct
}
