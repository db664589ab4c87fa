// ABOUTME: Formats report values for list columns according to their discovered kind
// ABOUTME: Photo URL lists, choice annotations, and local wall-clock to UTC instant conversion
package submit

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/iTRMAutomation/mlc-village-recon-tool/schema"
)

// localLayouts are the accepted wall-clock forms, interpreted in the operational zone.
var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseLocal parses a user-entered timestamp. Values carrying an explicit offset keep it;
// bare wall-clock values are read in loc regardless of the host's zone.
func ParseLocal(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q (want YYYY-MM-DDTHH:MM)", value)
}

// Instant renders t as the UTC RFC 3339 instant list items store.
func Instant(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// FormatPhotos returns the photo column value: the first URL for a single link or media
// column, otherwise the JSON-encoded ordered list.
func FormatPhotos(kind schema.Kind, urls []string) (any, error) {
	if kind == schema.KindSingleLinkOrMedia {
		if len(urls) == 0 {
			return "", nil
		}
		return urls[0], nil
	}
	if urls == nil {
		urls = []string{}
	}
	encoded, err := json.Marshal(urls)
	if err != nil {
		return nil, fmt.Errorf("failed to encode photo URLs: %w", err)
	}
	return string(encoded), nil
}

// formatField converts raw for col. It returns the payload entries to add (nil to skip
// the field) and any warnings.
func formatField(col schema.Column, raw string, loc *time.Location) (map[string]any, []string) {
	name := col.InternalName
	raw = strings.TrimSpace(raw)

	switch col.Kind {
	case schema.KindNumber:
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, []string{fmt.Sprintf("%s: %q is not a number; field skipped", name, raw)}
		}
		return map[string]any{name: n}, nil

	case schema.KindBoolean:
		b, ok := parseBool(raw)
		if !ok {
			return nil, []string{fmt.Sprintf("%s: %q is not yes/no; field skipped", name, raw)}
		}
		return map[string]any{name: b}, nil

	case schema.KindDateTime:
		t, err := ParseLocal(raw, loc)
		if err != nil {
			return nil, []string{fmt.Sprintf("%s: %v; field skipped", name, err)}
		}
		return map[string]any{name: Instant(t)}, nil

	case schema.KindSingleChoice:
		value, known := matchChoice(col.Choices, raw)
		var warnings []string
		if !known {
			warnings = append(warnings, fmt.Sprintf("%s: %q is not one of the configured choices; sending as entered", name, raw))
		}
		return map[string]any{name: value}, warnings

	case schema.KindMultiChoice:
		var values, warnings []string
		for _, part := range strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ';' }) {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			value, known := matchChoice(col.Choices, part)
			if !known {
				warnings = append(warnings, fmt.Sprintf("%s: %q is not one of the configured choices; sending as entered", name, part))
			}
			values = append(values, value)
		}
		if len(values) == 0 {
			return nil, warnings
		}
		return map[string]any{
			name + "@odata.type": "Collection(Edm.String)",
			name:                 values,
		}, warnings

	case schema.KindLookup:
		return nil, []string{fmt.Sprintf("%s: lookup columns cannot be written from a report; field skipped", name)}

	default:
		return map[string]any{name: raw}, nil
	}
}

// matchChoice returns the canonical spelling of raw among choices.
func matchChoice(choices []string, raw string) (string, bool) {
	for _, choice := range choices {
		if strings.EqualFold(choice, raw) {
			return choice, true
		}
	}
	return raw, false
}

func parseBool(raw string) (bool, bool) {
	switch strings.ToLower(raw) {
	case "yes", "y", "on":
		return true, true
	case "no", "n", "off":
		return false, true
	}
	b, err := strconv.ParseBool(raw)
	return b, err == nil
}
