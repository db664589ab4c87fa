// ABOUTME: Tests for per-kind value formatting and operational time zone conversion
// ABOUTME: Includes the photo URL round trip for link and text columns
package submit

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/iTRMAutomation/mlc-village-recon-tool/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kolkata(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)
	return loc
}

func TestFormatPhotosRoundTrip(t *testing.T) {
	urls := []string{"https://x/1.jpg", "https://x/2.jpg", "https://x/3.jpg"}

	single, err := FormatPhotos(schema.KindSingleLinkOrMedia, urls)
	require.NoError(t, err)
	assert.Equal(t, "https://x/1.jpg", single)

	for _, kind := range []schema.Kind{schema.KindText, schema.KindUnknown, schema.KindNumber} {
		value, err := FormatPhotos(kind, urls)
		require.NoError(t, err)

		var decoded []string
		require.NoError(t, json.Unmarshal([]byte(value.(string)), &decoded))
		assert.Equal(t, urls, decoded, "kind %s", kind)
	}

	empty, err := FormatPhotos(schema.KindText, nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", empty)
}

func TestParseLocalUsesOperationalZone(t *testing.T) {
	loc := kolkata(t)

	tests := map[string]string{
		"2024-03-05T09:07":          "2024-03-05T03:37:00Z",
		"2024-03-05T09:07:30":       "2024-03-05T03:37:30Z",
		"2024-03-05 09:07":          "2024-03-05T03:37:00Z",
		"2024-03-05":                "2024-03-04T18:30:00Z",
		"2024-03-05T09:07:00+00:00": "2024-03-05T09:07:00Z",
	}
	for input, want := range tests {
		got, err := ParseLocal(input, loc)
		require.NoError(t, err, input)
		assert.Equal(t, want, Instant(got), input)
	}

	_, err := ParseLocal("yesterday", loc)
	assert.Error(t, err)
}

func TestFormatFieldByKind(t *testing.T) {
	loc := kolkata(t)

	tests := []struct {
		name     string
		col      schema.Column
		raw      string
		want     map[string]any
		warnings int
	}{
		{
			name: "text",
			col:  schema.Column{InternalName: "Title", Kind: schema.KindText},
			raw:  " Survey ",
			want: map[string]any{"Title": "Survey"},
		},
		{
			name: "number",
			col:  schema.Column{InternalName: "Count", Kind: schema.KindNumber},
			raw:  "12.5",
			want: map[string]any{"Count": 12.5},
		},
		{
			name:     "bad number",
			col:      schema.Column{InternalName: "Count", Kind: schema.KindNumber},
			raw:      "many",
			warnings: 1,
		},
		{
			name: "boolean",
			col:  schema.Column{InternalName: "Verified", Kind: schema.KindBoolean},
			raw:  "Yes",
			want: map[string]any{"Verified": true},
		},
		{
			name: "date time",
			col:  schema.Column{InternalName: "When", Kind: schema.KindDateTime},
			raw:  "2024-03-05T09:07",
			want: map[string]any{"When": "2024-03-05T03:37:00Z"},
		},
		{
			name: "known choice",
			col:  schema.Column{InternalName: "Village", Kind: schema.KindSingleChoice, Choices: []string{"Rampur"}},
			raw:  "rampur",
			want: map[string]any{"Village": "Rampur"},
		},
		{
			name:     "unknown choice is sent with a warning",
			col:      schema.Column{InternalName: "Village", Kind: schema.KindSingleChoice, Choices: []string{"Rampur"}},
			raw:      "Atlantis",
			want:     map[string]any{"Village": "Atlantis"},
			warnings: 1,
		},
		{
			name: "multi choice",
			col:  schema.Column{InternalName: "Tags", Kind: schema.KindMultiChoice, Choices: []string{"Water", "Road"}},
			raw:  "water; Road",
			want: map[string]any{
				"Tags@odata.type": "Collection(Edm.String)",
				"Tags":            []string{"Water", "Road"},
			},
		},
		{
			name:     "lookup is skipped",
			col:      schema.Column{InternalName: "Owner", Kind: schema.KindLookup},
			raw:      "Ravi",
			warnings: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, warnings := formatField(tt.col, tt.raw, loc)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("value mismatch (-want +got):\n%s", diff)
			}
			assert.Len(t, warnings, tt.warnings)
		})
	}
}
