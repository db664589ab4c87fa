// ABOUTME: Builds sortable, collision-resistant remote file names for uploaded photos
// ABOUTME: <compact-timestamp>_<tag>_<base>.<ext> with each segment sanitized and capped
package upload

import (
	"fmt"
	"mime"
	"path"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const (
	maxSegment  = 60
	compactTime = "20060102T150405"
)

// diacritics is the Combining Diacritical Marks block. Marks of other scripts are kept
// so non-Latin words survive sanitization.
var diacritics = &unicode.RangeTable{R16: []unicode.Range16{{Lo: 0x0300, Hi: 0x036f, Stride: 1}}}

var knownExtensions = map[string]string{
	"image/jpeg":      "jpg",
	"image/jpg":       "jpg",
	"image/png":       "png",
	"image/gif":       "gif",
	"image/webp":      "webp",
	"image/heic":      "heic",
	"image/heif":      "heif",
	"image/tiff":      "tiff",
	"image/bmp":       "bmp",
	"application/pdf": "pdf",
	"video/mp4":       "mp4",
}

// CompactTimestamp formats ts as 20060102T150405 followed by three millisecond digits.
func CompactTimestamp(ts time.Time) string {
	return fmt.Sprintf("%s%03d", ts.Format(compactTime), ts.Nanosecond()/int(time.Millisecond))
}

// RemoteName builds the remote file name for an upload taken at ts (already in the
// operational zone).
func RemoteName(ts time.Time, tag, original, contentType string) string {
	base := path.Base(strings.ReplaceAll(strings.TrimSpace(original), "\\", "/"))
	if base == "." || base == "/" {
		base = ""
	}
	ext := path.Ext(base)
	base = strings.TrimSuffix(base, ext)

	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	ext = sanitizeASCII(ext)
	if ext == "" {
		ext = ExtensionFor(contentType)
	}

	tagPart := Sanitize(tag)
	if tagPart == "" {
		tagPart = "untagged"
	}
	basePart := Sanitize(base)
	if basePart == "" {
		basePart = "photo"
	}

	return fmt.Sprintf("%s_%s_%s.%s", CompactTimestamp(ts), tagPart, basePart, ext)
}

// ExtensionFor maps a content type to a file extension, defaulting to "bin".
func ExtensionFor(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "bin"
	}
	if ext, ok := knownExtensions[mediaType]; ok {
		return ext
	}
	if exts, err := mime.ExtensionsByType(mediaType); err == nil && len(exts) > 0 {
		return strings.TrimPrefix(exts[0], ".")
	}
	return "bin"
}

// Sanitize trims s, folds Latin diacritics, and replaces every run of characters that are
// not letters, digits, or marks with a single hyphen. Leading and trailing hyphens are
// removed and the result is capped at 60 characters.
func Sanitize(s string) string {
	s = norm.NFKD.String(strings.TrimSpace(s))

	var b strings.Builder
	pendingHyphen := false
	for _, r := range s {
		if unicode.Is(diacritics, r) {
			continue
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r) {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}

	out := norm.NFC.String(b.String())
	if runes := []rune(out); len(runes) > maxSegment {
		out = strings.TrimRight(string(runes[:maxSegment]), "-")
	}
	return out
}

func sanitizeASCII(s string) string {
	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
