// ABOUTME: Ordered-insertion alias index from normalized column names to internal names
// ABOUTME: First registration of a key wins; later registrations never override it
package schema

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
)

// AliasIndex maps normalized name variants to column internal names.
//
// Collision policy: a key keeps the internal name it was first registered with. Columns are
// registered in the order the remote lists them, so the first-listed column wins.
type AliasIndex struct {
	keys    []string
	targets map[string]string
}

// NewAliasIndex returns an empty index.
func NewAliasIndex() *AliasIndex {
	return &AliasIndex{targets: make(map[string]string)}
}

// Register adds key -> internalName unless key is already present. It reports whether the
// key was added.
func (a *AliasIndex) Register(key, internalName string) bool {
	if key == "" {
		return false
	}
	if _, exists := a.targets[key]; exists {
		return false
	}
	a.keys = append(a.keys, key)
	a.targets[key] = internalName
	return true
}

// RegisterName registers every variant of name for internalName.
func (a *AliasIndex) RegisterName(name, internalName string) {
	for _, key := range Variants(name) {
		a.Register(key, internalName)
	}
}

// Lookup resolves a human name by trying its variants in order.
func (a *AliasIndex) Lookup(name string) (string, bool) {
	for _, key := range Variants(name) {
		if internal, ok := a.targets[key]; ok {
			return internal, true
		}
	}
	return "", false
}

// Keys returns the registered keys in insertion order.
func (a *AliasIndex) Keys() []string {
	return append([]string(nil), a.keys...)
}

// Len returns the number of registered keys.
func (a *AliasIndex) Len() int {
	return len(a.keys)
}

// Variants returns the normalized keys for name: the name itself, underscores as spaces,
// and alphanumerics only. Names carrying SharePoint _xHHHH_ escapes also yield the
// decoded forms. All keys are lower-cased with whitespace collapsed; duplicates and empty
// keys are dropped.
func Variants(name string) []string {
	var out []string
	add := func(key string) {
		if key == "" {
			return
		}
		for _, existing := range out {
			if existing == key {
				return
			}
		}
		out = append(out, key)
	}

	add(normalize(name))
	add(normalize(strings.ReplaceAll(name, "_", " ")))
	add(alphanumeric(name))

	if decoded := decodeEscapes(name); decoded != name {
		add(normalize(decoded))
		add(alphanumeric(decoded))
	}
	return out
}

// normalize case-folds s and collapses runs of whitespace.
func normalize(s string) string {
	return strings.Join(strings.Fields(cases.Fold().String(s)), " ")
}

func alphanumeric(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// decodeEscapes turns _xHHHH_ sequences (e.g. Captured_x0020_On) back into characters.
func decodeEscapes(s string) string {
	if !strings.Contains(s, "_x") {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); {
		if i+7 <= len(s) && s[i] == '_' && s[i+1] == 'x' && s[i+6] == '_' {
			if code, err := strconv.ParseUint(s[i+2:i+6], 16, 32); err == nil {
				b.WriteRune(rune(code))
				i += 7
				continue
			}
		}
		b.WriteByte(s[i])
		i++
	}
	return b.String()
}
