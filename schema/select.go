// ABOUTME: Picks the internal column name for a logical report field
// ABOUTME: Tries candidate names in priority order, skipping hidden and optionally read-only columns
package schema

// SelectOptions tunes Select.
type SelectOptions struct {
	RequireWritable bool
}

// Select returns the internal name of the first candidate that resolves to an acceptable
// column. A candidate resolving to a hidden column, or to a read-only one when
// RequireWritable is set, is rejected and the next candidate is tried.
func (s *Schema) Select(candidates []string, opts SelectOptions) (string, bool) {
	for _, candidate := range candidates {
		internal, ok := s.Aliases.Lookup(candidate)
		if !ok {
			continue
		}
		col, ok := s.Columns[internal]
		if !ok || col.Hidden {
			continue
		}
		if opts.RequireWritable && col.ReadOnly {
			continue
		}
		return internal, true
	}
	return "", false
}
