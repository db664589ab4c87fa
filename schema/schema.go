// ABOUTME: Discovers list columns and classifies each into a writable value kind
// ABOUTME: Builds the alias index and column descriptors from one column listing
package schema

import (
	"context"
	"fmt"
	"strings"

	"github.com/iTRMAutomation/mlc-village-recon-tool/graph"
)

// Kind is the value shape a column accepts.
type Kind string

const (
	KindText              Kind = "text"
	KindNumber            Kind = "number"
	KindDateTime          Kind = "dateTime"
	KindBoolean           Kind = "boolean"
	KindSingleLinkOrMedia Kind = "singleLinkOrMedia"
	KindSingleChoice      Kind = "singleChoice"
	KindMultiChoice       Kind = "multiChoice"
	KindLookup            Kind = "lookup"
	KindUnknown           Kind = "unknown"
)

// Column describes one list column. InternalName is the only name ever written back.
type Column struct {
	InternalName string   `json:"internal_name"`
	DisplayName  string   `json:"display_name"`
	Kind         Kind     `json:"kind"`
	ReadOnly     bool     `json:"read_only"`
	Hidden       bool     `json:"hidden"`
	Required     bool     `json:"required,omitempty"`
	Choices      []string `json:"choices,omitempty"`
}

// Schema is the discovered shape of a list.
type Schema struct {
	Aliases *AliasIndex
	Columns map[string]Column
	Order   []string // internal names in remote order
}

// ColumnsAPI lists column definitions.
type ColumnsAPI interface {
	ListColumns(ctx context.Context, siteID, listID string) ([]graph.Column, error)
}

// Introspect fetches the columns of a list and builds its schema.
func Introspect(ctx context.Context, api ColumnsAPI, siteID, listID string) (*Schema, error) {
	columns, err := api.ListColumns(ctx, siteID, listID)
	if err != nil {
		return nil, fmt.Errorf("failed to list columns: %w", err)
	}
	return Build(columns), nil
}

// Build creates a schema from column definitions in remote order. Columns with a
// duplicate internal name are kept at their first occurrence.
func Build(columns []graph.Column) *Schema {
	s := &Schema{
		Aliases: NewAliasIndex(),
		Columns: make(map[string]Column, len(columns)),
	}
	for _, gc := range columns {
		if gc.Name == "" {
			continue
		}
		if _, seen := s.Columns[gc.Name]; seen {
			continue
		}
		col := Column{
			InternalName: gc.Name,
			DisplayName:  gc.DisplayName,
			Kind:         Classify(gc),
			ReadOnly:     gc.ReadOnly,
			Hidden:       gc.Hidden,
			Required:     gc.Required,
		}
		if col.Kind == KindSingleChoice || col.Kind == KindMultiChoice {
			col.Choices = cleanChoices(gc.Choice.Choices)
		}
		s.Columns[gc.Name] = col
		s.Order = append(s.Order, gc.Name)

		s.Aliases.RegisterName(gc.Name, gc.Name)
		if gc.DisplayName != "" {
			s.Aliases.RegisterName(gc.DisplayName, gc.Name)
		}
	}
	return s
}

// Classify picks exactly one kind from the type facet present.
func Classify(c graph.Column) Kind {
	switch {
	case c.HyperlinkOrPicture != nil:
		return KindSingleLinkOrMedia
	case c.Text != nil:
		return KindText
	case c.Number != nil:
		return KindNumber
	case c.DateTime != nil:
		return KindDateTime
	case c.Boolean != nil:
		return KindBoolean
	case c.Choice != nil:
		if strings.EqualFold(c.Choice.DisplayAs, "checkBoxes") {
			return KindMultiChoice
		}
		return KindSingleChoice
	case c.Lookup != nil:
		return KindLookup
	default:
		return KindUnknown
	}
}

func cleanChoices(raw []string) []string {
	seen := make(map[string]bool, len(raw))
	out := make([]string, 0, len(raw))
	for _, choice := range raw {
		choice = strings.TrimSpace(choice)
		if choice == "" || seen[choice] {
			continue
		}
		seen[choice] = true
		out = append(out, choice)
	}
	return out
}

// Column returns the descriptor for an internal name.
func (s *Schema) Column(internalName string) (Column, bool) {
	col, ok := s.Columns[internalName]
	return col, ok
}

// Ordered returns the descriptors in remote order.
func (s *Schema) Ordered() []Column {
	out := make([]Column, 0, len(s.Order))
	for _, name := range s.Order {
		out = append(out, s.Columns[name])
	}
	return out
}
