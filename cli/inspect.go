// ABOUTME: choices, schema, and probe subcommands
// ABOUTME: Read-only views of the resolved site, its list columns, and endpoint reachability
package cli

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/iTRMAutomation/mlc-village-recon-tool/schema"
	"github.com/iTRMAutomation/mlc-village-recon-tool/submit"
	"github.com/spf13/cobra"
)

var choicesCmd = &cobra.Command{
	Use:   "choices",
	Short: "List the configured choices for category and location",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := setup(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		choices, err := a.svc.Choices(cmd.Context())
		if err != nil {
			return err
		}
		printChoices(newRenderer(cmd.OutOrStdout()), choices)
		return nil
	},
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Show the resolved site, list, drive, and list columns",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := setup(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		res, sch, err := a.svc.Describe(cmd.Context())
		if err != nil {
			return err
		}

		out := newRenderer(cmd.OutOrStdout())
		out.heading("Resources")
		out.field("Site", fmt.Sprintf("%s (%s)", res.Site.DisplayName, res.Site.ID))
		out.field("List", res.ListID)
		out.field("Drive", res.DriveID)
		fmt.Fprintln(cmd.OutOrStdout())
		printColumns(out, sch.Ordered())
		return nil
	},
}

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Check that Graph and the sign-in authority are reachable",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := setup(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		results := a.svc.Probe(cmd.Context())
		if down := printProbes(newRenderer(cmd.OutOrStdout()), results); down > 0 {
			return fmt.Errorf("%d endpoint(s) unreachable", down)
		}
		return nil
	},
}

func printChoices(out *renderer, choices map[string][]string) {
	fields := make([]string, 0, len(choices))
	for field := range choices {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	for _, field := range fields {
		out.heading(field)
		for _, c := range choices[field] {
			fmt.Fprintf(out.w, "  %s\n", c)
		}
	}
}

func printColumns(out *renderer, columns []schema.Column) {
	out.heading("Columns")
	for _, c := range columns {
		var flags []string
		if c.ReadOnly {
			flags = append(flags, "read-only")
		}
		if c.Hidden {
			flags = append(flags, "hidden")
		}
		if c.Required {
			flags = append(flags, "required")
		}

		line := fmt.Sprintf("  %-28s %-18s %s", c.InternalName, c.Kind, c.DisplayName)
		if len(flags) > 0 {
			line += " [" + strings.Join(flags, ", ") + "]"
		}
		fmt.Fprintln(out.w, line)
		if len(c.Choices) > 0 {
			fmt.Fprintf(out.w, "  %-28s choices: %s\n", "", strings.Join(c.Choices, ", "))
		}
	}
}

// printProbes reports each probe and returns how many failed.
func printProbes(out *renderer, results []submit.ProbeResult) int {
	down := 0
	for _, p := range results {
		if p.Reachable {
			out.status(true, fmt.Sprintf("%s %s (HTTP %d, %s)", p.Name, p.Endpoint, p.Status, p.Elapsed.Round(time.Millisecond)))
			continue
		}
		down++
		out.status(false, fmt.Sprintf("%s %s: %s", p.Name, p.Endpoint, p.Error))
	}
	return down
}
