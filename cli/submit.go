// ABOUTME: submit subcommand
// ABOUTME: Builds a report from flags or a manifest file and submits it with a live trace
package cli

import (
	"fmt"

	"github.com/iTRMAutomation/mlc-village-recon-tool/config"
	"github.com/iTRMAutomation/mlc-village-recon-tool/models"
	"github.com/iTRMAutomation/mlc-village-recon-tool/submit"
	"github.com/spf13/cobra"
)

type submitFlags struct {
	title      string
	category   string
	location   string
	notes      string
	capturedOn string
	photos     []string
	manifest   string
}

var submitOpts submitFlags

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit one field report",
	Long: `Uploads the photos and creates one list item for the report.

Example:
  recon submit --title "Broken hand pump" --location Rampur --photo pump.jpg --photo well.jpg
  recon submit --manifest report.json`,
	Args: cobra.NoArgs,
	RunE: runSubmit,
}

func init() {
	f := submitCmd.Flags()
	f.StringVar(&submitOpts.title, "title", "", "report title (required)")
	f.StringVar(&submitOpts.category, "category", "", "report category")
	f.StringVar(&submitOpts.location, "location", "", "location tag, such as the village name")
	f.StringVar(&submitOpts.notes, "notes", "", "free-text notes")
	f.StringVar(&submitOpts.capturedOn, "captured-on", "", "local capture time YYYY-MM-DDTHH:MM (default now)")
	f.StringArrayVar(&submitOpts.photos, "photo", nil, "photo file (repeatable)")
	f.StringVar(&submitOpts.manifest, "manifest", "", "JSON report manifest instead of flags")
	submitCmd.MarkFlagsMutuallyExclusive("manifest", "title")
	submitCmd.MarkFlagsMutuallyExclusive("manifest", "photo")
}

func runSubmit(cmd *cobra.Command, _ []string) error {
	report, err := reportFromFlags()
	if err != nil {
		return err
	}

	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	out := newRenderer(cmd.OutOrStdout())
	trace := submit.NewTrace(a.log, out.entry)

	result, err := a.svc.Submit(cmd.Context(), report, trace)
	if submit.IsFatalConfiguration(err) {
		return fmt.Errorf("submission failed; check %s: %w", config.Path(), err)
	}
	if err != nil {
		return fmt.Errorf("submission failed: %w", err)
	}
	out.result(result)
	return nil
}

func reportFromFlags() (*models.Report, error) {
	if submitOpts.manifest != "" {
		return models.LoadManifest(submitOpts.manifest)
	}

	report := &models.Report{
		Title:      submitOpts.title,
		Category:   submitOpts.category,
		Location:   submitOpts.location,
		Notes:      submitOpts.notes,
		CapturedOn: submitOpts.capturedOn,
	}
	for _, path := range submitOpts.photos {
		photo, err := models.LoadPhoto(path)
		if err != nil {
			return nil, err
		}
		report.Photos = append(report.Photos, photo)
	}
	if err := report.Validate(); err != nil {
		return nil, err
	}
	return report, nil
}
