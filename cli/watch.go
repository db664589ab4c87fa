// ABOUTME: watch subcommand running the outbox watcher
// ABOUTME: Submits manifests dropped into a directory until interrupted
package cli

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/iTRMAutomation/mlc-village-recon-tool/outbox"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var watchDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch DIR",
	Short: "Submit report manifests dropped into DIR",
	Long: `Watches DIR for *.json report manifests. Each manifest is submitted once and
moved into DIR/sent with a .result.json, or into DIR/failed with a .error.txt.
Manifests already present are processed at start.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		a.prime(cmd.Context())

		out := newRenderer(cmd.OutOrStdout())
		w := outbox.New(args[0], a.svc, outbox.Options{
			Debounce: watchDebounce,
			Logger:   a.log.Named("outbox"),
			OnProcessed: func(o outbox.Outcome) {
				name := filepath.Base(o.Manifest)
				if o.Err != nil {
					out.status(false, fmt.Sprintf("%s: %v", name, o.Err))
					return
				}
				out.status(true, fmt.Sprintf("%s: item %s", name, o.Result.ItemID))
			},
		})

		a.log.Info("outbox watcher starting", zap.String("dir", args[0]))
		return w.Run(cmd.Context())
	},
}

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 500*time.Millisecond, "quiet period before a changed manifest is submitted")
}
