// ABOUTME: Root cobra command, global flags, logger, and session wiring
// ABOUTME: Builds config, credentials, the Graph client, and the submission service per command
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/iTRMAutomation/mlc-village-recon-tool/auth"
	"github.com/iTRMAutomation/mlc-village-recon-tool/config"
	"github.com/iTRMAutomation/mlc-village-recon-tool/graph"
	"github.com/iTRMAutomation/mlc-village-recon-tool/submit"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/oauth2"
)

// AccessTokenEnv names the variable holding a pre-issued bearer token.
const AccessTokenEnv = "RECON_ACCESS_TOKEN"

var (
	configPath string
	logLevel   string
	version    = "dev"
)

var rootCmd = &cobra.Command{
	Use:   "recon",
	Short: "Submit village field reports with photos to SharePoint",
	Long: `recon submits field reports to a SharePoint list through Microsoft Graph.

Photos are uploaded into a BASE/YYYY/MM folder of the site's document library,
named by upload time and location tag, and their links are written into the new
list item.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: $XDG_CONFIG_HOME/recon/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (default from config)")

	rootCmd.AddCommand(submitCmd, choicesCmd, schemaCmd, probeCmd, authCmd, watchCmd, mcpCmd)
}

// Execute runs the CLI until completion or interrupt.
func Execute(v string) error {
	version = v
	rootCmd.Version = v

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

// newLogger builds a JSON logger on stderr at level.
func newLogger(level string) (*zap.Logger, error) {
	lvl := zapcore.InfoLevel
	if level != "" {
		parsed, err := zapcore.ParseLevel(strings.ToLower(level))
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
		lvl = parsed
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build()
}

var _ submit.API = (*graph.Client)(nil)

// app is everything one command needs.
type app struct {
	cfg      *config.Config
	log      *zap.Logger
	store    *auth.FileStore
	provider auth.Provider
	client   *graph.Client
	svc      *submit.Service
}

// setup loads and validates config, then wires credentials, the client, and the service.
func setup(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	level := logLevel
	if level == "" {
		level = cfg.LogLevel
	}
	logger, err := newLogger(level)
	if err != nil {
		return nil, err
	}

	warnings, err := cfg.Validate()
	for _, w := range warnings {
		logger.Warn("config", zap.String("warning", w))
	}
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: logger, store: auth.NewFileStore()}
	a.provider = auth.NewProvider(cfg, os.Getenv(AccessTokenEnv), a.store, devicePrompt(cmd), logger.Named("auth"))

	a.client = graph.NewClient(graph.ClientOptions{
		Endpoint:  cfg.GraphEndpoint(),
		Token:     auth.TokenFunc(a.provider, cfg.Scopes, a.reauthenticated),
		RateLimit: cfg.RateLimit,
		RateBurst: cfg.RateBurst,
		Logger:    logger.Named("graph"),
		Hints: graph.HintContext{
			SiteHostname: cfg.SiteHostname,
			SitePath:     cfg.SitePath,
			RedirectURI:  cfg.RedirectURI,
		},
	})

	a.svc = submit.New(cfg, a.client, submit.Options{
		Logger:  logger.Named("submit"),
		SignOut: a.signOut,
	})
	return a, nil
}

// signOut drops every cached credential for this user.
func (a *app) signOut() error {
	if device, ok := a.provider.(*auth.DeviceCodeProvider); ok {
		return device.SignOut()
	}
	return a.store.Delete()
}

// reauthenticated drops session state resolved under the previous sign-in. A primer still
// running is discarded through the generation counter.
func (a *app) reauthenticated() {
	gen := a.svc.Cache().Invalidate()
	a.log.Info("signed in again; session cache cleared", zap.Uint64("generation", gen))
}

// prime warms the session cache in the background for long-running commands.
func (a *app) prime(ctx context.Context) {
	results := a.svc.Prime(ctx)
	go func() {
		for r := range results {
			switch {
			case errors.Is(r.Err, context.Canceled):
			case r.Err != nil:
				a.log.Warn("background resolution failed", zap.Error(r.Err))
			case r.Stale:
				a.log.Debug("background resolution discarded after sign-out")
			default:
				a.log.Info("session primed", zap.Int("choice_fields", len(r.Choices)))
			}
		}
	}()
}

func (a *app) close() {
	_ = a.log.Sync()
}

func devicePrompt(cmd *cobra.Command) func(*oauth2.DeviceAuthResponse) {
	return func(resp *oauth2.DeviceAuthResponse) {
		out := cmd.ErrOrStderr()
		if resp.VerificationURIComplete != "" {
			fmt.Fprintf(out, "To sign in, open %s\n", resp.VerificationURIComplete)
			return
		}
		fmt.Fprintf(out, "To sign in, open %s and enter the code %s\n", resp.VerificationURI, resp.UserCode)
	}
}
