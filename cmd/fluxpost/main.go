// Command fluxpost generates listing copy through the provider fallback
// chain, publishes it to Threads and Facebook, and drives the outreach backend.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/your-org/fluxpost/internal/app"
	"github.com/your-org/fluxpost/internal/config"
	"github.com/your-org/fluxpost/internal/logging"
)

// cli is the state shared by every command of one invocation.
type cli struct {
	cfg      config.Config
	logger   *zap.Logger
	jsonOut  bool
	logLevel string
	app      *app.App
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error: %v", err))
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "fluxpost",
		Short:         "Real estate content generation and social publishing",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if c.logLevel != "" {
				cfg.Log.Level = c.logLevel
			}
			// Keep stdout for command output.
			if cfg.Log.File == "" {
				cfg.Log.Format = "console"
			}
			c.cfg = cfg
			c.logger = logging.Must(cfg.Log)
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if c.app != nil {
				return c.app.Close(context.Background())
			}
			return nil
		},
	}
	root.PersistentFlags().BoolVar(&c.jsonOut, "json", false, "print results as JSON")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "override LOG_LEVEL")

	root.AddGroup(
		&cobra.Group{ID: "content", Title: "Content:"},
		&cobra.Group{ID: "publish", Title: "Publishing:"},
		&cobra.Group{ID: "outreach", Title: "Outreach:"},
		&cobra.Group{ID: "ops", Title: "Operations:"},
	)

	for _, cmd := range []*cobra.Command{generateCmd(c), socialPostCmd(c), tipCmd(c), marketingCmd(c)} {
		cmd.GroupID = "content"
		root.AddCommand(cmd)
	}
	for _, cmd := range []*cobra.Command{threadsCmd(c), facebookCmd(c)} {
		cmd.GroupID = "publish"
		root.AddCommand(cmd)
	}
	for _, cmd := range []*cobra.Command{outreachCmd(c), loginCmd(c), logoutCmd(c)} {
		cmd.GroupID = "outreach"
		root.AddCommand(cmd)
	}
	for _, cmd := range []*cobra.Command{serveCmd(c), auditExportCmd(c), issueTokenCmd(c), versionCmd(c)} {
		cmd.GroupID = "ops"
		root.AddCommand(cmd)
	}
	return root
}

// services builds the app on first use so commands that need none of it
// (version, audit-export) never touch the network or the session file.
func (c *cli) services() (*app.App, error) {
	if c.app != nil {
		return c.app, nil
	}
	a, err := app.New(c.cfg, c.logger)
	if err != nil {
		return nil, err
	}
	c.app = a
	return a, nil
}
