package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/your-org/fluxpost/internal/app"
	"github.com/your-org/fluxpost/internal/audit"
	"github.com/your-org/fluxpost/internal/version"
)

func serveCmd(c *cli) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr != "" {
				c.cfg.Server.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return app.Run(ctx, c.cfg, c.logger)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides SERVER_ADDR")
	return cmd
}

func auditExportCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "audit-export [log.jsonl] [out.csv]",
		Short: "Convert the publish audit log to CSV",
		Long:  "Reads AUDIT_LOG_PATH, or the given file, and writes CSV to out.csv or stdout.",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := c.cfg.AuditLogPath
			if len(args) > 0 {
				in = args[0]
			}
			if in == "" {
				return fmt.Errorf("no audit log: pass a path or set AUDIT_LOG_PATH")
			}
			if len(args) < 2 {
				f, err := os.Open(in)
				if err != nil {
					return err
				}
				defer f.Close()
				_, err = audit.Export(f, cmd.OutOrStdout())
				return err
			}
			n, err := audit.ExportFile(in, args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%s exported %d events: %s -> %s\n", color.GreenString("✓"), n, in, args[1])
			return nil
		},
	}
}

func versionCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.print(cmd.OutOrStdout(), version.Get(), func(w io.Writer) {
				fmt.Fprintln(w, version.String())
			})
		},
	}
}
