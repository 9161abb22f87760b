package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/your-org/fluxpost/internal/security"
	"github.com/your-org/fluxpost/internal/session"
)

func loginCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "login [token]",
		Short: "Save the outreach backend token",
		Long:  "Saves a bearer token for the outreach commands. Without an argument the token is read from stdin.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.services()
			if err != nil {
				return err
			}
			token := ""
			if len(args) == 1 {
				token = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && err != io.EOF {
					return fmt.Errorf("read token: %w", err)
				}
				token = line
			}
			token = strings.TrimSpace(token)
			if token == "" {
				return fmt.Errorf("token is required")
			}
			if err := a.Session.Set(token); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s logged in\n", color.GreenString("✓"))
			return nil
		},
	}
}

func logoutCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved outreach token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.services()
			if err != nil {
				return err
			}
			if err := a.Session.Clear(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "logged out")
			return nil
		},
	}
}

func issueTokenCmd(c *cli) *cobra.Command {
	var (
		role string
		ttl  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "issue-token <subject>",
		Short: "Sign an API token for the HTTP service",
		Long:  "Signs an HS256 token with JWT_SECRET for use as a bearer token against 'fluxpost serve'.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.cfg.Server.JWTSecret == "" {
				return fmt.Errorf("JWT_SECRET is not set")
			}
			r, err := security.ParseRole(role)
			if err != nil {
				return err
			}
			token, err := session.NewIssuer(c.cfg.Server.JWTSecret, "fluxpost", ttl).Issue(args[0], r)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&role, "role", string(security.RoleEditor), "viewer, editor or admin")
	cmd.Flags().DurationVar(&ttl, "ttl", session.DefaultTTL, "token lifetime")
	return cmd
}
