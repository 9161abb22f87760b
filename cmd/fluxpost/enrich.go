package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/your-org/fluxpost/internal/outreach"
)

func outreachEnrichCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "enrich",
		Short: "Find and verify lead email addresses",
	}

	find := &cobra.Command{
		Use:   "find <first> <last> <domain>",
		Short: "Guess a person's address at a domain",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			oc, err := c.outreachClient()
			if err != nil {
				return err
			}
			res, err := oc.FindEmail(cmd.Context(), outreach.FindEmailRequest{FirstName: args[0], LastName: args[1], Domain: args[2]})
			if err != nil {
				return err
			}
			return c.print(cmd.OutOrStdout(), res, func(w io.Writer) { renderEmails(w, []outreach.EmailResult{res}) })
		},
	}

	var limit int
	domain := &cobra.Command{
		Use:   "domain <domain>",
		Short: "List known addresses at a domain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			oc, err := c.outreachClient()
			if err != nil {
				return err
			}
			res, err := oc.DomainSearch(cmd.Context(), outreach.DomainSearchRequest{Domain: args[0], Limit: limit})
			if err != nil {
				return err
			}
			return c.print(cmd.OutOrStdout(), res, func(w io.Writer) { renderEmails(w, res) })
		},
	}
	domain.Flags().IntVar(&limit, "limit", 0, "maximum addresses")

	verify := &cobra.Command{
		Use:   "verify <email>",
		Short: "Check that an address accepts mail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			oc, err := c.outreachClient()
			if err != nil {
				return err
			}
			v, err := oc.VerifyEmail(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return c.print(cmd.OutOrStdout(), v, func(w io.Writer) {
				mark := color.GreenString("✓ valid")
				if !v.Valid {
					mark = color.RedString("✗ invalid")
				}
				fmt.Fprintf(w, "%s %s (confidence %.0f)\n", mark, v.Email, v.Confidence)
			})
		},
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show whether the enrichment service is enabled",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			oc, err := c.outreachClient()
			if err != nil {
				return err
			}
			s, err := oc.EnrichmentStatus(cmd.Context())
			if err != nil {
				return err
			}
			return c.print(cmd.OutOrStdout(), s, func(w io.Writer) {
				renderPairs(w, "Enrichment",
					"enabled", fmt.Sprint(s.Enabled),
					"service", s.Service,
					"message", s.Message)
			})
		},
	}

	cmd.AddCommand(find, domain, verify, status)
	return cmd
}

func renderEmails(w io.Writer, list []outreach.EmailResult) {
	for _, e := range list {
		name := strings.TrimSpace(e.FirstName + " " + e.LastName)
		fmt.Fprintf(w, "%s  %s  %s\n", color.CyanString(e.Email), name, color.HiBlackString("%.0f", e.Confidence))
	}
}
