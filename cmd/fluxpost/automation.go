package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/your-org/fluxpost/internal/outreach"
)

func outreachUploadCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <leads.csv>",
		Short: "Import leads from a CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			oc, err := c.outreachClient()
			if err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			out, err := oc.UploadLeadsCSV(cmd.Context(), filepath.Base(args[0]), f)
			if err != nil {
				return err
			}
			return c.print(cmd.OutOrStdout(), out, func(w io.Writer) { renderObject(w, out) })
		},
	}
}

func outreachTemplatesCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "templates",
		Short: "List outreach message templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			oc, err := c.outreachClient()
			if err != nil {
				return err
			}
			list, err := oc.Templates(cmd.Context())
			if err != nil {
				return err
			}
			return c.print(cmd.OutOrStdout(), list, func(w io.Writer) {
				for _, t := range list {
					fmt.Fprintf(w, "%4d  %-24s %-10s %s\n", t.ID, t.Name, t.Platform, color.HiBlackString(t.Subject))
				}
			})
		},
	}

	setup := &cobra.Command{
		Use:   "setup",
		Short: "Seed the backend's default templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			oc, err := c.outreachClient()
			if err != nil {
				return err
			}
			out, err := oc.SetupTemplates(cmd.Context())
			if err != nil {
				return err
			}
			return c.print(cmd.OutOrStdout(), out, func(w io.Writer) { renderObject(w, out) })
		},
	}

	preview := &cobra.Command{
		Use:   "preview <id>",
		Short: "Render a template with sample data",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			oc, err := c.outreachClient()
			if err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			text, err := oc.PreviewTemplate(cmd.Context(), id)
			if err != nil {
				return err
			}
			return c.print(cmd.OutOrStdout(), map[string]string{"preview": text}, func(w io.Writer) {
				fmt.Fprintln(w, text)
			})
		},
	}

	cmd.AddCommand(setup, preview)
	return cmd
}

func outreachMessageCmd(c *cli) *cobra.Command {
	var (
		req  outreach.GenerateMessageRequest
		lead string
	)
	cmd := &cobra.Command{
		Use:   "message <template-id>",
		Short: "Fill a template for one lead",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			oc, err := c.outreachClient()
			if err != nil {
				return err
			}
			if req.TemplateID, err = parseID(args[0]); err != nil {
				return err
			}
			if lead != "" {
				if err := json.Unmarshal([]byte(lead), &req.LeadData); err != nil {
					return fmt.Errorf("decode --lead: %w", err)
				}
			}
			msg, err := oc.GenerateMessage(cmd.Context(), req)
			if err != nil {
				return err
			}
			return c.print(cmd.OutOrStdout(), msg, func(w io.Writer) {
				if msg.Subject != "" {
					fmt.Fprintln(w, color.New(color.Bold).Sprint(msg.Subject))
				}
				fmt.Fprintln(w, msg.Message)
			})
		},
	}
	cmd.Flags().StringVar(&req.Platform, "platform", "email", "delivery platform")
	cmd.Flags().StringVar(&lead, "lead", "", `lead fields as JSON, e.g. {"first_name":"Ana"}`)
	return cmd
}

// outreachSendCmd sends one message, or a JSON array of requests with --bulk.
func outreachSendCmd(c *cli) *cobra.Command {
	var (
		req  outreach.SendOutreachRequest
		bulk string
	)
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send an outreach message to a lead",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			oc, err := c.outreachClient()
			if err != nil {
				return err
			}
			if bulk != "" {
				var reqs []outreach.SendOutreachRequest
				if err := decodeFile(cmd, bulk, &reqs); err != nil {
					return err
				}
				res, err := oc.BulkOutreach(cmd.Context(), reqs)
				if err != nil {
					return err
				}
				return c.print(cmd.OutOrStdout(), res, func(w io.Writer) {
					fmt.Fprintf(w, "%s %d sent, %s\n", color.GreenString("✓"), res.Sent, color.RedString("%d failed", res.Failed))
				})
			}
			if req.LeadID <= 0 || req.Message == "" {
				return fmt.Errorf("--lead and --message are required")
			}
			res, err := oc.SendOutreach(cmd.Context(), req)
			if err != nil {
				return err
			}
			return c.print(cmd.OutOrStdout(), res, func(w io.Writer) {
				mark := color.GreenString("✓")
				if !res.Success {
					mark = color.RedString("✗")
				}
				fmt.Fprintf(w, "%s %s\n", mark, res.Message)
			})
		},
	}
	cmd.Flags().Int64Var(&req.LeadID, "lead", 0, "lead id")
	cmd.Flags().Int64Var(&req.TemplateID, "template", 0, "template id")
	cmd.Flags().StringVar(&req.Message, "message", "", "message body")
	cmd.Flags().StringVar(&req.Subject, "subject", "", "email subject")
	cmd.Flags().StringVar(&req.Platform, "platform", "email", "delivery platform")
	cmd.Flags().StringVar(&bulk, "bulk", "", "JSON file of requests, or - for stdin")
	return cmd
}

func decodeFile(cmd *cobra.Command, path string, v any) error {
	var in io.Reader = cmd.InOrStdin()
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}
	if err := json.NewDecoder(in).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
