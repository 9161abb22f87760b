package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/your-org/fluxpost/internal/content"
	"github.com/your-org/fluxpost/internal/fallback"
)

func generateCmd(c *cli) *cobra.Command {
	var (
		category string
		verbose  bool
	)
	cmd := &cobra.Command{
		Use:   "generate <prompt...>",
		Short: "Run a prompt through gemini, cohere and huggingface in order",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.services()
			if err != nil {
				return err
			}
			req := fallback.Request{Prompt: strings.Join(args, " "), Category: category}
			if verbose {
				rep, err := a.Chain.GenerateReport(cmd.Context(), req)
				// The report is worth printing even when every provider failed.
				if perr := c.print(cmd.OutOrStdout(), rep, func(w io.Writer) { renderReport(w, rep) }); perr != nil {
					return perr
				}
				return err
			}
			res, err := a.Chain.Generate(cmd.Context(), req)
			if err != nil {
				return err
			}
			return c.print(cmd.OutOrStdout(), res, func(w io.Writer) { renderResult(w, res) })
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "category echoed by the primary provider")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "show every attempt")
	return cmd
}

func socialPostCmd(c *cli) *cobra.Command {
	var platform string
	cmd := &cobra.Command{
		Use:   "social-post <topic...>",
		Short: "Write a social media post about a topic",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.services()
			if err != nil {
				return err
			}
			res, err := a.Content.SocialPost(cmd.Context(), strings.Join(args, " "), content.Platform(platform))
			if err != nil {
				return err
			}
			return c.print(cmd.OutOrStdout(), res, func(w io.Writer) { renderResult(w, res) })
		},
	}
	cmd.Flags().StringVar(&platform, "platform", string(content.Both), "facebook, threads or both")
	return cmd
}

func tipCmd(c *cli) *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:   "tip",
		Short: "Write a short real estate tip",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.services()
			if err != nil {
				return err
			}
			res, err := a.Content.Tip(cmd.Context(), category)
			if err != nil {
				return err
			}
			return c.print(cmd.OutOrStdout(), res, func(w io.Writer) { renderResult(w, res) })
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "tip category, e.g. staging or pricing")
	return cmd
}

func marketingCmd(c *cli) *cobra.Command {
	var tone string
	cmd := &cobra.Command{
		Use:   "marketing <product...>",
		Short: "Write marketing copy for a product or service",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.services()
			if err != nil {
				return err
			}
			res, err := a.Content.MarketingCopy(cmd.Context(), strings.Join(args, " "), content.Tone(tone))
			if err != nil {
				return err
			}
			return c.print(cmd.OutOrStdout(), res, func(w io.Writer) { renderResult(w, res) })
		},
	}
	cmd.Flags().StringVar(&tone, "tone", string(content.Professional), fmt.Sprintf("%s, %s or %s",
		content.Professional, content.Casual, content.Exciting))
	return cmd
}
