package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/your-org/fluxpost/internal/social/threads"
)

func threadsCmd(c *cli) *cobra.Command {
	var token string
	cmd := &cobra.Command{
		Use:   "threads",
		Short: "Publish to and read from the Threads Graph API",
	}
	cmd.PersistentFlags().StringVar(&token, "token", os.Getenv("THREADS_ACCESS_TOKEN"), "Threads access token")

	var post threads.Post
	postCmd := &cobra.Command{
		Use:   "post <text...>",
		Short: "Create a container and publish it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.services()
			if err != nil {
				return err
			}
			post.Text = strings.Join(args, " ")
			out, err := a.Threads.Post(cmd.Context(), token, post)
			if err != nil {
				return err
			}
			return c.print(cmd.OutOrStdout(), out, func(w io.Writer) {
				fmt.Fprintf(w, "%s posted to Threads: %s\n", color.GreenString("✓"), out.ID)
			})
		},
	}
	postCmd.Flags().StringVar(&post.ImageURL, "image", "", "public image URL")
	postCmd.Flags().StringVar(&post.LinkURL, "link", "", "link attachment URL")

	profileCmd := &cobra.Command{
		Use:   "profile",
		Short: "Show the configured Threads profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.services()
			if err != nil {
				return err
			}
			p, err := a.Threads.Profile(cmd.Context(), token)
			if err != nil {
				return err
			}
			return c.print(cmd.OutOrStdout(), p, func(w io.Writer) {
				renderPairs(w, "Threads profile", "id", p.ID, "username", p.Username, "bio", truncate(p.Biography, 60))
			})
		},
	}

	insightsCmd := &cobra.Command{
		Use:   "insights <post-id>",
		Short: "Show engagement for one post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.services()
			if err != nil {
				return err
			}
			in, err := a.Threads.Insights(cmd.Context(), token, args[0])
			if err != nil {
				return err
			}
			return c.print(cmd.OutOrStdout(), in, func(w io.Writer) {
				pairs := make([]string, 0, 2*len(threads.InsightMetrics))
				for _, m := range threads.InsightMetrics {
					pairs = append(pairs, m, strconv.FormatInt(in.Total(m), 10))
				}
				renderPairs(w, "Insights for "+args[0], pairs...)
			})
		},
	}

	cmd.AddCommand(postCmd, profileCmd, insightsCmd)
	return cmd
}

func facebookCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "facebook",
		Short: "Publish to Facebook pages",
	}

	var userToken string
	pagesCmd := &cobra.Command{
		Use:   "pages",
		Short: "List the pages a user token manages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.services()
			if err != nil {
				return err
			}
			fb, err := a.Facebook.Load(cmd.Context())
			if err != nil {
				return err
			}
			pages, err := fb.Pages(cmd.Context(), userToken)
			if err != nil {
				return err
			}
			return c.print(cmd.OutOrStdout(), pages, func(w io.Writer) {
				for _, p := range pages {
					fmt.Fprintf(w, "%s  %s %s\n", color.CyanString(p.ID), p.Name, color.HiBlackString(p.Category))
				}
			})
		},
	}
	pagesCmd.Flags().StringVar(&userToken, "token", os.Getenv("FACEBOOK_USER_TOKEN"), "user access token")

	var pageID, pageToken, imageURL string
	postCmd := &cobra.Command{
		Use:   "post <message...>",
		Short: "Post a message, or a photo with --image, to a page",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.services()
			if err != nil {
				return err
			}
			fb, err := a.Facebook.Load(cmd.Context())
			if err != nil {
				return err
			}
			id, err := fb.Post(cmd.Context(), pageID, pageToken, strings.Join(args, " "), imageURL)
			if err != nil {
				return err
			}
			return c.print(cmd.OutOrStdout(), map[string]string{"postId": id}, func(w io.Writer) {
				fmt.Fprintf(w, "%s posted to Facebook: %s\n", color.GreenString("✓"), id)
			})
		},
	}
	postCmd.Flags().StringVar(&pageID, "page", "", "page id")
	postCmd.Flags().StringVar(&pageToken, "page-token", os.Getenv("FACEBOOK_PAGE_TOKEN"), "page access token")
	postCmd.Flags().StringVar(&imageURL, "image", "", "public image URL")

	cmd.AddCommand(pagesCmd, postCmd)
	return cmd
}
