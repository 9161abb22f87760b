package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/your-org/fluxpost/internal/outreach"
)

func outreachCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "outreach",
		Short: "Lead scraping and email campaigns on the outreach backend",
		Long: `Calls the outreach backend with the token saved by 'fluxpost login'.

Scraping, leads, campaigns and templates go to EMAIL_AUTOMATION_API.
Enrichment and stats go to API_BASE_URL.`,
	}
	cmd.AddCommand(
		outreachScrapeCmd(c),
		outreachJobsCmd(c),
		outreachPostsCmd(c),
		outreachLeadsCmd(c),
		outreachLeadStatusCmd(c),
		outreachUploadCmd(c),
		outreachCampaignsCmd(c),
		outreachTemplatesCmd(c),
		outreachMessageCmd(c),
		outreachSendCmd(c),
		outreachEnrichCmd(c),
		outreachStatsCmd(c),
	)
	return cmd
}

// outreachClient fails early when no token was saved; the backend would
// answer 401 anyway.
func (c *cli) outreachClient() (*outreach.Client, error) {
	a, err := c.services()
	if err != nil {
		return nil, err
	}
	if !a.Session.Authenticated() {
		return nil, fmt.Errorf("not logged in: run 'fluxpost login' first")
	}
	return a.Outreach, nil
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

func renderObject(w io.Writer, obj outreach.Object) {
	b, _ := json.MarshalIndent(obj, "", "  ")
	fmt.Fprintln(w, string(b))
}

func outreachScrapeCmd(c *cli) *cobra.Command {
	var (
		req      outreach.ScrapeKeywordsRequest
		user     string
		trending bool
	)
	cmd := &cobra.Command{
		Use:   "scrape [keyword...]",
		Short: "Start a keyword, user or trending scraping job",
		RunE: func(cmd *cobra.Command, args []string) error {
			if user == "" && !trending && len(args) == 0 {
				return fmt.Errorf("give keywords, --user or --trending")
			}
			oc, err := c.outreachClient()
			if err != nil {
				return err
			}
			var job outreach.JobStarted
			switch {
			case user != "":
				job, err = oc.ScrapeUser(cmd.Context(), outreach.ScrapeUserRequest{Platform: req.Platform, Username: user, Limit: req.Limit})
			case trending:
				job, err = oc.ScrapeTrending(cmd.Context(), req.Platform)
			default:
				req.Keywords = args
				job, err = oc.ScrapeKeywords(cmd.Context(), req)
			}
			if err != nil {
				return err
			}
			return c.print(cmd.OutOrStdout(), job, func(w io.Writer) {
				fmt.Fprintf(w, "%s job %d %s: %s\n", color.GreenString("✓"), job.JobID, job.Status, job.Message)
			})
		},
	}
	cmd.Flags().StringVar(&req.Platform, "platform", "reddit", "platform to scrape")
	cmd.Flags().IntVar(&req.Limit, "limit", 0, "maximum posts to collect")
	cmd.Flags().StringVar(&req.Location, "location", "", "location filter")
	cmd.Flags().StringVar(&user, "user", "", "scrape one user's posts instead of keywords")
	cmd.Flags().BoolVar(&trending, "trending", false, "scrape trending posts instead of keywords")
	return cmd
}

func outreachJobsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "jobs [id]",
		Short: "List scraping jobs, or show one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			oc, err := c.outreachClient()
			if err != nil {
				return err
			}
			if len(args) == 1 {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				job, err := oc.ScrapingJob(cmd.Context(), id)
				if err != nil {
					return err
				}
				return c.print(cmd.OutOrStdout(), job, func(w io.Writer) { renderJobs(w, []outreach.ScrapingJob{job}) })
			}
			jobs, err := oc.ScrapingJobs(cmd.Context())
			if err != nil {
				return err
			}
			return c.print(cmd.OutOrStdout(), jobs, func(w io.Writer) { renderJobs(w, jobs) })
		},
	}
}

func renderJobs(w io.Writer, jobs []outreach.ScrapingJob) {
	for _, j := range jobs {
		status := j.Status
		switch j.Status {
		case "completed":
			status = color.GreenString(status)
		case "failed":
			status = color.RedString(status)
		default:
			status = color.YellowString(status)
		}
		fmt.Fprintf(w, "%5d  %-10s %-10s %4d results  %s\n", j.ID, j.Platform, status, j.ResultsCount, j.CreatedAt)
		if j.ErrorMessage != "" {
			fmt.Fprintf(w, "       %s\n", color.RedString(j.ErrorMessage))
		}
	}
}

func outreachPostsCmd(c *cli) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "posts",
		Short: "List scraped social posts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			oc, err := c.outreachClient()
			if err != nil {
				return err
			}
			posts, err := oc.SocialPosts(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return c.print(cmd.OutOrStdout(), posts, func(w io.Writer) {
				for _, p := range posts {
					fmt.Fprintf(w, "%s %s  %s\n", color.CyanString("@"+p.AuthorUsername),
						color.HiBlackString("%.1f", p.EngagementScore), truncate(p.Title+" "+p.Content, 80))
				}
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "number of posts")
	return cmd
}

func outreachLeadsCmd(c *cli) *cobra.Command {
	var count, ready bool
	cmd := &cobra.Command{
		Use:   "leads",
		Short: "List leads found by scraping",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			oc, err := c.outreachClient()
			if err != nil {
				return err
			}
			if count {
				n, err := oc.LeadCount(cmd.Context())
				if err != nil {
					return err
				}
				return c.print(cmd.OutOrStdout(), n, func(w io.Writer) {
					renderPairs(w, "Leads",
						"total", strconv.Itoa(n.TotalLeads),
						"active", strconv.Itoa(n.ActiveLeads),
						"unsubscribed", strconv.Itoa(n.Unsubscribed))
				})
			}
			var leads []outreach.Object
			if ready {
				leads, err = oc.ReadyForOutreach(cmd.Context())
			} else {
				leads, err = oc.SocialLeads(cmd.Context())
			}
			if err != nil {
				return err
			}
			return c.print(cmd.OutOrStdout(), leads, func(w io.Writer) {
				for _, l := range leads {
					fmt.Fprintf(w, "%v  %v  %v\n", l["id"], l["username"], color.YellowString("%v", l["status"]))
				}
			})
		},
	}
	cmd.Flags().BoolVar(&count, "count", false, "show lead counts only")
	cmd.Flags().BoolVar(&ready, "ready", false, "list leads ready for outreach")
	return cmd
}

func outreachLeadStatusCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "lead-status <id> <status|contacted>",
		Short: "Update a lead's status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			oc, err := c.outreachClient()
			if err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			var out outreach.Object
			if args[1] == "contacted" {
				out, err = oc.MarkLeadContacted(cmd.Context(), id)
			} else {
				out, err = oc.UpdateLeadStatus(cmd.Context(), id, args[1])
			}
			if err != nil {
				return err
			}
			return c.print(cmd.OutOrStdout(), out, func(w io.Writer) { renderObject(w, out) })
		},
	}
}

func outreachCampaignsCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "campaigns",
		Short: "List, create, send and delete email campaigns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			oc, err := c.outreachClient()
			if err != nil {
				return err
			}
			list, err := oc.Campaigns(cmd.Context())
			if err != nil {
				return err
			}
			return c.print(cmd.OutOrStdout(), list, func(w io.Writer) {
				for _, camp := range list {
					fmt.Fprintf(w, "%v  %v  %s\n", camp["id"], camp["name"], color.HiBlackString("%v", camp["status"]))
				}
			})
		},
	}

	create := &cobra.Command{
		Use:   "create <file.json|->",
		Short: "Create a campaign from a JSON document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			oc, err := c.outreachClient()
			if err != nil {
				return err
			}
			var campaign outreach.Object
			if err := decodeFile(cmd, args[0], &campaign); err != nil {
				return err
			}
			out, err := oc.CreateCampaign(cmd.Context(), campaign)
			if err != nil {
				return err
			}
			return c.print(cmd.OutOrStdout(), out, func(w io.Writer) { renderObject(w, out) })
		},
	}

	var city string
	send := &cobra.Command{
		Use:   "send <id>",
		Short: "Send a campaign, optionally to one city",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.campaignAction(cmd, args[0], func(oc *outreach.Client, id int64) (outreach.Object, error) {
				return oc.SendCampaign(cmd.Context(), id, strings.TrimSpace(city))
			})
		},
	}
	send.Flags().StringVar(&city, "city", "", "only send to leads in this city")

	stats := &cobra.Command{
		Use:   "stats <id>",
		Short: "Show delivery and engagement for a campaign",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.campaignAction(cmd, args[0], func(oc *outreach.Client, id int64) (outreach.Object, error) {
				return oc.CampaignStats(cmd.Context(), id)
			})
		},
	}

	test := &cobra.Command{
		Use:   "test <id> <email>",
		Short: "Send a campaign to one test address",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.campaignAction(cmd, args[0], func(oc *outreach.Client, id int64) (outreach.Object, error) {
				return oc.SendTestCampaign(cmd.Context(), id, args[1])
			})
		},
	}

	del := &cobra.Command{
		Use:   "delete <id...>",
		Short: "Delete one or more campaigns",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return c.campaignAction(cmd, args[0], func(oc *outreach.Client, id int64) (outreach.Object, error) {
					return oc.DeleteCampaign(cmd.Context(), id)
				})
			}
			oc, err := c.outreachClient()
			if err != nil {
				return err
			}
			ids := make([]int64, 0, len(args))
			for _, raw := range args {
				id, err := parseID(raw)
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}
			out, err := oc.DeleteCampaigns(cmd.Context(), ids)
			if err != nil {
				return err
			}
			return c.print(cmd.OutOrStdout(), out, func(w io.Writer) { renderObject(w, out) })
		},
	}

	cmd.AddCommand(create, send, test, stats, del)
	return cmd
}

func (c *cli) campaignAction(cmd *cobra.Command, rawID string, fn func(*outreach.Client, int64) (outreach.Object, error)) error {
	oc, err := c.outreachClient()
	if err != nil {
		return err
	}
	id, err := parseID(rawID)
	if err != nil {
		return err
	}
	out, err := fn(oc, id)
	if err != nil {
		return err
	}
	return c.print(cmd.OutOrStdout(), out, func(w io.Writer) { renderObject(w, out) })
}

func outreachStatsCmd(c *cli) *cobra.Command {
	var scraping, analytics bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show the outreach overview",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			oc, err := c.outreachClient()
			if err != nil {
				return err
			}
			switch {
			case scraping:
				s, err := oc.ScrapingStats(cmd.Context())
				if err != nil {
					return err
				}
				return c.print(cmd.OutOrStdout(), s, func(w io.Writer) {
					renderPairs(w, fmt.Sprintf("Scraping, last %d days", s.PeriodDays),
						"jobs", strconv.Itoa(s.Summary.TotalJobs),
						"posts", strconv.Itoa(s.Summary.TotalPosts),
						"leads", strconv.Itoa(s.Summary.TotalLeads),
						"relevance", fmt.Sprintf("%.2f", s.Summary.AvgRelevanceScore))
				})
			case analytics:
				out, err := oc.OutreachAnalytics(cmd.Context())
				if err != nil {
					return err
				}
				return c.print(cmd.OutOrStdout(), out, func(w io.Writer) { renderObject(w, out) })
			}
			s, err := oc.StatsOverview(cmd.Context())
			if err != nil {
				return err
			}
			return c.print(cmd.OutOrStdout(), s, func(w io.Writer) {
				renderPairs(w, "Outreach overview",
					"leads", fmt.Sprintf("%d (%d active)", s.Leads.Total, s.Leads.Active),
					"campaigns", fmt.Sprintf("%d (%d this week)", s.Campaigns.Total, s.Campaigns.RecentWeek),
					"emails sent", strconv.Itoa(s.Emails.TotalSent),
					"open rate", fmt.Sprintf("%.1f%%", s.Engagement.OpenRate),
					"click rate", fmt.Sprintf("%.1f%%", s.Engagement.ClickRate))
			})
		},
	}
	cmd.Flags().BoolVar(&scraping, "scraping", false, "show scraping statistics instead")
	cmd.Flags().BoolVar(&analytics, "analytics", false, "show outreach analytics instead")

	weekly := &cobra.Command{
		Use:   "weekly",
		Short: "Show sends and engagement per week",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.listAction(cmd, func(oc *outreach.Client) ([]outreach.Object, error) {
				return oc.WeeklyStats(cmd.Context())
			})
		},
	}
	campaigns := &cobra.Command{
		Use:   "campaigns",
		Short: "Show stats for every campaign",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.listAction(cmd, func(oc *outreach.Client) ([]outreach.Object, error) {
				return oc.CampaignsStats(cmd.Context())
			})
		},
	}
	report := &cobra.Command{
		Use:   "report",
		Short: "Show the outreach performance report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			oc, err := c.outreachClient()
			if err != nil {
				return err
			}
			out, err := oc.PerformanceReport(cmd.Context())
			if err != nil {
				return err
			}
			return c.print(cmd.OutOrStdout(), out, func(w io.Writer) { renderObject(w, out) })
		},
	}
	cmd.AddCommand(weekly, campaigns, report)
	return cmd
}

// listAction prints one JSON object per line in human mode.
func (c *cli) listAction(cmd *cobra.Command, fn func(*outreach.Client) ([]outreach.Object, error)) error {
	oc, err := c.outreachClient()
	if err != nil {
		return err
	}
	list, err := fn(oc)
	if err != nil {
		return err
	}
	return c.print(cmd.OutOrStdout(), list, func(w io.Writer) {
		for _, obj := range list {
			b, _ := json.Marshal(obj)
			fmt.Fprintln(w, string(b))
		}
	})
}
