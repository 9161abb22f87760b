// Package outreach is a bearer-token client for the lead scraping and
// email campaign backend.
package outreach

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/your-org/fluxpost/pkg/adapters"
)

const defaultPostLimit = 50

// TokenSource supplies the current bearer token; "" sends no Authorization.
type TokenSource interface {
	Token() string
}

// APIError is a non-2xx backend response, or a 500 "Network Error" when the
// backend could not be reached.
type APIError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("outreach api %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }

// StatusCode returns err's HTTP status, falling back to adapters.StatusCode.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return adapters.StatusCode(err)
}

// Client talks to two bases: the email automation backend for scraping,
// leads, campaigns and outreach, and the dashboard API for enrichment and
// stats. Without WithAPIBase both go to the automation backend.
type Client struct {
	baseURL    string
	apiBase    string
	tokens     TokenSource
	httpClient *http.Client
}

type Option func(*Client)

// WithAPIBase routes enrichment and stats calls to base.
func WithAPIBase(base string) Option {
	return func(c *Client) {
		if base = strings.TrimRight(base, "/"); base != "" {
			c.apiBase = base
		}
	}
}

func NewClient(baseURL string, tokens TokenSource, httpClient *http.Client, opts ...Option) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		tokens:     tokens,
		httpClient: httpClient,
	}
	c.apiBase = c.baseURL
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) ScrapeKeywords(ctx context.Context, req ScrapeKeywordsRequest) (JobStarted, error) {
	var out JobStarted
	if err := c.do(ctx, http.MethodPost, "/api/scrape/keywords", req, &out); err != nil {
		return JobStarted{}, err
	}
	return out, nil
}

func (c *Client) ScrapingJobs(ctx context.Context) ([]ScrapingJob, error) {
	var out []ScrapingJob
	if err := c.do(ctx, http.MethodGet, "/api/scraping-jobs", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ScrapingJob(ctx context.Context, id int64) (ScrapingJob, error) {
	var out ScrapingJob
	if err := c.do(ctx, http.MethodGet, "/api/scraping-jobs/"+itoa(id), nil, &out); err != nil {
		return ScrapingJob{}, err
	}
	return out, nil
}

// SocialPosts lists scraped posts; limit <= 0 asks for the backend default of 50.
func (c *Client) SocialPosts(ctx context.Context, limit int) ([]SocialPost, error) {
	if limit <= 0 {
		limit = defaultPostLimit
	}
	var out []SocialPost
	if err := c.do(ctx, http.MethodGet, "/api/social-posts?limit="+strconv.Itoa(limit), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) SocialLeads(ctx context.Context) ([]Object, error) {
	var out []Object
	if err := c.do(ctx, http.MethodGet, "/api/leads/social", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) UpdateLeadStatus(ctx context.Context, id int64, status string) (Object, error) {
	var out Object
	body := map[string]string{"status": status}
	if err := c.do(ctx, http.MethodPut, "/api/leads/"+itoa(id)+"/status", body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) MarkLeadContacted(ctx context.Context, id int64) (Object, error) {
	var out Object
	if err := c.do(ctx, http.MethodPost, "/api/leads/"+itoa(id)+"/contact", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Campaigns(ctx context.Context) ([]Object, error) {
	var out []Object
	if err := c.do(ctx, http.MethodGet, "/api/campaigns/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateCampaign(ctx context.Context, campaign any) (Object, error) {
	var out Object
	if err := c.do(ctx, http.MethodPost, "/api/campaigns/", campaign, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) DeleteCampaign(ctx context.Context, id int64) (Object, error) {
	var out Object
	if err := c.do(ctx, http.MethodDelete, "/api/campaigns/"+itoa(id), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SendCampaign sends to every lead, or only leads in cityFilter when set.
func (c *Client) SendCampaign(ctx context.Context, id int64, cityFilter string) (Object, error) {
	body := struct {
		CityFilter *string `json:"city_filter"`
	}{}
	if cityFilter != "" {
		body.CityFilter = &cityFilter
	}
	var out Object
	if err := c.do(ctx, http.MethodPost, "/api/campaigns/"+itoa(id)+"/send", body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CampaignStats(ctx context.Context, id int64) (Object, error) {
	var out Object
	if err := c.do(ctx, http.MethodGet, "/api/campaigns/"+itoa(id)+"/stats", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ScrapingStats(ctx context.Context) (ScrapingStats, error) {
	var out ScrapingStats
	if err := c.do(ctx, http.MethodGet, "/api/analytics/scraping-stats", nil, &out); err != nil {
		return ScrapingStats{}, err
	}
	return out, nil
}

func (c *Client) OutreachAnalytics(ctx context.Context) (Object, error) {
	var out Object
	if err := c.do(ctx, http.MethodGet, "/api/outreach/analytics", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) StatsOverview(ctx context.Context) (StatsOverview, error) {
	var out StatsOverview
	if err := c.doAt(ctx, c.apiBase, http.MethodGet, "/api/stats/overview", nil, &out); err != nil {
		return StatsOverview{}, err
	}
	return out, nil
}

// WeeklyStats accepts a bare array or one wrapped in weekly_stats or data.
func (c *Client) WeeklyStats(ctx context.Context) ([]Object, error) {
	var raw json.RawMessage
	if err := c.doAt(ctx, c.apiBase, http.MethodGet, "/api/stats/weekly", nil, &raw); err != nil {
		return nil, err
	}
	return unwrapList(raw, "weekly_stats", "data")
}

func (c *Client) CampaignsStats(ctx context.Context) ([]Object, error) {
	var out []Object
	if err := c.doAt(ctx, c.apiBase, http.MethodGet, "/api/stats/campaigns", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ScrapeUser(ctx context.Context, req ScrapeUserRequest) (JobStarted, error) {
	var out JobStarted
	if err := c.do(ctx, http.MethodPost, "/api/scrape/user", req, &out); err != nil {
		return JobStarted{}, err
	}
	return out, nil
}

func (c *Client) ScrapeTrending(ctx context.Context, platform string) (JobStarted, error) {
	var out JobStarted
	if err := c.do(ctx, http.MethodPost, "/api/scrape/trending/"+url.PathEscape(platform), nil, &out); err != nil {
		return JobStarted{}, err
	}
	return out, nil
}

func (c *Client) SendTestCampaign(ctx context.Context, id int64, email string) (Object, error) {
	var out Object
	body := map[string]string{"test_email": email}
	if err := c.do(ctx, http.MethodPost, "/api/campaigns/"+itoa(id)+"/test", body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) DeleteCampaigns(ctx context.Context, ids []int64) (Object, error) {
	var out Object
	body := map[string][]int64{"campaign_ids": ids}
	if err := c.do(ctx, http.MethodDelete, "/api/campaigns/bulk", body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload any, out any) error {
	return c.doAt(ctx, c.baseURL, method, path, payload, out)
}

func (c *Client) doAt(ctx context.Context, base, method, path string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, base+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.exchange(req, out)
}

// exchange adds auth, sends req and decodes a 2xx JSON body into out.
func (c *Client) exchange(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")
	if c.tokens != nil {
		if tok := c.tokens.Token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &APIError{StatusCode: http.StatusInternalServerError, Message: "Network Error", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{StatusCode: http.StatusInternalServerError, Message: "Network Error", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(raw, resp.Status)}
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", req.Method, req.URL.Path, err)
	}
	return nil
}

// errorMessage prefers the backend's {"detail": "..."} and then the shapes
// adapters.ErrorMessage understands.
func errorMessage(raw []byte, status string) string {
	var detail struct {
		Detail any `json:"detail"`
	}
	if json.Unmarshal(raw, &detail) == nil {
		switch d := detail.Detail.(type) {
		case string:
			if d != "" {
				return d
			}
		case nil:
		default:
			if b, err := json.Marshal(d); err == nil {
				return string(b)
			}
		}
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return status
	}
	return adapters.ErrorMessage(raw)
}

func unwrapList(raw json.RawMessage, keys ...string) ([]Object, error) {
	var list []Object
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}
	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("decode list: %w", err)
	}
	for _, k := range keys {
		if inner, ok := wrapped[k]; ok {
			if err := json.Unmarshal(inner, &list); err != nil {
				return nil, fmt.Errorf("decode %s: %w", k, err)
			}
			return list, nil
		}
	}
	return nil, fmt.Errorf("decode list: none of %s present", strings.Join(keys, ", "))
}

func itoa(id int64) string {
	return url.PathEscape(strconv.FormatInt(id, 10))
}
