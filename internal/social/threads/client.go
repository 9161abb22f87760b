// Package threads publishes to Threads through the Graph API's two-step
// container flow.
package threads

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/your-org/fluxpost/internal/audit"
	"github.com/your-org/fluxpost/internal/config"
	"github.com/your-org/fluxpost/internal/coordinator"
	"github.com/your-org/fluxpost/internal/metrics"
	"github.com/your-org/fluxpost/internal/social"
	"github.com/your-org/fluxpost/pkg/adapters"
)

const (
	DefaultBaseURL = "https://graph.threads.net/v1.0"
	platform       = "threads"

	profileFields = "id,username,threads_profile_picture_url,threads_biography"
)

// InsightMetrics are the metrics Insights requests, in display order.
var InsightMetrics = []string{"views", "likes", "replies", "reposts", "quotes"}

type Post struct {
	Text     string `json:"text"`
	ImageURL string `json:"imageUrl,omitempty"`
	LinkURL  string `json:"linkUrl,omitempty"`
}

// Published is the outcome of a two-step post.
type Published struct {
	CreationID string `json:"creationId"`
	ID         string `json:"id"`
}

type Profile struct {
	ID                string `json:"id"`
	Username          string `json:"username"`
	ProfilePictureURL string `json:"threads_profile_picture_url,omitempty"`
	Biography         string `json:"threads_biography,omitempty"`
}

type InsightValue struct {
	Value int64 `json:"value"`
}

// Insight is one metric. Views come back in Values, the counters in TotalValue.
type Insight struct {
	Name       string         `json:"name"`
	Period     string         `json:"period,omitempty"`
	Title      string         `json:"title,omitempty"`
	Values     []InsightValue `json:"values,omitempty"`
	TotalValue *InsightValue  `json:"total_value,omitempty"`
}

type Insights struct {
	Data []Insight `json:"data"`
}

// Total returns the metric's total, or its first value when no total exists.
func (in Insights) Total(name string) int64 {
	for _, m := range in.Data {
		if m.Name != name {
			continue
		}
		if m.TotalValue != nil {
			return m.TotalValue.Value
		}
		if len(m.Values) > 0 {
			return m.Values[0].Value
		}
	}
	return 0
}

type Client struct {
	userID     string
	baseURL    string
	httpClient *http.Client
	leases     coordinator.Coordinator
	leaseTTL   time.Duration
	audit      *audit.Logger
	metrics    metrics.Recorder
	logger     *zap.Logger
}

type Option func(*Client)

func WithCoordinator(c coordinator.Coordinator, ttl time.Duration) Option {
	return func(cl *Client) {
		if c != nil {
			cl.leases = c
			cl.leaseTTL = ttl
		}
	}
}

func WithAudit(l *audit.Logger) Option {
	return func(c *Client) { c.audit = l }
}

// WithMetrics counts each publish by outcome.
func WithMetrics(r metrics.Recorder) Option {
	return func(c *Client) {
		if r != nil {
			c.metrics = r
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

func NewClient(cfg config.ThreadsConfig, httpClient *http.Client, opts ...Option) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	c := &Client{
		userID:     strings.TrimSpace(cfg.UserID),
		baseURL:    strings.TrimRight(base, "/"),
		httpClient: httpClient,
		leases:     coordinator.NewMemoryCoordinator(),
		metrics:    metrics.NoopRecorder{},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.Named("threads")
	return c
}

func (c *Client) requireUser() error {
	if c.userID == "" {
		return fmt.Errorf("%w: threads user id is not configured", social.ErrNotConfigured)
	}
	return nil
}

// CreateContainer is step one: it stages a TEXT or IMAGE container and
// returns its creation id.
func (c *Client) CreateContainer(ctx context.Context, token string, post Post) (string, error) {
	if strings.TrimSpace(token) == "" || strings.TrimSpace(post.Text) == "" {
		return "", fmt.Errorf("%w: access token and text are required", social.ErrInvalid)
	}
	if err := c.requireUser(); err != nil {
		return "", err
	}

	body := map[string]string{
		"media_type":   "TEXT",
		"text":         post.Text,
		"access_token": token,
	}
	if post.ImageURL != "" {
		body["media_type"] = "IMAGE"
		body["image_url"] = post.ImageURL
	}
	if post.LinkURL != "" {
		body["link_attachment"] = post.LinkURL
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, c.baseURL+"/"+url.PathEscape(c.userID)+"/threads", body, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// Publish is step two: it makes a staged container visible.
func (c *Client) Publish(ctx context.Context, token string, creationID string) (string, error) {
	if strings.TrimSpace(token) == "" || strings.TrimSpace(creationID) == "" {
		return "", fmt.Errorf("%w: access token and creation id are required", social.ErrInvalid)
	}
	if err := c.requireUser(); err != nil {
		return "", err
	}

	body := map[string]string{
		"creation_id":  creationID,
		"access_token": token,
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, c.baseURL+"/"+url.PathEscape(c.userID)+"/threads_publish", body, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// Post creates and publishes in one call while holding the account's
// publish lease. Publish runs only if the container came back with an id.
func (c *Client) Post(ctx context.Context, token string, post Post) (Published, error) {
	if err := c.requireUser(); err != nil {
		return Published{}, err
	}

	var out Published
	err := coordinator.WithLease(ctx, c.leases, platform+":"+c.userID, c.leaseTTL, func(ctx context.Context) error {
		id, err := c.CreateContainer(ctx, token, post)
		if err != nil {
			return err
		}
		if id == "" {
			return &adapters.ProviderError{Provider: platform, StatusCode: http.StatusBadGateway, Message: "container response had no id"}
		}
		out.CreationID = id

		out.ID, err = c.Publish(ctx, token, id)
		return err
	})
	// The post is live; an expired lease only means another publish may have overlapped.
	if errors.Is(err, coordinator.ErrLeaseLost) && out.ID != "" {
		c.logger.Warn("publish lease expired during threads post", zap.String("id", out.ID), zap.Error(err))
		err = nil
	}

	c.metrics.ObservePublish(platform, metrics.Status(err))
	if auditErr := c.audit.Publish(platform, c.userID, "post", out.ID, err); auditErr != nil {
		c.logger.Warn("audit write failed", zap.Error(auditErr))
	}
	if err != nil {
		c.logger.Warn("threads post failed", zap.String("creation_id", out.CreationID), zap.Error(err))
		return Published{}, err
	}
	c.logger.Info("threads post published", zap.String("creation_id", out.CreationID), zap.String("id", out.ID))
	return out, nil
}

func (c *Client) Profile(ctx context.Context, token string) (Profile, error) {
	if strings.TrimSpace(token) == "" {
		return Profile{}, fmt.Errorf("%w: access token is required", social.ErrInvalid)
	}
	if err := c.requireUser(); err != nil {
		return Profile{}, err
	}

	q := url.Values{"fields": {profileFields}, "access_token": {token}}
	var out Profile
	if err := c.do(ctx, http.MethodGet, c.baseURL+"/"+url.PathEscape(c.userID)+"?"+q.Encode(), nil, &out); err != nil {
		return Profile{}, err
	}
	return out, nil
}

func (c *Client) Insights(ctx context.Context, token string, postID string) (Insights, error) {
	if strings.TrimSpace(token) == "" || strings.TrimSpace(postID) == "" {
		return Insights{}, fmt.Errorf("%w: access token and post id are required", social.ErrInvalid)
	}

	q := url.Values{"metric": {strings.Join(InsightMetrics, ",")}, "access_token": {token}}
	var out Insights
	if err := c.do(ctx, http.MethodGet, c.baseURL+"/"+url.PathEscape(postID)+"/insights?"+q.Encode(), nil, &out); err != nil {
		return Insights{}, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, rawURL string, payload any, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return fmt.Errorf("build threads request: %w", err)
	}
	body, err := adapters.DoJSON(ctx, c.httpClient, req, platform, payload)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &adapters.ProviderError{Provider: platform, StatusCode: http.StatusBadGateway, Message: "parse response: " + err.Error()}
	}
	return nil
}
