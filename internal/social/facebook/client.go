// Package facebook lists a user's pages and posts to them through the
// Graph API.
package facebook

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/your-org/fluxpost/internal/audit"
	"github.com/your-org/fluxpost/internal/metrics"
	"github.com/your-org/fluxpost/internal/social"
	"github.com/your-org/fluxpost/pkg/adapters"
)

const (
	DefaultGraphURL = "https://graph.facebook.com/v18.0"
	platform        = "facebook"
)

// Page is a page the user manages, with the page-scoped token needed to post.
type Page struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	AccessToken string `json:"access_token"`
	Category    string `json:"category,omitempty"`
}

type Client struct {
	graphURL   string
	httpClient *http.Client
	audit      *audit.Logger
	metrics    metrics.Recorder
	logger     *zap.Logger
}

type Option func(*Client)

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

func NewClient(graphURL string, httpClient *http.Client, opts ...Option) *Client {
	if graphURL == "" {
		graphURL = DefaultGraphURL
	}
	c := &Client{
		graphURL:   strings.TrimRight(graphURL, "/"),
		httpClient: httpClient,
		metrics:    metrics.NoopRecorder{},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.Named("facebook")
	return c
}

// Pages reads me/accounts. A response without data yields an empty slice.
func (c *Client) Pages(ctx context.Context, userToken string) ([]Page, error) {
	if strings.TrimSpace(userToken) == "" {
		return nil, fmt.Errorf("%w: user access token is required", social.ErrInvalid)
	}

	q := url.Values{"access_token": {userToken}}
	var out struct {
		Data []Page `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, c.graphURL+"/me/accounts?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	if out.Data == nil {
		return []Page{}, nil
	}
	return out.Data, nil
}

// Post publishes message to the page. With imageURL it becomes a photo post.
func (c *Client) Post(ctx context.Context, pageID, pageToken, message, imageURL string) (string, error) {
	if strings.TrimSpace(pageID) == "" || strings.TrimSpace(pageToken) == "" || strings.TrimSpace(message) == "" {
		return "", fmt.Errorf("%w: page id, page access token and message are required", social.ErrInvalid)
	}

	endpoint := c.graphURL + "/" + url.PathEscape(pageID) + "/feed"
	body := map[string]string{
		"message":      message,
		"access_token": pageToken,
	}
	if imageURL != "" {
		endpoint = c.graphURL + "/" + url.PathEscape(pageID) + "/photos"
		body["url"] = imageURL
	}

	var out struct {
		ID     string `json:"id"`
		PostID string `json:"post_id"`
	}
	err := c.do(ctx, http.MethodPost, endpoint, body, &out)
	// Photo posts return both ids; post_id is the feed story.
	postID := out.ID
	if out.PostID != "" {
		postID = out.PostID
	}

	c.metrics.ObservePublish(platform, metrics.Status(err))
	if auditErr := c.audit.Publish(platform, pageID, "post", postID, err); auditErr != nil {
		c.logger.Warn("audit write failed", zap.Error(auditErr))
	}
	if err != nil {
		c.logger.Warn("facebook post failed", zap.String("page_id", pageID), zap.Error(err))
		return "", err
	}
	c.logger.Info("facebook post published", zap.String("page_id", pageID), zap.String("post_id", postID))
	return postID, nil
}

func (c *Client) do(ctx context.Context, method, rawURL string, payload any, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return fmt.Errorf("build facebook request: %w", err)
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
