package facebook

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/your-org/fluxpost/internal/config"
	"github.com/your-org/fluxpost/internal/social"
)

// Default is the process-wide loader. Call Configure once at startup.
var Default = NewLoader(config.FacebookConfig{}, nil)

// Loader initializes the Graph client once per process. A failed Load is
// not memoized, so the next call tries again.
type Loader struct {
	mu         sync.Mutex
	cfg        config.FacebookConfig
	httpClient *http.Client
	opts       []Option
	client     *Client
}

func NewLoader(cfg config.FacebookConfig, httpClient *http.Client, opts ...Option) *Loader {
	return &Loader{cfg: cfg, httpClient: httpClient, opts: opts}
}

// Configure replaces the settings and drops any loaded client.
func (l *Loader) Configure(cfg config.FacebookConfig, httpClient *http.Client, opts ...Option) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cfg = cfg
	l.httpClient = httpClient
	l.opts = opts
	l.client = nil
}

// Load returns the memoized client, building it on first use. When an app
// secret is configured the app id is verified against the Graph API first.
func (l *Loader) Load(ctx context.Context) (*Client, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.client != nil {
		return l.client, nil
	}
	if strings.TrimSpace(l.cfg.AppID) == "" {
		return nil, fmt.Errorf("%w: facebook app id is not configured", social.ErrNotConfigured)
	}

	c := NewClient(l.cfg.GraphURL, l.httpClient, l.opts...)
	if l.cfg.AppSecret != "" {
		if err := c.verifyApp(ctx, l.cfg.AppID, l.cfg.AppSecret); err != nil {
			return nil, fmt.Errorf("facebook init: %w", err)
		}
	}
	l.client = c
	return c, nil
}

// verifyApp reads the app node with an app access token ("id|secret").
func (c *Client) verifyApp(ctx context.Context, appID, secret string) error {
	q := url.Values{"fields": {"id"}, "access_token": {appID + "|" + secret}}
	var out struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodGet, c.graphURL+"/"+url.PathEscape(appID)+"?"+q.Encode(), nil, &out); err != nil {
		return err
	}
	if out.ID != appID {
		return fmt.Errorf("graph returned app %q, want %q", out.ID, appID)
	}
	return nil
}
