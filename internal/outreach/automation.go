package outreach

import (
	"context"
	"net/http"
)

// SetupTemplates asks the backend to seed its default templates.
func (c *Client) SetupTemplates(ctx context.Context) (Object, error) {
	var out Object
	if err := c.do(ctx, http.MethodPost, "/api/outreach/setup-templates", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Templates(ctx context.Context) ([]Template, error) {
	var out []Template
	if err := c.do(ctx, http.MethodGet, "/api/outreach/templates", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) PreviewTemplate(ctx context.Context, id int64) (string, error) {
	var out struct {
		Preview string `json:"preview"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/outreach/templates/"+itoa(id)+"/preview", nil, &out); err != nil {
		return "", err
	}
	return out.Preview, nil
}

func (c *Client) GenerateMessage(ctx context.Context, req GenerateMessageRequest) (GeneratedMessage, error) {
	var out GeneratedMessage
	if err := c.do(ctx, http.MethodPost, "/api/outreach/generate-message", req, &out); err != nil {
		return GeneratedMessage{}, err
	}
	return out, nil
}

func (c *Client) SendOutreach(ctx context.Context, req SendOutreachRequest) (SendResult, error) {
	var out SendResult
	if err := c.do(ctx, http.MethodPost, "/api/outreach/send", req, &out); err != nil {
		return SendResult{}, err
	}
	return out, nil
}

func (c *Client) BulkOutreach(ctx context.Context, reqs []SendOutreachRequest) (BulkResult, error) {
	var out BulkResult
	body := map[string][]SendOutreachRequest{"outreach_requests": reqs}
	if err := c.do(ctx, http.MethodPost, "/api/outreach/bulk-outreach", body, &out); err != nil {
		return BulkResult{}, err
	}
	return out, nil
}

// ReadyForOutreach lists leads that have an address and were not contacted yet.
func (c *Client) ReadyForOutreach(ctx context.Context) ([]Object, error) {
	var out []Object
	if err := c.do(ctx, http.MethodGet, "/api/outreach/ready", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) PerformanceReport(ctx context.Context) (Object, error) {
	var out Object
	if err := c.do(ctx, http.MethodGet, "/api/outreach/performance-report", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
