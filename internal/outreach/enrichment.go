package outreach

import (
	"context"
	"net/http"
)

// Enrichment calls go to the dashboard API base.

func (c *Client) FindEmail(ctx context.Context, req FindEmailRequest) (EmailResult, error) {
	var out EmailResult
	if err := c.doAt(ctx, c.apiBase, http.MethodPost, "/api/enrichment/find-email", req, &out); err != nil {
		return EmailResult{}, err
	}
	return out, nil
}

func (c *Client) DomainSearch(ctx context.Context, req DomainSearchRequest) ([]EmailResult, error) {
	var out []EmailResult
	if err := c.doAt(ctx, c.apiBase, http.MethodPost, "/api/enrichment/domain-search", req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) VerifyEmail(ctx context.Context, email string) (Verification, error) {
	var out Verification
	body := map[string]string{"email": email}
	if err := c.doAt(ctx, c.apiBase, http.MethodPost, "/api/enrichment/verify-email", body, &out); err != nil {
		return Verification{}, err
	}
	return out, nil
}

func (c *Client) EnrichmentStatus(ctx context.Context) (EnrichmentStatus, error) {
	var out EnrichmentStatus
	if err := c.doAt(ctx, c.apiBase, http.MethodGet, "/api/enrichment/status", nil, &out); err != nil {
		return EnrichmentStatus{}, err
	}
	return out, nil
}
