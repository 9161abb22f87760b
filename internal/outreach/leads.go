package outreach

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
)

// UploadLeadsCSV posts a CSV of leads as the multipart field "file".
func (c *Client) UploadLeadsCSV(ctx context.Context, filename string, csv io.Reader) (Object, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("build upload: %w", err)
	}
	if _, err := io.Copy(part, csv); err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("build upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/upload/csv", &buf)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out Object
	if err := c.exchange(req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) LeadCount(ctx context.Context) (LeadCount, error) {
	var out LeadCount
	if err := c.do(ctx, http.MethodGet, "/api/upload/leads/count", nil, &out); err != nil {
		return LeadCount{}, err
	}
	return out, nil
}
