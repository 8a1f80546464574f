package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultAddr = "http://localhost:8080"

// apiClient talks to the HTTP API of a running `outreach serve`.
type apiClient struct {
	base   string
	client *http.Client
}

func newAPIClient(addr string) *apiClient {
	return &apiClient{
		base:   strings.TrimRight(addr, "/"),
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// apiError is a non-2xx API response.
type apiError struct {
	Status int
	Code   string
}

func (e *apiError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api: %s (HTTP %d)", e.Code, e.Status)
	}
	return fmt.Sprintf("api: HTTP %d", e.Status)
}

// do sends a request for tenant slug and decodes a 2xx JSON body into out.
func (c *apiClient) do(ctx context.Context, method, slug, action string, out any) error {
	u := fmt.Sprintf("%s/api/tenants/%s/%s", c.base, url.PathEscape(slug), action)
	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return fmt.Errorf("api: build request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("api: %s %s: %w", method, u, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("api: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(body, &e)
		return &apiError{Status: resp.StatusCode, Code: e.Error}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("api: decode response: %w", err)
	}
	return nil
}
