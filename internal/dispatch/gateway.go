package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultTimeout bounds a single gateway request.
const DefaultTimeout = 30 * time.Second

// Credentials address a tenant's gateway instance. They are stored as JSON
// in tenant_settings.credentials.
type Credentials struct {
	BaseURL  string `json:"base_url"`
	Token    string `json:"token"`
	Instance string `json:"instance"`
}

// ParseCredentials decodes and validates a tenant's credentials.
func ParseCredentials(raw string) (Credentials, error) {
	var c Credentials
	if strings.TrimSpace(raw) == "" {
		return c, fmt.Errorf("dispatch: credentials are empty")
	}
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return c, fmt.Errorf("dispatch: parse credentials: %w", err)
	}
	if c.BaseURL == "" {
		return c, fmt.Errorf("dispatch: credentials missing base_url")
	}
	if c.Instance == "" {
		return c, fmt.Errorf("dispatch: credentials missing instance")
	}
	return c, nil
}

// Gateway posts text messages to a WhatsApp-style HTTP gateway:
// POST {base_url}/message/sendText/{instance} with an apikey header.
type Gateway struct {
	client *http.Client
}

// GatewayOpts holds parameters for creating a Gateway.
type GatewayOpts struct {
	Timeout    time.Duration
	HTTPClient *http.Client // for testing; overrides Timeout
}

// NewGateway creates a Gateway.
func NewGateway(opts GatewayOpts) *Gateway {
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Gateway{client: client}
}

type sendTextRequest struct {
	Number string `json:"number"`
	Text   string `json:"text"`
}

// Dispatch sends msg.Text to msg.Phone.
func (g *Gateway) Dispatch(ctx context.Context, msg Message) error {
	creds, err := ParseCredentials(msg.Credentials)
	if err != nil {
		return err
	}
	if strings.TrimSpace(msg.Text) == "" {
		return fmt.Errorf("dispatch: tenant %s has no message template", msg.Tenant)
	}

	body, err := json.Marshal(sendTextRequest{Number: msg.Phone, Text: msg.Text})
	if err != nil {
		return fmt.Errorf("dispatch: encode request: %w", err)
	}
	endpoint := strings.TrimRight(creds.BaseURL, "/") + "/message/sendText/" + url.PathEscape(creds.Instance)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("dispatch: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if creds.Token != "" {
		req.Header.Set("apikey", creds.Token)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("dispatch: send to %s: %w", msg.Phone, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("dispatch: send to %s: gateway returned %d: %s", msg.Phone, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}
