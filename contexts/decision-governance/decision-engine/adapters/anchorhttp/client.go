// Package anchorhttp submits commitment digests to an external anchoring
// service over HTTP. The engine treats the anchor as best-effort: callers
// bound each submission with a context deadline and record decisions without
// an anchor reference when the service is slow or down.
package anchorhttp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"quorum/contexts/decision-governance/decision-engine/ports"
)

type Client struct {
	endpoint    string
	explorerURL string
	httpClient  *http.Client
}

type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client, mainly for tests.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient builds an anchor client. endpoint receives digest submissions;
// explorerBaseURL is the public viewer URL prefix (empty disables links).
func NewClient(endpoint string, explorerBaseURL string, opts ...Option) *Client {
	client := &Client{
		endpoint:    strings.TrimRight(strings.TrimSpace(endpoint), "/"),
		explorerURL: strings.TrimRight(strings.TrimSpace(explorerBaseURL), "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type submitRequest struct {
	Digest    string `json:"digest"`
	PollID    string `json:"poll_id"`
	Mode      string `json:"mode"`
	Timestamp int64  `json:"timestamp"`
}

type submitResponse struct {
	AnchorRef string `json:"anchor_ref"`
}

// Submit posts the digest with non-identifying metadata and returns the
// service-assigned anchor reference. The caller's context bounds the request.
func (c *Client) Submit(ctx context.Context, digest string, metadata ports.AnchorMetadata) (string, error) {
	payload, err := json.Marshal(submitRequest{
		Digest:    digest,
		PollID:    metadata.PollID,
		Mode:      metadata.Mode,
		Timestamp: metadata.Timestamp,
	})
	if err != nil {
		return "", fmt.Errorf("marshal anchor request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/anchors", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build anchor request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("submit anchor: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read anchor response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("anchor service returned status %d", resp.StatusCode)
	}

	var parsed submitResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decode anchor response: %w", err)
	}
	anchorRef := strings.TrimSpace(parsed.AnchorRef)
	if anchorRef == "" {
		return "", fmt.Errorf("anchor service returned empty reference")
	}
	return anchorRef, nil
}

// ExplorerURL returns the public viewer link for an anchor reference, or
// empty when no explorer is configured or the reference is blank.
func (c *Client) ExplorerURL(anchorRef string) string {
	anchorRef = strings.TrimSpace(anchorRef)
	if anchorRef == "" || c.explorerURL == "" {
		return ""
	}
	return c.explorerURL + "/" + anchorRef
}

var _ ports.AnchorClient = (*Client)(nil)
