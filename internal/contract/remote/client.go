// Package remote implements the service contracts over the admin service's
// internal HTTP surface. Selected at wiring time for microservice mode;
// status codes map onto the uniform contract errors so callers cannot tell
// which backend answered.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/andyeko/apisentinel/internal/contract"
)

const defaultTimeout = 10 * time.Second

// Client is the shared HTTP transport for both remote contracts. It is
// safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient targets the admin service's internal API base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
}

// doJSON performs one request and decodes a 2xx body into out (when out is
// non-nil). Non-2xx statuses and transport failures are translated to the
// contract error taxonomy: 404 -> ErrNotFound, 409 -> ErrAlreadyExists,
// network failure -> ErrConnection, anything else -> ErrInternal.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return contract.Internalf("encode request: %v", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return contract.Internalf("build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return contract.Connectionf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return contract.ErrNotFound
	case resp.StatusCode == http.StatusConflict:
		return contract.ErrAlreadyExists
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return contract.Internalf("%s %s: status %d", method, path, resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return contract.Internalf("decode response: %v", err)
		}
	}
	return nil
}
