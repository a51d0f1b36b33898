package openai

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// ListModels performs a cheap authenticated call, used to check that a key
// is accepted. Any non-200 answer comes back as *APIError.
func (c *Client) ListModels(ctx context.Context, apiKey string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models", nil)
	if err != nil {
		return fmt.Errorf("openai: creating request: %w", err)
	}
	resp, err := c.authorized(ctx, apiKey).Do(req)
	if err != nil {
		return fmt.Errorf("openai: sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return readAPIError(resp)
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
	return nil
}
