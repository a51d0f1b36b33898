package openai

import (
	"context"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// DefaultBaseURL is the public API root.
const DefaultBaseURL = "https://api.openai.com/v1"

// Client talks to the chat completions and models endpoints. It holds no
// credential: every call takes the key that is current at request time, since
// the user can replace it through the profile while the relay runs.
type Client struct {
	baseURL string
	timeout time.Duration
	base    *http.Client
}

// NewClient constructs a client. timeout bounds non-streaming calls only;
// streaming calls live as long as their context.
func NewClient(baseURL string, timeout time.Duration) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = 2 * timeout
	return &Client{
		baseURL: baseURL,
		timeout: timeout,
		base:    &http.Client{Transport: transport},
	}
}

// BaseURL returns the configured API root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// authorized returns an HTTP client that sends apiKey as a bearer token.
func (c *Client) authorized(ctx context.Context, apiKey string) *http.Client {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.base)
	return oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: apiKey,
		TokenType:   "Bearer",
	}))
}
