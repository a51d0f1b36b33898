package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Message is one chat turn. A non-empty ImageURL turns the content into a
// text + image_url part list.
type Message struct {
	Role     string
	Text     string
	ImageURL string
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

// MarshalJSON renders the provider wire shape.
func (m Message) MarshalJSON() ([]byte, error) {
	if m.ImageURL == "" {
		return json.Marshal(struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		}{m.Role, m.Text})
	}
	return json.Marshal(struct {
		Role    string        `json:"role"`
		Content []contentPart `json:"content"`
	}{
		Role: m.Role,
		Content: []contentPart{
			{Type: "text", Text: m.Text},
			{Type: "image_url", ImageURL: &imageURL{URL: m.ImageURL}},
		},
	})
}

// ChatRequest describes one completion call. Exactly one of MaxTokens and
// MaxCompletionTokens should be set; reasoning models reject max_tokens and
// any temperature.
type ChatRequest struct {
	Model               string
	Messages            []Message
	MaxTokens           int
	MaxCompletionTokens int
	Temperature         *float32
}

type chatRequest struct {
	Model               string         `json:"model"`
	Messages            []Message      `json:"messages"`
	MaxTokens           int            `json:"max_tokens,omitempty"`
	MaxCompletionTokens int            `json:"max_completion_tokens,omitempty"`
	Temperature         *float32       `json:"temperature,omitempty"`
	Stream              bool           `json:"stream"`
	StreamOptions       *streamOptions `json:"stream_options,omitempty"`
}

type streamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

// StreamChat starts a streaming completion. A non-200 answer is returned as
// *APIError before any content is read. The caller must Close the stream.
func (c *Client) StreamChat(ctx context.Context, apiKey string, req ChatRequest) (*ChatStream, error) {
	wire := chatRequest{
		Model:               req.Model,
		Messages:            req.Messages,
		MaxTokens:           req.MaxTokens,
		MaxCompletionTokens: req.MaxCompletionTokens,
		Temperature:         req.Temperature,
		Stream:              true,
		StreamOptions:       &streamOptions{IncludeUsage: true},
	}
	payload, err := json.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("openai: marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("openai: creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.authorized(ctx, apiKey).Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("openai: sending request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, readAPIError(resp)
	}
	return NewChatStream(resp.Body), nil
}
