package openai

import (
	"encoding/json"
	"fmt"
	"io"
)

// Usage is the provider's own token count, sent as the last chunk when
// stream_options.include_usage is set.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type streamChunk struct {
	Model   string `json:"model"`
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	Usage *Usage `json:"usage"`
	wireError
}

// ChatStream yields content fragments from a streaming completion.
// It is not safe for concurrent use.
type ChatStream struct {
	body     io.ReadCloser
	scanner  *sseScanner
	model    string
	usage    *Usage
	finished bool
	done     bool
}

// NewChatStream wraps an SSE response body.
func NewChatStream(body io.ReadCloser) *ChatStream {
	return &ChatStream{
		body:    body,
		scanner: newSSEScanner(body),
	}
}

// Next returns the next content fragment, which may be empty for role or
// usage-only chunks. It returns io.EOF after the [DONE] sentinel and
// io.ErrUnexpectedEOF if the body ends before the model finished.
func (s *ChatStream) Next() (string, error) {
	if s.done {
		return "", io.EOF
	}
	for s.scanner.Next() {
		data := s.scanner.Event().Data
		if data == "[DONE]" {
			s.done = true
			return "", io.EOF
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			return "", fmt.Errorf("openai: decoding stream chunk: %w", err)
		}
		if apiErr := chunk.toAPIError(0); apiErr != nil {
			return "", apiErr
		}
		if chunk.Model != "" {
			s.model = chunk.Model
		}
		if chunk.Usage != nil {
			s.usage = chunk.Usage
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		choice := chunk.Choices[0]
		if choice.FinishReason != nil && *choice.FinishReason != "" {
			s.finished = true
		}
		return choice.Delta.Content, nil
	}
	if err := s.scanner.Err(); err != nil {
		return "", fmt.Errorf("openai: reading stream: %w", err)
	}
	s.done = true
	if !s.finished {
		return "", io.ErrUnexpectedEOF
	}
	return "", io.EOF
}

// Model returns the model id reported by the provider, if any.
func (s *ChatStream) Model() string {
	return s.model
}

// Usage returns provider token counts when they were streamed.
func (s *ChatStream) Usage() *Usage {
	return s.usage
}

// Close releases the response body.
func (s *ChatStream) Close() error {
	if s.body == nil {
		return nil
	}
	return s.body.Close()
}
