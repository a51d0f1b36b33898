package openai

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// APIError is returned when the provider answers with an error payload,
// either as a non-200 response or inside the event stream.
type APIError struct {
	StatusCode int
	Type       string
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("openai: HTTP %d: %s: %s", e.StatusCode, e.Type, e.Message)
	}
	return fmt.Sprintf("openai: HTTP %d: %s", e.StatusCode, e.Message)
}

// IsInvalidKey reports an authentication rejection.
func (e *APIError) IsInvalidKey() bool {
	return e.Code == "invalid_api_key" || e.StatusCode == http.StatusUnauthorized
}

// IsQuotaExceeded reports an account without credits.
func (e *APIError) IsQuotaExceeded() bool {
	return e.Code == "insufficient_quota" || e.Type == "insufficient_quota"
}

// IsRateLimited reports HTTP 429 that is not a quota problem.
func (e *APIError) IsRateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests && !e.IsQuotaExceeded()
}

type wireError struct {
	Error *struct {
		Type    string          `json:"type"`
		Code    json.RawMessage `json:"code"`
		Message string          `json:"message"`
	} `json:"error"`
}

func (w wireError) toAPIError(status int) *APIError {
	if w.Error == nil {
		return nil
	}
	code := ""
	// code is a string for most errors but a number or null for some.
	var s string
	if json.Unmarshal(w.Error.Code, &s) == nil {
		code = s
	}
	return &APIError{
		StatusCode: status,
		Type:       w.Error.Type,
		Code:       code,
		Message:    w.Error.Message,
	}
}

// readAPIError parses {"error":{"type","code","message"}} from a failed
// response, falling back to the raw body.
func readAPIError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var wire wireError
	if json.Unmarshal(body, &wire) == nil {
		if apiErr := wire.toAPIError(resp.StatusCode); apiErr != nil && apiErr.Message != "" {
			return apiErr
		}
	}
	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    string(body),
	}
}
