package credentials

import (
	"context"
	"errors"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"interview-relay/internal/llm/openai"
	"interview-relay/internal/shared/telemetry"
	"interview-relay/internal/shared/util"
)

const (
	validCacheTTL   = 10 * time.Minute
	maxDetailChars  = 100
	requiredPrefix  = "sk-"
	msgRequired     = "API key is required"
	msgBadFormat    = "Invalid API key format"
	msgInvalid      = "Invalid API key"
	msgNoQuota      = "API key has no credits/quota"
	msgFailedPrefix = "API key validation failed: "
)

// KeyChecker performs an authenticated no-op against the provider.
type KeyChecker interface {
	ListModels(ctx context.Context, apiKey string) error
}

// Result is the /validate-api-key payload.
type Result struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// KeyValidator checks API keys against the provider. Accepted keys are
// cached by hash so repeated session setups skip the round trip.
type KeyValidator struct {
	checker KeyChecker
	valid   *gocache.Cache
}

// NewKeyValidator constructs a KeyValidator.
func NewKeyValidator(checker KeyChecker) *KeyValidator {
	return &KeyValidator{
		checker: checker,
		valid:   gocache.New(validCacheTTL, 2*validCacheTTL),
	}
}

// Validate classifies key as valid, malformed, rejected, out of quota or
// unverifiable. Malformed keys never reach the provider.
func (v *KeyValidator) Validate(ctx context.Context, key string) Result {
	key = strings.TrimSpace(key)
	if key == "" {
		return Result{Error: msgRequired}
	}
	if !strings.HasPrefix(key, requiredPrefix) {
		return Result{Error: msgBadFormat}
	}

	hash := util.HashSecret(key)
	if _, ok := v.valid.Get(hash); ok {
		return Result{Valid: true}
	}

	err := v.checker.ListModels(ctx, key)
	if err == nil {
		v.valid.SetDefault(hash, struct{}{})
		return Result{Valid: true}
	}

	telemetry.Warn("credentials.api_key.rejected", map[string]any{
		"key": telemetry.MaskSecret(key),
		"err": err.Error(),
	})
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.IsQuotaExceeded():
			return Result{Error: msgNoQuota}
		case apiErr.IsInvalidKey():
			return Result{Error: msgInvalid}
		}
		return Result{Error: msgFailedPrefix + truncate(apiErr.Message, maxDetailChars)}
	}
	return Result{Error: msgFailedPrefix + truncate(err.Error(), maxDetailChars)}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
