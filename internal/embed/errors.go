package embed

import (
	"errors"
	"strings"
)

var (
	// ErrRateLimited reports a transient provider rate limit. Retried.
	ErrRateLimited = errors.New("embedding rate limited")
	// ErrQuotaExhausted reports an exhausted provider quota. Not retried.
	ErrQuotaExhausted = errors.New("embedding quota exhausted")
	// ErrMalformedInput reports input the provider cannot embed.
	ErrMalformedInput = errors.New("malformed embedding input")
	// ErrDimensionMismatch reports a response vector of unexpected width.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// NOTE: providers surface failures as opaque error strings, so transient
// classification falls back to substring matching. The patterns below cover
// the Gemini, OpenAI and Ollama failure messages seen in practice.
var rateLimitPatterns = []string{
	"rate limit",
	"ratelimit",
	"429",
	"too many requests",
	"resource exhausted",
	"resource_exhausted",
}

var quotaPatterns = []string{
	"quota exceeded",
	"quota_exceeded",
	"insufficient quota",
	"insufficient_quota",
	"billing",
}

var transientPatterns = []string{
	"500",
	"502",
	"503",
	"504",
	"internal server error",
	"service unavailable",
	"connection reset",
	"connection refused",
	"timeout",
	"deadline exceeded",
	"unavailable",
	"overloaded",
}

// classify maps a raw provider error onto this package's sentinels. Quota
// patterns are checked before rate-limit patterns because quota messages
// often also mention 429.
func classify(err error) error {
	msg := strings.ToLower(err.Error())

	for _, p := range quotaPatterns {
		if strings.Contains(msg, p) {
			return ErrQuotaExhausted
		}
	}
	for _, p := range rateLimitPatterns {
		if strings.Contains(msg, p) {
			return ErrRateLimited
		}
	}
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return ErrRateLimited
		}
	}
	return nil
}
