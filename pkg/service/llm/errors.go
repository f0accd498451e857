package llm

import (
	"errors"
	"net/http"
	"strings"
)

// Soft failures: the orchestrator logs them and moves on to the next provider.
var (
	ErrRateLimited    = errors.New("provider rate limited")
	ErrQuotaExhausted = errors.New("provider quota or credits exhausted")
	ErrUpstream       = errors.New("provider upstream failure")
)

var quotaMarkers = []string{
	"quota",
	"credit",
	"billing",
	"insufficient_funds",
	"insufficient funds",
	"payment required",
	"resource_exhausted",
}

func mentionsQuota(body string) bool {
	lower := strings.ToLower(body)
	for _, m := range quotaMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// classifyStatus maps a non-2xx HTTP status and its body to a soft failure sentinel
func classifyStatus(code int, body string) error {
	switch {
	case code == http.StatusTooManyRequests:
		if mentionsQuota(body) {
			return ErrQuotaExhausted
		}
		return ErrRateLimited
	case code == http.StatusPaymentRequired:
		return ErrQuotaExhausted
	case (code == http.StatusForbidden || code == http.StatusBadRequest || code == http.StatusUnauthorized) && mentionsQuota(body):
		return ErrQuotaExhausted
	default:
		return ErrUpstream
	}
}

// classifyError maps an error returned by a client library to a soft failure sentinel
func classifyError(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case mentionsQuota(msg):
		return ErrQuotaExhausted
	case strings.Contains(msg, "429"), strings.Contains(msg, "rate limit"), strings.Contains(msg, "too many requests"):
		return ErrRateLimited
	default:
		return ErrUpstream
	}
}
