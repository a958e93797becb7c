package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// ErrRateLimit indicates the provider returned a rate limit error (429).
type ErrRateLimit struct {
	RetryAfter time.Duration
	Err        error
}

func (e *ErrRateLimit) Error() string {
	return fmt.Sprintf("rate limited (retry after %s): %v", e.RetryAfter, e.Err)
}

func (e *ErrRateLimit) Unwrap() error { return e.Err }

// ErrInvalidResponse indicates the LLM returned content that does not
// conform to the requested schema.
type ErrInvalidResponse struct {
	Content json.RawMessage
	Err     error
}

func (e *ErrInvalidResponse) Error() string {
	return fmt.Sprintf("invalid LLM response: %v", e.Err)
}

func (e *ErrInvalidResponse) Unwrap() error { return e.Err }

// ErrProviderUnavailable indicates the provider is down or unreachable.
type ErrProviderUnavailable struct {
	Err error
}

func (e *ErrProviderUnavailable) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("LLM provider unavailable: %v", e.Err)
	}
	return "LLM provider unavailable"
}

func (e *ErrProviderUnavailable) Unwrap() error { return e.Err }

// ErrRequestRejected indicates the provider refused the request itself
// (bad credentials, unknown model, malformed parameters). Sending it again
// will not help.
type ErrRequestRejected struct {
	Status int
	Err    error
}

func (e *ErrRequestRejected) Error() string {
	return fmt.Sprintf("LLM request rejected (HTTP %d): %v", e.Status, e.Err)
}

func (e *ErrRequestRejected) Unwrap() error { return e.Err }

// ErrMaxTokensExceeded indicates structured output was cut off at the
// request's MaxTokens limit.
type ErrMaxTokensExceeded struct {
	Content json.RawMessage
	Limit   int
}

func (e *ErrMaxTokensExceeded) Error() string {
	if e.Limit > 0 {
		return fmt.Sprintf("LLM response truncated at %d tokens", e.Limit)
	}
	return "LLM response truncated: max tokens exceeded"
}

// Transient reports whether err may succeed if the same request is sent
// again. Invalid responses count as transient; the retry decorator limits
// how often they are retried.
func Transient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var maxTok *ErrMaxTokensExceeded
	var rejected *ErrRequestRejected
	return !errors.As(err, &maxTok) && !errors.As(err, &rejected)
}

// classifyStatus maps a provider HTTP status to one of the error types
// above. header may be nil when the SDK does not expose the response.
func classifyStatus(status int, header http.Header, err error) error {
	switch {
	case status == http.StatusTooManyRequests:
		return &ErrRateLimit{RetryAfter: retryAfter(header), Err: err}
	case status == http.StatusRequestTimeout || status >= 500:
		return &ErrProviderUnavailable{Err: err}
	case status >= 400:
		return &ErrRequestRejected{Status: status, Err: err}
	}
	return &ErrProviderUnavailable{Err: err}
}

// passContext returns err unchanged when it is a context error so callers
// can still match it with errors.Is.
func passContext(err error) (error, bool) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err, true
	}
	return nil, false
}

// retryAfter parses a Retry-After header given in seconds or as an HTTP date.
func retryAfter(header http.Header) time.Duration {
	v := header.Get("Retry-After")
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}
