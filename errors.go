package lectern

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// ErrProvider wraps an LLM backend failure. The Message carries the
// technical detail for logs; user-facing surfaces show AssistantUnavailable
// instead so provider internals never leak to the end user.
type ErrProvider struct {
	Provider string
	Message  string
}

func (e *ErrProvider) Error() string {
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// ErrHTTP is a non-success HTTP response from a remote API.
type ErrHTTP struct {
	Status     int
	Body       string
	RetryAfter time.Duration
}

func (e *ErrHTTP) Error() string {
	return fmt.Sprintf("http %d: %s", e.Status, e.Body)
}

// ErrRateLimited is returned when the daily AI budget is exhausted. It is
// the one assistant error allowed to reach callers undisguised, so the UI
// can render an upgrade prompt instead of a generic failure.
var ErrRateLimited = errors.New("daily limit reached, resets tomorrow")

// ErrEmptyChapter is returned when the remote text API answered with a
// structurally valid response containing zero verses. Callers treat it
// the same as a transient fetch failure.
var ErrEmptyChapter = errors.New("chapter has no verses")

// ErrAssistantUnavailable is the fixed user-facing failure for any
// provider error (auth, quota, network, malformed response). The root
// cause is logged, never shown.
var ErrAssistantUnavailable = errors.New("AI unavailable. Please continue with Bible study.")

// ParseRetryAfter parses an HTTP Retry-After header value, which is either
// a delay in seconds or an HTTP date. Returns 0 when absent or unparseable.
func ParseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
