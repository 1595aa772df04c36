package lectern

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultTextAPIBaseURL is the public scripture text API.
const DefaultTextAPIBaseURL = "https://bible-api.com"

// HTTPFetcher implements Fetcher against a bible-api.com-shaped endpoint.
// Failures are retried with a linearly growing delay: 1×base after the
// first attempt, 2×base after the second, and so on. With the default two
// retries a chapter costs at most three attempts (delays 1s then 2s).
type HTTPFetcher struct {
	baseURL string
	client  *http.Client
	retries int
	base    time.Duration
	logger  *slog.Logger
}

// FetcherOption configures an HTTPFetcher.
type FetcherOption func(*HTTPFetcher)

// FetcherBaseURL overrides the text API endpoint.
func FetcherBaseURL(u string) FetcherOption {
	return func(f *HTTPFetcher) { f.baseURL = strings.TrimRight(u, "/") }
}

// FetcherRetries sets how many times a failed request is retried
// (default: 2, i.e. three attempts total).
func FetcherRetries(n int) FetcherOption {
	return func(f *HTTPFetcher) { f.retries = n }
}

// FetcherBaseDelay sets the delay unit between attempts (default: 1s).
func FetcherBaseDelay(d time.Duration) FetcherOption {
	return func(f *HTTPFetcher) { f.base = d }
}

// FetcherHTTPClient overrides the HTTP client.
func FetcherHTTPClient(c *http.Client) FetcherOption {
	return func(f *HTTPFetcher) { f.client = c }
}

// FetcherLogger sets the structured logger for fetch events. Retries log
// at WARN; final failures log at ERROR.
func FetcherLogger(l *slog.Logger) FetcherOption {
	return func(f *HTTPFetcher) { f.logger = l }
}

// NewFetcher creates an HTTPFetcher with a 15-second request timeout.
func NewFetcher(opts ...FetcherOption) *HTTPFetcher {
	f := &HTTPFetcher{
		baseURL: DefaultTextAPIBaseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
		retries: 2,
		base:    time.Second,
		logger:  nopLogger,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// chapterResponse is the remote API's wire format.
type chapterResponse struct {
	Verses []struct {
		Verse int    `json:"verse"`
		Text  string `json:"text"`
	} `json:"verses"`
}

// FetchChapter retrieves and normalizes one chapter. The remote API is
// untrusted: non-2xx status, malformed JSON, and empty verse arrays are
// all handled. Empty results surface as ErrEmptyChapter without retries,
// since the API answered authoritatively.
func (f *HTTPFetcher) FetchChapter(ctx context.Context, ref ChapterRef) ([]Verse, error) {
	u := fmt.Sprintf("%s/%s%%20%d?translation=%s",
		f.baseURL, url.PathEscape(ref.Book), ref.Chapter, strings.ToLower(string(ref.Translation)))

	var lastErr error
	for attempt := 0; attempt <= f.retries; attempt++ {
		verses, err := f.fetchOnce(ctx, u)
		if err == nil {
			if len(verses) == 0 {
				return nil, ErrEmptyChapter
			}
			return verses, nil
		}
		lastErr = err
		if attempt == f.retries {
			break
		}
		f.logger.Warn("retrying chapter fetch",
			"ref", ref.Key(),
			"attempt", attempt+1,
			"max_attempts", f.retries+1,
			"error", err)
		delay := f.base * time.Duration(attempt+1)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	f.logger.Error("all fetch attempts exhausted",
		"ref", ref.Key(),
		"attempts", f.retries+1,
		"error", lastErr)
	return nil, lastErr
}

func (f *HTTPFetcher) fetchOnce(ctx context.Context, u string) ([]Verse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch chapter: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ErrHTTP{
			Status:     resp.StatusCode,
			Body:       string(body),
			RetryAfter: ParseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}

	var parsed chapterResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	verses := make([]Verse, 0, len(parsed.Verses))
	for _, v := range parsed.Verses {
		text := strings.TrimSpace(v.Text)
		if text == "" {
			continue
		}
		verses = append(verses, Verse{Number: v.Verse, Text: text})
	}
	return verses, nil
}

// compile-time check
var _ Fetcher = (*HTTPFetcher)(nil)
