package lectern

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// flakyProvider fails with a fixed error for the first failCount calls.
type flakyProvider struct {
	mu        sync.Mutex
	failCount int
	failErr   error
	chunks    []string
	calls     int
}

func (p *flakyProvider) Name() string { return "flaky" }

func (p *flakyProvider) shouldFail() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return p.calls <= p.failCount
}

func (p *flakyProvider) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	if p.shouldFail() {
		return ChatResponse{}, p.failErr
	}
	return ChatResponse{Content: "ok"}, nil
}

func (p *flakyProvider) ChatStream(ctx context.Context, req ChatRequest, ch chan<- string) (ChatResponse, error) {
	defer close(ch)
	if p.shouldFail() {
		return ChatResponse{}, p.failErr
	}
	for _, c := range p.chunks {
		ch <- c
	}
	return ChatResponse{Content: "ok"}, nil
}

func (p *flakyProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func TestRetryChatTransientThenSuccess(t *testing.T) {
	inner := &flakyProvider{failCount: 2, failErr: &ErrHTTP{Status: 429}}
	p := WithRetry(inner, RetryBaseDelay(time.Millisecond))

	resp, err := p.Chat(context.Background(), ChatRequest{})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.Content != "ok" || inner.callCount() != 3 {
		t.Errorf("content %q after %d calls", resp.Content, inner.callCount())
	}
}

func TestRetryChatNonTransientNotRetried(t *testing.T) {
	inner := &flakyProvider{failCount: 5, failErr: &ErrHTTP{Status: 401}}
	p := WithRetry(inner, RetryBaseDelay(time.Millisecond))

	_, err := p.Chat(context.Background(), ChatRequest{})
	var httpErr *ErrHTTP
	if !errors.As(err, &httpErr) || httpErr.Status != 401 {
		t.Fatalf("want ErrHTTP 401, got %v", err)
	}
	if inner.callCount() != 1 {
		t.Errorf("calls = %d, want 1", inner.callCount())
	}
}

func TestRetryChatExhausted(t *testing.T) {
	inner := &flakyProvider{failCount: 10, failErr: &ErrHTTP{Status: 503}}
	p := WithRetry(inner, RetryBaseDelay(time.Millisecond), RetryMaxAttempts(2))

	_, err := p.Chat(context.Background(), ChatRequest{})
	var httpErr *ErrHTTP
	if !errors.As(err, &httpErr) || httpErr.Status != 503 {
		t.Fatalf("want ErrHTTP 503, got %v", err)
	}
	if inner.callCount() != 2 {
		t.Errorf("calls = %d, want 2", inner.callCount())
	}
}

func TestRetryStreamBeforeFirstDelta(t *testing.T) {
	inner := &flakyProvider{failCount: 1, failErr: &ErrHTTP{Status: 503}, chunks: []string{"a", "b"}}
	p := WithRetry(inner, RetryBaseDelay(time.Millisecond))

	ch := make(chan string, 8)
	resp, err := p.ChatStream(context.Background(), ChatRequest{}, ch)
	if err != nil {
		t.Fatalf("ChatStream: %v", err)
	}
	if resp.Content != "ok" {
		t.Errorf("content = %q", resp.Content)
	}

	var got []string
	for delta := range ch {
		got = append(got, delta)
	}
	if len(got) != 2 {
		t.Errorf("deltas = %v, want the full stream exactly once", got)
	}
	if inner.callCount() != 2 {
		t.Errorf("calls = %d, want 2", inner.callCount())
	}
}

// midStreamProvider sends one delta then fails, every time.
type midStreamProvider struct {
	mu    sync.Mutex
	calls int
}

func (p *midStreamProvider) Name() string { return "midstream" }

func (p *midStreamProvider) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	return ChatResponse{}, &ErrHTTP{Status: 503}
}

func (p *midStreamProvider) ChatStream(ctx context.Context, req ChatRequest, ch chan<- string) (ChatResponse, error) {
	defer close(ch)
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	ch <- "partial"
	return ChatResponse{}, &ErrHTTP{Status: 503}
}

func TestRetryStreamNotRetriedAfterDeltas(t *testing.T) {
	inner := &midStreamProvider{}
	p := WithRetry(inner, RetryBaseDelay(time.Millisecond))

	ch := make(chan string, 8)
	_, err := p.ChatStream(context.Background(), ChatRequest{}, ch)

	var httpErr *ErrHTTP
	if !errors.As(err, &httpErr) || httpErr.Status != 503 {
		t.Fatalf("want ErrHTTP 503, got %v", err)
	}
	inner.mu.Lock()
	calls := inner.calls
	inner.mu.Unlock()
	// Retrying after forwarding content would duplicate it.
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}

	var got []string
	for delta := range ch {
		got = append(got, delta)
	}
	if len(got) != 1 || got[0] != "partial" {
		t.Errorf("deltas = %v", got)
	}
}

func TestRetryStreamAlwaysClosesChannel(t *testing.T) {
	inner := &flakyProvider{failCount: 10, failErr: &ErrHTTP{Status: 429}}
	p := WithRetry(inner, RetryBaseDelay(time.Millisecond), RetryMaxAttempts(2))

	ch := make(chan string, 8)
	_, err := p.ChatStream(context.Background(), ChatRequest{}, ch)
	if err == nil {
		t.Fatal("want error after exhausting retries")
	}

	select {
	case _, open := <-ch:
		if open {
			t.Error("channel should be closed and drained")
		}
	case <-time.After(time.Second):
		t.Error("channel was never closed")
	}
}

func TestRetryDelayHonorsRetryAfter(t *testing.T) {
	base := 10 * time.Millisecond
	err := &ErrHTTP{Status: 429, RetryAfter: time.Second}
	if d := retryDelay(base, 0, err); d != time.Second {
		t.Errorf("delay = %v, want the server's Retry-After of 1s", d)
	}

	// Without Retry-After the exponential backoff applies.
	noRA := &ErrHTTP{Status: 429}
	d := retryDelay(base, 2, noRA)
	if d < 4*base || d > 6*base {
		t.Errorf("delay = %v, want base*4 plus up to 50%% jitter", d)
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{&ErrHTTP{Status: 429}, true},
		{&ErrHTTP{Status: 503}, true},
		{&ErrHTTP{Status: 500}, false},
		{&ErrHTTP{Status: 401}, false},
		{errors.New("plain"), false},
		{&ErrProvider{Provider: "x", Message: "y"}, false},
	}
	for _, tt := range tests {
		if got := isTransient(tt.err); got != tt.want {
			t.Errorf("isTransient(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
