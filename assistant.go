package lectern

import (
	"context"
	"log/slog"
	"strings"
)

// Assistant drives streaming AI study conversations: it gates requests on
// the daily limiter (pro users bypass it), assembles the system prompt,
// and relays streamed text to the caller.
type Assistant struct {
	provider     Provider
	limiter      *Limiter
	entitlements Entitlements
	logger       *slog.Logger
}

// AssistantOption configures an Assistant.
type AssistantOption func(*Assistant)

// AssistantEntitlements sets the pro-tier lookup. When unset, every user
// is subject to the daily limit.
func AssistantEntitlements(e Entitlements) AssistantOption {
	return func(a *Assistant) { a.entitlements = e }
}

// AssistantLogger sets the structured logger.
func AssistantLogger(l *slog.Logger) AssistantOption {
	return func(a *Assistant) { a.logger = l }
}

// NewAssistant wires an Assistant over an LLM provider and the usage
// limiter.
func NewAssistant(provider Provider, limiter *Limiter, opts ...AssistantOption) *Assistant {
	a := &Assistant{
		provider: provider,
		limiter:  limiter,
		logger:   nopLogger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// StreamCompletion issues one streaming study request over the full
// conversation history. onChunk receives the cumulative text so far on
// every delta — callers render by replacement, not append — and the final
// cumulative text is returned on stream completion.
//
// When the daily budget is exhausted it fails fast with ErrRateLimited.
// The budget is spent only after the stream finishes cleanly — a provider
// failure costs the user nothing. Any provider-side failure is collapsed
// to ErrAssistantUnavailable; the technical cause is logged only.
func (a *Assistant) StreamCompletion(ctx context.Context, userID string, mode Mode, translation Translation, kidsMode bool, history []ChatMessage, onChunk func(cumulative string)) (string, error) {
	pro := a.isPro(ctx, userID)
	if !pro && !a.limiter.Peek(ctx) {
		return "", ErrRateLimited
	}

	messages := make([]ChatMessage, 0, len(history)+1)
	messages = append(messages, SystemMessage(SystemPrompt(mode, translation, kidsMode)))
	messages = append(messages, history...)

	ch := make(chan string, 64)
	var (
		resp      ChatResponse
		streamErr error
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		resp, streamErr = a.provider.ChatStream(ctx, ChatRequest{Messages: messages}, ch)
	}()

	var full strings.Builder
	for delta := range ch {
		full.WriteString(delta)
		if onChunk != nil {
			onChunk(full.String())
		}
	}
	<-done

	if streamErr != nil {
		a.logger.Error("assistant stream failed",
			"provider", a.provider.Name(),
			"mode", mode,
			"error", streamErr)
		return "", ErrAssistantUnavailable
	}

	if !pro {
		a.limiter.TryConsume(ctx)
	}

	a.logger.Debug("assistant stream finished",
		"mode", mode,
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens)
	return full.String(), nil
}

// Remaining reports how many requests the user has left today. Pro users
// always see the full daily budget.
func (a *Assistant) Remaining(ctx context.Context, userID string) int {
	if a.isPro(ctx, userID) {
		return a.limiter.limit
	}
	return a.limiter.Remaining(ctx)
}

// isPro consults the entitlements lookup. Lookup failures degrade to
// not-pro: the limiter still protects the provider.
func (a *Assistant) isPro(ctx context.Context, userID string) bool {
	if a.entitlements == nil || userID == "" {
		return false
	}
	pro, err := a.entitlements.IsPro(ctx, userID)
	if err != nil {
		a.logger.Warn("entitlements lookup failed", "error", err)
		return false
	}
	return pro
}
