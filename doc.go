// Package lectern is an offline-first scripture library with an AI study
// assistant, built from modular, interface-driven pieces: a persistent
// chapter store, a remote text fetcher with bounded retry, a bulk offline
// preparer, an adjacent-chapter prefetcher, a daily usage limiter, and a
// streaming LLM client.
//
// # Quick Start
//
//	store := sqlite.New("lectern.db")
//	_ = store.Init(ctx)
//
//	lib := lectern.NewLibrary(store, lectern.NewFetcher())
//	verses := lib.Chapter(ctx, lectern.ChapterRef{
//		Translation: lectern.TranslationKJV,
//		Book:        "Genesis",
//		Chapter:     1,
//	})
//
//	limiter := lectern.NewLimiter(store)
//	assistant := lectern.NewAssistant(lectern.WithRetry(gemini.New(apiKey, model)), limiter)
//	full, err := assistant.StreamCompletion(ctx, userID, lectern.ModeChat,
//		lectern.TranslationKJV, false, history, onChunk)
//
// # Core Interfaces
//
// The root package defines the contracts that all components implement:
//
//   - [Store] — persistent chapter cache, readiness flags, and usage counter
//   - [JournalStore] — bookmarks, highlights, notes, prayers, settings
//   - [Fetcher] — remote chapter retrieval
//   - [Provider] — LLM backend (chat, streaming)
//   - [Entitlements] — pro-tier lookup consulted before rate limiting
//
// # Included Implementations
//
// Storage: store/sqlite (local), store/postgres (server deployments).
// Providers: provider/gemini (Google Gemini).
// Billing: billing (Stripe checkout, portal, and webhook handlers).
//
// See cmd/lectern for a complete wired application.
package lectern
