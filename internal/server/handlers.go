package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/lectern-app/lectern"
	"github.com/lectern-app/lectern/docs"
)

// maxBodySize caps request bodies.
const maxBodySize = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeBody(r *http.Request, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}

// chapterRefFromQuery parses translation/book/chapter query parameters.
func chapterRefFromQuery(r *http.Request) (lectern.ChapterRef, error) {
	q := r.URL.Query()

	translation := lectern.Translation(strings.ToUpper(q.Get("translation")))
	if translation == "" {
		translation = lectern.TranslationKJV
	}
	if translation != lectern.TranslationKJV && translation != lectern.TranslationESV {
		return lectern.ChapterRef{}, fmt.Errorf("unknown translation %q", q.Get("translation"))
	}

	book, ok := lectern.LookupBook(q.Get("book"))
	if !ok {
		return lectern.ChapterRef{}, fmt.Errorf("unknown book %q", q.Get("book"))
	}

	chapter, err := strconv.Atoi(q.Get("chapter"))
	if err != nil || chapter < 1 || chapter > book.Chapters {
		return lectern.ChapterRef{}, fmt.Errorf("invalid chapter %q for %s", q.Get("chapter"), book.Name)
	}

	return lectern.ChapterRef{Translation: translation, Book: book.Name, Chapter: chapter}, nil
}

func (s *Server) handleChapter(w http.ResponseWriter, r *http.Request) {
	ref, err := chapterRefFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	verses := s.library.Chapter(r.Context(), ref)
	s.library.Prefetch(ref)

	writeJSON(w, http.StatusOK, map[string]any{
		"translation": ref.Translation,
		"book":        ref.Book,
		"chapter":     ref.Chapter,
		"verses":      verses,
	})
}

func (s *Server) handleChapterOffline(w http.ResponseWriter, r *http.Request) {
	ref, err := chapterRefFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{
		"offline": s.library.IsChapterOffline(r.Context(), ref),
	})
}

// handleDownloadAll streams bulk-download progress as SSE percent events.
func (s *Server) handleDownloadAll(w http.ResponseWriter, r *http.Request) {
	translation := lectern.Translation(strings.ToUpper(r.URL.Query().Get("translation")))
	if translation == "" {
		translation = lectern.TranslationESV
	}
	if translation != lectern.TranslationKJV && translation != lectern.TranslationESV {
		writeError(w, http.StatusBadRequest, "unknown translation")
		return
	}

	stream, err := newSSEWriter(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	err = s.library.DownloadAll(r.Context(), translation, func(percent int) {
		stream.send("progress", map[string]int{"percent": percent})
	})
	if err != nil {
		s.logger.Warn("server: download all failed", "translation", translation, "error", err)
		stream.send("error", map[string]string{"error": err.Error()})
		return
	}
	stream.send("done", map[string]string{"translation": string(translation)})
}

type chatRequest struct {
	UserID      string                `json:"user_id"`
	Mode        lectern.Mode          `json:"mode"`
	Translation lectern.Translation   `json:"translation"`
	KidsMode    bool                  `json:"kids_mode"`
	History     []lectern.ChatMessage `json:"history"`
}

// handleChat streams the assistant reply as SSE. Each message event
// carries the cumulative text so far; a rate-limited user gets a 429
// before any event is written.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	if req.Mode == "" {
		req.Mode = lectern.ModeChat
	}
	if req.Translation == "" {
		req.Translation = lectern.TranslationKJV
	}

	var stream *sseWriter
	full, err := s.assistant.StreamCompletion(r.Context(), req.UserID, req.Mode, req.Translation, req.KidsMode, req.History, func(cumulative string) {
		if stream == nil {
			var sseErr error
			stream, sseErr = newSSEWriter(w)
			if sseErr != nil {
				return
			}
		}
		stream.send("message", map[string]string{"content": cumulative})
	})
	if err != nil {
		if stream == nil {
			// No event written yet, a plain JSON error still works.
			if errors.Is(err, lectern.ErrRateLimited) {
				writeError(w, http.StatusTooManyRequests, err.Error())
				return
			}
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		stream.send("error", map[string]string{"error": err.Error()})
		return
	}
	if stream == nil {
		stream, _ = newSSEWriter(w)
		if stream == nil {
			return
		}
	}
	stream.send("done", map[string]string{"content": full})
}

func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{
		"remaining": s.assistant.Remaining(r.Context(), userID),
	})
}

func (s *Server) handleDocs(w http.ResponseWriter, r *http.Request) {
	slug := strings.TrimPrefix(r.URL.Path, "/v1/docs/")
	if slug == "" {
		writeJSON(w, http.StatusOK, map[string][]string{"pages": docs.Slugs()})
		return
	}

	page, err := docs.Page(slug)
	if err != nil {
		if errors.Is(err, docs.ErrNotFound) {
			writeError(w, http.StatusNotFound, "page not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, page)
}

type billingRequest struct {
	UserID string `json:"user_id"`
}

func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	var req billingRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	url, err := s.billing.CreateCheckoutSession(r.Context(), req.UserID)
	if err != nil {
		s.logger.Warn("server: checkout session failed", "error", err)
		writeError(w, http.StatusBadGateway, "could not create checkout session")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

func (s *Server) handlePortal(w http.ResponseWriter, r *http.Request) {
	var req billingRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	url, err := s.billing.CreatePortalSession(r.Context(), req.UserID)
	if err != nil {
		s.logger.Warn("server: portal session failed", "error", err)
		writeError(w, http.StatusBadRequest, "no active subscription")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

func (s *Server) handleBillingStatus(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	pro, err := s.billing.IsPro(r.Context(), userID)
	if err != nil {
		s.logger.Warn("server: subscription lookup failed", "error", err)
		writeError(w, http.StatusBadGateway, "could not look up subscription")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"is_pro": pro})
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "read body failed")
		return
	}

	if err := s.billing.HandleWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature")); err != nil {
		s.logger.Warn("server: webhook rejected", "error", err)
		writeError(w, http.StatusBadRequest, "webhook verification failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
