package server

import (
	"net/http"
	"time"

	"github.com/lectern-app/lectern"
)

func (s *Server) journalRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/journal/bookmarks", s.handleBookmarks)
	mux.HandleFunc("/v1/journal/highlights", s.handleHighlights)
	mux.HandleFunc("/v1/journal/history", s.handleHistory)
	mux.HandleFunc("/v1/journal/note", s.handleNote)
	mux.HandleFunc("/v1/journal/prayers", s.handlePrayers)
	mux.HandleFunc("/v1/journal/settings", s.handleSettings)
	mux.HandleFunc("/v1/journal/progress", s.handleProgress)
}

func (s *Server) handleBookmarks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		items, err := s.journal.Bookmarks(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"bookmarks": items})
	case http.MethodPost:
		var b lectern.Bookmark
		if err := decodeBody(r, &b); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if b.CreatedAt == 0 {
			b.CreatedAt = time.Now().UnixMilli()
		}
		if err := s.journal.AddBookmark(r.Context(), b); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusCreated, b)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleHighlights(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		items, err := s.journal.Highlights(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"highlights": items})
	case http.MethodPost:
		var h lectern.Highlight
		if err := decodeBody(r, &h); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if h.CreatedAt == 0 {
			h.CreatedAt = time.Now().UnixMilli()
		}
		if err := s.journal.AddHighlight(r.Context(), h); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusCreated, h)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		items, err := s.journal.History(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"history": items})
	case http.MethodPost:
		var item lectern.HistoryItem
		if err := decodeBody(r, &item); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if item.CreatedAt == 0 {
			item.CreatedAt = time.Now().UnixMilli()
		}
		if err := s.journal.AddHistory(r.Context(), item); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusCreated, item)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleNote(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		ref := r.URL.Query().Get("ref")
		if ref == "" {
			writeError(w, http.StatusBadRequest, "ref is required")
			return
		}
		text, err := s.journal.Note(r.Context(), ref)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"ref": ref, "text": text})
	case http.MethodPut:
		var req struct {
			Ref  string `json:"ref"`
			Text string `json:"text"`
		}
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if req.Ref == "" {
			writeError(w, http.StatusBadRequest, "ref is required")
			return
		}
		if err := s.journal.SaveNote(r.Context(), req.Ref, req.Text); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"ref": req.Ref, "text": req.Text})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handlePrayers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		items, err := s.journal.Prayers(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"prayers": items})
	case http.MethodPost:
		var p lectern.PrayerEntry
		if err := decodeBody(r, &p); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if p.CreatedAt == 0 {
			p.CreatedAt = time.Now().UnixMilli()
		}
		if err := s.journal.SavePrayer(r.Context(), p); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusCreated, p)
	case http.MethodDelete:
		id := r.URL.Query().Get("id")
		if id == "" {
			writeError(w, http.StatusBadRequest, "id is required")
			return
		}
		if err := s.journal.DeletePrayer(r.Context(), id); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		settings, err := s.journal.Settings(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, settings)
	case http.MethodPut:
		var settings lectern.Settings
		if err := decodeBody(r, &settings); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := s.journal.SaveSettings(r.Context(), settings); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, settings)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		days, err := s.journal.Progress(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"days":   days,
			"streak": lectern.Streak(days, time.Now().UTC()),
		})
	case http.MethodPost:
		var req struct {
			Date string `json:"date"`
		}
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if req.Date == "" {
			req.Date = time.Now().UTC().Format("2006-01-02")
		}
		if err := s.journal.MarkDayComplete(r.Context(), req.Date); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"date": req.Date})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}
