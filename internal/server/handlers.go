package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mkrz/folio/internal/extract"
	"github.com/mkrz/folio/internal/models"
	"github.com/mkrz/folio/internal/session"
	"github.com/mkrz/folio/internal/storage"
)

// maxUploadBytes bounds a single book upload.
const maxUploadBytes = 20 << 20

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	user := chi.URLParam(r, "user")
	data, err := s.readUpload(w, r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Debug("upload request", zap.String("user", user), zap.Int("bytes", len(data)))

	src, err := s.extractor.ExtractBytes(data)
	if err != nil {
		s.respondExtractError(w, user, err)
		return
	}
	view, err := s.sessions.Open(r.Context(), user, src)
	if err != nil {
		s.respondExtractError(w, user, err)
		return
	}
	// Keep a copy on disk so the session survives a restart. The session is
	// already installed, so a failed copy only degrades restart recovery.
	if _, err := s.library.Save(user, bytes.NewReader(data)); err != nil {
		s.logger.Warn("library save failed", zap.String("user", user), zap.Error(err))
	}
	s.respondJSON(w, http.StatusCreated, view)
}

// readUpload accepts either a multipart form with a "book" file field or the
// raw book bytes as the request body.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		file, header, err := r.FormFile("book")
		if err != nil {
			return nil, errors.New("multipart form must carry a \"book\" file field")
		}
		defer file.Close()
		if !extract.SupportedExtension(header.Filename) {
			return nil, errors.New("unsupported file extension")
		}
		return io.ReadAll(file)
	}
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, errors.New("failed to read request body")
	}
	if len(data) == 0 {
		return nil, errors.New("empty request body")
	}
	return data, nil
}

func (s *Server) respondExtractError(w http.ResponseWriter, user string, err error) {
	switch {
	case errors.Is(err, extract.ErrUnsupportedFormat):
		s.respondError(w, http.StatusUnsupportedMediaType, "not a readable EPUB file")
	case errors.Is(err, extract.ErrEmptyDocument):
		s.respondError(w, http.StatusUnprocessableEntity, "document contains no readable text")
	default:
		s.logger.Error("upload failed", zap.String("user", user), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
	}
}

type navRequest struct {
	Action string `json:"action"`
}

func (s *Server) handleNavigate(w http.ResponseWriter, r *http.Request) {
	user := chi.URLParam(r, "user")
	var req navRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	action, err := models.ParseAction(req.Action)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Debug("nav request", zap.String("user", user), zap.String("action", string(action)))

	view, err := s.sessions.Navigate(r.Context(), user, action)
	if errors.Is(err, session.ErrNoSession) {
		if err = s.restoreFromLibrary(r.Context(), user); err == nil {
			view, err = s.sessions.Navigate(r.Context(), user, action)
		}
	}
	if err != nil {
		s.respondSessionError(w, user, err)
		return
	}
	if action == models.ActionReset {
		if err := s.library.Remove(user); err != nil {
			s.logger.Warn("library remove failed", zap.String("user", user), zap.Error(err))
		}
		s.respondJSON(w, http.StatusOK, map[string]string{"status": "reset"})
		return
	}
	s.respondJSON(w, http.StatusOK, view)
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	user := chi.URLParam(r, "user")
	view, err := s.sessions.Render(r.Context(), user)
	if errors.Is(err, session.ErrNoSession) {
		if err = s.restoreFromLibrary(r.Context(), user); err == nil {
			view, err = s.sessions.Render(r.Context(), user)
		}
	}
	if err != nil {
		s.respondSessionError(w, user, err)
		return
	}
	s.respondJSON(w, http.StatusOK, view)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	user := chi.URLParam(r, "user")
	s.logger.Debug("reset request", zap.String("user", user))
	if err := s.sessions.Reset(r.Context(), user); err != nil {
		s.logger.Error("reset failed", zap.String("user", user), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := s.library.Remove(user); err != nil {
		s.logger.Warn("library remove failed", zap.String("user", user), zap.Error(err))
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// restoreFromLibrary rebuilds a lost in-memory session from the stored book
// file, keeping the durable cursor. Returns ErrNoSession when no copy exists.
func (s *Server) restoreFromLibrary(ctx context.Context, user string) error {
	if !s.library.Has(user) {
		return session.ErrNoSession
	}
	src, err := s.extractor.ExtractFile(s.library.Path(user))
	if err != nil {
		s.logger.Error("library restore: extract failed", zap.String("user", user), zap.Error(err))
		return session.ErrNoSession
	}
	if _, err := s.sessions.Restore(ctx, user, src); err != nil {
		s.logger.Error("library restore failed", zap.String("user", user), zap.Error(err))
		return session.ErrNoSession
	}
	s.logger.Info("session restored from library", zap.String("user", user))
	return nil
}

// respondSessionError maps session errors onto HTTP statuses. A missing
// session is a client-resolvable state, so it gets 409 rather than 5xx.
func (s *Server) respondSessionError(w http.ResponseWriter, user string, err error) {
	if errors.Is(err, session.ErrNoSession) {
		s.respondJSON(w, http.StatusConflict, map[string]string{
			"status": "session_missing",
			"error":  "no book loaded, upload one first",
		})
		return
	}
	s.logger.Error("session operation failed", zap.String("user", user), zap.Error(err))
	s.respondError(w, http.StatusInternalServerError, err.Error())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	cursorCount, err := s.store.Count(r.Context())
	if err != nil {
		s.logger.Error("status: count cursors failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := map[string]interface{}{
		"cursors":          cursorCount,
		"active_sessions":  s.sessions.ActiveSessions(),
		"disk_usage_bytes": storage.DiskUsage(s.config.Storage.DatabasePath, s.library.Root()),
		"config": map[string]interface{}{
			"page_budget":         s.config.Reader.PageBudget,
			"paragraphs_per_page": s.config.Reader.ParagraphsPerPage,
			"database_path":       s.config.Storage.DatabasePath,
			"library_path":        s.library.Root(),
		},
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
