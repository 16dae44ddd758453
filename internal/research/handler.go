package research

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/ayush/research-dashboard/internal/auth"
	"github.com/ayush/research-dashboard/internal/httpx"
	"github.com/ayush/research-dashboard/internal/logging"
	"github.com/ayush/research-dashboard/internal/models"
	"github.com/ayush/research-dashboard/internal/store"
)

// genericFailure is the only message shown to users for failed searches.
const genericFailure = "Something went wrong during the research process. Please try again."

// Searcher runs searches for a session.
type Searcher interface {
	Search(ctx context.Context, key, query string) (*models.ResearchResult, error)
	Snapshot(key string) Snapshot
	Reset(key string)
}

// HistoryStore defines the interface for research history persistence.
type HistoryStore interface {
	Insert(ctx context.Context, item *models.HistoryItem) (string, error)
	ListByUser(ctx context.Context, userID string, limit int64) ([]models.HistoryItem, error)
	Get(ctx context.Context, userID, id string) (*models.HistoryItem, error)
	Delete(ctx context.Context, userID, id string) error
}

// ExportStore defines the interface for report file storage.
type ExportStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, string, error)
	Remove(ctx context.Context, key string) error
}

// SearchCounter records completed searches per user.
type SearchCounter interface {
	RecordSearch(ctx context.Context, userID string) error
}

// Handler holds research HTTP handlers.
type Handler struct {
	agent   Searcher
	history HistoryStore
	exports ExportStore
	counter SearchCounter
	log     *zap.Logger
	now     func() time.Time
}

func NewHandler(agent Searcher, history HistoryStore, exports ExportStore, counter SearchCounter, log *zap.Logger) *Handler {
	return &Handler{
		agent:   agent,
		history: history,
		exports: exports,
		counter: counter,
		log:     logging.OrNop(log),
		now:     time.Now,
	}
}

// Routes mounts the research endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/status", h.Status)
	r.Delete("/status", h.ResetStatus)
	r.Get("/{id}", h.Get)
	r.Delete("/{id}", h.Delete)
	r.Get("/{id}/markdown", h.DownloadMarkdown)
}

// Create runs a search and stores the result in the user's history.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	var req models.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		httpx.WriteError(w, http.StatusBadRequest, "query is required")
		return
	}

	result, err := h.agent.Search(r.Context(), userID, query)
	switch {
	case errors.Is(err, ErrSuperseded):
		httpx.WriteError(w, http.StatusConflict, "search was replaced by a newer request")
		return
	case errors.Is(err, ErrEmptyQuery):
		httpx.WriteError(w, http.StatusBadRequest, "query is required")
		return
	case err != nil:
		h.log.Error("search failed", zap.String("user_id", userID), zap.Error(err))
		httpx.WriteError(w, http.StatusBadGateway, genericFailure)
		return
	}

	item := &models.HistoryItem{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		Query:     query,
		Result:    *result,
		CreatedAt: h.now().UTC(),
	}

	// Export and counter failures are non-fatal.
	key := store.ExportKey(userID, item.ID.Hex())
	if err := h.exports.Put(r.Context(), key, RenderMarkdown(query, result, item.CreatedAt), markdownContentType); err != nil {
		h.log.Warn("markdown export failed", zap.String("key", key), zap.Error(err))
	} else {
		item.ExportKey = key
	}

	if _, err := h.history.Insert(r.Context(), item); err != nil {
		h.log.Error("history insert failed", zap.Error(err))
		if item.ExportKey != "" {
			_ = h.exports.Remove(r.Context(), item.ExportKey)
		}
		httpx.WriteError(w, http.StatusInternalServerError, "failed to save research")
		return
	}

	if err := h.counter.RecordSearch(r.Context(), userID); err != nil {
		h.log.Warn("record search failed", zap.String("user_id", userID), zap.Error(err))
	}

	httpx.WriteJSON(w, http.StatusCreated, item)
}

// Status returns the progress of the caller's latest search.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, h.agent.Snapshot(auth.UserID(r.Context())))
}

// ResetStatus cancels the caller's in-flight search and returns it to IDLE.
func (h *Handler) ResetStatus(w http.ResponseWriter, r *http.Request) {
	key := auth.UserID(r.Context())
	h.agent.Reset(key)
	httpx.WriteJSON(w, http.StatusOK, h.agent.Snapshot(key))
}

// List returns the caller's history, newest first. ?limit=N caps the count.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	var limit int64
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			httpx.WriteError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	items, err := h.history.ListByUser(r.Context(), auth.UserID(r.Context()), limit)
	if err != nil {
		h.log.Error("history list failed", zap.Error(err))
		httpx.WriteError(w, http.StatusInternalServerError, "database error")
		return
	}
	if items == nil {
		items = []models.HistoryItem{}
	}
	httpx.WriteJSON(w, http.StatusOK, items)
}

// Get returns a single history item.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	item, ok := h.load(w, r)
	if !ok {
		return
	}
	httpx.WriteJSON(w, http.StatusOK, item)
}

// Delete removes a history item and its export.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	item, ok := h.load(w, r)
	if !ok {
		return
	}

	if item.ExportKey != "" {
		if err := h.exports.Remove(r.Context(), item.ExportKey); err != nil {
			h.log.Warn("export remove failed", zap.String("key", item.ExportKey), zap.Error(err))
		}
	}
	if err := h.history.Delete(r.Context(), item.UserID, item.ID.Hex()); err != nil && !errors.Is(err, store.ErrNotFound) {
		h.log.Error("history delete failed", zap.Error(err))
		httpx.WriteError(w, http.StatusInternalServerError, "delete failed")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
}

// DownloadMarkdown streams the stored Markdown report. Items whose export
// failed are rendered on the fly.
func (h *Handler) DownloadMarkdown(w http.ResponseWriter, r *http.Request) {
	item, ok := h.load(w, r)
	if !ok {
		return
	}

	var data []byte
	if item.ExportKey != "" {
		stored, _, err := h.exports.Get(r.Context(), item.ExportKey)
		if err != nil {
			h.log.Warn("export download failed, rendering", zap.String("key", item.ExportKey), zap.Error(err))
		} else {
			data = stored
		}
	}
	if data == nil {
		data = RenderMarkdown(item.Query, &item.Result, item.CreatedAt)
	}

	w.Header().Set("Content-Type", markdownContentType)
	w.Header().Set("Content-Disposition", "attachment; filename=report.md")
	_, _ = w.Write(data)
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request) (*models.HistoryItem, bool) {
	item, err := h.history.Get(r.Context(), auth.UserID(r.Context()), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		httpx.WriteError(w, http.StatusNotFound, "not found")
		return nil, false
	}
	if err != nil {
		h.log.Error("history get failed", zap.Error(err))
		httpx.WriteError(w, http.StatusInternalServerError, "database error")
		return nil, false
	}
	return item, true
}
