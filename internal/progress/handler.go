package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/xeipuuv/gojsonschema"

	"github.com/p-n-ai/pai-learn/internal/lesson"
	"github.com/p-n-ai/pai-learn/internal/report"
)

const (
	maxBodyBytes   = 1 << 16
	watchWriteWait = 5 * time.Second
	xlsxMediaType  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

const saveBodySchema = `{
  "type": "object",
  "required": ["index"],
  "properties": {
    "index": {"type": "integer", "minimum": -2147483648, "maximum": 2147483647}
  }
}`

var loadSaveBodySchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewStringLoader(saveBodySchema))
})

// HandlerConfig holds dependencies for a Handler.
type HandlerConfig struct {
	Store   Store
	Catalog *lesson.Catalog // optional; when empty any lesson id is accepted
	Auth    Authenticator
	Events  EventLogger
	Hub     *Hub
	Logger  *slog.Logger
}

// Handler serves the Progress Service HTTP API.
type Handler struct {
	store   Store
	catalog *lesson.Catalog
	auth    Authenticator
	events  EventLogger
	hub     *Hub
	logger  *slog.Logger
}

// NewHandler creates a Handler. Missing optional dependencies get no-op or
// empty defaults.
func NewHandler(cfg HandlerConfig) *Handler {
	h := &Handler{
		store:   cfg.Store,
		catalog: cfg.Catalog,
		auth:    cfg.Auth,
		events:  cfg.Events,
		hub:     cfg.Hub,
		logger:  cfg.Logger,
	}
	if h.catalog == nil {
		h.catalog = lesson.NewStaticCatalog()
	}
	if h.auth == nil {
		h.auth = TokenAuth{}
	}
	if h.events == nil {
		h.events = NopEventLogger{}
	}
	if h.hub == nil {
		h.hub = NewHub()
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	return h
}

// Register mounts the API routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/progress/{lessonId}", h.authed(h.handleGetProgress))
	mux.HandleFunc("POST /api/progress/{lessonId}", h.authed(h.handleSaveProgress))
	mux.HandleFunc("GET /api/progress/{lessonId}/watch", h.authed(h.handleWatchProgress))
	mux.HandleFunc("GET /api/report/summary", h.authed(h.handleReportSummary))
	mux.HandleFunc("GET /api/report/summary.xlsx", h.authed(h.handleReportSummaryXLSX))
	mux.HandleFunc("GET /api/lessons", h.handleListLessons)
	mux.HandleFunc("GET /api/lessons/{lessonId}", h.handleGetLesson)
}

type learnerHandlerFunc func(w http.ResponseWriter, r *http.Request, learnerID string)

func (h *Handler) authed(next learnerHandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		learnerID, err := h.auth.Authenticate(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r, learnerID)
	}
}

// progressView is the wire shape of a progress read. CurrentIndex is -1 and
// UpdatedAt null when nothing has been recorded.
type progressView struct {
	LessonID     string     `json:"lessonId"`
	CurrentIndex int        `json:"currentIndex"`
	UpdatedAt    *time.Time `json:"updatedAt"`
}

func viewOf(rec Record) progressView {
	updated := rec.UpdatedAt
	return progressView{LessonID: rec.LessonID, CurrentIndex: rec.CurrentIndex, UpdatedAt: &updated}
}

func emptyView(lessonID string) progressView {
	return progressView{LessonID: lessonID, CurrentIndex: -1}
}

func (h *Handler) handleGetProgress(w http.ResponseWriter, r *http.Request, learnerID string) {
	lessonID := r.PathValue("lessonId")
	if _, ok := h.knownLesson(lessonID); !ok {
		writeError(w, http.StatusNotFound, "unknown lesson")
		return
	}

	view, err := h.currentView(r.Context(), learnerID, lessonID)
	if err != nil {
		h.logger.Error("get progress failed", "learner_id", learnerID, "lesson_id", lessonID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) handleSaveProgress(w http.ResponseWriter, r *http.Request, learnerID string) {
	lessonID := r.PathValue("lessonId")
	l, ok := h.knownLesson(lessonID)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown lesson")
		return
	}

	index, err := decodeSaveBody(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	requested := index
	index = max(index, 0)
	if l != nil && l.Len() > 0 {
		index = min(index, l.LastIndex())
	}

	rec, err := h.store.Save(r.Context(), learnerID, lessonID, index)
	if err != nil {
		h.logger.Error("save progress failed", "learner_id", learnerID, "lesson_id", lessonID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	rec.LearnerID = learnerID

	if err := h.events.LogEvent(r.Context(), Event{
		LearnerID: learnerID,
		LessonID:  lessonID,
		EventType: EventProgressSaved,
		Data: map[string]any{
			"requested_index": requested,
			"current_index":   rec.CurrentIndex,
		},
	}); err != nil {
		h.logger.Warn("log progress event failed", "lesson_id", lessonID, "error", err)
	}
	h.hub.Publish(rec)

	h.logger.Info("progress saved",
		"learner_id", learnerID,
		"lesson_id", lessonID,
		"index", rec.CurrentIndex,
	)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "progress": viewOf(rec)})
}

func (h *Handler) handleWatchProgress(w http.ResponseWriter, r *http.Request, learnerID string) {
	lessonID := r.PathValue("lessonId")
	if _, ok := h.knownLesson(lessonID); !ok {
		writeError(w, http.StatusNotFound, "unknown lesson")
		return
	}

	// Watches outlive the server's write timeout.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket accept failed", "lesson_id", lessonID, "error", err)
		return
	}
	defer conn.CloseNow()

	updates, cancel := h.hub.Subscribe(learnerID, lessonID)
	defer cancel()
	h.logger.Debug("progress watch opened",
		"learner_id", learnerID,
		"lesson_id", lessonID,
		"watchers", h.hub.Subscribers(learnerID, lessonID),
	)

	ctx := conn.CloseRead(r.Context())

	view, err := h.currentView(ctx, learnerID, lessonID)
	if err != nil {
		conn.Close(websocket.StatusInternalError, "progress unavailable")
		return
	}
	if err := h.writeWatch(ctx, conn, view); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case rec, ok := <-updates:
			if !ok {
				return
			}
			if err := h.writeWatch(ctx, conn, viewOf(rec)); err != nil {
				h.logger.Debug("watch write failed", "lesson_id", lessonID, "error", err)
				return
			}
		}
	}
}

func (h *Handler) writeWatch(ctx context.Context, conn *websocket.Conn, view progressView) error {
	ctx, cancel := context.WithTimeout(ctx, watchWriteWait)
	defer cancel()
	return wsjson.Write(ctx, conn, view)
}

func (h *Handler) handleReportSummary(w http.ResponseWriter, r *http.Request, learnerID string) {
	d, err := h.dashboard(r.Context(), learnerID)
	if err != nil {
		h.logger.Error("build report failed", "learner_id", learnerID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *Handler) handleReportSummaryXLSX(w http.ResponseWriter, r *http.Request, learnerID string) {
	d, err := h.dashboard(r.Context(), learnerID)
	if err != nil {
		h.logger.Error("build report failed", "learner_id", learnerID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.Header().Set("Content-Type", xlsxMediaType)
	w.Header().Set("Content-Disposition", `attachment; filename="summary.xlsx"`)
	if err := report.WriteDashboard(w, d); err != nil {
		h.logger.Error("write report failed", "learner_id", learnerID, "error", err)
	}
}

func (h *Handler) handleListLessons(w http.ResponseWriter, r *http.Request) {
	type lessonInfo struct {
		ID                string `json:"id"`
		Title             string `json:"title"`
		EstimatedDuration string `json:"estimatedDuration,omitempty"`
		Segments          int    `json:"segments"`
		Quizzes           int    `json:"quizzes"`
	}
	out := []lessonInfo{}
	for _, l := range h.catalog.All() {
		out = append(out, lessonInfo{
			ID:                l.ID,
			Title:             l.Title,
			EstimatedDuration: l.EstimatedDuration,
			Segments:          l.Len(),
			Quizzes:           len(l.Quizzes()),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleGetLesson(w http.ResponseWriter, r *http.Request) {
	l, err := h.catalog.Lookup(r.PathValue("lessonId"))
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown lesson")
		return
	}
	writeJSON(w, http.StatusOK, l)
}

// knownLesson reports whether lessonID may be used. With an empty catalog
// every id is accepted and the returned lesson is nil.
func (h *Handler) knownLesson(lessonID string) (*lesson.Lesson, bool) {
	if strings.TrimSpace(lessonID) == "" {
		return nil, false
	}
	if h.catalog.Len() == 0 {
		return nil, true
	}
	return h.catalog.Get(lessonID)
}

func (h *Handler) currentView(ctx context.Context, learnerID, lessonID string) (progressView, error) {
	rec, err := h.store.Get(ctx, learnerID, lessonID)
	if errors.Is(err, ErrNotFound) {
		return emptyView(lessonID), nil
	}
	if err != nil {
		return progressView{}, err
	}
	return viewOf(rec), nil
}

func (h *Handler) dashboard(ctx context.Context, learnerID string) (report.Dashboard, error) {
	records, err := h.store.List(ctx, learnerID)
	if err != nil {
		return report.Dashboard{}, err
	}
	progress := make([]report.LessonProgress, 0, len(records))
	for _, rec := range records {
		progress = append(progress, report.LessonProgress{LessonID: rec.LessonID, CurrentIndex: rec.CurrentIndex})
	}
	return report.BuildDashboard(progress, h.catalog), nil
}

func decodeSaveBody(body io.Reader) (int, error) {
	data, err := io.ReadAll(io.LimitReader(body, maxBodyBytes))
	if err != nil {
		return 0, fmt.Errorf("read body: %w", err)
	}
	schema, err := loadSaveBodySchema()
	if err != nil {
		return 0, fmt.Errorf("load body schema: %w", err)
	}
	result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil || !result.Valid() {
		return 0, errors.New("index must be an integer")
	}

	var payload struct {
		Index json.Number `json:"index"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return 0, errors.New("index must be an integer")
	}
	// Integral floats such as 2.0 or 1e2 pass the schema but not ParseInt.
	if n, err := payload.Index.Int64(); err == nil {
		return int(n), nil
	}
	f, err := payload.Index.Float64()
	if err != nil {
		return 0, errors.New("index must be an integer")
	}
	return int(f), nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("write response failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
