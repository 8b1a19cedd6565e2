// Package server exposes the diagnosis intake and progress API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/ai-diagnosis/internal/intake"
	"github.com/sells-group/ai-diagnosis/internal/model"
	"github.com/sells-group/ai-diagnosis/internal/quality"
	"github.com/sells-group/ai-diagnosis/internal/store"
)

const maxBodyBytes = 1 << 20

// Submitter accepts a validated submission for background processing.
// pipeline.Dispatcher implements it. An error means the submission was not
// accepted and nothing was started.
type Submitter interface {
	Submit(ctx context.Context, sub model.Submission) error
}

// TrendSource reports quality trends. quality.Service implements it.
type TrendSource interface {
	Trend(ctx context.Context, since time.Time) (*quality.Trend, error)
}

// Deps wires the handlers. Trends is optional.
type Deps struct {
	Validator *intake.Validator
	Submitter Submitter
	Progress  store.ProgressStore
	Trends    TrendSource
}

// NewRouter builds the HTTP handler. An empty origins list allows any
// origin.
func NewRouter(deps Deps, allowedOrigins []string) http.Handler {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	h := &handlers{deps: deps}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", h.health)
	r.Route("/api", func(r chi.Router) {
		r.Post("/diagnosis", h.submit)
		r.Get("/diagnosis/{id}/progress", h.progress)
		if deps.Trends != nil {
			r.Get("/quality", h.quality)
		}
	})
	return r
}

type handlers struct {
	deps Deps
}

type submitResponse struct {
	Success     bool              `json:"success"`
	DiagnosisID string            `json:"diagnosisId,omitempty"`
	Message     string            `json:"message,omitempty"`
	Errors      map[string]string `json:"errors,omitempty"`
}

type progressResponse struct {
	DiagnosisID string                 `json:"diagnosisId"`
	Latest      model.ProgressRecord   `json:"latest"`
	Terminal    bool                   `json:"terminal"`
	Rows        []model.ProgressRecord `json:"rows"`
}

func (h *handlers) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) submit(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusRequestEntityTooLarge, submitResponse{Message: "요청 본문이 너무 큽니다."})
		return
	}

	sub, err := h.deps.Validator.Decode(body)
	if err != nil {
		var verr *intake.ValidationError
		if errors.As(err, &verr) {
			fields := make(map[string]string, len(verr.Fields))
			for field, tag := range verr.Fields {
				fields[field] = intake.FieldMessage(field, tag)
			}
			writeJSON(w, http.StatusBadRequest, submitResponse{
				Message: "입력값을 확인해 주세요.",
				Errors:  fields,
			})
			return
		}
		zap.L().Error("server: decode submission", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, submitResponse{Message: "요청을 처리하지 못했습니다."})
		return
	}

	if err := h.deps.Submitter.Submit(r.Context(), sub); err != nil {
		zap.L().Warn("server: diagnosis not accepted",
			zap.String("diagnosis_id", sub.ID),
			zap.Error(err),
		)
		w.Header().Set("Retry-After", "60")
		writeJSON(w, http.StatusServiceUnavailable, submitResponse{
			DiagnosisID: sub.ID,
			Message:     "현재 진단 요청이 많아 접수하지 못했습니다. 잠시 후 다시 시도해 주세요.",
		})
		return
	}
	zap.L().Info("server: diagnosis accepted",
		zap.String("diagnosis_id", sub.ID),
		zap.String("variant", string(sub.Variant)),
		zap.String("request_id", middleware.GetReqID(r.Context())),
	)

	writeJSON(w, http.StatusAccepted, submitResponse{
		Success:     true,
		DiagnosisID: sub.ID,
		Message:     "진단이 접수되었습니다. 결과는 이메일로 발송됩니다.",
	})
}

func (h *handlers) progress(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rows, err := h.deps.Progress.ListProgress(r.Context(), id)
	if err != nil {
		zap.L().Error("server: list progress", zap.String("diagnosis_id", id), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "progress unavailable"})
		return
	}

	latest, ok := model.LatestProgress(rows, id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "diagnosis not found"})
		return
	}

	writeJSON(w, http.StatusOK, progressResponse{
		DiagnosisID: id,
		Latest:      latest,
		Terminal:    model.IsTerminalStatus(latest.Status),
		Rows:        rows,
	})
}

func (h *handlers) quality(w http.ResponseWriter, r *http.Request) {
	since := time.Now().UTC().Add(-24 * time.Hour)
	if raw := r.URL.Query().Get("since"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "since must be a positive duration"})
			return
		}
		since = time.Now().UTC().Add(-d)
	}

	trend, err := h.deps.Trends.Trend(r.Context(), since)
	if err != nil {
		zap.L().Error("server: quality trend", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "quality trend unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, trend)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("server: encode response", zap.Error(err))
	}
}

// Serve runs handler on addr until ctx is canceled, then shuts down
// gracefully.
func Serve(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("starting server", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return eris.Wrap(err, "server: listen")
	case <-ctx.Done():
	}

	zap.L().Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
