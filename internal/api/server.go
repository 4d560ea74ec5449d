package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"lapse/internal/events"
	"lapse/internal/history"
	"lapse/internal/logging"
	"lapse/internal/queue"
	"lapse/internal/render"
	"lapse/internal/services"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
	defaultEventLimit   = 200
	maxRequestBytes     = 1 << 20
)

// Backend is the daemon surface the HTTP handlers call into.
type Backend interface {
	Status(ctx context.Context) DaemonStatus
	Submit(info render.JobInfo, cameraGUID string) (*render.Descriptor, error)
	History(ctx context.Context, limit int) ([]history.Record, error)
}

// Options configures the router.
type Options struct {
	Backend Backend
	Hub     *events.Hub
	Logger  *slog.Logger
	Token   string
}

type server struct {
	backend Backend
	hub     *events.Hub
	logger  *slog.Logger
}

// NewRouter builds the daemon HTTP handler.
func NewRouter(opts Options) http.Handler {
	s := &server{
		backend: opts.Backend,
		hub:     opts.Hub,
		logger:  logging.NewComponentLogger(opts.Logger, "api-server"),
	}

	r := chi.NewRouter()
	r.Use(correlate)
	r.Use(middleware.Recoverer)
	r.Use(authMiddleware(opts.Token))

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Post("/jobs", s.handleSubmit)
		r.Get("/history", s.handleHistory)
		r.Get("/events", s.handleEvents)
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}

// authMiddleware validates bearer tokens. An empty token disables the check.
func authMiddleware(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") || strings.TrimPrefix(auth, "Bearer ") != token {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(ErrorResponse{Error: "unauthorized"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequestIDHeader carries the correlation id in both directions.
const RequestIDHeader = "X-Request-Id"

// correlate adopts the caller's request id or mints a uuid, echoes it on the
// response and stores it on the context so log lines carry it as
// correlation_id.
func correlate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(RequestIDHeader))
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(services.WithRequestID(r.Context(), id)))
	})
}

func (s *server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.backend.Status(r.Context()))
}

func (s *server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid json body: "+err.Error())
		return
	}

	logger := logging.WithContext(r.Context(), s.logger)
	desc, err := s.backend.Submit(req.Job, req.CameraGUID)
	if err != nil {
		status := submitStatus(err)
		if status >= http.StatusInternalServerError {
			logging.WarnWithContext(logger, "job submission failed", "job_submit_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "the print will not be rendered"),
				logging.String(logging.FieldErrorHint, "check the daemon log for queue errors"),
			)
		}
		s.writeError(w, status, err.Error())
		return
	}

	logger.Info("job queued",
		logging.String(logging.FieldEventType, "job_queued"),
		logging.String(logging.FieldJobID, desc.JobID),
		logging.String(logging.FieldCamera, desc.Camera.Name),
	)
	s.writeJSON(w, http.StatusAccepted, SubmitResponse{
		JobID:             desc.JobID,
		Camera:            desc.Camera.Name,
		SnapshotDirectory: desc.SnapshotDir,
	})
}

func submitStatus(err error) int {
	if errors.Is(err, queue.ErrClosed) {
		return http.StatusServiceUnavailable
	}
	if render.KindOf(err) != "" {
		return http.StatusBadRequest
	}
	switch services.MarkerOf(err) {
	case services.ErrValidation:
		return http.StatusBadRequest
	case services.ErrNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (s *server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(v, maxHistoryLimit)
	}
	records, err := s.backend.History(r.Context(), limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if records == nil {
		records = []history.Record{}
	}
	s.writeJSON(w, http.StatusOK, HistoryResponse{Records: records})
}

func (s *server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, ErrorResponse{Error: message})
}
