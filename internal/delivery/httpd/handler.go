package httpd

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/RubachokBoss/homework-distributor/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

type Scheduler interface {
	Schedule(ctx context.Context, taskID int64, expr string) (string, error)
	Unschedule(ctx context.Context, taskID int64) error
	NextRun(taskID int64) (time.Time, bool)
}

// StorePinger reports whether the backing store is reachable.
type StorePinger interface {
	Ping(ctx context.Context) error
}

// PoolStats exposes the distribution worker pool load.
type PoolStats interface {
	GetStats() map[string]interface{}
}

type Handler struct {
	access       service.AccessService
	students     service.StudentService
	tasks        service.TaskService
	submissions  service.SubmissionService
	distribution service.DistributionService
	stats        service.StatsService
	scheduler    Scheduler
	store        StorePinger
	pool         PoolStats
	logger       zerolog.Logger
}

func NewHandler(
	access service.AccessService,
	students service.StudentService,
	tasks service.TaskService,
	submissions service.SubmissionService,
	distribution service.DistributionService,
	stats service.StatsService,
	scheduler Scheduler,
	store StorePinger,
	pool PoolStats,
	logger zerolog.Logger,
) *Handler {
	return &Handler{
		access:       access,
		students:     students,
		tasks:        tasks,
		submissions:  submissions,
		distribution: distribution,
		stats:        stats,
		scheduler:    scheduler,
		store:        store,
		pool:         pool,
		logger:       logger,
	}
}

func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Get("/health", h.HealthCheck)

	router.Route("/api/v1", func(api chi.Router) {
		api.Use(TeacherAuth(h.access))

		api.Route("/students", func(r chi.Router) {
			r.Get("/", h.GetAllStudents)
			r.Post("/", h.RegisterStudent)
		})

		api.Route("/tasks", func(r chi.Router) {
			r.Post("/", h.CreateTask)
			r.Get("/", h.GetAllTasks)
			r.Get("/{id}", h.GetTaskByID)
			r.Post("/{id}/distribute", h.DistributeTask)
			r.Post("/{id}/resend", h.ResendUnsubmitted)
			r.Put("/{id}/schedule", h.ScheduleTask)
			r.Delete("/{id}/schedule", h.UnscheduleTask)
			r.Get("/{id}/stats", h.GetTaskStats)
			r.Get("/{id}/submissions", h.GetTaskSubmissions)
			r.Get("/{id}/submissions/export", h.ExportSubmissions)
		})
	})
}

// HealthCheck reports "degraded" when the store does not answer a ping.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	storeOK := true
	if err := h.store.Ping(r.Context()); err != nil {
		storeOK = false
		h.logger.Error().Err(err).Msg("Store health check failed")
	}

	status := "healthy"
	if !storeOK {
		status = "degraded"
	}

	response := map[string]interface{}{
		"status":    status,
		"service":   "homework-distributor",
		"database":  storeOK,
		"workers":   h.pool.GetStats(),
		"timestamp": time.Now().UTC(),
	}

	writeJSON(w, http.StatusOK, response)
}

// handleError maps the service error taxonomy onto HTTP statuses.
func (h *Handler) handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrTaskNotFound), errors.Is(err, service.ErrStudentNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrInvalidCronExpression),
		errors.Is(err, service.ErrAmbiguousSubmission),
		errors.Is(err, service.ErrInvalidArtifact):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrUnauthorized), errors.Is(err, service.ErrTeacherNotConfigured):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrPersistence):
		h.logger.Error().Err(err).Msg("Storage failure")
		writeError(w, http.StatusServiceUnavailable, "Storage unavailable")
	default:
		h.logger.Error().Err(err).Msg("Request failed")
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func taskIDParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error":   http.StatusText(status),
		"message": message,
	})
}

func writeSuccess(w http.ResponseWriter, data interface{}) {
	response := map[string]interface{}{
		"success": true,
		"data":    data,
	}
	writeJSON(w, http.StatusOK, response)
}
