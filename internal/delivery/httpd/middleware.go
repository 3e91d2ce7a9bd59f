package httpd

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/RubachokBoss/homework-distributor/internal/service"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

const TeacherHeader = "X-Teacher-ID"

func RequestLogger(log zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			start := time.Now()
			defer func() {
				log.Info().
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Str("ip", r.RemoteAddr).
					Int("status", ww.Status()).
					Int("bytes", ww.BytesWritten()).
					Dur("duration", time.Since(start)).
					Str("request_id", middleware.GetReqID(r.Context())).
					Msg("HTTP request")
			}()

			next.ServeHTTP(ww, r)
		}
		return http.HandlerFunc(fn)
	}
}

func Recovery(log zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil && rvr != http.ErrAbortHandler {
					log.Error().
						Interface("recover", rvr).
						Str("method", r.Method).
						Str("path", r.URL.Path).
						Msg("Panic recovered")

					writeError(w, http.StatusInternalServerError, "Internal server error")
				}
			}()

			next.ServeHTTP(w, r)
		}
		return http.HandlerFunc(fn)
	}
}

// TeacherAuth admits only requests whose X-Teacher-ID names the privileged actor.
func TeacherAuth(access service.AccessService) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get(TeacherHeader)
			if raw == "" {
				writeError(w, http.StatusUnauthorized, TeacherHeader+" header is required")
				return
			}
			chatID, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid "+TeacherHeader+" header")
				return
			}

			err = access.Authorize(r.Context(), chatID)
			switch {
			case err == nil:
				next.ServeHTTP(w, r)
			case errors.Is(err, service.ErrUnauthorized), errors.Is(err, service.ErrTeacherNotConfigured):
				writeError(w, http.StatusForbidden, err.Error())
			default:
				writeError(w, http.StatusServiceUnavailable, "Storage unavailable")
			}
		})
	}
}
