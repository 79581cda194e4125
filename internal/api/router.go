package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/kalambet/permitflow/internal/intake"
)

type AppDeps struct {
	Service *intake.Service
	Token   string       // guards mutating routes when non-empty
	Metrics http.Handler // optional; served at /metrics
	Logger  *slog.Logger // optional; defaults to slog.Default()
}

// NewAppHandler returns the permitflow HTTP API.
func NewAppHandler(deps AppDeps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(deps.Logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.AllowAll().Handler)

	r.Get("/", handleRoot)
	r.Get("/health", handleHealth)
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	r.Post("/classify", handleClassify)

	r.Route("/projects", func(r chi.Router) {
		r.Get("/", handleListProjects(deps))
		r.With(BearerAuth(deps.Token)).Post("/", handleCreateProject(deps))
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", handleGetProject(deps))
			r.Get("/questionnaire", handleGetQuestionnaire(deps))
			r.With(BearerAuth(deps.Token)).Put("/questionnaire", handlePutQuestionnaire(deps))
		})
	})

	r.Route("/questionnaires", func(r chi.Router) {
		r.Get("/", handleListQuestionnaires(deps))
		r.Get("/report", handleReport(deps))
		r.With(BearerAuth(deps.Token)).Post("/", handleSubmitQuestionnaire(deps))
	})

	return r
}

func handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("OK"))
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
