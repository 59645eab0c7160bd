package api

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/cadencehq/cadence/internal/api/handlers"
	mw "github.com/cadencehq/cadence/internal/api/middleware"
	"github.com/cadencehq/cadence/internal/config"
	"github.com/cadencehq/cadence/internal/domain"
	"github.com/cadencehq/cadence/internal/service"
	"github.com/cadencehq/cadence/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// App holds the router and background services for lifecycle management.
type App struct {
	Router     *chi.Mux
	Agents     *service.AgentService
	Persister  *service.PersisterService
	Inferencer *service.InferenceService

	startTime    time.Time
	requestCount atomic.Int64
	errorCount   atomic.Int64
}

func NewApp(db *pgxpool.Pool, modelStore domain.ModelStore, logger *zap.Logger) *App {
	// Stores
	taskStore := store.NewTaskStore(db)
	moodStore := store.NewMoodStore(db)
	recStore := store.NewRecommendationStore(db)

	catalog := domain.MustLoadCatalog()

	// Services
	agentSvc := service.NewAgentService(modelStore, recStore, logger)
	recommenderSvc := service.NewRecommenderService(catalog, agentSvc, taskStore, moodStore, recStore, logger)
	feedbackSvc := service.NewFeedbackService(recStore, taskStore, moodStore, agentSvc, logger)
	inferenceSvc := service.NewInferenceService(recStore, taskStore, feedbackSvc, logger)
	inferenceSvc.SetInterval(config.InferenceInterval())
	inferenceSvc.SetDefaults(config.InferenceMinAge(), config.InferenceBatchLimit())
	persisterSvc := service.NewPersisterService(agentSvc, logger)
	persisterSvc.SetInterval(config.PersistInterval())

	// Handlers
	recommendationHandler := handlers.NewRecommendationHandler(recommenderSvc)
	feedbackHandler := handlers.NewFeedbackHandler(feedbackSvc)
	taskHandler := handlers.NewTaskHandler(taskStore)
	moodHandler := handlers.NewMoodHandler(moodStore)
	maintenanceHandler := handlers.NewMaintenanceHandler(inferenceSvc, agentSvc)

	r := chi.NewRouter()

	app := &App{
		Router:     r,
		Agents:     agentSvc,
		Persister:  persisterSvc,
		Inferencer: inferenceSvc,
		startTime:  time.Now(),
	}

	metricsCollector := mw.NewMetricsCollector(&app.requestCount, &app.errorCount)

	// Global middleware (order matters)
	r.Use(mw.RequestID)
	r.Use(middleware.RealIP)
	r.Use(metricsCollector.Middleware)
	r.Use(mw.Logging(logger))
	r.Use(middleware.Recoverer)
	r.Use(mw.RateLimit(config.RateLimitRPS(), config.RateLimitBurst()))

	// Health (no auth)
	r.Get("/health", healthHandler(db))

	// Metrics (no auth)
	r.Get("/metrics", app.metricsHandler())

	// Authenticated routes
	r.Route("/v1", func(r chi.Router) {
		r.Use(mw.APIKeyAuth(config.APIKey()))

		r.Route("/users/{id}", func(r chi.Router) {
			r.Post("/recommendations", recommendationHandler.Create)
			r.Get("/phase", recommendationHandler.GetPhase)
			r.Get("/stats", recommendationHandler.GetStats)
			r.Get("/tasks", taskHandler.ListPending)
		})

		r.Post("/feedback", feedbackHandler.Submit)

		r.Route("/tasks", func(r chi.Router) {
			r.Post("/", taskHandler.Create)
			r.Patch("/{id}/status", taskHandler.UpdateStatus)
		})

		r.Post("/moods", moodHandler.Create)

		r.Route("/maintenance", func(r chi.Router) {
			r.Post("/infer-feedback", maintenanceHandler.InferFeedback)
			r.Post("/persist", maintenanceHandler.Persist)
		})
	})

	return app
}

func healthHandler(db *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(r.Context()); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "error": err.Error()})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}

func (app *App) metricsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		uptime := time.Since(app.startTime)

		response := map[string]any{
			"uptime_seconds": uptime.Seconds(),
			"uptime_human":   uptime.Round(time.Second).String(),
			"request_count":  app.requestCount.Load(),
			"error_count":    app.errorCount.Load(),
			"goroutines":     runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb":       float64(memStats.Alloc) / 1024 / 1024,
				"total_alloc_mb": float64(memStats.TotalAlloc) / 1024 / 1024,
				"sys_mb":         float64(memStats.Sys) / 1024 / 1024,
				"num_gc":         memStats.NumGC,
			},
			"go_version": runtime.Version(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	}
}

// Ensure stores satisfy the domain interfaces at compile time.
var (
	_ domain.TaskStore           = (*store.TaskStore)(nil)
	_ domain.MoodStore           = (*store.MoodStore)(nil)
	_ domain.RecommendationStore = (*store.RecommendationStore)(nil)
	_ domain.ModelStore          = (*store.FileModelStore)(nil)
)
