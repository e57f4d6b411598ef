package api

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/xoslabs/workforce/internal/api/handlers"
	mw "github.com/xoslabs/workforce/internal/api/middleware"
	"github.com/xoslabs/workforce/internal/buildconfig"
	"github.com/xoslabs/workforce/internal/config"
	"github.com/xoslabs/workforce/internal/domain"
	"github.com/xoslabs/workforce/internal/estimate"
	"github.com/xoslabs/workforce/internal/notify"
	"github.com/xoslabs/workforce/internal/service"
	"github.com/xoslabs/workforce/internal/store"
	"go.uber.org/zap"
)

// Pinger reports whether the backing database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Stores bundles the persistence the app runs on.
type Stores struct {
	Employees domain.EmployeeStore
	Agents    domain.AgentStore
	Actions   domain.ActionStore
	Clients   domain.ClientStore
	Quotes    domain.QuoteStore
	Events    domain.EventStore
	DB        Pinger
}

func PostgresStores(db *pgxpool.Pool) Stores {
	return Stores{
		Employees: store.NewEmployeeStore(db),
		Agents:    store.NewAgentStore(db),
		Actions:   store.NewActionStore(db),
		Clients:   store.NewClientStore(db),
		Quotes:    store.NewQuoteStore(db),
		Events:    store.NewEventStore(db),
		DB:        db,
	}
}

// Options carries the effectors and settings the services need.
type Options struct {
	Notifier       domain.Notifier
	Estimates      domain.EstimateService
	Sender         domain.FollowupSender
	Workforce      config.Workforce
	RateLimitRPS   float64
	RateLimitBurst int
}

// App holds the router and background services for lifecycle management.
type App struct {
	Router    *chi.Mux
	Queue     *service.ActionQueue
	Processor *service.ActionProcessor
	Scheduler *service.FollowupScheduler

	startTime    time.Time
	requestCount atomic.Int64
	errorCount   atomic.Int64
}

func NewApp(st Stores, opts Options, logger *zap.Logger) *App {
	wf := opts.Workforce
	if opts.Sender == nil {
		opts.Sender = service.NewLogFollowupSender(logger)
	}

	// Services
	workforceSvc := service.NewWorkforceService(st.Employees, st.Agents)
	queue := service.NewActionQueue(st.Actions, st.Employees, st.Agents, opts.Notifier, logger)
	queue.SetRequireApproval(wf.RequireApproval)

	processor := service.NewActionProcessor(queue, st.Agents, st.Clients, st.Quotes, opts.Estimates, opts.Sender, opts.Notifier, logger)
	if wf.ProcessorInterval > 0 {
		processor.SetInterval(wf.ProcessorInterval)
	}
	if wf.ClaimLease > 0 {
		processor.SetClaimLease(wf.ClaimLease)
	}

	policy := service.DefaultFollowupPolicy()
	if wf.FollowDays > 0 {
		policy.FollowDays = wf.FollowDays
	}
	if wf.MaxFollowups > 0 {
		policy.MaxFollowups = wf.MaxFollowups
	}
	if wf.FollowupAgent != "" {
		policy.AgentCodeName = wf.FollowupAgent
	}
	if wf.FollowupCron != "" {
		policy.Schedule = wf.FollowupCron
	}
	scheduler := service.NewFollowupScheduler(st.Quotes, st.Agents, opts.Notifier, policy, logger)

	// Handlers
	actionHandler := handlers.NewActionHandler(queue)
	employeeHandler := handlers.NewEmployeeHandler(workforceSvc)
	agentHandler := handlers.NewAgentHandler(workforceSvc, queue)
	opsHandler := handlers.NewOperationsHandler(processor, scheduler)
	eventHandler := handlers.NewEventHandler(st.Events)

	r := chi.NewRouter()

	app := &App{
		Router:    r,
		Queue:     queue,
		Processor: processor,
		Scheduler: scheduler,
		startTime: time.Now(),
	}

	metricsCollector := mw.NewMetricsCollector(&app.requestCount, &app.errorCount)

	// Global middleware (order matters)
	r.Use(mw.RequestID)
	r.Use(middleware.RealIP)
	r.Use(metricsCollector.Middleware)
	r.Use(mw.Logging(logger))
	r.Use(middleware.Recoverer)
	if opts.RateLimitRPS > 0 {
		r.Use(mw.RateLimit(opts.RateLimitRPS, opts.RateLimitBurst))
	}

	r.Get("/health", healthHandler(st.DB))
	r.Get("/metrics", app.metricsHandler())
	r.Get("/version", versionHandler)

	r.Route("/api", func(r chi.Router) {
		r.Route("/actions", func(r chi.Router) {
			r.Get("/", actionHandler.List)
			r.Post("/", actionHandler.Create)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", actionHandler.Get)
				r.Post("/approve", actionHandler.Approve)
				r.Post("/reject", actionHandler.Reject)
			})
		})

		r.Route("/employees", func(r chi.Router) {
			r.Post("/", employeeHandler.Create)
			r.Get("/{id}", employeeHandler.GetByID)
		})

		r.Route("/agents", func(r chi.Router) {
			r.Get("/", agentHandler.List)
			r.Post("/", agentHandler.Create)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", agentHandler.GetByID)
				r.Get("/actions", agentHandler.PendingActions)
			})
		})

		r.Post("/followups/run", opsHandler.RunFollowups)
		r.Post("/processor/run", opsHandler.RunProcessor)
		r.Get("/events", eventHandler.List)
	})

	return app
}

func healthHandler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if db != nil {
			if err := db.Ping(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "error": err.Error()})
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}

func versionHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(buildconfig.VersionInfo())
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
			"processor_id":   app.Processor.InstanceID(),
			"memory": map[string]any{
				"alloc_mb": float64(memStats.Alloc) / 1024 / 1024,
				"sys_mb":   float64(memStats.Sys) / 1024 / 1024,
				"num_gc":   memStats.NumGC,
			},
			"go_version": runtime.Version(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	}
}

// Ensure stores and clients satisfy interfaces at compile time.
var (
	_ domain.EmployeeStore   = (*store.EmployeeStore)(nil)
	_ domain.AgentStore      = (*store.AgentStore)(nil)
	_ domain.ActionStore     = (*store.ActionStore)(nil)
	_ domain.ClientStore     = (*store.ClientStore)(nil)
	_ domain.QuoteStore      = (*store.QuoteStore)(nil)
	_ domain.EventStore      = (*store.EventStore)(nil)
	_ domain.EventStore      = (*notify.Hub)(nil)
	_ domain.Notifier        = (*notify.Postgres)(nil)
	_ domain.Notifier        = (*notify.Hub)(nil)
	_ domain.EstimateService = (*estimate.ZohoClient)(nil)
	_ domain.EstimateService = (*estimate.MockClient)(nil)
	_ domain.EstimateService = (*estimate.Retrying)(nil)
	_ domain.FollowupSender  = (*service.LogFollowupSender)(nil)
)
