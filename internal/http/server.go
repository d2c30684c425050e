package http

import (
	"context"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"bottega/internal/auth"
	"bottega/internal/cache"
	"bottega/internal/log"
	"bottega/internal/metrics"
	"bottega/internal/middleware/ratelimit"
	"bottega/internal/middleware/security"
	"bottega/internal/middleware/trace"
	"bottega/internal/services"
	appweb "bottega/web"
)

// Deps is everything the HTTP surface needs. Ready and Caches are optional.
type Deps struct {
	Ledger   *services.LedgerService
	Reports  *services.ReportService
	Tasks    *services.TaskService
	Identity auth.IdentityProvider
	Sessions *auth.SessionManager
	Metrics  *metrics.Metrics
	Caches   *cache.Manager
	Logger   *log.Logger

	// Ready reports whether the backing store answers.
	Ready func(ctx context.Context) error

	RateLimit ratelimit.Config
}

type Server struct {
	http.Server
	deps        Deps
	logger      *slog.Logger
	pages       map[string]*template.Template
	rateLimiter *ratelimit.Limiter
	detector    *security.Detector

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(addr string, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = log.Discard()
	}
	if deps.RateLimit.RequestsPerMinute == 0 {
		deps.RateLimit = ratelimit.DefaultConfig()
	}
	logger := deps.Logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		deps:        deps,
		logger:      logger.Slog(),
		rateLimiter: ratelimit.NewLimiter(deps.RateLimit),
		detector:    security.NewDetector(logger.Slog(), deps.Metrics.IncSuspicious),
	}

	// Parse embedded templates at startup.
	pages, err := loadPages(appweb.TemplatesFS)
	if err != nil {
		s.logger.Warn("Failed parsing templates", log.FieldError, err, log.FieldOperation, log.OpRender)
	}
	s.pages = pages

	mux := http.NewServeMux()
	s.routes(mux)

	var handler http.Handler = mux
	handler = s.rateLimiter.Middleware(s.detector.ExtractClientIP, s.onRateLimited)(handler)
	handler = s.detector.Middleware(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = trace.NewMiddleware(deps.Logger, s.detector.ExtractClientIP).Middleware(handler)
	s.Handler = handler

	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	handle := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, s.instrument(pattern, h))
	}
	page := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, s.instrument(pattern, s.deps.Sessions.Middleware(h)))
	}
	form := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, s.instrument(pattern, s.deps.Sessions.RequireFormToken(h)))
	}
	api := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, s.instrument(pattern, s.requireAPISession(h)))
	}

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	handle("GET /healthz", handleHealth)
	handle("GET /readyz", s.handleReady)
	if s.deps.Metrics != nil {
		mux.Handle("GET /metrics", s.deps.Metrics.Handler())
	}

	handle("GET /{$}", s.handleIndex)
	handle("GET /login", s.handleIndex)
	form("POST /login", s.handleLogin)
	handle("GET /register", s.handleRegisterPage)
	form("POST /register", s.handleRegister)
	handle("GET /logout", s.handleLogout)

	page("GET /dashboard", s.handleDashboard)

	page("GET /sales", s.handleSales)
	page("POST /sales", s.handleCreateSale)
	page("POST /sales/delete/{id}", s.handleDeleteSale)
	page("POST /sales/update_status/{id}", s.handleUpdateSaleStatus)

	page("GET /expenses", s.handleExpenses)
	page("POST /expenses", s.handleCreateExpense)
	page("POST /expenses/delete/{id}", s.handleDeleteExpense)

	page("GET /calendar", s.handleCalendar)
	page("POST /calendar", s.handleCreateTask)
	page("POST /calendar/update_task_status", s.handleToggleTask)
	page("POST /calendar/delete/{id}", s.handleDeleteTask)
	page("POST /calendar/edit/{id}", s.handleEditTask)

	api("GET /api/chart-data", s.handleChartData)
	api("GET /api/monthly/{kind}", s.handleMonthlyChart)
}

// instrument records request count and latency under the route pattern,
// keeping metric cardinality bounded.
func (s *Server) instrument(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := trace.NewResponseWriter(w)
		next.ServeHTTP(rw, r)
		s.deps.Metrics.ObserveRequest(route, rw.Status(), time.Since(start))
	})
}

// requireAPISession answers 401 JSON instead of redirecting.
func (s *Server) requireAPISession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.deps.Sessions.Parse(r)
		if err != nil {
			JSONError(http.StatusUnauthorized, "unauthorized", "login required").Write(w)
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithSession(r.Context(), sess)))
	})
}

func (s *Server) onRateLimited(r *http.Request) {
	s.deps.Metrics.IncRateLimited()
	s.logger.WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		if s.deps.Caches != nil {
			s.deps.Caches.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.deps.Ready(ctx); err != nil {
			s.logger.WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
