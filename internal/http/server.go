// Package http serves the ledger as a JSON API with CSV and report downloads.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"billtracker/internal/core"
	"billtracker/internal/export"
	"billtracker/internal/log"
	"billtracker/internal/metrics"
	"billtracker/internal/middleware/ratelimit"
	"billtracker/internal/middleware/security"
	"billtracker/internal/middleware/trace"
	"billtracker/internal/services"
	"billtracker/internal/storage"
)

// ReminderSource exposes the notifications of the latest reminder run.
type ReminderSource interface {
	Last() []core.Notification
}

// Server wraps http.Server with the ledger routes and their middleware.
type Server struct {
	http.Server

	svc       *services.LedgerService
	renderer  export.Renderer
	reminders ReminderSource
	ready     storage.Pinger
	metrics   *metrics.Metrics
	limiter   *ratelimit.Limiter
	detector  *security.Detector
	logger    *log.Logger
	now       func() time.Time

	rateLimit    int
	shutdownOnce sync.Once
}

type Option func(*Server)

// WithRenderer sets the document renderer behind /export/report.
func WithRenderer(r export.Renderer) Option {
	return func(s *Server) { s.renderer = r }
}

func WithReminders(r ReminderSource) Option {
	return func(s *Server) { s.reminders = r }
}

// WithReadiness makes /readyz ping p.
func WithReadiness(p storage.Pinger) Option {
	return func(s *Server) { s.ready = p }
}

// WithMetrics counts requests and mounts /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

func WithLogger(l *log.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithRateLimit caps mutating requests per client IP per minute.
func WithRateLimit(perMinute int) Option {
	return func(s *Server) { s.rateLimit = perMinute }
}

func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, svc *services.LedgerService, opts ...Option) *Server {
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		svc:      svc,
		detector: security.NewDetector(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.Discard()
	}
	s.logger = s.logger.WithComponent(log.ComponentHTTP)
	if s.renderer == nil {
		r, err := export.NewHTMLRenderer()
		if err != nil {
			s.logger.Error("Failed parsing report template", log.FieldError, err)
		} else {
			s.renderer = r
		}
	}
	s.limiter = ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: s.rateLimit})

	mux := http.NewServeMux()
	s.routes(mux)
	s.Handler = s.middleware(mux)
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	s.handle(mux, "GET /healthz", handleHealth)
	s.handle(mux, "GET /readyz", s.handleReady)
	if s.metrics != nil {
		h := s.metrics.Handler()
		s.handle(mux, "GET /metrics", h.ServeHTTP)
	}

	s.handle(mux, "GET /api/bills", s.handleListBills)
	s.handle(mux, "POST /api/bills", s.handleCreateBill)
	s.handle(mux, "GET /api/bills/overdue", s.handleOverdueBills)
	s.handle(mux, "GET /api/bills/{id}", s.handleGetBill)
	s.handle(mux, "PUT /api/bills/{id}", s.handleUpdateBill)
	s.handle(mux, "DELETE /api/bills/{id}", s.handleDeleteBill)
	s.handle(mux, "POST /api/bills/{id}/toggle", s.handleToggleBill)

	s.handle(mux, "GET /api/notes", s.handleListNotes)
	s.handle(mux, "POST /api/notes", s.handleCreateNote)
	s.handle(mux, "GET /api/notes/{id}", s.handleGetNote)
	s.handle(mux, "PUT /api/notes/{id}", s.handleUpdateNote)
	s.handle(mux, "DELETE /api/notes/{id}", s.handleDeleteNote)

	s.handle(mux, "GET /api/categories", s.handleListCategories)
	s.handle(mux, "POST /api/categories", s.handleCreateCategory)
	s.handle(mux, "DELETE /api/categories/{name}", s.handleDeleteCategory)

	s.handle(mux, "GET /api/income", s.handleGetIncome)
	s.handle(mux, "PUT /api/income", s.handleSetIncome)
	s.handle(mux, "GET /api/summary", s.handleSummary)
	s.handle(mux, "GET /api/reminders", s.handleReminders)
	s.handle(mux, "GET /api/report", s.handleReportJSON)

	s.handle(mux, "GET /export/csv", s.handleExportCSV)
	s.handle(mux, "GET /export/report", s.handleExportReport)
}

// handle registers h and records its pattern for request metrics.
func (s *Server) handle(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		trace.SetRoute(r.Context(), pattern)
		h(w, r)
	})
}

// middleware wraps next, outermost first: tracing, request logger,
// security headers, probe detection, rate limiting.
func (s *Server) middleware(next http.Handler) http.Handler {
	var observe trace.Observer
	if s.metrics != nil {
		observe = s.metrics.ObserveHTTP
	}
	limited := s.limiter.Middleware(s.detector.ClientIP, s.writeRateLimited,
		http.MethodPost, http.MethodPut, http.MethodDelete)

	h := limited(next)
	h = s.flagSuspicious(h)
	h = security.Headers(security.DefaultHeadersConfig())(h)
	h = log.Middleware(s.logger)(h)
	return trace.NewMiddleware(s.logger, s.detector.ClientIP, observe).Middleware(h)
}

func (s *Server) flagSuspicious(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.detector.Suspicious(r) {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Suspicious request",
				log.FieldClientIP, s.detector.ClientIP(r),
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path,
				log.FieldUserAgent, r.Header.Get("User-Agent"))
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) writeRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ClientIP(r),
		log.FieldComponent, log.ComponentRateLimit)
	NewResponse().
		Status(http.StatusTooManyRequests).
		Notify(core.Notification{
			Title:    "Slow down",
			Message:  "Too many changes at once. Please try again in a minute.",
			Severity: core.SeverityWarning,
		}).
		JSON(errorBody{Error: "rate limit exceeded"}).
		Write(w)
}

// Shutdown stops accepting requests and ends the limiter's cleanup loop.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready.Ping(ctx); err != nil {
			log.FromContext(ctx).WarnContext(ctx, "Readiness check failed",
				log.FieldError, err,
				log.FieldErrorType, log.ErrorTypeDatabase)
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("not ready"))
			return
		}
	}
	_, _ = w.Write([]byte("ready"))
}
