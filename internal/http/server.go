// Package http serves the expense tracker page and maps form posts onto the
// controller.
package http

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"expensetracker/internal/app"
	applog "expensetracker/internal/log"
	"expensetracker/internal/middleware/ratelimit"
	"expensetracker/internal/middleware/security"
	"expensetracker/internal/middleware/trace"
	appweb "expensetracker/web"
)

// Options configures NewServer.
type Options struct {
	Addr               string
	CurrencySymbol     string
	RateLimitPerMinute int
	Logger             *applog.Logger

	// Ready reports backend health for /readyz. Nil means always ready.
	Ready func(ctx context.Context) error
}

type Server struct {
	http.Server
	templates    *template.Template
	ctrl         *app.Controller
	currency     string
	ready        func(ctx context.Context) error
	rateLimiter  *ratelimit.Limiter
	logger       *applog.Logger
	shutdownOnce sync.Once
}

// NewServer parses the embedded templates and wires routes and middleware.
func NewServer(opts Options, ctrl *app.Controller) (*Server, error) {
	logger := opts.Logger
	if logger == nil {
		logger = applog.Discard()
	}

	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	static, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("mount static assets: %w", err)
	}

	s := &Server{
		templates:   t,
		ctrl:        ctrl,
		currency:    opts.CurrencySymbol,
		ready:       opts.Ready,
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		logger:      logger.WithComponent(applog.ComponentHTTP),
	}

	mux := http.NewServeMux()
	mux.Handle("GET /static/", security.StaticCache(3600)(
		http.StripPrefix("/static/", http.FileServer(http.FS(static)))))
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.Handle("GET /{$}", security.NoStore(http.HandlerFunc(s.handleIndex)))
	mux.HandleFunc("POST /expenses", s.handleSubmit)
	mux.HandleFunc("POST /expenses/cancel", s.handleCancelEdit)
	mux.HandleFunc("POST /expenses/clear", s.handleClearAll)
	mux.HandleFunc("POST /expenses/{id}/edit", s.handleBeginEdit)
	mux.HandleFunc("POST /expenses/{id}/delete", s.handleDelete)
	mux.Handle("GET /export.csv", security.NoStore(http.HandlerFunc(s.handleExportCSV)))

	var handler http.Handler = mux
	handler = s.rateLimiter.Middleware(security.ClientIP, s.onRateLimited, http.MethodPost)(handler)
	handler = security.Headers(security.DefaultHeadersConfig())(handler)
	handler = trace.NewMiddleware(logger, security.ClientIP).Handler(handler)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

// Shutdown stops the rate limiter and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	s.logger.WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, security.ClientIP(r),
		applog.FieldMethod, r.Method,
		applog.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.").Write(w)
}
