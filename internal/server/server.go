// Package server exposes the status record and run trigger over HTTP.
package server

import (
	"context"
	"net"
	"net/http"
	"slices"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/chr1sbest/runctl/internal/launcher"
	"github.com/chr1sbest/runctl/internal/logger"
	"github.com/chr1sbest/runctl/internal/tracker"
)

// ShutdownTimeout bounds how long in-flight requests may take to finish.
const ShutdownTimeout = 10 * time.Second

// StatusReader loads the current status record.
type StatusReader interface {
	Load() (tracker.Record, error)
}

// Starter starts a run.
type Starter interface {
	Start() (launcher.StartResult, error)
}

// Server is the HTTP front of runctl.
type Server struct {
	status   StatusReader
	launcher Starter
	log      logger.Logger
	origins  []string
}

// New creates a server. origins lists the browser origins allowed by
// CORS; "*" allows any.
func New(status StatusReader, l Starter, log logger.Logger, origins []string) *Server {
	return &Server{
		status:   status,
		launcher: l,
		log:      log.WithFields(logger.F(logger.FieldComponent, "server")),
		origins:  origins,
	}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.accessLog)
	r.Use(cors.Handler(s.corsOptions()))

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Post("/run", s.handleRun)
	})
	return r
}

// corsOptions allows credentials, so a wildcard origin is answered by
// echoing the request origin; browsers reject a literal "*" alongside
// credentials.
func (s *Server) corsOptions() cors.Options {
	opts := cors.Options{
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if slices.Contains(s.origins, "*") {
		opts.AllowOriginFunc = func(*http.Request, string) bool { return true }
	} else {
		opts.AllowedOrigins = s.origins
	}
	return opts
}

// Serve listens on addr until ctx is cancelled, then drains in-flight
// requests.
func (s *Server) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "listen on %s", addr)
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener serves on an existing listener until ctx is cancelled.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("HTTP server listening", logger.F(logger.FieldAddress, ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "serve HTTP")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	s.log.Info("HTTP server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutdown HTTP server")
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	_ = writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	rec, err := s.status.Load()
	if err != nil {
		s.requestLog(r).Error("failed to load status", logger.F(logger.FieldError, err))
		writeError(w, http.StatusInternalServerError, "failed to read status")
		return
	}
	if err := writeJSON(w, http.StatusOK, rec); err != nil {
		s.requestLog(r).Warn("failed to write status response", logger.F(logger.FieldError, err))
	}
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	res, err := s.launcher.Start()
	if err != nil {
		s.requestLog(r).Error("failed to start automation", logger.F(logger.FieldError, err))
		writeError(w, http.StatusInternalServerError, "failed to start automation")
		return
	}
	if err := writeJSON(w, http.StatusOK, res); err != nil {
		s.requestLog(r).Warn("failed to write run response", logger.F(logger.FieldError, err))
	}
}

func (s *Server) requestLog(r *http.Request) logger.Logger {
	return s.log.WithFields(logger.F(logger.FieldRequestID, middleware.GetReqID(r.Context())))
}

// accessLog logs one line per request after it completes.
func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		s.requestLog(r).Debug("request",
			logger.F(logger.FieldMethod, r.Method),
			logger.F(logger.FieldPath, r.URL.Path),
			logger.F(logger.FieldStatus, ww.Status()),
			logger.F("bytes", ww.BytesWritten()),
			logger.F(logger.FieldDurationMS, time.Since(start).Milliseconds()))
	})
}
